// internal/infrastructure/persistence/postgres/repository/subscription/repository.go
package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"

	"github.com/jmoiron/sqlx"
)

// SubscriptionRepository интерфейс репозитория подписок
type SubscriptionRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Subscription, error)
	Create(ctx context.Context, sub *models.Subscription) error

	// GetActiveByUserAndChannel находит активную подписку пользователя на канал.
	// Канал достигается через тариф, поэтому поиск идет по связке план -> канал.
	GetActiveByUserAndChannel(ctx context.Context, userID int64, channelID int) (*models.Subscription, error)

	// GetLatestByUserAndChannel находит последнюю подписку на канал независимо от статуса
	GetLatestByUserAndChannel(ctx context.Context, userID int64, channelID int) (*models.Subscription, error)

	// GetActiveByTelegramAndChat находит активную подписку по Telegram ID
	// пользователя и chat_id канала (для проверки доступа)
	GetActiveByTelegramAndChat(ctx context.Context, telegramID, telegramChatID int64) (*models.Subscription, error)

	UpdateWindow(ctx context.Context, id int64, startDate, endDate time.Time) (*models.Subscription, error)
	Deactivate(ctx context.Context, id int64) error

	// DeactivateOthers гасит все подписки пользователя на канал, кроме указанной
	DeactivateOthers(ctx context.Context, userID int64, channelID int, keepID int64) error

	// SweepExpired массово деактивирует истекшие подписки
	SweepExpired(ctx context.Context, now time.Time) (int, error)

	GetExpiredActive(ctx context.Context, now time.Time) ([]*models.ExpiringSubscription, error)
	FindExpiringWithin(ctx context.Context, now time.Time, days int) ([]*models.ExpiringSubscription, error)

	CountActive(ctx context.Context) (int, error)
	ActiveCountByPlan(ctx context.Context) (map[string]int, error)
}

// subscriptionRepositoryImpl реализация SubscriptionRepository
type subscriptionRepositoryImpl struct {
	db *sqlx.DB
}

// NewSubscriptionRepository создает новый репозиторий подписок
func NewSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &subscriptionRepositoryImpl{db: db}
}

// GetByID получает подписку по ID
func (r *subscriptionRepositoryImpl) GetByID(ctx context.Context, id int64) (*models.Subscription, error) {
	query := `
	SELECT * FROM subscriptions WHERE id = $1
	`

	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения подписки по ID %d: %w", id, err)
	}

	return &sub, nil
}

// Create создает новую подписку
func (r *subscriptionRepositoryImpl) Create(ctx context.Context, sub *models.Subscription) error {
	query := `
	INSERT INTO subscriptions (user_id, plan_id, start_date, end_date, is_active)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		sub.UserID,
		sub.PlanID,
		sub.StartDate,
		sub.EndDate,
		sub.IsActive,
	).Scan(&sub.ID)

	if err != nil {
		return fmt.Errorf("ошибка создания подписки: %w", err)
	}

	return nil
}

// GetActiveByUserAndChannel находит активную подписку пользователя на канал
func (r *subscriptionRepositoryImpl) GetActiveByUserAndChannel(ctx context.Context, userID int64, channelID int) (*models.Subscription, error) {
	query := `
	SELECT s.* FROM subscriptions s
	JOIN tariff_plans tp ON tp.id = s.plan_id
	WHERE s.user_id = $1 AND s.is_active = true AND tp.channel_id = $2
	`

	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, userID, channelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска активной подписки пользователя %d на канал %d: %w", userID, channelID, err)
	}

	return &sub, nil
}

// GetLatestByUserAndChannel находит последнюю подписку на канал независимо от статуса
func (r *subscriptionRepositoryImpl) GetLatestByUserAndChannel(ctx context.Context, userID int64, channelID int) (*models.Subscription, error) {
	query := `
	SELECT s.* FROM subscriptions s
	JOIN tariff_plans tp ON tp.id = s.plan_id
	WHERE s.user_id = $1 AND tp.channel_id = $2
	ORDER BY s.end_date DESC
	LIMIT 1
	`

	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, userID, channelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска подписки пользователя %d на канал %d: %w", userID, channelID, err)
	}

	return &sub, nil
}

// GetActiveByTelegramAndChat находит активную подписку по Telegram ID и chat_id канала
func (r *subscriptionRepositoryImpl) GetActiveByTelegramAndChat(ctx context.Context, telegramID, telegramChatID int64) (*models.Subscription, error) {
	query := `
	SELECT s.* FROM subscriptions s
	JOIN users u ON u.id = s.user_id
	JOIN tariff_plans tp ON tp.id = s.plan_id
	JOIN channels c ON c.id = tp.channel_id
	WHERE u.telegram_id = $1 AND c.telegram_chat_id = $2 AND s.is_active = true
	`

	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, telegramID, telegramChatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска подписки пользователя tg:%d на чат %d: %w", telegramID, telegramChatID, err)
	}

	return &sub, nil
}

// UpdateWindow обновляет окно действия подписки и активирует ее
func (r *subscriptionRepositoryImpl) UpdateWindow(ctx context.Context, id int64, startDate, endDate time.Time) (*models.Subscription, error) {
	query := `
	UPDATE subscriptions SET
		start_date = $1,
		end_date = $2,
		is_active = true
	WHERE id = $3
	RETURNING *
	`

	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, startDate, endDate, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления окна подписки %d: %w", id, err)
	}

	return &sub, nil
}

// Deactivate деактивирует подписку
func (r *subscriptionRepositoryImpl) Deactivate(ctx context.Context, id int64) error {
	query := `
	UPDATE subscriptions SET is_active = false WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ошибка деактивации подписки %d: %w", id, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeactivateOthers гасит все прочие подписки пользователя на канал.
// Поддерживает инвариант "не более одной активной подписки на (пользователь, канал)".
func (r *subscriptionRepositoryImpl) DeactivateOthers(ctx context.Context, userID int64, channelID int, keepID int64) error {
	query := `
	UPDATE subscriptions SET is_active = false
	WHERE user_id = $1 AND id <> $2 AND is_active = true
	  AND plan_id IN (SELECT id FROM tariff_plans WHERE channel_id = $3)
	`

	if _, err := r.db.ExecContext(ctx, query, userID, keepID, channelID); err != nil {
		return fmt.Errorf("ошибка деактивации прочих подписок пользователя %d на канал %d: %w", userID, channelID, err)
	}

	return nil
}

// SweepExpired массово деактивирует истекшие подписки.
// Повторный запуск безвреден: уже погашенные строки не попадают под условие.
func (r *subscriptionRepositoryImpl) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	query := `
	UPDATE subscriptions SET is_active = false
	WHERE is_active = true AND end_date < $1
	`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("ошибка деактивации истекших подписок: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

// GetExpiredActive получает истекшие, но еще активные подписки с данными для уведомления
func (r *subscriptionRepositoryImpl) GetExpiredActive(ctx context.Context, now time.Time) ([]*models.ExpiringSubscription, error) {
	query := `
	SELECT s.*, tp.name AS plan_name, u.telegram_id, c.telegram_chat_id
	FROM subscriptions s
	JOIN tariff_plans tp ON tp.id = s.plan_id
	JOIN users u ON u.id = s.user_id
	JOIN channels c ON c.id = tp.channel_id
	WHERE s.is_active = true AND s.end_date < $1
	`

	var subs []*models.ExpiringSubscription
	if err := r.db.SelectContext(ctx, &subs, query, now); err != nil {
		return nil, fmt.Errorf("ошибка получения истекших подписок: %w", err)
	}

	return subs, nil
}

// FindExpiringWithin получает подписки, истекающие в интервале (now, now+days].
// Используется только для уведомлений, ничего не меняет.
func (r *subscriptionRepositoryImpl) FindExpiringWithin(ctx context.Context, now time.Time, days int) ([]*models.ExpiringSubscription, error) {
	deadline := now.AddDate(0, 0, days)

	query := `
	SELECT s.*, tp.name AS plan_name, u.telegram_id, c.telegram_chat_id
	FROM subscriptions s
	JOIN tariff_plans tp ON tp.id = s.plan_id
	JOIN users u ON u.id = s.user_id
	JOIN channels c ON c.id = tp.channel_id
	WHERE s.is_active = true AND s.end_date > $1 AND s.end_date <= $2
	`

	var subs []*models.ExpiringSubscription
	if err := r.db.SelectContext(ctx, &subs, query, now, deadline); err != nil {
		return nil, fmt.Errorf("ошибка получения истекающих подписок: %w", err)
	}

	return subs, nil
}

// CountActive подсчитывает активные подписки
func (r *subscriptionRepositoryImpl) CountActive(ctx context.Context) (int, error) {
	query := `
	SELECT COUNT(*) FROM subscriptions WHERE is_active = true
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("ошибка подсчета активных подписок: %w", err)
	}

	return count, nil
}

// ActiveCountByPlan собирает статистику активных подписок по тарифам
func (r *subscriptionRepositoryImpl) ActiveCountByPlan(ctx context.Context) (map[string]int, error) {
	type statRow struct {
		PlanName string `db:"plan_name"`
		Count    int    `db:"count"`
	}

	query := `
	SELECT tp.name AS plan_name, COUNT(*) AS count
	FROM subscriptions s
	JOIN tariff_plans tp ON tp.id = s.plan_id
	WHERE s.is_active = true
	GROUP BY tp.name
	`

	var rows []statRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("ошибка получения статистики по тарифам: %w", err)
	}

	stats := make(map[string]int, len(rows))
	for _, row := range rows {
		stats[row.PlanName] = row.Count
	}

	return stats, nil
}
