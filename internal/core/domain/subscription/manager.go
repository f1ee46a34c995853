// internal/core/domain/subscription/manager.go
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"
	channel_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/channel"
	sub_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/subscription"
	tariff_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/tariff"
	users_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/users"
	"channel-subscription-bot/pkg/logger"
)

// AccessCache сбрасывает кэш доступа при изменении подписки
type AccessCache interface {
	DeleteAccess(ctx context.Context, telegramID, chatID int64) error
}

// Manager управляет жизненным циклом подписок.
// Все даты считаются границами дней: подписка начинается в 00:00:00
// и заканчивается в 23:59:59 последнего оплаченного дня.
type Manager struct {
	subRepo     sub_repo.SubscriptionRepository
	tariffRepo  tariff_repo.TariffRepository
	userRepo    users_repo.UserRepository
	channelRepo channel_repo.ChannelRepository
	cache       AccessCache // может быть nil
	logger      *logger.Logger

	// now подменяется в тестах
	now func() time.Time
}

// NewManager создает менеджер подписок
func NewManager(
	subRepo sub_repo.SubscriptionRepository,
	tariffRepo tariff_repo.TariffRepository,
	userRepo users_repo.UserRepository,
	channelRepo channel_repo.ChannelRepository,
	cache AccessCache,
	log *logger.Logger,
) *Manager {
	return &Manager{
		subRepo:     subRepo,
		tariffRepo:  tariffRepo,
		userRepo:    userRepo,
		channelRepo: channelRepo,
		cache:       cache,
		logger:      log,
		now:         time.Now,
	}
}

// Activate выдает пользователю подписку по тарифу после подтвержденной оплаты.
//
// Если последняя подписка на канал еще не кончилась (end_date в будущем),
// новый срок прибавляется к ее end_date - оплаченное время не сгорает.
// Если подписка истекла или ее не было, окно отсчитывается от текущего дня.
// После активации гасятся все прочие подписки пользователя на этот канал.
func (m *Manager) Activate(ctx context.Context, userID int64, planID int) (*models.Subscription, error) {
	plan, err := m.tariffRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения тарифа %d: %w", planID, err)
	}

	now := m.now()

	latest, err := m.subRepo.GetLatestByUserAndChannel(ctx, userID, plan.ChannelID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("ошибка поиска подписки пользователя %d: %w", userID, err)
	}

	var sub *models.Subscription

	switch {
	case latest != nil && latest.EndDate.After(now):
		// Продление: срок прибавляется к текущему концу.
		// Неактивная запись с будущим end_date тоже продлевается и реактивируется.
		newEnd := latest.EndDate.AddDate(0, 0, plan.DurationDays)
		sub, err = m.subRepo.UpdateWindow(ctx, latest.ID, latest.StartDate, newEnd)
		if err != nil {
			return nil, fmt.Errorf("ошибка продления подписки %d: %w", latest.ID, err)
		}
		m.logger.Info("🔄 Подписка #%d продлена до %s (тариф %s)", sub.ID, newEnd.Format("2006-01-02"), plan.Code)

	case latest != nil:
		// Истекшая подписка: окно отсчитывается заново от сегодняшнего дня
		start, end := window(now, plan.DurationDays)
		sub, err = m.subRepo.UpdateWindow(ctx, latest.ID, start, end)
		if err != nil {
			return nil, fmt.Errorf("ошибка возобновления подписки %d: %w", latest.ID, err)
		}
		m.logger.Info("🔄 Подписка #%d возобновлена до %s (тариф %s)", sub.ID, end.Format("2006-01-02"), plan.Code)

	default:
		start, end := window(now, plan.DurationDays)
		sub = &models.Subscription{
			UserID:    userID,
			PlanID:    planID,
			StartDate: start,
			EndDate:   end,
			IsActive:  true,
		}
		if err := m.subRepo.Create(ctx, sub); err != nil {
			return nil, fmt.Errorf("ошибка создания подписки: %w", err)
		}
		m.logger.Info("🆕 Подписка #%d создана до %s (тариф %s)", sub.ID, end.Format("2006-01-02"), plan.Code)
	}

	// Не более одной активной подписки на пару (пользователь, канал)
	if err := m.subRepo.DeactivateOthers(ctx, userID, plan.ChannelID, sub.ID); err != nil {
		return nil, err
	}

	m.invalidateAccess(ctx, userID, plan.ChannelID)

	return sub, nil
}

// window считает окно подписки: начало текущего дня, конец последнего оплаченного дня
func window(now time.Time, durationDays int) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	last := start.AddDate(0, 0, durationDays)
	end := time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 0, now.Location())
	return start, end
}

// Deactivate досрочно гасит подписку
func (m *Manager) Deactivate(ctx context.Context, id int64) error {
	sub, err := m.subRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := m.subRepo.Deactivate(ctx, id); err != nil {
		return err
	}

	plan, err := m.tariffRepo.GetByID(ctx, sub.PlanID)
	if err == nil {
		m.invalidateAccess(ctx, sub.UserID, plan.ChannelID)
	}

	m.logger.Info("🚫 Подписка #%d деактивирована", id)
	return nil
}

// SweepExpired массово гасит истекшие подписки. Повторный запуск безвреден.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	count, err := m.subRepo.SweepExpired(ctx, m.now())
	if err != nil {
		return 0, err
	}

	if count > 0 {
		m.logger.Info("🧹 Деактивировано истекших подписок: %d", count)
	}

	return count, nil
}

// ExpiredActive возвращает истекшие, но еще активные подписки.
// Планировщик по этому списку отзывает доступ перед деактивацией.
func (m *Manager) ExpiredActive(ctx context.Context) ([]*models.ExpiringSubscription, error) {
	return m.subRepo.GetExpiredActive(ctx, m.now())
}

// FindExpiringWithin возвращает подписки, истекающие в ближайшие days дней
func (m *Manager) FindExpiringWithin(ctx context.Context, days int) ([]*models.ExpiringSubscription, error) {
	return m.subRepo.FindExpiringWithin(ctx, m.now(), days)
}

// ActiveForUserAndChannel возвращает активную подписку пользователя на канал
func (m *Manager) ActiveForUserAndChannel(ctx context.Context, userID int64, channelID int) (*models.Subscription, error) {
	return m.subRepo.GetActiveByUserAndChannel(ctx, userID, channelID)
}

// Stats собирает статистику подписок для админки
func (m *Manager) Stats(ctx context.Context) (int, map[string]int, error) {
	total, err := m.subRepo.CountActive(ctx)
	if err != nil {
		return 0, nil, err
	}

	byPlan, err := m.subRepo.ActiveCountByPlan(ctx)
	if err != nil {
		return 0, nil, err
	}

	return total, byPlan, nil
}

// invalidateAccess сбрасывает кэш доступа. Ошибки кэша не прерывают операцию.
func (m *Manager) invalidateAccess(ctx context.Context, userID int64, channelID int) {
	if m.cache == nil {
		return
	}

	user, err := m.userRepo.GetByID(ctx, userID)
	if err != nil {
		m.logger.Warn("⚠️ Не удалось получить пользователя %d для сброса кэша: %v", userID, err)
		return
	}

	ch, err := m.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		m.logger.Warn("⚠️ Не удалось получить канал %d для сброса кэша: %v", channelID, err)
		return
	}

	if err := m.cache.DeleteAccess(ctx, user.TelegramID, ch.TelegramChatID); err != nil {
		m.logger.Warn("⚠️ Не удалось сбросить кэш доступа tg:%d chat:%d: %v", user.TelegramID, ch.TelegramChatID, err)
	}
}
