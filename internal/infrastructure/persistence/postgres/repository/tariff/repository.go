// internal/infrastructure/persistence/postgres/repository/tariff/repository.go
package tariff

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// TariffRepository интерфейс репозитория тарифных планов
type TariffRepository interface {
	GetByID(ctx context.Context, id int) (*models.TariffPlan, error)
	GetByCode(ctx context.Context, code string) (*models.TariffPlan, error)
	GetActive(ctx context.Context) ([]*models.TariffPlan, error)
	GetActiveByChannel(ctx context.Context, channelID int) ([]*models.TariffPlan, error)
	Create(ctx context.Context, plan *models.TariffPlan) error
	SetBasePrice(ctx context.Context, id int, price decimal.Decimal) error
	ToggleActive(ctx context.Context, id int) (*models.TariffPlan, error)

	// Цены в отдельных валютах
	GetPrice(ctx context.Context, tariffID, currencyID int) (*models.TariffPrice, error)
	SetPrice(ctx context.Context, tariffID, currencyID int, price decimal.Decimal) (*models.TariffPrice, error)
}

// tariffRepositoryImpl реализация TariffRepository
type tariffRepositoryImpl struct {
	db *sqlx.DB
}

// NewTariffRepository создает новый репозиторий тарифов
func NewTariffRepository(db *sqlx.DB) TariffRepository {
	return &tariffRepositoryImpl{db: db}
}

// GetByID получает тариф по ID
func (r *tariffRepositoryImpl) GetByID(ctx context.Context, id int) (*models.TariffPlan, error) {
	query := `
	SELECT * FROM tariff_plans WHERE id = $1
	`

	var plan models.TariffPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения тарифа по ID %d: %w", id, err)
	}

	return &plan, nil
}

// GetByCode получает тариф по коду
func (r *tariffRepositoryImpl) GetByCode(ctx context.Context, code string) (*models.TariffPlan, error) {
	query := `
	SELECT * FROM tariff_plans WHERE code = $1
	`

	var plan models.TariffPlan
	if err := r.db.GetContext(ctx, &plan, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения тарифа по коду %s: %w", code, err)
	}

	return &plan, nil
}

// GetActive получает все активные тарифы в порядке отображения
func (r *tariffRepositoryImpl) GetActive(ctx context.Context) ([]*models.TariffPlan, error) {
	query := `
	SELECT * FROM tariff_plans
	WHERE is_active = true
	ORDER BY display_order, id
	`

	var plans []*models.TariffPlan
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("ошибка получения активных тарифов: %w", err)
	}

	return plans, nil
}

// GetActiveByChannel получает активные тарифы, привязанные к каналу
func (r *tariffRepositoryImpl) GetActiveByChannel(ctx context.Context, channelID int) ([]*models.TariffPlan, error) {
	query := `
	SELECT * FROM tariff_plans
	WHERE is_active = true AND channel_id = $1
	ORDER BY display_order, id
	`

	var plans []*models.TariffPlan
	if err := r.db.SelectContext(ctx, &plans, query, channelID); err != nil {
		return nil, fmt.Errorf("ошибка получения тарифов канала %d: %w", channelID, err)
	}

	return plans, nil
}

// Create создает новый тариф
func (r *tariffRepositoryImpl) Create(ctx context.Context, plan *models.TariffPlan) error {
	query := `
	INSERT INTO tariff_plans (name, code, base_price, duration_days, channel_id, is_active, display_order)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		plan.Name,
		plan.Code,
		plan.BasePrice,
		plan.DurationDays,
		plan.ChannelID,
		plan.IsActive,
		plan.DisplayOrder,
	).Scan(&plan.ID, &plan.CreatedAt)

	if err != nil {
		return fmt.Errorf("ошибка создания тарифа %s: %w", plan.Code, err)
	}

	return nil
}

// SetBasePrice обновляет базовую цену тарифа.
// Единственное изменяемое поле тарифа помимо флага активности.
func (r *tariffRepositoryImpl) SetBasePrice(ctx context.Context, id int, price decimal.Decimal) error {
	query := `
	UPDATE tariff_plans SET base_price = $1 WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, price, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления цены тарифа %d: %w", id, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ToggleActive переключает активность тарифа
func (r *tariffRepositoryImpl) ToggleActive(ctx context.Context, id int) (*models.TariffPlan, error) {
	query := `
	UPDATE tariff_plans SET is_active = NOT is_active
	WHERE id = $1
	RETURNING *
	`

	var plan models.TariffPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка переключения активности тарифа %d: %w", id, err)
	}

	return &plan, nil
}

// GetPrice получает цену тарифа в указанной валюте
func (r *tariffRepositoryImpl) GetPrice(ctx context.Context, tariffID, currencyID int) (*models.TariffPrice, error) {
	query := `
	SELECT * FROM tariff_prices
	WHERE tariff_id = $1 AND currency_id = $2 AND is_active = true
	`

	var price models.TariffPrice
	if err := r.db.GetContext(ctx, &price, query, tariffID, currencyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения цены тарифа %d в валюте %d: %w", tariffID, currencyID, err)
	}

	return &price, nil
}

// SetPrice устанавливает цену тарифа в валюте, создавая или обновляя запись
func (r *tariffRepositoryImpl) SetPrice(ctx context.Context, tariffID, currencyID int, price decimal.Decimal) (*models.TariffPrice, error) {
	query := `
	INSERT INTO tariff_prices (tariff_id, currency_id, price, is_active)
	VALUES ($1, $2, $3, true)
	ON CONFLICT (tariff_id, currency_id) DO UPDATE SET
		price = EXCLUDED.price,
		is_active = true
	RETURNING *
	`

	var tp models.TariffPrice
	if err := r.db.GetContext(ctx, &tp, query, tariffID, currencyID, price); err != nil {
		return nil, fmt.Errorf("ошибка установки цены тарифа %d в валюте %d: %w", tariffID, currencyID, err)
	}

	return &tp, nil
}
