// internal/infrastructure/persistence/postgres/repository/currency/repository.go
package currency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"

	"github.com/jmoiron/sqlx"
)

// CurrencyRepository интерфейс репозитория валют
type CurrencyRepository interface {
	GetByID(ctx context.Context, id int) (*models.Currency, error)
	GetByCode(ctx context.Context, code string) (*models.Currency, error)
	GetAllActive(ctx context.Context) ([]*models.Currency, error)
	Ensure(ctx context.Context, currency *models.Currency) (*models.Currency, error)
	SeedDefaults(ctx context.Context) error
}

// currencyRepositoryImpl реализация CurrencyRepository
type currencyRepositoryImpl struct {
	db *sqlx.DB
}

// NewCurrencyRepository создает новый репозиторий валют
func NewCurrencyRepository(db *sqlx.DB) CurrencyRepository {
	return &currencyRepositoryImpl{db: db}
}

// GetByID получает валюту по ID
func (r *currencyRepositoryImpl) GetByID(ctx context.Context, id int) (*models.Currency, error) {
	query := `
	SELECT * FROM currencies WHERE id = $1
	`

	var cur models.Currency
	if err := r.db.GetContext(ctx, &cur, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения валюты по ID %d: %w", id, err)
	}

	return &cur, nil
}

// GetByCode получает валюту по коду (RUB, USD, STARS...)
func (r *currencyRepositoryImpl) GetByCode(ctx context.Context, code string) (*models.Currency, error) {
	query := `
	SELECT * FROM currencies WHERE code = $1
	`

	var cur models.Currency
	if err := r.db.GetContext(ctx, &cur, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения валюты по коду %s: %w", code, err)
	}

	return &cur, nil
}

// GetAllActive получает все активные валюты
func (r *currencyRepositoryImpl) GetAllActive(ctx context.Context) ([]*models.Currency, error) {
	query := `
	SELECT * FROM currencies
	WHERE is_active = true
	ORDER BY code
	`

	var currencies []*models.Currency
	if err := r.db.SelectContext(ctx, &currencies, query); err != nil {
		return nil, fmt.Errorf("ошибка получения активных валют: %w", err)
	}

	return currencies, nil
}

// Ensure создает валюту, если ее еще нет
func (r *currencyRepositoryImpl) Ensure(ctx context.Context, currency *models.Currency) (*models.Currency, error) {
	query := `
	INSERT INTO currencies (code, name, symbol, is_active, requires_manual_confirmation)
	VALUES ($1, $2, $3, true, $4)
	ON CONFLICT (code) DO UPDATE SET code = EXCLUDED.code
	RETURNING *
	`

	var cur models.Currency
	err := r.db.GetContext(ctx, &cur, query,
		currency.Code,
		currency.Name,
		currency.Symbol,
		currency.RequiresManualConfirmation,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания валюты %s: %w", currency.Code, err)
	}

	return &cur, nil
}

// SeedDefaults инициализирует стандартный набор валют
func (r *currencyRepositoryImpl) SeedDefaults(ctx context.Context) error {
	defaults := []models.Currency{
		{Code: models.CurrencyRUB, Name: "Российский рубль", Symbol: "₽", RequiresManualConfirmation: true},
		{Code: models.CurrencyUSD, Name: "Доллар США", Symbol: "$", RequiresManualConfirmation: true},
		{Code: models.CurrencyStars, Name: "Telegram Stars", Symbol: "⭐", RequiresManualConfirmation: false},
		{Code: models.CurrencyBTC, Name: "Bitcoin", Symbol: "₿", RequiresManualConfirmation: false},
		{Code: models.CurrencyTON, Name: "Toncoin", Symbol: "💎", RequiresManualConfirmation: false},
		{Code: models.CurrencyUSDT, Name: "Tether", Symbol: "₮", RequiresManualConfirmation: false},
	}

	for i := range defaults {
		if _, err := r.Ensure(ctx, &defaults[i]); err != nil {
			return err
		}
	}

	return nil
}
