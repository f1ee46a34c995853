// internal/infrastructure/persistence/postgres/repository/payment_method/repository.go
package payment_method

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

// PaymentMethodRepository интерфейс репозитория способов оплаты
type PaymentMethodRepository interface {
	GetByID(ctx context.Context, id int) (*models.PaymentMethod, error)
	GetByCode(ctx context.Context, code string) (*models.PaymentMethod, error)
	GetActiveMethods(ctx context.Context) ([]*models.PaymentMethod, error)
	GetDefaultCurrency(ctx context.Context, methodID int) (*models.Currency, error)
	GetSupportedCurrencies(ctx context.Context, methodID int) ([]*models.Currency, error)
	ToggleActive(ctx context.Context, id int) (*models.PaymentMethod, error)
	SeedDefaults(ctx context.Context) error
}

// paymentMethodRepositoryImpl реализация PaymentMethodRepository
type paymentMethodRepositoryImpl struct {
	db *sqlx.DB
}

// NewPaymentMethodRepository создает новый репозиторий способов оплаты
func NewPaymentMethodRepository(db *sqlx.DB) PaymentMethodRepository {
	return &paymentMethodRepositoryImpl{db: db}
}

// GetByID получает способ оплаты по ID
func (r *paymentMethodRepositoryImpl) GetByID(ctx context.Context, id int) (*models.PaymentMethod, error) {
	query := `
	SELECT * FROM payment_methods WHERE id = $1
	`

	var method models.PaymentMethod
	if err := r.db.GetContext(ctx, &method, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения способа оплаты по ID %d: %w", id, err)
	}

	return &method, nil
}

// GetByCode получает способ оплаты по коду
func (r *paymentMethodRepositoryImpl) GetByCode(ctx context.Context, code string) (*models.PaymentMethod, error) {
	query := `
	SELECT * FROM payment_methods WHERE code = $1
	`

	var method models.PaymentMethod
	if err := r.db.GetContext(ctx, &method, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения способа оплаты по коду %s: %w", code, err)
	}

	return &method, nil
}

// GetActiveMethods получает все активные способы оплаты в порядке отображения
func (r *paymentMethodRepositoryImpl) GetActiveMethods(ctx context.Context) ([]*models.PaymentMethod, error) {
	query := `
	SELECT * FROM payment_methods
	WHERE is_active = true
	ORDER BY display_order, id
	`

	var methods []*models.PaymentMethod
	if err := r.db.SelectContext(ctx, &methods, query); err != nil {
		return nil, fmt.Errorf("ошибка получения активных способов оплаты: %w", err)
	}

	return methods, nil
}

// GetDefaultCurrency получает валюту по умолчанию для способа оплаты
func (r *paymentMethodRepositoryImpl) GetDefaultCurrency(ctx context.Context, methodID int) (*models.Currency, error) {
	query := `
	SELECT c.* FROM currencies c
	JOIN payment_methods pm ON pm.default_currency_id = c.id
	WHERE pm.id = $1
	`

	var cur models.Currency
	if err := r.db.GetContext(ctx, &cur, query, methodID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения валюты по умолчанию для способа %d: %w", methodID, err)
	}

	return &cur, nil
}

// GetSupportedCurrencies получает поддерживаемые валюты способа оплаты,
// валюта по умолчанию возвращается первой
func (r *paymentMethodRepositoryImpl) GetSupportedCurrencies(ctx context.Context, methodID int) ([]*models.Currency, error) {
	query := `
	SELECT c.* FROM currencies c
	JOIN payment_method_currencies pmc ON pmc.currency_id = c.id
	WHERE pmc.payment_method_id = $1 AND c.is_active = true
	ORDER BY pmc.is_default DESC, c.code
	`

	var currencies []*models.Currency
	if err := r.db.SelectContext(ctx, &currencies, query, methodID); err != nil {
		return nil, fmt.Errorf("ошибка получения валют способа оплаты %d: %w", methodID, err)
	}

	return currencies, nil
}

// seedMethod описывает способ оплаты для начального заполнения
type seedMethod struct {
	code            string
	name            string
	defaultCurrency string
	supported       []string
	priceModifier   decimal.Decimal
	displayOrder    int
}

// SeedDefaults инициализирует стандартный набор способов оплаты
// и их поддерживаемые валюты. Существующие записи не трогаются.
func (r *paymentMethodRepositoryImpl) SeedDefaults(ctx context.Context) error {
	defaults := []seedMethod{
		{models.MethodManual, "Ручная оплата", models.CurrencyRUB, []string{models.CurrencyRUB}, decimal.Zero, 1},
		{models.MethodYooKassa, "ЮKassa", models.CurrencyRUB, []string{models.CurrencyRUB}, decimal.NewFromFloat(2.8), 2},
		{models.MethodTinkoff, "Tinkoff", models.CurrencyRUB, []string{models.CurrencyRUB}, decimal.NewFromFloat(2.5), 3},
		{models.MethodCryptoBot, "CryptoBot", models.CurrencyTON, []string{models.CurrencyTON, models.CurrencyUSDT}, decimal.NewFromFloat(1.0), 4},
		{models.MethodStars, "Telegram Stars", models.CurrencyStars, []string{models.CurrencyStars}, decimal.Zero, 5},
	}

	methodQuery := `
	INSERT INTO payment_methods (code, name, default_currency_id, price_modifier, fixed_fee, is_active, display_order)
	SELECT $1, $2, c.id, $3, 0, true, $4
	FROM currencies c
	WHERE c.code = $5
	ON CONFLICT (code) DO NOTHING
	`

	currencyQuery := `
	INSERT INTO payment_method_currencies (payment_method_id, currency_id, is_default)
	SELECT pm.id, c.id, $3
	FROM payment_methods pm
	JOIN currencies c ON c.code = $2
	WHERE pm.code = $1
	ON CONFLICT (payment_method_id, currency_id) DO NOTHING
	`

	for _, m := range defaults {
		if _, err := r.db.ExecContext(ctx, methodQuery,
			m.code, m.name, m.priceModifier, m.displayOrder, m.defaultCurrency); err != nil {
			return fmt.Errorf("ошибка создания способа оплаты %s: %w", m.code, err)
		}

		for _, cur := range m.supported {
			isDefault := cur == m.defaultCurrency
			if _, err := r.db.ExecContext(ctx, currencyQuery, m.code, cur, isDefault); err != nil {
				return fmt.Errorf("ошибка привязки валюты %s к способу %s: %w", cur, m.code, err)
			}
		}
	}

	return nil
}

// ToggleActive переключает активность способа оплаты
func (r *paymentMethodRepositoryImpl) ToggleActive(ctx context.Context, id int) (*models.PaymentMethod, error) {
	query := `
	UPDATE payment_methods SET is_active = NOT is_active
	WHERE id = $1
	RETURNING *
	`

	var method models.PaymentMethod
	if err := r.db.GetContext(ctx, &method, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка переключения активности способа оплаты %d: %w", id, err)
	}

	return &method, nil
}
