// internal/core/domain/pricing/service.go
package pricing

import (
	"context"
	"errors"
	"fmt"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"
	currency_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/currency"
	method_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/payment_method"
	tariff_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/tariff"
	"channel-subscription-bot/pkg/logger"

	"github.com/shopspring/decimal"
)

// ErrConfiguration ошибка конфигурации способа оплаты или валюты.
// Отличается от обычной ошибки хранилища: чинится администратором, а не повтором.
var ErrConfiguration = errors.New("некорректная конфигурация способа оплаты")

// Статические курсы пересчета базовой цены (в рублях) в валюту платежа.
// Используются только при начальном заполнении tariff_prices,
// дальше цены правятся администратором напрямую.
var seedRates = map[string]decimal.Decimal{
	models.CurrencyRUB:   decimal.NewFromFloat(1.0),
	models.CurrencyUSD:   decimal.NewFromFloat(0.011),
	models.CurrencyStars: decimal.NewFromFloat(10.0),
	models.CurrencyBTC:   decimal.NewFromFloat(0.00000004),
	models.CurrencyTON:   decimal.NewFromFloat(0.004),
	models.CurrencyUSDT:  decimal.NewFromFloat(0.011),
}

// Quote рассчитанная цена тарифа для конкретного способа оплаты
type Quote struct {
	Plan     *models.TariffPlan
	Method   *models.PaymentMethod
	Currency *models.Currency

	// Итоговая сумма к оплате в валюте платежа, округленная до точности валюты
	Amount decimal.Decimal
}

// Service сервис расчета цен
type Service struct {
	tariffRepo   tariff_repo.TariffRepository
	methodRepo   method_repo.PaymentMethodRepository
	currencyRepo currency_repo.CurrencyRepository
	logger       *logger.Logger
}

// NewService создает новый сервис расчета цен
func NewService(
	tariffRepo tariff_repo.TariffRepository,
	methodRepo method_repo.PaymentMethodRepository,
	currencyRepo currency_repo.CurrencyRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		tariffRepo:   tariffRepo,
		methodRepo:   methodRepo,
		currencyRepo: currencyRepo,
		logger:       log,
	}
}

// Quote рассчитывает итоговую цену тарифа для способа оплаты.
// Базовая цена берется из tariff_prices в валюте способа; если записи нет,
// базовая цена тарифа пересчитывается по статическому курсу.
func (s *Service) Quote(ctx context.Context, planID, methodID int) (*Quote, error) {
	plan, err := s.tariffRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения тарифа %d: %w", planID, err)
	}

	method, err := s.methodRepo.GetByID(ctx, methodID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения способа оплаты %d: %w", methodID, err)
	}
	if !method.IsActive {
		return nil, fmt.Errorf("%w: способ оплаты %s отключен", ErrConfiguration, method.Code)
	}

	cur, err := s.ResolveDefaultCurrency(ctx, method)
	if err != nil {
		return nil, err
	}

	base, err := s.basePriceIn(ctx, plan, cur)
	if err != nil {
		return nil, err
	}

	amount := ComputeFinalPrice(base, method, cur)

	return &Quote{
		Plan:     plan,
		Method:   method,
		Currency: cur,
		Amount:   amount,
	}, nil
}

// ResolveDefaultCurrency находит валюту по умолчанию для способа оплаты.
// Способ без валюты по умолчанию - ошибка конфигурации, а не исключение хранилища.
func (s *Service) ResolveDefaultCurrency(ctx context.Context, method *models.PaymentMethod) (*models.Currency, error) {
	if method.DefaultCurrencyID == nil {
		return nil, fmt.Errorf("%w: у способа %s не задана валюта по умолчанию", ErrConfiguration, method.Code)
	}

	cur, err := s.methodRepo.GetDefaultCurrency(ctx, method.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: валюта %d способа %s не найдена", ErrConfiguration, *method.DefaultCurrencyID, method.Code)
		}
		return nil, fmt.Errorf("ошибка получения валюты способа %s: %w", method.Code, err)
	}
	if !cur.IsActive {
		return nil, fmt.Errorf("%w: валюта %s отключена", ErrConfiguration, cur.Code)
	}

	return cur, nil
}

// basePriceIn возвращает базовую цену тарифа в указанной валюте
func (s *Service) basePriceIn(ctx context.Context, plan *models.TariffPlan, cur *models.Currency) (decimal.Decimal, error) {
	tp, err := s.tariffRepo.GetPrice(ctx, plan.ID, cur.ID)
	if err == nil {
		return tp.Price, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("ошибка получения цены тарифа %d: %w", plan.ID, err)
	}

	rate, ok := seedRates[cur.Code]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: нет ни цены, ни курса для валюты %s", ErrConfiguration, cur.Code)
	}

	return plan.BasePrice.Mul(rate), nil
}

// ComputeFinalPrice применяет наценку и комиссию способа оплаты к базовой цене.
// Итог округляется до точности валюты: final = base * (1 + modifier/100) + fee.
func ComputeFinalPrice(base decimal.Decimal, method *models.PaymentMethod, cur *models.Currency) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	multiplier := hundred.Add(method.PriceModifier).Div(hundred)

	final := base.Mul(multiplier).Add(method.FixedFee)
	return final.Round(cur.Decimals())
}

// SeedTariffPrices заполняет tariff_prices для всех активных тарифов и валют,
// пересчитывая базовую цену по статическим курсам. Существующие цены не трогаются.
func (s *Service) SeedTariffPrices(ctx context.Context) error {
	plans, err := s.tariffRepo.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения тарифов для заполнения цен: %w", err)
	}

	currencies, err := s.currencyRepo.GetAllActive(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения валют для заполнения цен: %w", err)
	}

	for _, plan := range plans {
		for _, cur := range currencies {
			if _, err := s.tariffRepo.GetPrice(ctx, plan.ID, cur.ID); err == nil {
				continue
			} else if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("ошибка проверки цены тарифа %d: %w", plan.ID, err)
			}

			rate, ok := seedRates[cur.Code]
			if !ok {
				s.logger.Warn("⚠️ Нет курса для валюты %s, цена тарифа %s не заполнена", cur.Code, plan.Code)
				continue
			}

			price := plan.BasePrice.Mul(rate).Round(cur.Decimals())
			if _, err := s.tariffRepo.SetPrice(ctx, plan.ID, cur.ID, price); err != nil {
				return fmt.Errorf("ошибка заполнения цены тарифа %s в %s: %w", plan.Code, cur.Code, err)
			}

			s.logger.Debug("Цена тарифа %s в %s: %s", plan.Code, cur.Code, price.String())
		}
	}

	s.logger.Info("✅ Цены тарифов заполнены: %d тарифов x %d валют", len(plans), len(currencies))
	return nil
}
