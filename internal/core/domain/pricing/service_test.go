package pricing

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"
	"channel-subscription-bot/pkg/logger"

	"github.com/shopspring/decimal"
)

type memTariffRepo struct {
	plans  map[int]*models.TariffPlan
	prices map[[2]int]*models.TariffPrice
}

func newMemTariffRepo() *memTariffRepo {
	return &memTariffRepo{
		plans:  map[int]*models.TariffPlan{},
		prices: map[[2]int]*models.TariffPrice{},
	}
}

func (m *memTariffRepo) GetByID(_ context.Context, id int) (*models.TariffPlan, error) {
	if p, ok := m.plans[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memTariffRepo) GetByCode(_ context.Context, code string) (*models.TariffPlan, error) {
	for _, p := range m.plans {
		if p.Code == code {
			c := *p
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memTariffRepo) GetActive(_ context.Context) ([]*models.TariffPlan, error) {
	var out []*models.TariffPlan
	for _, p := range m.plans {
		if p.IsActive {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memTariffRepo) GetActiveByChannel(_ context.Context, channelID int) ([]*models.TariffPlan, error) {
	var out []*models.TariffPlan
	for _, p := range m.plans {
		if p.IsActive && p.ChannelID == channelID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memTariffRepo) Create(_ context.Context, plan *models.TariffPlan) error {
	plan.ID = len(m.plans) + 1
	c := *plan
	m.plans[plan.ID] = &c
	return nil
}

func (m *memTariffRepo) SetBasePrice(_ context.Context, id int, price decimal.Decimal) error {
	p, ok := m.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.BasePrice = price
	return nil
}

func (m *memTariffRepo) ToggleActive(_ context.Context, id int) (*models.TariffPlan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.IsActive = !p.IsActive
	c := *p
	return &c, nil
}

func (m *memTariffRepo) GetPrice(_ context.Context, tariffID, currencyID int) (*models.TariffPrice, error) {
	if tp, ok := m.prices[[2]int{tariffID, currencyID}]; ok {
		c := *tp
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memTariffRepo) SetPrice(_ context.Context, tariffID, currencyID int, price decimal.Decimal) (*models.TariffPrice, error) {
	tp := &models.TariffPrice{
		ID:         len(m.prices) + 1,
		TariffID:   tariffID,
		CurrencyID: currencyID,
		Price:      price,
		IsActive:   true,
	}
	m.prices[[2]int{tariffID, currencyID}] = tp
	c := *tp
	return &c, nil
}

type memMethodRepo struct {
	methods    map[int]*models.PaymentMethod
	currencies *memCurrencyRepo
}

func (m *memMethodRepo) GetByID(_ context.Context, id int) (*models.PaymentMethod, error) {
	if pm, ok := m.methods[id]; ok {
		c := *pm
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memMethodRepo) GetByCode(_ context.Context, code string) (*models.PaymentMethod, error) {
	for _, pm := range m.methods {
		if pm.Code == code {
			c := *pm
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memMethodRepo) GetActiveMethods(_ context.Context) ([]*models.PaymentMethod, error) {
	var out []*models.PaymentMethod
	for _, pm := range m.methods {
		if pm.IsActive {
			c := *pm
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memMethodRepo) GetDefaultCurrency(ctx context.Context, methodID int) (*models.Currency, error) {
	pm, ok := m.methods[methodID]
	if !ok || pm.DefaultCurrencyID == nil {
		return nil, repository.ErrNotFound
	}
	return m.currencies.GetByID(ctx, *pm.DefaultCurrencyID)
}

func (m *memMethodRepo) GetSupportedCurrencies(ctx context.Context, methodID int) ([]*models.Currency, error) {
	cur, err := m.GetDefaultCurrency(ctx, methodID)
	if err != nil {
		return nil, nil
	}
	return []*models.Currency{cur}, nil
}

func (m *memMethodRepo) ToggleActive(_ context.Context, _ int) (*models.PaymentMethod, error) {
	return nil, repository.ErrNotFound
}

func (m *memMethodRepo) SeedDefaults(_ context.Context) error {
	return nil
}

type memCurrencyRepo struct {
	currencies map[int]*models.Currency
}

func (m *memCurrencyRepo) GetByID(_ context.Context, id int) (*models.Currency, error) {
	if c, ok := m.currencies[id]; ok {
		cc := *c
		return &cc, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memCurrencyRepo) GetByCode(_ context.Context, code string) (*models.Currency, error) {
	for _, c := range m.currencies {
		if c.Code == code {
			cc := *c
			return &cc, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCurrencyRepo) GetAllActive(_ context.Context) ([]*models.Currency, error) {
	var out []*models.Currency
	for _, c := range m.currencies {
		if c.IsActive {
			cc := *c
			out = append(out, &cc)
		}
	}
	return out, nil
}

func (m *memCurrencyRepo) Ensure(_ context.Context, cur *models.Currency) (*models.Currency, error) {
	cc := *cur
	cc.ID = len(m.currencies) + 1
	m.currencies[cc.ID] = &cc
	return &cc, nil
}

func (m *memCurrencyRepo) SeedDefaults(_ context.Context) error {
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(filepath.Join(t.TempDir(), "test.log"), "ERROR", false)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Cleanup(log.Close)
	return log
}

func intPtr(v int) *int { return &v }

func newTestService(t *testing.T) (*Service, *memTariffRepo, *memMethodRepo, *memCurrencyRepo) {
	tariffs := newMemTariffRepo()
	currencies := &memCurrencyRepo{currencies: map[int]*models.Currency{}}
	methods := &memMethodRepo{methods: map[int]*models.PaymentMethod{}, currencies: currencies}
	return NewService(tariffs, methods, currencies, testLogger(t)), tariffs, methods, currencies
}

func TestComputeFinalPrice_Rounding(t *testing.T) {
	rub := &models.Currency{Code: models.CurrencyRUB}
	method := &models.PaymentMethod{
		PriceModifier: decimal.NewFromFloat(2.8),
		FixedFee:      decimal.Zero,
	}

	got := ComputeFinalPrice(decimal.NewFromInt(1000), method, rub)
	if got.String() != "1028" {
		t.Fatalf("ожидалось 1028, получено %s", got.String())
	}

	stars := &models.Currency{Code: models.CurrencyStars}
	starsMethod := &models.PaymentMethod{
		PriceModifier: decimal.NewFromFloat(1.5),
		FixedFee:      decimal.Zero,
	}
	got = ComputeFinalPrice(decimal.NewFromInt(333), starsMethod, stars)
	if !got.Equal(decimal.NewFromInt(338)) {
		t.Fatalf("цена в Stars должна округляться до целого, получено %s", got.String())
	}

	withFee := &models.PaymentMethod{
		PriceModifier: decimal.Zero,
		FixedFee:      decimal.NewFromFloat(0.35),
	}
	got = ComputeFinalPrice(decimal.NewFromInt(100), withFee, rub)
	if got.String() != "100.35" {
		t.Fatalf("ожидалось 100.35, получено %s", got.String())
	}
}

func TestQuote_UsesTariffPrice(t *testing.T) {
	svc, tariffs, methods, currencies := newTestService(t)
	ctx := context.Background()

	currencies.currencies[1] = &models.Currency{ID: 1, Code: models.CurrencyRUB, IsActive: true}
	methods.methods[1] = &models.PaymentMethod{
		ID: 1, Code: models.MethodTinkoff, IsActive: true,
		DefaultCurrencyID: intPtr(1),
		PriceModifier:     decimal.NewFromFloat(2.8),
		FixedFee:          decimal.Zero,
	}
	tariffs.plans[10] = &models.TariffPlan{
		ID: 10, Code: "1_month", BasePrice: decimal.NewFromInt(500), DurationDays: 30, IsActive: true,
	}
	tariffs.prices[[2]int{10, 1}] = &models.TariffPrice{
		TariffID: 10, CurrencyID: 1, Price: decimal.NewFromInt(1000), IsActive: true,
	}

	quote, err := svc.Quote(ctx, 10, 1)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// Цена из tariff_prices (1000), а не пересчет базовой (500)
	if quote.Amount.String() != "1028" {
		t.Fatalf("ожидалось 1028, получено %s", quote.Amount.String())
	}
}

func TestQuote_FallsBackToSeedRate(t *testing.T) {
	svc, tariffs, methods, currencies := newTestService(t)
	ctx := context.Background()

	currencies.currencies[2] = &models.Currency{ID: 2, Code: models.CurrencyStars, IsActive: true}
	methods.methods[2] = &models.PaymentMethod{
		ID: 2, Code: models.MethodStars, IsActive: true,
		DefaultCurrencyID: intPtr(2),
		PriceModifier:     decimal.Zero,
		FixedFee:          decimal.Zero,
	}
	tariffs.plans[10] = &models.TariffPlan{
		ID: 10, Code: "1_month", BasePrice: decimal.NewFromInt(500), DurationDays: 30, IsActive: true,
	}

	quote, err := svc.Quote(ctx, 10, 2)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// 500 руб * 10 (курс Stars) = 5000 звезд
	if !quote.Amount.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("ожидалось 5000 звезд, получено %s", quote.Amount.String())
	}
}

func TestResolveDefaultCurrency_FromMethodRepo(t *testing.T) {
	svc, _, methods, currencies := newTestService(t)
	ctx := context.Background()

	currencies.currencies[1] = &models.Currency{ID: 1, Code: models.CurrencyTON, IsActive: true}
	methods.methods[1] = &models.PaymentMethod{
		ID: 1, Code: models.MethodCryptoBot, IsActive: true,
		DefaultCurrencyID: intPtr(1),
	}

	cur, err := svc.ResolveDefaultCurrency(ctx, methods.methods[1])
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cur.Code != models.CurrencyTON {
		t.Fatalf("ожидался TON, получен %s", cur.Code)
	}
}

func TestResolveDefaultCurrency_Misconfigured(t *testing.T) {
	svc, tariffs, methods, currencies := newTestService(t)
	ctx := context.Background()

	tariffs.plans[10] = &models.TariffPlan{ID: 10, Code: "1_month", BasePrice: decimal.NewFromInt(500), IsActive: true}

	// Способ без валюты по умолчанию
	methods.methods[1] = &models.PaymentMethod{ID: 1, Code: models.MethodManual, IsActive: true}
	if _, err := svc.Quote(ctx, 10, 1); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("ожидалась ErrConfiguration, получено %v", err)
	}

	// Способ со ссылкой на несуществующую валюту
	methods.methods[2] = &models.PaymentMethod{ID: 2, Code: models.MethodTinkoff, IsActive: true, DefaultCurrencyID: intPtr(99)}
	if _, err := svc.Quote(ctx, 10, 2); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("ожидалась ErrConfiguration, получено %v", err)
	}

	// Отключенная валюта
	currencies.currencies[3] = &models.Currency{ID: 3, Code: models.CurrencyUSD, IsActive: false}
	methods.methods[3] = &models.PaymentMethod{ID: 3, Code: models.MethodYooKassa, IsActive: true, DefaultCurrencyID: intPtr(3)}
	if _, err := svc.Quote(ctx, 10, 3); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("ожидалась ErrConfiguration для отключенной валюты, получено %v", err)
	}
}

func TestSeedTariffPrices(t *testing.T) {
	svc, tariffs, _, currencies := newTestService(t)
	ctx := context.Background()

	currencies.currencies[1] = &models.Currency{ID: 1, Code: models.CurrencyRUB, IsActive: true}
	currencies.currencies[2] = &models.Currency{ID: 2, Code: models.CurrencyStars, IsActive: true}
	tariffs.plans[10] = &models.TariffPlan{
		ID: 10, Code: "1_month", BasePrice: decimal.NewFromInt(500), DurationDays: 30, IsActive: true,
	}

	// Существующая цена не перезаписывается
	tariffs.prices[[2]int{10, 1}] = &models.TariffPrice{
		TariffID: 10, CurrencyID: 1, Price: decimal.NewFromInt(777), IsActive: true,
	}

	if err := svc.SeedTariffPrices(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if got := tariffs.prices[[2]int{10, 1}].Price; !got.Equal(decimal.NewFromInt(777)) {
		t.Fatalf("существующая цена перезаписана: %s", got.String())
	}
	starsPrice, ok := tariffs.prices[[2]int{10, 2}]
	if !ok {
		t.Fatalf("цена в Stars не заполнена")
	}
	if !starsPrice.Price.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("ожидалось 5000 звезд, получено %s", starsPrice.Price.String())
	}
}
