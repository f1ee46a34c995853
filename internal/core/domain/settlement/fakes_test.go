package settlement

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"channel-subscription-bot/internal/core/domain/access"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"
	"channel-subscription-bot/pkg/logger"

	"github.com/shopspring/decimal"
)

// Фейки хранилищ для интеграционных тестов сведения платежей.
// Повторяют семантику SQL-запросов настоящих репозиториев.

type memPaymentRepo struct {
	payments map[int64]*models.Payment
	nextID   int64
}

func (m *memPaymentRepo) Create(_ context.Context, p *models.Payment) error {
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	c := *p
	m.payments[p.ID] = &c
	return nil
}

func (m *memPaymentRepo) GetByID(_ context.Context, id int64) (*models.Payment, error) {
	if p, ok := m.payments[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memPaymentRepo) GetByExternalID(_ context.Context, externalID string) (*models.Payment, error) {
	for _, p := range m.payments {
		if p.ExternalID != nil && *p.ExternalID == externalID {
			c := *p
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memPaymentRepo) SetExternalID(_ context.Context, id int64, externalID string) error {
	p, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.ExternalID = &externalID
	return nil
}

func (m *memPaymentRepo) FinishPending(_ context.Context, id int64, status models.PaymentStatus, notes *string, processedAt time.Time) (*models.Payment, error) {
	p, ok := m.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return nil, repository.ErrNotFound
	}
	p.Status = status
	if notes != nil {
		p.Notes = notes
	}
	p.ProcessedAt = &processedAt
	c := *p
	return &c, nil
}

func (m *memPaymentRepo) SetNotes(_ context.Context, id int64, notes string) error {
	p, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Notes = &notes
	return nil
}

func (m *memPaymentRepo) GetPending(_ context.Context) ([]*models.Payment, error) {
	var out []*models.Payment
	for _, p := range m.payments {
		if p.Status == models.PaymentStatusPending {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) GetByUserID(_ context.Context, userID int64) ([]*models.Payment, error) {
	var out []*models.Payment
	for _, p := range m.payments {
		if p.UserID == userID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) CountByStatus(_ context.Context, status models.PaymentStatus) (int, error) {
	count := 0
	for _, p := range m.payments {
		if p.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *memPaymentRepo) GetRevenueSummary(_ context.Context) (*models.PaymentSummary, error) {
	return &models.PaymentSummary{
		TotalByCurrency: map[string]decimal.Decimal{},
		MethodCounts:    map[string]int{},
	}, nil
}

type memSubRepo struct {
	subs         map[int64]*models.Subscription
	planChannels map[int]int
	nextID       int64
}

func (m *memSubRepo) channelOf(planID int) int { return m.planChannels[planID] }

func (m *memSubRepo) GetByID(_ context.Context, id int64) (*models.Subscription, error) {
	if s, ok := m.subs[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memSubRepo) Create(_ context.Context, sub *models.Subscription) error {
	m.nextID++
	sub.ID = m.nextID
	c := *sub
	m.subs[sub.ID] = &c
	return nil
}

func (m *memSubRepo) GetActiveByUserAndChannel(_ context.Context, userID int64, channelID int) (*models.Subscription, error) {
	for _, s := range m.subs {
		if s.UserID == userID && s.IsActive && m.channelOf(s.PlanID) == channelID {
			c := *s
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memSubRepo) GetLatestByUserAndChannel(_ context.Context, userID int64, channelID int) (*models.Subscription, error) {
	var latest *models.Subscription
	for _, s := range m.subs {
		if s.UserID != userID || m.channelOf(s.PlanID) != channelID {
			continue
		}
		if latest == nil || s.EndDate.After(latest.EndDate) {
			latest = s
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	c := *latest
	return &c, nil
}

func (m *memSubRepo) GetActiveByTelegramAndChat(_ context.Context, _, _ int64) (*models.Subscription, error) {
	return nil, repository.ErrNotFound
}

func (m *memSubRepo) UpdateWindow(_ context.Context, id int64, startDate, endDate time.Time) (*models.Subscription, error) {
	s, ok := m.subs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.StartDate = startDate
	s.EndDate = endDate
	s.IsActive = true
	c := *s
	return &c, nil
}

func (m *memSubRepo) Deactivate(_ context.Context, id int64) error {
	s, ok := m.subs[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsActive = false
	return nil
}

func (m *memSubRepo) DeactivateOthers(_ context.Context, userID int64, channelID int, keepID int64) error {
	for _, s := range m.subs {
		if s.UserID == userID && s.ID != keepID && s.IsActive && m.channelOf(s.PlanID) == channelID {
			s.IsActive = false
		}
	}
	return nil
}

func (m *memSubRepo) SweepExpired(_ context.Context, now time.Time) (int, error) {
	count := 0
	for _, s := range m.subs {
		if s.IsActive && s.EndDate.Before(now) {
			s.IsActive = false
			count++
		}
	}
	return count, nil
}

func (m *memSubRepo) GetExpiredActive(_ context.Context, _ time.Time) ([]*models.ExpiringSubscription, error) {
	return nil, nil
}

func (m *memSubRepo) FindExpiringWithin(_ context.Context, _ time.Time, _ int) ([]*models.ExpiringSubscription, error) {
	return nil, nil
}

func (m *memSubRepo) CountActive(_ context.Context) (int, error) { return 0, nil }

func (m *memSubRepo) ActiveCountByPlan(_ context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}

type memTariffRepo struct {
	plans  map[int]*models.TariffPlan
	prices map[[2]int]*models.TariffPrice
}

func (m *memTariffRepo) GetByID(_ context.Context, id int) (*models.TariffPlan, error) {
	if p, ok := m.plans[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memTariffRepo) GetByCode(_ context.Context, _ string) (*models.TariffPlan, error) {
	return nil, repository.ErrNotFound
}

func (m *memTariffRepo) GetActive(_ context.Context) ([]*models.TariffPlan, error) { return nil, nil }

func (m *memTariffRepo) GetActiveByChannel(_ context.Context, _ int) ([]*models.TariffPlan, error) {
	return nil, nil
}

func (m *memTariffRepo) Create(_ context.Context, _ *models.TariffPlan) error { return nil }

func (m *memTariffRepo) SetBasePrice(_ context.Context, _ int, _ decimal.Decimal) error { return nil }

func (m *memTariffRepo) ToggleActive(_ context.Context, _ int) (*models.TariffPlan, error) {
	return nil, repository.ErrNotFound
}

func (m *memTariffRepo) GetPrice(_ context.Context, tariffID, currencyID int) (*models.TariffPrice, error) {
	if tp, ok := m.prices[[2]int{tariffID, currencyID}]; ok {
		c := *tp
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memTariffRepo) SetPrice(_ context.Context, tariffID, currencyID int, price decimal.Decimal) (*models.TariffPrice, error) {
	tp := &models.TariffPrice{TariffID: tariffID, CurrencyID: currencyID, Price: price, IsActive: true}
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
	return nil, nil
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

func (m *memMethodRepo) SeedDefaults(_ context.Context) error { return nil }

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
	return nil, nil
}

func (m *memCurrencyRepo) Ensure(_ context.Context, cur *models.Currency) (*models.Currency, error) {
	cc := *cur
	m.currencies[cc.ID] = &cc
	return &cc, nil
}

func (m *memCurrencyRepo) SeedDefaults(_ context.Context) error { return nil }

type memUserRepo struct {
	users  map[int64]*models.User
	nextID int64
}

func (m *memUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) GetByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	for _, u := range m.users {
		if u.TelegramID == telegramID {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) GetOrCreate(ctx context.Context, telegramID int64, username, fullName *string) (*models.User, error) {
	if u, err := m.GetByTelegramID(ctx, telegramID); err == nil {
		return u, nil
	}
	m.nextID++
	u := &models.User{ID: m.nextID, TelegramID: telegramID, Username: username, FullName: fullName, IsActive: true}
	m.users[u.ID] = u
	c := *u
	return &c, nil
}

type memChannelRepo struct {
	channels map[int]*models.Channel
}

func (m *memChannelRepo) GetByID(_ context.Context, id int) (*models.Channel, error) {
	if c, ok := m.channels[id]; ok {
		cc := *c
		return &cc, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memChannelRepo) GetByTelegramChatID(_ context.Context, chatID int64) (*models.Channel, error) {
	for _, c := range m.channels {
		if c.TelegramChatID == chatID {
			cc := *c
			return &cc, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memChannelRepo) GetActive(_ context.Context) ([]*models.Channel, error) { return nil, nil }

func (m *memChannelRepo) Create(_ context.Context, _ *models.Channel) error { return nil }

func (m *memChannelRepo) Update(_ context.Context, _ *models.Channel) error { return nil }

func (m *memChannelRepo) ToggleActive(_ context.Context, _ int) (*models.Channel, error) {
	return nil, repository.ErrNotFound
}

// fakeChannelAPI записывает вызовы Bot API
type fakeChannelAPI struct {
	unbanned []int64
	banned   []int64
	messages []string
}

func (f *fakeChannelAPI) GetChatMember(_ context.Context, _, _ int64) (*access.ChatMemberInfo, error) {
	return &access.ChatMemberInfo{Status: "member", IsMember: true}, nil
}

func (f *fakeChannelAPI) BanChatMember(_ context.Context, _, userID int64) error {
	f.banned = append(f.banned, userID)
	return nil
}

func (f *fakeChannelAPI) UnbanChatMember(_ context.Context, _, userID int64) error {
	f.unbanned = append(f.unbanned, userID)
	return nil
}

func (f *fakeChannelAPI) ApproveChatJoinRequest(_ context.Context, _, _ int64) error { return nil }

func (f *fakeChannelAPI) DeclineChatJoinRequest(_ context.Context, _, _ int64) error { return nil }

func (f *fakeChannelAPI) SendMessage(_ context.Context, _ int64, text string) error {
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeChannelAPI) CreateInviteLink(_ context.Context, chatID int64) (string, error) {
	return fmt.Sprintf("https://t.me/+invite%d", chatID), nil
}

// fakeProvider управляемый провайдер для тестов
type fakeProvider struct {
	code       string
	invoice    *Invoice
	invoiceErr error
	note       *Notification
	verifyErr  error
}

func (f *fakeProvider) Code() string { return f.code }

func (f *fakeProvider) CreateInvoice(_ context.Context, _ InvoiceRequest) (*Invoice, error) {
	if f.invoiceErr != nil {
		return nil, f.invoiceErr
	}
	return f.invoice, nil
}

func (f *fakeProvider) VerifyAndExtract(_ context.Context, _ []byte, _ http.Header) (*Notification, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	c := *f.note
	return &c, nil
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
