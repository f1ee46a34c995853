package access

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"
	"channel-subscription-bot/pkg/logger"
)

// subByTelegramRepo - фейк хранилища подписок: интересует только
// проверка доступа по связке Telegram ID + chat_id
type subByTelegramRepo struct {
	active map[[2]int64]bool
}

func (m *subByTelegramRepo) GetActiveByTelegramAndChat(_ context.Context, telegramID, chatID int64) (*models.Subscription, error) {
	if m.active[[2]int64{telegramID, chatID}] {
		return &models.Subscription{ID: 1, IsActive: true}, nil
	}
	return nil, repository.ErrNotFound
}

func (m *subByTelegramRepo) GetByID(_ context.Context, _ int64) (*models.Subscription, error) {
	return nil, repository.ErrNotFound
}

func (m *subByTelegramRepo) Create(_ context.Context, _ *models.Subscription) error { return nil }

func (m *subByTelegramRepo) GetActiveByUserAndChannel(_ context.Context, _ int64, _ int) (*models.Subscription, error) {
	return nil, repository.ErrNotFound
}

func (m *subByTelegramRepo) GetLatestByUserAndChannel(_ context.Context, _ int64, _ int) (*models.Subscription, error) {
	return nil, repository.ErrNotFound
}

func (m *subByTelegramRepo) UpdateWindow(_ context.Context, _ int64, _, _ time.Time) (*models.Subscription, error) {
	return nil, repository.ErrNotFound
}

func (m *subByTelegramRepo) Deactivate(_ context.Context, _ int64) error { return nil }

func (m *subByTelegramRepo) DeactivateOthers(_ context.Context, _ int64, _ int, _ int64) error {
	return nil
}

func (m *subByTelegramRepo) SweepExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (m *subByTelegramRepo) GetExpiredActive(_ context.Context, _ time.Time) ([]*models.ExpiringSubscription, error) {
	return nil, nil
}

func (m *subByTelegramRepo) FindExpiringWithin(_ context.Context, _ time.Time, _ int) ([]*models.ExpiringSubscription, error) {
	return nil, nil
}

func (m *subByTelegramRepo) CountActive(_ context.Context) (int, error) { return 0, nil }

func (m *subByTelegramRepo) ActiveCountByPlan(_ context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}

type stubChannelRepo struct {
	channels map[int]*models.Channel
}

func (m *stubChannelRepo) GetByID(_ context.Context, id int) (*models.Channel, error) {
	if c, ok := m.channels[id]; ok {
		cc := *c
		return &cc, nil
	}
	return nil, repository.ErrNotFound
}

func (m *stubChannelRepo) GetByTelegramChatID(_ context.Context, _ int64) (*models.Channel, error) {
	return nil, repository.ErrNotFound
}

func (m *stubChannelRepo) GetActive(_ context.Context) ([]*models.Channel, error) { return nil, nil }

func (m *stubChannelRepo) Create(_ context.Context, _ *models.Channel) error { return nil }

func (m *stubChannelRepo) Update(_ context.Context, _ *models.Channel) error { return nil }

func (m *stubChannelRepo) ToggleActive(_ context.Context, _ int) (*models.Channel, error) {
	return nil, repository.ErrNotFound
}

// recordingAPI записывает порядок вызовов Bot API
type recordingAPI struct {
	memberStatus string
	isMember     bool

	calls        []string
	approved     []int64
	declined     []int64
	messages     []string
	createdLinks []int64
}

func (f *recordingAPI) GetChatMember(_ context.Context, _, _ int64) (*ChatMemberInfo, error) {
	f.calls = append(f.calls, "getChatMember")
	return &ChatMemberInfo{Status: f.memberStatus, IsMember: f.isMember}, nil
}

func (f *recordingAPI) BanChatMember(_ context.Context, _, _ int64) error {
	f.calls = append(f.calls, "ban")
	return nil
}

func (f *recordingAPI) UnbanChatMember(_ context.Context, _, _ int64) error {
	f.calls = append(f.calls, "unban")
	return nil
}

func (f *recordingAPI) ApproveChatJoinRequest(_ context.Context, _, userID int64) error {
	f.approved = append(f.approved, userID)
	return nil
}

func (f *recordingAPI) DeclineChatJoinRequest(_ context.Context, _, userID int64) error {
	f.declined = append(f.declined, userID)
	return nil
}

func (f *recordingAPI) SendMessage(_ context.Context, _ int64, text string) error {
	f.messages = append(f.messages, text)
	return nil
}

func (f *recordingAPI) CreateInviteLink(_ context.Context, chatID int64) (string, error) {
	f.calls = append(f.calls, "createInviteLink")
	f.createdLinks = append(f.createdLinks, chatID)
	return "https://t.me/+generated", nil
}

// memCache - кэш доступа в памяти
type memCache struct {
	entries map[[2]int64]bool
}

func (c *memCache) GetAccess(_ context.Context, telegramID, chatID int64) (bool, error) {
	if v, ok := c.entries[[2]int64{telegramID, chatID}]; ok {
		return v, nil
	}
	return false, repository.ErrNotFound
}

func (c *memCache) SetAccess(_ context.Context, telegramID, chatID int64, hasAccess bool, _ time.Duration) error {
	c.entries[[2]int64{telegramID, chatID}] = hasAccess
	return nil
}

func (c *memCache) DeleteAccess(_ context.Context, telegramID, chatID int64) error {
	delete(c.entries, [2]int64{telegramID, chatID})
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

func TestHandleJoinRequest_ApprovesSubscriber(t *testing.T) {
	subs := &subByTelegramRepo{active: map[[2]int64]bool{{777, -100200}: true}}
	api := &recordingAPI{}
	gate := NewGate(subs, &stubChannelRepo{}, api, nil, testLogger(t))

	if err := gate.HandleJoinRequest(context.Background(), -100200, 777); err != nil {
		t.Fatalf("join request: %v", err)
	}

	if len(api.approved) != 1 || api.approved[0] != 777 {
		t.Fatalf("заявка подписчика не одобрена")
	}
	if len(api.declined) != 0 {
		t.Fatalf("заявка подписчика отклонена")
	}
}

func TestHandleJoinRequest_DeclinesStranger(t *testing.T) {
	subs := &subByTelegramRepo{active: map[[2]int64]bool{}}
	api := &recordingAPI{}
	gate := NewGate(subs, &stubChannelRepo{}, api, nil, testLogger(t))

	if err := gate.HandleJoinRequest(context.Background(), -100200, 888); err != nil {
		t.Fatalf("join request: %v", err)
	}

	if len(api.declined) != 1 || api.declined[0] != 888 {
		t.Fatalf("заявка без подписки не отклонена")
	}
	if len(api.approved) != 0 {
		t.Fatalf("заявка без подписки одобрена")
	}
}

func TestHasAccess_CachesResult(t *testing.T) {
	subs := &subByTelegramRepo{active: map[[2]int64]bool{{777, -100200}: true}}
	cache := &memCache{entries: map[[2]int64]bool{}}
	gate := NewGate(subs, &stubChannelRepo{}, &recordingAPI{}, cache, testLogger(t))
	ctx := context.Background()

	ok, err := gate.HasAccess(ctx, 777, -100200)
	if err != nil || !ok {
		t.Fatalf("доступ не подтвержден: %v", err)
	}

	// Подписка пропала, но кэш еще хранит положительный ответ
	delete(subs.active, [2]int64{777, -100200})
	ok, err = gate.HasAccess(ctx, 777, -100200)
	if err != nil || !ok {
		t.Fatalf("кэш не использован: %v", err)
	}
}

func TestGrant_UnbansAndInvites(t *testing.T) {
	channels := &stubChannelRepo{channels: map[int]*models.Channel{
		1: {ID: 1, Name: "Канал", TelegramChatID: -100200, InviteLink: "https://t.me/+abc", IsActive: true},
	}}
	api := &recordingAPI{}
	cache := &memCache{entries: map[[2]int64]bool{{777, -100200}: false}}
	gate := NewGate(&subByTelegramRepo{}, channels, api, cache, testLogger(t))

	if err := gate.Grant(context.Background(), 777, 1); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if len(api.calls) == 0 || api.calls[0] != "unban" {
		t.Fatalf("бан не снят перед приглашением: %v", api.calls)
	}
	if len(api.messages) != 1 {
		t.Fatalf("приглашение не отправлено")
	}
	// Отрицательный ответ в кэше сброшен
	if _, ok := cache.entries[[2]int64{777, -100200}]; ok {
		t.Fatalf("кэш доступа не сброшен")
	}
}

func TestGrant_CreatesInviteLinkWhenMissing(t *testing.T) {
	channels := &stubChannelRepo{channels: map[int]*models.Channel{
		1: {ID: 1, Name: "Канал", TelegramChatID: -100200, IsActive: true},
	}}
	api := &recordingAPI{}
	gate := NewGate(&subByTelegramRepo{}, channels, api, nil, testLogger(t))

	if err := gate.Grant(context.Background(), 777, 1); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if len(api.createdLinks) != 1 || api.createdLinks[0] != -100200 {
		t.Fatalf("ссылка-приглашение не создана: %v", api.createdLinks)
	}
	if len(api.messages) != 1 || !strings.Contains(api.messages[0], "https://t.me/+generated") {
		t.Fatalf("созданная ссылка не отправлена пользователю: %v", api.messages)
	}
}

func TestGrant_KeepsStoredInviteLink(t *testing.T) {
	channels := &stubChannelRepo{channels: map[int]*models.Channel{
		1: {ID: 1, Name: "Канал", TelegramChatID: -100200, InviteLink: "https://t.me/+abc", IsActive: true},
	}}
	api := &recordingAPI{}
	gate := NewGate(&subByTelegramRepo{}, channels, api, nil, testLogger(t))

	if err := gate.Grant(context.Background(), 777, 1); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if len(api.createdLinks) != 0 {
		t.Fatalf("ссылка создана при наличии постоянной")
	}
	if len(api.messages) != 1 || !strings.Contains(api.messages[0], "https://t.me/+abc") {
		t.Fatalf("постоянная ссылка не отправлена: %v", api.messages)
	}
}

func TestRevoke_BanThenUnban(t *testing.T) {
	api := &recordingAPI{memberStatus: "member", isMember: true}
	cache := &memCache{entries: map[[2]int64]bool{{777, -100200}: true}}
	gate := NewGate(&subByTelegramRepo{}, &stubChannelRepo{}, api, cache, testLogger(t))

	if err := gate.Revoke(context.Background(), 777, -100200); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	want := []string{"getChatMember", "ban", "unban"}
	if len(api.calls) != len(want) {
		t.Fatalf("вызовы %v, ожидались %v", api.calls, want)
	}
	for i := range want {
		if api.calls[i] != want[i] {
			t.Fatalf("вызовы %v, ожидались %v", api.calls, want)
		}
	}
	if _, ok := cache.entries[[2]int64{777, -100200}]; ok {
		t.Fatalf("кэш доступа не сброшен после отзыва")
	}
}

func TestRevoke_SkipsAdministrator(t *testing.T) {
	api := &recordingAPI{memberStatus: "administrator", isMember: true}
	gate := NewGate(&subByTelegramRepo{}, &stubChannelRepo{}, api, nil, testLogger(t))

	if err := gate.Revoke(context.Background(), 555, -100200); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	for _, call := range api.calls {
		if call == "ban" {
			t.Fatalf("администратор канала забанен")
		}
	}
}

func TestRevoke_AlreadyLeft(t *testing.T) {
	api := &recordingAPI{memberStatus: "left", isMember: false}
	gate := NewGate(&subByTelegramRepo{}, &stubChannelRepo{}, api, nil, testLogger(t))

	if err := gate.Revoke(context.Background(), 777, -100200); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	// Вышедшего из канала банить не нужно
	for _, call := range api.calls {
		if call == "ban" {
			t.Fatalf("бан применен к вышедшему участнику")
		}
	}
}
