// internal/delivery/telegram/bot.go
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"channel-subscription-bot/internal/config"
	"channel-subscription-bot/internal/core/domain/access"
	"channel-subscription-bot/internal/core/domain/payment"
	"channel-subscription-bot/internal/core/domain/settlement"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"
	channel_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/channel"
	method_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/payment_method"
	sub_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/subscription"
	tariff_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/tariff"
	users_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/users"
	"channel-subscription-bot/pkg/logger"
)

// pollTimeout таймаут long polling'а в секундах
const pollTimeout = 30

// tariffCacheTTL время жизни кэша списка тарифов
const tariffCacheTTL = 10 * time.Minute

// TariffCache - кэш списка активных тарифов
type TariffCache interface {
	GetTariffs(ctx context.Context, dest interface{}) error
	SetTariffs(ctx context.Context, tariffs interface{}, ttl time.Duration) error
}

// Bot обработчик обновлений Telegram
type Bot struct {
	client     *Client
	cfg        *config.Config
	reconciler *settlement.Reconciler
	gate       *access.Gate
	ledger     *payment.Ledger

	userRepo    users_repo.UserRepository
	channelRepo channel_repo.ChannelRepository
	tariffRepo  tariff_repo.TariffRepository
	methodRepo  method_repo.PaymentMethodRepository
	subRepo     sub_repo.SubscriptionRepository

	tariffCache TariffCache // может быть nil
	logger      *logger.Logger
	offset      int64
}

// NewBot создает обработчик обновлений
func NewBot(
	client *Client,
	cfg *config.Config,
	reconciler *settlement.Reconciler,
	gate *access.Gate,
	ledger *payment.Ledger,
	userRepo users_repo.UserRepository,
	channelRepo channel_repo.ChannelRepository,
	tariffRepo tariff_repo.TariffRepository,
	methodRepo method_repo.PaymentMethodRepository,
	subRepo sub_repo.SubscriptionRepository,
	tariffCache TariffCache,
	log *logger.Logger,
) *Bot {
	return &Bot{
		client:      client,
		cfg:         cfg,
		reconciler:  reconciler,
		gate:        gate,
		ledger:      ledger,
		userRepo:    userRepo,
		channelRepo: channelRepo,
		tariffRepo:  tariffRepo,
		methodRepo:  methodRepo,
		subRepo:     subRepo,
		tariffCache: tariffCache,
		logger:      log,
	}
}

// Run запускает цикл long polling'а. Блокирует до отмены контекста.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("🤖 Бот запущен, ожидание обновлений")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("🛑 Бот остановлен")
			return
		default:
		}

		updates, err := b.client.GetUpdates(ctx, b.offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			b.logger.Error("❌ Ошибка получения обновлений: %v", err)
			time.Sleep(3 * time.Second)
			continue
		}

		for _, update := range updates {
			b.offset = update.UpdateID + 1
			b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate разбирает одно обновление. Паника в обработчике
// не должна ронять цикл polling'а.
func (b *Bot) handleUpdate(ctx context.Context, update Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("❌ Паника при обработке обновления %d: %v", update.UpdateID, r)
		}
	}()

	switch {
	case update.PreCheckoutQuery != nil:
		b.handlePreCheckout(ctx, update.PreCheckoutQuery)
	case update.ChatJoinRequest != nil:
		b.handleJoinRequest(ctx, update.ChatJoinRequest)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		b.handleSuccessfulPayment(ctx, update.Message)
	case update.Message != nil && len(update.Message.Photo) > 0:
		b.handleReceiptPhoto(ctx, update.Message)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// handlePreCheckout подтверждает pre-checkout запрос Stars.
// Telegram требует ответ в течение 10 секунд, иначе оплата сорвется.
func (b *Bot) handlePreCheckout(ctx context.Context, query *PreCheckoutQuery) {
	if err := b.client.AnswerPreCheckoutQuery(ctx, query.ID, true, ""); err != nil {
		b.logger.Error("❌ Ошибка ответа на pre-checkout %s: %v", query.ID, err)
	}
}

// handleJoinRequest передает заявку на вступление шлюзу доступа
func (b *Bot) handleJoinRequest(ctx context.Context, req *ChatJoinRequest) {
	if err := b.gate.HandleJoinRequest(ctx, req.Chat.ID, req.From.ID); err != nil {
		b.logger.Error("❌ Ошибка обработки заявки tg:%d: %v", req.From.ID, err)
	}
}

// handleSuccessfulPayment проводит оплату Stars через общий механизм сведения
func (b *Bot) handleSuccessfulPayment(ctx context.Context, msg *Message) {
	sp := msg.SuccessfulPayment

	event := settlement.StarsPaymentEvent{
		Currency:                sp.Currency,
		TotalAmount:             sp.TotalAmount,
		InvoicePayload:          sp.InvoicePayload,
		TelegramPaymentChargeID: sp.TelegramPaymentChargeID,
	}
	if msg.From != nil {
		event.TelegramID = msg.From.ID
	}

	body, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("❌ Ошибка сериализации события Stars: %v", err)
		return
	}

	if err := b.reconciler.HandleNotification(ctx, models.MethodStars, body, http.Header{}); err != nil {
		b.logger.Error("❌ Ошибка проведения оплаты Stars %s: %v", sp.TelegramPaymentChargeID, err)
	}
}

// handleMessage обрабатывает текстовые команды
func (b *Bot) handleMessage(ctx context.Context, msg *Message) {
	if msg.From == nil || msg.Chat.Type != "private" {
		return
	}

	user, err := b.registerUser(ctx, msg.From)
	if err != nil {
		b.logger.Error("❌ Ошибка регистрации пользователя tg:%d: %v", msg.From.ID, err)
		return
	}

	cmd := strings.Fields(msg.Text)
	if len(cmd) == 0 {
		return
	}

	switch cmd[0] {
	case "/start":
		b.sendChannelList(ctx, msg.Chat.ID)
	case "/status":
		b.sendStatus(ctx, msg.Chat.ID, user)
	case "/pending":
		if b.cfg.IsAdmin(msg.From.ID) {
			b.sendPendingQueue(ctx, msg.Chat.ID)
		}
	case "/stats":
		if b.cfg.IsAdmin(msg.From.ID) {
			b.sendStats(ctx, msg.Chat.ID)
		}
	default:
		b.sendChannelList(ctx, msg.Chat.ID)
	}
}

// registerUser регистрирует или обновляет пользователя
func (b *Bot) registerUser(ctx context.Context, from *TgUser) (*models.User, error) {
	var username, fullName *string
	if from.Username != "" {
		username = &from.Username
	}
	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	if name != "" {
		fullName = &name
	}

	return b.userRepo.GetOrCreate(ctx, from.ID, username, fullName)
}

// sendChannelList показывает список каналов
func (b *Bot) sendChannelList(ctx context.Context, chatID int64) {
	channels, err := b.channelRepo.GetActive(ctx)
	if err != nil {
		b.logger.Error("❌ Ошибка получения каналов: %v", err)
		return
	}

	if len(channels) == 0 {
		b.send(ctx, chatID, "Пока нет доступных каналов.")
		return
	}

	keyboard := &InlineKeyboardMarkup{}
	for _, ch := range channels {
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, []InlineKeyboardButton{
			{Text: ch.Name, CallbackData: fmt.Sprintf("channel:%d", ch.ID)},
		})
	}

	text := "👋 Добро пожаловать! Выберите канал, чтобы оформить подписку:"
	if err := b.client.SendMessageWithKeyboard(ctx, chatID, text, keyboard); err != nil {
		b.logger.Error("❌ Ошибка отправки списка каналов: %v", err)
	}
}

// sendStatus показывает активные подписки пользователя
func (b *Bot) sendStatus(ctx context.Context, chatID int64, user *models.User) {
	channels, err := b.channelRepo.GetActive(ctx)
	if err != nil {
		b.logger.Error("❌ Ошибка получения каналов: %v", err)
		return
	}

	var lines []string
	for _, ch := range channels {
		sub, err := b.subRepo.GetActiveByUserAndChannel(ctx, user.ID, ch.ID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				b.logger.Error("❌ Ошибка проверки подписки: %v", err)
			}
			continue
		}
		lines = append(lines, fmt.Sprintf("✅ <b>%s</b> - до %s", ch.Name, sub.EndDate.Format("02.01.2006")))
	}

	if len(lines) == 0 {
		b.send(ctx, chatID, "У вас нет активных подписок. Отправьте /start, чтобы оформить.")
		return
	}

	b.send(ctx, chatID, "Ваши подписки:\n\n"+strings.Join(lines, "\n"))
}

// sendPendingQueue показывает администратору очередь ручных платежей
func (b *Bot) sendPendingQueue(ctx context.Context, chatID int64) {
	pending, err := b.ledger.Pending(ctx)
	if err != nil {
		b.logger.Error("❌ Ошибка получения очереди платежей: %v", err)
		return
	}

	if len(pending) == 0 {
		b.send(ctx, chatID, "Очередь платежей пуста.")
		return
	}

	for _, p := range pending {
		text := fmt.Sprintf("💳 Платеж #%d\nПользователь: %d\nТариф: %d\nСумма: %s\nСоздан: %s",
			p.ID, p.UserID, p.PlanID, p.Amount.String(), p.CreatedAt.Format("02.01.2006 15:04"))

		keyboard := &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{{
				{Text: "✅ Подтвердить", CallbackData: fmt.Sprintf("approve:%d", p.ID)},
				{Text: "❌ Отклонить", CallbackData: fmt.Sprintf("reject:%d", p.ID)},
			}},
		}

		if err := b.client.SendMessageWithKeyboard(ctx, chatID, text, keyboard); err != nil {
			b.logger.Error("❌ Ошибка отправки платежа из очереди: %v", err)
		}
	}
}

// sendStats показывает администратору сводку по доходам
func (b *Bot) sendStats(ctx context.Context, chatID int64) {
	summary, err := b.ledger.RevenueSummary(ctx)
	if err != nil {
		b.logger.Error("❌ Ошибка получения статистики: %v", err)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 Подтвержденных платежей: %d\n\nДоход по валютам:\n", summary.PaymentCount))
	for code, total := range summary.TotalByCurrency {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", code, total.String()))
	}
	sb.WriteString("\nПо способам оплаты:\n")
	for code, count := range summary.MethodCounts {
		sb.WriteString(fmt.Sprintf("  %s: %d\n", code, count))
	}

	b.send(ctx, chatID, sb.String())
}

// handleReceiptPhoto принимает скриншот чека ручного платежа
// и пересылает администраторам ссылку на подтверждение
func (b *Bot) handleReceiptPhoto(ctx context.Context, msg *Message) {
	if msg.From == nil || msg.Chat.Type != "private" {
		return
	}

	user, err := b.userRepo.GetByTelegramID(ctx, msg.From.ID)
	if err != nil {
		return
	}

	history, err := b.ledger.History(ctx, user.ID)
	if err != nil {
		b.logger.Error("❌ Ошибка получения платежей tg:%d: %v", msg.From.ID, err)
		return
	}

	var pendingPayment *models.Payment
	for _, p := range history {
		if p.IsPending() {
			pendingPayment = p
			break
		}
	}
	if pendingPayment == nil {
		b.send(ctx, msg.Chat.ID, "У вас нет ожидающих платежей. Отправьте /start, чтобы оформить подписку.")
		return
	}

	// Telegram присылает фото в нескольких размерах, последний - самый крупный
	fileID := msg.Photo[len(msg.Photo)-1].FileID
	if err := b.ledger.AttachNotes(ctx, pendingPayment.ID, "чек: "+fileID); err != nil {
		b.logger.Error("❌ Ошибка сохранения чека к платежу #%d: %v", pendingPayment.ID, err)
	}

	b.send(ctx, msg.Chat.ID, "📸 Чек получен, платеж на проверке у администратора.")

	caption := fmt.Sprintf("📸 Чек по платежу #%d от tg:%d, сумма %s",
		pendingPayment.ID, msg.From.ID, pendingPayment.Amount.String())
	keyboard := &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{{
			{Text: "✅ Подтвердить", CallbackData: fmt.Sprintf("approve:%d", pendingPayment.ID)},
			{Text: "❌ Отклонить", CallbackData: fmt.Sprintf("reject:%d", pendingPayment.ID)},
		}},
	}

	for _, adminID := range b.cfg.AdminTelegramIDs {
		if err := b.client.SendPhotoWithKeyboard(ctx, adminID, fileID, caption, keyboard); err != nil {
			b.logger.Error("❌ Ошибка уведомления администратора %d: %v", adminID, err)
		}
	}
}

// handleCallback обрабатывает нажатия inline кнопок
func (b *Bot) handleCallback(ctx context.Context, query *CallbackQuery) {
	parts := strings.SplitN(query.Data, ":", 3)
	if len(parts) < 2 {
		b.answer(ctx, query.ID, "")
		return
	}

	var chatID int64
	if query.Message != nil {
		chatID = query.Message.Chat.ID
	}

	switch parts[0] {
	case "channel":
		channelID, _ := strconv.Atoi(parts[1])
		b.sendTariffList(ctx, chatID, channelID)
		b.answer(ctx, query.ID, "")
	case "plan":
		planID, _ := strconv.Atoi(parts[1])
		b.sendMethodList(ctx, chatID, planID)
		b.answer(ctx, query.ID, "")
	case "pay":
		if len(parts) != 3 {
			b.answer(ctx, query.ID, "")
			return
		}
		planID, _ := strconv.Atoi(parts[1])
		b.startCheckout(ctx, query, chatID, planID, parts[2])
	case "cancel":
		paymentID, _ := strconv.ParseInt(parts[1], 10, 64)
		b.cancelPayment(ctx, query, chatID, paymentID)
	case "approve":
		paymentID, _ := strconv.ParseInt(parts[1], 10, 64)
		b.adminApprove(ctx, query, chatID, paymentID)
	case "reject":
		paymentID, _ := strconv.ParseInt(parts[1], 10, 64)
		b.adminReject(ctx, query, chatID, paymentID)
	default:
		b.answer(ctx, query.ID, "")
	}
}

// tariffsForChannel возвращает активные тарифы канала, по возможности из кэша.
// Кэшируется полный список активных тарифов, фильтрация по каналу - в памяти.
func (b *Bot) tariffsForChannel(ctx context.Context, channelID int) ([]*models.TariffPlan, error) {
	if b.tariffCache == nil {
		return b.tariffRepo.GetActiveByChannel(ctx, channelID)
	}

	var all []*models.TariffPlan
	if err := b.tariffCache.GetTariffs(ctx, &all); err != nil {
		all, err = b.tariffRepo.GetActive(ctx)
		if err != nil {
			return nil, err
		}
		if cacheErr := b.tariffCache.SetTariffs(ctx, all, tariffCacheTTL); cacheErr != nil {
			b.logger.Warn("⚠️ Не удалось закэшировать тарифы: %v", cacheErr)
		}
	}

	var plans []*models.TariffPlan
	for _, p := range all {
		if p.ChannelID == channelID {
			plans = append(plans, p)
		}
	}
	return plans, nil
}

// sendTariffList показывает тарифы канала
func (b *Bot) sendTariffList(ctx context.Context, chatID int64, channelID int) {
	plans, err := b.tariffsForChannel(ctx, channelID)
	if err != nil {
		b.logger.Error("❌ Ошибка получения тарифов канала %d: %v", channelID, err)
		return
	}

	if len(plans) == 0 {
		b.send(ctx, chatID, "Для этого канала пока нет тарифов.")
		return
	}

	keyboard := &InlineKeyboardMarkup{}
	for _, plan := range plans {
		label := fmt.Sprintf("%s - %s ₽", plan.Name, plan.BasePrice.StringFixed(0))
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, []InlineKeyboardButton{
			{Text: label, CallbackData: fmt.Sprintf("plan:%d", plan.ID)},
		})
	}

	if err := b.client.SendMessageWithKeyboard(ctx, chatID, "Выберите тариф:", keyboard); err != nil {
		b.logger.Error("❌ Ошибка отправки тарифов: %v", err)
	}
}

// sendMethodList показывает способы оплаты тарифа
func (b *Bot) sendMethodList(ctx context.Context, chatID int64, planID int) {
	methods, err := b.methodRepo.GetActiveMethods(ctx)
	if err != nil {
		b.logger.Error("❌ Ошибка получения способов оплаты: %v", err)
		return
	}

	keyboard := &InlineKeyboardMarkup{}
	for _, m := range methods {
		label := m.Name
		// Валюта по умолчанию идет первой в списке поддерживаемых
		if curs, err := b.methodRepo.GetSupportedCurrencies(ctx, m.ID); err == nil && len(curs) > 0 {
			label = fmt.Sprintf("%s (%s)", m.Name, curs[0].Code)
		}
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, []InlineKeyboardButton{
			{Text: label, CallbackData: fmt.Sprintf("pay:%d:%s", planID, m.Code)},
		})
	}

	if err := b.client.SendMessageWithKeyboard(ctx, chatID, "Выберите способ оплаты:", keyboard); err != nil {
		b.logger.Error("❌ Ошибка отправки способов оплаты: %v", err)
	}
}

// startCheckout инициирует оплату выбранным способом
func (b *Bot) startCheckout(ctx context.Context, query *CallbackQuery, chatID int64, planID int, methodCode string) {
	var username, fullName *string
	if query.From.Username != "" {
		username = &query.From.Username
	}
	name := strings.TrimSpace(query.From.FirstName + " " + query.From.LastName)
	if name != "" {
		fullName = &name
	}

	checkout, err := b.reconciler.InitiatePayment(ctx, query.From.ID, username, fullName, planID, methodCode)
	if err != nil {
		b.logger.Error("❌ Ошибка инициации оплаты tg:%d: %v", query.From.ID, err)
		b.answer(ctx, query.ID, "Не удалось создать платеж, попробуйте позже")
		return
	}

	b.answer(ctx, query.ID, "")

	// Инвойс Stars уже отправлен самим провайдером
	if methodCode == models.MethodStars {
		return
	}

	cancelButton := InlineKeyboardButton{
		Text:         "🚫 Отменить платеж",
		CallbackData: fmt.Sprintf("cancel:%d", checkout.Payment.ID),
	}

	switch {
	case checkout.Invoice.PayURL != "":
		keyboard := &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{
				{{Text: "💳 Оплатить", URL: checkout.Invoice.PayURL}},
				{cancelButton},
			},
		}
		text := fmt.Sprintf("Платеж #%d создан. Оплатите по кнопке ниже:", checkout.Payment.ID)
		if err := b.client.SendMessageWithKeyboard(ctx, chatID, text, keyboard); err != nil {
			b.logger.Error("❌ Ошибка отправки ссылки на оплату: %v", err)
		}
	case checkout.Invoice.Instructions != "":
		keyboard := &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{{cancelButton}},
		}
		if err := b.client.SendMessageWithKeyboard(ctx, chatID, checkout.Invoice.Instructions, keyboard); err != nil {
			b.logger.Error("❌ Ошибка отправки инструкции по оплате: %v", err)
		}
	}
}

// cancelPayment отменяет pending-платеж по инициативе пользователя
func (b *Bot) cancelPayment(ctx context.Context, query *CallbackQuery, chatID, paymentID int64) {
	p, err := b.ledger.Get(ctx, paymentID)
	if err != nil {
		b.answer(ctx, query.ID, "Платеж не найден")
		return
	}

	user, err := b.userRepo.GetByTelegramID(ctx, query.From.ID)
	if err != nil || p.UserID != user.ID {
		b.answer(ctx, query.ID, "Это не ваш платеж")
		return
	}

	if _, err := b.reconciler.CancelPending(ctx, paymentID); err != nil {
		if errors.Is(err, payment.ErrInvalidStateTransition) {
			b.answer(ctx, query.ID, "Платеж уже обработан")
			return
		}
		b.logger.Error("❌ Ошибка отмены платежа #%d: %v", paymentID, err)
		b.answer(ctx, query.ID, "Не удалось отменить платеж")
		return
	}

	b.answer(ctx, query.ID, "Платеж отменен")
	b.send(ctx, chatID, fmt.Sprintf("🚫 Платеж #%d отменен.", paymentID))
}

// adminApprove подтверждает ручной платеж
func (b *Bot) adminApprove(ctx context.Context, query *CallbackQuery, chatID, paymentID int64) {
	if !b.cfg.IsAdmin(query.From.ID) {
		b.answer(ctx, query.ID, "Недостаточно прав")
		return
	}

	if _, err := b.reconciler.ApproveManual(ctx, paymentID, nil); err != nil {
		if errors.Is(err, payment.ErrInvalidStateTransition) {
			b.answer(ctx, query.ID, "Платеж уже обработан")
			return
		}
		b.logger.Error("❌ Ошибка подтверждения платежа #%d: %v", paymentID, err)
		b.answer(ctx, query.ID, "Ошибка подтверждения")
		return
	}

	b.answer(ctx, query.ID, "Платеж подтвержден")
	b.send(ctx, chatID, fmt.Sprintf("✅ Платеж #%d подтвержден, подписка выдана.", paymentID))
}

// adminReject отклоняет ручной платеж
func (b *Bot) adminReject(ctx context.Context, query *CallbackQuery, chatID, paymentID int64) {
	if !b.cfg.IsAdmin(query.From.ID) {
		b.answer(ctx, query.ID, "Недостаточно прав")
		return
	}

	rejected, err := b.reconciler.RejectManual(ctx, paymentID, "отклонен администратором")
	if err != nil {
		if errors.Is(err, payment.ErrInvalidStateTransition) {
			b.answer(ctx, query.ID, "Платеж уже обработан")
			return
		}
		b.logger.Error("❌ Ошибка отклонения платежа #%d: %v", paymentID, err)
		b.answer(ctx, query.ID, "Ошибка отклонения")
		return
	}

	b.answer(ctx, query.ID, "Платеж отклонен")
	b.send(ctx, chatID, fmt.Sprintf("❌ Платеж #%d отклонен.", paymentID))

	// Сообщаем пользователю о решении
	if user, err := b.userRepo.GetByID(ctx, rejected.UserID); err == nil {
		b.send(ctx, user.TelegramID, fmt.Sprintf("❌ Ваш платеж #%d отклонен. Свяжитесь с поддержкой, если это ошибка.", paymentID))
	}
}

// send отправляет сообщение, ошибки только логируются
func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if err := b.client.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Error("❌ Ошибка отправки сообщения в чат %d: %v", chatID, err)
	}
}

// answer подтверждает callback, ошибки только логируются
func (b *Bot) answer(ctx context.Context, queryID, text string) {
	if err := b.client.AnswerCallbackQuery(ctx, queryID, text); err != nil {
		b.logger.Error("❌ Ошибка ответа на callback %s: %v", queryID, err)
	}
}
