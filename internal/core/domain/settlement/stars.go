// internal/core/domain/settlement/stars.go
package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/pkg/logger"

	"github.com/shopspring/decimal"
)

// starsPayloadPrefix префикс payload инвойса Stars
const starsPayloadPrefix = "stars:"

// StarsInvoiceSender отправляет инвойс Stars через Bot API
type StarsInvoiceSender interface {
	SendInvoice(ctx context.Context, chatID int64, title, description, payload string, starsAmount int64) error
}

// StarsProvider провайдер Telegram Stars. Оплата идет внутри Telegram:
// инвойс отправляется ботом, подтверждение приходит через successful_payment
// в потоке обновлений, а не через webhook платежной системы.
type StarsProvider struct {
	sender StarsInvoiceSender
	logger *logger.Logger
}

// NewStarsProvider создает провайдера Telegram Stars
func NewStarsProvider(sender StarsInvoiceSender, log *logger.Logger) *StarsProvider {
	return &StarsProvider{
		sender: sender,
		logger: log,
	}
}

// Code возвращает код способа оплаты
func (p *StarsProvider) Code() string {
	return models.MethodStars
}

// CreateInvoice отправляет инвойс Stars пользователю.
// Внешнего ID на этом шаге нет: telegram_payment_charge_id появится
// только в successful_payment, сопоставление идет по payload.
func (p *StarsProvider) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	if req.User == nil {
		return nil, fmt.Errorf("инвойс Stars требует пользователя Telegram")
	}

	payload := starsPayloadPrefix + strconv.FormatInt(req.Payment.ID, 10)
	title := fmt.Sprintf("Подписка %s", req.Plan.Name)

	err := p.sender.SendInvoice(ctx, req.User.TelegramID, title, req.Description, payload, req.Payment.Amount.IntPart())
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки инвойса Stars: %w", err)
	}

	p.logger.Info("⭐ Инвойс Stars отправлен tg:%d для платежа #%d", req.User.TelegramID, req.Payment.ID)

	return &Invoice{}, nil
}

// StarsPaymentEvent подтверждение оплаты Stars из потока обновлений бота
type StarsPaymentEvent struct {
	TelegramID              int64  `json:"telegram_id"`
	Currency                string `json:"currency"`
	TotalAmount             int64  `json:"total_amount"`
	InvoicePayload          string `json:"invoice_payload"`
	TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
}

// VerifyAndExtract разбирает событие successful_payment.
// Подписи нет: событие приходит по аутентифицированному каналу Bot API,
// сам факт доставки через getUpdates и есть подтверждение подлинности.
func (p *StarsProvider) VerifyAndExtract(_ context.Context, body []byte, _ http.Header) (*Notification, error) {
	var event StarsPaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("ошибка разбора события Stars: %w", err)
	}

	if event.TelegramPaymentChargeID == "" {
		return nil, fmt.Errorf("событие Stars без telegram_payment_charge_id")
	}

	note := &Notification{
		ProviderCode: p.Code(),
		ExternalID:   event.TelegramPaymentChargeID,
		Paid:         true,
		Amount:       decimal.NewFromInt(event.TotalAmount),
		CurrencyCode: models.CurrencyStars,
		TelegramID:   event.TelegramID,
	}

	if rest, ok := strings.CutPrefix(event.InvoicePayload, starsPayloadPrefix); ok {
		note.PaymentID, _ = strconv.ParseInt(rest, 10, 64)
	}

	return note, nil
}
