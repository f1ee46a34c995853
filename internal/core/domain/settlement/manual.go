// internal/core/domain/settlement/manual.go
package settlement

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/pkg/logger"
)

// ErrManualOnly операция недоступна для ручного способа оплаты
var ErrManualOnly = errors.New("ручные платежи подтверждаются администратором")

// ManualProvider ручная оплата банковским переводом.
// Провайдер ничего не проверяет сам: пользователь получает реквизиты,
// присылает скриншот чека, администратор подтверждает или отклоняет платеж.
type ManualProvider struct {
	requisites string
	logger     *logger.Logger
}

// NewManualProvider создает провайдера ручной оплаты
func NewManualProvider(requisites string, log *logger.Logger) *ManualProvider {
	return &ManualProvider{
		requisites: requisites,
		logger:     log,
	}
}

// Code возвращает код способа оплаты
func (p *ManualProvider) Code() string {
	return models.MethodManual
}

// CreateInvoice возвращает реквизиты для перевода
func (p *ManualProvider) CreateInvoice(_ context.Context, req InvoiceRequest) (*Invoice, error) {
	instructions := fmt.Sprintf(
		"💸 Переведите %s %s по реквизитам:\n\n%s\n\nПосле перевода отправьте скриншот чека в этот чат. Платеж проверит администратор.",
		req.Payment.Amount.StringFixed(req.Currency.Decimals()),
		req.Currency.Symbol,
		p.requisites,
	)

	p.logger.Info("📝 Ручной платеж #%d ожидает перевода", req.Payment.ID)

	return &Invoice{Instructions: instructions}, nil
}

// VerifyAndExtract для ручного способа не существует: уведомлений извне нет
func (p *ManualProvider) VerifyAndExtract(_ context.Context, _ []byte, _ http.Header) (*Notification, error) {
	return nil, ErrManualOnly
}
