// internal/core/domain/settlement/provider.go
package settlement

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"

	"github.com/shopspring/decimal"
)

// ErrUnknownProvider запрошен провайдер, которого нет в реестре
var ErrUnknownProvider = errors.New("неизвестный платежный провайдер")

// ErrInvalidSignature подпись уведомления не прошла проверку
var ErrInvalidSignature = errors.New("некорректная подпись уведомления")

// InvoiceRequest данные для выставления счета у провайдера
type InvoiceRequest struct {
	Payment  *models.Payment
	Plan     *models.TariffPlan
	Currency *models.Currency
	User     *models.User

	// Описание для страницы оплаты
	Description string
}

// Invoice выставленный счет
type Invoice struct {
	// ID платежа во внешней системе; пустой, если провайдер присваивает его позже
	ExternalID string

	// Ссылка на страницу оплаты; пустая, если оплата идет внутри Telegram
	PayURL string

	// Инструкция для пользователя (ручные способы оплаты)
	Instructions string
}

// Notification разобранное уведомление провайдера о платеже
type Notification struct {
	ProviderCode string
	ExternalID   string

	// Paid = false означает промежуточное или неуспешное событие, его можно игнорировать
	Paid bool

	Amount       decimal.Decimal
	CurrencyCode string

	// Внутренний ID pending-платежа, если провайдер вернул его в метаданных
	PaymentID int64

	// Идентификация пользователя и тарифа для случая, когда pending-записи нет
	TelegramID int64
	UserID     int64
	PlanID     int
}

// Provider платежный провайдер. Каждая реализация инкапсулирует
// протокол одной платежной системы: выставление счета и разбор уведомления.
type Provider interface {
	// Code возвращает код способа оплаты (совпадает с payment_methods.code)
	Code() string

	// CreateInvoice выставляет счет у провайдера
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error)

	// VerifyAndExtract проверяет подпись уведомления и извлекает данные платежа.
	// Невалидная подпись - ErrInvalidSignature.
	VerifyAndExtract(ctx context.Context, body []byte, headers http.Header) (*Notification, error)
}

// Registry реестр провайдеров. Диспетчеризация по коду способа оплаты
// вместо цепочек if: добавление провайдера не трогает существующий код.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register добавляет провайдера в реестр
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Code()] = p
}

// Get возвращает провайдера по коду способа оплаты
func (r *Registry) Get(code string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, code)
	}

	return p, nil
}

// Codes возвращает коды зарегистрированных провайдеров
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.providers))
	for code := range r.providers {
		codes = append(codes, code)
	}

	return codes
}
