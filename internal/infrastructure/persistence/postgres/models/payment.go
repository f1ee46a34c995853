// internal/infrastructure/persistence/postgres/models/payment.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus статус платежа
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Payment запись о попытке оплаты. Покинув статус pending, запись больше не меняется.
type Payment struct {
	ID              int64 `db:"id" json:"id"`
	UserID          int64 `db:"user_id" json:"user_id"`
	PlanID          int   `db:"plan_id" json:"plan_id"`
	PaymentMethodID int   `db:"payment_method_id" json:"payment_method_id"`
	CurrencyID      int   `db:"currency_id" json:"currency_id"`

	// Сумма хранится в валюте платежа, без приведения к базовой валюте
	Amount decimal.Decimal `db:"amount" json:"amount"`

	// ID платежа во внешней системе; ключ идемпотентности для уведомлений провайдера
	ExternalID *string `db:"external_id" json:"external_id,omitempty"`

	Status PaymentStatus `db:"status" json:"status"`
	Notes  *string       `db:"notes" json:"notes,omitempty"` // Причина отклонения, file_id скриншота и т.п.

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// TableName задает имя таблицы в БД
func (Payment) TableName() string {
	return "payments"
}

// IsPending проверяет, ожидает ли платеж оплаты
func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}

// IsTerminal проверяет, находится ли платеж в конечном статусе
func (p *Payment) IsTerminal() bool {
	return p.Status != PaymentStatusPending
}

// PaymentSummary статистика доходов, сгруппированная по валютам.
// Суммы в разных валютах никогда не складываются между собой.
type PaymentSummary struct {
	TotalByCurrency map[string]decimal.Decimal `json:"total_by_currency"` // код валюты -> сумма
	PaymentCount    int                        `json:"payment_count"`
	MethodCounts    map[string]int             `json:"method_counts"` // код способа оплаты -> число платежей
}
