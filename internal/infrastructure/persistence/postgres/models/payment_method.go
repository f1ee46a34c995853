// internal/infrastructure/persistence/postgres/models/payment_method.go
package models

import "github.com/shopspring/decimal"

// Коды способов оплаты
const (
	MethodManual    = "manual"    // Банковский перевод, подтверждается администратором
	MethodYooKassa  = "yookassa"  // ЮKassa
	MethodTinkoff   = "tinkoff"   // Tinkoff Kassa
	MethodCryptoBot = "cryptobot" // Crypto Pay API
	MethodStars     = "stars"     // Telegram Stars
)

// PaymentMethod способ оплаты
type PaymentMethod struct {
	ID                int             `db:"id" json:"id"`
	Code              string          `db:"code" json:"code"`
	Name              string          `db:"name" json:"name"`
	DefaultCurrencyID *int            `db:"default_currency_id" json:"default_currency_id,omitempty"`
	PriceModifier     decimal.Decimal `db:"price_modifier" json:"price_modifier"` // Наценка в процентах
	FixedFee          decimal.Decimal `db:"fixed_fee" json:"fixed_fee"`           // Фиксированная комиссия
	IsActive          bool            `db:"is_active" json:"is_active"`
	DisplayOrder      int             `db:"display_order" json:"display_order"`
}

// TableName задает имя таблицы в БД
func (PaymentMethod) TableName() string {
	return "payment_methods"
}

// PaymentMethodCurrency связь способа оплаты с поддерживаемой валютой
type PaymentMethodCurrency struct {
	ID              int  `db:"id" json:"id"`
	PaymentMethodID int  `db:"payment_method_id" json:"payment_method_id"`
	CurrencyID      int  `db:"currency_id" json:"currency_id"`
	IsDefault       bool `db:"is_default" json:"is_default"`
}

// TableName задает имя таблицы в БД
func (PaymentMethodCurrency) TableName() string {
	return "payment_method_currencies"
}
