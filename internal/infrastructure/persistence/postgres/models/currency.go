// internal/infrastructure/persistence/postgres/models/currency.go
package models

// Коды валют
const (
	CurrencyRUB   = "RUB"
	CurrencyUSD   = "USD"
	CurrencyStars = "STARS"
	CurrencyBTC   = "BTC"
	CurrencyTON   = "TON"
	CurrencyUSDT  = "USDT"
)

// Currency валюта платежа
type Currency struct {
	ID       int    `db:"id" json:"id"`
	Code     string `db:"code" json:"code"` // RUB, USD, STARS, BTC, TON, USDT
	Name     string `db:"name" json:"name"`
	Symbol   string `db:"symbol" json:"symbol"`
	IsActive bool   `db:"is_active" json:"is_active"`
	// Платежи в этой валюте нельзя проверить через API, подтверждает администратор
	RequiresManualConfirmation bool `db:"requires_manual_confirmation" json:"requires_manual_confirmation"`
}

// TableName задает имя таблицы в БД
func (Currency) TableName() string {
	return "currencies"
}

// Decimals возвращает точность округления цены для валюты.
// Точность - свойство валюты, а не способа оплаты.
func (c *Currency) Decimals() int32 {
	switch c.Code {
	case CurrencyRUB, CurrencyUSD, CurrencyUSDT:
		return 2
	case CurrencyStars:
		return 0
	default:
		// Криптовалюты с высокой точностью (BTC, TON)
		return 8
	}
}
