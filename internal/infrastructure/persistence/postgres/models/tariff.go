// internal/infrastructure/persistence/postgres/models/tariff.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TariffPlan тарифный план: длительность доступа к одному каналу за фиксированную цену.
// После появления ссылающихся подписок план не меняется, кроме цены и флага активности.
type TariffPlan struct {
	ID           int             `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`                   // Название тарифа (например, "1 месяц")
	Code         string          `db:"code" json:"code"`                   // Стабильный внешний код (например, "1_month")
	BasePrice    decimal.Decimal `db:"base_price" json:"base_price"`       // Базовая цена в рублях
	DurationDays int             `db:"duration_days" json:"duration_days"` // Длительность подписки в днях
	ChannelID    int             `db:"channel_id" json:"channel_id"`       // Канал, к которому дает доступ
	IsActive     bool            `db:"is_active" json:"is_active"`
	DisplayOrder int             `db:"display_order" json:"display_order"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// TableName задает имя таблицы в БД
func (TariffPlan) TableName() string {
	return "tariff_plans"
}

// TariffPrice цена тарифа в конкретной валюте
type TariffPrice struct {
	ID         int             `db:"id" json:"id"`
	TariffID   int             `db:"tariff_id" json:"tariff_id"`
	CurrencyID int             `db:"currency_id" json:"currency_id"`
	Price      decimal.Decimal `db:"price" json:"price"`
	IsActive   bool            `db:"is_active" json:"is_active"`
}

// TableName задает имя таблицы в БД
func (TariffPrice) TableName() string {
	return "tariff_prices"
}
