// internal/infrastructure/persistence/postgres/models/subscription.go
package models

import "time"

// Subscription подписка пользователя на тарифный план.
// Инвариант: не более одной активной подписки на пару (пользователь, канал).
type Subscription struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	PlanID    int       `db:"plan_id" json:"plan_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"` // Конец последнего оплаченного дня, 23:59:59
	IsActive  bool      `db:"is_active" json:"is_active"`
}

// TableName задает имя таблицы в БД
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsExpired проверяет, истекла ли подписка на момент now
func (s *Subscription) IsExpired(now time.Time) bool {
	return s.EndDate.Before(now)
}

// ExpiringSubscription подписка с данными для уведомления пользователя
type ExpiringSubscription struct {
	Subscription
	PlanName       string `db:"plan_name" json:"plan_name"`
	TelegramID     int64  `db:"telegram_id" json:"telegram_id"`
	TelegramChatID int64  `db:"telegram_chat_id" json:"telegram_chat_id"` // chat_id канала
}
