// internal/infrastructure/persistence/postgres/models/channel.go
package models

import "time"

// Channel закрытый канал, доступ к которому продается по подписке
type Channel struct {
	ID             int       `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	TelegramChatID int64     `db:"telegram_chat_id" json:"telegram_chat_id"` // chat_id канала в Telegram
	InviteLink     string    `db:"invite_link" json:"invite_link"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	DisplayOrder   int       `db:"display_order" json:"display_order"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// TableName задает имя таблицы в БД
func (Channel) TableName() string {
	return "channels"
}
