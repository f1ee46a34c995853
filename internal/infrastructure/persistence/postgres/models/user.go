// internal/infrastructure/persistence/postgres/models/user.go
package models

import "time"

// User пользователь бота
type User struct {
	ID         int64     `db:"id" json:"id"`
	TelegramID int64     `db:"telegram_id" json:"telegram_id"` // ID пользователя в Telegram
	Username   *string   `db:"username" json:"username,omitempty"`
	FullName   *string   `db:"full_name" json:"full_name,omitempty"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// TableName задает имя таблицы в БД
func (User) TableName() string {
	return "users"
}
