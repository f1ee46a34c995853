// internal/infrastructure/persistence/postgres/repository/users/repository.go
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"

	"github.com/jmoiron/sqlx"
)

// UserRepository интерфейс репозитория пользователей
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetOrCreate(ctx context.Context, telegramID int64, username, fullName *string) (*models.User, error)
}

// userRepositoryImpl реализация UserRepository
type userRepositoryImpl struct {
	db *sqlx.DB
}

// NewUserRepository создает новый репозиторий пользователей
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepositoryImpl{db: db}
}

// GetByID получает пользователя по внутреннему ID
func (r *userRepositoryImpl) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
	SELECT * FROM users WHERE id = $1
	`

	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя по ID %d: %w", id, err)
	}

	return &user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *userRepositoryImpl) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `
	SELECT * FROM users WHERE telegram_id = $1
	`

	var user models.User
	if err := r.db.GetContext(ctx, &user, query, telegramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя по telegram_id %d: %w", telegramID, err)
	}

	return &user, nil
}

// GetOrCreate находит пользователя по Telegram ID или регистрирует нового.
// Вызывается обработчиком первого контакта, поэтому обновляет username и имя.
func (r *userRepositoryImpl) GetOrCreate(ctx context.Context, telegramID int64, username, fullName *string) (*models.User, error) {
	query := `
	INSERT INTO users (telegram_id, username, full_name, is_active)
	VALUES ($1, $2, $3, true)
	ON CONFLICT (telegram_id) DO UPDATE SET
		username = COALESCE(EXCLUDED.username, users.username),
		full_name = COALESCE(EXCLUDED.full_name, users.full_name)
	RETURNING *
	`

	var user models.User
	if err := r.db.GetContext(ctx, &user, query, telegramID, username, fullName); err != nil {
		return nil, fmt.Errorf("ошибка регистрации пользователя %d: %w", telegramID, err)
	}

	return &user, nil
}
