// internal/infrastructure/persistence/postgres/repository/channel/repository.go
package channel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"

	"github.com/jmoiron/sqlx"
)

// ChannelRepository интерфейс репозитория каналов
type ChannelRepository interface {
	GetByID(ctx context.Context, id int) (*models.Channel, error)
	GetByTelegramChatID(ctx context.Context, chatID int64) (*models.Channel, error)
	GetActive(ctx context.Context) ([]*models.Channel, error)
	Create(ctx context.Context, channel *models.Channel) error
	Update(ctx context.Context, channel *models.Channel) error
	ToggleActive(ctx context.Context, id int) (*models.Channel, error)
}

// channelRepositoryImpl реализация ChannelRepository
type channelRepositoryImpl struct {
	db *sqlx.DB
}

// NewChannelRepository создает новый репозиторий каналов
func NewChannelRepository(db *sqlx.DB) ChannelRepository {
	return &channelRepositoryImpl{db: db}
}

// GetByID получает канал по ID
func (r *channelRepositoryImpl) GetByID(ctx context.Context, id int) (*models.Channel, error) {
	query := `
	SELECT * FROM channels WHERE id = $1
	`

	var ch models.Channel
	if err := r.db.GetContext(ctx, &ch, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения канала по ID %d: %w", id, err)
	}

	return &ch, nil
}

// GetByTelegramChatID получает канал по chat_id в Telegram
func (r *channelRepositoryImpl) GetByTelegramChatID(ctx context.Context, chatID int64) (*models.Channel, error) {
	query := `
	SELECT * FROM channels WHERE telegram_chat_id = $1
	`

	var ch models.Channel
	if err := r.db.GetContext(ctx, &ch, query, chatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения канала по chat_id %d: %w", chatID, err)
	}

	return &ch, nil
}

// GetActive получает все активные каналы
func (r *channelRepositoryImpl) GetActive(ctx context.Context) ([]*models.Channel, error) {
	query := `
	SELECT * FROM channels
	WHERE is_active = true
	ORDER BY display_order, id
	`

	var channels []*models.Channel
	if err := r.db.SelectContext(ctx, &channels, query); err != nil {
		return nil, fmt.Errorf("ошибка получения активных каналов: %w", err)
	}

	return channels, nil
}

// Create создает новый канал
func (r *channelRepositoryImpl) Create(ctx context.Context, channel *models.Channel) error {
	query := `
	INSERT INTO channels (name, telegram_chat_id, invite_link, is_active, display_order)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		channel.Name,
		channel.TelegramChatID,
		channel.InviteLink,
		channel.IsActive,
		channel.DisplayOrder,
	).Scan(&channel.ID, &channel.CreatedAt)

	if err != nil {
		return fmt.Errorf("ошибка создания канала: %w", err)
	}

	return nil
}

// Update обновляет канал
func (r *channelRepositoryImpl) Update(ctx context.Context, channel *models.Channel) error {
	query := `
	UPDATE channels SET
		name = :name,
		telegram_chat_id = :telegram_chat_id,
		invite_link = :invite_link,
		is_active = :is_active,
		display_order = :display_order
	WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, channel)
	if err != nil {
		return fmt.Errorf("ошибка обновления канала %d: %w", channel.ID, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ToggleActive переключает активность канала
func (r *channelRepositoryImpl) ToggleActive(ctx context.Context, id int) (*models.Channel, error) {
	query := `
	UPDATE channels SET is_active = NOT is_active
	WHERE id = $1
	RETURNING *
	`

	var ch models.Channel
	if err := r.db.GetContext(ctx, &ch, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка переключения активности канала %d: %w", id, err)
	}

	return &ch, nil
}
