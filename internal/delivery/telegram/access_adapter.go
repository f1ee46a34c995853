// internal/delivery/telegram/access_adapter.go
package telegram

import (
	"context"

	"channel-subscription-bot/internal/core/domain/access"
)

// AccessAdapter адаптирует клиент Bot API к интерфейсу шлюза доступа
type AccessAdapter struct {
	client *Client
}

// NewAccessAdapter создает адаптер
func NewAccessAdapter(client *Client) *AccessAdapter {
	return &AccessAdapter{client: client}
}

// GetChatMember возвращает статус участника
func (a *AccessAdapter) GetChatMember(ctx context.Context, chatID, userID int64) (*access.ChatMemberInfo, error) {
	member, err := a.client.GetChatMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	return &access.ChatMemberInfo{
		Status:   member.Status,
		IsMember: member.IsMember(),
	}, nil
}

// BanChatMember блокирует участника
func (a *AccessAdapter) BanChatMember(ctx context.Context, chatID, userID int64) error {
	return a.client.BanChatMember(ctx, chatID, userID)
}

// UnbanChatMember снимает блокировку
func (a *AccessAdapter) UnbanChatMember(ctx context.Context, chatID, userID int64) error {
	return a.client.UnbanChatMember(ctx, chatID, userID)
}

// ApproveChatJoinRequest одобряет заявку
func (a *AccessAdapter) ApproveChatJoinRequest(ctx context.Context, chatID, userID int64) error {
	return a.client.ApproveChatJoinRequest(ctx, chatID, userID)
}

// DeclineChatJoinRequest отклоняет заявку
func (a *AccessAdapter) DeclineChatJoinRequest(ctx context.Context, chatID, userID int64) error {
	return a.client.DeclineChatJoinRequest(ctx, chatID, userID)
}

// SendMessage отправляет сообщение пользователю
func (a *AccessAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	return a.client.SendMessage(ctx, chatID, text)
}

// CreateInviteLink создает ссылку-приглашение с заявкой на вступление
func (a *AccessAdapter) CreateInviteLink(ctx context.Context, chatID int64) (string, error) {
	return a.client.CreateChatInviteLink(ctx, chatID, "Подписка")
}
