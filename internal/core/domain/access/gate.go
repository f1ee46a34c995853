// internal/core/domain/access/gate.go
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"
	channel_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/channel"
	sub_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/subscription"
	"channel-subscription-bot/pkg/logger"
)

// accessCacheTTL время жизни кэша проверки доступа
const accessCacheTTL = 5 * time.Minute

// ChannelAPI - операции Bot API, нужные для управления доступом к каналу
type ChannelAPI interface {
	GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMemberInfo, error)
	BanChatMember(ctx context.Context, chatID, userID int64) error
	UnbanChatMember(ctx context.Context, chatID, userID int64) error
	ApproveChatJoinRequest(ctx context.Context, chatID, userID int64) error
	DeclineChatJoinRequest(ctx context.Context, chatID, userID int64) error
	SendMessage(ctx context.Context, chatID int64, text string) error
	CreateInviteLink(ctx context.Context, chatID int64) (string, error)
}

// ChatMemberInfo - статус участника канала
type ChatMemberInfo struct {
	Status   string
	IsMember bool
}

// Cache - кэш результатов проверки доступа
type Cache interface {
	GetAccess(ctx context.Context, telegramID, chatID int64) (bool, error)
	SetAccess(ctx context.Context, telegramID, chatID int64, hasAccess bool, ttl time.Duration) error
	DeleteAccess(ctx context.Context, telegramID, chatID int64) error
}

// Gate контролирует доступ пользователей к закрытым каналам.
// Источник истины - активные подписки в БД, кэш лишь снижает нагрузку.
type Gate struct {
	subRepo     sub_repo.SubscriptionRepository
	channelRepo channel_repo.ChannelRepository
	api         ChannelAPI
	cache       Cache // может быть nil
	logger      *logger.Logger
}

// NewGate создает шлюз доступа
func NewGate(
	subRepo sub_repo.SubscriptionRepository,
	channelRepo channel_repo.ChannelRepository,
	api ChannelAPI,
	cache Cache,
	log *logger.Logger,
) *Gate {
	return &Gate{
		subRepo:     subRepo,
		channelRepo: channelRepo,
		api:         api,
		cache:       cache,
		logger:      log,
	}
}

// HasAccess проверяет, есть ли у пользователя активная подписка на канал
func (g *Gate) HasAccess(ctx context.Context, telegramID, chatID int64) (bool, error) {
	if g.cache != nil {
		if hasAccess, err := g.cache.GetAccess(ctx, telegramID, chatID); err == nil {
			return hasAccess, nil
		}
	}

	_, err := g.subRepo.GetActiveByTelegramAndChat(ctx, telegramID, chatID)
	hasAccess := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("ошибка проверки доступа tg:%d chat:%d: %w", telegramID, chatID, err)
	}

	if g.cache != nil {
		if cacheErr := g.cache.SetAccess(ctx, telegramID, chatID, hasAccess, accessCacheTTL); cacheErr != nil {
			g.logger.Warn("⚠️ Не удалось закэшировать доступ tg:%d chat:%d: %v", telegramID, chatID, cacheErr)
		}
	}

	return hasAccess, nil
}

// HandleJoinRequest обрабатывает заявку на вступление в канал:
// подписчикам - одобрение, остальным - отказ
func (g *Gate) HandleJoinRequest(ctx context.Context, chatID, telegramID int64) error {
	hasAccess, err := g.HasAccess(ctx, telegramID, chatID)
	if err != nil {
		return err
	}

	if hasAccess {
		if err := g.api.ApproveChatJoinRequest(ctx, chatID, telegramID); err != nil {
			return fmt.Errorf("ошибка одобрения заявки tg:%d chat:%d: %w", telegramID, chatID, err)
		}
		g.logger.Info("✅ Заявка tg:%d на канал %d одобрена", telegramID, chatID)
		return nil
	}

	if err := g.api.DeclineChatJoinRequest(ctx, chatID, telegramID); err != nil {
		return fmt.Errorf("ошибка отклонения заявки tg:%d chat:%d: %w", telegramID, chatID, err)
	}
	g.logger.Info("🚫 Заявка tg:%d на канал %d отклонена: нет активной подписки", telegramID, chatID)
	return nil
}

// Grant открывает пользователю доступ к каналу после оплаты:
// снимает возможный бан и отправляет ссылку-приглашение в личку
func (g *Gate) Grant(ctx context.Context, telegramID int64, channelID int) error {
	ch, err := g.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return fmt.Errorf("ошибка получения канала %d: %w", channelID, err)
	}

	// Снимаем бан, если пользователя раньше выкидывали за истекшую подписку
	if err := g.api.UnbanChatMember(ctx, ch.TelegramChatID, telegramID); err != nil {
		g.logger.Warn("⚠️ Не удалось снять бан tg:%d в канале %s: %v", telegramID, ch.Name, err)
	}

	if g.cache != nil {
		if err := g.cache.DeleteAccess(ctx, telegramID, ch.TelegramChatID); err != nil {
			g.logger.Warn("⚠️ Не удалось сбросить кэш доступа tg:%d: %v", telegramID, err)
		}
	}

	// У канала может не быть постоянной ссылки, тогда создаем ее через Bot API
	inviteLink := ch.InviteLink
	if inviteLink == "" {
		inviteLink, err = g.api.CreateInviteLink(ctx, ch.TelegramChatID)
		if err != nil {
			return fmt.Errorf("ошибка создания ссылки-приглашения для канала %s: %w", ch.Name, err)
		}
	}

	text := fmt.Sprintf("🎉 Оплата подтверждена! Доступ к каналу <b>%s</b> открыт.\n\nСсылка для вступления: %s", ch.Name, inviteLink)
	if err := g.api.SendMessage(ctx, telegramID, text); err != nil {
		return fmt.Errorf("ошибка отправки приглашения tg:%d: %w", telegramID, err)
	}

	g.logger.Info("🔓 Доступ tg:%d к каналу %s открыт", telegramID, ch.Name)
	return nil
}

// Revoke отзывает доступ к каналу. Участник выкидывается парой бан + разбан:
// бан удаляет из канала, немедленный разбан позволяет вернуться после новой оплаты.
func (g *Gate) Revoke(ctx context.Context, telegramID, chatID int64) error {
	member, err := g.api.GetChatMember(ctx, chatID, telegramID)
	if err != nil {
		return fmt.Errorf("ошибка получения статуса tg:%d в чате %d: %w", telegramID, chatID, err)
	}

	// Владельца и администраторов канала не трогаем
	if member.Status == "creator" || member.Status == "administrator" {
		g.logger.Warn("⚠️ Пропуск отзыва доступа tg:%d: статус %s", telegramID, member.Status)
		return nil
	}

	if member.IsMember {
		if err := g.api.BanChatMember(ctx, chatID, telegramID); err != nil {
			return fmt.Errorf("ошибка блокировки tg:%d в чате %d: %w", telegramID, chatID, err)
		}

		// Разбан сразу после бана: иначе пользователь не сможет вернуться
		if err := g.api.UnbanChatMember(ctx, chatID, telegramID); err != nil {
			g.logger.Warn("⚠️ Не удалось снять бан tg:%d после отзыва доступа: %v", telegramID, err)
		}
	}

	if g.cache != nil {
		if err := g.cache.DeleteAccess(ctx, telegramID, chatID); err != nil {
			g.logger.Warn("⚠️ Не удалось сбросить кэш доступа tg:%d: %v", telegramID, err)
		}
	}

	g.logger.Info("🔒 Доступ tg:%d к каналу %d отозван", telegramID, chatID)
	return nil
}
