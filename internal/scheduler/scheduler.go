// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"

	"channel-subscription-bot/internal/core/domain/access"
	"channel-subscription-bot/internal/core/domain/subscription"
	"channel-subscription-bot/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Messenger отправляет уведомления пользователям
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Scheduler периодические задачи обслуживания подписок
type Scheduler struct {
	cron       *cron.Cron
	subs       *subscription.Manager
	gate       *access.Gate
	messenger  Messenger
	notifyDays int
	logger     *logger.Logger
}

// NewScheduler создает планировщик
func NewScheduler(
	subs *subscription.Manager,
	gate *access.Gate,
	messenger Messenger,
	notifyDays int,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		subs:       subs,
		gate:       gate,
		messenger:  messenger,
		notifyDays: notifyDays,
		logger:     log,
	}
}

// Start регистрирует задачи и запускает планировщик.
// sweepSchedule - cron-выражение ежедневной уборки истекших подписок.
func (s *Scheduler) Start(sweepSchedule string) error {
	if _, err := s.cron.AddFunc(sweepSchedule, func() {
		s.RunSweep(context.Background())
	}); err != nil {
		return fmt.Errorf("ошибка регистрации задачи уборки: %w", err)
	}

	// Напоминания об истечении отправляются утром, чтобы их читали
	if _, err := s.cron.AddFunc("0 10 * * *", func() {
		s.RunExpiryNotifications(context.Background())
	}); err != nil {
		return fmt.Errorf("ошибка регистрации задачи напоминаний: %w", err)
	}

	s.cron.Start()
	s.logger.Info("⏰ Планировщик запущен: уборка по расписанию %q", sweepSchedule)
	return nil
}

// Stop останавливает планировщик, дожидаясь текущих задач
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("⏰ Планировщик остановлен")
}

// RunSweep отзывает доступ по истекшим подпискам и деактивирует их.
// Порядок важен: сначала отзыв доступа по еще активным записям,
// потом массовая деактивация. Повторный запуск безвреден.
func (s *Scheduler) RunSweep(ctx context.Context) {
	expired, err := s.subs.ExpiredActive(ctx)
	if err != nil {
		s.logger.Error("❌ Ошибка получения истекших подписок: %v", err)
		return
	}

	for _, sub := range expired {
		if err := s.gate.Revoke(ctx, sub.TelegramID, sub.TelegramChatID); err != nil {
			s.logger.Error("❌ Не удалось отозвать доступ tg:%d к чату %d: %v", sub.TelegramID, sub.TelegramChatID, err)
			// Подписка все равно деактивируется: доступ отзовется при следующей заявке
		}

		text := fmt.Sprintf("⌛ Ваша подписка %q истекла. Отправьте /start, чтобы продлить.", sub.PlanName)
		if err := s.messenger.SendMessage(ctx, sub.TelegramID, text); err != nil {
			s.logger.Warn("⚠️ Не удалось уведомить tg:%d об истечении: %v", sub.TelegramID, err)
		}
	}

	count, err := s.subs.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("❌ Ошибка деактивации истекших подписок: %v", err)
		return
	}

	s.logger.Info("🧹 Уборка завершена: отозвано %d, деактивировано %d", len(expired), count)
}

// RunExpiryNotifications предупреждает о скором истечении подписки
func (s *Scheduler) RunExpiryNotifications(ctx context.Context) {
	expiring, err := s.subs.FindExpiringWithin(ctx, s.notifyDays)
	if err != nil {
		s.logger.Error("❌ Ошибка получения истекающих подписок: %v", err)
		return
	}

	for _, sub := range expiring {
		text := fmt.Sprintf("⏳ Подписка %q истекает %s. Продлите заранее, чтобы не потерять доступ: /start",
			sub.PlanName, sub.EndDate.Format("02.01.2006"))
		if err := s.messenger.SendMessage(ctx, sub.TelegramID, text); err != nil {
			s.logger.Warn("⚠️ Не удалось отправить напоминание tg:%d: %v", sub.TelegramID, err)
		}
	}

	if len(expiring) > 0 {
		s.logger.Info("📨 Отправлено напоминаний об истечении: %d", len(expiring))
	}
}
