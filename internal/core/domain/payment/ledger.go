// internal/core/domain/payment/ledger.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"
	payment_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/payment"
	"channel-subscription-bot/pkg/logger"

	"github.com/shopspring/decimal"
)

// ErrInvalidStateTransition попытка перевести платеж из одного конечного статуса в другой
var ErrInvalidStateTransition = errors.New("недопустимый переход статуса платежа")

// Ledger журнал платежей. Единственная точка, через которую меняются статусы:
// pending -> approved | rejected | cancelled, обратных переходов нет.
type Ledger struct {
	paymentRepo payment_repo.PaymentRepository
	logger      *logger.Logger
}

// NewLedger создает журнал платежей
func NewLedger(paymentRepo payment_repo.PaymentRepository, log *logger.Logger) *Ledger {
	return &Ledger{
		paymentRepo: paymentRepo,
		logger:      log,
	}
}

// CreateParams параметры создания платежа
type CreateParams struct {
	UserID          int64
	PlanID          int
	PaymentMethodID int
	CurrencyID      int
	Amount          decimal.Decimal
	ExternalID      *string
	Notes           *string
}

// Create создает новый платеж в статусе pending
func (l *Ledger) Create(ctx context.Context, params CreateParams) (*models.Payment, error) {
	p := &models.Payment{
		UserID:          params.UserID,
		PlanID:          params.PlanID,
		PaymentMethodID: params.PaymentMethodID,
		CurrencyID:      params.CurrencyID,
		Amount:          params.Amount,
		ExternalID:      params.ExternalID,
		Status:          models.PaymentStatusPending,
		Notes:           params.Notes,
	}

	if err := l.paymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	l.logger.Info("💳 Платеж #%d создан: user=%d plan=%d amount=%s", p.ID, p.UserID, p.PlanID, p.Amount.String())
	return p, nil
}

// CreateApproved создает платеж сразу в статусе approved.
// Используется, когда уведомление провайдера пришло раньше, чем бот успел
// завести pending-запись (или запись потерялась).
func (l *Ledger) CreateApproved(ctx context.Context, params CreateParams) (*models.Payment, error) {
	now := time.Now()

	p := &models.Payment{
		UserID:          params.UserID,
		PlanID:          params.PlanID,
		PaymentMethodID: params.PaymentMethodID,
		CurrencyID:      params.CurrencyID,
		Amount:          params.Amount,
		ExternalID:      params.ExternalID,
		Status:          models.PaymentStatusApproved,
		Notes:           params.Notes,
		ProcessedAt:     &now,
	}

	if err := l.paymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	l.logger.Info("💳 Платеж #%d создан сразу подтвержденным: user=%d plan=%d", p.ID, p.UserID, p.PlanID)
	return p, nil
}

// Approve переводит платеж в approved. Перевод из rejected или cancelled
// невозможен. Повторный вызов для уже подтвержденного платежа возвращает
// запись без ошибки, но с applied = false: из конкурентных подтверждений
// переход выполняет ровно одно, и только оно должно выдавать подписку.
func (l *Ledger) Approve(ctx context.Context, id int64, notes *string) (p *models.Payment, applied bool, err error) {
	return l.finish(ctx, id, models.PaymentStatusApproved, notes)
}

// Reject переводит платеж в rejected с указанием причины
func (l *Ledger) Reject(ctx context.Context, id int64, reason string) (*models.Payment, error) {
	p, _, err := l.finish(ctx, id, models.PaymentStatusRejected, &reason)
	return p, err
}

// Cancel переводит платеж в cancelled (отмена пользователем или сбой создания инвойса)
func (l *Ledger) Cancel(ctx context.Context, id int64) (*models.Payment, error) {
	p, _, err := l.finish(ctx, id, models.PaymentStatusCancelled, nil)
	return p, err
}

// finish общий путь перевода в конечный статус. Атомарность обеспечивает
// FinishPending: из двух конкурентных вызовов строку обновит ровно один,
// второй перечитает запись и отработает как повтор с applied = false.
func (l *Ledger) finish(ctx context.Context, id int64, status models.PaymentStatus, notes *string) (*models.Payment, bool, error) {
	updated, err := l.paymentRepo.FinishPending(ctx, id, status, notes, time.Now())
	if err == nil {
		if status == models.PaymentStatusApproved {
			l.logger.Info("✅ Платеж #%d подтвержден", updated.ID)
		} else {
			l.logger.Info("💳 Платеж #%d переведен в статус %s", updated.ID, status)
		}
		return updated, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	// Строка не обновилась: платежа нет либо он уже в конечном статусе
	existing, getErr := l.paymentRepo.GetByID(ctx, id)
	if getErr != nil {
		return nil, false, getErr
	}

	if existing.Status == status {
		l.logger.Warn("⚠️ Платеж #%d уже в статусе %s, повтор проигнорирован", id, status)
		return existing, false, nil
	}

	return nil, false, fmt.Errorf("%w: платеж #%d в статусе %s, запрошен %s",
		ErrInvalidStateTransition, id, existing.Status, status)
}

// FindByExternalID находит платеж по ID во внешней системе
func (l *Ledger) FindByExternalID(ctx context.Context, externalID string) (*models.Payment, error) {
	return l.paymentRepo.GetByExternalID(ctx, externalID)
}

// Get возвращает платеж по ID
func (l *Ledger) Get(ctx context.Context, id int64) (*models.Payment, error) {
	return l.paymentRepo.GetByID(ctx, id)
}

// AttachExternalID привязывает внешний ID после создания инвойса у провайдера
func (l *Ledger) AttachExternalID(ctx context.Context, id int64, externalID string) error {
	return l.paymentRepo.SetExternalID(ctx, id, externalID)
}

// AttachNotes сохраняет примечание к платежу, например file_id скриншота чека
func (l *Ledger) AttachNotes(ctx context.Context, id int64, notes string) error {
	return l.paymentRepo.SetNotes(ctx, id, notes)
}

// Pending возвращает ожидающие платежи для админской очереди
func (l *Ledger) Pending(ctx context.Context) ([]*models.Payment, error) {
	return l.paymentRepo.GetPending(ctx)
}

// History возвращает платежи пользователя
func (l *Ledger) History(ctx context.Context, userID int64) ([]*models.Payment, error) {
	return l.paymentRepo.GetByUserID(ctx, userID)
}

// RevenueSummary возвращает статистику подтвержденных платежей по валютам
func (l *Ledger) RevenueSummary(ctx context.Context) (*models.PaymentSummary, error) {
	return l.paymentRepo.GetRevenueSummary(ctx)
}
