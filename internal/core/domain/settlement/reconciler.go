// internal/core/domain/settlement/reconciler.go
package settlement

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"channel-subscription-bot/internal/core/domain/access"
	"channel-subscription-bot/internal/core/domain/payment"
	"channel-subscription-bot/internal/core/domain/pricing"
	"channel-subscription-bot/internal/core/domain/subscription"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"
	currency_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/currency"
	method_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/payment_method"
	tariff_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/tariff"
	users_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/users"
	"channel-subscription-bot/pkg/logger"
)

// Reconciler сводит уведомления провайдеров с журналом платежей.
// Любое уведомление можно доставить повторно: результат обработки
// зависит только от состояния журнала, а не от числа доставок.
type Reconciler struct {
	registry *Registry
	ledger   *payment.Ledger
	pricing  *pricing.Service
	subs     *subscription.Manager
	gate     *access.Gate

	userRepo     users_repo.UserRepository
	methodRepo   method_repo.PaymentMethodRepository
	currencyRepo currency_repo.CurrencyRepository
	tariffRepo   tariff_repo.TariffRepository

	logger *logger.Logger
}

// NewReconciler создает сервис сведения платежей
func NewReconciler(
	registry *Registry,
	ledger *payment.Ledger,
	pricingSvc *pricing.Service,
	subs *subscription.Manager,
	gate *access.Gate,
	userRepo users_repo.UserRepository,
	methodRepo method_repo.PaymentMethodRepository,
	currencyRepo currency_repo.CurrencyRepository,
	tariffRepo tariff_repo.TariffRepository,
	log *logger.Logger,
) *Reconciler {
	return &Reconciler{
		registry:     registry,
		ledger:       ledger,
		pricing:      pricingSvc,
		subs:         subs,
		gate:         gate,
		userRepo:     userRepo,
		methodRepo:   methodRepo,
		currencyRepo: currencyRepo,
		tariffRepo:   tariffRepo,
		logger:       log,
	}
}

// Checkout результат инициации оплаты
type Checkout struct {
	Payment *models.Payment
	Invoice *Invoice
}

// InitiatePayment создает pending-платеж и выставляет счет у провайдера.
// Если провайдер не смог выставить счет, pending-запись отменяется,
// чтобы не копить мусор в очереди администратора.
func (r *Reconciler) InitiatePayment(ctx context.Context, telegramID int64, username, fullName *string, planID int, methodCode string) (*Checkout, error) {
	provider, err := r.registry.Get(methodCode)
	if err != nil {
		return nil, err
	}

	method, err := r.methodRepo.GetByCode(ctx, methodCode)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения способа оплаты %s: %w", methodCode, err)
	}

	quote, err := r.pricing.Quote(ctx, planID, method.ID)
	if err != nil {
		return nil, err
	}

	user, err := r.userRepo.GetOrCreate(ctx, telegramID, username, fullName)
	if err != nil {
		return nil, fmt.Errorf("ошибка регистрации пользователя tg:%d: %w", telegramID, err)
	}

	pending, err := r.ledger.Create(ctx, payment.CreateParams{
		UserID:          user.ID,
		PlanID:          planID,
		PaymentMethodID: method.ID,
		CurrencyID:      quote.Currency.ID,
		Amount:          quote.Amount,
	})
	if err != nil {
		return nil, err
	}

	invoice, err := provider.CreateInvoice(ctx, InvoiceRequest{
		Payment:     pending,
		Plan:        quote.Plan,
		Currency:    quote.Currency,
		User:        user,
		Description: fmt.Sprintf("Подписка %s на %d дн.", quote.Plan.Name, quote.Plan.DurationDays),
	})
	if err != nil {
		if _, cancelErr := r.ledger.Cancel(ctx, pending.ID); cancelErr != nil {
			r.logger.Error("❌ Не удалось отменить платеж #%d после сбоя инвойса: %v", pending.ID, cancelErr)
		}
		return nil, fmt.Errorf("ошибка выставления счета %s: %w", methodCode, err)
	}

	if invoice.ExternalID != "" {
		if err := r.ledger.AttachExternalID(ctx, pending.ID, invoice.ExternalID); err != nil {
			r.logger.Error("❌ Не удалось привязать external_id %s к платежу #%d: %v", invoice.ExternalID, pending.ID, err)
		}
		pending.ExternalID = &invoice.ExternalID
	}

	return &Checkout{Payment: pending, Invoice: invoice}, nil
}

// HandleNotification обрабатывает уведомление провайдера.
// Возврат nil означает, что уведомление можно подтвердить (в том числе
// повторы и промежуточные события); ошибка - что доставку нужно повторить.
func (r *Reconciler) HandleNotification(ctx context.Context, providerCode string, body []byte, headers http.Header) error {
	provider, err := r.registry.Get(providerCode)
	if err != nil {
		return err
	}

	note, err := provider.VerifyAndExtract(ctx, body, headers)
	if err != nil {
		return err
	}

	if !note.Paid {
		r.logger.Settlement(providerCode, note.ExternalID, "промежуточное событие, пропуск")
		return nil
	}

	return r.settle(ctx, note)
}

// settle проводит оплаченное уведомление через журнал и активирует подписку
func (r *Reconciler) settle(ctx context.Context, note *Notification) error {
	// Дедупликация по external_id: повторная доставка находит ту же запись
	if note.ExternalID != "" {
		existing, err := r.ledger.FindByExternalID(ctx, note.ExternalID)
		if err == nil {
			if existing.IsTerminal() {
				r.logger.Settlement(note.ProviderCode, note.ExternalID, "повтор, уже обработан")
				return nil
			}
			return r.approveAndFulfill(ctx, existing.ID, note)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}

	// Сопоставление с pending-записью по внутреннему ID из метаданных
	if note.PaymentID != 0 {
		existing, err := r.ledger.Get(ctx, note.PaymentID)
		if err == nil {
			if existing.IsTerminal() {
				if existing.Status == models.PaymentStatusApproved {
					r.logger.Settlement(note.ProviderCode, note.ExternalID, "повтор, уже обработан")
					return nil
				}
				// Деньги пришли по отмененному или отклоненному платежу
				r.logger.Error("❌ Оплата по платежу #%d в статусе %s, требуется ручной разбор", existing.ID, existing.Status)
				return nil
			}

			if existing.ExternalID == nil && note.ExternalID != "" {
				if err := r.ledger.AttachExternalID(ctx, existing.ID, note.ExternalID); err != nil {
					r.logger.Warn("⚠️ Не удалось привязать external_id к платежу #%d: %v", existing.ID, err)
				}
			}

			return r.approveAndFulfill(ctx, existing.ID, note)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}

	// Pending-записи нет: платеж заводится сразу подтвержденным
	return r.settleOrphan(ctx, note)
}

// settleOrphan проводит оплату, для которой не нашлось pending-записи
func (r *Reconciler) settleOrphan(ctx context.Context, note *Notification) error {
	if note.PlanID == 0 {
		return fmt.Errorf("уведомление %s/%s без тарифа и без pending-записи", note.ProviderCode, note.ExternalID)
	}

	var user *models.User
	var err error
	switch {
	case note.UserID != 0:
		user, err = r.userRepo.GetByID(ctx, note.UserID)
	case note.TelegramID != 0:
		user, err = r.userRepo.GetOrCreate(ctx, note.TelegramID, nil, nil)
	default:
		return fmt.Errorf("уведомление %s/%s не идентифицирует пользователя", note.ProviderCode, note.ExternalID)
	}
	if err != nil {
		return fmt.Errorf("ошибка идентификации пользователя по уведомлению %s: %w", note.ExternalID, err)
	}

	method, err := r.methodRepo.GetByCode(ctx, note.ProviderCode)
	if err != nil {
		return fmt.Errorf("ошибка получения способа оплаты %s: %w", note.ProviderCode, err)
	}

	cur, err := r.currencyRepo.GetByCode(ctx, note.CurrencyCode)
	if err != nil {
		return fmt.Errorf("ошибка получения валюты %s: %w", note.CurrencyCode, err)
	}

	externalID := note.ExternalID
	var extPtr *string
	if externalID != "" {
		extPtr = &externalID
	}

	approved, err := r.ledger.CreateApproved(ctx, payment.CreateParams{
		UserID:          user.ID,
		PlanID:          note.PlanID,
		PaymentMethodID: method.ID,
		CurrencyID:      cur.ID,
		Amount:          note.Amount,
		ExternalID:      extPtr,
	})
	if err != nil {
		return err
	}

	r.fulfill(ctx, approved, note.TelegramID)
	r.logger.Settlement(note.ProviderCode, note.ExternalID, "проведен без pending-записи")
	return nil
}

// approveAndFulfill подтверждает платеж и выдает подписку.
// Конкурентные повторы одного уведомления решает журнал: подписку выдает
// только вызов, который сам выполнил переход pending -> approved.
func (r *Reconciler) approveAndFulfill(ctx context.Context, paymentID int64, note *Notification) error {
	approved, applied, err := r.ledger.Approve(ctx, paymentID, nil)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidStateTransition) {
			r.logger.Error("❌ Оплата %s по платежу #%d в конечном статусе: %v", note.ExternalID, paymentID, err)
			return nil
		}
		return err
	}
	if !applied {
		r.logger.Settlement(note.ProviderCode, note.ExternalID, "повтор, уже обработан")
		return nil
	}

	r.fulfill(ctx, approved, note.TelegramID)
	r.logger.Settlement(note.ProviderCode, note.ExternalID, "проведен")
	return nil
}

// fulfill активирует подписку и открывает доступ к каналу.
// Платеж уже подтвержден, поэтому ошибки здесь логируются, но не
// откатывают подтверждение: повтор выдачи доступа - забота администратора.
func (r *Reconciler) fulfill(ctx context.Context, p *models.Payment, telegramID int64) {
	sub, err := r.subs.Activate(ctx, p.UserID, p.PlanID)
	if err != nil {
		r.logger.Error("❌ Платеж #%d подтвержден, но подписка не активирована: %v", p.ID, err)
		return
	}

	if telegramID == 0 {
		user, err := r.userRepo.GetByID(ctx, p.UserID)
		if err != nil {
			r.logger.Error("❌ Платеж #%d: не удалось получить пользователя для выдачи доступа: %v", p.ID, err)
			return
		}
		telegramID = user.TelegramID
	}

	plan, err := r.tariffRepo.GetByID(ctx, p.PlanID)
	if err != nil {
		r.logger.Error("❌ Платеж #%d: не удалось получить тариф для выдачи доступа: %v", p.ID, err)
		return
	}

	if err := r.gate.Grant(ctx, telegramID, plan.ChannelID); err != nil {
		r.logger.Error("❌ Платеж #%d: подписка #%d активна, но доступ не выдан: %v", p.ID, sub.ID, err)
	}
}

// ApproveManual подтверждает ручной платеж решением администратора.
// Повторное нажатие кнопки подтверждения не продлевает подписку второй раз.
func (r *Reconciler) ApproveManual(ctx context.Context, paymentID int64, adminNote *string) (*models.Payment, error) {
	approved, applied, err := r.ledger.Approve(ctx, paymentID, adminNote)
	if err != nil {
		return nil, err
	}
	if !applied {
		r.logger.Settlement(models.MethodManual, fmt.Sprintf("#%d", paymentID), "повтор, уже подтвержден")
		return approved, nil
	}

	r.fulfill(ctx, approved, 0)
	r.logger.Settlement(models.MethodManual, fmt.Sprintf("#%d", paymentID), "подтвержден администратором")
	return approved, nil
}

// RejectManual отклоняет ручной платеж с указанием причины
func (r *Reconciler) RejectManual(ctx context.Context, paymentID int64, reason string) (*models.Payment, error) {
	rejected, err := r.ledger.Reject(ctx, paymentID, reason)
	if err != nil {
		return nil, err
	}

	r.logger.Settlement(models.MethodManual, fmt.Sprintf("#%d", paymentID), "отклонен администратором")
	return rejected, nil
}

// CancelPending отменяет неоплаченный платеж по инициативе пользователя
func (r *Reconciler) CancelPending(ctx context.Context, paymentID int64) (*models.Payment, error) {
	return r.ledger.Cancel(ctx, paymentID)
}
