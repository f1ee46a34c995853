// internal/infrastructure/persistence/postgres/repository/payment/repository.go
package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres/repository"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Payment, error)
	SetExternalID(ctx context.Context, id int64, externalID string) error
	SetNotes(ctx context.Context, id int64, notes string) error

	// FinishPending переводит платеж из pending в конечный статус.
	// Условие status = 'pending' в запросе дает атомарность на уровне строки:
	// из двух конкурентных вызовов ровно один получит обновленную запись.
	FinishPending(ctx context.Context, id int64, status models.PaymentStatus, notes *string, processedAt time.Time) (*models.Payment, error)

	GetPending(ctx context.Context) ([]*models.Payment, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Payment, error)
	CountByStatus(ctx context.Context, status models.PaymentStatus) (int, error)
	GetRevenueSummary(ctx context.Context) (*models.PaymentSummary, error)
}

// paymentRepositoryImpl реализация PaymentRepository
type paymentRepositoryImpl struct {
	db *sqlx.DB
}

// NewPaymentRepository создает новый репозиторий платежей
func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepositoryImpl{db: db}
}

// Create создает новый платеж
func (r *paymentRepositoryImpl) Create(ctx context.Context, payment *models.Payment) error {
	query := `
	INSERT INTO payments (
		user_id, plan_id, payment_method_id, currency_id,
		amount, external_id, status, notes, processed_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9
	) RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		payment.UserID,
		payment.PlanID,
		payment.PaymentMethodID,
		payment.CurrencyID,
		payment.Amount,
		payment.ExternalID,
		payment.Status,
		payment.Notes,
		payment.ProcessedAt,
	).Scan(&payment.ID, &payment.CreatedAt)

	if err != nil {
		return fmt.Errorf("ошибка создания платежа: %w", err)
	}

	return nil
}

// GetByID получает платеж по ID
func (r *paymentRepositoryImpl) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	query := `
	SELECT * FROM payments WHERE id = $1
	`

	var p models.Payment
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения платежа по ID %d: %w", id, err)
	}

	return &p, nil
}

// GetByExternalID получает платеж по внешнему ID.
// Основной поиск для дедупликации уведомлений провайдера.
func (r *paymentRepositoryImpl) GetByExternalID(ctx context.Context, externalID string) (*models.Payment, error) {
	query := `
	SELECT * FROM payments WHERE external_id = $1
	`

	var p models.Payment
	if err := r.db.GetContext(ctx, &p, query, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения платежа по external_id %s: %w", externalID, err)
	}

	return &p, nil
}

// SetExternalID привязывает внешний ID к платежу после создания инвойса у провайдера
func (r *paymentRepositoryImpl) SetExternalID(ctx context.Context, id int64, externalID string) error {
	query := `
	UPDATE payments SET external_id = $1 WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, externalID, id)
	if err != nil {
		return fmt.Errorf("ошибка привязки external_id к платежу %d: %w", id, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetNotes сохраняет примечание к платежу, например file_id скриншота чека
func (r *paymentRepositoryImpl) SetNotes(ctx context.Context, id int64, notes string) error {
	query := `
	UPDATE payments SET notes = $1 WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, notes, id)
	if err != nil {
		return fmt.Errorf("ошибка сохранения примечания к платежу %d: %w", id, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// FinishPending переводит pending-платеж в конечный статус
func (r *paymentRepositoryImpl) FinishPending(ctx context.Context, id int64, status models.PaymentStatus, notes *string, processedAt time.Time) (*models.Payment, error) {
	query := `
	UPDATE payments SET
		status = $1,
		notes = COALESCE($2, notes),
		processed_at = $3
	WHERE id = $4 AND status = 'pending'
	RETURNING *
	`

	var p models.Payment
	if err := r.db.GetContext(ctx, &p, query, status, notes, processedAt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Платеж не найден либо уже не pending
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка перевода платежа %d в статус %s: %w", id, status, err)
	}

	return &p, nil
}

// GetPending получает ожидающие платежи, новые первыми
func (r *paymentRepositoryImpl) GetPending(ctx context.Context) ([]*models.Payment, error) {
	query := `
	SELECT * FROM payments
	WHERE status = 'pending'
	ORDER BY created_at DESC
	`

	var payments []*models.Payment
	if err := r.db.SelectContext(ctx, &payments, query); err != nil {
		return nil, fmt.Errorf("ошибка получения ожидающих платежей: %w", err)
	}

	return payments, nil
}

// GetByUserID получает платежи пользователя
func (r *paymentRepositoryImpl) GetByUserID(ctx context.Context, userID int64) ([]*models.Payment, error) {
	query := `
	SELECT * FROM payments
	WHERE user_id = $1
	ORDER BY created_at DESC
	`

	var payments []*models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, userID); err != nil {
		return nil, fmt.Errorf("ошибка получения платежей пользователя %d: %w", userID, err)
	}

	return payments, nil
}

// CountByStatus подсчитывает платежи в указанном статусе
func (r *paymentRepositoryImpl) CountByStatus(ctx context.Context, status models.PaymentStatus) (int, error) {
	query := `
	SELECT COUNT(*) FROM payments WHERE status = $1
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("ошибка подсчета платежей в статусе %s: %w", status, err)
	}

	return count, nil
}

// GetRevenueSummary собирает статистику подтвержденных платежей.
// Суммы группируются по коду валюты и не складываются между валютами.
func (r *paymentRepositoryImpl) GetRevenueSummary(ctx context.Context) (*models.PaymentSummary, error) {
	type revenueRow struct {
		CurrencyCode string          `db:"currency_code"`
		Total        decimal.Decimal `db:"total"`
		Count        int             `db:"count"`
	}

	query := `
	SELECT c.code AS currency_code, SUM(p.amount) AS total, COUNT(*) AS count
	FROM payments p
	JOIN currencies c ON c.id = p.currency_id
	WHERE p.status = 'approved'
	GROUP BY c.code
	`

	var rows []revenueRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("ошибка получения статистики доходов: %w", err)
	}

	summary := &models.PaymentSummary{
		TotalByCurrency: make(map[string]decimal.Decimal),
		MethodCounts:    make(map[string]int),
	}

	for _, row := range rows {
		summary.TotalByCurrency[row.CurrencyCode] = row.Total
		summary.PaymentCount += row.Count
	}

	type methodRow struct {
		MethodCode string `db:"method_code"`
		Count      int    `db:"count"`
	}

	methodQuery := `
	SELECT pm.code AS method_code, COUNT(*) AS count
	FROM payments p
	JOIN payment_methods pm ON pm.id = p.payment_method_id
	WHERE p.status = 'approved'
	GROUP BY pm.code
	`

	var methodRows []methodRow
	if err := r.db.SelectContext(ctx, &methodRows, methodQuery); err != nil {
		return nil, fmt.Errorf("ошибка получения статистики по способам оплаты: %w", err)
	}

	for _, row := range methodRows {
		summary.MethodCounts[row.MethodCode] = row.Count
	}

	return summary, nil
}
