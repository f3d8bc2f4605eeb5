package repository

import (
	"context"
	"strings"
	"time"

	pkgdb "github.com/numeratel/numera/pkg/db"

	"github.com/numeratel/numera/internal/transaction/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ExistsByProviderPaymentID(ctx context.Context, db *gorm.DB, providerPaymentID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM transactions WHERE provider_payment_id = ?`,
		providerPaymentID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindByProviderPaymentID(ctx context.Context, db *gorm.DB, providerPaymentID string) (*domain.Transaction, error) {
	var item domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM transactions WHERE provider_payment_id = ? LIMIT 1`,
		providerPaymentID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, txn *domain.Transaction) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, transaction_number, tenant_id, customer_id, transaction_type,
			payment_method, amount, currency, status, provider_payment_id,
			provider_order_id, reference_number, payment_date, failure_reason,
			customer_name, customer_email, customer_phone, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.TransactionNumber,
		txn.TenantID,
		txn.CustomerID,
		txn.Type,
		txn.PaymentMethod,
		txn.Amount,
		txn.Currency,
		txn.Status,
		txn.ProviderPaymentID,
		txn.ProviderOrderID,
		txn.ReferenceNumber,
		txn.PaymentDate,
		txn.FailureReason,
		txn.CustomerName,
		txn.CustomerEmail,
		txn.CustomerPhone,
		txn.Notes,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if res.Error != nil {
		if pkgdb.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, providerPaymentID string, status domain.Status, failureReason *string, at time.Time) (int64, error) {
	var res *gorm.DB
	if failureReason != nil {
		res = db.WithContext(ctx).Exec(
			`UPDATE transactions
			 SET status = ?, failure_reason = ?, updated_at = ?
			 WHERE provider_payment_id = ?`,
			status,
			*failureReason,
			at,
			providerPaymentID,
		)
	} else {
		res = db.WithContext(ctx).Exec(
			`UPDATE transactions
			 SET status = ?, updated_at = ?
			 WHERE provider_payment_id = ?`,
			status,
			at,
			providerPaymentID,
		)
	}
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func buildFilterClause(filter domain.Filter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if tenantID := strings.TrimSpace(filter.TenantID); tenantID != "" {
		clauses = append(clauses, "tenant_id = ?")
		args = append(args, tenantID)
	}
	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, status)
	}
	if filter.StartDate != nil {
		clauses = append(clauses, "payment_date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		clauses = append(clauses, "payment_date <= ?")
		args = append(args, *filter.EndDate)
	}

	return strings.Join(clauses, " AND "), args
}

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

// clampLimit defaults an unset page size and caps an oversized one.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	default:
		return limit
	}
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.Filter) ([]domain.Transaction, error) {
	where, args := buildFilterClause(filter)

	limit := clampLimit(filter.Limit)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	var rows []domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM transactions
		 WHERE `+where+`
		 ORDER BY payment_date DESC, id DESC
		 LIMIT ? OFFSET ?`,
		args...,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) Summarize(ctx context.Context, db *gorm.DB, filter domain.Filter) (domain.Summary, error) {
	where, args := buildFilterClause(filter)

	var summary domain.Summary
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(1) AS total_count,
			COALESCE(SUM(amount), 0) AS total_amount,
			COALESCE(SUM(CASE WHEN status IN ('success', 'authorized') THEN 1 ELSE 0 END), 0) AS successful_count,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) AS failed_count
		 FROM transactions
		 WHERE `+where,
		args...,
	).Scan(&summary).Error
	if err != nil {
		return domain.Summary{}, err
	}
	return summary, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, statuses ...domain.Status) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM transactions WHERE status IN ?`,
		statuses,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) TotalAmount(ctx context.Context, db *gorm.DB) (float64, error) {
	var total float64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM transactions`,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) CountAll(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM transactions`,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) ActiveTenants(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(DISTINCT tenant_id) FROM transactions`,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) DayTotals(ctx context.Context, db *gorm.DB, from, to time.Time) (int64, float64, error) {
	var row struct {
		Count  int64
		Amount float64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) AS count, COALESCE(SUM(amount), 0) AS amount
		 FROM transactions
		 WHERE payment_date >= ? AND payment_date < ?`,
		from,
		to,
	).Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Count, row.Amount, nil
}
