package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	ExistsByProviderPaymentID(ctx context.Context, db *gorm.DB, providerPaymentID string) (bool, error)
	FindByProviderPaymentID(ctx context.Context, db *gorm.DB, providerPaymentID string) (*Transaction, error)

	// Insert adds a new ledger row. It returns false without error when the
	// provider payment id already exists (unique-constraint conflict), so the
	// caller can switch to the update branch.
	Insert(ctx context.Context, db *gorm.DB, txn *Transaction) (bool, error)

	// UpdateStatus mutates status, failure_reason and updated_at only.
	// Returns the number of rows updated.
	UpdateStatus(ctx context.Context, db *gorm.DB, providerPaymentID string, status Status, failureReason *string, at time.Time) (int64, error)

	List(ctx context.Context, db *gorm.DB, filter Filter) ([]Transaction, error)
	Summarize(ctx context.Context, db *gorm.DB, filter Filter) (Summary, error)

	CountByStatus(ctx context.Context, db *gorm.DB, statuses ...Status) (int64, error)
	TotalAmount(ctx context.Context, db *gorm.DB) (float64, error)
	CountAll(ctx context.Context, db *gorm.DB) (int64, error)
	ActiveTenants(ctx context.Context, db *gorm.DB) (int64, error)
	DayTotals(ctx context.Context, db *gorm.DB, from, to time.Time) (int64, float64, error)
}
