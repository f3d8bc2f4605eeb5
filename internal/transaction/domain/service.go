package domain

import (
	"context"

	"github.com/numeratel/numera/internal/razorpay"
)

// Service reconciles provider webhook events into the transaction ledger and
// serves the read side used by dashboards.
type Service interface {
	// Reconcile applies one classified provider event. Processing the same
	// provider payment id twice never produces two rows; the second
	// occurrence takes the update branch.
	Reconcile(ctx context.Context, tenantID string, event *razorpay.Event) (ReconcileResult, error)

	List(ctx context.Context, filter Filter) (ListResult, error)
	Stats(ctx context.Context) (Stats, error)
}
