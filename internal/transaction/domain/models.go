package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrInvalidEvent   = errors.New("invalid_event")
	ErrMissingEntity  = errors.New("missing_payload_entity")
	ErrNotFound       = errors.New("transaction_not_found")
	ErrInvalidPayment = errors.New("invalid_payment_entity")
)

// Status is the internal transaction status vocabulary.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

// providerStatus is the fixed mapping from Razorpay status vocabulary.
// Unrecognized provider statuses pass through verbatim; that is an extension
// point, not an error.
var providerStatus = map[string]Status{
	"created":    StatusPending,
	"authorized": StatusAuthorized,
	"captured":   StatusSuccess,
	"failed":     StatusFailed,
	"refunded":   StatusRefunded,
}

// StatusFromProvider maps a provider status to the internal vocabulary.
func StatusFromProvider(raw string) Status {
	raw = strings.TrimSpace(raw)
	if mapped, ok := providerStatus[raw]; ok {
		return mapped
	}
	return Status(raw)
}

// Transaction types.
const (
	TypePayment = "payment"
	TypeRenewal = "renewal"
	TypeRefund  = "refund"
)

// Transaction is one ledger row for a monetary event. ProviderPaymentID is
// the dedup key: at most one row exists per non-null provider payment id.
// After creation only Status, FailureReason and UpdatedAt may change.
type Transaction struct {
	ID                snowflake.ID   `json:"id" gorm:"primaryKey"`
	TransactionNumber string         `json:"transaction_number" gorm:"type:text;not null"`
	TenantID          string         `json:"tenant_id" gorm:"type:uuid;not null;index"`
	CustomerID        *string        `json:"customer_id,omitempty" gorm:"type:text"`
	Type              string         `json:"transaction_type" gorm:"column:transaction_type;type:text;not null"`
	PaymentMethod     string         `json:"payment_method" gorm:"type:text"`
	Amount            float64        `json:"amount" gorm:"type:decimal(14,2);not null"`
	Currency          string         `json:"currency" gorm:"type:text;not null"`
	Status            Status         `json:"status" gorm:"type:text;not null;index"`
	ProviderPaymentID string         `json:"provider_payment_id" gorm:"type:text;uniqueIndex:ux_transactions_provider_payment_id"`
	ProviderOrderID   string         `json:"provider_order_id" gorm:"type:text"`
	ReferenceNumber   string         `json:"reference_number" gorm:"type:text"`
	PaymentDate       time.Time      `json:"payment_date" gorm:"not null"`
	FailureReason     *string        `json:"failure_reason,omitempty" gorm:"type:text"`
	CustomerName      string         `json:"customer_name" gorm:"type:text"`
	CustomerEmail     string         `json:"customer_email" gorm:"type:text"`
	CustomerPhone     string         `json:"customer_phone" gorm:"type:text"`
	Notes             datatypes.JSON `json:"notes,omitempty" gorm:"type:jsonb"`
	CreatedAt         time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time      `json:"updated_at" gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

// Outcome says what a reconciliation did to the ledger.
type Outcome string

const (
	OutcomeCreated      Outcome = "created"
	OutcomeUpdated      Outcome = "updated"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeAcknowledged Outcome = "acknowledged"
)

// ReconcileResult reports the business outcome of one webhook event. The
// transport layer acknowledges the provider with HTTP 200 regardless, so
// Success carries the business verdict separately.
type ReconcileResult struct {
	Outcome     Outcome      `json:"outcome"`
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// Filter narrows transaction listings. Zero values mean "no filter".
type Filter struct {
	TenantID  string
	Status    Status
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// Summary accompanies every listing.
type Summary struct {
	TotalCount      int64   `json:"total_count"`
	TotalAmount     float64 `json:"total_amount"`
	SuccessfulCount int64   `json:"successful_count"`
	FailedCount     int64   `json:"failed_count"`
}

// ListResult bundles rows with their summary.
type ListResult struct {
	Rows    []Transaction `json:"transactions"`
	Summary Summary       `json:"summary"`
}

// Stats is the dashboard aggregate view. Sub-aggregates degrade to zero on
// partial store failures rather than failing the whole call.
type Stats struct {
	TotalCount      int64   `json:"total_count"`
	TotalAmount     float64 `json:"total_amount"`
	SuccessfulCount int64   `json:"successful_count"`
	FailedCount     int64   `json:"failed_count"`
	PendingCount    int64   `json:"pending_count"`
	RefundedCount   int64   `json:"refunded_count"`
	ActiveTenants   int64   `json:"active_tenants"`
	TodayCount      int64   `json:"today_count"`
	TodayAmount     float64 `json:"today_amount"`
}
