package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	txdomain "github.com/numeratel/numera/internal/transaction/domain"
	"gorm.io/gorm"
)

var (
	ErrInvalidTenant     = errors.New("invalid_tenant")
	ErrSignatureMismatch = errors.New("signature_mismatch")
	ErrInvalidPayload    = errors.New("invalid_webhook_payload")
	ErrRateLimited       = errors.New("rate_limited")
)

// EventRecord is the audit row written for every accepted delivery, before
// reconciliation runs. Outcome fields are filled in afterwards; a crash in
// between leaves a row with a null processed_at, which is the signal to
// investigate.
type EventRecord struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	TenantID          string       `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:ux_webhook_events_tenant_fingerprint"`
	EventName         string       `json:"event_name" gorm:"type:text;not null"`
	EventKind         string       `json:"event_kind" gorm:"type:text;not null"`
	Fingerprint       string       `json:"fingerprint" gorm:"type:text;uniqueIndex:ux_webhook_events_tenant_fingerprint"`
	ProviderPaymentID string       `json:"provider_payment_id" gorm:"type:text;index"`
	Outcome           string       `json:"outcome" gorm:"type:text"`
	Success           bool         `json:"success"`
	Message           string       `json:"message" gorm:"type:text"`
	ReceivedAt        time.Time    `json:"received_at" gorm:"not null"`
	ProcessedAt       *time.Time   `json:"processed_at,omitempty"`
}

func (EventRecord) TableName() string { return "webhook_events" }

type IngestRequest struct {
	TenantID  string
	Signature string
	Body      []byte
}

type IngestResult struct {
	EventName   string                `json:"event"`
	Outcome     txdomain.Outcome      `json:"outcome"`
	Success     bool                  `json:"success"`
	Message     string                `json:"message"`
	Transaction *txdomain.Transaction `json:"transaction,omitempty"`
}

type Service interface {
	// Ingest runs the full delivery pipeline: tenant validation, signature
	// verification, payload parsing, reconciliation. Business failures come
	// back as an unsuccessful result with a nil error; the returned error is
	// reserved for conditions that map to non-2xx responses.
	Ingest(ctx context.Context, req IngestRequest) (IngestResult, error)

	WebhookURL(resellerID string) (string, error)
}

type Repository interface {
	// Insert writes the audit row. It reports false with a nil error when a
	// row for the same tenant and fingerprint already exists, which is how a
	// provider retry of an already-seen delivery shows up.
	Insert(ctx context.Context, db *gorm.DB, rec *EventRecord) (bool, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, outcome string, success bool, message string, at time.Time) error
}
