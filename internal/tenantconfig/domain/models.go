package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidConfig = errors.New("invalid_config")
	ErrNotFound      = errors.New("config_not_found")
)

// PaymentConfig holds one tenant's Razorpay credentials. Rows are never
// deleted; superseded configs are deactivated and at most one active row per
// tenant is consulted for verification and API calls.
type PaymentConfig struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	TenantID          string       `json:"tenant_id" gorm:"type:uuid;not null;index"`
	ProviderKeyID     string       `json:"provider_key_id" gorm:"type:text;not null"`
	ProviderKeySecret string       `json:"-" gorm:"type:text;not null"`
	WebhookSecret     string       `json:"-" gorm:"type:text"`
	IsActive          bool         `json:"is_active" gorm:"not null;default:true"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"not null"`
}

func (PaymentConfig) TableName() string { return "tenant_payment_configs" }

type UpsertRequest struct {
	TenantID          string `json:"tenant_id"`
	ProviderKeyID     string `json:"provider_key_id"`
	ProviderKeySecret string `json:"provider_key_secret"`
	WebhookSecret     string `json:"webhook_secret"`
}

// View is the read-model returned to dashboards: secrets are masked.
type View struct {
	TenantID      string    `json:"tenant_id"`
	ProviderKeyID string    `json:"provider_key_id"`
	KeySecret     string    `json:"provider_key_secret"`
	WebhookSecret string    `json:"webhook_secret"`
	IsActive      bool      `json:"is_active"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MaskSecret keeps the last four characters visible.
func MaskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

type Service interface {
	// GetActive returns the single active config for the tenant, or nil when
	// none exists or the read failed (logged, not propagated).
	GetActive(ctx context.Context, tenantID string) *PaymentConfig

	Upsert(ctx context.Context, req UpsertRequest) (*PaymentConfig, error)
	GetView(ctx context.Context, tenantID string) (*View, error)
}

type Repository interface {
	FindActive(ctx context.Context, db *gorm.DB, tenantID string) (*PaymentConfig, error)
	Deactivate(ctx context.Context, db *gorm.DB, tenantID string, at time.Time) error
	Insert(ctx context.Context, db *gorm.DB, cfg *PaymentConfig) error
}
