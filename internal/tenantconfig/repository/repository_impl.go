package repository

import (
	"context"
	"time"

	"github.com/numeratel/numera/internal/tenantconfig/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, tenantID string) (*domain.PaymentConfig, error) {
	var item domain.PaymentConfig
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, provider_key_id, provider_key_secret, webhook_secret,
			is_active, created_at, updated_at
		 FROM tenant_payment_configs
		 WHERE tenant_id = ? AND is_active = TRUE
		 ORDER BY created_at DESC
		 LIMIT 1`,
		tenantID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, tenantID string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tenant_payment_configs
		 SET is_active = FALSE, updated_at = ?
		 WHERE tenant_id = ? AND is_active = TRUE`,
		at,
		tenantID,
	).Error
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, cfg *domain.PaymentConfig) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tenant_payment_configs (
			id, tenant_id, provider_key_id, provider_key_secret, webhook_secret,
			is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.ID,
		cfg.TenantID,
		cfg.ProviderKeyID,
		cfg.ProviderKeySecret,
		cfg.WebhookSecret,
		cfg.IsActive,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	).Error
}
