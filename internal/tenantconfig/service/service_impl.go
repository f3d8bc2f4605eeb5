package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/numeratel/numera/internal/clock"
	"github.com/numeratel/numera/internal/tenantconfig/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tenantconfig.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// GetActive resolves the tenant's active credentials. Missing rows and
// transient read failures both yield nil so webhook handling can fall back
// to the configured verification policy instead of hard-failing.
func (s *Service) GetActive(ctx context.Context, tenantID string) *domain.PaymentConfig {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil
	}

	cfg, err := s.repo.FindActive(ctx, s.db, tenantID)
	if err != nil {
		s.log.Warn("tenant config lookup failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return nil
	}
	return cfg
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertRequest) (*domain.PaymentConfig, error) {
	req.TenantID = strings.TrimSpace(req.TenantID)
	if _, err := uuid.Parse(req.TenantID); err != nil {
		return nil, domain.ErrInvalidTenant
	}
	req.ProviderKeyID = strings.TrimSpace(req.ProviderKeyID)
	req.ProviderKeySecret = strings.TrimSpace(req.ProviderKeySecret)
	if req.ProviderKeyID == "" || req.ProviderKeySecret == "" {
		return nil, domain.ErrInvalidConfig
	}

	now := s.clock.Now()
	cfg := &domain.PaymentConfig{
		ID:                s.genID.Generate(),
		TenantID:          req.TenantID,
		ProviderKeyID:     req.ProviderKeyID,
		ProviderKeySecret: req.ProviderKeySecret,
		WebhookSecret:     strings.TrimSpace(req.WebhookSecret),
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Deactivate(ctx, tx, req.TenantID, now); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, cfg)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tenant payment config updated", zap.String("tenant_id", req.TenantID))
	return cfg, nil
}

func (s *Service) GetView(ctx context.Context, tenantID string) (*domain.View, error) {
	tenantID = strings.TrimSpace(tenantID)
	if _, err := uuid.Parse(tenantID); err != nil {
		return nil, domain.ErrInvalidTenant
	}

	cfg, err := s.repo.FindActive(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, domain.ErrNotFound
	}

	return &domain.View{
		TenantID:      cfg.TenantID,
		ProviderKeyID: cfg.ProviderKeyID,
		KeySecret:     domain.MaskSecret(cfg.ProviderKeySecret),
		WebhookSecret: domain.MaskSecret(cfg.WebhookSecret),
		IsActive:      cfg.IsActive,
		UpdatedAt:     cfg.UpdatedAt,
	}, nil
}
