package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/numeratel/numera/internal/clock"
	"github.com/numeratel/numera/internal/config"
	obsmetrics "github.com/numeratel/numera/internal/observability/metrics"
	"github.com/numeratel/numera/internal/ratelimit"
	"github.com/numeratel/numera/internal/razorpay"
	tenantdomain "github.com/numeratel/numera/internal/tenantconfig/domain"
	txdomain "github.com/numeratel/numera/internal/transaction/domain"
	"github.com/numeratel/numera/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	GenID      *snowflake.Node
	Clock      clock.Clock
	Policy     *config.PolicyHolder
	Repo       domain.Repository
	Tenants    tenantdomain.Service
	Reconciler txdomain.Service
	Limiter    *ratelimit.WebhookLimiter `optional:"true"`
	ObsMetrics *obsmetrics.Metrics       `optional:"true"`
}

// paymentLocks is the slice of the webhook limiter the reconcile path needs.
type paymentLocks interface {
	TryLockPayment(ctx context.Context, providerPaymentID string) (string, bool, error)
	ReleasePayment(ctx context.Context, providerPaymentID, token string) error
}

// lockRetryInterval paces re-attempts on a contended payment lock.
var lockRetryInterval = 25 * time.Millisecond

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        config.Config
	genID      *snowflake.Node
	clock      clock.Clock
	policy     *config.PolicyHolder
	repo       domain.Repository
	tenants    tenantdomain.Service
	reconciler txdomain.Service
	limiter    *ratelimit.WebhookLimiter
	locks      paymentLocks
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("webhook.service"),
		cfg:        p.Cfg,
		genID:      p.GenID,
		clock:      p.Clock,
		policy:     p.Policy,
		repo:       p.Repo,
		tenants:    p.Tenants,
		reconciler: p.Reconciler,
		limiter:    p.Limiter,
		locks:      p.Limiter,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResult, error) {
	tenantID := strings.TrimSpace(req.TenantID)
	if _, err := uuid.Parse(tenantID); err != nil {
		return domain.IngestResult{}, domain.ErrInvalidTenant
	}

	if allowed, err := s.limiter.AllowTenant(ctx, tenantID); err != nil {
		s.log.Warn("rate limiter unavailable, allowing delivery",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	} else if !allowed {
		return domain.IngestResult{}, domain.ErrRateLimited
	}

	if err := s.verify(ctx, tenantID, req); err != nil {
		return domain.IngestResult{}, err
	}

	event, err := razorpay.ParseEvent(req.Body)
	if err != nil {
		return domain.IngestResult{}, domain.ErrInvalidPayload
	}

	kind := razorpay.Classify(event.Name)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, event.Name)
	}

	record := s.logDelivery(ctx, tenantID, event, kind)

	result := s.reconcile(ctx, tenantID, event, kind)

	if record != nil {
		if err := s.repo.MarkProcessed(ctx, s.db, record.ID, string(result.Outcome), result.Success, result.Message, s.clock.Now()); err != nil {
			s.log.Warn("webhook event log update failed", zap.Error(err))
		}
	}

	return result, nil
}

// verify resolves the tenant's webhook secret and checks the delivery
// signature. In permissive mode a tenant without a secret is let through
// with a warning; strict mode turns that into a rejection.
func (s *Service) verify(ctx context.Context, tenantID string, req domain.IngestRequest) error {
	secret := ""
	if cfg := s.tenants.GetActive(ctx, tenantID); cfg != nil {
		secret = cfg.WebhookSecret
	}

	if secret == "" && s.policy.Strict() {
		s.log.Warn("rejecting delivery for tenant without webhook secret",
			zap.String("tenant_id", tenantID),
		)
		s.recordSignatureFailure(ctx, tenantID)
		return domain.ErrSignatureMismatch
	}

	if !razorpay.VerifySignature(req.Body, req.Signature, secret, s.log.With(zap.String("tenant_id", tenantID))) {
		s.recordSignatureFailure(ctx, tenantID)
		return domain.ErrSignatureMismatch
	}
	return nil
}

func (s *Service) recordSignatureFailure(ctx context.Context, tenantID string) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordSignatureFailure(ctx, tenantID)
	}
}

// logDelivery writes the audit row, at most one per tenant and event
// fingerprint; a provider retry keeps the original row. Failures are logged
// and swallowed; the delivery must still reconcile even when the audit table
// is unavailable.
func (s *Service) logDelivery(ctx context.Context, tenantID string, event *razorpay.Event, kind razorpay.EventKind) *domain.EventRecord {
	record := &domain.EventRecord{
		ID:                s.genID.Generate(),
		TenantID:          tenantID,
		EventName:         event.Name,
		EventKind:         string(kind),
		Fingerprint:       event.Fingerprint(),
		ProviderPaymentID: paymentIDOf(event),
		ReceivedAt:        s.clock.Now(),
	}
	inserted, err := s.repo.Insert(ctx, s.db, record)
	if err != nil {
		s.log.Warn("webhook event log insert failed",
			zap.String("tenant_id", tenantID),
			zap.String("event", event.Name),
			zap.Error(err),
		)
		return nil
	}
	if !inserted {
		s.log.Debug("delivery already logged, reconciling replay",
			zap.String("tenant_id", tenantID),
			zap.String("fingerprint", record.Fingerprint),
		)
		return nil
	}
	return record
}

// reconcile applies the ledger mutation under the policy timeout and, when
// redis is configured, a per-payment lock. A business failure downstream is
// folded into an unsuccessful result so the provider still gets its 200 and
// stops retrying.
func (s *Service) reconcile(parent context.Context, tenantID string, event *razorpay.Event, kind razorpay.EventKind) domain.IngestResult {
	ctx, cancel := context.WithTimeout(parent, s.policy.Get().ReconcileTimeout)
	defer cancel()

	if paymentID := paymentIDOf(event); paymentID != "" && kind.MovesMoney() {
		token, ok := s.acquirePaymentLock(ctx, paymentID)
		if !ok {
			s.log.Warn("payment lock held past deadline, deferring to provider retry",
				zap.String("tenant_id", tenantID),
				zap.String("provider_payment_id", paymentID),
			)
			return domain.IngestResult{
				EventName: event.Name,
				Outcome:   txdomain.OutcomeSkipped,
				Success:   false,
				Message:   "reconciliation already in progress for this payment",
			}
		}
		if token != "" {
			defer func() {
				if err := s.locks.ReleasePayment(parent, paymentID, token); err != nil {
					s.log.Warn("payment lock release failed", zap.Error(err))
				}
			}()
		}
	}

	result, err := s.reconciler.Reconcile(ctx, tenantID, event)
	if err != nil {
		s.log.Error("reconciliation failed",
			zap.String("tenant_id", tenantID),
			zap.String("event", event.Name),
			zap.Error(err),
		)
		return domain.IngestResult{
			EventName: event.Name,
			Outcome:   txdomain.OutcomeSkipped,
			Success:   false,
			Message:   fmt.Sprintf("reconciliation failed: %v", err),
		}
	}

	return domain.IngestResult{
		EventName:   event.Name,
		Outcome:     result.Outcome,
		Success:     result.Success,
		Message:     result.Message,
		Transaction: result.Transaction,
	}
}

// acquirePaymentLock keeps trying a contended lock until the reconcile
// deadline, then gives up so the concurrent holder finishes alone. A lock
// backend error degrades to proceeding unlocked; the unique index on
// provider_payment_id still prevents duplicate rows.
func (s *Service) acquirePaymentLock(ctx context.Context, paymentID string) (string, bool) {
	for {
		token, acquired, err := s.locks.TryLockPayment(ctx, paymentID)
		if err != nil {
			s.log.Warn("payment lock unavailable, relying on uniqueness constraint",
				zap.String("provider_payment_id", paymentID),
				zap.Error(err),
			)
			return "", true
		}
		if acquired {
			return token, true
		}

		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(lockRetryInterval):
		}
	}
}

func (s *Service) WebhookURL(resellerID string) (string, error) {
	resellerID = strings.TrimSpace(resellerID)
	if _, err := uuid.Parse(resellerID); err != nil {
		return "", domain.ErrInvalidTenant
	}
	return s.cfg.PublicBaseURL + "/api/razorpay/webhook/" + resellerID, nil
}

func paymentIDOf(event *razorpay.Event) string {
	if event.Payload.Payment != nil && event.Payload.Payment.Entity != nil {
		return strings.TrimSpace(event.Payload.Payment.Entity.ID)
	}
	if event.Payload.Refund != nil && event.Payload.Refund.Entity != nil {
		return strings.TrimSpace(event.Payload.Refund.Entity.PaymentID)
	}
	return ""
}
