package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/numeratel/numera/internal/clock"
	"github.com/numeratel/numera/internal/config"
	obsmetrics "github.com/numeratel/numera/internal/observability/metrics"
	"github.com/numeratel/numera/internal/razorpay"
	"github.com/numeratel/numera/internal/transaction/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Policy     *config.PolicyHolder
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	policy     *config.PolicyHolder
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics

	handlers map[razorpay.EventKind]handlerFunc
}

type handlerFunc func(ctx context.Context, tenantID string, event *razorpay.Event) (domain.ReconcileResult, error)

func New(p Params) domain.Service {
	s := &Service{
		db:         p.DB,
		log:        p.Log.Named("transaction.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		policy:     p.Policy,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}

	s.handlers = map[razorpay.EventKind]handlerFunc{
		razorpay.KindPaymentAuthorized:   s.handlePaymentAuthorized,
		razorpay.KindPaymentCaptured:     s.handlePaymentCaptured,
		razorpay.KindPaymentFailed:       s.handlePaymentFailed,
		razorpay.KindRefund:              s.handleRefund,
		razorpay.KindOrderPaid:           s.handleOrderPaid,
		razorpay.KindSubscriptionCharged: s.handleSubscriptionCharged,
		razorpay.KindSubscriptionNotice:  s.handleSubscriptionNotice,
	}

	return s
}

func (s *Service) Reconcile(ctx context.Context, tenantID string, event *razorpay.Event) (domain.ReconcileResult, error) {
	if event == nil {
		return domain.ReconcileResult{}, domain.ErrInvalidEvent
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return domain.ReconcileResult{}, domain.ErrInvalidEvent
	}

	handler, ok := s.handlers[razorpay.Classify(event.Name)]
	if !ok {
		s.log.Info("unhandled webhook event acknowledged",
			zap.String("tenant_id", tenantID),
			zap.String("event", event.Name),
		)
		return s.record(ctx, domain.ReconcileResult{
			Outcome: domain.OutcomeAcknowledged,
			Success: true,
			Message: "event acknowledged",
		}), nil
	}

	result, err := handler(ctx, tenantID, event)
	if err != nil {
		if s.obsMetrics != nil {
			s.obsMetrics.RecordReconciliation(ctx, "error")
		}
		return result, err
	}
	return s.record(ctx, result), nil
}

func (s *Service) record(ctx context.Context, result domain.ReconcileResult) domain.ReconcileResult {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordReconciliation(ctx, string(result.Outcome))
	}
	return result
}

func (s *Service) handlePaymentAuthorized(ctx context.Context, tenantID string, event *razorpay.Event) (domain.ReconcileResult, error) {
	payment, err := event.Payment()
	if err != nil {
		return domain.ReconcileResult{}, domain.ErrMissingEntity
	}
	return s.upsertPayment(ctx, tenantID, payment, upsertOpts{
		status: domain.StatusAuthorized,
		txType: domain.TypePayment,
	})
}

func (s *Service) handlePaymentCaptured(ctx context.Context, tenantID string, event *razorpay.Event) (domain.ReconcileResult, error) {
	payment, err := event.Payment()
	if err != nil {
		return domain.ReconcileResult{}, domain.ErrMissingEntity
	}
	return s.upsertPayment(ctx, tenantID, payment, upsertOpts{
		status: domain.StatusSuccess,
		txType: domain.TypePayment,
	})
}

func (s *Service) handlePaymentFailed(ctx context.Context, tenantID string, event *razorpay.Event) (domain.ReconcileResult, error) {
	payment, err := event.Payment()
	if err != nil {
		return domain.ReconcileResult{}, domain.ErrMissingEntity
	}

	reason := strings.TrimSpace(payment.ErrorDescription)
	if reason == "" {
		reason = strings.TrimSpace(payment.ErrorCode)
	}
	var failureReason *string
	if reason != "" {
		failureReason = &reason
	}

	return s.upsertPayment(ctx, tenantID, payment, upsertOpts{
		status:        domain.StatusFailed,
		txType:        domain.TypePayment,
		failureReason: failureReason,
	})
}

func (s *Service) handleOrderPaid(ctx context.Context, tenantID string, event *razorpay.Event) (domain.ReconcileResult, error) {
	order, err := event.Order()
	if err != nil {
		return domain.ReconcileResult{}, domain.ErrMissingEntity
	}
	payment, err := event.Payment()
	if err != nil {
		return domain.ReconcileResult{}, domain.ErrMissingEntity
	}

	return s.upsertPayment(ctx, tenantID, payment, upsertOpts{
		status:          domain.StatusFromProvider(payment.Status),
		txType:          domain.TypePayment,
		providerOrderID: order.ID,
		referenceNumber: order.Receipt,
	})
}

func (s *Service) handleSubscriptionCharged(ctx context.Context, tenantID string, event *razorpay.Event) (domain.ReconcileResult, error) {
	subscription, err := event.Subscription()
	if err != nil {
		return domain.ReconcileResult{}, domain.ErrMissingEntity
	}
	payment, err := event.Payment()
	if err != nil {
		return domain.ReconcileResult{}, domain.ErrMissingEntity
	}

	return s.upsertPayment(ctx, tenantID, payment, upsertOpts{
		status:          domain.StatusFromProvider(payment.Status),
		txType:          domain.TypeRenewal,
		referenceNumber: subscription.ID,
		extraNotes: map[string]string{
			"subscription_id": subscription.ID,
			"plan_id":         subscription.PlanID,
		},
	})
}

// handleRefund updates the original transaction rather than creating a new
// row. The refund id lands in failure_reason as the audit trail; that reuse
// is a deliberate schema convention.
func (s *Service) handleRefund(ctx context.Context, tenantID string, event *razorpay.Event) (domain.ReconcileResult, error) {
	refund, err := event.Refund()
	if err != nil {
		return domain.ReconcileResult{}, domain.ErrMissingEntity
	}
	paymentID := strings.TrimSpace(refund.PaymentID)
	if paymentID == "" {
		return domain.ReconcileResult{}, domain.ErrMissingEntity
	}

	original, err := s.repo.FindByProviderPaymentID(ctx, s.db, paymentID)
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	if original == nil {
		s.log.Warn("refund received for unknown payment",
			zap.String("tenant_id", tenantID),
			zap.String("provider_payment_id", paymentID),
			zap.String("refund_id", refund.ID),
		)
		return domain.ReconcileResult{
			Outcome: domain.OutcomeSkipped,
			Success: false,
			Message: "original transaction not found",
		}, nil
	}

	auditTrail := refund.ID
	if _, err := s.repo.UpdateStatus(ctx, s.db, paymentID, domain.StatusRefunded, &auditTrail, s.clock.Now()); err != nil {
		return domain.ReconcileResult{}, err
	}

	original.Status = domain.StatusRefunded
	original.FailureReason = &auditTrail
	return domain.ReconcileResult{
		Outcome:     domain.OutcomeUpdated,
		Success:     true,
		Message:     "transaction marked refunded",
		Transaction: original,
	}, nil
}

// handleSubscriptionNotice acknowledges lifecycle notices without touching
// the ledger; they carry no money movement.
func (s *Service) handleSubscriptionNotice(ctx context.Context, tenantID string, event *razorpay.Event) (domain.ReconcileResult, error) {
	_ = ctx
	s.log.Info("subscription lifecycle notice",
		zap.String("tenant_id", tenantID),
		zap.String("event", event.Name),
	)
	return domain.ReconcileResult{
		Outcome: domain.OutcomeAcknowledged,
		Success: true,
		Message: "lifecycle notice acknowledged",
	}, nil
}

type upsertOpts struct {
	status          domain.Status
	txType          string
	failureReason   *string
	providerOrderID string
	referenceNumber string
	extraNotes      map[string]string
}

// upsertPayment is the shared shape of every money-moving event: check for
// an existing row by provider payment id, update status only when found,
// insert otherwise. An insert that loses a race to a concurrent delivery
// surfaces as a duplicate-key conflict and switches to the update branch.
func (s *Service) upsertPayment(ctx context.Context, tenantID string, payment *razorpay.PaymentEntity, opts upsertOpts) (domain.ReconcileResult, error) {
	paymentID := strings.TrimSpace(payment.ID)
	if paymentID == "" {
		return domain.ReconcileResult{}, domain.ErrInvalidPayment
	}

	exists, err := s.repo.ExistsByProviderPaymentID(ctx, s.db, paymentID)
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	if exists {
		return s.updateExisting(ctx, paymentID, opts)
	}

	txn := s.newTransaction(tenantID, payment, opts)
	inserted, err := s.repo.Insert(ctx, s.db, txn)
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	if !inserted {
		// Lost the insert race; the uniqueness constraint held.
		return s.updateExisting(ctx, paymentID, opts)
	}

	s.log.Info("transaction created",
		zap.String("tenant_id", tenantID),
		zap.String("provider_payment_id", paymentID),
		zap.String("status", string(opts.status)),
		zap.Float64("amount", txn.Amount),
	)
	return domain.ReconcileResult{
		Outcome:     domain.OutcomeCreated,
		Success:     true,
		Message:     "transaction created",
		Transaction: txn,
	}, nil
}

func (s *Service) updateExisting(ctx context.Context, paymentID string, opts upsertOpts) (domain.ReconcileResult, error) {
	rows, err := s.repo.UpdateStatus(ctx, s.db, paymentID, opts.status, opts.failureReason, s.clock.Now())
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	if rows == 0 {
		return domain.ReconcileResult{
			Outcome: domain.OutcomeSkipped,
			Success: false,
			Message: "transaction not found",
		}, nil
	}

	s.log.Info("transaction updated",
		zap.String("provider_payment_id", paymentID),
		zap.String("status", string(opts.status)),
	)
	return domain.ReconcileResult{
		Outcome: domain.OutcomeUpdated,
		Success: true,
		Message: "transaction updated",
	}, nil
}

func (s *Service) newTransaction(tenantID string, payment *razorpay.PaymentEntity, opts upsertOpts) *domain.Transaction {
	now := s.clock.Now()

	currency := strings.ToUpper(strings.TrimSpace(payment.Currency))
	if currency == "" {
		currency = s.policy.Get().DefaultCurrency
	}

	paymentDate := now
	if payment.CreatedAt > 0 {
		paymentDate = time.Unix(payment.CreatedAt, 0).UTC()
	}

	orderID := strings.TrimSpace(opts.providerOrderID)
	if orderID == "" {
		orderID = strings.TrimSpace(payment.OrderID)
	}

	var customerID *string
	if id := payment.Notes.Get("customer_id"); id != "" {
		customerID = &id
	}

	txn := &domain.Transaction{
		ID:                s.genID.Generate(),
		TransactionNumber: s.transactionNumber(now),
		TenantID:          tenantID,
		CustomerID:        customerID,
		Type:              opts.txType,
		PaymentMethod:     strings.TrimSpace(payment.Method),
		Amount:            float64(payment.Amount) / 100,
		Currency:          currency,
		Status:            opts.status,
		ProviderPaymentID: strings.TrimSpace(payment.ID),
		ProviderOrderID:   orderID,
		ReferenceNumber:   strings.TrimSpace(opts.referenceNumber),
		PaymentDate:       paymentDate,
		FailureReason:     opts.failureReason,
		CustomerName:      payment.Notes.Get("customer_name", "name"),
		CustomerEmail:     firstNonEmpty(payment.Email, payment.Notes.Get("customer_email", "email")),
		CustomerPhone:     firstNonEmpty(payment.Contact, payment.Notes.Get("customer_phone", "contact", "phone")),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	notes := map[string]string{}
	for k, v := range payment.Notes {
		notes[k] = v
	}
	for k, v := range opts.extraNotes {
		if strings.TrimSpace(v) != "" {
			notes[k] = v
		}
	}
	if len(notes) > 0 {
		if raw, err := json.Marshal(notes); err == nil {
			txn.Notes = datatypes.JSON(raw)
		}
	}

	return txn
}

// transactionNumber builds the display-only human-readable number: payment
// date plus a random ULID suffix. It is not a dedup key.
func (s *Service) transactionNumber(now time.Time) string {
	suffix := ulid.Make().String()
	return "TXN-" + now.Format("20060102150405") + "-" + suffix[len(suffix)-8:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
