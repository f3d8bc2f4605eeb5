package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/numeratel/numera/internal/clock"
	"github.com/numeratel/numera/internal/config"
	"github.com/numeratel/numera/internal/razorpay"
	"github.com/numeratel/numera/internal/transaction/domain"
	"github.com/numeratel/numera/internal/transaction/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testTenantID = "6f8cf5a4-6f9e-4a9b-8f64-0f6f1d2ab901"

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Transaction{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)),
		Policy: config.StaticPolicyHolder(config.ReconcilePolicy{
			VerifyMode:       config.VerifyModeStrict,
			ReconcileTimeout: 5 * time.Second,
			DefaultCurrency:  "INR",
		}),
		Repo: repository.Provide(),
	})
	return svc, db
}

func paymentEvent(name, paymentID, status string, amount int64) *razorpay.Event {
	return &razorpay.Event{
		Entity: "event",
		Name:   name,
		Payload: razorpay.EventPayload{
			Payment: &razorpay.PaymentWrapper{Entity: &razorpay.PaymentEntity{
				ID:       paymentID,
				OrderID:  "order_Abc123",
				Amount:   amount,
				Currency: "INR",
				Status:   status,
				Method:   "upi",
				Email:    "buyer@example.com",
				Contact:  "+919876543210",
				Notes: razorpay.Notes{
					"customer_name": "Asha Rao",
					"customer_id":   "cust_001",
				},
				CreatedAt: time.Date(2026, 3, 14, 10, 29, 0, 0, time.UTC).Unix(),
			}},
		},
	}
}

func TestReconcile_PaymentCaptured_CreatesTransaction(t *testing.T) {
	svc, db := newTestService(t)

	event := paymentEvent("payment.captured", "pay_TestCapture01", "captured", 150000)
	result, err := svc.Reconcile(context.Background(), testTenantID, event)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeCreated, result.Outcome)
	assert.True(t, result.Success)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, domain.StatusSuccess, result.Transaction.Status)
	assert.Equal(t, 1500.00, result.Transaction.Amount)
	assert.Equal(t, "INR", result.Transaction.Currency)
	assert.Equal(t, "Asha Rao", result.Transaction.CustomerName)
	require.NotNil(t, result.Transaction.CustomerID)
	assert.Equal(t, "cust_001", *result.Transaction.CustomerID)

	var stored domain.Transaction
	require.NoError(t, db.Where("provider_payment_id = ?", "pay_TestCapture01").First(&stored).Error)
	assert.Equal(t, testTenantID, stored.TenantID)
	assert.Equal(t, domain.TypePayment, stored.Type)
	assert.NotEmpty(t, stored.TransactionNumber)
}

func TestReconcile_Replay_IsIdempotent(t *testing.T) {
	svc, db := newTestService(t)

	event := paymentEvent("payment.captured", "pay_Replayed001", "captured", 99900)

	first, err := svc.Reconcile(context.Background(), testTenantID, event)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCreated, first.Outcome)

	second, err := svc.Reconcile(context.Background(), testTenantID, event)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdated, second.Outcome)
	assert.True(t, second.Success)

	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Where("provider_payment_id = ?", "pay_Replayed001").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestReconcile_OrderPaidAfterCapture_SingleRow(t *testing.T) {
	svc, db := newTestService(t)

	captured := paymentEvent("payment.captured", "pay_CrossEvent01", "captured", 50000)
	_, err := svc.Reconcile(context.Background(), testTenantID, captured)
	require.NoError(t, err)

	orderPaid := paymentEvent("order.paid", "pay_CrossEvent01", "captured", 50000)
	orderPaid.Payload.Order = &razorpay.OrderWrapper{Entity: &razorpay.OrderEntity{
		ID:      "order_Abc123",
		Amount:  50000,
		Status:  "paid",
		Receipt: "rcpt_88",
	}}

	result, err := svc.Reconcile(context.Background(), testTenantID, orderPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdated, result.Outcome)

	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Where("provider_payment_id = ?", "pay_CrossEvent01").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestReconcile_UnrecognizedProviderStatus_StoredVerbatim(t *testing.T) {
	svc, db := newTestService(t)

	event := paymentEvent("order.paid", "pay_OddStatus01", "weird_status", 30000)
	event.Payload.Order = &razorpay.OrderWrapper{Entity: &razorpay.OrderEntity{
		ID:      "order_Odd001",
		Amount:  30000,
		Status:  "paid",
		Receipt: "rcpt_odd",
	}}

	result, err := svc.Reconcile(context.Background(), testTenantID, event)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCreated, result.Outcome)

	var stored domain.Transaction
	require.NoError(t, db.Where("provider_payment_id = ?", "pay_OddStatus01").First(&stored).Error)
	assert.Equal(t, domain.Status("weird_status"), stored.Status)
}

func TestReconcile_PaymentFailed_RecordsReason(t *testing.T) {
	svc, db := newTestService(t)

	event := paymentEvent("payment.failed", "pay_Declined01", "failed", 20000)
	payment, err := event.Payment()
	require.NoError(t, err)
	payment.ErrorCode = "BAD_REQUEST_ERROR"
	payment.ErrorDescription = "Payment declined by bank"

	result, err := svc.Reconcile(context.Background(), testTenantID, event)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCreated, result.Outcome)

	var stored domain.Transaction
	require.NoError(t, db.Where("provider_payment_id = ?", "pay_Declined01").First(&stored).Error)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, "Payment declined by bank", *stored.FailureReason)
}

func TestReconcile_Refund_MarksOriginalRefunded(t *testing.T) {
	svc, db := newTestService(t)

	captured := paymentEvent("payment.captured", "pay_Refundable01", "captured", 75000)
	_, err := svc.Reconcile(context.Background(), testTenantID, captured)
	require.NoError(t, err)

	refund := &razorpay.Event{
		Entity: "event",
		Name:   "refund.processed",
		Payload: razorpay.EventPayload{
			Refund: &razorpay.RefundWrapper{Entity: &razorpay.RefundEntity{
				ID:        "rfnd_Linked001",
				PaymentID: "pay_Refundable01",
				Amount:    75000,
				Status:    "processed",
			}},
		},
	}

	result, err := svc.Reconcile(context.Background(), testTenantID, refund)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdated, result.Outcome)
	assert.True(t, result.Success)

	var stored domain.Transaction
	require.NoError(t, db.Where("provider_payment_id = ?", "pay_Refundable01").First(&stored).Error)
	assert.Equal(t, domain.StatusRefunded, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, "rfnd_Linked001", *stored.FailureReason)
}

func TestReconcile_Refund_UnknownPayment_Reported(t *testing.T) {
	svc, _ := newTestService(t)

	refund := &razorpay.Event{
		Entity: "event",
		Name:   "refund.created",
		Payload: razorpay.EventPayload{
			Refund: &razorpay.RefundWrapper{Entity: &razorpay.RefundEntity{
				ID:        "rfnd_Orphan001",
				PaymentID: "pay_NeverSeen01",
			}},
		},
	}

	result, err := svc.Reconcile(context.Background(), testTenantID, refund)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, result.Outcome)
	assert.False(t, result.Success)
	assert.Equal(t, "original transaction not found", result.Message)
}

func TestReconcile_SubscriptionCharged_Renewal(t *testing.T) {
	svc, db := newTestService(t)

	event := paymentEvent("subscription.charged", "pay_Renewal001", "captured", 49900)
	event.Payload.Subscription = &razorpay.SubscriptionWrapper{Entity: &razorpay.SubscriptionEntity{
		ID:     "sub_Monthly01",
		PlanID: "plan_Basic01",
		Status: "active",
	}}

	result, err := svc.Reconcile(context.Background(), testTenantID, event)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCreated, result.Outcome)

	var stored domain.Transaction
	require.NoError(t, db.Where("provider_payment_id = ?", "pay_Renewal001").First(&stored).Error)
	assert.Equal(t, domain.TypeRenewal, stored.Type)
	assert.Equal(t, domain.StatusSuccess, stored.Status)
	assert.Equal(t, "sub_Monthly01", stored.ReferenceNumber)
}

func TestReconcile_UnknownEvent_Acknowledged(t *testing.T) {
	svc, db := newTestService(t)

	event := &razorpay.Event{Entity: "event", Name: "invoice.expired"}
	result, err := svc.Reconcile(context.Background(), testTenantID, event)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAcknowledged, result.Outcome)
	assert.True(t, result.Success)

	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestReconcile_MissingEntity_Errors(t *testing.T) {
	svc, _ := newTestService(t)

	event := &razorpay.Event{Entity: "event", Name: "payment.captured"}
	_, err := svc.Reconcile(context.Background(), testTenantID, event)
	assert.ErrorIs(t, err, domain.ErrMissingEntity)
}

func TestReconcile_CurrencyFallsBackToPolicyDefault(t *testing.T) {
	svc, _ := newTestService(t)

	event := paymentEvent("payment.authorized", "pay_NoCurrency1", "authorized", 10000)
	payment, err := event.Payment()
	require.NoError(t, err)
	payment.Currency = ""

	result, err := svc.Reconcile(context.Background(), testTenantID, event)
	require.NoError(t, err)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, "INR", result.Transaction.Currency)
	assert.Equal(t, domain.StatusAuthorized, result.Transaction.Status)
}

func TestList_FiltersByStatus(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Reconcile(context.Background(), testTenantID, paymentEvent("payment.captured", "pay_ListOk0001", "captured", 10000))
	require.NoError(t, err)
	_, err = svc.Reconcile(context.Background(), testTenantID, paymentEvent("payment.failed", "pay_ListBad001", "failed", 20000))
	require.NoError(t, err)

	out, err := svc.List(context.Background(), domain.Filter{
		TenantID: testTenantID,
		Status:   domain.StatusSuccess,
	})
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, "pay_ListOk0001", out.Rows[0].ProviderPaymentID)
	assert.Equal(t, int64(1), out.Summary.TotalCount)
	assert.Equal(t, 100.00, out.Summary.TotalAmount)
}

func TestStats_Aggregates(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Reconcile(context.Background(), testTenantID, paymentEvent("payment.captured", "pay_StatsOk001", "captured", 30000))
	require.NoError(t, err)
	_, err = svc.Reconcile(context.Background(), testTenantID, paymentEvent("payment.failed", "pay_StatsBad01", "failed", 10000))
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalCount)
	assert.Equal(t, int64(1), stats.SuccessfulCount)
	assert.Equal(t, int64(1), stats.FailedCount)
	assert.Equal(t, int64(1), stats.ActiveTenants)
	assert.Equal(t, 400.00, stats.TotalAmount)
}
