package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/numeratel/numera/internal/clock"
	"github.com/numeratel/numera/internal/config"
	tenantdomain "github.com/numeratel/numera/internal/tenantconfig/domain"
	txdomain "github.com/numeratel/numera/internal/transaction/domain"
	txrepository "github.com/numeratel/numera/internal/transaction/repository"
	txservice "github.com/numeratel/numera/internal/transaction/service"
	"github.com/numeratel/numera/internal/webhook/domain"
	"github.com/numeratel/numera/internal/webhook/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testTenantID = "2b0ad34c-9a15-44ab-8f39-56a1d7dd7a03"
	testSecret   = "whsec_test_0042"
)

type tenantsStub struct {
	configs map[string]*tenantdomain.PaymentConfig
}

func (s *tenantsStub) GetActive(ctx context.Context, tenantID string) *tenantdomain.PaymentConfig {
	return s.configs[tenantID]
}

func (s *tenantsStub) Upsert(ctx context.Context, req tenantdomain.UpsertRequest) (*tenantdomain.PaymentConfig, error) {
	return nil, nil
}

func (s *tenantsStub) GetView(ctx context.Context, tenantID string) (*tenantdomain.View, error) {
	return nil, tenantdomain.ErrNotFound
}

func newIngestService(t *testing.T, verifyMode string, tenants tenantdomain.Service) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&txdomain.Transaction{}, &domain.EventRecord{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	holder := config.StaticPolicyHolder(config.ReconcilePolicy{
		VerifyMode:       verifyMode,
		ReconcileTimeout: 5 * time.Second,
		DefaultCurrency:  "INR",
	})
	log := zap.NewNop()

	reconciler := txservice.New(txservice.Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Clock:  fake,
		Policy: holder,
		Repo:   txrepository.Provide(),
	})

	svc := New(Params{
		DB:         db,
		Log:        log,
		Cfg:        config.Config{PublicBaseURL: "https://pay.example.com"},
		GenID:      node,
		Clock:      fake,
		Policy:     holder,
		Repo:       repository.Provide(),
		Tenants:    tenants,
		Reconciler: reconciler,
	})
	return svc, db
}

func withSecret(tenantID, secret string) *tenantsStub {
	return &tenantsStub{configs: map[string]*tenantdomain.PaymentConfig{
		tenantID: {TenantID: tenantID, WebhookSecret: secret, IsActive: true},
	}}
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

var capturedBody = []byte(`{
	"entity": "event",
	"event": "payment.captured",
	"payload": {
		"payment": {
			"entity": {
				"id": "pay_IngestOk001",
				"order_id": "order_Ingest01",
				"amount": 250000,
				"currency": "INR",
				"status": "captured",
				"method": "card",
				"email": "buyer@example.com",
				"contact": "+919876543210",
				"notes": []
			}
		}
	}
}`)

func TestIngest_ValidDelivery_CreatesTransaction(t *testing.T) {
	svc, db := newIngestService(t, config.VerifyModeStrict, withSecret(testTenantID, testSecret))

	result, err := svc.Ingest(context.Background(), domain.IngestRequest{
		TenantID:  testTenantID,
		Signature: sign(capturedBody, testSecret),
		Body:      capturedBody,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, txdomain.OutcomeCreated, result.Outcome)
	assert.Equal(t, "payment.captured", result.EventName)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, 2500.00, result.Transaction.Amount)

	var record domain.EventRecord
	require.NoError(t, db.Where("provider_payment_id = ?", "pay_IngestOk001").First(&record).Error)
	assert.Equal(t, "payment.captured", record.EventName)
	assert.Equal(t, string(txdomain.OutcomeCreated), record.Outcome)
	assert.True(t, record.Success)
	require.NotNil(t, record.ProcessedAt)
}

func TestIngest_Replay_KeepsSingleAuditRow(t *testing.T) {
	svc, db := newIngestService(t, config.VerifyModeStrict, withSecret(testTenantID, testSecret))

	req := domain.IngestRequest{
		TenantID:  testTenantID,
		Signature: sign(capturedBody, testSecret),
		Body:      capturedBody,
	}

	first, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, txdomain.OutcomeCreated, first.Outcome)

	second, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, txdomain.OutcomeUpdated, second.Outcome)

	var auditCount int64
	require.NoError(t, db.Model(&domain.EventRecord{}).Where("provider_payment_id = ?", "pay_IngestOk001").Count(&auditCount).Error)
	assert.Equal(t, int64(1), auditCount)

	var record domain.EventRecord
	require.NoError(t, db.Where("provider_payment_id = ?", "pay_IngestOk001").First(&record).Error)
	assert.Equal(t, string(txdomain.OutcomeCreated), record.Outcome)
	require.NotNil(t, record.ProcessedAt)

	var txCount int64
	require.NoError(t, db.Model(&txdomain.Transaction{}).Where("provider_payment_id = ?", "pay_IngestOk001").Count(&txCount).Error)
	assert.Equal(t, int64(1), txCount)
}

type lockStub struct {
	contended int
	calls     int
	released  []string
}

func (s *lockStub) TryLockPayment(ctx context.Context, providerPaymentID string) (string, bool, error) {
	s.calls++
	if s.calls <= s.contended {
		return "", false, nil
	}
	return "tok-" + providerPaymentID, true, nil
}

func (s *lockStub) ReleasePayment(ctx context.Context, providerPaymentID, token string) error {
	s.released = append(s.released, token)
	return nil
}

func TestIngest_LockHeld_DefersToProviderRetry(t *testing.T) {
	svc, db := newIngestService(t, config.VerifyModePermissive, &tenantsStub{})
	held := &lockStub{contended: 1 << 30}
	svc.(*Service).locks = held

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	result, err := svc.Ingest(ctx, domain.IngestRequest{
		TenantID: testTenantID,
		Body:     capturedBody,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, txdomain.OutcomeSkipped, result.Outcome)
	assert.Contains(t, result.Message, "already in progress")
	assert.Greater(t, held.calls, 1)

	var count int64
	require.NoError(t, db.Model(&txdomain.Transaction{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestIngest_LockContended_RetriesThenReconciles(t *testing.T) {
	svc, db := newIngestService(t, config.VerifyModePermissive, &tenantsStub{})
	held := &lockStub{contended: 2}
	svc.(*Service).locks = held

	result, err := svc.Ingest(context.Background(), domain.IngestRequest{
		TenantID: testTenantID,
		Body:     capturedBody,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, txdomain.OutcomeCreated, result.Outcome)
	assert.Equal(t, 3, held.calls)
	assert.Equal(t, []string{"tok-pay_IngestOk001"}, held.released)

	var count int64
	require.NoError(t, db.Model(&txdomain.Transaction{}).Where("provider_payment_id = ?", "pay_IngestOk001").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIngest_TamperedSignature_Rejected(t *testing.T) {
	svc, db := newIngestService(t, config.VerifyModeStrict, withSecret(testTenantID, testSecret))

	_, err := svc.Ingest(context.Background(), domain.IngestRequest{
		TenantID:  testTenantID,
		Signature: sign(capturedBody, "some_other_secret"),
		Body:      capturedBody,
	})
	assert.ErrorIs(t, err, domain.ErrSignatureMismatch)

	var count int64
	require.NoError(t, db.Model(&txdomain.Transaction{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestIngest_InvalidTenantID_Rejected(t *testing.T) {
	svc, _ := newIngestService(t, config.VerifyModePermissive, &tenantsStub{})

	_, err := svc.Ingest(context.Background(), domain.IngestRequest{
		TenantID:  "not-a-uuid",
		Signature: "",
		Body:      capturedBody,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
}

func TestIngest_MalformedBody_Rejected(t *testing.T) {
	svc, _ := newIngestService(t, config.VerifyModePermissive, &tenantsStub{})

	_, err := svc.Ingest(context.Background(), domain.IngestRequest{
		TenantID:  testTenantID,
		Signature: "",
		Body:      []byte(`{"event":`),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestIngest_NoSecret_PermissiveAccepts(t *testing.T) {
	svc, _ := newIngestService(t, config.VerifyModePermissive, &tenantsStub{})

	result, err := svc.Ingest(context.Background(), domain.IngestRequest{
		TenantID:  testTenantID,
		Signature: "whatever",
		Body:      capturedBody,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestIngest_NoSecret_StrictRejects(t *testing.T) {
	svc, _ := newIngestService(t, config.VerifyModeStrict, &tenantsStub{})

	_, err := svc.Ingest(context.Background(), domain.IngestRequest{
		TenantID:  testTenantID,
		Signature: "whatever",
		Body:      capturedBody,
	})
	assert.ErrorIs(t, err, domain.ErrSignatureMismatch)
}

func TestIngest_BusinessFailure_StillReturnsResult(t *testing.T) {
	svc, _ := newIngestService(t, config.VerifyModePermissive, &tenantsStub{})

	orphanRefund := []byte(`{
		"entity": "event",
		"event": "refund.processed",
		"payload": {
			"refund": {
				"entity": {
					"id": "rfnd_Orphan01",
					"payment_id": "pay_Missing001",
					"amount": 5000
				}
			}
		}
	}`)

	result, err := svc.Ingest(context.Background(), domain.IngestRequest{
		TenantID: testTenantID,
		Body:     orphanRefund,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, txdomain.OutcomeSkipped, result.Outcome)
}

func TestWebhookURL(t *testing.T) {
	svc, _ := newIngestService(t, config.VerifyModePermissive, &tenantsStub{})

	url, err := svc.WebhookURL(testTenantID)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/api/razorpay/webhook/"+testTenantID, url)

	_, err = svc.WebhookURL("nope")
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
}
