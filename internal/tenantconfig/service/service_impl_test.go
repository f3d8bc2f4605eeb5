package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/numeratel/numera/internal/clock"
	"github.com/numeratel/numera/internal/tenantconfig/domain"
	"github.com/numeratel/numera/internal/tenantconfig/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testTenantID = "9d3f7c1e-8a20-4b33-9d6e-f3c2a41f5b77"

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.PaymentConfig{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, db, fake
}

func TestUpsert_ReplacesActiveConfig(t *testing.T) {
	svc, db, fake := newTestService(t)

	first, err := svc.Upsert(context.Background(), domain.UpsertRequest{
		TenantID:          testTenantID,
		ProviderKeyID:     "rzp_key_old",
		ProviderKeySecret: "secret_old",
		WebhookSecret:     "whsec_old",
	})
	require.NoError(t, err)
	assert.True(t, first.IsActive)

	fake.Advance(time.Hour)

	second, err := svc.Upsert(context.Background(), domain.UpsertRequest{
		TenantID:          testTenantID,
		ProviderKeyID:     "rzp_key_new",
		ProviderKeySecret: "secret_new",
		WebhookSecret:     "whsec_new",
	})
	require.NoError(t, err)

	active := svc.GetActive(context.Background(), testTenantID)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, "rzp_key_new", active.ProviderKeyID)

	var total, activeCount int64
	require.NoError(t, db.Model(&domain.PaymentConfig{}).Count(&total).Error)
	require.NoError(t, db.Model(&domain.PaymentConfig{}).Where("is_active = ?", true).Count(&activeCount).Error)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), activeCount)
}

func TestUpsert_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Upsert(context.Background(), domain.UpsertRequest{
		TenantID:          "not-a-uuid",
		ProviderKeyID:     "rzp_key",
		ProviderKeySecret: "secret",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)

	_, err = svc.Upsert(context.Background(), domain.UpsertRequest{
		TenantID:      testTenantID,
		ProviderKeyID: "rzp_key",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestGetActive_MissingReturnsNil(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.Nil(t, svc.GetActive(context.Background(), testTenantID))
}

func TestGetView_MasksSecrets(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Upsert(context.Background(), domain.UpsertRequest{
		TenantID:          testTenantID,
		ProviderKeyID:     "rzp_key_live",
		ProviderKeySecret: "super_secret_value_9XyZ",
		WebhookSecret:     "whsec_abcdef",
	})
	require.NoError(t, err)

	view, err := svc.GetView(context.Background(), testTenantID)
	require.NoError(t, err)
	assert.Equal(t, "rzp_key_live", view.ProviderKeyID)
	assert.Equal(t, "*******************9XyZ", view.KeySecret)
	assert.Equal(t, "********cdef", view.WebhookSecret)
}

func TestGetView_Missing(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetView(context.Background(), testTenantID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
