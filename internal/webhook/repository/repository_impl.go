package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/numeratel/numera/internal/webhook/domain"
	pkgdb "github.com/numeratel/numera/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rec *domain.EventRecord) (bool, error) {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO webhook_events (
			id, tenant_id, event_name, event_kind, fingerprint,
			provider_payment_id, outcome, success, message, received_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.TenantID,
		rec.EventName,
		rec.EventKind,
		rec.Fingerprint,
		rec.ProviderPaymentID,
		rec.Outcome,
		rec.Success,
		rec.Message,
		rec.ReceivedAt,
	).Error
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, outcome string, success bool, message string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_events
		 SET outcome = ?, success = ?, message = ?, processed_at = ?
		 WHERE id = ?`,
		outcome,
		success,
		message,
		at,
		id,
	).Error
}
