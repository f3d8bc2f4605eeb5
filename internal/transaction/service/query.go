package service

import (
	"context"
	"time"

	"github.com/numeratel/numera/internal/transaction/domain"
	"go.uber.org/zap"
)

func (s *Service) List(ctx context.Context, filter domain.Filter) (domain.ListResult, error) {
	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResult{}, err
	}

	summary, err := s.repo.Summarize(ctx, s.db, filter)
	if err != nil {
		return domain.ListResult{}, err
	}

	if rows == nil {
		rows = []domain.Transaction{}
	}
	return domain.ListResult{Rows: rows, Summary: summary}, nil
}

// Stats aggregates across every tenant. Each sub-aggregate soft-fails to
// zero so a partial storage outage degrades the dashboard instead of
// erroring the whole response.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats

	stats.TotalCount = s.statCount(ctx, "total_count", func() (int64, error) {
		return s.repo.CountAll(ctx, s.db)
	})
	stats.SuccessfulCount = s.statCount(ctx, "successful_count", func() (int64, error) {
		return s.repo.CountByStatus(ctx, s.db, domain.StatusSuccess, domain.StatusAuthorized)
	})
	stats.FailedCount = s.statCount(ctx, "failed_count", func() (int64, error) {
		return s.repo.CountByStatus(ctx, s.db, domain.StatusFailed)
	})
	stats.PendingCount = s.statCount(ctx, "pending_count", func() (int64, error) {
		return s.repo.CountByStatus(ctx, s.db, domain.StatusPending)
	})
	stats.RefundedCount = s.statCount(ctx, "refunded_count", func() (int64, error) {
		return s.repo.CountByStatus(ctx, s.db, domain.StatusRefunded)
	})
	stats.ActiveTenants = s.statCount(ctx, "active_tenants", func() (int64, error) {
		return s.repo.ActiveTenants(ctx, s.db)
	})

	if amount, err := s.repo.TotalAmount(ctx, s.db); err != nil {
		s.log.Warn("stats aggregate failed", zap.String("aggregate", "total_amount"), zap.Error(err))
	} else {
		stats.TotalAmount = amount
	}

	dayStart := s.clock.Now().Truncate(24 * time.Hour)
	if count, amount, err := s.repo.DayTotals(ctx, s.db, dayStart, dayStart.Add(24*time.Hour)); err != nil {
		s.log.Warn("stats aggregate failed", zap.String("aggregate", "day_totals"), zap.Error(err))
	} else {
		stats.TodayCount = count
		stats.TodayAmount = amount
	}

	return stats, nil
}

func (s *Service) statCount(ctx context.Context, name string, load func() (int64, error)) int64 {
	_ = ctx
	count, err := load()
	if err != nil {
		s.log.Warn("stats aggregate failed", zap.String("aggregate", name), zap.Error(err))
		return 0
	}
	return count
}
