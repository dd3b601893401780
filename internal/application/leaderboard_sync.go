package application

import (
	"context"

	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

// LeaderboardSyncRepository wraps a ReportRepository and drops the cached
// monthly rankings a write touches, once the write has succeeded.
// the next GetLeaderboard then recomputes from the store.
type LeaderboardSyncRepository struct {
	domain.ReportRepository

	leaderboard  LeaderboardCache
	timeProvider TimeProvider
	logger       *logging.Logger
}

// NewLeaderboardSyncRepository creates a new LeaderboardSyncRepository.
func NewLeaderboardSyncRepository(repo domain.ReportRepository, lb LeaderboardCache, logger *logging.Logger) *LeaderboardSyncRepository {
	return &LeaderboardSyncRepository{
		ReportRepository: repo,
		leaderboard:      lb,
		timeProvider:     RealTime,
		logger:           logger.WithComponent("leaderboard_sync"),
	}
}

// WithTimeProvider sets the clock used for undated documents.
func (r *LeaderboardSyncRepository) WithTimeProvider(tp TimeProvider) *LeaderboardSyncRepository {
	r.timeProvider = tp
	return r
}

// Save persists doc and invalidates its month.
func (r *LeaderboardSyncRepository) Save(ctx context.Context, doc *domain.ReportDocument) error {
	if err := r.ReportRepository.Save(ctx, doc); err != nil {
		return err
	}
	r.invalidate(ctx, []*domain.ReportDocument{doc})
	return nil
}

// SaveBatch persists docs and invalidates every month they touch.
func (r *LeaderboardSyncRepository) SaveBatch(ctx context.Context, docs []*domain.ReportDocument) error {
	if err := r.ReportRepository.SaveBatch(ctx, docs); err != nil {
		return err
	}
	r.invalidate(ctx, docs)
	return nil
}

type boardKey struct {
	congregationID domain.CongregationID
	month          domain.YearMonth
}

// invalidate is best-effort: a failed delete leaves the board stale until the next refresh.
func (r *LeaderboardSyncRepository) invalidate(ctx context.Context, docs []*domain.ReportDocument) {
	seen := make(map[boardKey]struct{}, 1)
	for _, doc := range docs {
		key := boardKey{congregationID: doc.CongregationID(), month: r.monthOf(doc)}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if err := r.leaderboard.InvalidateMonth(ctx, key.congregationID.String(), key.month); err != nil {
			r.logger.Warn("leaderboard invalidation failed",
				"congregation_id", key.congregationID.String(),
				"month", key.month.String(),
				"error", err.Error(),
			)
		}
	}
}

// monthOf is the month whose board doc can change. undated documents only
// count in the current month's board, when they count at all.
func (r *LeaderboardSyncRepository) monthOf(doc *domain.ReportDocument) domain.YearMonth {
	report := domain.Normalize(doc.Raw())
	if report.IsDated() {
		return report.Date().YearMonth()
	}
	return domain.DateOf(r.timeProvider()).YearMonth()
}
