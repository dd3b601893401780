package worker

import (
	"context"
	"time"

	"github.com/joacominatel/yujo/internal/application"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

// LeaderboardRefresher is the use case the refresh loop drives.
type LeaderboardRefresher interface {
	RefreshAll(ctx context.Context, input application.RefreshAllInput) (*application.RefreshAllOutput, error)
}

// RefreshRecorder records refresh cycles.
type RefreshRecorder interface {
	RecordLeaderboardRefresh(duration time.Duration, failed int)
}

// LeaderboardRefreshWorker recomputes the monthly leaderboards of every active
// congregation on a fixed interval, keeping the redis rankings warm.
type LeaderboardRefreshWorker struct {
	refresher   LeaderboardRefresher
	interval    time.Duration
	concurrency int
	recorder    RefreshRecorder
	logger      *logging.Logger
}

// NewLeaderboardRefreshWorker creates a refresh loop.
func NewLeaderboardRefreshWorker(refresher LeaderboardRefresher, interval time.Duration, concurrency int, logger *logging.Logger) *LeaderboardRefreshWorker {
	return &LeaderboardRefreshWorker{
		refresher:   refresher,
		interval:    interval,
		concurrency: concurrency,
		logger:      logger.WithComponent("leaderboard_refresh_worker"),
	}
}

// WithRecorder sets the metrics recorder.
func (w *LeaderboardRefreshWorker) WithRecorder(r RefreshRecorder) *LeaderboardRefreshWorker {
	w.recorder = r
	return w
}

// Run refreshes immediately and then every interval until ctx is cancelled.
func (w *LeaderboardRefreshWorker) Run(ctx context.Context) {
	w.logger.Info("leaderboard refresh worker started", "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("leaderboard refresh worker stopping")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single refresh cycle.
func (w *LeaderboardRefreshWorker) RunOnce(ctx context.Context) {
	start := time.Now()
	result, err := w.refresher.RefreshAll(ctx, application.RefreshAllInput{Concurrency: w.concurrency})
	duration := time.Since(start)

	failed := 0
	if result != nil {
		failed = result.Failed
	}
	if w.recorder != nil {
		w.recorder.RecordLeaderboardRefresh(duration, failed)
	}

	if err != nil {
		w.logger.Error("leaderboard refresh failed",
			"error", err.Error(),
			"duration_ms", duration.Milliseconds(),
		)
		return
	}

	w.logger.Info("leaderboard refresh completed",
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"duration_ms", duration.Milliseconds(),
	)
}
