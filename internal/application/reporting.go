package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

// TimeProvider abstracts time acquisition for testability.
// inject a custom implementation to control time in tests.
type TimeProvider func() time.Time

// RealTime returns the current local time.
// calendar dates are read in the process's local zone.
func RealTime() time.Time {
	return time.Now()
}

// InLocation returns a provider reading the wall clock in loc.
func InLocation(loc *time.Location) TimeProvider {
	return func() time.Time { return time.Now().In(loc) }
}

// ReportingConfig contains defaults for report queries.
type ReportingConfig struct {
	// Undated is applied when a query does not choose an undated policy.
	Undated domain.UndatedPolicy

	// RankingLimit is the ranking size when a query does not choose one.
	RankingLimit int

	// MaxRankingLimit caps what a query may ask for.
	MaxRankingLimit int
}

// DefaultReportingConfig returns sensible defaults.
func DefaultReportingConfig() ReportingConfig {
	return ReportingConfig{
		Undated:         domain.UndatedExclude,
		RankingLimit:    domain.DefaultRankingLimit,
		MaxRankingLimit: 50,
	}
}

// LeaderboardCache stores precomputed monthly rankings.
// allows the use case to remain decoupled from redis specifics.
type LeaderboardCache interface {
	StoreRanking(ctx context.Context, congregationID string, month domain.YearMonth, metric domain.Metric, entries []domain.RankEntry) error
	Ranking(ctx context.Context, congregationID string, month domain.YearMonth, metric domain.Metric, limit int) ([]domain.RankEntry, error)
	InvalidateMonth(ctx context.Context, congregationID string, month domain.YearMonth) error
}

// AggregationRecorder receives timing of snapshot loads.
type AggregationRecorder interface {
	SnapshotLoaded(duration time.Duration, records int, err error)
}

// SelectionInput is the query-string form of a domain.Selection.
// Week takes precedence over Year/Month; with neither, the window is unscoped.
type SelectionInput struct {
	Week     string
	Year     int
	Month    int
	Ministry string
	Text     string
	Undated  string
}

// Snapshot is one fetched and normalized view of a congregation's reports.
// queries over the same snapshot are independent and may run in parallel.
type Snapshot struct {
	CongregationID domain.CongregationID
	Reports        []domain.Report
	Undated        int
	Repaired       int
}

// ReportingUseCase answers totals, rankings and week catalog queries.
// every query refetches and renormalizes; nothing derived is kept between requests
// except the optional leaderboard cache, which is rebuilt from scratch each refresh.
type ReportingUseCase struct {
	store            domain.ReportStore
	congregationRepo domain.CongregationRepository
	leaderboard      LeaderboardCache
	recorder         AggregationRecorder
	config           ReportingConfig
	timeProvider     TimeProvider
	logger           *logging.Logger
}

// NewReportingUseCase creates a new ReportingUseCase.
func NewReportingUseCase(
	store domain.ReportStore,
	congregationRepo domain.CongregationRepository,
	config ReportingConfig,
	logger *logging.Logger,
) *ReportingUseCase {
	if config.RankingLimit <= 0 {
		config.RankingLimit = domain.DefaultRankingLimit
	}
	if config.MaxRankingLimit < config.RankingLimit {
		config.MaxRankingLimit = config.RankingLimit
	}
	return &ReportingUseCase{
		store:            store,
		congregationRepo: congregationRepo,
		config:           config,
		timeProvider:     RealTime,
		logger:           logger.WithComponent("reporting"),
	}
}

// WithTimeProvider sets a custom time provider for testing.
func (uc *ReportingUseCase) WithTimeProvider(tp TimeProvider) *ReportingUseCase {
	uc.timeProvider = tp
	return uc
}

// WithLeaderboard sets the leaderboard cache (redis).
// when set, monthly rankings are served from and pushed to the cache.
func (uc *ReportingUseCase) WithLeaderboard(lb LeaderboardCache) *ReportingUseCase {
	uc.leaderboard = lb
	return uc
}

// WithRecorder sets the metrics recorder.
func (uc *ReportingUseCase) WithRecorder(r AggregationRecorder) *ReportingUseCase {
	uc.recorder = r
	return uc
}

// Today returns the current calendar date.
func (uc *ReportingUseCase) Today() domain.CalendarDate {
	return domain.DateOf(uc.timeProvider())
}

// Snapshot fetches every raw record of the congregation and normalizes it.
// a failed fetch surfaces as domain.ErrStoreUnavailable; malformed records are
// repaired, counted and logged, never rejected.
func (uc *ReportingUseCase) Snapshot(ctx context.Context, congregationID domain.CongregationID) (*Snapshot, error) {
	started := time.Now()
	raws, err := uc.store.FetchAll(ctx, congregationID)
	if err != nil {
		uc.logger.Error("report fetch failed",
			"congregation_id", congregationID.String(),
			"error", err.Error(),
		)
		uc.observe(started, 0, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	snap := &Snapshot{
		CongregationID: congregationID,
		Reports:        make([]domain.Report, 0, len(raws)),
	}
	for _, raw := range raws {
		r, notes := domain.NormalizeWithNotes(raw)
		if !notes.Clean() {
			snap.Repaired++
			uc.logger.Debug("malformed report repaired",
				"congregation_id", congregationID.String(),
				"report_id", r.ID(),
				"missing_name", notes.MissingName,
				"missing_date", notes.MissingDate,
				"date_from_submitted_at", notes.DateFromSubmittedAt,
				"coerced_fields", strings.Join(notes.CoercedFields, ","),
			)
		}
		if !r.IsDated() {
			snap.Undated++
		}
		snap.Reports = append(snap.Reports, r)
	}

	uc.logger.RecordsNormalized(congregationID.String(), len(raws), snap.Repaired, snap.Undated)
	uc.observe(started, len(raws), nil)
	return snap, nil
}

func (uc *ReportingUseCase) observe(started time.Time, records int, err error) {
	if uc.recorder != nil {
		uc.recorder.SnapshotLoaded(time.Since(started), records, err)
	}
}

// BuildSelection validates a SelectionInput.
// a week must be a catalog Sunday, a month must be 1..12.
func (uc *ReportingUseCase) BuildSelection(in SelectionInput) (domain.Selection, error) {
	sel := domain.Selection{
		Ministry: in.Ministry,
		Text:     in.Text,
		Undated:  uc.config.Undated,
	}

	if in.Undated != "" {
		policy, err := domain.ParseUndatedPolicy(in.Undated)
		if err != nil {
			return domain.Selection{}, err
		}
		sel.Undated = policy
	}

	switch {
	case in.Week != "":
		start, err := domain.ParseCalendarDate(in.Week)
		if err != nil {
			return domain.Selection{}, domain.ErrInvalidWeek
		}
		week, err := domain.ValidateWeek(start)
		if err != nil {
			return domain.Selection{}, err
		}
		sel.Window = domain.WeekWindow(week.Start)
	case in.Year != 0 || in.Month != 0:
		ym := domain.YearMonth{Year: in.Year, Month: time.Month(in.Month)}
		if in.Year <= 0 || !ym.IsValid() {
			return domain.Selection{}, fmt.Errorf("%w: month %d-%d", domain.ErrInvalidInput, in.Year, in.Month)
		}
		sel.Window = domain.MonthWindow(ym)
	}
	return sel, nil
}

// TotalsInput asks for the totals of one selection.
type TotalsInput struct {
	CongregationID string
	Selection      SelectionInput
}

// TotalsOutput contains aggregated counters and their display form.
type TotalsOutput struct {
	Window string
	Totals domain.Totals
	Prayer domain.PrayerTime
}

// GetTotals aggregates the selection over a fresh snapshot.
func (uc *ReportingUseCase) GetTotals(ctx context.Context, input TotalsInput) (*TotalsOutput, error) {
	sel, snap, err := uc.load(ctx, input.CongregationID, input.Selection)
	if err != nil {
		return nil, err
	}

	totals := domain.Aggregate(snap.Reports, sel)
	return &TotalsOutput{
		Window: sel.Window.String(),
		Totals: totals,
		Prayer: totals.Prayer(),
	}, nil
}

// RankingInput asks for one metric's ranking.
// without a window the ranking covers the current month.
type RankingInput struct {
	CongregationID string
	Metric         string
	Selection      SelectionInput
	Limit          int
}

// RankingOutput contains an ordered ranking.
type RankingOutput struct {
	Metric  domain.Metric
	Window  string
	Entries []domain.RankEntry
}

// GetRanking ranks members by one metric.
func (uc *ReportingUseCase) GetRanking(ctx context.Context, input RankingInput) (*RankingOutput, error) {
	metric, err := domain.ParseMetric(input.Metric)
	if err != nil {
		return nil, err
	}

	in := input.Selection
	if in.Week == "" && in.Year == 0 && in.Month == 0 {
		today := uc.Today()
		in.Year, in.Month = today.Year(), int(today.Month())
	}

	sel, snap, err := uc.load(ctx, input.CongregationID, in)
	if err != nil {
		return nil, err
	}

	return &RankingOutput{
		Metric:  metric,
		Window:  sel.Window.String(),
		Entries: domain.Rank(snap.Reports, metric, sel, uc.limit(input.Limit)),
	}, nil
}

// LeaderboardInput asks for the current month's rankings of every metric.
type LeaderboardInput struct {
	CongregationID string
	Limit          int
}

// LeaderboardOutput contains per-metric rankings for one month.
type LeaderboardOutput struct {
	Month     domain.YearMonth
	Rankings  map[domain.Metric][]domain.RankEntry
	FromCache bool
}

// GetLeaderboard serves the monthly leaderboard, from cache when possible.
// a cache miss or error falls back to computing from the store.
func (uc *ReportingUseCase) GetLeaderboard(ctx context.Context, input LeaderboardInput) (*LeaderboardOutput, error) {
	congregationID, err := domain.ParseCongregationID(input.CongregationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	limit := uc.limit(input.Limit)
	month := uc.Today().YearMonth()

	if uc.leaderboard != nil {
		if board, ok := uc.cachedBoard(ctx, congregationID, month, limit); ok {
			return &LeaderboardOutput{Month: month, Rankings: board, FromCache: true}, nil
		}
	}

	board, err := uc.computeBoard(ctx, congregationID, month, uc.config.MaxRankingLimit)
	if err != nil {
		return nil, err
	}
	uc.storeBoard(ctx, congregationID, month, board)

	for m, entries := range board {
		if len(entries) > limit {
			board[m] = entries[:limit]
		}
	}
	return &LeaderboardOutput{Month: month, Rankings: board}, nil
}

func (uc *ReportingUseCase) cachedBoard(ctx context.Context, id domain.CongregationID, month domain.YearMonth, limit int) (map[domain.Metric][]domain.RankEntry, bool) {
	board := make(map[domain.Metric][]domain.RankEntry)
	for _, m := range domain.AllMetrics() {
		entries, err := uc.leaderboard.Ranking(ctx, id.String(), month, m, limit)
		if err != nil {
			uc.logger.Debug("leaderboard cache miss",
				"congregation_id", id.String(),
				"metric", m.String(),
				"reason", err.Error(),
			)
			return nil, false
		}
		board[m] = entries
	}
	return board, true
}

func (uc *ReportingUseCase) computeBoard(ctx context.Context, id domain.CongregationID, month domain.YearMonth, limit int) (map[domain.Metric][]domain.RankEntry, error) {
	snap, err := uc.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	sel := domain.Selection{Window: domain.MonthWindow(month), Undated: uc.config.Undated}
	return domain.Leaderboard(snap.Reports, sel, limit), nil
}

// storeBoard pushes rankings to the cache. best-effort, the store stays authoritative.
func (uc *ReportingUseCase) storeBoard(ctx context.Context, id domain.CongregationID, month domain.YearMonth, board map[domain.Metric][]domain.RankEntry) {
	if uc.leaderboard == nil {
		return
	}
	members := 0
	for m, entries := range board {
		if err := uc.leaderboard.StoreRanking(ctx, id.String(), month, m, entries); err != nil {
			uc.logger.Warn("leaderboard sync failed",
				"congregation_id", id.String(),
				"metric", m.String(),
				"error", err.Error(),
			)
			return
		}
		members = max(members, len(entries))
	}
	uc.logger.LeaderboardRefreshed(id.String(), month.String(), members)
}

// RefreshLeaderboard recomputes and caches the current month for one congregation.
func (uc *ReportingUseCase) RefreshLeaderboard(ctx context.Context, congregationID domain.CongregationID) error {
	if uc.leaderboard == nil {
		return nil
	}
	month := uc.Today().YearMonth()
	board, err := uc.computeBoard(ctx, congregationID, month, uc.config.MaxRankingLimit)
	if err != nil {
		return err
	}
	uc.storeBoard(ctx, congregationID, month, board)
	return nil
}

// RefreshAllInput controls a batch leaderboard refresh.
type RefreshAllInput struct {
	Concurrency int // congregations refreshed at once, 0 for 4
}

// RefreshAllOutput contains the result of a batch refresh.
type RefreshAllOutput struct {
	Processed int
	Succeeded int
	Failed    int
}

// RefreshAll refreshes every active congregation's leaderboard.
// useful for background jobs. one congregation failing does not stop the others.
func (uc *ReportingUseCase) RefreshAll(ctx context.Context, input RefreshAllInput) (*RefreshAllOutput, error) {
	congregations, err := uc.congregationRepo.ListActive(ctx)
	if err != nil {
		uc.logger.Error("batch leaderboard refresh failed: listing congregations",
			"error", err.Error(),
		)
		return nil, fmt.Errorf("listing congregations: %w", err)
	}

	concurrency := input.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]error, len(congregations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, c := range congregations {
		g.Go(func() error {
			results[i] = uc.RefreshLeaderboard(gctx, c.ID())
			return nil
		})
	}
	_ = g.Wait()

	output := &RefreshAllOutput{Processed: len(congregations)}
	for _, err := range results {
		if err != nil {
			output.Failed++
			continue
		}
		output.Succeeded++
	}

	uc.logger.Info("batch leaderboard refresh completed",
		"processed", output.Processed,
		"succeeded", output.Succeeded,
		"failed", output.Failed,
	)
	return output, nil
}

// GetWeekCatalog lists the weeks of a month. month is 1..12.
func (uc *ReportingUseCase) GetWeekCatalog(year, month int) ([]domain.WeekDescriptor, error) {
	ym := domain.YearMonth{Year: year, Month: time.Month(month)}
	if year <= 0 || !ym.IsValid() {
		return nil, fmt.Errorf("%w: month %d-%d", domain.ErrInvalidInput, year, month)
	}
	return domain.WeeksOfMonth(year, ym.Month), nil
}

// CurrentWeek returns the catalog entry for today's week.
func (uc *ReportingUseCase) CurrentWeek() domain.WeekDescriptor {
	return domain.CurrentWeek(uc.Today())
}

// ReportedWeeksInput asks which weeks have reports.
type ReportedWeeksInput struct {
	CongregationID string
	Selection      SelectionInput
}

// ListReportedWeeks buckets the selection by week, newest first.
func (uc *ReportingUseCase) ListReportedWeeks(ctx context.Context, input ReportedWeeksInput) ([]domain.WeekSummary, error) {
	sel, snap, err := uc.load(ctx, input.CongregationID, input.Selection)
	if err != nil {
		return nil, err
	}
	return domain.ReportedWeeks(snap.Reports, sel), nil
}

// ListReportsInput asks for the individual reports of a selection.
type ListReportsInput struct {
	CongregationID string
	Selection      SelectionInput
}

// ListReports returns matching reports, newest first.
func (uc *ReportingUseCase) ListReports(ctx context.Context, input ListReportsInput) ([]domain.Report, error) {
	sel, snap, err := uc.load(ctx, input.CongregationID, input.Selection)
	if err != nil {
		return nil, err
	}
	return domain.Select(snap.Reports, sel), nil
}

// load parses ids and the selection, then fetches a snapshot.
func (uc *ReportingUseCase) load(ctx context.Context, rawID string, in SelectionInput) (domain.Selection, *Snapshot, error) {
	congregationID, err := domain.ParseCongregationID(rawID)
	if err != nil {
		return domain.Selection{}, nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	sel, err := uc.BuildSelection(in)
	if err != nil {
		uc.logger.Info("report query rejected",
			"congregation_id", rawID,
			"reason", err.Error(),
			"outcome", "rejected",
		)
		return domain.Selection{}, nil, err
	}
	snap, err := uc.Snapshot(ctx, congregationID)
	if err != nil {
		return domain.Selection{}, nil, err
	}
	return sel, snap, nil
}

func (uc *ReportingUseCase) limit(requested int) int {
	switch {
	case requested <= 0:
		return uc.config.RankingLimit
	case requested > uc.config.MaxRankingLimit:
		return uc.config.MaxRankingLimit
	default:
		return requested
	}
}

// IsStoreUnavailable reports whether err came from the report fetch.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, domain.ErrStoreUnavailable)
}
