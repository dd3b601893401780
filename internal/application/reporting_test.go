package application

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

// mixed client versions: spanish keys, string counters, submittedAt only, undated.
func sampleRecords() []domain.RawRecord {
	return []domain.RawRecord{
		{"nombre": "Ana", "ministerio": "Damas y Jóvenes", "fecha": "2024-03-03", "capitulos": 5, "horas": 1, "minutos": 45},
		{"memberName": "Ana", "ministry": "Damas y Jóvenes", "date": "2024-03-10", "chapters": "3", "prayerMinutes": 30},
		{"memberName": "Beto", "ministry": "Caballeros", "submittedAt": "2024-03-04T22:00:00Z", "chapters": 8, "prayerMinutes": 30},
		{"memberName": "Carla", "ministry": "Damas", "chapters": 4},
		{"memberName": "Dani", "ministry": "Jovenes", "date": "2024-02-25", "chapters": 10},
	}
}

func newReporting(t *testing.T, raws []domain.RawRecord) (*ReportingUseCase, domain.CongregationID) {
	t.Helper()
	id := domain.NewCongregationID()
	store := new(mockReportRepo)
	store.On("FetchAll", mock.Anything, id).Return(raws, nil)

	uc := NewReportingUseCase(store, new(mockCongregationRepo), DefaultReportingConfig(), logging.Discard()).
		WithTimeProvider(fixedTime("2024-03-06 10:00"))
	return uc, id
}

func TestReporting_Snapshot(t *testing.T) {
	uc, id := newReporting(t, sampleRecords())

	snap, err := uc.Snapshot(context.Background(), id)
	require.NoError(t, err)

	assert.Len(t, snap.Reports, 5)
	assert.Equal(t, 1, snap.Undated)
	assert.GreaterOrEqual(t, snap.Repaired, 2)
	assert.Equal(t, "2024-03-04", snap.Reports[2].Date().String())
}

func TestReporting_StoreUnavailable(t *testing.T) {
	id := domain.NewCongregationID()
	store := new(mockReportRepo)
	store.On("FetchAll", mock.Anything, id).Return(nil, errors.New("dial tcp: refused"))
	uc := NewReportingUseCase(store, new(mockCongregationRepo), DefaultReportingConfig(), logging.Discard())

	_, err := uc.GetTotals(context.Background(), TotalsInput{CongregationID: id.String()})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.True(t, IsStoreUnavailable(err))
}

func TestReporting_GetTotals(t *testing.T) {
	uc, id := newReporting(t, sampleRecords())
	ctx := context.Background()

	t.Run("week", func(t *testing.T) {
		out, err := uc.GetTotals(ctx, TotalsInput{
			CongregationID: id.String(),
			Selection:      SelectionInput{Week: "2024-03-03"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Totals.Reports)
		assert.Equal(t, 13, out.Totals.Chapters)
		assert.Equal(t, "2:15", out.Prayer.String())
	})

	t.Run("week and ministry", func(t *testing.T) {
		out, err := uc.GetTotals(ctx, TotalsInput{
			CongregationID: id.String(),
			Selection:      SelectionInput{Week: "2024-03-03", Ministry: "dama"},
		})
		require.NoError(t, err)
		assert.Equal(t, 5, out.Totals.Chapters)
	})

	t.Run("undated included on request", func(t *testing.T) {
		out, err := uc.GetTotals(ctx, TotalsInput{
			CongregationID: id.String(),
			Selection:      SelectionInput{Week: "2024-03-03", Undated: "include"},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, out.Totals.Reports)
		assert.Equal(t, 17, out.Totals.Chapters)
	})

	t.Run("month", func(t *testing.T) {
		out, err := uc.GetTotals(ctx, TotalsInput{
			CongregationID: id.String(),
			Selection:      SelectionInput{Year: 2024, Month: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, out.Totals.Reports)
		assert.Equal(t, 10, out.Totals.Chapters)
	})

	t.Run("no matches is zero, not an error", func(t *testing.T) {
		out, err := uc.GetTotals(ctx, TotalsInput{
			CongregationID: id.String(),
			Selection:      SelectionInput{Year: 2023, Month: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.Totals{}, out.Totals)
		assert.Equal(t, "0:00", out.Prayer.String())
	})
}

func TestReporting_SelectionErrors(t *testing.T) {
	uc, id := newReporting(t, sampleRecords())

	tests := []struct {
		name string
		in   SelectionInput
		want error
	}{
		{"week not a sunday", SelectionInput{Week: "2024-03-05"}, domain.ErrInvalidWeek},
		{"week unparseable", SelectionInput{Week: "marzo"}, domain.ErrInvalidWeek},
		{"month out of range", SelectionInput{Year: 2024, Month: 13}, domain.ErrInvalidInput},
		{"month without year", SelectionInput{Month: 3}, domain.ErrInvalidInput},
		{"bad undated policy", SelectionInput{Undated: "sometimes"}, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.GetTotals(context.Background(), TotalsInput{CongregationID: id.String(), Selection: tt.in})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReporting_GetRanking_DefaultsToCurrentMonth(t *testing.T) {
	uc, id := newReporting(t, sampleRecords())

	out, err := uc.GetRanking(context.Background(), RankingInput{
		CongregationID: id.String(),
		Metric:         "capitulos",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MetricChapters, out.Metric)
	assert.Equal(t, "month 2024-03", out.Window)
	require.Len(t, out.Entries, 2)
	// equal totals fall back to name order
	assert.Equal(t, "Ana", out.Entries[0].MemberName)
	assert.Equal(t, 8, out.Entries[0].Value)
	assert.Equal(t, 2, out.Entries[0].Reports)
	assert.Equal(t, "Beto", out.Entries[1].MemberName)
	assert.Equal(t, 2, out.Entries[1].Position)
}

func TestReporting_GetRanking_Prayer(t *testing.T) {
	uc, id := newReporting(t, sampleRecords())

	out, err := uc.GetRanking(context.Background(), RankingInput{
		CongregationID: id.String(),
		Metric:         "prayerMinutes",
		Limit:          1,
	})
	require.NoError(t, err)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "Ana", out.Entries[0].MemberName)
	assert.Equal(t, 135, out.Entries[0].Value)
}

func TestReporting_GetRanking_UnknownMetric(t *testing.T) {
	uc, id := newReporting(t, sampleRecords())

	_, err := uc.GetRanking(context.Background(), RankingInput{CongregationID: id.String(), Metric: "tithes"})
	assert.ErrorIs(t, err, domain.ErrInvalidMetric)
}

func TestReporting_Leaderboard_CachesMonth(t *testing.T) {
	uc, id := newReporting(t, sampleRecords())
	cache := newFakeLeaderboard()
	uc.WithLeaderboard(cache)
	ctx := context.Background()

	first, err := uc.GetLeaderboard(ctx, LeaderboardInput{CongregationID: id.String()})
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, domain.YearMonth{Year: 2024, Month: 3}, first.Month)
	assert.Equal(t, len(domain.AllMetrics()), cache.stores)

	second, err := uc.GetLeaderboard(ctx, LeaderboardInput{CongregationID: id.String()})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Rankings[domain.MetricChapters], second.Rankings[domain.MetricChapters])
}

func TestReporting_Leaderboard_WithoutCache(t *testing.T) {
	uc, id := newReporting(t, sampleRecords())

	out, err := uc.GetLeaderboard(context.Background(), LeaderboardInput{CongregationID: id.String(), Limit: 1})
	require.NoError(t, err)
	assert.False(t, out.FromCache)
	for _, m := range domain.AllMetrics() {
		assert.LessOrEqual(t, len(out.Rankings[m]), 1, m.String())
	}
}

func TestReporting_RefreshAll_CountsFailures(t *testing.T) {
	ok := activeCongregation("iglesia-norte")
	broken := activeCongregation("iglesia-sur")

	store := new(mockReportRepo)
	store.On("FetchAll", mock.Anything, ok.ID()).Return(sampleRecords(), nil)
	store.On("FetchAll", mock.Anything, broken.ID()).Return(nil, errors.New("timeout"))
	congregations := new(mockCongregationRepo)
	congregations.On("ListActive", mock.Anything).Return([]*domain.Congregation{ok, broken}, nil)

	cache := newFakeLeaderboard()
	uc := NewReportingUseCase(store, congregations, DefaultReportingConfig(), logging.Discard()).
		WithLeaderboard(cache).
		WithTimeProvider(fixedTime("2024-03-06 10:00"))

	out, err := uc.RefreshAll(context.Background(), RefreshAllInput{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Processed)
	assert.Equal(t, 1, out.Succeeded)
	assert.Equal(t, 1, out.Failed)

	entries, err := cache.Ranking(context.Background(), ok.ID().String(), domain.YearMonth{Year: 2024, Month: 3}, domain.MetricChapters, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReporting_WeekQueries(t *testing.T) {
	uc, id := newReporting(t, sampleRecords())

	weeks, err := uc.GetWeekCatalog(2024, 2)
	require.NoError(t, err)
	assert.Len(t, weeks, 5)

	_, err = uc.GetWeekCatalog(2024, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, "2024-03-03", uc.CurrentWeek().Start.String())

	reported, err := uc.ListReportedWeeks(context.Background(), ReportedWeeksInput{
		CongregationID: id.String(),
		Selection:      SelectionInput{Year: 2024, Month: 3},
	})
	require.NoError(t, err)
	require.Len(t, reported, 2)
	assert.Equal(t, "2024-03-10", reported[0].Start.String())
	assert.Equal(t, 1, reported[0].Totals.Reports)
	assert.Equal(t, 2, reported[1].Totals.Reports)
}

func TestReporting_ExportCSV(t *testing.T) {
	uc, id := newReporting(t, sampleRecords())
	var buf bytes.Buffer

	n, err := uc.ExportCSV(context.Background(), ListReportsInput{
		CongregationID: id.String(),
		Selection:      SelectionInput{Week: "2024-03-03"},
	}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "\ufeffNombre,Ministerio,Capítulos,Ayunos,Almas,Horas,Minutos,Altares Familiares,Fecha", lines[0])
	// newest first
	assert.Equal(t, "Beto,Caballeros,8,0,0,0,30,0,2024-03-04", lines[1])
	assert.Equal(t, "Ana,Damas y Jóvenes,5,0,0,1,45,0,2024-03-03", lines[2])
}

func TestReporting_InvalidCongregationID(t *testing.T) {
	uc, _ := newReporting(t, nil)

	_, err := uc.ListReports(context.Background(), ListReportsInput{CongregationID: "not-a-uuid"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
