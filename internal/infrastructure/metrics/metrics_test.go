package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportSubmitted(t *testing.T) {
	m := New()
	m.ReportSubmitted("accepted")
	m.ReportSubmitted("accepted")
	m.ReportSubmitted("rejected")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReportsSubmittedTotal.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsSubmittedTotal.WithLabelValues("rejected")))
}

func TestSnapshotLoaded(t *testing.T) {
	m := New()
	m.SnapshotLoaded(20*time.Millisecond, 42, nil)
	assert.Equal(t, 42.0, testutil.ToFloat64(m.SnapshotRecords))

	// failed loads keep the last known size
	m.SnapshotLoaded(time.Second, 0, errors.New("boom"))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.SnapshotRecords))
	assert.Equal(t, 2, testutil.CollectAndCount(m.SnapshotLoadDuration))
}

func TestRecordLeaderboardRefresh(t *testing.T) {
	m := New()
	m.RecordLeaderboardRefresh(time.Second, 2)
	m.RecordLeaderboardRefresh(time.Second, 0)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LeaderboardRefreshFailures))
}

func TestMiddleware(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(Middleware(m))
	e.GET("/api/v1/panel/rankings/:metric", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/panel/rankings/chapters", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// route pattern, not the raw path
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration, "http_request_duration_seconds"))
}

func TestMiddlewareSkipsProbesAndLabelsErrors(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(Middleware(m))
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/api/v1/congregations/:slug", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "congregation not found")
	})

	for _, target := range []string{"/health", "/api/v1/congregations/no-such-church"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	}

	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
	count, err := testutil.GatherAndCount(m.Registry, "http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
