package worker

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/yujo/internal/application"
	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

type fakeReportRepo struct {
	domain.ReportRepository

	mu       sync.Mutex
	batches  [][]*domain.ReportDocument
	saved    []*domain.ReportDocument
	batchErr error
}

func (r *fakeReportRepo) SaveBatch(_ context.Context, docs []*domain.ReportDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batchErr != nil {
		return r.batchErr
	}
	r.batches = append(r.batches, append([]*domain.ReportDocument(nil), docs...))
	return nil
}

func (r *fakeReportRepo) Save(_ context.Context, doc *domain.ReportDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, doc)
	return nil
}

func (r *fakeReportRepo) batchedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func newDoc(t *testing.T, congregationID domain.CongregationID, name string) *domain.ReportDocument {
	t.Helper()
	report := domain.NewReport(name, "Jóvenes", domain.NewCalendarDate(2024, time.March, 6), domain.Metrics{Chapters: 3})
	doc, err := domain.NewReportDocument(congregationID, nil, report, time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return doc
}

func TestReportIngestionWorker(t *testing.T) {
	congregationID := domain.NewCongregationID()
	config := ReportIngestionConfig{BufferSize: 10, BatchSize: 3, FlushInterval: time.Hour, WorkerCount: 1}

	t.Run("drains everything on stop", func(t *testing.T) {
		repo := &fakeReportRepo{}
		w := NewReportIngestionWorker(repo, config, logging.Discard())
		for _, name := range []string{"Ana", "Beto", "Carla", "Dani", "Eva"} {
			require.True(t, w.Enqueue(newDoc(t, congregationID, name)))
		}
		w.Start(context.Background())
		w.Stop()

		<-w.Stopped()
		assert.Equal(t, 5, repo.batchedCount())
		for _, b := range repo.batches {
			assert.LessOrEqual(t, len(b), config.BatchSize)
		}
	})

	t.Run("cancelled context still drains on stop", func(t *testing.T) {
		repo := &fakeReportRepo{}
		cfg := ReportIngestionConfig{BufferSize: 100, BatchSize: 5, FlushInterval: time.Hour, WorkerCount: 2}
		w := NewReportIngestionWorker(repo, cfg, logging.Discard())

		ctx, cancel := context.WithCancel(context.Background())
		w.Start(ctx)
		for i := 0; i < 50; i++ {
			require.True(t, w.Enqueue(newDoc(t, congregationID, "Ana")))
		}
		cancel()
		w.Stop()

		assert.Equal(t, 50, repo.batchedCount())
		assert.Empty(t, repo.saved)
	})

	t.Run("full buffer refuses", func(t *testing.T) {
		repo := &fakeReportRepo{}
		w := NewReportIngestionWorker(repo, ReportIngestionConfig{BufferSize: 1, BatchSize: 1, FlushInterval: time.Hour}, logging.Discard())
		assert.True(t, w.Enqueue(newDoc(t, congregationID, "Ana")))
		assert.False(t, w.Enqueue(newDoc(t, congregationID, "Beto")))
		assert.Equal(t, 1, w.QueueSize())
	})

	t.Run("stopped worker refuses", func(t *testing.T) {
		w := NewReportIngestionWorker(&fakeReportRepo{}, config, logging.Discard())
		w.Start(context.Background())
		w.Stop()
		w.Stop()
		assert.False(t, w.Enqueue(newDoc(t, congregationID, "Ana")))
	})

	t.Run("failed batch falls back to single saves", func(t *testing.T) {
		repo := &fakeReportRepo{batchErr: errors.New("copy failed")}
		w := NewReportIngestionWorker(repo, config, logging.Discard())
		require.True(t, w.Enqueue(newDoc(t, congregationID, "Ana")))
		require.True(t, w.Enqueue(newDoc(t, congregationID, "Beto")))
		w.Start(context.Background())
		w.Stop()

		assert.Len(t, repo.saved, 2)
	})
}

type fakeSubscriptions struct {
	domain.WebhookSubscriptionRepository
	subs []*domain.WebhookSubscription
}

func (f *fakeSubscriptions) FindByCongregation(context.Context, domain.CongregationID) ([]*domain.WebhookSubscription, error) {
	return f.subs, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) WebhookDelivered(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[string]int)
	}
	r.outcomes[outcome]++
}

func newSubscription(t *testing.T, congregationID domain.CongregationID, url string) *domain.WebhookSubscription {
	t.Helper()
	id, err := domain.NewWebhookSubscriptionID("sub-1")
	require.NoError(t, err)
	sub, err := domain.NewWebhookSubscription(id, congregationID, url, "s3cret")
	require.NoError(t, err)
	return sub
}

func TestWebhookWorkerDispatch(t *testing.T) {
	congregationID := domain.NewCongregationID()
	n, err := domain.NewNotification(congregationID, "Vigilia", "Viernes 22hs", domain.TargetMinistry, "Jóvenes")
	require.NoError(t, err)

	var hits atomic.Int32
	var gotPayload WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mac := hmac.New(sha256.New, []byte("s3cret"))
		mac.Write(body)
		if r.Header.Get(signatureHeader) != "sha256="+hex.EncodeToString(mac.Sum(nil)) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.Unmarshal(body, &gotPayload)
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	recorder := &countingRecorder{}
	subs := &fakeSubscriptions{subs: []*domain.WebhookSubscription{newSubscription(t, congregationID, srv.URL)}}
	w := NewWebhookWorker(subs, DefaultWebhookWorkerConfig(), logging.Discard()).WithRecorder(recorder)
	w.Start(context.Background())

	queued, err := w.Dispatch(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, 1, queued)

	w.Stop()
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, recorder.outcomes["delivered"])
	assert.Equal(t, webhookEvent, gotPayload.Event)
	assert.Equal(t, "Vigilia", gotPayload.Title)
	assert.Equal(t, "ministerio", gotPayload.TargetType)
	assert.Equal(t, "Jóvenes", gotPayload.TargetValue)
}

func TestWebhookWorkerDeliversQueuedAfterCancel(t *testing.T) {
	congregationID := domain.NewCongregationID()
	n, err := domain.NewNotification(congregationID, "Culto", "Domingo 10hs", domain.TargetEveryone, "")
	require.NoError(t, err)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	subs := &fakeSubscriptions{subs: []*domain.WebhookSubscription{newSubscription(t, congregationID, srv.URL)}}
	w := NewWebhookWorker(subs, DefaultWebhookWorkerConfig(), logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()

	queued, err := w.Dispatch(context.Background(), n)
	require.NoError(t, err)
	require.Equal(t, 1, queued)

	w.Stop()
	assert.Equal(t, int32(1), hits.Load())
}

func TestWebhookWorkerRetries(t *testing.T) {
	congregationID := domain.NewCongregationID()
	n, err := domain.NewNotification(congregationID, "Ayuno", "Lunes", domain.TargetEveryone, "")
	require.NoError(t, err)

	config := DefaultWebhookWorkerConfig()
	config.RetryBackoff = time.Millisecond

	t.Run("server errors are retried", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		recorder := &countingRecorder{}
		subs := &fakeSubscriptions{subs: []*domain.WebhookSubscription{newSubscription(t, congregationID, srv.URL)}}
		w := NewWebhookWorker(subs, config, logging.Discard()).WithRecorder(recorder)
		w.Start(context.Background())
		_, err := w.Dispatch(context.Background(), n)
		require.NoError(t, err)
		w.Stop()

		assert.Equal(t, int32(2), hits.Load())
		assert.Equal(t, 1, recorder.outcomes["delivered"])
	})

	t.Run("client errors are not", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusGone)
		}))
		defer srv.Close()

		recorder := &countingRecorder{}
		subs := &fakeSubscriptions{subs: []*domain.WebhookSubscription{newSubscription(t, congregationID, srv.URL)}}
		w := NewWebhookWorker(subs, config, logging.Discard()).WithRecorder(recorder)
		w.Start(context.Background())
		_, err := w.Dispatch(context.Background(), n)
		require.NoError(t, err)
		w.Stop()

		assert.Equal(t, int32(1), hits.Load())
		assert.Equal(t, 1, recorder.outcomes["failed"])
	})

	t.Run("no subscribers", func(t *testing.T) {
		w := NewWebhookWorker(&fakeSubscriptions{}, config, logging.Discard())
		queued, err := w.Dispatch(context.Background(), n)
		require.NoError(t, err)
		assert.Zero(t, queued)
	})
}

type fakeRefresher struct {
	out   *application.RefreshAllOutput
	err   error
	input application.RefreshAllInput
}

func (f *fakeRefresher) RefreshAll(_ context.Context, input application.RefreshAllInput) (*application.RefreshAllOutput, error) {
	f.input = input
	return f.out, f.err
}

type refreshRecorder struct {
	cycles int
	failed int
}

func (r *refreshRecorder) RecordLeaderboardRefresh(_ time.Duration, failed int) {
	r.cycles++
	r.failed += failed
}

func TestLeaderboardRefreshWorker(t *testing.T) {
	refresher := &fakeRefresher{out: &application.RefreshAllOutput{Processed: 3, Succeeded: 2, Failed: 1}}
	recorder := &refreshRecorder{}
	w := NewLeaderboardRefreshWorker(refresher, time.Hour, 4, logging.Discard()).WithRecorder(recorder)

	w.RunOnce(context.Background())
	assert.Equal(t, 4, refresher.input.Concurrency)
	assert.Equal(t, 1, recorder.cycles)
	assert.Equal(t, 1, recorder.failed)

	refresher.out, refresher.err = nil, errors.New("listing congregations")
	w.RunOnce(context.Background())
	assert.Equal(t, 2, recorder.cycles)
	assert.Equal(t, 1, recorder.failed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)
	assert.Equal(t, 3, recorder.cycles)
}
