package worker

import (
	"context"
	"sync"
	"time"

	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

// BufferRecorder abstracts prometheus metrics for the ingestion worker.
// keeps worker decoupled from metrics package.
type BufferRecorder interface {
	SetBufferSize(size int)
}

// ReportIngestionConfig holds configuration for the ingestion worker.
type ReportIngestionConfig struct {
	// BufferSize is the size of the report channel buffer.
	BufferSize int

	// BatchSize is the number of reports to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time to wait before flushing a partial batch.
	FlushInterval time.Duration

	// WorkerCount is the number of concurrent writers.
	WorkerCount int
}

// DefaultReportIngestionConfig returns defaults sized for a single congregation
// on a sunday evening.
func DefaultReportIngestionConfig() ReportIngestionConfig {
	return ReportIngestionConfig{
		BufferSize:    1000,
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
		WorkerCount:   2,
	}
}

// drainTimeout bounds each flush once the parent context is gone.
const drainTimeout = 10 * time.Second

// ReportIngestionWorker writes submitted reports in batches.
// implements application.ReportQueue.
type ReportIngestionWorker struct {
	reportChan chan *domain.ReportDocument
	repo       domain.ReportRepository
	config     ReportIngestionConfig
	logger     *logging.Logger
	metrics    BufferRecorder

	// closing guards sends against the channel being closed by Stop
	closing sync.RWMutex
	closed  bool

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewReportIngestionWorker creates a new report ingestion worker.
func NewReportIngestionWorker(
	repo domain.ReportRepository,
	config ReportIngestionConfig,
	logger *logging.Logger,
) *ReportIngestionWorker {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.BatchSize < 1 {
		config.BatchSize = 1
	}
	return &ReportIngestionWorker{
		reportChan: make(chan *domain.ReportDocument, config.BufferSize),
		repo:       repo,
		config:     config,
		logger:     logger.WithComponent("report_ingestion_worker"),
		stopped:    make(chan struct{}),
	}
}

// WithMetrics sets the metrics recorder for observability.
func (w *ReportIngestionWorker) WithMetrics(m BufferRecorder) *ReportIngestionWorker {
	w.metrics = m
	return w
}

// Enqueue hands a report to the writers without blocking.
// returns false when the buffer is full or the worker is stopping,
// the caller then saves synchronously.
func (w *ReportIngestionWorker) Enqueue(doc *domain.ReportDocument) bool {
	w.closing.RLock()
	defer w.closing.RUnlock()
	if w.closed {
		return false
	}

	select {
	case w.reportChan <- doc:
		if w.metrics != nil {
			w.metrics.SetBufferSize(len(w.reportChan))
		}
		return true
	default:
		w.logger.Warn("ingestion buffer full, saving inline",
			"congregation_id", doc.CongregationID().String(),
			"buffer_size", w.config.BufferSize,
		)
		return false
	}
}

// Start begins the worker goroutines.
// call this before accepting reports. cancelling ctx does not end the
// workers; they exit once Stop has closed the buffer and it is drained.
func (w *ReportIngestionWorker) Start(ctx context.Context) {
	w.logger.Info("report ingestion worker starting",
		"buffer_size", w.config.BufferSize,
		"batch_size", w.config.BatchSize,
		"flush_interval", w.config.FlushInterval.String(),
		"worker_count", w.config.WorkerCount,
	)

	for i := 0; i < w.config.WorkerCount; i++ {
		w.wg.Add(1)
		go w.runWorker(ctx, i)
	}
}

// Stop gracefully shuts down the worker, draining remaining reports.
func (w *ReportIngestionWorker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("report ingestion worker stopping, draining buffer...")

		w.closing.Lock()
		w.closed = true
		close(w.reportChan)
		w.closing.Unlock()

		w.wg.Wait()

		close(w.stopped)
		w.logger.Info("report ingestion worker stopped")
	})
}

// Stopped returns a channel that closes when the worker has fully stopped.
func (w *ReportIngestionWorker) Stopped() <-chan struct{} {
	return w.stopped
}

// QueueSize returns the current number of reports waiting in the buffer.
func (w *ReportIngestionWorker) QueueSize() int {
	return len(w.reportChan)
}

func (w *ReportIngestionWorker) runWorker(ctx context.Context, workerID int) {
	defer w.wg.Done()

	batch := make([]*domain.ReportDocument, 0, w.config.BatchSize)
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	done := ctx.Done()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		flushCtx := ctx
		if ctx.Err() != nil {
			var cancel context.CancelFunc
			flushCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
			defer cancel()
		}
		w.flushBatch(flushCtx, batch, workerID)
		batch = batch[:0]
	}

	for {
		select {
		case doc, ok := <-w.reportChan:
			if !ok {
				flush()
				w.logger.Debug("worker exiting after drain", "worker_id", workerID)
				return
			}

			batch = append(batch, doc)
			if len(batch) >= w.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-done:
			// reports already accepted must still reach the store,
			// keep reading until Stop closes the channel
			done = nil
			w.logger.Debug("context cancelled, draining until stop", "worker_id", workerID)
		}
	}
}

// flushBatch persists a batch, falling back to one-by-one saves so a single
// bad document does not lose the rest.
func (w *ReportIngestionWorker) flushBatch(ctx context.Context, batch []*domain.ReportDocument, workerID int) {
	start := time.Now()
	err := w.repo.SaveBatch(ctx, batch)
	duration := time.Since(start)

	if w.metrics != nil {
		w.metrics.SetBufferSize(len(w.reportChan))
	}

	if err == nil {
		w.logger.Debug("batch flushed",
			"worker_id", workerID,
			"batch_size", len(batch),
			"duration_ms", duration.Milliseconds(),
		)
		return
	}

	w.logger.Error("batch save failed, retrying individually",
		"worker_id", workerID,
		"batch_size", len(batch),
		"error", err.Error(),
		"duration_ms", duration.Milliseconds(),
	)

	lost := 0
	for _, doc := range batch {
		if err := w.repo.Save(ctx, doc); err != nil {
			lost++
			w.logger.Error("report dropped",
				"worker_id", workerID,
				"report_id", doc.ID().String(),
				"congregation_id", doc.CongregationID().String(),
				"error", err.Error(),
			)
		}
	}
	if lost > 0 {
		w.logger.Warn("batch partially lost", "worker_id", workerID, "lost", lost, "batch_size", len(batch))
	}
}
