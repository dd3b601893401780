package worker

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

const (
	webhookEvent     = "notification.created"
	signatureHeader  = "X-Yujo-Signature"
	eventHeader      = "X-Yujo-Event"
	webhookUserAgent = "Yujo-Webhook/1.0"
)

// DeliveryRecorder counts webhook delivery outcomes.
type DeliveryRecorder interface {
	WebhookDelivered(outcome string)
}

// WebhookWorkerConfig holds configuration for the webhook dispatcher.
type WebhookWorkerConfig struct {
	// BufferSize is the size of the delivery channel buffer.
	BufferSize int

	// WorkerCount is the number of concurrent workers dispatching webhooks.
	WorkerCount int

	// RequestTimeout is the max time to wait for each outgoing HTTP request.
	RequestTimeout time.Duration

	// MaxAttempts bounds retries of network errors and 5xx answers.
	MaxAttempts int

	// RetryBackoff is the wait before the second attempt, doubled after each failure.
	RetryBackoff time.Duration
}

// DefaultWebhookWorkerConfig returns sensible defaults.
func DefaultWebhookWorkerConfig() WebhookWorkerConfig {
	return WebhookWorkerConfig{
		BufferSize:     500,
		WorkerCount:    2,
		RequestTimeout: 5 * time.Second,
		MaxAttempts:    3,
		RetryBackoff:   time.Second,
	}
}

// delivery is one notification bound for one subscriber.
type delivery struct {
	sub     *domain.WebhookSubscription
	payload []byte
	id      string
}

// WebhookWorker delivers pastoral notifications to subscribed endpoints.
// implements domain.NotificationService.
type WebhookWorker struct {
	deliveries chan delivery
	subRepo    domain.WebhookSubscriptionRepository
	httpClient *http.Client
	config     WebhookWorkerConfig
	logger     *logging.Logger
	recorder   DeliveryRecorder

	closing sync.RWMutex
	closed  bool

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewWebhookWorker creates a new webhook worker.
func NewWebhookWorker(
	subRepo domain.WebhookSubscriptionRepository,
	config WebhookWorkerConfig,
	logger *logging.Logger,
) *WebhookWorker {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &WebhookWorker{
		deliveries: make(chan delivery, config.BufferSize),
		subRepo:    subRepo,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		config:  config,
		logger:  logger.WithComponent("webhook_worker"),
		stopped: make(chan struct{}),
	}
}

// WithRecorder sets the delivery metrics recorder.
func (w *WebhookWorker) WithRecorder(r DeliveryRecorder) *WebhookWorker {
	w.recorder = r
	return w
}

// Start begins the worker goroutines.
func (w *WebhookWorker) Start(ctx context.Context) {
	w.logger.Info("webhook worker starting",
		"buffer_size", w.config.BufferSize,
		"worker_count", w.config.WorkerCount,
		"request_timeout", w.config.RequestTimeout.String(),
	)

	for i := 0; i < w.config.WorkerCount; i++ {
		w.wg.Add(1)
		go w.runWorker(ctx, i)
	}
}

// Stop gracefully shuts down the worker.
func (w *WebhookWorker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("webhook worker stopping, draining buffer...")
		w.closing.Lock()
		w.closed = true
		close(w.deliveries)
		w.closing.Unlock()
		w.wg.Wait()
		close(w.stopped)
		w.logger.Info("webhook worker stopped")
	})
}

// Stopped returns a channel that closes when the worker has fully stopped.
func (w *WebhookWorker) Stopped() <-chan struct{} {
	return w.stopped
}

// Dispatch queues one delivery per active subscriber of the notification's congregation.
// returns how many were queued; deliveries that do not fit the buffer are dropped.
func (w *WebhookWorker) Dispatch(ctx context.Context, n *domain.Notification) (int, error) {
	subs, err := w.subRepo.FindByCongregation(ctx, n.CongregationID())
	if err != nil {
		return 0, fmt.Errorf("fetching subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}

	payload, err := json.Marshal(newWebhookPayload(n))
	if err != nil {
		return 0, fmt.Errorf("encoding payload: %w", err)
	}

	w.closing.RLock()
	defer w.closing.RUnlock()
	if w.closed {
		return 0, nil
	}

	queued := 0
	for _, sub := range subs {
		select {
		case w.deliveries <- delivery{sub: sub, payload: payload, id: n.ID().String()}:
			queued++
		case <-ctx.Done():
			return queued, ctx.Err()
		default:
			w.logger.Warn("webhook buffer full, delivery dropped",
				"congregation_id", n.CongregationID().String(),
				"subscription_id", sub.ID().String(),
			)
			w.record("dropped")
		}
	}

	w.logger.Debug("notification queued for webhooks",
		"notification_id", n.ID().String(),
		"queued", queued,
	)
	return queued, nil
}

func (w *WebhookWorker) runWorker(ctx context.Context, workerID int) {
	defer w.wg.Done()

	done := ctx.Done()
	for {
		select {
		case d, ok := <-w.deliveries:
			if !ok {
				w.logger.Debug("worker exiting after drain", "worker_id", workerID)
				return
			}
			deliverCtx := ctx
			if ctx.Err() != nil {
				deliverCtx = context.WithoutCancel(ctx)
			}
			w.deliver(deliverCtx, d, workerID)

		case <-done:
			// queued deliveries are still sent, the worker exits on Stop
			done = nil
			w.logger.Debug("context cancelled, draining until stop", "worker_id", workerID)
		}
	}
}

// deliver sends d, retrying transient failures with exponential backoff.
func (w *WebhookWorker) deliver(ctx context.Context, d delivery, workerID int) {
	backoff := w.config.RetryBackoff
	for attempt := 1; attempt <= w.config.MaxAttempts; attempt++ {
		retry, err := w.sendWebhook(ctx, d)
		if err == nil {
			w.logger.Debug("webhook delivered",
				"notification_id", d.id,
				"target_url", d.sub.TargetURL(),
				"attempt", attempt,
			)
			w.record("delivered")
			return
		}

		w.logger.Warn("webhook delivery failed",
			"worker_id", workerID,
			"notification_id", d.id,
			"target_url", d.sub.TargetURL(),
			"attempt", attempt,
			"error", err.Error(),
		)
		if !retry || attempt == w.config.MaxAttempts {
			break
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			w.record("failed")
			return
		}
	}
	w.record("failed")
}

// sendWebhook posts one signed payload. retry reports whether the failure is transient.
func (w *WebhookWorker) sendWebhook(ctx context.Context, d delivery) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.sub.TargetURL(), bytes.NewReader(d.payload))
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signatureHeader, computeSignature(d.payload, d.sub.Secret()))
	req.Header.Set(eventHeader, webhookEvent)
	req.Header.Set("User-Agent", webhookUserAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return true, fmt.Errorf("status %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("status %d", resp.StatusCode)
	}
}

func (w *WebhookWorker) record(outcome string) {
	if w.recorder != nil {
		w.recorder.WebhookDelivered(outcome)
	}
}

// computeSignature generates the HMAC-SHA256 signature header value.
func computeSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// WebhookPayload is the JSON structure sent to webhook endpoints.
type WebhookPayload struct {
	Event          string `json:"event"`
	NotificationID string `json:"notification_id"`
	CongregationID string `json:"congregation_id"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	TargetType     string `json:"target_type"`
	TargetValue    string `json:"target_value,omitempty"`
	Timestamp      string `json:"timestamp"`
}

func newWebhookPayload(n *domain.Notification) WebhookPayload {
	return WebhookPayload{
		Event:          webhookEvent,
		NotificationID: n.ID().String(),
		CongregationID: n.CongregationID().String(),
		Title:          n.Title(),
		Message:        n.Message(),
		TargetType:     string(n.TargetType()),
		TargetValue:    n.TargetValue(),
		Timestamp:      n.CreatedAt().UTC().Format(time.RFC3339),
	}
}
