// Package webhook delivers signed payment notifications to caller-supplied
// callback URLs after a randomized settlement delay, modeling real-world
// asynchronous gateway notifications rather than instant confirmation.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/citypay-ro/ghiseul-gateway/internal/domain/ports"
	"github.com/citypay-ro/ghiseul-gateway/pkg/httpx"
	"github.com/citypay-ro/ghiseul-gateway/pkg/observability"
	"github.com/citypay-ro/ghiseul-gateway/pkg/timeutil"
)

// SignatureHeader carries the payload signature on delivery.
const SignatureHeader = "X-Gateway-Signature"

// Default settlement delay window: 30s to 2 minutes.
const (
	DefaultDelayMin = 30 * time.Second
	DefaultDelayMax = 120 * time.Second
)

// LedgerBookkeeper records best-effort delivery bookkeeping on the
// transaction ledger. Failures here never alter delivery semantics.
type LedgerBookkeeper interface {
	MarkWebhookSent(ctx context.Context, transactionID string, sentAt time.Time) error
}

// Config holds scheduler tunables.
type Config struct {
	// DelayMin/DelayMax bound the uniformly sampled delivery delay.
	// Both zero selects the default 30s–120s window.
	DelayMin time.Duration
	DelayMax time.Duration

	// RequestTimeout bounds a single delivery attempt. Zero means 10s.
	RequestTimeout time.Duration
}

// Scheduler queues delayed fire-and-forget webhook deliveries. Each job
// fires exactly once; failures are logged, never retried. Retry policy, if
// any, is the receiver's responsibility.
type Scheduler struct {
	httpClient ports.HTTPClient
	ledger     LedgerBookkeeper
	logger     *zap.Logger
	cfg        Config

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
	closed  bool
}

// NewScheduler creates a webhook scheduler. httpClient may be nil, in which
// case a client tuned for webhook traffic is used. ledger may be nil to
// disable bookkeeping.
func NewScheduler(cfg Config, httpClient ports.HTTPClient, ledger LedgerBookkeeper, logger *zap.Logger) *Scheduler {
	if cfg.DelayMax <= 0 {
		cfg.DelayMin = DefaultDelayMin
		cfg.DelayMax = DefaultDelayMax
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = httpx.NewClient(httpx.WebhookClientConfig(), cfg.RequestTimeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		httpClient: httpClient,
		ledger:     ledger,
		logger:     logger,
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Schedule enqueues one delivery after a randomized delay. It never blocks
// the caller and never fails; a scheduler that is already closed drops the
// job with a log line.
func (s *Scheduler) Schedule(job ports.WebhookJob) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("Webhook scheduler closed, dropping job",
			zap.String("transaction_id", job.Payload.TransactionID),
		)
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	delay := s.sampleDelay()
	s.logger.Debug("Webhook scheduled",
		zap.String("transaction_id", job.Payload.TransactionID),
		zap.String("event", job.Payload.Event),
		zap.Duration("delay", delay),
	)

	go func() {
		defer s.pending.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			s.logger.Info("Webhook delivery canceled on shutdown",
				zap.String("transaction_id", job.Payload.TransactionID),
			)
			return
		case <-timer.C:
		}

		s.deliver(job)
	}()
}

// Close cancels pending jobs and waits for in-flight deliveries to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.pending.Wait()
}

// deliver POSTs the signed payload. Infrastructure failures are isolated:
// they are logged and must never roll back or alter the already-resolved
// transaction status.
func (s *Scheduler) deliver(job ports.WebhookJob) {
	started := time.Now()

	body, err := json.Marshal(job.Payload)
	if err != nil {
		s.logger.Error("Failed to marshal webhook payload",
			zap.String("transaction_id", job.Payload.TransactionID),
			zap.Error(err),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.CallbackURL, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("Failed to build webhook request",
			zap.String("transaction_id", job.Payload.TransactionID),
			zap.String("callback_url", job.CallbackURL),
			zap.Error(err),
		)
		observability.RecordWebhookDelivery(job.Payload.Event, false, time.Since(started))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, job.Payload.Signature)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("Webhook delivery failed",
			zap.String("transaction_id", job.Payload.TransactionID),
			zap.String("callback_url", job.CallbackURL),
			zap.Error(err),
		)
		observability.RecordWebhookDelivery(job.Payload.Event, false, time.Since(started))
		return
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("Webhook rejected by receiver",
			zap.String("transaction_id", job.Payload.TransactionID),
			zap.String("callback_url", job.CallbackURL),
			zap.String("response", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, respBody)),
		)
		observability.RecordWebhookDelivery(job.Payload.Event, false, time.Since(started))
		return
	}

	observability.RecordWebhookDelivery(job.Payload.Event, true, time.Since(started))
	s.logger.Info("Webhook delivered",
		zap.String("transaction_id", job.Payload.TransactionID),
		zap.String("event", job.Payload.Event),
		zap.Int("http_status", resp.StatusCode),
	)

	if s.ledger != nil {
		if err := s.ledger.MarkWebhookSent(ctx, job.Payload.TransactionID, timeutil.Now()); err != nil {
			s.logger.Warn("Failed to record webhook bookkeeping",
				zap.String("transaction_id", job.Payload.TransactionID),
				zap.Error(err),
			)
		}
	}
}

func (s *Scheduler) sampleDelay() time.Duration {
	span := s.cfg.DelayMax - s.cfg.DelayMin
	if span <= 0 {
		return s.cfg.DelayMin
	}
	return s.cfg.DelayMin + time.Duration(rand.Int63n(int64(span)))
}
