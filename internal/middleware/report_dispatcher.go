package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ContractScan/internal/domain/models"
	domrepo "ContractScan/internal/domain/repository"
	applogger "ContractScan/pkg/logger"
)

var ErrDispatcherFull = errors.New("report dispatcher buffer full")

// ReportDispatcher sits between the analyzer and the report publisher. It drops repeat
// publications of the same contract inside a short interval and buffers reports the
// downstream rejected, retrying them in the background with capped exponential backoff.
type ReportDispatcher struct {
	next     domrepo.ReportPublisher
	metrics  domrepo.Metrics
	l        *applogger.Logger
	interval time.Duration
	bufSize  int
	maxWait  time.Duration

	bufCh    chan *models.AnalysisReport
	stopCh   chan struct{}
	done     chan struct{}
	mu       sync.Mutex
	started  bool
	lastSent map[string]time.Time
	now      func() time.Time
}

type DispatcherOption func(*ReportDispatcher)

// WithMinInterval suppresses a second publication of one contract date within d.
func WithMinInterval(d time.Duration) DispatcherOption {
	return func(p *ReportDispatcher) { p.interval = d }
}

func WithBufferSize(n int) DispatcherOption {
	return func(p *ReportDispatcher) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithMaxBackoff caps the retry delay.
func WithMaxBackoff(d time.Duration) DispatcherOption {
	return func(p *ReportDispatcher) {
		if d > 0 {
			p.maxWait = d
		}
	}
}

func NewReportDispatcher(next domrepo.ReportPublisher, metrics domrepo.Metrics, l *applogger.Logger, opts ...DispatcherOption) *ReportDispatcher {
	p := &ReportDispatcher{
		next:     next,
		metrics:  metrics,
		l:        l,
		interval: 0,
		bufSize:  64,
		maxWait:  5 * time.Second,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.AnalysisReport, p.bufSize)
	return p
}

// Start launches the retry loop.
func (p *ReportDispatcher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	p.started = true
	go p.flush()
	return nil
}

// Stop ends the retry loop and closes the downstream publisher. Reports still buffered are
// dropped and logged.
func (p *ReportDispatcher) Stop(ctx context.Context) error {
	p.mu.Lock()
	started := p.started
	p.started = false
	p.mu.Unlock()
	if started {
		close(p.stopCh)
		select {
		case <-p.done:
		case <-ctx.Done():
			return fmt.Errorf("report dispatcher stop: %w", ctx.Err())
		}
	}
	if n := len(p.bufCh); n > 0 {
		p.l.Warn("dropping buffered reports", applogger.Int("count", n))
	}
	return p.next.Close()
}

// PublishReport forwards to the downstream publisher. A rejected report is queued for retry
// and nil is returned; ErrDispatcherFull is returned when the queue has no room.
func (p *ReportDispatcher) PublishReport(ctx context.Context, r *models.AnalysisReport) error {
	if r == nil {
		return fmt.Errorf("report is nil")
	}
	if !p.allow(models.Stamp(r.ContractDate)) {
		p.metrics.RecordError("dispatch_throttled")
		return nil
	}
	if err := p.next.PublishReport(ctx, r); err != nil {
		p.metrics.RecordError("dispatch_publish")
		select {
		case p.bufCh <- r:
			p.l.Warn("report publish deferred",
				applogger.Date("contract_date", r.ContractDate),
				applogger.Int("buffered", len(p.bufCh)),
				applogger.Error(err),
			)
			return nil
		default:
			p.metrics.RecordError("dispatch_buffer_full")
			return fmt.Errorf("%w: %v", ErrDispatcherFull, err)
		}
	}
	return nil
}

// Close satisfies ReportPublisher; lifecycle is owned by Stop.
func (p *ReportDispatcher) Close() error { return nil }

// Pending is the number of reports awaiting retry.
func (p *ReportDispatcher) Pending() int { return len(p.bufCh) }

func (p *ReportDispatcher) flush() {
	defer close(p.done)
	wait := 50 * time.Millisecond
	for {
		select {
		case <-p.stopCh:
			return
		case r := <-p.bufCh:
			err := p.next.PublishReport(context.Background(), r)
			if err == nil {
				wait = 50 * time.Millisecond
				p.l.Info("deferred report published", applogger.Date("contract_date", r.ContractDate))
				continue
			}
			p.metrics.RecordError("dispatch_retry")
			if wait < p.maxWait {
				wait *= 2
				if wait > p.maxWait {
					wait = p.maxWait
				}
			}
			select {
			case p.bufCh <- r:
			default:
				p.metrics.RecordError("dispatch_buffer_drop")
				p.l.Error("dropping report after failed retry", applogger.Date("contract_date", r.ContractDate), applogger.Error(err))
			}
			select {
			case <-time.After(wait):
			case <-p.stopCh:
				return
			}
		}
	}
}

func (p *ReportDispatcher) allow(stamp string) bool {
	if p.interval <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if last, ok := p.lastSent[stamp]; ok && now.Sub(last) < p.interval {
		return false
	}
	p.lastSent[stamp] = now
	return true
}
