package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
	"github.com/Miquel-TA/cat-feeder/internal/infrastructure/actuator"
)

// ErrCapacityExceeded is the back-pressure signal returned by Admit when the
// pending count reaches the configured bound. The producer must back off or
// drop; the queue never drops silently.
var ErrCapacityExceeded = errors.New("dispatch: queue capacity exceeded")

// ErrQueueClosed is returned by Admit after shutdown has begun.
var ErrQueueClosed = errors.New("dispatch: queue closed")

// EventSink is the narrow sink surface the dispatch loop needs.
type EventSink interface {
	EmitVisual(item *model.QueuedItem)
	EmitActuationResult(item *model.QueuedItem, outcome model.Outcome)
}

// SleepGate answers whether actuation is suppressed at an instant.
type SleepGate interface {
	Evaluate(t time.Time) model.SleepVerdict
}

// ActuatorLink is the send-and-confirm operation the release loop calls.
type ActuatorLink interface {
	SendCommand(ctx context.Context, motorIndex int) error
}

// DispatchConfig tunes pacing, capacity and the retry policy.
type DispatchConfig struct {
	MinSpacing  time.Duration
	Capacity    int
	MaxAttempts int
	RetryBase   time.Duration
	RetryFactor int
	// SuppressVisualDuringSleep also hides the on-screen alert while the
	// sleep window is active. Off by default: the overlay keeps showing
	// alerts, only the motors stay quiet.
	SuppressVisualDuringSleep bool
}

func (c DispatchConfig) withDefaults() DispatchConfig {
	if c.MinSpacing == 0 {
		c.MinSpacing = 8 * time.Second
	}
	if c.Capacity == 0 {
		c.Capacity = 100
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBase == 0 {
		c.RetryBase = time.Second
	}
	if c.RetryFactor == 0 {
		c.RetryFactor = 3
	}
	return c
}

// DispatchStatus is the queue's contribution to the status surface.
type DispatchStatus struct {
	Depth       int
	InFlight    bool
	LastRelease time.Time
}

// DispatchQueue is the ordered, time-paced buffer of pending alerts. It is
// single-consumer: exactly one item at a time flows through visual emission
// and actuation, which also bounds actuator access to one caller. Admission
// never blocks on actuator state.
type DispatchQueue struct {
	cfg  DispatchConfig
	sink EventSink
	gate SleepGate
	link ActuatorLink
	log  *slog.Logger

	mu          sync.Mutex
	pending     []*model.QueuedItem // FIFO by Seq; front may carry a future EligibleAt
	seq         uint64
	lastRelease time.Time
	inFlight    bool
	closed      bool

	wake chan struct{}
}

// NewDispatchQueue wires the queue to its collaborators. Run must be started
// for admitted items to be released.
func NewDispatchQueue(cfg DispatchConfig, sink EventSink, gate SleepGate, link ActuatorLink, log *slog.Logger) *DispatchQueue {
	return &DispatchQueue{
		cfg:  cfg.withDefaults(),
		sink: sink,
		gate: gate,
		link: link,
		log:  log,
		wake: make(chan struct{}, 1),
	}
}

// Admit appends a donation to the queue and returns its sequence number.
// Fails fast with ErrCapacityExceeded when the pending bound is reached.
func (q *DispatchQueue) Admit(event *model.DonationEvent) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, ErrQueueClosed
	}
	if len(q.pending) >= q.cfg.Capacity {
		return 0, ErrCapacityExceeded
	}
	q.seq++
	item := &model.QueuedItem{
		Seq:        q.seq,
		Event:      event,
		AdmittedAt: time.Now(),
		State:      model.StatePending,
	}
	q.pending = append(q.pending, item)
	q.signal()
	return item.Seq, nil
}

// Status reports depth and pacing state for the status surface.
func (q *DispatchQueue) Status() DispatchStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return DispatchStatus{
		Depth:       len(q.pending),
		InFlight:    q.inFlight,
		LastRelease: q.lastRelease,
	}
}

// Run is the single release loop. It drains on cancellation: admission stops,
// the in-flight item finishes or times out, then the loop exits.
func (q *DispatchQueue) Run(ctx context.Context) error {
	defer q.close()
	for {
		item, releaseAt := q.peek(ctx)
		if item == nil {
			return ctx.Err()
		}
		if !q.waitUntil(ctx, releaseAt) {
			return ctx.Err()
		}
		q.release(ctx, item)
	}
}

// peek blocks until the queue is non-empty and returns the front item with
// its earliest release instant. Spacing is measured against the last release
// even across idle gaps.
func (q *DispatchQueue) peek(ctx context.Context) (*model.QueuedItem, time.Time) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			item := q.pending[0]
			releaseAt := q.lastRelease.Add(q.cfg.MinSpacing)
			if item.EligibleAt.After(releaseAt) {
				releaseAt = item.EligibleAt
			}
			q.mu.Unlock()
			return item, releaseAt
		}
		q.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, time.Time{}
		case <-q.wake:
		}
	}
}

func (q *DispatchQueue) waitUntil(ctx context.Context, at time.Time) bool {
	delay := time.Until(at)
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// release runs the per-item protocol: visual first (deterministic latency,
// never blocked by actuator state), then the sleep gate, then actuation.
func (q *DispatchQueue) release(ctx context.Context, item *model.QueuedItem) {
	q.mu.Lock()
	q.pending = q.pending[1:]
	q.inFlight = true
	now := time.Now()
	q.lastRelease = now
	q.mu.Unlock()
	defer q.clearInFlight()

	firstRelease := item.State == model.StatePending
	if firstRelease {
		item.State = model.StateReleased
	}

	verdict := q.gate.Evaluate(now)

	if firstRelease && !(verdict.Suppressed && q.cfg.SuppressVisualDuringSleep) {
		q.sink.EmitVisual(item)
		item.State = model.StateVisualSent
	}

	if verdict.Suppressed {
		item.State = model.StateActuationSuppressed
		q.log.Info("sleep window active, skipping motor trigger",
			"seq", item.Seq, "next_transition", verdict.NextTransition)
		q.finish(item, model.OutcomeSuppressed)
		return
	}

	item.State = model.StateActuationRequested
	item.Attempts++
	err := q.link.SendCommand(ctx, item.Event.Tier.MotorIndex)
	switch {
	case err == nil:
		item.State = model.StateActuationAcked
		q.finish(item, model.OutcomeSucceeded)

	case actuator.IsRetryable(err) && item.Attempts < q.cfg.MaxAttempts:
		backoff := q.retryBackoff(item.Attempts)
		item.EligibleAt = time.Now().Add(backoff)
		q.log.Warn("actuation failed, re-queuing at front",
			"seq", item.Seq, "attempt", item.Attempts, "backoff", backoff, "error", err)
		q.requeueFront(item)

	default:
		item.State = model.StateActuationFailed
		q.log.Error("actuation failed permanently",
			"seq", item.Seq, "attempts", item.Attempts, "error", err)
		q.finish(item, model.OutcomeFailed)
	}
}

func (q *DispatchQueue) finish(item *model.QueuedItem, outcome model.Outcome) {
	q.sink.EmitActuationResult(item, outcome)
	item.State = model.StateDone
}

// requeueFront re-inserts a retryable item ahead of later arrivals so its
// semantic order holds; the eligibility timestamp keeps the jam bounded.
func (q *DispatchQueue) requeueFront(item *model.QueuedItem) {
	q.mu.Lock()
	q.pending = append([]*model.QueuedItem{item}, q.pending...)
	q.mu.Unlock()
	q.signal()
}

// retryBackoff grows geometrically: base, base*factor, base*factor^2, ...
func (q *DispatchQueue) retryBackoff(attempt int) time.Duration {
	backoff := q.cfg.RetryBase
	for i := 1; i < attempt; i++ {
		backoff *= time.Duration(q.cfg.RetryFactor)
	}
	return backoff
}

func (q *DispatchQueue) clearInFlight() {
	q.mu.Lock()
	q.inFlight = false
	q.mu.Unlock()
}

func (q *DispatchQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *DispatchQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
