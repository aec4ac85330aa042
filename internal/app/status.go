package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
	"github.com/Miquel-TA/cat-feeder/internal/domain/repository"
	"github.com/Miquel-TA/cat-feeder/internal/domain/useCases"
)

// StatusService composes the pure sleep schedule, the manual override, queue
// depth and link health into the snapshot served to dashboards. It also acts
// as the override-aware SleepGate handed to the dispatch queue.
type StatusService struct {
	schedule useCases.SleepGate
	queue    *DispatchQueue
	link     useCases.ActuatorLink
	sink     useCases.EventSink
	cache    repository.StatusCache
	interval time.Duration
	log      *slog.Logger

	mu       sync.Mutex
	override model.SleepOverride
}

func NewStatusService(
	schedule useCases.SleepGate,
	queue *DispatchQueue,
	link useCases.ActuatorLink,
	sink useCases.EventSink,
	cache repository.StatusCache,
	interval time.Duration,
	log *slog.Logger,
) *StatusService {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &StatusService{
		schedule: schedule,
		queue:    queue,
		link:     link,
		sink:     sink,
		cache:    cache,
		interval: interval,
		log:      log,
	}
}

// Evaluate applies the manual override on top of the schedule. The schedule
// itself stays pure; the override is the only mutable piece and lives here.
// A forced verdict has no scheduled transition, only SetOverride ends it, so
// NextTransition is zeroed rather than reporting the schedule's boundary.
func (s *StatusService) Evaluate(t time.Time) model.SleepVerdict {
	verdict := s.schedule.Evaluate(t)
	switch s.Override() {
	case model.OverrideSleep:
		verdict.Suppressed = true
		verdict.NextTransition = time.Time{}
	case model.OverrideWake:
		verdict.Suppressed = false
		verdict.NextTransition = time.Time{}
	}
	return verdict
}

// SetOverride forces sleep on/off or returns control to the schedule.
func (s *StatusService) SetOverride(o model.SleepOverride) {
	s.mu.Lock()
	s.override = o
	s.mu.Unlock()
	s.log.Info("sleep override changed", "override", o.String())
	s.publish(context.Background())
}

func (s *StatusService) Override() model.SleepOverride {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.override
}

// Snapshot builds the current pipeline status.
func (s *StatusService) Snapshot() *model.PipelineStatus {
	now := time.Now()
	verdict := s.Evaluate(now)
	qs := s.queue.Status()
	return &model.PipelineStatus{
		SleepSuppressed: verdict.Suppressed,
		NextTransition:  verdict.NextTransition,
		Override:        s.Override().String(),
		QueueDepth:      qs.Depth,
		InFlight:        qs.InFlight,
		LinkState:       s.link.State().String(),
		UpdatedAt:       now,
	}
}

// Run broadcasts the snapshot periodically and mirrors it into the cache so
// operator dashboards never have to touch the pipeline.
func (s *StatusService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.publish(ctx)
		}
	}
}

func (s *StatusService) publish(ctx context.Context) {
	status := s.Snapshot()
	s.sink.EmitStatus(status)
	if s.cache != nil {
		saveCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := s.cache.SaveStatus(saveCtx, status); err != nil {
			s.log.Warn("failed to cache pipeline status", "error", err)
		}
		cancel()
	}
}
