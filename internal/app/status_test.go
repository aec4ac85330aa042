package app_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Miquel-TA/cat-feeder/internal/app"
	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
	"github.com/Miquel-TA/cat-feeder/internal/domain/repository"
)

// fullSink implements the complete event sink surface.
type fullSink struct {
	mu       sync.Mutex
	statuses []*model.PipelineStatus
}

func (s *fullSink) EmitVisual(*model.QueuedItem)                        {}
func (s *fullSink) EmitActuationResult(*model.QueuedItem, model.Outcome) {}
func (s *fullSink) Handler() func(http.ResponseWriter, *http.Request) {
	return func(http.ResponseWriter, *http.Request) {}
}

func (s *fullSink) EmitStatus(status *model.PipelineStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func (s *fullSink) statusCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.statuses)
}

type fixedGate struct {
	suppressed bool
}

func (g fixedGate) Evaluate(t time.Time) model.SleepVerdict {
	return model.SleepVerdict{Suppressed: g.suppressed, NextTransition: t.Add(time.Hour)}
}

type stateLink struct {
	state model.LinkState
}

func (l stateLink) SendCommand(context.Context, int) error { return nil }
func (l stateLink) State() model.LinkState                 { return l.state }

type memoryCache struct {
	mu       sync.Mutex
	statuses []*model.PipelineStatus
}

func (c *memoryCache) SaveStatus(_ context.Context, status *model.PipelineStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, status)
	return nil
}

func (c *memoryCache) GetStatus(context.Context) (*model.PipelineStatus, error) { return nil, nil }
func (c *memoryCache) SaveOutcome(context.Context, *model.DonationRecord) error { return nil }
func (c *memoryCache) GetAllOutcomes(context.Context) ([]*model.DonationRecord, error) {
	return nil, nil
}

func (c *memoryCache) saved() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.statuses)
}

func newStatusService(gate fixedGate, link stateLink, sink *fullSink, cache repository.StatusCache) *app.StatusService {
	queue := app.NewDispatchQueue(app.DispatchConfig{}, sink, gate, link, testLogger())
	return app.NewStatusService(gate, queue, link, sink, cache, time.Minute, testLogger())
}

func TestStatusOverrideLayersOverSchedule(t *testing.T) {
	cases := []struct {
		name           string
		scheduleSleeps bool
		override       model.SleepOverride
		wantSuppressed bool
	}{
		{name: "auto follows awake schedule", scheduleSleeps: false, override: model.OverrideAuto, wantSuppressed: false},
		{name: "auto follows sleeping schedule", scheduleSleeps: true, override: model.OverrideAuto, wantSuppressed: true},
		{name: "forced sleep wins over awake schedule", scheduleSleeps: false, override: model.OverrideSleep, wantSuppressed: true},
		{name: "forced wake wins over sleeping schedule", scheduleSleeps: true, override: model.OverrideWake, wantSuppressed: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newStatusService(fixedGate{suppressed: tc.scheduleSleeps}, stateLink{}, &fullSink{}, nil)
			svc.SetOverride(tc.override)
			v := svc.Evaluate(time.Now())
			if v.Suppressed != tc.wantSuppressed {
				t.Errorf("got suppressed=%v, want %v", v.Suppressed, tc.wantSuppressed)
			}
		})
	}
}

func TestStatusOverrideClearsNextTransition(t *testing.T) {
	svc := newStatusService(fixedGate{}, stateLink{}, &fullSink{}, nil)

	svc.SetOverride(model.OverrideSleep)
	v := svc.Evaluate(time.Now())
	if !v.Suppressed {
		t.Error("forced sleep must suppress")
	}
	// Only SetOverride ends a forced verdict; a schedule boundary here would
	// show dashboards a wake time that never happens.
	if !v.NextTransition.IsZero() {
		t.Errorf("forced override must not report a schedule boundary, got %v", v.NextTransition)
	}

	svc.SetOverride(model.OverrideAuto)
	if v := svc.Evaluate(time.Now()); v.NextTransition.IsZero() {
		t.Error("returning to auto must restore the schedule boundary")
	}
}

func TestStatusSetOverridePublishesImmediately(t *testing.T) {
	sink := &fullSink{}
	cache := &memoryCache{}
	svc := newStatusService(fixedGate{}, stateLink{state: model.LinkReady}, sink, cache)

	svc.SetOverride(model.OverrideSleep)

	if n := sink.statusCount(); n != 1 {
		t.Errorf("expected an immediate status broadcast, got %d", n)
	}
	if n := cache.saved(); n != 1 {
		t.Errorf("expected the snapshot mirrored to the cache, got %d writes", n)
	}
}

func TestStatusSnapshot(t *testing.T) {
	sink := &fullSink{}
	gate := fixedGate{suppressed: true}
	link := stateLink{state: model.LinkReady}
	queue := app.NewDispatchQueue(app.DispatchConfig{}, sink, gate, link, testLogger())
	svc := app.NewStatusService(gate, queue, link, sink, nil, time.Minute, testLogger())

	if _, err := queue.Admit(makeEvent("evt", 0)); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	st := svc.Snapshot()
	if !st.SleepSuppressed {
		t.Error("expected snapshot to report suppression")
	}
	if st.QueueDepth != 1 {
		t.Errorf("got queue depth %d, want 1", st.QueueDepth)
	}
	if st.LinkState != "ready" {
		t.Errorf("got link state %q, want ready", st.LinkState)
	}
	if st.Override != "auto" {
		t.Errorf("got override %q, want auto", st.Override)
	}
	if st.NextTransition.IsZero() {
		t.Error("expected a next transition time")
	}
}
