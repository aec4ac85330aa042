package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
	"github.com/Miquel-TA/cat-feeder/internal/domain/repository"
	"github.com/Miquel-TA/cat-feeder/internal/domain/useCases"
)

// RecordedSink forwards every emission to the overlay sink and, once an item
// is terminal, hands the completed record to the cache and history stores.
// Persistence happens off the release loop so a slow store can never affect
// alert pacing.
type RecordedSink struct {
	overlay useCases.EventSink
	cache   repository.StatusCache
	history repository.DonationPersistence
	log     *slog.Logger
}

var _ useCases.EventSink = (*RecordedSink)(nil)

func NewRecordedSink(overlay useCases.EventSink, cache repository.StatusCache, history repository.DonationPersistence, log *slog.Logger) *RecordedSink {
	return &RecordedSink{overlay: overlay, cache: cache, history: history, log: log}
}

func (s *RecordedSink) EmitVisual(item *model.QueuedItem) {
	s.overlay.EmitVisual(item)
}

func (s *RecordedSink) EmitActuationResult(item *model.QueuedItem, outcome model.Outcome) {
	s.overlay.EmitActuationResult(item, outcome)

	record := &model.DonationRecord{
		Event:       item.Event,
		Seq:         item.Seq,
		Attempts:    item.Attempts,
		Outcome:     outcome,
		CompletedAt: time.Now(),
	}
	go s.record(record)
}

func (s *RecordedSink) EmitStatus(status *model.PipelineStatus) {
	s.overlay.EmitStatus(status)
}

func (s *RecordedSink) Handler() func(http.ResponseWriter, *http.Request) {
	return s.overlay.Handler()
}

func (s *RecordedSink) record(record *model.DonationRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.cache != nil {
		if err := s.cache.SaveOutcome(ctx, record); err != nil {
			s.log.Warn("failed to cache donation outcome", "id", record.Event.ID, "error", err)
		}
	}
	if s.history != nil {
		if err := s.history.SaveDonation(ctx, record); err != nil {
			s.log.Warn("failed to persist donation", "id", record.Event.ID, "error", err)
		}
	}
}
