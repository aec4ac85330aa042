package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
	"github.com/Miquel-TA/cat-feeder/internal/domain/service"
	"github.com/Miquel-TA/cat-feeder/internal/infrastructure/queue"
)

// SourcePump is the producer-facing edge: it drains donation events from the
// configured source (Kafka or a direct channel), resolves the tier once, and
// admits the event into the dispatch queue. Admission never blocks on
// actuator state, so a stalled device cannot back up the source.
type SourcePump struct {
	Consumer queue.DonationConsumer // nil when feeding from DirectCh
	DirectCh <-chan *model.DonationEvent
	Queue    *DispatchQueue
	Tiers    *service.TierTable
	Dedup    map[string]struct{} // simple in-memory deduplication, replace with Redis for HA

	log *slog.Logger
}

func NewSourcePump(consumer queue.DonationConsumer, directCh <-chan *model.DonationEvent, q *DispatchQueue, tiers *service.TierTable, log *slog.Logger) *SourcePump {
	return &SourcePump{
		Consumer: consumer,
		DirectCh: directCh,
		Queue:    q,
		Tiers:    tiers,
		Dedup:    make(map[string]struct{}),
		log:      log,
	}
}

// Run consumes until ctx is cancelled.
func (p *SourcePump) Run(ctx context.Context) error {
	eventCh := p.DirectCh
	if p.Consumer != nil {
		ch, err := p.Consumer.Subscribe(ctx)
		if err != nil {
			return err
		}
		eventCh = ch
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-eventCh:
			if event == nil {
				continue
			}
			p.admit(ctx, event)
			if p.Consumer != nil {
				if err := p.Consumer.Commit(ctx, event); err != nil && ctx.Err() == nil {
					p.log.Warn("failed to commit donation", "id", event.ID, "error", err)
				}
			}
		}
	}
}

func (p *SourcePump) admit(ctx context.Context, event *model.DonationEvent) {
	if _, seen := p.Dedup[event.ID]; seen {
		return
	}
	p.Dedup[event.ID] = struct{}{}

	if ctx.Err() != nil {
		return
	}

	event.Tier = p.Tiers.Resolve(event.Coins)

	seq, err := p.Queue.Admit(event)
	if err != nil {
		if errors.Is(err, ErrCapacityExceeded) {
			// Back-pressure: drop and report, do not stall the source.
			p.log.Warn("dispatch queue full, dropping donation",
				"id", event.ID, "username", event.Username)
			return
		}
		p.log.Warn("failed to admit donation", "id", event.ID, "error", err)
		return
	}
	p.log.Debug("donation admitted", "seq", seq, "id", event.ID,
		"tier", event.Tier.Name, "coins", event.Coins)
}
