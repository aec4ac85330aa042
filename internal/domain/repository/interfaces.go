// Package repository defines all the repository interfaces used by domain services
// Following the dependency inversion principle, domain logic depends on these interfaces,
// and infrastructure implementations provide concrete implementations
package repository

import (
	"context"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
)

// StatusCache is fast, non-durable storage for the latest pipeline snapshot
// and recent per-donation outcomes. Dashboards read from here so that status
// queries never touch the dispatch pipeline itself.
type StatusCache interface {
	// SaveStatus stores the latest pipeline snapshot, replacing the previous one.
	SaveStatus(ctx context.Context, status *model.PipelineStatus) error

	// GetStatus returns the latest snapshot, or nil when none was stored yet.
	GetStatus(ctx context.Context) (*model.PipelineStatus, error)

	// SaveOutcome records the terminal outcome of a donation.
	SaveOutcome(ctx context.Context, record *model.DonationRecord) error

	// GetAllOutcomes returns every cached donation outcome.
	GetAllOutcomes(ctx context.Context) ([]*model.DonationRecord, error)
}

// DonationPersistence is durable, append-only storage of completed donations
// for auditing and history queries. Implementations may trade latency for
// durability; the pipeline only writes here after an item is terminal.
type DonationPersistence interface {
	// SaveDonation persists a completed donation with its outcome.
	SaveDonation(ctx context.Context, record *model.DonationRecord) error

	// GetDonationsSince retrieves donations completed at or after the given
	// unix timestamp, oldest first.
	GetDonationsSince(ctx context.Context, since int64) ([]*model.DonationRecord, error)
}
