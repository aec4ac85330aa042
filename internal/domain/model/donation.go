package model

import "time"

// Tier is a configured bucket of donation value. It maps a minimum coin
// amount to the motor, animation and sound used when the alert fires.
type Tier struct {
	Name       string
	Minimum    int
	MotorIndex int // 0-4
	Animation  string
	Sound      string
	Message    string
}

// DonationEvent represents a single donation/subscription event after tier
// resolution. It is immutable once admitted to the pipeline.
type DonationEvent struct {
	ID        string
	Platform  string
	Username  string
	Coins     int
	Message   string
	Tier      Tier
	CreatedAt time.Time
}

// ItemState is the lifecycle state of a queued alert. States only move
// forward; Done is the single terminal state.
type ItemState int

const (
	StatePending ItemState = iota
	StateReleased
	StateVisualSent
	StateActuationRequested
	StateActuationAcked
	StateActuationFailed
	StateActuationSuppressed
	StateDone
)

func (s ItemState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReleased:
		return "released"
	case StateVisualSent:
		return "visual_sent"
	case StateActuationRequested:
		return "actuation_requested"
	case StateActuationAcked:
		return "actuation_acked"
	case StateActuationFailed:
		return "actuation_failed"
	case StateActuationSuppressed:
		return "actuation_suppressed"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// QueuedItem wraps a DonationEvent while it is owned by the dispatch queue.
// Seq is assigned at admission and defines the total order of releases.
type QueuedItem struct {
	Seq        uint64
	Event      *DonationEvent
	AdmittedAt time.Time
	EligibleAt time.Time // earliest release time after a retry backoff
	Attempts   int
	State      ItemState
}

// Outcome is the terminal actuation result reported to the event sink.
type Outcome string

const (
	OutcomeSucceeded  Outcome = "succeeded"
	OutcomeFailed     Outcome = "failed"
	OutcomeSuppressed Outcome = "suppressed"
)

// DonationRecord is the completed form of a queued item, handed to the
// persistence layer once the item reaches Done.
type DonationRecord struct {
	Event       *DonationEvent
	Seq         uint64
	Attempts    int
	Outcome     Outcome
	CompletedAt time.Time
}
