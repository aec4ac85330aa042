package model

import "time"

// LinkState describes the actuator connection. There is exactly one link
// per process and only its own control loop mutates the state.
type LinkState int

const (
	LinkDisconnected LinkState = iota
	LinkConnecting
	LinkReady
	LinkBusy
	LinkFaulted
)

func (s LinkState) String() string {
	switch s {
	case LinkDisconnected:
		return "disconnected"
	case LinkConnecting:
		return "connecting"
	case LinkReady:
		return "ready"
	case LinkBusy:
		return "busy"
	case LinkFaulted:
		return "faulted"
	}
	return "unknown"
}

// SleepVerdict is the result of evaluating the sleep window at an instant.
type SleepVerdict struct {
	Suppressed     bool
	NextTransition time.Time
}

// SleepOverride forces the sleep verdict regardless of the schedule.
type SleepOverride int

const (
	OverrideAuto SleepOverride = iota
	OverrideSleep
	OverrideWake
)

func (o SleepOverride) String() string {
	switch o {
	case OverrideSleep:
		return "on"
	case OverrideWake:
		return "off"
	}
	return "auto"
}

// ParseSleepOverride maps the API representation back to an override value.
func ParseSleepOverride(v string) (SleepOverride, bool) {
	switch v {
	case "on":
		return OverrideSleep, true
	case "off":
		return OverrideWake, true
	case "auto":
		return OverrideAuto, true
	}
	return OverrideAuto, false
}

// PipelineStatus is the snapshot served to dashboards and overlay clients.
type PipelineStatus struct {
	SleepSuppressed bool
	NextTransition  time.Time
	Override        string
	QueueDepth      int
	InFlight        bool
	LinkState       string
	UpdatedAt       time.Time
}
