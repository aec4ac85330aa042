package useCases

import (
	"context"
	"net/http"
	"time"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
)

// EventSink receives the two independent outputs of the dispatch pipeline:
// the visual alert (always) and, once terminal, the actuation result.
type EventSink interface {
	EmitVisual(item *model.QueuedItem)
	EmitActuationResult(item *model.QueuedItem, outcome model.Outcome)
	EmitStatus(status *model.PipelineStatus)
	Handler() func(http.ResponseWriter, *http.Request)
}

// ActuatorLink drives the physical feeder over its command protocol.
// SendCommand blocks until the device acknowledges start and stop, or a
// timeout elapses. While the link is busy, connecting or down the call fails
// immediately with a retryable error; commands are never queued in the link.
type ActuatorLink interface {
	SendCommand(ctx context.Context, motorIndex int) error
	State() model.LinkState
}

// SleepGate answers whether actuation is suppressed at an instant.
type SleepGate interface {
	Evaluate(t time.Time) model.SleepVerdict
}
