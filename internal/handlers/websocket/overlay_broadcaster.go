package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
	"github.com/Miquel-TA/cat-feeder/internal/domain/useCases"
)

// Frame is the envelope pushed to overlay and dashboard clients.
type Frame struct {
	Type    string      `json:"type"` // visual | actuation_result | status
	Payload interface{} `json:"payload"`
}

type visualPayload struct {
	Seq       uint64    `json:"seq"`
	Username  string    `json:"username"`
	Platform  string    `json:"platform"`
	Coins     int       `json:"coins"`
	Message   string    `json:"message"`
	TierName  string    `json:"tier_name"`
	Animation string    `json:"animation"`
	Sound     string    `json:"sound"`
	CreatedAt time.Time `json:"created_at"`
}

type actuationPayload struct {
	Seq      uint64 `json:"seq"`
	Username string `json:"username"`
	Outcome  string `json:"outcome"`
	Attempts int    `json:"attempts"`
}

type statusPayload struct {
	SleepMode        bool      `json:"sleep_mode"`
	NextTransition   time.Time `json:"next_transition"`
	Override         string    `json:"override"`
	QueueDepth       int       `json:"queue_depth"`
	QueueActive      bool      `json:"queue_active"`
	ActuatorState    string    `json:"actuator_state"`
	SecondsUntilWake float64   `json:"seconds_until_wake"`
}

// writeWait bounds a single frame write. A client that stops reading fills
// its TCP buffer, hits the deadline and gets dropped; the release loop that
// emits frames must never wait on a stuck overlay.
const writeWait = 2 * time.Second

// OverlayBroadcaster implements the EventSink interface for overlay clients.
type OverlayBroadcaster struct {
	clients  map[*websocket.Conn]struct{}
	mu       sync.Mutex
	upgrader websocket.Upgrader
	log      *slog.Logger
}

var _ useCases.EventSink = (*OverlayBroadcaster)(nil)

func NewOverlayBroadcaster(log *slog.Logger) *OverlayBroadcaster {
	return &OverlayBroadcaster{
		clients:  make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		log:      log,
	}
}

func (b *OverlayBroadcaster) EmitVisual(item *model.QueuedItem) {
	event := item.Event
	b.broadcast(Frame{Type: "visual", Payload: visualPayload{
		Seq:       item.Seq,
		Username:  event.Username,
		Platform:  event.Platform,
		Coins:     event.Coins,
		Message:   event.Message,
		TierName:  event.Tier.Name,
		Animation: event.Tier.Animation,
		Sound:     event.Tier.Sound,
		CreatedAt: event.CreatedAt,
	}})
}

func (b *OverlayBroadcaster) EmitActuationResult(item *model.QueuedItem, outcome model.Outcome) {
	b.broadcast(Frame{Type: "actuation_result", Payload: actuationPayload{
		Seq:      item.Seq,
		Username: item.Event.Username,
		Outcome:  string(outcome),
		Attempts: item.Attempts,
	}})
}

func (b *OverlayBroadcaster) EmitStatus(status *model.PipelineStatus) {
	wake := 0.0
	if status.SleepSuppressed && !status.NextTransition.IsZero() {
		wake = time.Until(status.NextTransition).Seconds()
	}
	b.broadcast(Frame{Type: "status", Payload: statusPayload{
		SleepMode:        status.SleepSuppressed,
		NextTransition:   status.NextTransition,
		Override:         status.Override,
		QueueDepth:       status.QueueDepth,
		QueueActive:      status.InFlight,
		ActuatorState:    status.LinkState,
		SecondsUntilWake: wake,
	}})
}

func (b *OverlayBroadcaster) broadcast(frame Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg, err := json.Marshal(frame)
	if err != nil {
		b.log.Error("failed to marshal overlay frame", "error", err)
		return
	}
	for c := range b.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			b.log.Warn("dropping overlay client", "error", err)
			c.Close()
			delete(b.clients, c)
		}
	}
}

// Handler returns an http.HandlerFunc to accept overlay websocket connections.
func (b *OverlayBroadcaster) Handler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			b.log.Warn("overlay websocket upgrade error", "error", err)
			return
		}
		b.mu.Lock()
		b.clients[conn] = struct{}{}
		b.mu.Unlock()
		// Read loop keeps the connection alive and reaps closed clients.
		go func() {
			defer func() {
				b.mu.Lock()
				delete(b.clients, conn)
				b.mu.Unlock()
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}
}

// ClientCount reports connected overlay clients, for the status surface.
func (b *OverlayBroadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}
