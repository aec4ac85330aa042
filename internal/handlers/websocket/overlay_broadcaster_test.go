package websocket_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
	ws "github.com/Miquel-TA/cat-feeder/internal/handlers/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeItem(message string) *model.QueuedItem {
	return &model.QueuedItem{
		Seq: 1,
		Event: &model.DonationEvent{
			ID:       "d1",
			Platform: "twitch",
			Username: "alice",
			Coins:    25,
			Message:  message,
			Tier:     model.Tier{Name: "Tier 3", Animation: "tier3", Sound: "tone:tier3"},
		},
	}
}

func dialBroadcaster(t *testing.T, b *ws.OverlayBroadcaster) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(b.Handler()))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial broadcaster: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if b.ClientCount() == 1 {
			return conn
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("client never registered with the broadcaster")
	return nil
}

func TestOverlayBroadcastDeliversVisualFrame(t *testing.T) {
	b := ws.NewOverlayBroadcaster(testLogger())
	conn := dialBroadcaster(t, b)

	b.EmitVisual(makeItem("feed the cats!"))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}

	var frame struct {
		Type    string `json:"type"`
		Payload struct {
			Username string `json:"username"`
			TierName string `json:"tier_name"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	if frame.Type != "visual" {
		t.Errorf("got frame type %q, want visual", frame.Type)
	}
	if frame.Payload.Username != "alice" || frame.Payload.TierName != "Tier 3" {
		t.Errorf("unexpected payload: %+v", frame.Payload)
	}
}

func TestOverlayBroadcastDropsStuckClient(t *testing.T) {
	b := ws.NewOverlayBroadcaster(testLogger())
	// This client never reads; its TCP buffer fills and writes start blocking.
	dialBroadcaster(t, b)

	item := makeItem(strings.Repeat("x", 4096))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5000 && b.ClientCount() > 0; i++ {
			b.EmitVisual(item)
		}
	}()

	// The write deadline caps how long one stuck write can hold the
	// emitter; the client must be reaped instead of stalling the pipeline.
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("emission stalled behind a non-reading overlay client")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("stuck client still registered, count %d", n)
	}
}
