package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
	"github.com/Miquel-TA/cat-feeder/internal/domain/repository"
)

// StatusProvider is the live pipeline view served by the API.
type StatusProvider interface {
	Snapshot() *model.PipelineStatus
	SetOverride(o model.SleepOverride)
}

// Server represents an HTTP server with all routes configured
type Server struct {
	status  StatusProvider
	history repository.DonationPersistence // may be nil when ClickHouse is unavailable
	overlay func(http.ResponseWriter, *http.Request)
	log     *slog.Logger
	mux     *http.ServeMux
	server  *http.Server
}

// NewServer creates a new HTTP server with configured routes
func NewServer(addr string, status StatusProvider, history repository.DonationPersistence, overlayHandler func(http.ResponseWriter, *http.Request), log *slog.Logger) *Server {
	mux := http.NewServeMux()

	server := &Server{
		status:  status,
		history: history,
		overlay: overlayHandler,
		log:     log,
		mux:     mux,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	server.registerRoutes()
	return server
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/sleep/override", s.handleSleepOverride)
	s.mux.HandleFunc("/api/donations/recent", s.handleRecentDonations)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ws", s.overlay)
}

type statusResponse struct {
	SleepMode        bool      `json:"sleep_mode"`
	NextTransition   time.Time `json:"next_transition"`
	SecondsUntilWake float64   `json:"seconds_until_wake"`
	Override         string    `json:"override"`
	QueueDepth       int       `json:"queue_depth"`
	QueueActive      bool      `json:"queue_active"`
	ActuatorState    string    `json:"actuator_state"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.status.Snapshot()
	wake := 0.0
	if status.SleepSuppressed && !status.NextTransition.IsZero() {
		wake = time.Until(status.NextTransition).Seconds()
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		SleepMode:        status.SleepSuppressed,
		NextTransition:   status.NextTransition,
		SecondsUntilWake: wake,
		Override:         status.Override,
		QueueDepth:       status.QueueDepth,
		QueueActive:      status.InFlight,
		ActuatorState:    status.LinkState,
		UpdatedAt:        status.UpdatedAt,
	})
}

func (s *Server) handleSleepOverride(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Override string `json:"override"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	override, ok := model.ParseSleepOverride(body.Override)
	if !ok {
		http.Error(w, "override must be one of: on, off, auto", http.StatusBadRequest)
		return
	}
	s.status.SetOverride(override)
	s.handleStatus(w, r)
}

func (s *Server) handleRecentDonations(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "donation history unavailable", http.StatusServiceUnavailable)
		return
	}
	since := time.Now().Add(-24 * time.Hour).Unix()
	records, err := s.history.GetDonationsSince(r.Context(), since)
	if err != nil {
		s.log.Error("failed to load recent donations", "error", err)
		http.Error(w, "failed to load donations", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode response", "error", err)
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
