package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/cueclock/go/internal/timer"
)

// StateProvider supplies the current snapshot and the clock it is measured
// against.
type StateProvider interface {
	Snapshot(ctx context.Context) (timer.Snapshot, error)
	Now() time.Time
}

// TimerStateResponse is a snapshot plus the values a display would derive
// from it at ServerTime.
type TimerStateResponse struct {
	State       timer.Snapshot `json:"state"`
	ServerTime  int64          `json:"serverTime"`
	ElapsedMs   int64          `json:"elapsedMs"`
	RemainingMs int64          `json:"remainingMs"`
	DisplayMs   int64          `json:"displayMs"`
	Color       timer.Color    `json:"color"`
	Overtime    bool           `json:"overtime"`
}

// NewTimerStateResponse derives display values for snapshot at now.
func NewTimerStateResponse(snapshot timer.Snapshot, now time.Time) TimerStateResponse {
	return TimerStateResponse{
		State:       snapshot,
		ServerTime:  now.UnixMilli(),
		ElapsedMs:   snapshot.Elapsed(now).Milliseconds(),
		RemainingMs: snapshot.Remaining(now).Milliseconds(),
		DisplayMs:   snapshot.Display(now).Milliseconds(),
		Color:       snapshot.Color(now),
		Overtime:    snapshot.Overtime(now),
	}
}

// StateHandler handles HTTP requests for timer state
type StateHandler struct {
	stateProvider StateProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
	}
}

// HandleGetTimerState handles GET /api/timer/state
func (h *StateHandler) HandleGetTimerState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	snapshot, err := h.stateProvider.Snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to get timer state")
		http.Error(w, "Failed to get timer state", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(NewTimerStateResponse(snapshot, h.stateProvider.Now())); err != nil {
		log.Error().Err(err).Msg("failed to encode timer state response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(r chi.Router) {
	r.Get("/api/timer/state", h.HandleGetTimerState)
}
