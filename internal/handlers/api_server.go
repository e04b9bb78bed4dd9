// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/uno/internal/middleware"
)

// NewRouter builds the HTTP surface: the game WebSocket plus a couple of
// read-only operational endpoints.
func NewRouter(logger *logrus.Logger, actions *ActionHandler, originPatterns []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins(originPatterns),
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/ws", WSHandler(logger, actions, originPatterns))
	r.Get("/healthz", HealthHandler)
	r.Get("/rooms/{roomID}", RoomSnapshotHandler(actions))
	return r
}

// corsOrigins turns WebSocket host patterns ("example.com", "*.example.org")
// into the scheme-qualified origins the CORS middleware matches against.
func corsOrigins(patterns []string) []string {
	if len(patterns) == 0 {
		return []string{"*"}
	}
	out := make([]string, 0, 2*len(patterns))
	for _, p := range patterns {
		if p == "*" {
			return []string{"*"}
		}
		out = append(out, "https://"+p, "http://"+p)
	}
	return out
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// RoomSnapshotHandler serves GET /rooms/{roomID}: the public state of an
// existing room. Hands are reported as counts only.
func RoomSnapshotHandler(actions *ActionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		room, ok := actions.Store.GetRoom(roomID)
		if !ok {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(room.Snapshot()); err != nil {
			actions.Logger.Warnf("Failed to encode snapshot for room %s: %v", roomID, err)
		}
	}
}
