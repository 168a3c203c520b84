// Package api exposes the local peer's world view over a read-mostly HTTP
// interface. Mutations go through the scheduler, never directly into the
// world store.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/spacedunk/spacedunk/internal/api/handler"
	apimiddleware "github.com/spacedunk/spacedunk/internal/api/middleware"
	"github.com/spacedunk/spacedunk/internal/middleware"
	"github.com/spacedunk/spacedunk/internal/model"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	World       handler.World
	PeerID      model.PeerID
	Fingerprint string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	worldHandler := handler.NewWorldHandler(cfg.World)
	teamHandler := handler.NewTeamHandler(cfg.World)
	peerHandler := handler.NewPeerHandler(cfg.World, cfg.PeerID, cfg.Fingerprint)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(apimiddleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/me", peerHandler.GetMe).Methods(http.MethodGet)

	api.HandleFunc("/snapshot", worldHandler.GetSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/teams/{id}", worldHandler.GetTeam).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}", worldHandler.GetMatch).Methods(http.MethodGet)
	api.HandleFunc("/peers", worldHandler.GetPeers).Methods(http.MethodGet)

	api.HandleFunc("/team", teamHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/team", teamHandler.Disband).Methods(http.MethodDelete)
	api.HandleFunc("/matches", teamHandler.Challenge).Methods(http.MethodPost)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
