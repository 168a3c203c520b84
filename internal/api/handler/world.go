package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/spacedunk/spacedunk/internal/api/response"
	"github.com/spacedunk/spacedunk/internal/model"
)

// World is the view of the running peer the API reads and acts through
type World interface {
	Snapshot() *model.WorldSnapshot
	Peers() []model.PeerStatus
	CreateTeam(ctx context.Context, name string) (model.Team, error)
	DisbandTeam(ctx context.Context) error
	ProposeMatch(ctx context.Context, home, away model.TeamID) (uint64, error)
}

// WorldHandler handles read-only world state endpoints
type WorldHandler struct {
	world World
}

// NewWorldHandler creates a new world handler
func NewWorldHandler(world World) *WorldHandler {
	return &WorldHandler{world: world}
}

// GetSnapshot handles GET /api/v1/snapshot
func (h *WorldHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.world.Snapshot()
	response.JSON(w, http.StatusOK, response.SnapshotFromModel(snap))
}

// GetTeam handles GET /api/v1/teams/{id}
func (h *WorldHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	id := model.TeamID(mux.Vars(r)["id"])

	snap := h.world.Snapshot()
	team, ok := snap.Teams[id]
	if !ok {
		WriteError(w, model.ErrTeamNotFound)
		return
	}
	response.JSON(w, http.StatusOK, response.TeamFromSnapshot(team, snap))
}

// GetMatch handles GET /api/v1/matches/{id}
func (h *WorldHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	snap := h.world.Snapshot()
	match, ok := snap.Matches[id]
	if !ok {
		WriteError(w, model.ErrMatchNotFound)
		return
	}
	response.JSON(w, http.StatusOK, response.MatchFromModel(match, true))
}

// GetPeers handles GET /api/v1/peers
func (h *WorldHandler) GetPeers(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.PeersFromModel(h.world.Peers()))
}
