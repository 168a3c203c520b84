package handler

import (
	"net/http"

	"github.com/spacedunk/spacedunk/internal/api/response"
	"github.com/spacedunk/spacedunk/internal/model"
)

// PeerHandler serves the local peer's identity
type PeerHandler struct {
	world       World
	peerID      model.PeerID
	fingerprint string
}

// NewPeerHandler creates a new peer handler
func NewPeerHandler(world World, peerID model.PeerID, fingerprint string) *PeerHandler {
	return &PeerHandler{world: world, peerID: peerID, fingerprint: fingerprint}
}

// GetMe handles GET /api/v1/me
func (h *PeerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	ownTeam := ""
	for _, team := range h.world.Snapshot().Teams {
		if team.Owner == h.peerID && team.Status == model.TeamStatusActive {
			ownTeam = string(team.ID)
			break
		}
	}
	response.JSON(w, http.StatusOK, response.Identity{
		PeerID:      string(h.peerID),
		Fingerprint: h.fingerprint,
		OwnTeam:     ownTeam,
	})
}
