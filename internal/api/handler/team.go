package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/spacedunk/spacedunk/internal/api/request"
	"github.com/spacedunk/spacedunk/internal/api/response"
	"github.com/spacedunk/spacedunk/internal/model"
)

// TeamHandler handles mutations initiated by the local peer
type TeamHandler struct {
	world World
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(world World) *TeamHandler {
	return &TeamHandler{world: world}
}

// Create handles POST /api/v1/team
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateTeam
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		WriteError(w, NewInvalidRequestError("team name is required"))
		return
	}

	team, err := h.world.CreateTeam(r.Context(), req.Name)
	if err != nil {
		WriteError(w, err)
		return
	}

	snap := h.world.Snapshot()
	response.JSON(w, http.StatusCreated, response.TeamFromSnapshot(team, snap))
}

// Disband handles DELETE /api/v1/team
func (h *TeamHandler) Disband(w http.ResponseWriter, r *http.Request) {
	if err := h.world.DisbandTeam(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Challenge handles POST /api/v1/matches
func (h *TeamHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	var req request.Challenge
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.HomeTeam == "" || req.AwayTeam == "" {
		WriteError(w, NewInvalidRequestError("home_team and away_team are required"))
		return
	}
	if req.HomeTeam == req.AwayTeam {
		WriteError(w, NewInvalidRequestError("a team cannot play itself"))
		return
	}

	seed, err := h.world.ProposeMatch(r.Context(), model.TeamID(req.HomeTeam), model.TeamID(req.AwayTeam))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusAccepted, response.ChallengeResponse{Seed: seed})
}
