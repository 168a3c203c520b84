package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spacedunk/spacedunk/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeTeamNotFound   = "TEAM_NOT_FOUND"
	CodePlayerNotFound = "PLAYER_NOT_FOUND"
	CodeMatchNotFound  = "MATCH_NOT_FOUND"
	CodeTeamExists     = "TEAM_EXISTS"
	CodeNoTeam         = "NO_TEAM"
	CodeNotOwner       = "NOT_OWNER"
	CodeTeamDisbanded  = "TEAM_DISBANDED"
	CodeInvalidRoster  = "INVALID_ROSTER"
	CodeInternalError  = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrTeamNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeTeamNotFound, "Team not found"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrMatchNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Match not found"}}
	case errors.Is(err, model.ErrOwnTeamExists):
		return &httpError{http.StatusConflict, APIError{CodeTeamExists, "This peer already owns a team"}}
	case errors.Is(err, model.ErrNoOwnTeam):
		return &httpError{http.StatusConflict, APIError{CodeNoTeam, "This peer does not own a team"}}
	case errors.Is(err, model.ErrNotOwner):
		return &httpError{http.StatusForbidden, APIError{CodeNotOwner, "Matches can only be proposed for your own team"}}
	case errors.Is(err, model.ErrTeamDisbanded):
		return &httpError{http.StatusConflict, APIError{CodeTeamDisbanded, "Team is disbanded"}}
	case errors.Is(err, model.ErrInvalidRoster):
		return &httpError{http.StatusConflict, APIError{CodeInvalidRoster, "Team roster is incomplete"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
