package model

import "errors"

// Common errors used across the application
var (
	// Update validation errors
	ErrInvalidSignature = errors.New("invalid signature")
	ErrStaleVersion     = errors.New("update version is not newer than stored version")
	ErrNotOwner         = errors.New("signer is not the owner of the entity")
	ErrUnknownEntity    = errors.New("update references an unknown entity")
	ErrMalformedUpdate  = errors.New("malformed state update")

	// Entity errors
	ErrTeamNotFound   = errors.New("team not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrMatchNotFound  = errors.New("match not found")
	ErrTeamDisbanded  = errors.New("team is disbanded")
	ErrMatchCompleted = errors.New("match is already completed")
	ErrOwnTeamExists  = errors.New("peer already owns a team")
	ErrNoOwnTeam      = errors.New("peer does not own a team")

	// Simulation errors
	ErrInvalidRoster = errors.New("invalid roster")

	// Persistence errors
	ErrCorruptState = errors.New("persisted state is corrupt")
	ErrNoState      = errors.New("no persisted state")
)
