package model

// GalaxyLocation is positional data teams use to discover opponents.
// Locations are generated identically on every peer from the shared galaxy
// seed; they are referenced by teams, never owned by them.
type GalaxyLocation struct {
	ID   LocationID `json:"id"`
	Name string     `json:"name"`
	X    int        `json:"x"`
	Y    int        `json:"y"`
}
