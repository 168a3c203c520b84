package request

// CreateTeam is the request body for creating the local peer's team
type CreateTeam struct {
	Name string `json:"name"`
}

// Challenge is the request body for proposing a match
type Challenge struct {
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
}
