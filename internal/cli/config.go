package cli

import "os"

// Config holds client-side CLI settings
type Config struct {
	ServerURL string
	Output    string
}

// DefaultConfig returns CLI defaults, honoring environment overrides
func DefaultConfig() *Config {
	serverURL := os.Getenv("SPACEDUNK_SERVER")
	if serverURL == "" {
		serverURL = "http://127.0.0.1:8080"
	}
	return &Config{
		ServerURL: serverURL,
		Output:    "text",
	}
}
