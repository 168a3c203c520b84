// Package cli implements the spacedunk command line: the long-running peer
// daemon plus client commands that talk to a running peer's HTTP API.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "spacedunk",
		Short: "Decentralized space basketball peer",
		Long: `spacedunk runs a peer in a decentralized basketball galaxy.

Each peer owns one team, gossips world state with other peers, and
simulates matches deterministically so every peer agrees on the result
without a central server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Peer API URL (env: SPACEDUNK_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newTeamCmd())
	rootCmd.AddCommand(newMatchCmd())
	rootCmd.AddCommand(newPeersCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
