package cli

import (
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the local peer's identity and team",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Identity
			if err := client.Get("/api/v1/me", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "world",
		Short: "Show the full world snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Snapshot
			if err := client.Get("/api/v1/snapshot", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	})

	return cmd
}

func newPeersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peers",
		Short: "List known peers and their liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Peer
			if err := client.Get("/api/v1/peers", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check peer health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult
			if err := client.Get("/api/v1/health", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}
