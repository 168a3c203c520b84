package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTeamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage your team",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create your team with a generated roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Team
			body := map[string]string{"name": args[0]}
			if err := client.Post("/api/v1/team", body, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <team-id>",
		Short: "Show a team and its roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Team
			if err := client.Get("/api/v1/teams/"+args[0], &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "disband",
		Short: "Disband your team (permanent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/team"); err != nil {
				return err
			}
			NewOutput(cfg.Output).PrintMessage("Team disbanded")
			return nil
		},
	})

	return cmd
}

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Propose and inspect matches",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "challenge <home-team> <away-team>",
		Short: "Propose a match between two teams (one must be yours)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ChallengeResult
			body := map[string]string{"home_team": args[0], "away_team": args[1]}
			if err := client.Post("/api/v1/matches", body, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <match-id>",
		Short: "Show a match with its play-by-play log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Match
			if err := client.Get("/api/v1/matches/"+args[0], &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List matches from the world snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap Snapshot
			if err := client.Get("/api/v1/snapshot", &snap); err != nil {
				return err
			}
			if cfg.Output == "json" {
				NewOutput(cfg.Output).Print(snap.Matches)
				return nil
			}
			for _, m := range snap.Matches {
				fmt.Printf("%s: %s %d - %d %s [%s]\n",
					m.ID, m.HomeTeam, m.HomeScore, m.AwayScore, m.AwayTeam, m.Status)
			}
			return nil
		},
	})

	return cmd
}
