package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/onnwee/spacex-launch-tracker/internal/report"
	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear cached API responses",
	}

	clearCmd := &cobra.Command{
		Use:   "clear [endpoint]",
		Short: "Remove one cached endpoint, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient(false)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := client.ClearCache(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", spacex.NormalizeEndpoint(args[0]))
				return nil
			}
			n, err := client.ClearAll()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached responses.\n", n)
			return nil
		},
	}

	var maxAge time.Duration
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove cached responses older than the max age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if maxAge <= 0 {
				maxAge = a.cfg.CacheMaxAge
			}
			client, err := a.openClient(false)
			if err != nil {
				return err
			}
			n, err := client.PurgeStale(maxAge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached responses older than %s.\n", n, maxAge)
			return nil
		},
	}
	purgeCmd.Flags().DurationVar(&maxAge, "max-age", 0, "Age past which entries are removed (default $SPACEX_CACHE_MAX_AGE_HOURS or 24h)")

	var markdown bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "List cached endpoints with their age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.openClient(false)
			if err != nil {
				return err
			}
			entries, err := client.Store().List()
			if err != nil {
				return err
			}
			mode := report.ASCII
			if markdown {
				mode = report.Markdown
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache directory: %s (ttl %s)\n", a.cfg.CacheDir, a.cfg.CacheTTL)
			report.New(cmd.OutOrStdout(), mode).CacheStatus(entries, a.cfg.CacheTTL, time.Now())
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&markdown, "markdown", false, "Render the table as Markdown")

	cmd.AddCommand(clearCmd, purgeCmd, statusCmd)
	return cmd
}
