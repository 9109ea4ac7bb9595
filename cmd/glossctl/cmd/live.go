package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/live"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/redis"
)

func newLiveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Show or publish the sync client's live status in Redis",
	}
	cmd.AddCommand(newLiveShowCmd(opts), newLiveSetCmd(opts))
	return cmd
}

func newLiveShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Read the published live status once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			client, err := pkgredis.NewClient(cmd.Context(), cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			p := live.NewPoller(client, cfg.Redis.LiveKeyPrefix, cfg.Redis.PollInterval, nil)
			if err := p.Poll(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p.Status())
		},
	}
}

func newLiveSetCmd(opts *rootOptions) *cobra.Command {
	var status live.Status
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Publish a live status, as the sync client would",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			client, err := pkgredis.NewClient(cmd.Context(), cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := live.Publish(cmd.Context(), client, cfg.Redis.LiveKeyPrefix, status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published offline=%t loggedIn=%t\n", status.Offline, status.LoggedIn)
			return nil
		},
	}
	cmd.Flags().BoolVar(&status.Offline, "offline", false, "sync client is offline")
	cmd.Flags().BoolVar(&status.LoggedIn, "logged-in", true, "sync client is logged in")
	return cmd
}
