package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	resetTarget  target
	healthTarget target
	healthWait   time.Duration
	gcTarget     target
	gcMaxIdle    time.Duration
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every cached repository and worktree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if resetTarget.local {
			session, err := resetTarget.localSession()
			if err != nil {
				return err
			}
			return session.Cache().Reset(cmd.Context())
		}
		return resetTarget.client().Reset(cmd.Context())
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that a worker is serving",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := healthTarget.client()
		if healthWait > 0 {
			return c.WaitForReady(cmd.Context(), healthWait)
		}
		return c.Health(cmd.Context())
	},
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove idle worktrees from a local cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		session, err := gcTarget.localSession()
		if err != nil {
			return err
		}
		removed := session.Cache().CollectGarbage(cmd.Context(), gcMaxIdle)
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d worktrees\n", removed)
		return nil
	},
}

func init() {
	resetTarget.bind(resetCmd)

	healthTarget.bindRemote(healthCmd)
	healthCmd.Flags().DurationVar(&healthWait, "wait", 0, "keep polling for up to this long")

	gcTarget.bindLocal(gcCmd)
	gcCmd.Flags().DurationVar(&gcMaxIdle, "max-idle", 24*time.Hour, "remove worktrees unused for longer than this")
}
