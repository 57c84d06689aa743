package main

import (
	"github.com/spf13/cobra"
)

var cloneTarget target

var cloneCmd = &cobra.Command{
	Use:   "clone URL [COMMITISH]",
	Short: "Prepare a worktree of a repository at a commit",
	Long: `Clone URL into the cache (or fetch it if already cached) and check out
COMMITISH, which may be a branch, tag or commit id. Without COMMITISH the
default branch is used. Prints the slug, sha and worktree as JSON.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		commitish := ""
		if len(args) == 2 {
			commitish = args[1]
		}

		session, err := cloneTarget.session()
		if err != nil {
			return err
		}
		h, err := session.Connect(cmd.Context(), args[0], commitish)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), h)
	},
}

func init() {
	cloneTarget.bind(cloneCmd)
}
