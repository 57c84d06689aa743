package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmgilman/reposandbox/tools"
	"github.com/spf13/cobra"
)

var (
	toolTarget target
	toolSlug   string
	toolSHA    string
	toolCwd    string
)

var toolCmd = &cobra.Command{
	Use:   "tool NAME [ARGS_JSON]",
	Short: "Run a read-only tool in a prepared worktree",
	Long: fmt.Sprintf(`Run NAME (one of %s) with arguments given as a JSON object.

Against a worker the worktree is named by --slug and --sha, as printed by
"clone". With --local it is named by --cwd.

Example:

  reposandbox tool rg '{"pattern":"func main"}' --slug github_com_org_repo --sha 1a2b3c4d5e6f`,
		strings.Join(tools.Names, ", ")),
	Args: cobra.RangeArgs(1, 2),
	RunE: runTool,
}

func init() {
	toolTarget.bind(toolCmd)
	toolCmd.Flags().StringVar(&toolSlug, "slug", "", "repository slug (worker)")
	toolCmd.Flags().StringVar(&toolSHA, "sha", "", "commit id (worker)")
	toolCmd.Flags().StringVar(&toolCwd, "cwd", "", "worktree path (--local)")
}

func runTool(cmd *cobra.Command, args []string) error {
	var raw json.RawMessage
	if len(args) == 2 {
		raw = json.RawMessage(args[1])
	}

	var out string
	if toolTarget.local {
		if toolCwd == "" {
			return errors.New("--cwd is required with --local")
		}
		session, err := toolTarget.localSession()
		if err != nil {
			return err
		}
		out = session.ExecuteTool(cmd.Context(), args[0], raw, toolCwd)
	} else {
		if toolSlug == "" || toolSHA == "" {
			return errors.New("--slug and --sha are required")
		}
		out = toolTarget.client().ExecuteTool(cmd.Context(), toolSlug, toolSHA, args[0], raw)
	}

	if strings.HasPrefix(out, "Error: ") {
		fmt.Fprintln(cmd.ErrOrStderr(), out)
		return errors.New("tool failed")
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
