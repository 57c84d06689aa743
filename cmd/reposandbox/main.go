// Command reposandbox runs the sandboxed repository worker and talks to it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "reposandbox",
	Short: "Read-only, sandboxed access to git repositories.",
	Long: `reposandbox clones repositories into a shared cache, checks out one
worktree per commit, and runs read-only tools (rg, find, ls, read, git)
against them inside bubblewrap.

Run "reposandbox serve" to start the worker. The other commands talk to a
worker over HTTP, or operate on a local cache with --local.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", level, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, cloneCmd, toolCmd, resetCmd, healthCmd, gcCmd, versionCmd)
}

// setupLogging installs a JSON slog handler on the command's context.
func setupLogging(cmd *cobra.Command, _ []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	cmd.SetContext(clog.WithLogger(cmd.Context(), clog.New(handler)))
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
