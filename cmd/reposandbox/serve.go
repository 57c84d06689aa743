package main

import (
	"github.com/chainguard-dev/clog"
	"github.com/jmgilman/reposandbox/repocache"
	"github.com/jmgilman/reposandbox/tools"
	"github.com/jmgilman/reposandbox/worker"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	servePort      int
	serveIsolation string
	serveCacheRoot string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the worker HTTP service",
	Long: `Start the worker. Configuration is read from the environment
(PORT, SANDBOX_SECRET, SANDBOX_CACHE_ROOT, SANDBOX_ISOLATION, ...); flags
override the matching variables.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides PORT)")
	serveCmd.Flags().StringVar(&serveIsolation, "isolation", "", `"bwrap" or "none" (overrides SANDBOX_ISOLATION)`)
	serveCmd.Flags().StringVar(&serveCacheRoot, "cache-root", "", "cache directory (overrides SANDBOX_CACHE_ROOT)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := worker.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("isolation") {
		cfg.Isolation = serveIsolation
	}
	if cmd.Flags().Changed("cache-root") {
		cfg.CacheRoot = serveCacheRoot
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !cmd.Flags().Changed("log-level") {
		logLevel = cfg.LogLevel
		if err := setupLogging(cmd, nil); err != nil {
			return err
		}
		ctx = cmd.Context()
	}

	runner := cfg.Runner()
	cache, err := repocache.New(cfg.CacheRoot,
		repocache.WithRunner(runner),
		repocache.WithGit(cfg.Git()),
		repocache.WithGitTimeout(cfg.GitTimeout),
	)
	if err != nil {
		return err
	}
	dispatcher := tools.New(cache.Root(),
		tools.WithRunner(runner),
		tools.WithGit(cfg.Git()),
		tools.WithTimeout(cfg.ToolTimeout),
		tools.WithGitTimeout(cfg.GitTimeout),
	)
	srv := worker.New(cache, dispatcher, worker.WithSecret(cfg.Secret))

	clog.FromContext(ctx).With(
		"cache_root", cache.Root(),
		"isolation", cfg.Isolation,
		"auth", cfg.Secret != "",
	).Info("Starting worker")
	if cfg.Secret == "" {
		clog.WarnContextf(ctx, "SANDBOX_SECRET is not set; the worker accepts unauthenticated requests")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Addr())
	})
	if cfg.GCInterval > 0 {
		g.Go(func() error {
			stop := cache.StartGC(gctx, cfg.GCInterval, cfg.WorktreeMaxIdle)
			<-gctx.Done()
			stop()
			return nil
		})
	}
	return g.Wait()
}
