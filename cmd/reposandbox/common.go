package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jmgilman/reposandbox/access"
	"github.com/jmgilman/reposandbox/client"
	"github.com/jmgilman/reposandbox/git"
	"github.com/jmgilman/reposandbox/repocache"
	"github.com/spf13/cobra"
)

// target selects between a remote worker and a local cache.
type target struct {
	workerURL string
	secret    string
	timeout   time.Duration
	local     bool
	cacheRoot string
	protocols []string
}

// bind registers both the worker and the local cache flags on cmd.
func (t *target) bind(cmd *cobra.Command) {
	t.bindRemote(cmd)
	t.bindLocal(cmd)
	cmd.Flags().BoolVar(&t.local, "local", false, "use a local cache without sandboxing instead of a worker")
}

func (t *target) bindRemote(cmd *cobra.Command) {
	url := os.Getenv("SANDBOX_URL")
	if url == "" {
		url = "http://localhost:8080"
	}

	f := cmd.Flags()
	f.StringVar(&t.workerURL, "worker", url, "worker base URL (SANDBOX_URL)")
	f.StringVar(&t.secret, "secret", os.Getenv("SANDBOX_SECRET"), "worker bearer secret (SANDBOX_SECRET)")
	f.DurationVar(&t.timeout, "timeout", client.DefaultTimeout, "per-request timeout")
}

func (t *target) bindLocal(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&t.cacheRoot, "cache-root", "", "local cache directory (default: user cache dir)")
	f.StringSliceVar(&t.protocols, "allow-protocol", git.DefaultConfig().AllowedProtocols, "git protocols a local cache may clone over")
}

func (t *target) client() *client.Client {
	return client.New(t.workerURL, client.WithSecret(t.secret), client.WithTimeout(t.timeout))
}

func (t *target) localSession() (*access.Local, error) {
	root := t.cacheRoot
	if root == "" {
		var err error
		if root, err = access.DefaultLocalRoot(); err != nil {
			return nil, err
		}
	}

	cfg := git.Config{AllowedProtocols: t.protocols}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return access.OpenLocal(root, repocache.WithGit(cfg))
}

func (t *target) session() (access.Session, error) {
	if t.local {
		return t.localSession()
	}
	return access.NewRemote(t.client()), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
