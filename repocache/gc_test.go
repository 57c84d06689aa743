package repocache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmgilman/reposandbox/git/testutil"
)

func TestCollectGarbage_RemovesIdleWorktrees(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(t, WithClock(clock.Now))
	fixture := testutil.NewTaggedRepo(t)
	ctx := context.Background()

	old, err := c.Connect(ctx, fixture.Path, "v1.0")
	if err != nil {
		t.Fatalf("Connect(v1.0) error = %v", err)
	}

	clock.Advance(3 * time.Hour)
	fresh, err := c.Connect(ctx, fixture.Path, "v2.0")
	if err != nil {
		t.Fatalf("Connect(v2.0) error = %v", err)
	}

	clock.Advance(time.Hour)
	if removed := c.CollectGarbage(ctx, 2*time.Hour); removed != 1 {
		t.Errorf("CollectGarbage() removed %d, want 1", removed)
	}

	if _, err := os.Stat(old.LocalPath); !os.IsNotExist(err) {
		t.Error("idle worktree was not removed")
	}
	if _, err := os.Stat(fresh.LocalPath); err != nil {
		t.Errorf("recently used worktree was removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(old.CachePath, "HEAD")); err != nil {
		t.Errorf("bare clone was removed: %v", err)
	}
}

func TestCollectGarbage_RemovesOrphans(t *testing.T) {
	c := newTestCache(t)
	fixture := testutil.NewTaggedRepo(t)
	ctx := context.Background()

	h, err := c.Connect(ctx, fixture.Path, "")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	orphan := filepath.Join(filepath.Dir(h.LocalPath), "deadbeefdead")
	if err := os.MkdirAll(filepath.Join(orphan, "src"), 0o755); err != nil {
		t.Fatal(err)
	}

	if removed := c.CollectGarbage(ctx, 24*time.Hour); removed != 1 {
		t.Errorf("CollectGarbage() removed %d, want 1", removed)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("orphaned directory was not removed")
	}
	if _, err := os.Stat(h.LocalPath); err != nil {
		t.Errorf("registered worktree was removed: %v", err)
	}
}

func TestStartGC_RunsPeriodically(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(t, WithClock(clock.Now))
	fixture := testutil.NewTaggedRepo(t)

	h, err := c.Connect(context.Background(), fixture.Path, "")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	clock.Advance(48 * time.Hour)

	stop := c.StartGC(context.Background(), 20*time.Millisecond, time.Hour)
	defer stop()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(h.LocalPath); os.IsNotExist(err) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("GC did not remove the idle worktree")
}

func TestStartGC_StopFunction(t *testing.T) {
	c := newTestCache(t)

	stop := c.StartGC(context.Background(), time.Hour, time.Hour)

	done := make(chan struct{})
	go func() {
		stop()
		stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stop() did not return")
	}
}
