package repocache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	platformerrors "github.com/jmgilman/reposandbox/errors"
)

func TestLockTable_MutualExclusion(t *testing.T) {
	var (
		locks   lockTable
		holders atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := locks.acquire(context.Background(), "key")
			if err != nil {
				t.Errorf("acquire() error = %v", err)
				return
			}
			defer release()

			n := holders.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			holders.Add(-1)
		}()
	}
	wg.Wait()

	if got := maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent holders = %d, want 1", got)
	}
	if len(locks.held) != 0 {
		t.Errorf("held keys after release = %d, want 0", len(locks.held))
	}
}

func TestLockTable_IndependentKeys(t *testing.T) {
	var locks lockTable

	releaseA, err := locks.acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("acquire(a) error = %v", err)
	}
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	releaseB, err := locks.acquire(ctx, "b")
	if err != nil {
		t.Fatalf("acquire(b) blocked on unrelated key: %v", err)
	}
	releaseB()
}

func TestLockTable_ContextCanceled(t *testing.T) {
	var locks lockTable

	release, err := locks.acquire(context.Background(), "key")
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locks.acquire(ctx, "key")
	if err == nil {
		t.Fatal("acquire() on held key succeeded, want timeout")
	}
	if code := platformerrors.GetCode(err); code != platformerrors.CodeTimeout {
		t.Errorf("error code = %v, want %v", code, platformerrors.CodeTimeout)
	}
}

func TestLockTable_ReleaseIdempotent(t *testing.T) {
	var locks lockTable

	release, err := locks.acquire(context.Background(), "key")
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	release()
	release()

	release, err = locks.acquire(context.Background(), "key")
	if err != nil {
		t.Fatalf("re-acquire() error = %v", err)
	}
	release()
}
