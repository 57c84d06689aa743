package repocache

import (
	"context"
	"errors"
	"sync"

	platformerrors "github.com/jmgilman/reposandbox/errors"
)

// lockTable gives at most one holder per key within the process.
//
// A waiter blocks on the holder's channel and then competes for the key
// again, so it never proceeds without holding the key itself.
type lockTable struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// acquire blocks until key is free or ctx is done. The returned release
// function is idempotent.
func (l *lockTable) acquire(ctx context.Context, key string) (func(), error) {
	for {
		l.mu.Lock()
		if l.held == nil {
			l.held = make(map[string]chan struct{})
		}
		busy, ok := l.held[key]
		if !ok {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-busy:
		case <-ctx.Done():
			return nil, contextError(ctx.Err(), "waiting for "+key)
		}
	}
}

// contextError converts a context error into a platform error.
func contextError(err error, doing string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return platformerrors.Wrap(err, platformerrors.CodeTimeout, "timed out "+doing)
	}
	return platformerrors.Wrap(err, platformerrors.CodeUnavailable, "canceled while "+doing)
}
