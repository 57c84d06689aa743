package access

// CleanupTask tracks background worktree removal started by Close.
type CleanupTask struct {
	done    chan struct{}
	removed int
	err     error
}

// startCleanup runs fn in the background and returns its task.
func startCleanup(fn func() (int, error)) *CleanupTask {
	t := &CleanupTask{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.removed, t.err = fn()
	}()
	return t
}

// Done is closed when cleanup has finished.
func (t *CleanupTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until cleanup finishes and returns its error.
func (t *CleanupTask) Wait() error {
	<-t.done
	return t.err
}

// Err returns the cleanup error, or nil while cleanup is still running.
func (t *CleanupTask) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Removed waits for cleanup and reports how many worktrees it removed.
func (t *CleanupTask) Removed() int {
	<-t.done
	return t.removed
}
