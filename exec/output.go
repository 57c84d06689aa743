package exec

import (
	"bytes"
	"io"
	"sync"
)

// multiWriter writes to several writers. Unlike io.MultiWriter it never
// stops early, so a full limitedBuffer cannot starve its siblings.
type multiWriter struct {
	writers []io.Writer
	mu      sync.Mutex
}

func newMultiWriter(writers ...io.Writer) *multiWriter {
	return &multiWriter{writers: writers}
}

// Write writes p to all underlying writers and always reports len(p).
func (mw *multiWriter) Write(p []byte) (int, error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	for _, w := range mw.writers {
		_, _ = w.Write(p)
	}
	return len(p), nil
}

// limitedBuffer keeps the first limit bytes written to it and silently drops
// the rest. A limit of zero or less means unbounded.
type limitedBuffer struct {
	buffer    bytes.Buffer
	limit     int
	truncated bool
	mu        sync.Mutex
}

func newLimitedBuffer(limit int) *limitedBuffer {
	return &limitedBuffer{limit: limit}
}

// Write never fails, so the child process is never blocked on a full pipe.
func (lb *limitedBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.limit <= 0 {
		return lb.buffer.Write(p)
	}

	room := lb.limit - lb.buffer.Len()
	if room <= 0 {
		lb.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		lb.buffer.Write(p[:room])
		lb.truncated = true
		return len(p), nil
	}
	return lb.buffer.Write(p)
}

func (lb *limitedBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buffer.String()
}

func (lb *limitedBuffer) Truncated() bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.truncated
}
