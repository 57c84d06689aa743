package repocache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

const (
	indexVersion = "1"
	indexFile    = "index.json"
)

// worktreeIndex records every worktree the cache has provisioned. It is
// persisted as JSON for the idle-worktree collector.
type worktreeIndex struct {
	Version   string                     `json:"version"`
	Worktrees map[string]*WorktreeRecord `json:"worktrees"`
	mu        sync.RWMutex
	saveMu    sync.Mutex // orders snapshots with their writes
}

func newIndex() *worktreeIndex {
	return &worktreeIndex{
		Version:   indexVersion,
		Worktrees: make(map[string]*WorktreeRecord),
	}
}

// loadIndex loads the index from fs. A missing index yields an empty one;
// so does an unreadable or corrupt one, which is logged and later
// overwritten.
func loadIndex(ctx context.Context, fs billy.Filesystem) *worktreeIndex {
	if _, err := fs.Stat(indexFile); os.IsNotExist(err) {
		return newIndex()
	}

	data, err := util.ReadFile(fs, indexFile)
	if err != nil {
		clog.WarnContextf(ctx, "Discarding unreadable worktree index: %v", err)
		return newIndex()
	}

	var index worktreeIndex
	if err := json.Unmarshal(data, &index); err != nil {
		clog.WarnContextf(ctx, "Discarding corrupt worktree index: %v", err)
		return newIndex()
	}
	if index.Version != indexVersion {
		clog.WarnContextf(ctx, "Discarding worktree index with version %q", index.Version)
		return newIndex()
	}
	if index.Worktrees == nil {
		index.Worktrees = make(map[string]*WorktreeRecord)
	}
	return &index
}

// save writes the index to fs atomically (write to temp, then rename).
func (idx *worktreeIndex) save(fs billy.Filesystem) error {
	idx.saveMu.Lock()
	defer idx.saveMu.Unlock()

	idx.mu.RLock()
	data, err := json.MarshalIndent(idx, "", "  ")
	idx.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	tmp, err := util.TempFile(fs, ".", indexFile+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary index file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary index file: %w", err)
	}
	if err := fs.Rename(tmpPath, indexFile); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("failed to rename index file: %w", err)
	}
	return nil
}

func indexKey(slug, sha string) string {
	return slug + "/" + shortSHA(sha)
}

func (idx *worktreeIndex) get(key string) (WorktreeRecord, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	rec, ok := idx.Worktrees[key]
	if !ok {
		return WorktreeRecord{}, false
	}
	return *rec, true
}

// record adds or refreshes an entry. CreatedAt is kept for existing entries.
func (idx *worktreeIndex) record(rec WorktreeRecord, now time.Time) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	key := indexKey(rec.Slug, rec.SHA)
	if existing, ok := idx.Worktrees[key]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.LastAccess = now
	idx.Worktrees[key] = &rec
}

func (idx *worktreeIndex) touch(key string, now time.Time) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if rec, ok := idx.Worktrees[key]; ok {
		rec.LastAccess = now
	}
}

func (idx *worktreeIndex) delete(key string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.Worktrees, key)
}

func (idx *worktreeIndex) reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.Worktrees = make(map[string]*WorktreeRecord)
}

// idle returns the records last accessed before cutoff, oldest first.
func (idx *worktreeIndex) idle(cutoff time.Time) []WorktreeRecord {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []WorktreeRecord
	for _, rec := range idx.Worktrees {
		if rec.LastAccess.Before(cutoff) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAccess.Before(out[j].LastAccess)
	})
	return out
}

func (idx *worktreeIndex) count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.Worktrees)
}
