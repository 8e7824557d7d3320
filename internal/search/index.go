// Package search provides the metadata index used to find processes by
// metadata values.
//
// The index is eventually consistent: Update queues a snapshot of the
// process metadata and a background loop applies queued snapshots once per
// refresh interval. Searches only see applied snapshots. Flush applies the
// queue immediately.
package search

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kitodo/kscript/internal/ctxutil"
	"github.com/kitodo/kscript/internal/domain"
)

// Hit is one metadata entry matching a query.
type Hit struct {
	ProcessID int    `json:"process_id"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// ProcessLister loads all processes for Rebuild.
type ProcessLister interface {
	ListProcesses(ctx context.Context) ([]*domain.Process, error)
}

// Index is an in-memory metadata index.
type Index struct {
	refresh time.Duration
	logger  zerolog.Logger

	mu      sync.RWMutex
	applied map[int][]domain.MetadataEntry

	pendingMu sync.Mutex
	pending   map[int][]domain.MetadataEntry

	startOnce sync.Once
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewIndex creates an index that applies updates every refresh interval.
// A zero interval makes Update apply synchronously.
func NewIndex(refresh time.Duration, logger zerolog.Logger) *Index {
	return &Index{
		refresh: refresh,
		logger:  logger.With().Str("component", "search").Logger(),
		applied: make(map[int][]domain.MetadataEntry),
		pending: make(map[int][]domain.MetadataEntry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the refresh loop. It returns immediately; the loop ends
// when ctx is done or Close is called.
func (ix *Index) Start(ctx context.Context) {
	ix.startOnce.Do(func() {
		if ix.refresh <= 0 {
			close(ix.done)
			return
		}
		go ix.loop(ctx)
	})
}

func (ix *Index) loop(ctx context.Context) {
	defer close(ix.done)
	ticker := time.NewTicker(ix.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ix.apply()
			return
		case <-ix.stop:
			ix.apply()
			return
		case <-ticker.C:
			ix.apply()
		}
	}
}

// Close stops the refresh loop after applying pending updates.
func (ix *Index) Close() {
	ix.closeOnce.Do(func() {
		close(ix.stop)
		ix.startOnce.Do(func() { close(ix.done) })
		<-ix.done
		ix.apply()
	})
}

// Update queues the current metadata of p. A later Update for the same
// process replaces an earlier one that has not been applied yet.
func (ix *Index) Update(p *domain.Process) {
	snapshot := append([]domain.MetadataEntry(nil), p.Metadata...)

	ix.pendingMu.Lock()
	ix.pending[p.ID] = snapshot
	ix.pendingMu.Unlock()

	if ix.refresh <= 0 {
		ix.apply()
	}
}

// Remove queues the removal of a process from the index.
func (ix *Index) Remove(id int) {
	ix.pendingMu.Lock()
	ix.pending[id] = nil
	ix.pendingMu.Unlock()

	if ix.refresh <= 0 {
		ix.apply()
	}
}

// Flush applies all queued updates now.
func (ix *Index) Flush(ctx context.Context) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	ix.apply()
	return nil
}

// Pending returns the number of queued updates not yet visible to searches.
func (ix *Index) Pending() int {
	ix.pendingMu.Lock()
	defer ix.pendingMu.Unlock()
	return len(ix.pending)
}

func (ix *Index) apply() {
	ix.pendingMu.Lock()
	batch := ix.pending
	ix.pending = make(map[int][]domain.MetadataEntry)
	ix.pendingMu.Unlock()

	if len(batch) == 0 {
		return
	}

	ix.mu.Lock()
	for id, entries := range batch {
		if entries == nil {
			delete(ix.applied, id)
			continue
		}
		ix.applied[id] = entries
	}
	ix.mu.Unlock()

	ix.logger.Debug().Int("processes", len(batch)).Msg("index refreshed")
}

// Rebuild replaces the index contents with the metadata of every stored process.
func (ix *Index) Rebuild(ctx context.Context, lister ProcessLister) error {
	processes, err := lister.ListProcesses(ctx)
	if err != nil {
		return err
	}

	fresh := make(map[int][]domain.MetadataEntry, len(processes))
	for _, p := range processes {
		fresh[p.ID] = p.Metadata
	}

	ix.pendingMu.Lock()
	ix.pending = make(map[int][]domain.MetadataEntry)
	ix.pendingMu.Unlock()

	ix.mu.Lock()
	ix.applied = fresh
	ix.mu.Unlock()

	ix.logger.Debug().Int("processes", len(processes)).Msg("index rebuilt")
	return nil
}

// Hits returns one hit per metadata entry with exactly the given key and
// value, ordered by process ID. Duplicate entries on one process produce
// several hits.
func (ix *Index) Hits(key, value string) []Hit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var hits []Hit
	for id, entries := range ix.applied {
		for _, e := range entries {
			if e.Key == key && e.Value == value {
				hits = append(hits, Hit{ProcessID: id, Key: key, Value: value})
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].ProcessID < hits[j].ProcessID })
	return hits
}

// FindProcesses returns the IDs of the processes that have, for every
// key in query, at least one entry with that key and value.
func (ix *Index) FindProcesses(query map[string]string) []int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var ids []int
	for id, entries := range ix.applied {
		if matchesAll(entries, query) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

func matchesAll(entries []domain.MetadataEntry, query map[string]string) bool {
	if len(query) == 0 {
		return false
	}
	for k, v := range query {
		found := false
		for _, e := range entries {
			if e.Key == k && e.Value == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
