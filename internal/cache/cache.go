// Package cache keeps parsed staging files in memory, keyed by path and
// invalidated when the file's modification time changes.
package cache

import (
	"io"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

// DefaultCapacity is the number of parsed files kept.
const DefaultCapacity = 50

// ParseFunc turns file contents into a table.
type ParseFunc func(path string, r io.Reader) (*model.Table, error)

// Clock returns the current time.
type Clock func() time.Time

type entry struct {
	modTime  time.Time
	size     int64
	table    *model.Table
	loadedAt time.Time
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits      int `json:"hits"`
	Misses    int `json:"misses"`
	Evictions int `json:"evictions"`
	Size      int `json:"size"`
	Capacity  int `json:"capacity"`
}

// HitRate is hits over lookups, or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Staging is a bounded LRU of parsed staging files. It is meant for one
// goroutine; the counters are not synchronized.
type Staging struct {
	fs       afero.Fs
	clock    Clock
	capacity int
	entries  *lru.Cache[string, entry]
	stats    Stats
}

// New builds a cache over fs. A zero capacity selects DefaultCapacity
// and a nil clock selects time.Now. A negative capacity is an error.
func New(fs afero.Fs, capacity int, clock Clock) (*Staging, error) {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if clock == nil {
		clock = time.Now
	}
	entries, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, eris.Wrapf(err, "cache: capacity %d", capacity)
	}
	return &Staging{fs: fs, clock: clock, capacity: capacity, entries: entries}, nil
}

// Load returns the parsed table for path. The file's modification time is
// checked on every call: an unchanged file is served from memory without
// being opened, a changed one is parsed again. The returned table is
// shared; callers that modify it must Clone it first.
func (s *Staging) Load(path string, parse ParseFunc) (*model.Table, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		s.entries.Remove(path)
		return nil, eris.Wrapf(err, "cache: stat %s", path)
	}

	if e, ok := s.entries.Get(path); ok {
		if e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
			s.stats.Hits++
			return e.table, nil
		}
		zap.L().Debug("cache: stale entry", zap.String("path", path))
	}
	s.stats.Misses++

	f, err := s.fs.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cache: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	t, err := parse(path, f)
	if err != nil {
		s.entries.Remove(path)
		return nil, eris.Wrapf(err, "cache: parse %s", path)
	}

	if s.entries.Add(path, entry{modTime: info.ModTime(), size: info.Size(), table: t, loadedAt: s.clock()}) {
		s.stats.Evictions++
	}
	return t, nil
}

// LoadedAt reports when path was last parsed into the cache.
func (s *Staging) LoadedAt(path string) (time.Time, bool) {
	e, ok := s.entries.Peek(path)
	return e.loadedAt, ok
}

// Preload parses paths into the cache, stopping at the first error.
func (s *Staging) Preload(paths []string, parse ParseFunc) error {
	for _, p := range paths {
		if _, err := s.Load(p, parse); err != nil {
			return err
		}
	}
	zap.L().Debug("cache: preloaded", zap.Int("files", len(paths)))
	return nil
}

// Invalidate drops path and reports whether it was cached.
func (s *Staging) Invalidate(path string) bool {
	return s.entries.Remove(path)
}

// Clear drops every entry and resets the counters.
func (s *Staging) Clear() {
	s.entries.Purge()
	s.stats = Stats{}
}

// Stats returns a snapshot of the counters.
func (s *Staging) Stats() Stats {
	st := s.stats
	st.Size = s.entries.Len()
	st.Capacity = s.capacity
	return st
}
