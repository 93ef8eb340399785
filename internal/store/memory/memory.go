package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"timesplit/internal/core"
	"timesplit/internal/store"
)

var _ store.Repository = (*Store)(nil)

// Store keeps entries and settings in process memory. Nothing survives a
// restart. A single mutex serialises every operation.
type Store struct {
	mu       sync.Mutex
	entries  map[string]record
	seq      uint64
	settings core.Settings
	newID    func() string
}

// record pairs an entry with its insertion sequence, used as the tie-break
// when two entries share a date.
type record struct {
	entry core.TimeEntry
	seq   uint64
}

// Option customises a Store.
type Option func(*Store)

// WithIDGenerator replaces the UUID generator used for new ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New returns an empty store whose settings start at baseAmount.
func New(baseAmount float64, opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]record),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.settings = core.Settings{ID: s.newID(), BaseAmount: baseAmount}
	return s
}

// ListEntries returns a copy of all entries ordered by date.
func (s *Store) ListEntries(_ context.Context) ([]core.TimeEntry, error) {
	s.mu.Lock()
	recs := make([]record, 0, len(s.entries))
	for _, r := range s.entries {
		recs = append(recs, r)
	}
	s.mu.Unlock()

	// Insertion order first, then a stable date sort keeps it for ties.
	sortBySeq(recs)
	out := make([]core.TimeEntry, len(recs))
	for i, r := range recs {
		out[i] = r.entry
	}
	core.SortEntries(out)
	return out, nil
}

// CreateEntry stores a new entry and returns it.
func (s *Store) CreateEntry(_ context.Context, n core.NewEntry) (core.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for _, taken := s.entries[id]; taken; _, taken = s.entries[id] {
		id = s.newID()
	}
	e := n.Build(id)
	s.seq++
	s.entries[id] = record{entry: e, seq: s.seq}
	return e, nil
}

// UpdateEntry applies p to the entry with the given id.
func (s *Store) UpdateEntry(_ context.Context, id string, p core.EntryPatch) (core.TimeEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.entries[id]
	if !ok {
		return core.TimeEntry{}, false, nil
	}
	r.entry = p.Apply(r.entry)
	s.entries[id] = r
	return r.entry, true, nil
}

// DeleteEntry removes the entry with the given id.
func (s *Store) DeleteEntry(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

// GetSettings returns the current settings.
func (s *Store) GetSettings(_ context.Context) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

// UpdateSettings merges p into the settings and returns the result.
func (s *Store) UpdateSettings(_ context.Context, p core.SettingsPatch) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = p.Apply(s.settings)
	return s.settings, nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func sortBySeq(recs []record) {
	slices.SortFunc(recs, func(a, b record) int {
		return cmp.Compare(a.seq, b.seq)
	})
}
