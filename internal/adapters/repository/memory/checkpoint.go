// Package memory provides an in-process snapshot store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/checkpoint"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/serialization"
)

// SnapshotSaver implements checkpoint.Saver in memory
// PRINCIPLES:
// - KISS: map guarded by a mutex, entries expire lazily
// - DIP: Implements checkpoint.Saver interface
type SnapshotSaver struct {
	mu         sync.Mutex
	entries    map[string]*entry
	ttl        time.Duration
	maxEntries int
	serializer *serialization.Serializer
	now        func() time.Time
}

// Config holds configuration for SnapshotSaver
type Config struct {
	TTL        time.Duration             // Entries older than TTL are dropped, default 24h
	MaxEntries int                       // Oldest entries are evicted beyond this, default 10000
	Serializer *serialization.Serializer // Defaults to msgpack+zstd
}

type entry struct {
	data      []byte
	snapshot  checkpoint.Snapshot // header fields for filtering
	expiresAt time.Time
}

// NewSnapshotSaver creates a new in-memory saver
func NewSnapshotSaver(cfg Config) *SnapshotSaver {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10000
	}
	if cfg.Serializer == nil {
		cfg.Serializer = serialization.SnapshotSerializer()
	}
	return &SnapshotSaver{
		entries:    make(map[string]*entry),
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		serializer: cfg.Serializer,
		now:        time.Now,
	}
}

// Save stores a serialized copy of s
func (m *SnapshotSaver) Save(ctx context.Context, s *checkpoint.Snapshot) error {
	if s == nil {
		return checkpoint.ErrNilSnapshot
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("snapshot validation failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := m.serializer.Serialize(s)
	if err != nil {
		return fmt.Errorf("snapshot serialization failed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.expireLocked(now)
	header := *s
	header.State = checkpoint.State{}
	m.entries[s.ID] = &entry{data: data, snapshot: header, expiresAt: now.Add(m.ttl)}
	m.evictLocked()
	return nil
}

// Load returns a decoded copy of the snapshot
func (m *SnapshotSaver) Load(ctx context.Context, id string) (*checkpoint.Snapshot, error) {
	if id == "" {
		return nil, checkpoint.ErrInvalidSnapshotID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.expireLocked(m.now())
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return nil, checkpoint.ErrSnapshotNotFound
	}
	return m.decode(e)
}

// List returns matching snapshots, newest first
func (m *SnapshotSaver) List(ctx context.Context, filter checkpoint.Filter) ([]*checkpoint.Snapshot, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.expireLocked(m.now())
	matched := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		if filter.Matches(&e.snapshot) {
			matched = append(matched, e)
		}
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].snapshot, matched[j].snapshot
		if a.Timestamp.Equal(b.Timestamp) {
			return a.Step > b.Step
		}
		return a.Timestamp.After(b.Timestamp)
	})
	if filter.Offset >= len(matched) {
		return []*checkpoint.Snapshot{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	out := make([]*checkpoint.Snapshot, 0, len(matched))
	for _, e := range matched {
		s, err := m.decode(e)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Delete removes a snapshot
func (m *SnapshotSaver) Delete(ctx context.Context, id string) error {
	if id == "" {
		return checkpoint.ErrInvalidSnapshotID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return checkpoint.ErrSnapshotNotFound
	}
	delete(m.entries, id)
	return nil
}

// Len returns the number of live entries.
func (m *SnapshotSaver) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(m.now())
	return len(m.entries)
}

func (m *SnapshotSaver) decode(e *entry) (*checkpoint.Snapshot, error) {
	var s checkpoint.Snapshot
	if err := m.serializer.Deserialize(e.data, &s); err != nil {
		return nil, fmt.Errorf("snapshot deserialization failed: %w", err)
	}
	return &s, nil
}

func (m *SnapshotSaver) expireLocked(now time.Time) {
	for id, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, id)
		}
	}
}

// evictLocked drops the entries closest to expiry until the cap holds.
func (m *SnapshotSaver) evictLocked() {
	for len(m.entries) > m.maxEntries {
		var oldestID string
		var oldest time.Time
		for id, e := range m.entries {
			if oldestID == "" || e.expiresAt.Before(oldest) {
				oldestID, oldest = id, e.expiresAt
			}
		}
		delete(m.entries, oldestID)
	}
}
