// Package storage provides utterance history persistence implementations.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hammamikhairi/ottospeak/internal/domain"
	"github.com/hammamikhairi/ottospeak/internal/logger"
)

// Compile-time interface check.
var _ domain.HistoryStore = (*MemoryStore)(nil)

// DefaultCapacity is the number of records kept before the oldest are dropped.
const DefaultCapacity = 200

// MemoryStore is an in-memory history store. Safe for concurrent access.
// Records are kept in insertion order; saving an existing ID updates it in
// place.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]*domain.Record
	order    []string
	capacity int
	log      *logger.Logger
}

// NewMemoryStore creates an empty in-memory history store holding at most
// capacity records. A non-positive capacity means DefaultCapacity.
func NewMemoryStore(capacity int, log *logger.Logger) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		records:  make(map[string]*domain.Record),
		capacity: capacity,
		log:      log,
	}
}

// Save persists a copy of rec. Overwrites if it already exists.
func (s *MemoryStore) Save(ctx context.Context, rec *domain.Record) error {
	if rec == nil || rec.ID == "" {
		return domain.ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	if _, ok := s.records[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = &cp
	s.evictLocked()

	s.log.Debug("saving record %s (status=%s)", rec.ID, rec.Status)
	return nil
}

// Update overwrites an existing record in place. Evicted or unknown records
// yield ErrNotFound and are not re-added.
func (s *MemoryStore) Update(ctx context.Context, rec *domain.Record) error {
	if rec == nil || rec.ID == "" {
		return domain.ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; !ok {
		return fmt.Errorf("%w: record %s", domain.ErrNotFound, rec.ID)
	}
	cp := *rec
	s.records[rec.ID] = &cp

	s.log.Debug("updating record %s (status=%s)", rec.ID, rec.Status)
	return nil
}

// evictLocked drops the oldest records beyond capacity.
// Must be called with s.mu held.
func (s *MemoryStore) evictLocked() {
	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.records, oldest)
		s.log.Debug("evicted record %s", oldest)
	}
}

// Load retrieves a record by ID.
func (s *MemoryStore) Load(ctx context.Context, id string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		s.log.Debug("record not found: %s", id)
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// Recent returns up to n records, newest first.
func (s *MemoryStore) Recent(ctx context.Context, n int) ([]*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.order) {
		n = len(s.order)
	}
	out := make([]*domain.Record, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		cp := *s.records[s.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

// Last returns the newest record, or ErrNotFound when the store is empty.
func (s *MemoryStore) Last(ctx context.Context) (*domain.Record, error) {
	recent, err := s.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, domain.ErrNotFound
	}
	return recent[0], nil
}
