package store

import (
	"context"
	"sync"

	"github.com/netcmdb/netcmdb/internal/interfaces"
	"github.com/netcmdb/netcmdb/pkg/logging"
)

// MemoryStore holds relationship records in memory
type MemoryStore struct {
	mu      sync.RWMutex
	records []interfaces.RelationshipRecord
}

// NewMemoryStore creates a memory store seeded with records
func NewMemoryStore(records ...interfaces.RelationshipRecord) *MemoryStore {
	s := &MemoryStore{}
	s.records = append(s.records, records...)
	return s
}

// Add appends records
func (s *MemoryStore) Add(records ...interfaces.RelationshipRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// Replace swaps the full record set
func (s *MemoryStore) Replace(records []interfaces.RelationshipRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]interfaces.RelationshipRecord(nil), records...)
}

// Len returns the number of stored records, active or not
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ListRelationships implements interfaces.RelationshipStore
func (s *MemoryStore) ListRelationships(ctx context.Context, filter interfaces.RelationshipFilter) ([]interfaces.RelationshipRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := filter.Apply(s.records)
	s.mu.RUnlock()

	logging.StoreOperation("list", "memory", len(out))
	return out, nil
}
