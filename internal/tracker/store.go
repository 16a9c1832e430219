package tracker

import (
	"context"
	"sort"
	"sync"

	"github.com/signalward/signalward/internal/domain"
)

// Store is the execution-data storage behind the tracker. Upsert-by-ID is
// the only legal mutation; Reset is the only legal delete. Implementations:
// MemoryStore here, Redis in tracker/redisstore, PostgreSQL in
// tracker/postgres.
type Store interface {
	// Upsert inserts or replaces the record with the same ID.
	Upsert(ctx context.Context, rec domain.SignalExecutionData) error

	// UpsertBatch applies a batch of upserts.
	UpsertBatch(ctx context.Context, recs []domain.SignalExecutionData) error

	// ListByProvider returns every record for a provider.
	ListByProvider(ctx context.Context, providerID string) ([]domain.SignalExecutionData, error)

	// ProviderIDs lists every provider with at least one record.
	ProviderIDs(ctx context.Context) ([]string, error)

	// Count returns the total number of records across providers.
	Count(ctx context.Context) (int, error)

	// Reset deletes all records for a provider; an empty providerID clears
	// the whole store.
	Reset(ctx context.Context, providerID string) error
}

// MemoryStore is the in-process Store used for tests and single-node runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.SignalExecutionData // by record ID
	byProv  map[string]map[string]struct{}        // providerID -> record IDs
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]domain.SignalExecutionData),
		byProv:  make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, rec domain.SignalExecutionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(rec)
	return nil
}

func (s *MemoryStore) UpsertBatch(ctx context.Context, recs []domain.SignalExecutionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		s.upsertLocked(rec)
	}
	return nil
}

func (s *MemoryStore) upsertLocked(rec domain.SignalExecutionData) {
	if old, ok := s.records[rec.ID]; ok && old.ProviderID != rec.ProviderID {
		delete(s.byProv[old.ProviderID], rec.ID)
	}
	s.records[rec.ID] = rec
	ids, ok := s.byProv[rec.ProviderID]
	if !ok {
		ids = make(map[string]struct{})
		s.byProv[rec.ProviderID] = ids
	}
	ids[rec.ID] = struct{}{}
}

func (s *MemoryStore) ListByProvider(ctx context.Context, providerID string) ([]domain.SignalExecutionData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byProv[providerID]
	out := make([]domain.SignalExecutionData, 0, len(ids))
	for id := range ids {
		out = append(out, s.records[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutionTime.Before(out[j].ExecutionTime) })
	return out, nil
}

func (s *MemoryStore) ProviderIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byProv))
	for id, ids := range s.byProv {
		if len(ids) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Reset(ctx context.Context, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if providerID == "" {
		s.records = make(map[string]domain.SignalExecutionData)
		s.byProv = make(map[string]map[string]struct{})
		return nil
	}
	for id := range s.byProv[providerID] {
		delete(s.records, id)
	}
	delete(s.byProv, providerID)
	return nil
}
