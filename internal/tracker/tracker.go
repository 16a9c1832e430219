package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/signalward/signalward/internal/domain"
)

// Config holds tracker tuning knobs.
type Config struct {
	// CacheTTL bounds how stale a cached ProviderSuccessStats may be before
	// a read triggers recomputation.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

func DefaultConfig() *Config {
	return &Config{CacheTTL: 5 * time.Minute}
}

type cachedStats struct {
	stats      *ProviderSuccessStats
	computedAt time.Time
}

// Tracker ingests execution outcomes and maintains rolling per-provider
// statistics. A single mutex serializes upserts with their recomputation so
// a recompute always observes a consistent snapshot of the store.
type Tracker struct {
	mu       sync.Mutex
	store    Store
	cacheTTL time.Duration
	cache    map[string]cachedStats
}

// New builds a tracker over the given store. The tracker is caller-owned;
// there is no package-level default instance.
func New(store Store, cfg *Config) *Tracker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Tracker{
		store:    store,
		cacheTTL: cfg.CacheTTL,
		cache:    make(map[string]cachedStats),
	}
}

// AddSignalData upserts one execution record by ID and recomputes the
// provider's statistics. Records arriving without an ID are assigned one.
func (t *Tracker) AddSignalData(ctx context.Context, rec domain.SignalExecutionData) error {
	if rec.ProviderID == "" {
		return fmt.Errorf("execution record requires a provider id")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("upsert execution record %s: %w", rec.ID, err)
	}
	if err := t.recomputeLocked(ctx, rec.ProviderID); err != nil {
		return err
	}
	log.Debug().Str("provider", rec.ProviderID).Str("record", rec.ID).
		Str("status", string(rec.Status)).Msg("execution record upserted")
	return nil
}

// AddSignalDataBatch upserts a batch and recomputes each affected provider
// once.
func (t *Tracker) AddSignalDataBatch(ctx context.Context, recs []domain.SignalExecutionData) error {
	if len(recs) == 0 {
		return nil
	}
	providers := make(map[string]struct{})
	for i := range recs {
		if recs[i].ProviderID == "" {
			return fmt.Errorf("execution record %d requires a provider id", i)
		}
		if recs[i].ID == "" {
			recs[i].ID = uuid.NewString()
		}
		providers[recs[i].ProviderID] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.UpsertBatch(ctx, recs); err != nil {
		return fmt.Errorf("upsert execution batch: %w", err)
	}
	for providerID := range providers {
		if err := t.recomputeLocked(ctx, providerID); err != nil {
			return err
		}
	}
	return nil
}

// SuccessStats returns the provider's statistics, recomputing lazily when
// the cached copy has expired.
func (t *Tracker) SuccessStats(ctx context.Context, providerID string) (*ProviderSuccessStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cached, ok := t.cache[providerID]; ok && time.Since(cached.computedAt) < t.cacheTTL {
		return cached.stats, nil
	}
	if err := t.recomputeLocked(ctx, providerID); err != nil {
		return nil, err
	}
	return t.cache[providerID].stats, nil
}

// AllProviderStats returns statistics for every provider in the store.
func (t *Tracker) AllProviderStats(ctx context.Context) (map[string]*ProviderSuccessStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	providers, err := t.store.ProviderIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	out := make(map[string]*ProviderSuccessStats, len(providers))
	for _, providerID := range providers {
		if cached, ok := t.cache[providerID]; ok && time.Since(cached.computedAt) < t.cacheTTL {
			out[providerID] = cached.stats
			continue
		}
		if err := t.recomputeLocked(ctx, providerID); err != nil {
			return nil, err
		}
		out[providerID] = t.cache[providerID].stats
	}
	return out, nil
}

// ProviderRecords exposes the raw record set for one provider, in
// execution-time order. The trust engine scores from this stream.
func (t *Tracker) ProviderRecords(ctx context.Context, providerID string) ([]domain.SignalExecutionData, error) {
	return t.store.ListByProvider(ctx, providerID)
}

// ProviderIDs lists every provider with at least one record.
func (t *Tracker) ProviderIDs(ctx context.Context) ([]string, error) {
	return t.store.ProviderIDs(ctx)
}

// TotalSignals returns the store-wide record count.
func (t *Tracker) TotalSignals(ctx context.Context) (int, error) {
	return t.store.Count(ctx)
}

// Reset deletes a provider's records, or every record when providerID is
// empty. Explicit reset is the only legal delete.
func (t *Tracker) Reset(ctx context.Context, providerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Reset(ctx, providerID); err != nil {
		return fmt.Errorf("reset %q: %w", providerID, err)
	}
	if providerID == "" {
		t.cache = make(map[string]cachedStats)
	} else {
		delete(t.cache, providerID)
	}
	log.Info().Str("provider", providerID).Msg("tracker reset")
	return nil
}

func (t *Tracker) recomputeLocked(ctx context.Context, providerID string) error {
	recs, err := t.store.ListByProvider(ctx, providerID)
	if err != nil {
		return fmt.Errorf("list records for %s: %w", providerID, err)
	}
	t.cache[providerID] = cachedStats{
		stats:      computeStats(providerID, recs),
		computedAt: time.Now(),
	}
	return nil
}
