// Package redisstore provides a Redis-backed execution-data store for the
// tracker, for deployments where signal history must survive restarts and
// be shared across instances.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/signalward/signalward/internal/domain"
)

const (
	recordKeyPrefix   = "signalward:exec:"
	providerKeyPrefix = "signalward:provider:"
	providersKey      = "signalward:providers"
)

// Store implements tracker.Store on Redis. Records are JSON values keyed by
// record ID, with a per-provider index set and a global provider set.
type Store struct {
	client redis.Cmdable
}

func New(client redis.Cmdable) *Store {
	return &Store{client: client}
}

func recordKey(id string) string           { return recordKeyPrefix + id }
func providerKey(providerID string) string { return providerKeyPrefix + providerID }

func (s *Store) Upsert(ctx context.Context, rec domain.SignalExecutionData) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal execution record %s: %w", rec.ID, err)
	}
	if err := s.client.Set(ctx, recordKey(rec.ID), payload, 0).Err(); err != nil {
		return fmt.Errorf("set execution record %s: %w", rec.ID, err)
	}
	if err := s.client.SAdd(ctx, providerKey(rec.ProviderID), rec.ID).Err(); err != nil {
		return fmt.Errorf("index record %s for provider %s: %w", rec.ID, rec.ProviderID, err)
	}
	if err := s.client.SAdd(ctx, providersKey, rec.ProviderID).Err(); err != nil {
		return fmt.Errorf("register provider %s: %w", rec.ProviderID, err)
	}
	return nil
}

func (s *Store) UpsertBatch(ctx context.Context, recs []domain.SignalExecutionData) error {
	for _, rec := range recs {
		if err := s.Upsert(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListByProvider(ctx context.Context, providerID string) ([]domain.SignalExecutionData, error) {
	ids, err := s.client.SMembers(ctx, providerKey(providerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list record ids for %s: %w", providerID, err)
	}
	out := make([]domain.SignalExecutionData, 0, len(ids))
	for _, id := range ids {
		payload, err := s.client.Get(ctx, recordKey(id)).Bytes()
		if err == redis.Nil {
			continue // index ahead of a removed record
		}
		if err != nil {
			return nil, fmt.Errorf("get execution record %s: %w", id, err)
		}
		var rec domain.SignalExecutionData
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal execution record %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) ProviderIDs(ctx context.Context) ([]string, error) {
	providers, err := s.client.SMembers(ctx, providersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return providers, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	providers, err := s.ProviderIDs(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, providerID := range providers {
		n, err := s.client.SCard(ctx, providerKey(providerID)).Result()
		if err != nil {
			return 0, fmt.Errorf("count records for %s: %w", providerID, err)
		}
		total += int(n)
	}
	return total, nil
}

func (s *Store) Reset(ctx context.Context, providerID string) error {
	if providerID == "" {
		providers, err := s.ProviderIDs(ctx)
		if err != nil {
			return err
		}
		for _, p := range providers {
			if err := s.resetProvider(ctx, p); err != nil {
				return err
			}
		}
		return s.client.Del(ctx, providersKey).Err()
	}
	if err := s.resetProvider(ctx, providerID); err != nil {
		return err
	}
	return s.client.SRem(ctx, providersKey, providerID).Err()
}

func (s *Store) resetProvider(ctx context.Context, providerID string) error {
	ids, err := s.client.SMembers(ctx, providerKey(providerID)).Result()
	if err != nil {
		return fmt.Errorf("list record ids for %s: %w", providerID, err)
	}
	for _, id := range ids {
		if err := s.client.Del(ctx, recordKey(id)).Err(); err != nil {
			return fmt.Errorf("delete execution record %s: %w", id, err)
		}
	}
	return s.client.Del(ctx, providerKey(providerID)).Err()
}
