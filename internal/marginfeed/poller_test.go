package marginfeed

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalward/signalward/internal/domain"
)

func connectedStatus(level float64) *domain.MarginStatus {
	return &domain.MarginStatus{
		FreeMargin:  5000,
		MarginLevel: level,
		Equity:      10000,
		Balance:     10000,
		IsConnected: true,
		Timestamp:   time.Now(),
	}
}

func TestPoller_StartsDisconnected(t *testing.T) {
	p := NewPoller(ProviderFunc(func(ctx context.Context) (*domain.MarginStatus, error) {
		return connectedStatus(300), nil
	}), nil)

	assert.False(t, p.Latest().IsConnected)
}

func TestPoller_PollUpdatesSnapshot(t *testing.T) {
	p := NewPoller(ProviderFunc(func(ctx context.Context) (*domain.MarginStatus, error) {
		return connectedStatus(275), nil
	}), nil)

	p.poll(context.Background())

	latest := p.Latest()
	assert.True(t, latest.IsConnected)
	assert.Equal(t, 275.0, latest.MarginLevel)
	assert.Equal(t, 5000.0, latest.FreeMargin)
}

func TestPoller_FetchFailureDegradesToDisconnected(t *testing.T) {
	calls := 0
	p := NewPoller(ProviderFunc(func(ctx context.Context) (*domain.MarginStatus, error) {
		calls++
		if calls == 1 {
			return connectedStatus(300), nil
		}
		return nil, errors.New("bridge unreachable")
	}), nil)
	p.limiter.SetLimit(1e6) // no waiting in tests

	p.poll(context.Background())
	require.True(t, p.Latest().IsConnected)

	p.poll(context.Background())
	latest := p.Latest()
	assert.False(t, latest.IsConnected)
	assert.False(t, latest.Timestamp.IsZero())
}

func TestPoller_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	p := NewPoller(ProviderFunc(func(ctx context.Context) (*domain.MarginStatus, error) {
		calls++
		return nil, errors.New("bridge unreachable")
	}), nil)
	p.limiter.SetLimit(1e6)

	for i := 0; i < 5; i++ {
		p.poll(context.Background())
	}

	// breaker trips after 3 consecutive failures and stops calling through
	assert.Equal(t, 3, calls)
	assert.False(t, p.Latest().IsConnected)
}

func TestPoller_NilSnapshotTreatedAsFailure(t *testing.T) {
	p := NewPoller(ProviderFunc(func(ctx context.Context) (*domain.MarginStatus, error) {
		return nil, nil
	}), nil)
	p.limiter.SetLimit(1e6)

	p.poll(context.Background())
	assert.False(t, p.Latest().IsConnected)
}

func TestClampInterval(t *testing.T) {
	assert.Equal(t, minPollInterval, clampInterval(time.Second))
	assert.Equal(t, 45*time.Second, clampInterval(45*time.Second))
	assert.Equal(t, maxPollInterval, clampInterval(time.Hour))
}

func TestFileProvider_ReadsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "margin.json")
	snapshot := connectedStatus(420)
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	provider := NewFileProvider(path, 0)
	got, err := provider.FetchMarginStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, got.IsConnected)
	assert.Equal(t, 420.0, got.MarginLevel)
}

func TestFileProvider_StaleSnapshotIsDisconnected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "margin.json")
	snapshot := connectedStatus(420)
	snapshot.Timestamp = time.Now().Add(-10 * time.Minute)
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	provider := NewFileProvider(path, time.Minute)
	got, err := provider.FetchMarginStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, got.IsConnected)
}

func TestFileProvider_MissingFile(t *testing.T) {
	provider := NewFileProvider(filepath.Join(t.TempDir(), "nope.json"), 0)
	_, err := provider.FetchMarginStatus(context.Background())
	assert.Error(t, err)
}
