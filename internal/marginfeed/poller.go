// Package marginfeed polls the external broker bridge for account margin
// snapshots and hands the latest one to the admission pipeline. The bridge
// is a flaky external dependency: polls run behind a circuit breaker and a
// rate limiter, and failures degrade to a disconnected snapshot instead of
// an error the pipeline would have to handle.
package marginfeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/signalward/signalward/internal/domain"
)

// Provider fetches one margin snapshot from the broker bridge.
type Provider interface {
	FetchMarginStatus(ctx context.Context) (*domain.MarginStatus, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (*domain.MarginStatus, error)

func (f ProviderFunc) FetchMarginStatus(ctx context.Context) (*domain.MarginStatus, error) {
	return f(ctx)
}

const (
	minPollInterval = 10 * time.Second
	maxPollInterval = 300 * time.Second
)

// Config tunes the poll loop.
type Config struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

func DefaultConfig() *Config {
	return &Config{PollInterval: 30 * time.Second}
}

// clampInterval keeps the poll cadence inside the broker bridge's supported
// 10-300s range.
func clampInterval(d time.Duration) time.Duration {
	if d < minPollInterval {
		return minPollInterval
	}
	if d > maxPollInterval {
		return maxPollInterval
	}
	return d
}

// Poller keeps the latest margin snapshot available to the pipeline.
type Poller struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	interval time.Duration

	mu     sync.RWMutex
	latest domain.MarginStatus
}

func NewPoller(provider Provider, cfg *Config) *Poller {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	interval := clampInterval(cfg.PollInterval)

	settings := gobreaker.Settings{Name: "margin-bridge"}
	settings.Interval = 60 * time.Second
	settings.Timeout = 60 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
			Msg("margin bridge breaker state change")
	}

	return &Poller{
		provider: provider,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		limiter:  rate.NewLimiter(rate.Every(minPollInterval), 1),
		interval: interval,
		latest:   domain.MarginStatus{IsConnected: false},
	}
}

// Run polls until the context is cancelled. Call in its own goroutine.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Latest returns the most recent snapshot. Before the first successful
// poll, and after bridge failures, the snapshot reports disconnected so
// the margin evaluator blocks fail-safe.
func (p *Poller) Latest() domain.MarginStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

func (p *Poller) poll(ctx context.Context) {
	if err := p.limiter.Wait(ctx); err != nil {
		return
	}
	status, err := p.fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("margin poll failed, snapshot degraded to disconnected")
		p.setLatest(domain.MarginStatus{IsConnected: false, Timestamp: time.Now()})
		return
	}
	p.setLatest(*status)
	log.Debug().Float64("margin_level", status.MarginLevel).
		Float64("free_margin", status.FreeMargin).Msg("margin snapshot updated")
}

func (p *Poller) fetch(ctx context.Context) (*domain.MarginStatus, error) {
	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.provider.FetchMarginStatus(ctx)
	})
	if err != nil {
		return nil, err
	}
	status, ok := out.(*domain.MarginStatus)
	if !ok || status == nil {
		return nil, fmt.Errorf("margin bridge returned empty snapshot")
	}
	return status, nil
}

func (p *Poller) setLatest(status domain.MarginStatus) {
	p.mu.Lock()
	p.latest = status
	p.mu.Unlock()
}
