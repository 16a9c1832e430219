// Package config loads the signalward YAML configuration. Every section has
// a usable default, so a missing file or empty section degrades to the
// built-in profile rather than an error.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalward/signalward/internal/filters"
	"github.com/signalward/signalward/internal/marginfeed"
	"github.com/signalward/signalward/internal/tracker"
	"github.com/signalward/signalward/internal/trust"
)

// Duration parses human-readable YAML durations ("30s", "5m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// StorageConfig selects the tracker's backing store.
type StorageConfig struct {
	Backend  string         `yaml:"backend"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PostgresConfig struct {
	DSN          string   `yaml:"dsn"`
	QueryTimeout Duration `yaml:"query_timeout"`
}

// TrackerConfig mirrors tracker.Config with YAML-friendly durations.
type TrackerConfig struct {
	CacheTTL Duration `yaml:"cache_ttl"`
}

func (t TrackerConfig) Component() *tracker.Config {
	return &tracker.Config{CacheTTL: t.CacheTTL.Std()}
}

// MarginFeedConfig configures the broker-bridge margin poller.
type MarginFeedConfig struct {
	Source       string   `yaml:"source"` // "file" or "none"
	SnapshotPath string   `yaml:"snapshot_path"`
	StaleAfter   Duration `yaml:"stale_after"`
	PollInterval Duration `yaml:"poll_interval"`
}

func (m MarginFeedConfig) Component() *marginfeed.Config {
	return &marginfeed.Config{PollInterval: m.PollInterval.Std()}
}

// Provider builds the configured snapshot provider, or nil when no margin
// feed is configured.
func (m MarginFeedConfig) Provider() marginfeed.Provider {
	if m.Source != "file" {
		return nil
	}
	return marginfeed.NewFileProvider(m.SnapshotPath, m.StaleAfter.Std())
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	ListenAddr   string   `yaml:"listen_addr"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// Config is the root configuration.
type Config struct {
	Filters    filters.PipelineConfig `yaml:"filters"`
	Tracker    TrackerConfig          `yaml:"tracker"`
	Trust      trust.Config           `yaml:"trust"`
	MarginFeed MarginFeedConfig       `yaml:"margin_feed"`
	Storage    StorageConfig          `yaml:"storage"`
	Server     ServerConfig           `yaml:"server"`
	LogLevel   string                 `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		Filters: *filters.DefaultPipelineConfig(),
		Tracker: TrackerConfig{CacheTTL: Duration(5 * time.Minute)},
		Trust:   *trust.DefaultConfig(),
		MarginFeed: MarginFeedConfig{
			Source:       "none",
			StaleAfter:   Duration(2 * time.Minute),
			PollInterval: Duration(30 * time.Second),
		},
		Storage: StorageConfig{
			Backend:  BackendMemory,
			Redis:    RedisConfig{Addr: "localhost:6379"},
			Postgres: PostgresConfig{QueryTimeout: Duration(5 * time.Second)},
		},
		Server: ServerConfig{
			ListenAddr:   ":8093",
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(10 * time.Second),
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected so
// typos fail loudly instead of silently falling back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Filters.RiskReward.MinimumRatio < 0 {
		return fmt.Errorf("filters.risk_reward.minimum_ratio must be >= 0, got %.2f",
			c.Filters.RiskReward.MinimumRatio)
	}
	switch c.Filters.RiskReward.Method {
	case filters.RRSimple, filters.RRWeighted, filters.RRConservative:
	default:
		return fmt.Errorf("filters.risk_reward.method must be simple, weighted or conservative, got %q",
			c.Filters.RiskReward.Method)
	}
	switch c.Filters.Margin.FilterType {
	case filters.MarginPercentage, filters.MarginAbsolute:
	default:
		return fmt.Errorf("filters.margin.filter_type must be percentage or absolute, got %q",
			c.Filters.Margin.FilterType)
	}
	if c.Filters.Margin.EmergencyThreshold < 0 {
		return fmt.Errorf("filters.margin.emergency_threshold must be >= 0")
	}
	if c.Tracker.CacheTTL < 0 {
		return fmt.Errorf("tracker.cache_ttl must be >= 0")
	}
	if c.Trust.MinSampleSize < 1 {
		return fmt.Errorf("trust.min_sample_size must be >= 1, got %d", c.Trust.MinSampleSize)
	}
	switch c.MarginFeed.Source {
	case "none", "file":
	default:
		return fmt.Errorf("margin_feed.source must be none or file, got %q", c.MarginFeed.Source)
	}
	if c.MarginFeed.Source == "file" && c.MarginFeed.SnapshotPath == "" {
		return fmt.Errorf("margin_feed.snapshot_path is required when source is file")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend must be memory, redis or postgres, got %q", c.Storage.Backend)
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	return nil
}
