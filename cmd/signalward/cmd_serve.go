package main

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/signalward/signalward/internal/domain"
	"github.com/signalward/signalward/internal/filters"
	httpapi "github.com/signalward/signalward/internal/interfaces/http"
	"github.com/signalward/signalward/internal/marginfeed"
	"github.com/signalward/signalward/internal/metrics"
	"github.com/signalward/signalward/internal/tracker"
	"github.com/signalward/signalward/internal/trust"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admission and trust HTTP service",
	Long: `Run the HTTP service: signal admission, execution-record ingest,
provider statistics, trust ranking, health, and Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// disconnectedMargin stands in when no margin feed is configured: the
// margin evaluator then blocks fail-safe unless disabled in config.
type disconnectedMargin struct{}

func (disconnectedMargin) Latest() domain.MarginStatus {
	return domain.MarginStatus{IsConnected: false}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var marginSource httpapi.MarginSource = disconnectedMargin{}
	if provider := cfg.MarginFeed.Provider(); provider != nil {
		poller := marginfeed.NewPoller(provider, cfg.MarginFeed.Component())
		go poller.Run(ctx)
		marginSource = poller
	}

	server := httpapi.NewServer(
		httpapi.Config{
			ListenAddr:   cfg.Server.ListenAddr,
			ReadTimeout:  cfg.Server.ReadTimeout.Std(),
			WriteTimeout: cfg.Server.WriteTimeout.Std(),
		},
		filters.NewPipeline(&cfg.Filters, nil),
		tracker.New(store, cfg.Tracker.Component()),
		trust.NewEngine(&cfg.Trust),
		marginSource,
		metrics.NewCollector(),
	)

	log.Info().Str("backend", cfg.Storage.Backend).
		Str("margin_feed", cfg.MarginFeed.Source).Msg("signalward starting")
	return server.Run(ctx)
}
