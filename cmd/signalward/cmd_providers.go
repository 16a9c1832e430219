package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/signalward/signalward/internal/config"
	"github.com/signalward/signalward/internal/tracker"
	"github.com/signalward/signalward/internal/tracker/postgres"
	"github.com/signalward/signalward/internal/tracker/redisstore"
	"github.com/signalward/signalward/internal/trust"
)

var providersFormat string

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect signal provider history and trust scores",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers with recorded signals",
	RunE:  runProvidersList,
}

var providersStatsCmd = &cobra.Command{
	Use:   "stats <provider-id>",
	Short: "Show success statistics for one provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runProvidersStats,
}

var providersTrustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Rank all providers by trust score",
	Long: `Score every provider from its execution history and print the
ranking. Providers below the minimum sample size are excluded from the
ranking and reported separately.`,
	RunE: runProvidersTrust,
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.AddCommand(providersListCmd, providersStatsCmd, providersTrustCmd)
	providersCmd.PersistentFlags().StringVar(&providersFormat, "format", "table", "output format: table, json")
}

// buildStore opens the configured tracker backend. The returned closer is
// safe to call on every path.
func buildStore(ctx context.Context, cfg *config.Config) (tracker.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, func() {}, fmt.Errorf("ping redis %s: %w", cfg.Storage.Redis.Addr, err)
		}
		return redisstore.New(client), func() { client.Close() }, nil
	case config.BackendPostgres:
		store, err := postgres.Connect(ctx, cfg.Storage.Postgres.DSN, cfg.Storage.Postgres.QueryTimeout.Std())
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() { store.Close() }, nil
	default:
		return tracker.NewMemoryStore(), func() {}, nil
	}
}

func runProvidersList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closeStore, err := buildStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	providers, err := store.ProviderIDs(cmd.Context())
	if err != nil {
		return err
	}
	if providersFormat == "json" {
		return printJSON(providers)
	}
	for _, id := range providers {
		fmt.Println(id)
	}
	return nil
}

func runProvidersStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closeStore, err := buildStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	trk := tracker.New(store, cfg.Tracker.Component())
	stats, err := trk.SuccessStats(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if providersFormat == "json" {
		return printJSON(stats)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "provider\t%s\n", stats.ProviderID)
	fmt.Fprintf(w, "signals\t%d\n", stats.TotalSignals)
	fmt.Fprintf(w, "executed\t%d\n", stats.ExecutedCount)
	fmt.Fprintf(w, "win rate\t%.1f%%\n", stats.WinRate)
	fmt.Fprintf(w, "avg rr\t%.2f\n", stats.AverageRR)
	fmt.Fprintf(w, "total pnl\t%.2f\n", stats.TotalPnL)
	fmt.Fprintf(w, "max drawdown\t%.2f\n", stats.MaxDrawdown)
	fmt.Fprintf(w, "grade\t%s\n", stats.PerformanceGrade)
	return w.Flush()
}

func runProvidersTrust(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closeStore, err := buildStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	providers, err := store.ProviderIDs(cmd.Context())
	if err != nil {
		return err
	}
	engine := trust.NewEngine(&cfg.Trust)
	results := make([]*trust.Result, 0, len(providers))
	for _, providerID := range providers {
		recs, err := store.ListByProvider(cmd.Context(), providerID)
		if err != nil {
			return err
		}
		results = append(results, engine.Score(providerID, recs))
	}
	comparison := engine.Compare(results)

	if providersFormat == "json" {
		return printJSON(comparison)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "rank\tprovider\tscore\tgrade\ttier\tsamples")
	for i, res := range comparison.Ranked {
		fmt.Fprintf(w, "%d\t%s\t%.1f\t%s\t%s\t%d\n",
			i+1, res.ProviderID, res.TrustScore, res.Grade, res.Tier, res.SampleSize)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for _, rec := range comparison.Recommendations {
		fmt.Println("-", rec)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
