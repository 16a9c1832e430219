package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/signalward/signalward/internal/config"
)

var (
	configPath string
	logLevel   string
	jsonLogs   bool
)

var rootCmd = &cobra.Command{
	Use:   "signalward",
	Short: "Trading-signal admission and provider-trust engine",
	Long: `signalward decides whether parsed trading signals may proceed to
execution and scores signal providers from their execution history.

Signals pass through four independent evaluators (risk:reward, account
margin, time windows, keyword blacklist); a signal is admitted only when
every enabled evaluator passes, and a blocked signal reports every
failing reason.`,
	PersistentPreRunE: setupLogging,
	SilenceUsage:      true,
}

func init() {
	// accept underscores in flag names, matching the YAML key style
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to signalward YAML config (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit structured JSON logs instead of console output")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	if !jsonLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	level := logLevel
	if level == "" {
		if cfg, err := loadConfig(); err == nil {
			level = cfg.LogLevel
		} else {
			level = "info"
		}
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}

// loadConfig reads the configured file, or returns defaults when no path
// was given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
