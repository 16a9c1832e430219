package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalward/signalward/internal/domain"
	"github.com/signalward/signalward/internal/filters"
	"github.com/signalward/signalward/internal/marginfeed"
)

var (
	admitSignalPath string
	admitFormat     string
)

var admitCmd = &cobra.Command{
	Use:   "admit",
	Short: "Evaluate one signal against the admission pipeline",
	Long: `Evaluate a parsed signal (JSON) against the configured admission
pipeline and print the verdict.

Example usage:
  signalward admit --signal signal.json
  cat signal.json | signalward admit --signal -
  signalward admit --signal signal.json --format json`,
	RunE: runAdmit,
}

func init() {
	rootCmd.AddCommand(admitCmd)
	admitCmd.Flags().StringVar(&admitSignalPath, "signal", "-", "path to signal JSON, or - for stdin")
	admitCmd.Flags().StringVar(&admitFormat, "format", "text", "output format: text, json")
}

func runAdmit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var data []byte
	if admitSignalPath == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(admitSignalPath)
	}
	if err != nil {
		return fmt.Errorf("read signal: %w", err)
	}

	var sig domain.Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return fmt.Errorf("parse signal: %w", err)
	}
	if sig.Symbol == "" {
		return fmt.Errorf("signal has no symbol")
	}

	margin := fetchMargin(cmd.Context(), cfg.MarginFeed.Provider())
	pipeline := filters.NewPipeline(&cfg.Filters, nil)
	verdict := pipeline.Evaluate(&sig, &margin, time.Now().UTC())

	if admitFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(verdict)
	}

	fmt.Println(verdict.Summary())
	for name, res := range verdict.Results {
		marker := "pass"
		if !res.Passes {
			marker = "FAIL"
		}
		fmt.Printf("  [%s] %-18s %s (confidence %.0f)\n", marker, name, res.Reason, res.Confidence)
	}
	if !verdict.Allow {
		os.Exit(1)
	}
	return nil
}

// fetchMargin does a one-shot snapshot read. Without a configured feed the
// snapshot is disconnected, which blocks the margin evaluator fail-safe.
func fetchMargin(ctx context.Context, provider marginfeed.Provider) domain.MarginStatus {
	if provider == nil {
		return domain.MarginStatus{IsConnected: false}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	status, err := provider.FetchMarginStatus(ctx)
	if err != nil || status == nil {
		return domain.MarginStatus{IsConnected: false, Timestamp: time.Now()}
	}
	return *status
}
