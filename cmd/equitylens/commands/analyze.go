package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wonny/equitylens/internal/contracts"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Analyze one stock",
	Long: `Runs the fundamental and technical engines for one symbol and prints
the combined verdict.

Without selection flags every fundamental metric and every technical
indicator is computed. Upstream responses are cached, so repeated runs
within the cache TTL do not spend API quota.

Example:
  go run ./cmd/equitylens analyze AAPL
  go run ./cmd/equitylens analyze AAPL --fundamentals roe,pe_ratio --technicals rsi
  go run ./cmd/equitylens analyze AAPL --no-fundamentals --json
  go run ./cmd/equitylens analyze AAPL --narrative`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeFundamentals   []string
	analyzeTechnicals     []string
	analyzeNoFundamentals bool
	analyzeNoTechnicals   bool
	analyzeJSON           bool
	analyzeNarrative      bool
	analyzeNarrativeWait  time.Duration
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringSliceVar(&analyzeFundamentals, "fundamentals", nil, "fundamental metrics to compute (default: all)")
	analyzeCmd.Flags().StringSliceVar(&analyzeTechnicals, "technicals", nil, "technical indicators to compute (default: all)")
	analyzeCmd.Flags().BoolVar(&analyzeNoFundamentals, "no-fundamentals", false, "skip the fundamental analysis")
	analyzeCmd.Flags().BoolVar(&analyzeNoTechnicals, "no-technicals", false, "skip the technical analysis")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeNarrative, "narrative", false, "request a written narrative and wait for it")
	analyzeCmd.Flags().DurationVar(&analyzeNarrativeWait, "narrative-wait", 2*time.Minute, "how long to wait for the narrative")
}

// selectionFromFlags maps CLI flags onto a selection: nil means all,
// an empty slice means none.
func selectionFromFlags(values []string, changed, none bool) []string {
	if none {
		return []string{}
	}
	if !changed {
		return nil
	}
	if values == nil {
		return []string{}
	}
	return values
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	req := contracts.AnalysisRequest{
		Symbol:       args[0],
		Fundamentals: selectionFromFlags(analyzeFundamentals, cmd.Flags().Changed("fundamentals"), analyzeNoFundamentals),
		Technicals:   selectionFromFlags(analyzeTechnicals, cmd.Flags().Changed("technicals"), analyzeNoTechnicals),
	}

	startTime := time.Now()
	result, err := a.orchestrator.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", args[0], err)
	}

	if analyzeNarrative {
		result.Narrative = a.narrate(ctx, req, result)
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	PrintAnalysis(os.Stdout, result)
	PrintCompletion(os.Stdout, time.Since(startTime))
	return nil
}

// narrate stores the analysis as a record, requests its narrative and
// waits until the worker reports an outcome.
func (a *app) narrate(ctx context.Context, req contracts.AnalysisRequest, result *contracts.AnalysisResult) *contracts.NarrativeOutcome {
	pending := contracts.NarrativePending
	rec := &contracts.AnalysisRecord{
		ID:                   uuid.NewString(),
		Symbol:               result.Symbol,
		SelectedFundamentals: req.Fundamentals,
		SelectedTechnicals:   req.Technicals,
		Fundamental:          result.Fundamental,
		Technical:            result.Technical,
		Combined:             result.Combined,
		NarrativeStatus:      &pending,
	}
	if err := a.records.Create(ctx, rec); err != nil {
		a.log.WithError(err).Warn("Failed to store analysis record")
		return a.orchestrator.RequestNarrative(ctx, result, "")
	}

	outcome := a.orchestrator.RequestNarrative(ctx, result, rec.ID)
	if outcome.Status != contracts.NarrativeQueued {
		return outcome
	}

	fmt.Fprintln(os.Stderr, "Waiting for narrative...")
	return waitForNarrative(ctx, a.records, rec.ID, analyzeNarrativeWait, time.Second)
}

// waitForNarrative polls a record until its narrative leaves the pending state
func waitForNarrative(ctx context.Context, records recordStore, id string, timeout, poll time.Duration) *contracts.NarrativeOutcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		rec, err := records.GetByID(ctx, id)
		if err == nil && rec.NarrativeStatus != nil && *rec.NarrativeStatus != contracts.NarrativePending {
			return &contracts.NarrativeOutcome{Status: *rec.NarrativeStatus, Narrative: rec.Narrative}
		}

		select {
		case <-ctx.Done():
			return &contracts.NarrativeOutcome{Status: contracts.NarrativeQueued, Reason: "timed out waiting"}
		case <-ticker.C:
		}
	}
}
