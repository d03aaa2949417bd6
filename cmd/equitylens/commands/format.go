package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wonny/equitylens/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	doubleSeparator = "═══════════════════════════════════════════════════════════"
	separator       = "───────────────────────────────────────────────────────────"
)

// formatScore renders an optional score with two decimals
func formatScore(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

// PrintAnalysis prints a human readable summary of one analysis
func PrintAnalysis(w io.Writer, result *contracts.AnalysisResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleSeparator)
	fmt.Fprintf(w, "  %s\n", result.Symbol)
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "  Overall     : %s\n", formatScore(result.Combined.OverallScore))
	fmt.Fprintf(w, "  Fundamental : %s\n", formatScore(result.Combined.FundamentalScore))
	fmt.Fprintf(w, "  Technical   : %s\n", formatScore(result.Combined.TechnicalScore))
	fmt.Fprintf(w, "  Bias        : %s (%s confidence)\n", result.Combined.Bias, result.Combined.Confidence)

	if f := result.Fundamental; f != nil {
		fmt.Fprintln(w, separator)
		fmt.Fprintln(w, "  Fundamentals")
		for _, c := range f.CategoryScores.Ordered() {
			fmt.Fprintf(w, "    %-19s %s\n", c.Name, formatScore(c.Score))
		}
		fmt.Fprintf(w, "    %-19s %s\n", "risk", f.Risk.Level)
		if len(f.Risk.Flags) > 0 {
			fmt.Fprintf(w, "    %-19s %s\n", "risk flags", strings.Join(f.Risk.Flags, ", "))
		}
	}

	if t := result.Technical; t != nil {
		fmt.Fprintln(w, separator)
		fmt.Fprintln(w, "  Technicals")
		fmt.Fprintf(w, "    %-19s %s\n", "latest price", formatScore(t.LatestPrice))
		fmt.Fprintf(w, "    %-19s %s\n", "trend", t.TrendDirection)
		fmt.Fprintf(w, "    %-19s %s\n", "momentum", t.MomentumStrength)
		fmt.Fprintf(w, "    %-19s %s\n", "volatility", t.VolatilityLevel)
		fmt.Fprintf(w, "    %-19s %s / %s\n", "entry / exit", t.EntrySignal, t.ExitSignal)
		t.Indicators.Each(func(name string, r *contracts.IndicatorResult) {
			fmt.Fprintf(w, "    %-19s %-6s %s\n", name, formatScore(r.Score), r.Signal)
		})
	}

	if n := result.Narrative; n != nil {
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "  Narrative   : %s", n.Status)
		if n.Reason != "" {
			fmt.Fprintf(w, " (%s)", n.Reason)
		}
		fmt.Fprintln(w)
		if n.Narrative != nil {
			fmt.Fprintf(w, "\n  %s\n", n.Narrative.ExecutiveSummary)
			fmt.Fprintf(w, "\n  Bull: %s\n", n.Narrative.BullCase)
			fmt.Fprintf(w, "  Bear: %s\n", n.Narrative.BearCase)
			fmt.Fprintf(w, "  Risk: %s\n", n.Narrative.RiskAssessment)
		}
	}

	fmt.Fprintln(w, doubleSeparator)
}

// PrintCompletion prints the elapsed time of a command
func PrintCompletion(w io.Writer, d time.Duration) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "✅ Completed in %.2fs\n", d.Seconds())
}
