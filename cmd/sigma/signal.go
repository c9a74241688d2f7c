package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/newthinker/sigma/internal/config"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/position"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	signalTimeframe string
	signalQuantity  float64
	signalAvgPrice  float64
	signalJSON      bool
	batchPortfolio  bool
)

var signalCmd = &cobra.Command{
	Use:   "signal SYMBOL",
	Short: "Generate a signal for one symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runSignal,
}

var batchCmd = &cobra.Command{
	Use:   "batch SYMBOL...",
	Short: "Generate signals for several symbols",
	Long:  "Generate signals concurrently. Symbols that fail or lack history are reported and skipped.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatch,
}

func init() {
	rootCmd.AddCommand(signalCmd)
	rootCmd.AddCommand(batchCmd)

	for _, c := range []*cobra.Command{signalCmd, batchCmd} {
		c.Flags().StringVarP(&signalTimeframe, "timeframe", "t", "", "bar timeframe (default from config)")
		c.Flags().BoolVar(&signalJSON, "json", false, "print results as JSON")
	}
	signalCmd.Flags().Float64Var(&signalQuantity, "quantity", 0, "quantity held")
	signalCmd.Flags().Float64Var(&signalAvgPrice, "avg-price", 0, "average price of the holding")
	batchCmd.Flags().BoolVar(&batchPortfolio, "portfolio", true, "position signals against the configured portfolio")
}

// withEngine handles common config, logger and engine setup and teardown.
func withEngine(fn func(comps *components, cfg *config.Config, log *zap.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	comps, err := buildComponents(cfg, log, nil)
	if err != nil {
		return err
	}
	defer comps.Close()

	return fn(comps, cfg, log)
}

func runSignal(cmd *cobra.Command, args []string) error {
	var pos *core.PositionContext
	if cmd.Flags().Changed("quantity") {
		pos = &core.PositionContext{
			HasPosition:  signalQuantity > 0,
			Quantity:     signalQuantity,
			AveragePrice: signalAvgPrice,
		}
	}

	return withEngine(func(comps *components, cfg *config.Config, log *zap.Logger) error {
		result, err := comps.engine.GenerateSignal(cmd.Context(), args[0], signalTimeframe, pos)
		if err != nil {
			return fmt.Errorf("generating signal: %w", err)
		}
		if result == nil {
			return fmt.Errorf("not enough history for %s", strings.ToUpper(args[0]))
		}

		if signalJSON {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		printSignal(cmd.OutOrStdout(), result)
		return nil
	})
}

func runBatch(cmd *cobra.Command, args []string) error {
	return withEngine(func(comps *components, cfg *config.Config, log *zap.Logger) error {
		var positions map[string]core.PositionContext
		if batchPortfolio && len(cfg.Portfolio) > 0 {
			var err error
			positions, err = position.NewBook(cfg.Portfolio...).Contexts()
			if err != nil {
				return fmt.Errorf("resolving portfolio: %w", err)
			}
		}

		timeframe := signalTimeframe
		if timeframe == "" {
			timeframe = comps.engine.DefaultTimeframe()
		}

		results := comps.engine.GenerateBatchSignals(cmd.Context(), args, timeframe, positions)

		if signalJSON {
			return writeJSON(cmd.OutOrStdout(), results)
		}
		printBatch(cmd.OutOrStdout(), args, results)
		return nil
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSignal(out io.Writer, r *core.SignalResult) {
	fmt.Fprintf(out, "%s %s  %s (confidence %d%%)\n", r.Symbol, r.Timeframe, r.Signal, r.Confidence)
	fmt.Fprintf(out, "Entry:       %.4f\n", r.EntryPrice)
	if r.StopLoss != nil {
		fmt.Fprintf(out, "Stop loss:   %.4f\n", *r.StopLoss)
	}
	if r.TakeProfit != nil {
		fmt.Fprintf(out, "Take profit: %.4f\n", *r.TakeProfit)
	}
	if r.RiskReward != nil {
		fmt.Fprintf(out, "Risk:reward: %.2f\n", *r.RiskReward)
	}
	s := r.FactorScores
	fmt.Fprintf(out, "Scores:      overall %.1f  technical %.1f  sentiment %.1f  volume %.1f  trend %.1f\n",
		s.Overall, s.Technical, s.Sentiment, s.Volume, s.Trend)
	c := r.Conditions
	fmt.Fprintf(out, "Market:      volatility %s  trend %s  momentum %s  volume %s\n",
		c.Volatility, c.Trend, c.Momentum, c.Volume)
	fmt.Fprintf(out, "Valid until: %s\n", r.ValidUntil.Format("2006-01-02 15:04 MST"))
	for _, line := range r.Reasoning {
		fmt.Fprintf(out, "  - %s\n", line)
	}
}

func printBatch(out io.Writer, requested []string, results map[string]core.SignalResult) {
	symbols := make([]string, 0, len(results))
	for s := range results {
		symbols = append(symbols, s)
	}
	slices.Sort(symbols)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tSIGNAL\tCONF\tENTRY\tSTOP\tTARGET\tSCORE\t")
	for _, s := range symbols {
		r := results[s]
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%s\t%s\t%.1f\t\n",
			s, r.Signal, r.Confidence, r.EntryPrice,
			formatLevel(r.StopLoss), formatLevel(r.TakeProfit), r.FactorScores.Overall)
	}
	w.Flush()

	var missing []string
	for _, s := range requested {
		s = strings.ToUpper(strings.TrimSpace(s))
		if _, ok := results[s]; !ok && s != "" && !slices.Contains(missing, s) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(out, "\nNo signal: %s\n", strings.Join(missing, ", "))
	}
}

func formatLevel(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
