package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/structedge/payoff-engine/internal/config"
	"github.com/structedge/payoff-engine/internal/engine"
	"github.com/structedge/payoff-engine/internal/marketdata"
	"github.com/structedge/payoff-engine/internal/product"
)

func newEvaluateCmd() *cobra.Command {
	var (
		productPath string
		pricesPath  string
		dateStr     string
		configPath  string
		parallel    bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a product at a date against a CSV price history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(productPath, pricesPath, dateStr, configPath, parallel)
		},
	}

	cmd.Flags().StringVar(&productPath, "product", "", "product definition YAML file")
	cmd.Flags().StringVar(&pricesPath, "prices", "", "price history CSV file (symbol,date,close)")
	cmd.Flags().StringVar(&dateStr, "date", time.Now().Format("2006-01-02"), "evaluation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&configPath, "config", "", "engine config YAML file (optional)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "fetch underlying price series concurrently")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("prices")

	return cmd
}

func runEvaluate(productPath, pricesPath, dateStr, configPath string, parallel bool) error {
	p, err := product.Load(productPath)
	if err != nil {
		return err
	}

	evalDate, err := product.ParseDate(dateStr)
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if configPath != "" {
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	cfg.ParallelFetch = cfg.ParallelFetch || parallel

	source, err := loadPricesCSV(pricesPath)
	if err != nil {
		return err
	}

	// The engine carries no internal deadline; the CLI is the caller that
	// would wrap one if needed.
	eng := engine.New(cfg, source, engine.Options{})
	result, err := eng.Evaluate(context.Background(), p, evalDate)
	if err != nil {
		return err
	}

	render(result)
	return nil
}

// loadPricesCSV reads a symbol,date,close file into a memory source. A
// header row is skipped when detected; malformed rows are dropped with a
// warning.
func loadPricesCSV(path string) (*marketdata.MemorySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prices file: %w", err)
	}
	defer f.Close()

	source := marketdata.NewMemorySource()
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 3

	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read prices file line %d: %w", line, err)
		}

		date, dateErr := time.Parse("2006-01-02", record[1])
		closePx, closeErr := strconv.ParseFloat(record[2], 64)
		if dateErr != nil || closeErr != nil {
			if line == 1 {
				continue // header row
			}
			log.Warn().Int("line", line).Msg("skipping malformed price row")
			continue
		}
		source.Add(record[0], marketdata.Observation{Date: date, Close: closePx})
	}
	return source, nil
}

func render(result *engine.EvaluationResult) {
	fmt.Printf("Evaluation %s, product %s at %s\n",
		result.EvaluationID, result.ProductID, result.MarketContext.EvaluationDate.Format("2006-01-02"))
	fmt.Printf("Matured: %t | Pricing date: %s\n",
		result.MarketContext.HasMatured, result.MarketContext.PricingDate.Format("2006-01-02"))

	for _, section := range result.SectionOrder {
		fmt.Printf("\nSection %q\n", section)
		for _, rr := range result.Results[section] {
			fmt.Printf("  row %d [%s] condition met: %t\n", rr.RowIndex, rr.Kind, rr.ConditionMet)
			if rr.Condition != nil {
				fmt.Printf("    %s\n", rr.Condition.Comparison)
			}
			for _, action := range rr.Actions {
				fmt.Printf("    -> %s: %.2f\n", action.Name, action.Value)
			}
		}
	}

	fmt.Printf("\nSummary: %s performance ratio %.2f | total payout %.2f %s\n",
		result.Summary.UnderlyingSymbol, result.Summary.UnderlyingPerformanceRatio,
		result.Summary.TotalPayout, result.Summary.Currency)

	fmt.Println("\nTrace:")
	for _, ev := range result.Trace {
		fmt.Printf("  %3d %-16s %s\n", ev.Seq, ev.Kind, ev.Message)
	}
}
