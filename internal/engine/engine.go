// Package engine drives the evaluation of a compiled payoff structure
// against a market context and assembles the result and audit trace.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/structedge/payoff-engine/internal/compile"
	"github.com/structedge/payoff-engine/internal/config"
	"github.com/structedge/payoff-engine/internal/evaluate"
	"github.com/structedge/payoff-engine/internal/marketdata"
	"github.com/structedge/payoff-engine/internal/metrics"
	"github.com/structedge/payoff-engine/internal/product"
)

// Engine is the evaluation orchestrator. It is immutable after construction
// and safe for concurrent evaluations: every call builds its own tree,
// context, and result.
type Engine struct {
	cfg       config.Config
	evaluator *evaluate.Evaluator
	builder   *marketdata.Builder
	metrics   *metrics.Registry
	notifier  product.StatusNotifier
}

// Options carries the engine's optional collaborators.
type Options struct {
	Metrics  *metrics.Registry
	Notifier product.StatusNotifier
}

// New creates an engine over a price-history source.
func New(cfg config.Config, source marketdata.PriceHistory, opts Options) *Engine {
	return &Engine{
		cfg:       cfg,
		evaluator: evaluate.New(cfg),
		builder: marketdata.NewBuilder(source, marketdata.BuilderConfig{
			Parallel:  cfg.ParallelFetch,
			RateLimit: cfg.FetchRateLimit,
		}),
		metrics:  opts.Metrics,
		notifier: opts.Notifier,
	}
}

// Evaluate runs one product evaluation: compile the payoff structure, build
// the market context, walk every section and rule in order, and aggregate
// the summary. The only error it returns is missing market data; every other
// anomaly degrades into a documented default inside the result.
func (e *Engine) Evaluate(ctx context.Context, p *product.Product, evalDate product.Date) (*EvaluationResult, error) {
	start := time.Now()

	tree := compile.Compile(p.PayoffStructure)

	mc, err := e.builder.Build(ctx, p, evalDate)
	if err != nil {
		var missing *marketdata.MissingMarketDataError
		if errors.As(err, &missing) {
			e.metrics.IncMissingData(missing.Symbol)
		}
		e.metrics.ObserveEvaluation(metrics.OutcomeMissingData, time.Since(start).Seconds())
		return nil, fmt.Errorf("build market context for product %s: %w", p.ID, err)
	}

	result := &EvaluationResult{
		EvaluationID:  uuid.New(),
		EvaluatedAt:   start,
		ProductID:     p.ID,
		MarketContext: mc,
		SectionOrder:  tree.Sections,
		Results:       make(map[string][]RuleResult, len(tree.Sections)),
		Tree:          tree,
	}

	tr := &trace{}
	for _, section := range tree.Sections {
		tr.add(TraceSectionStart, section, -1, fmt.Sprintf("section %q: %d rule(s)", section, len(tree.Rules[section])), 0)
		for _, rule := range tree.Rules[section] {
			result.Results[section] = append(result.Results[section], e.evaluateRule(section, rule, mc, tr))
		}
	}

	result.Summary = e.summarize(result, mc, tr)
	result.Trace = tr.events

	e.notifyMatured(ctx, p, mc)

	e.metrics.ObserveRules(tree.RuleCount())
	e.metrics.ObservePayout(result.Summary.TotalPayout)
	e.metrics.ObserveEvaluation(metrics.OutcomeOK, time.Since(start).Seconds())

	log.Info().
		Str("product", p.ID).
		Str("evaluation", result.EvaluationID.String()).
		Str("date", evalDate.String()).
		Float64("payout", result.Summary.TotalPayout).
		Bool("matured", mc.HasMatured).
		Msg("evaluation complete")
	return result, nil
}

// evaluateRule resolves one rule. Standalone actions always run; conditional
// rules run their actions only on a met condition.
func (e *Engine) evaluateRule(section string, rule compile.Rule, mc *marketdata.MarketContext, tr *trace) RuleResult {
	rr := RuleResult{RowIndex: rule.RowIndex, Kind: rule.Kind}

	switch rule.Kind {
	case compile.RuleConditional:
		cond := e.evaluator.Condition(rule.Condition, mc)
		rr.Condition = &cond
		rr.ConditionMet = cond.Met
		tr.add(TraceCondition, section, rule.RowIndex, cond.Comparison, cond.CurrentValue)
		tr.add(TraceVerdict, section, rule.RowIndex, verdictMessage(cond.Met), 0)
	case compile.RuleStandaloneAction:
		rr.ConditionMet = true
		tr.add(TraceVerdict, section, rule.RowIndex, "standalone action, always runs", 0)
	}

	if rr.ConditionMet && len(rule.Action) > 0 {
		rr.Actions = e.evaluator.Actions(rule.Action, mc)
		subtotal := 0.0
		for _, action := range rr.Actions {
			subtotal += action.Value
			tr.add(TraceAction, section, rule.RowIndex,
				fmt.Sprintf("action %q => %.2f", action.Name, action.Value), action.Value)
		}
		tr.add(TracePayoutSubtotal, section, rule.RowIndex,
			fmt.Sprintf("row subtotal %.2f", subtotal), subtotal)
	}
	return rr
}

// summarize computes the headline figures: the first underlying's
// performance and the total payout, summed over triggered action-type
// components of the maturity section.
func (e *Engine) summarize(result *EvaluationResult, mc *marketdata.MarketContext, tr *trace) Summary {
	summary := Summary{Currency: mc.Currency}
	if snap, ok := mc.FirstUnderlying(); ok {
		summary.UnderlyingSymbol = snap.Symbol
		summary.UnderlyingPerformance = snap.Performance
		summary.UnderlyingPerformanceRatio = snap.PerformanceRatio
	}

	for _, rr := range result.Results[e.cfg.MaturitySection] {
		if !rr.ConditionMet {
			continue
		}
		for _, action := range rr.Actions {
			if action.Detail.Type == product.TypeAction {
				summary.TotalPayout += action.Value
			}
		}
	}

	tr.add(TraceSummary, e.cfg.MaturitySection, -1,
		fmt.Sprintf("total payout %.2f %s", summary.TotalPayout, summary.Currency), summary.TotalPayout)
	return summary
}

// notifyMatured fires a status-transition request when the evaluation
// observed maturity for a product not yet stored as matured. The request is
// fire-and-forget: failures are logged, never propagated.
func (e *Engine) notifyMatured(ctx context.Context, p *product.Product, mc *marketdata.MarketContext) {
	if e.notifier == nil || !mc.HasMatured || p.Status == product.StatusMatured {
		return
	}
	if err := e.notifier.NotifyStatusChange(ctx, p.ID, product.StatusMatured); err != nil {
		log.Warn().Str("product", p.ID).Err(err).Msg("matured status notification failed")
	}
}

func verdictMessage(met bool) string {
	if met {
		return "condition met"
	}
	return "condition not met"
}
