package evaluate

import (
	"fmt"

	"github.com/structedge/payoff-engine/internal/compile"
	"github.com/structedge/payoff-engine/internal/config"
	"github.com/structedge/payoff-engine/internal/marketdata"
	"github.com/structedge/payoff-engine/internal/product"
)

// Evaluator resolves condition chains and action sequences through the
// registry. One immutable instance serves every evaluation.
type Evaluator struct {
	registry         *Registry
	labels           config.LabelTable
	defaultThreshold float64
}

// New creates an evaluator from the engine configuration.
func New(cfg config.Config) *Evaluator {
	return &Evaluator{
		registry:         NewRegistry(cfg.Labels),
		labels:           cfg.Labels,
		defaultThreshold: cfg.DefaultThreshold,
	}
}

// Registry exposes the underlying component registry.
func (e *Evaluator) Registry() *Registry {
	return e.registry
}

// ConditionResult is the resolved verdict of a condition chain with its
// supporting detail.
type ConditionResult struct {
	Met             bool     `json:"met"`
	CurrentValue    float64  `json:"current_value"`
	HasCurrentValue bool     `json:"has_current_value"`
	Operator        string   `json:"operator,omitempty"`
	Threshold       float64  `json:"threshold"`
	HasThreshold    bool     `json:"has_threshold"`
	Details         []Detail `json:"details"`
	// Comparison is a human-readable audit line, e.g. "110.00 >= 70.00".
	Comparison string `json:"comparison"`
}

// Condition walks a condition chain in order, collecting details and
// tracking the three pieces a verdict needs: the current underlying value,
// the comparison operator, and the threshold. Any missing piece resolves the
// condition to false; nothing in here is an error.
func (e *Evaluator) Condition(chain compile.Chain, mc *marketdata.MarketContext) ConditionResult {
	result := ConditionResult{Details: make([]Detail, 0, len(chain))}

	for _, comp := range chain {
		detail := e.registry.Evaluate(comp, mc)
		result.Details = append(result.Details, detail)

		if detail.Kind == product.TypeUnderlying && detail.HasValue {
			result.CurrentValue = detail.Value
			result.HasCurrentValue = true
		}
		if comp.Type == product.TypeComparison {
			if op, ok := e.labels.Operator(comp.Label); ok {
				result.Operator = op
			}
		}
		// The threshold carrier is identified by its label on a
		// comparison or barrier component. An unparseable value falls
		// back to the default threshold rather than failing the chain.
		if (comp.Type == product.TypeComparison || comp.Type == product.TypeBarrier) &&
			e.labels.IsThresholdLabel(comp.Label) {
			if v, ok := comp.NumericValue(); ok {
				result.Threshold = v
			} else {
				result.Threshold = e.defaultThreshold
			}
			result.HasThreshold = true
		}
	}

	result.Met = e.verdict(&result)
	result.Comparison = e.comparisonSummary(&result)
	return result
}

func (e *Evaluator) verdict(r *ConditionResult) bool {
	if !r.HasCurrentValue || !r.HasThreshold {
		return false
	}
	switch r.Operator {
	case ">=":
		return r.CurrentValue >= r.Threshold
	default:
		return false
	}
}

func (e *Evaluator) comparisonSummary(r *ConditionResult) string {
	switch {
	case !r.HasCurrentValue:
		return "no underlying value resolved"
	case r.Operator == "":
		return "no recognized operator"
	case !r.HasThreshold:
		return "no threshold resolved"
	default:
		return fmt.Sprintf("%.2f %s %.2f => %t", r.CurrentValue, r.Operator, r.Threshold, r.Met)
	}
}
