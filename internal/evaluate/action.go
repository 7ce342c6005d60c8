package evaluate

import (
	"github.com/structedge/payoff-engine/internal/compile"
	"github.com/structedge/payoff-engine/internal/marketdata"
)

// ActionResult is one executed action component: its name and the numeric
// value it contributes to the payout.
type ActionResult struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Detail Detail  `json:"detail"`
}

// Actions runs every component of an action sequence through the registry in
// order. Missing or malformed values contribute zero; execution never fails.
// Summation into a payout happens at the summary level, not here.
func (e *Evaluator) Actions(chain compile.Chain, mc *marketdata.MarketContext) []ActionResult {
	if len(chain) == 0 {
		return nil
	}
	results := make([]ActionResult, 0, len(chain))
	for _, comp := range chain {
		detail := e.registry.Evaluate(comp, mc)
		name := detail.ActionName
		if name == "" {
			name = detail.Label
		}
		results = append(results, ActionResult{
			Name:   name,
			Value:  detail.Value,
			Detail: detail,
		})
	}
	return results
}
