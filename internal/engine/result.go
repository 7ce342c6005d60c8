package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/structedge/payoff-engine/internal/compile"
	"github.com/structedge/payoff-engine/internal/evaluate"
	"github.com/structedge/payoff-engine/internal/marketdata"
)

// TraceKind classifies the events of an evaluation trace.
type TraceKind string

const (
	TraceSectionStart   TraceKind = "section_start"
	TraceCondition      TraceKind = "condition"
	TraceVerdict        TraceKind = "verdict"
	TraceAction         TraceKind = "action"
	TracePayoutSubtotal TraceKind = "payout_subtotal"
	TraceSummary        TraceKind = "summary"
)

// TraceEvent is one step of the human-auditable evaluation trace. Events are
// strictly ordered by Seq and carry no timestamps, so identical inputs
// produce identical traces.
type TraceEvent struct {
	Seq      int       `json:"seq"`
	Kind     TraceKind `json:"kind"`
	Section  string    `json:"section,omitempty"`
	RowIndex int       `json:"row_index"`
	Message  string    `json:"message"`
	Value    float64   `json:"value,omitempty"`
}

// trace accumulates events during one evaluation pass.
type trace struct {
	events []TraceEvent
	seq    int
}

func (t *trace) add(kind TraceKind, section string, rowIndex int, message string, value float64) {
	t.events = append(t.events, TraceEvent{
		Seq:      t.seq,
		Kind:     kind,
		Section:  section,
		RowIndex: rowIndex,
		Message:  message,
		Value:    value,
	})
	t.seq++
}

// RuleResult is the outcome of one compiled rule.
type RuleResult struct {
	RowIndex     int                       `json:"row_index"`
	Kind         compile.RuleKind          `json:"kind"`
	ConditionMet bool                      `json:"condition_met"`
	Condition    *evaluate.ConditionResult `json:"condition,omitempty"`
	Actions      []evaluate.ActionResult   `json:"actions,omitempty"`
}

// Summary aggregates an evaluation: headline performance of the first
// underlying and the total payout from the maturity section.
type Summary struct {
	UnderlyingSymbol           string  `json:"underlying_symbol,omitempty"`
	UnderlyingPerformance      float64 `json:"underlying_performance"`
	UnderlyingPerformanceRatio float64 `json:"underlying_performance_ratio"`
	TotalPayout                float64 `json:"total_payout"`
	Currency                   string  `json:"currency"`
}

// EvaluationResult is the engine's complete output for one product and
// evaluation date. It is handed to downstream collaborators (report
// assembly, chart rendering) untouched and never mutated afterwards.
type EvaluationResult struct {
	EvaluationID  uuid.UUID                 `json:"evaluation_id"`
	EvaluatedAt   time.Time                 `json:"evaluated_at"`
	ProductID     string                    `json:"product_id"`
	MarketContext *marketdata.MarketContext `json:"market_context"`
	SectionOrder  []string                  `json:"section_order"`
	Results       map[string][]RuleResult   `json:"results"`
	Summary       Summary                   `json:"summary"`
	Trace         []TraceEvent              `json:"trace"`
	Tree          *compile.LogicTree        `json:"logic_tree"`
}
