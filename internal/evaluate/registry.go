// Package evaluate dispatches payoff components to their evaluators and
// resolves condition chains and action sequences against a market context.
package evaluate

import (
	"fmt"

	"github.com/structedge/payoff-engine/internal/config"
	"github.com/structedge/payoff-engine/internal/marketdata"
	"github.com/structedge/payoff-engine/internal/product"
)

// Detail is the outcome of evaluating a single component: which evaluator
// handled it and what it contributed. Details are kept verbatim in rule
// results and the trace for audit.
type Detail struct {
	ComponentID string                `json:"component_id"`
	Type        product.ComponentType `json:"type"`
	// Kind is the evaluator that produced the detail. It differs from Type
	// when the component fell through to the action fallback.
	Kind       product.ComponentType `json:"kind"`
	Label      string                `json:"label"`
	Value      float64               `json:"value"`
	HasValue   bool                  `json:"has_value"`
	Operator   string                `json:"operator,omitempty"`
	ActionName string                `json:"action_name,omitempty"`
	Note       string                `json:"note,omitempty"`
}

// Registry maps component types to evaluation functions. It is a plain
// immutable value constructed once at startup and passed explicitly; there is
// no ambient global registry.
type Registry struct {
	labels config.LabelTable
}

// NewRegistry creates the built-in evaluator registry with the given label
// semantics.
func NewRegistry(labels config.LabelTable) *Registry {
	return &Registry{labels: labels}
}

// Evaluate dispatches one component. The switch is exhaustive over the known
// types; every other type (barrier, observation, and anything a future
// authoring tool invents) takes the action-evaluator default arm, so dispatch
// never fails regardless of input.
func (r *Registry) Evaluate(comp product.PayoffComponent, mc *marketdata.MarketContext) Detail {
	switch comp.Type {
	case product.TypeIf:
		return r.evalIf(comp)
	case product.TypeUnderlying:
		return r.evalUnderlying(comp, mc)
	case product.TypeComparison:
		return r.evalComparison(comp)
	case product.TypeLogicOperator:
		return r.evalLogicOperator(comp)
	case product.TypeAction:
		return r.evalAction(comp)
	default:
		return r.evalAction(comp)
	}
}

// evalIf marks the opening of a condition chain. Always truthy, contributes
// nothing else.
func (r *Registry) evalIf(comp product.PayoffComponent) Detail {
	return Detail{
		ComponentID: comp.ID,
		Type:        comp.Type,
		Kind:        product.TypeIf,
		Label:       comp.Label,
		Note:        "condition marker",
	}
}

// evalUnderlying resolves the performance ratio of the product's first
// underlying. Multi-underlying chains still read the first underlying only;
// worst-of/best-of semantics are not applied here (known limitation).
func (r *Registry) evalUnderlying(comp product.PayoffComponent, mc *marketdata.MarketContext) Detail {
	detail := Detail{
		ComponentID: comp.ID,
		Type:        comp.Type,
		Kind:        product.TypeUnderlying,
		Label:       comp.Label,
	}
	snap, ok := mc.FirstUnderlying()
	if !ok {
		detail.Note = "no underlying snapshot available"
		return detail
	}
	detail.Value = snap.PerformanceRatio
	detail.HasValue = true
	detail.Note = fmt.Sprintf("%s performance ratio %.2f", snap.Symbol, snap.PerformanceRatio)
	return detail
}

// evalComparison emits the declared operator and the numeric threshold
// carried in the component value. Unrecognized operator labels leave the
// operator empty; the condition evaluator soft-fails on them.
func (r *Registry) evalComparison(comp product.PayoffComponent) Detail {
	detail := Detail{
		ComponentID: comp.ID,
		Type:        comp.Type,
		Kind:        product.TypeComparison,
		Label:       comp.Label,
	}
	if op, ok := r.labels.Operator(comp.Label); ok {
		detail.Operator = op
	} else {
		detail.Note = fmt.Sprintf("unrecognized comparison label %q", comp.Label)
	}
	if v, ok := comp.NumericValue(); ok {
		detail.Value = v
		detail.HasValue = true
	}
	return detail
}

// evalLogicOperator records a boolean connective. Connectives are carried
// through to the trace but not interpreted: condition chains currently have
// exactly one comparison path (known limitation).
func (r *Registry) evalLogicOperator(comp product.PayoffComponent) Detail {
	return Detail{
		ComponentID: comp.ID,
		Type:        comp.Type,
		Kind:        product.TypeLogicOperator,
		Label:       comp.Label,
		Note:        fmt.Sprintf("connective %q (uninterpreted)", comp.Label),
	}
}

// evalAction emits the action name and its numeric value. This is also the
// fallback arm: malformed or missing values resolve to zero, never an error.
func (r *Registry) evalAction(comp product.PayoffComponent) Detail {
	detail := Detail{
		ComponentID: comp.ID,
		Type:        comp.Type,
		Kind:        product.TypeAction,
		Label:       comp.Label,
		ActionName:  comp.Label,
	}
	if v, ok := comp.NumericValue(); ok {
		detail.Value = v
		detail.HasValue = true
	}
	return detail
}
