package product

import (
	"strconv"
	"strings"
)

// ComponentType is the declared type of a payoff component. The set is
// closed at compile time; unknown declared types are retained verbatim and
// dispatched through the evaluator registry's default arm.
type ComponentType string

const (
	TypeIf            ComponentType = "if"
	TypeUnderlying    ComponentType = "underlying"
	TypeComparison    ComponentType = "comparison"
	TypeAction        ComponentType = "action"
	TypeLogicOperator ComponentType = "logic_operator"
	TypeBarrier       ComponentType = "barrier"
	TypeObservation   ComponentType = "observation"
)

// ParseComponentType normalizes a declared type string. Unknown values are
// preserved (lower-cased) so the registry fallback can still dispatch them.
func ParseComponentType(s string) ComponentType {
	return ComponentType(strings.ToLower(strings.TrimSpace(s)))
}

// Known reports whether the type is one of the built-in component types.
func (t ComponentType) Known() bool {
	switch t {
	case TypeIf, TypeUnderlying, TypeComparison, TypeAction,
		TypeLogicOperator, TypeBarrier, TypeObservation:
		return true
	}
	return false
}

// Column is the grid column a component is authored in. The column decides
// which part of a rule the component contributes to.
type Column string

const (
	ColumnTiming       Column = "timing"
	ColumnCondition    Column = "condition"
	ColumnAction       Column = "action"
	ColumnContinuation Column = "continuation"
)

// ParseColumn normalizes a column string. Unknown columns are preserved and
// later discarded by the compiler.
func ParseColumn(s string) Column {
	return Column(strings.ToLower(strings.TrimSpace(s)))
}

// Known reports whether the column is one of the four recognized columns.
func (c Column) Known() bool {
	switch c {
	case ColumnTiming, ColumnCondition, ColumnAction, ColumnContinuation:
		return true
	}
	return false
}

// PayoffComponent is one declarative unit of a payoff structure: a typed,
// position-addressed cell in the product's rule grid. Components are authored
// once with the product and never mutated during evaluation.
type PayoffComponent struct {
	ID           string        `yaml:"id" json:"id"`
	Type         ComponentType `yaml:"type" json:"type"`
	Label        string        `yaml:"label" json:"label"`
	Value        string        `yaml:"value,omitempty" json:"value,omitempty"`
	DefaultValue string        `yaml:"default_value,omitempty" json:"default_value,omitempty"`
	Section      string        `yaml:"section" json:"section"`
	RowIndex     int           `yaml:"row_index" json:"row_index"`
	Column       Column        `yaml:"column" json:"column"`
	SortOrder    int           `yaml:"sort_order,omitempty" json:"sort_order,omitempty"`
}

// EffectiveValue returns Value, falling back to DefaultValue when Value is
// empty.
func (c PayoffComponent) EffectiveValue() string {
	if c.Value != "" {
		return c.Value
	}
	return c.DefaultValue
}

// NumericValue parses the effective value as a float. Malformed or missing
// values report ok=false; callers treat that as zero rather than an error.
func (c PayoffComponent) NumericValue() (float64, bool) {
	raw := strings.TrimSpace(c.EffectiveValue())
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
