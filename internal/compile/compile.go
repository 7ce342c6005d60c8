// Package compile turns a flat, position-addressed payoff structure into an
// ordered logic tree of rules ready for evaluation.
package compile

import (
	"sort"

	"github.com/structedge/payoff-engine/internal/product"
)

// RuleKind discriminates the two rule shapes a row can compile into.
type RuleKind string

const (
	// RuleConditional is a row with at least one condition-column
	// component: the action chain runs only when the condition resolves
	// true.
	RuleConditional RuleKind = "conditional"

	// RuleStandaloneAction is a row with action-column components and no
	// condition: the action chain always runs.
	RuleStandaloneAction RuleKind = "standalone_action"
)

// Chain is an ordered component sequence (a condition chain or action
// sequence), sorted ascending by SortOrder with original order preserved on
// ties.
type Chain []product.PayoffComponent

// Rule is one compiled row of a section.
type Rule struct {
	Kind         RuleKind
	RowIndex     int
	Condition    Chain
	Action       Chain
	Timing       Chain
	Continuation Chain
}

// LogicTree is the compiled payoff structure: sections in encounter order,
// each holding its rules in ascending row order.
type LogicTree struct {
	Sections []string
	Rules    map[string][]Rule
}

// SectionRules returns the compiled rules for a section, nil if the section
// does not exist.
func (t *LogicTree) SectionRules(section string) []Rule {
	if t == nil {
		return nil
	}
	return t.Rules[section]
}

// RuleCount returns the total number of compiled rules across all sections.
func (t *LogicTree) RuleCount() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, rules := range t.Rules {
		n += len(rules)
	}
	return n
}

// row buckets one (section, rowIndex) group by column.
type row struct {
	index        int
	timing       []product.PayoffComponent
	condition    []product.PayoffComponent
	action       []product.PayoffComponent
	continuation []product.PayoffComponent
}

// Compile groups the flat component list by (section, rowIndex), buckets each
// group by column, and emits the logic tree. Components with unrecognized
// columns are discarded (known limitation of the authoring format). A nil or
// empty component list yields an empty tree.
func Compile(components []product.PayoffComponent) *LogicTree {
	tree := &LogicTree{Rules: map[string][]Rule{}}
	if len(components) == 0 {
		return tree
	}

	rowsBySection := map[string]map[int]*row{}
	for _, comp := range components {
		rows, ok := rowsBySection[comp.Section]
		if !ok {
			rows = map[int]*row{}
			rowsBySection[comp.Section] = rows
			tree.Sections = append(tree.Sections, comp.Section)
		}
		r, ok := rows[comp.RowIndex]
		if !ok {
			r = &row{index: comp.RowIndex}
			rows[comp.RowIndex] = r
		}
		switch comp.Column {
		case product.ColumnTiming:
			r.timing = append(r.timing, comp)
		case product.ColumnCondition:
			r.condition = append(r.condition, comp)
		case product.ColumnAction:
			r.action = append(r.action, comp)
		case product.ColumnContinuation:
			r.continuation = append(r.continuation, comp)
		default:
			// Unknown column: dropped.
		}
	}

	for _, section := range tree.Sections {
		rows := rowsBySection[section]
		indices := make([]int, 0, len(rows))
		for idx := range rows {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		for _, idx := range indices {
			r := rows[idx]
			rule, ok := compileRow(r)
			if !ok {
				continue
			}
			tree.Rules[section] = append(tree.Rules[section], rule)
		}
	}
	return tree
}

// compileRow classifies a row: condition components make a conditional rule,
// action components alone make a standalone action, anything else compiles to
// nothing.
func compileRow(r *row) (Rule, bool) {
	switch {
	case len(r.condition) > 0:
		return Rule{
			Kind:         RuleConditional,
			RowIndex:     r.index,
			Condition:    sortChain(r.condition),
			Action:       sortChain(r.action),
			Timing:       sortChain(r.timing),
			Continuation: sortChain(r.continuation),
		}, true
	case len(r.action) > 0:
		return Rule{
			Kind:     RuleStandaloneAction,
			RowIndex: r.index,
			Action:   sortChain(r.action),
			Timing:   sortChain(r.timing),
		}, true
	default:
		return Rule{}, false
	}
}

// sortChain orders a chain by SortOrder, stable so equal keys keep their
// authored order.
func sortChain(components []product.PayoffComponent) Chain {
	if len(components) == 0 {
		return nil
	}
	chain := make(Chain, len(components))
	copy(chain, components)
	sort.SliceStable(chain, func(i, j int) bool {
		return chain[i].SortOrder < chain[j].SortOrder
	})
	return chain
}
