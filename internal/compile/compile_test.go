package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structedge/payoff-engine/internal/product"
)

func comp(id, section string, row int, col product.Column, typ product.ComponentType, sortOrder int) product.PayoffComponent {
	return product.PayoffComponent{
		ID:        id,
		Type:      typ,
		Section:   section,
		RowIndex:  row,
		Column:    col,
		SortOrder: sortOrder,
	}
}

func TestCompileEmptyInput(t *testing.T) {
	assert.Equal(t, 0, Compile(nil).RuleCount())
	assert.Equal(t, 0, Compile([]product.PayoffComponent{}).RuleCount())
}

func TestCompileRowClassification(t *testing.T) {
	components := []product.PayoffComponent{
		// row 0: condition + action -> conditional
		comp("a", "maturity", 0, product.ColumnCondition, product.TypeIf, 0),
		comp("b", "maturity", 0, product.ColumnAction, product.TypeAction, 0),
		// row 1: action only -> standalone
		comp("c", "maturity", 1, product.ColumnAction, product.TypeAction, 0),
		// row 2: timing only -> no rule
		comp("d", "maturity", 2, product.ColumnTiming, product.TypeObservation, 0),
	}

	tree := Compile(components)
	rules := tree.SectionRules("maturity")
	require.Len(t, rules, 2)

	assert.Equal(t, RuleConditional, rules[0].Kind)
	assert.Equal(t, 0, rules[0].RowIndex)
	assert.Len(t, rules[0].Condition, 1)
	assert.Len(t, rules[0].Action, 1)

	assert.Equal(t, RuleStandaloneAction, rules[1].Kind)
	assert.Equal(t, 1, rules[1].RowIndex)
}

func TestCompileRowOrdering(t *testing.T) {
	components := []product.PayoffComponent{
		comp("a", "maturity", 7, product.ColumnAction, product.TypeAction, 0),
		comp("b", "maturity", 2, product.ColumnAction, product.TypeAction, 0),
		comp("c", "maturity", 11, product.ColumnAction, product.TypeAction, 0),
	}

	rules := Compile(components).SectionRules("maturity")
	require.Len(t, rules, 3)
	assert.Equal(t, []int{2, 7, 11}, []int{rules[0].RowIndex, rules[1].RowIndex, rules[2].RowIndex})
}

func TestCompileSectionEncounterOrder(t *testing.T) {
	components := []product.PayoffComponent{
		comp("a", "observation", 0, product.ColumnAction, product.TypeAction, 0),
		comp("b", "maturity", 0, product.ColumnAction, product.TypeAction, 0),
		comp("c", "observation", 1, product.ColumnAction, product.TypeAction, 0),
	}

	tree := Compile(components)
	assert.Equal(t, []string{"observation", "maturity"}, tree.Sections)
}

func TestCompileChainSortStable(t *testing.T) {
	components := []product.PayoffComponent{
		comp("late", "maturity", 0, product.ColumnCondition, product.TypeComparison, 5),
		comp("first-tie", "maturity", 0, product.ColumnCondition, product.TypeIf, 1),
		comp("second-tie", "maturity", 0, product.ColumnCondition, product.TypeUnderlying, 1),
		comp("early", "maturity", 0, product.ColumnCondition, product.TypeIf, 0),
	}

	rules := Compile(components).SectionRules("maturity")
	require.Len(t, rules, 1)

	var ids []string
	for _, c := range rules[0].Condition {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"early", "first-tie", "second-tie", "late"}, ids,
		"sort_order ascending, authored order preserved on ties")
}

func TestCompileDiscardsUnknownColumns(t *testing.T) {
	components := []product.PayoffComponent{
		comp("a", "maturity", 0, product.Column("sidebar"), product.TypeAction, 0),
		comp("b", "maturity", 0, product.ColumnAction, product.TypeAction, 0),
	}

	rules := Compile(components).SectionRules("maturity")
	require.Len(t, rules, 1)
	require.Len(t, rules[0].Action, 1)
	assert.Equal(t, "b", rules[0].Action[0].ID)
}

func TestCompileTimingAndContinuationAttached(t *testing.T) {
	components := []product.PayoffComponent{
		comp("t", "maturity", 0, product.ColumnTiming, product.TypeObservation, 0),
		comp("c", "maturity", 0, product.ColumnCondition, product.TypeIf, 0),
		comp("k", "maturity", 0, product.ColumnContinuation, product.TypeLogicOperator, 0),
	}

	rules := Compile(components).SectionRules("maturity")
	require.Len(t, rules, 1)
	assert.Len(t, rules[0].Timing, 1)
	assert.Len(t, rules[0].Continuation, 1)
}
