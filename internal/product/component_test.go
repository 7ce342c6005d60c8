package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComponentType(t *testing.T) {
	assert.Equal(t, TypeUnderlying, ParseComponentType("UNDERLYING"))
	assert.Equal(t, TypeComparison, ParseComponentType("  Comparison "))
	assert.Equal(t, TypeLogicOperator, ParseComponentType("LOGIC_OPERATOR"))

	unknown := ParseComponentType("Knock-In")
	assert.Equal(t, ComponentType("knock-in"), unknown)
	assert.False(t, unknown.Known())
	assert.True(t, TypeBarrier.Known())
}

func TestParseColumn(t *testing.T) {
	assert.Equal(t, ColumnCondition, ParseColumn("CONDITION"))
	assert.True(t, ColumnTiming.Known())
	assert.False(t, ParseColumn("sidebar").Known())
}

func TestEffectiveValue(t *testing.T) {
	c := PayoffComponent{Value: "100", DefaultValue: "70"}
	assert.Equal(t, "100", c.EffectiveValue())

	c.Value = ""
	assert.Equal(t, "70", c.EffectiveValue())
}

func TestNumericValue(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		deflt  string
		want   float64
		wantOK bool
	}{
		{name: "plain number", value: "100", want: 100, wantOK: true},
		{name: "decimal", value: "70.5", want: 70.5, wantOK: true},
		{name: "padded", value: " 42 ", want: 42, wantOK: true},
		{name: "fallback to default", value: "", deflt: "70", want: 70, wantOK: true},
		{name: "empty", value: "", wantOK: false},
		{name: "malformed", value: "one hundred", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := PayoffComponent{Value: tt.value, DefaultValue: tt.deflt}
			got, ok := c.NumericValue()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateParsing(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", d.String())
	assert.True(t, d.SameDay(MustDate("2024-03-15").Time))
	assert.False(t, d.SameDay(MustDate("2024-03-16").Time))

	_, err = ParseDate("15/03/2024")
	assert.Error(t, err)
}
