package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Arithmetic(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		payload  map[string]any
		expected float64
	}{
		{"addition", "1 + 2", nil, 3},
		{"precedence", "2 + 3 * 4", nil, 14},
		{"parentheses", "(2 + 3) * 4", nil, 20},
		{"unary minus", "-5 + 10", nil, 5},
		{"division", "10 / 4", nil, 2.5},
		{"field reference", "qty * unit_price", map[string]any{"qty": 3.0, "unit_price": 9.5}, 28.5},
		{"nested", "(base + bonus) * rate", map[string]any{"base": 100.0, "bonus": 20.0, "rate": 0.1}, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.src)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, expr.Eval(tt.payload), 1e-9)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, src := range []string{"", "1 +", "* 2", "(1 + 2", "1 2", "a + @b"} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			assert.Error(t, err)
		})
	}
}

func TestEval_MissingAndNonNumericReferences(t *testing.T) {
	expr, err := Parse("amount * 2")
	require.NoError(t, err)

	// Unresolved references evaluate as zero rather than failing.
	assert.InDelta(t, 0.0, expr.Eval(map[string]any{}), 1e-9)
	assert.InDelta(t, 0.0, expr.Eval(map[string]any{"amount": "not a number"}), 1e-9)
}

func TestEval_DivisionByZero(t *testing.T) {
	expr, err := Parse("total / count")
	require.NoError(t, err)

	assert.InDelta(t, 0.0, expr.Eval(map[string]any{"total": 10.0, "count": 0.0}), 1e-9)
}

func TestEval_IntegerPayloadValues(t *testing.T) {
	expr, err := Parse("a + b")
	require.NoError(t, err)

	// JSON decoding yields float64, but callers also hand in Go ints.
	assert.InDelta(t, 7.0, expr.Eval(map[string]any{"a": 3, "b": 4}), 1e-9)
}

func TestRefs(t *testing.T) {
	expr, err := Parse("qty * unit_price + qty")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"qty", "unit_price"}, expr.Refs())
}
