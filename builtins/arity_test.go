package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestDefinitionArity(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		exp  ArityRange
	}{
		{
			name: "no usages",
			def:  Definition{Name: "f"},
			exp:  ArityRange{0, 0},
		},
		{
			name: "single empty usage",
			def:  Definition{Name: "f", Usages: []UsageSignature{{}}},
			exp:  ArityRange{0, 0},
		},
		{
			name: "required and default",
			def: Definition{Name: "f", Usages: []UsageSignature{{Parameters: Parameters{
				{Name: "a"},
				{Name: "b", Default: strPtr("1")},
			}}}},
			exp: ArityRange{1, 2},
		},
		{
			name: "required variadic",
			def: Definition{Name: "f", Usages: []UsageSignature{{Parameters: Parameters{
				{Name: "a", IsVariadic: true},
			}}}},
			exp: ArityRange{1, Unbounded},
		},
		{
			name: "optional variadic",
			def: Definition{Name: "f", Usages: []UsageSignature{{Parameters: Parameters{
				{Name: "a"},
				{Name: "rest", Default: strPtr(""), IsVariadic: true},
			}}}},
			// an empty default still counts as required
			exp: ArityRange{2, Unbounded},
		},
		{
			name: "variadic stops the scan",
			def: Definition{Name: "f", Usages: []UsageSignature{{Parameters: Parameters{
				{Name: "a", IsVariadic: true},
				{Name: "b"},
				{Name: "c"},
			}}}},
			exp: ArityRange{1, Unbounded},
		},
		{
			name: "empty overload forces min zero",
			def: Definition{Name: "f", Usages: []UsageSignature{
				{},
				{Parameters: Parameters{{Name: "x"}}},
			}},
			exp: ArityRange{0, 1},
		},
		{
			name: "overload union",
			def: Definition{Name: "f", Usages: []UsageSignature{
				{Parameters: Parameters{{Name: "a"}, {Name: "b"}}},
				{Parameters: Parameters{{Name: "a"}, {Name: "b"}, {Name: "c", Default: strPtr("x")}, {Name: "d", Default: strPtr("y")}}},
			}},
			exp: ArityRange{2, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.def.Arity()
			assert.Equal(t, tt.exp, got)
			if !got.IsUnbounded() {
				assert.LessOrEqual(t, got.Min, got.Max)
			}
		})
	}
}

func TestArityRangeAccepts(t *testing.T) {
	bounded := ArityRange{Min: 1, Max: 3}
	assert.False(t, bounded.Accepts(0))
	assert.True(t, bounded.Accepts(1))
	assert.True(t, bounded.Accepts(3))
	assert.False(t, bounded.Accepts(4))
	assert.Equal(t, "1..3", bounded.String())

	open := ArityRange{Min: 2, Max: Unbounded}
	assert.True(t, open.Accepts(200))
	assert.False(t, open.Accepts(1))
	assert.Equal(t, "2..", open.String())

	assert.Equal(t, "0", ArityRange{}.String())
}
