package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want Unit
		ok   bool
	}{
		{"sqm", UnitSquareMetre, true},
		{" M2 ", UnitSquareMetre, true},
		{"square   metres", UnitSquareMetre, true},
		{"lm", UnitMetre, true},
		{"Linear Meters", UnitMetre, true},
		{"m3", UnitCubicMetre, true},
		{"pcs", UnitEach, true},
		{"lot", UnitItem, true},
		{"", "", false},
		{"furlongs", "", false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindLinear, KindArea, KindVolume, KindCount} {
		assert.Equal(t, k, KindOf(ForKind(k)))
	}
	assert.Equal(t, UnitItem, ForKind(KindAssembly))
	assert.Equal(t, KindAssembly, KindOf(UnitSet))
	assert.Equal(t, KindUnknown, KindOf("bags"))
	assert.True(t, IsDiscrete(KindCount))
	assert.False(t, IsDiscrete(KindArea))
	assert.Equal(t, 0.019, MillimetresToMetres(19))
}
