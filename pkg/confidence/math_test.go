package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndicatorFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Indicator
	}{
		{100, IndicatorHigh},
		{90, IndicatorHigh},
		{89.99, IndicatorMedium},
		{70, IndicatorMedium},
		{69.5, IndicatorLow},
		{1, IndicatorLow},
		{0.1, IndicatorLow},
		{0, IndicatorUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IndicatorFor(tt.score), "score %.2f", tt.score)
	}
}

func TestNew_ClampsAndCopies(t *testing.T) {
	reasons := []string{"explicit quantity"}
	l := New(140, reasons, nil)
	reasons[0] = "mutated"

	assert.Equal(t, 100.0, l.Score)
	assert.Equal(t, IndicatorHigh, l.Indicator)
	assert.Equal(t, []string{"explicit quantity"}, l.Reasons)
	assert.Nil(t, l.Uncertainties)

	neg := New(-5, nil, []string{"quantity"})
	assert.Equal(t, 0.0, neg.Score)
	assert.Equal(t, IndicatorUnknown, neg.Indicator)
	assert.True(t, neg.HasUncertainty("quantity"))
	assert.False(t, neg.HasUncertainty("location"))
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 50.0, Mean([]float64{40, 60}))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 31.63, Round(31.625001, 2))
	assert.Equal(t, 2.0, Round(1.996, 2))
}
