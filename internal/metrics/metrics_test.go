package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveRun(OutcomeProceed, 88, 20*time.Millisecond)
	c.ObserveRun(OutcomeStop, 40, 10*time.Millisecond)
	c.ItemFailed("")
	c.ItemFailed("INVALID_QUANTITY")
	c.QuestionsAdded("high", 4)
	c.QuestionsAdded("low", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Estimations.WithLabelValues(OutcomeProceed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ItemFailures.WithLabelValues("unknown")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.QuestionsGenerated.WithLabelValues("high")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestNilCollectors(t *testing.T) {
	var c *Collectors
	assert.NotPanics(t, func() {
		c.ObserveRun(OutcomeDegraded, 0, time.Second)
		c.ItemFailed("X")
		c.QuestionsAdded("high", 1)
	})
}
