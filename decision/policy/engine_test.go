package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateDefaults(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e := NewEngine(WithClock(func() time.Time { return fixed }))

	tests := []struct {
		name     string
		facts    Facts
		decision Decision
		ids      []string
	}{
		{
			name:     "empty",
			facts:    Facts{},
			decision: DecisionDeny,
			ids:      []string{"empty-estimate"},
		},
		{
			name:     "healthy",
			facts:    Facts{ItemCount: 2, OverallConfidence: 82, ItemConfidences: []float64{80, 84}},
			decision: DecisionPass,
		},
		{
			name:     "too many high questions",
			facts:    Facts{ItemCount: 1, HighPriorityQuestions: 4, OverallConfidence: 90, ItemConfidences: []float64{90}},
			decision: DecisionDeny,
			ids:      []string{"high-priority-questions"},
		},
		{
			name:     "exactly three high questions",
			facts:    Facts{ItemCount: 1, HighPriorityQuestions: 3, OverallConfidence: 90, ItemConfidences: []float64{90}},
			decision: DecisionPass,
		},
		{
			name:     "low confidence",
			facts:    Facts{ItemCount: 2, OverallConfidence: 65, ItemConfidences: []float64{60, 70}},
			decision: DecisionDeny,
			ids:      []string{"minimum-confidence"},
		},
		{
			name:     "low confidence share",
			facts:    Facts{ItemCount: 3, OverallConfidence: 70, ItemConfidences: []float64{90, 90, 30}},
			decision: DecisionDeny,
			ids:      []string{"low-confidence-share"},
		},
		{
			name:     "review warning",
			facts:    Facts{ItemCount: 4, OverallConfidence: 75, ItemConfidences: []float64{100, 100, 100, 0}, ReviewItems: 1},
			decision: DecisionWarn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Evaluate(EvaluationRequest{Facts: tt.facts})
			assert.Equal(t, tt.decision, res.Decision)
			assert.Equal(t, tt.decision != DecisionDeny, res.ShouldProceed())
			assert.Equal(t, fixed, res.EvaluatedAt)
			assert.Equal(t, 5, res.PoliciesRan)
			var ids []string
			for _, v := range res.Violations {
				ids = append(ids, v.PolicyID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestEvaluateCustomAndDisabled(t *testing.T) {
	e := NewEngine(WithThresholds(Thresholds{MaxHighPriorityQuestions: 0, MinConfidence: 50, LowConfidenceScore: 40, MaxLowConfidenceShare: 30}))

	custom := Policy{
		ID:       "max-items",
		Name:     "Item Limit",
		Type:     PolicyTypeCustom,
		Severity: SeverityWarning,
		Enabled:  true,
		Check: func(f Facts) string {
			if f.ItemCount > 2 {
				return "large scope"
			}
			return ""
		},
	}
	disabled := Policy{ID: "off", Type: PolicyTypeEmptyEstimate, Severity: SeverityError}

	res := e.Evaluate(EvaluationRequest{
		Facts:          Facts{ItemCount: 3, HighPriorityQuestions: 1, OverallConfidence: 60, ItemConfidences: []float64{60, 60, 60}},
		CustomPolicies: []Policy{custom, disabled},
	})

	assert.Equal(t, DecisionDeny, res.Decision)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "high-priority-questions", res.Violations[0].PolicyID)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "large scope", res.Warnings[0].Message)
	assert.Equal(t, 6, res.PoliciesRan)
	assert.Equal(t, []string{res.Violations[0].Message, "large scope"}, res.Reasons())
}

func TestAddPolicy(t *testing.T) {
	e := NewEngine()
	e.AddPolicy(Policy{ID: "always", Type: PolicyTypeCustom, Severity: SeverityError, Enabled: true,
		Check: func(Facts) string { return "blocked" }})

	res := e.Evaluate(EvaluationRequest{Facts: Facts{ItemCount: 1, OverallConfidence: 99, ItemConfidences: []float64{99}}})
	assert.False(t, res.ShouldProceed())
	assert.Len(t, e.Policies(), 6)
}
