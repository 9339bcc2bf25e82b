package clickhouse

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scope-quote/decision/estimation"
)

func TestRecords(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	res := &estimation.Result{
		RequestID:     "req-1",
		QuoteItems:    make([]estimation.QuoteItem, 3),
		Summary:       estimation.ConfidenceSummary{Overall: 72.5, High: 1, Medium: 1, NeedsReview: 1},
		ShouldProceed: true,
		AuditTrail: estimation.AuditTrail{
			ID:        "audit-req-1",
			RequestID: "req-1",
			CreatedAt: at,
			Actions: []estimation.Decision{
				{ID: "audit-req-1-1", Step: estimation.StepScopeAnalysis, Action: "Extracted 3 scope item(s)", Timestamp: at},
				{ID: "audit-req-1-2", Step: estimation.StepQuantityCalculation, ScopeItemID: "item-2",
					Alternatives: []string{"Measure on site"}, Timestamp: at},
			},
			Assumptions: []string{"Tiles: No drawing data available for this item"},
		},
	}

	run, actions, err := Records(res)
	require.NoError(t, err)

	assert.Equal(t, "audit-req-1", run.ID)
	assert.Equal(t, "req-1", run.RequestID)
	assert.Equal(t, uint32(3), run.ItemCount)
	assert.Equal(t, uint32(1), run.NeedsReviewCount)
	assert.Equal(t, 72.5, run.OverallConfidence)
	assert.True(t, run.ShouldProceed)

	var trail estimation.AuditTrail
	require.NoError(t, json.Unmarshal([]byte(run.Payload), &trail))
	assert.Equal(t, res.AuditTrail.Assumptions, trail.Assumptions)

	require.Len(t, actions, 2)
	assert.Equal(t, uint32(1), actions[0].Seq)
	assert.Equal(t, uint32(2), actions[1].Seq)
	assert.Equal(t, "audit-req-1", actions[1].TrailID)
	assert.Equal(t, "item-2", actions[1].ScopeItemID)
	assert.NotNil(t, actions[0].Alternatives, "array columns reject nil")
	assert.NotNil(t, actions[0].ConfidenceFactors)
}

func TestSchemaCoversInsertColumns(t *testing.T) {
	require.Len(t, Schema, 2)
	for _, col := range []string{"trail_id", "seq", "confidence_factors", "scope_item_id"} {
		assert.True(t, strings.Contains(Schema[1], col+" "), "audit_actions missing %s", col)
	}
	for _, col := range []string{"needs_review_count", "overall_confidence", "payload"} {
		assert.True(t, strings.Contains(Schema[0], col+" "), "audit_runs missing %s", col)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "scopequote", cfg.Database)
}
