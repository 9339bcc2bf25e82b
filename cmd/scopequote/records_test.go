package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scope-quote/db/clickhouse"
	"scope-quote/db/postgres"
)

func TestTrailIDFor(t *testing.T) {
	assert.Equal(t, "audit-req-1", trailIDFor("req-1"))
	assert.Equal(t, "audit-req-1", trailIDFor(" audit-req-1 "))
	assert.Equal(t, "", trailIDFor("  "))
}

func TestRecordCommandsRequireStores(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"audit show without id", []string{"audit", "show"}, "trail id is required"},
		{"audit show without store", []string{"audit", "show", "req-1"}, errAuditDisabled.Error()},
		{"audit stats without store", []string{"audit", "stats", "--since", "2h"}, errAuditDisabled.Error()},
		{"audit stats bad window", []string{"audit", "stats", "--since", "0s"}, "--since must be positive"},
		{"quotes list without store", []string{"quotes", "list"}, errQuotesDisabled.Error()},
		{"quotes list bad limit", []string{"quotes", "list", "--limit", "500"}, "--limit must be between 1 and 100"},
		{"quotes show without id", []string{"quotes", "show"}, "quote id is required"},
		{"quotes show without store", []string{"quotes", "show", "q-1"}, errQuotesDisabled.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, append([]string{"--log-level", "error"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOutputTrail(t *testing.T) {
	actions := []clickhouse.AuditAction{
		{Seq: 1, Step: "scope_analysis", Action: "Extracted 2 scope item(s)", Reasoning: "2 line items matched"},
		{Seq: 2, Step: "quantity_calculation", Action: "Measured", ScopeItemID: "item-1", RiskAssessment: "low"},
	}

	var buf bytes.Buffer
	require.NoError(t, outputTrail(&buf, "audit-req-1", actions))
	out := buf.String()
	assert.Contains(t, out, "Audit trail audit-req-1 (2 decisions)")
	assert.Contains(t, out, "2 line items matched")
	assert.Contains(t, out, "Measured [item-1]")
	assert.Contains(t, out, "risk: low")
}

func TestOutputStats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputStats(&buf, 2*time.Hour, &clickhouse.RunStats{Runs: 4, Proceeded: 3, Degraded: 1, AvgConfidence: 77.3}))
	assert.Contains(t, buf.String(), "Runs in the last 2h0m0s")
	assert.Contains(t, buf.String(), "Proceeded:       3 (75.0%)")
	assert.Contains(t, buf.String(), "Avg confidence:  77.3%")

	buf.Reset()
	require.NoError(t, outputStats(&buf, time.Hour, &clickhouse.RunStats{}))
	assert.Contains(t, buf.String(), "Proceeded:       0 (0.0%)")
}

func TestOutputQuoteList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputQuoteList(&buf, nil))
	assert.Equal(t, "No draft quotes\n", buf.String())

	buf.Reset()
	created := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, outputQuoteList(&buf, []postgres.QuoteSummary{
		{ID: "q-1", ProjectName: "Kitchen refit", ItemCount: 7, OverallConfidence: 82.5, CreatedAt: created},
	}))
	assert.Contains(t, buf.String(), "Kitchen refit")
	assert.Contains(t, buf.String(), "82.5%")
	assert.Contains(t, buf.String(), "2026-03-02T09:30:00Z")
}
