package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"scope-quote/decision/estimation"
	"scope-quote/internal/config"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"scopequote"}, args...))
	return out.String(), err
}

func TestEstimateJSON(t *testing.T) {
	dir := t.TempDir()
	elements := filepath.Join(dir, "elements.json")
	require.NoError(t, os.WriteFile(elements, []byte(`[
		{"id":"d1","type":"door","location":"ground floor","quantity":6,"unit":"item","confidence":90}
	]`), 0o600))

	out, err := runApp(t, "--log-level", "error", "estimate",
		"--text", "Supply and install 6 solid core doors to ground floor",
		"--elements", elements,
		"--location", "Sydney",
		"--format", "json",
	)
	require.NoError(t, err)

	var res estimation.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.NotEmpty(t, res.RequestID)
	require.NotEmpty(t, res.QuoteItems)
	assert.Equal(t, len(res.QuoteItems), res.Summary.Total())
	assert.NotEmpty(t, res.AuditTrail.Actions)
	assert.NotEmpty(t, res.NextSteps)
}

func TestEstimateRequiresScope(t *testing.T) {
	_, err := runApp(t, "--log-level", "error", "estimate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scope text is required")

	_, err = runApp(t, "--log-level", "error", "estimate", "--text", "x", "--scope", "y.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestEstimateFailOnStop(t *testing.T) {
	_, err := runApp(t, "--log-level", "error", "estimate", "--text", "   ", "--fail-on-stop", "--format", "markdown")
	require.Error(t, err)

	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, exitStop, exit.ExitCode())
}

func TestOutputFormats(t *testing.T) {
	res := &estimation.Result{
		RequestID:         "req-1",
		ShouldProceed:     false,
		ProceedReasons:    []string{"4 high-priority questions are unanswered"},
		EstimatedDuration: "20 minutes",
		QuoteItems: []estimation.QuoteItem{
			{ID: "quote-item-1", Description: "Install skirting | architrave", Quantity: 42.5, Unit: "m", RequiresReview: true},
		},
		NextSteps: []string{"Resolve open questions before pricing"},
	}

	var table bytes.Buffer
	require.NoError(t, outputTable(&table, res))
	assert.Contains(t, table.String(), "❌ STOP")
	assert.Contains(t, table.String(), "1. Resolve open questions before pricing")

	var md bytes.Buffer
	require.NoError(t, outputMarkdown(&md, res))
	assert.Contains(t, md.String(), `Install skirting \| architrave`)
	assert.Contains(t, md.String(), "| **Should Proceed** | false |")
}

func TestShowConfigMasksSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.ClickHouse.Password = "hunter2"
	cfg.Postgres.DSN = "postgres://quote:s3cret@db:5432/q?sslmode=disable"

	var buf bytes.Buffer
	require.NoError(t, showConfig(&buf, cfg))

	out := buf.String()
	assert.False(t, strings.Contains(out, "hunter2"))
	assert.False(t, strings.Contains(out, "s3cret"))
	assert.Contains(t, out, "postgres://quote:****@db:5432/q?sslmode=disable")
	assert.Equal(t, "hunter2", cfg.ClickHouse.Password, "original config untouched")

	cfg.Postgres.DSN = "host=db user=quote password=s3cret dbname=quotes"
	buf.Reset()
	require.NoError(t, showConfig(&buf, cfg))
	assert.NotContains(t, buf.String(), "s3cret")
	assert.Contains(t, buf.String(), "password=****")
}

func TestMaskDSN(t *testing.T) {
	tests := map[string]string{
		"postgres://quote:s3cret@db:5432/q?sslmode=disable":               "postgres://quote:****@db:5432/q?sslmode=disable",
		"postgres://quote@db:5432/q?password=s3cret&sslmode=disable":      "postgres://quote@db:5432/q?password=****&sslmode=disable",
		"host=db user=quote password=s3cret dbname=quotes":                "host=db user=quote password=**** dbname=quotes",
		"host=db password = 's3 cr\\'et' dbname=quotes":                   "host=db password = **** dbname=quotes",
		"host=db user=quote dbname=quotes sslmode=disable":                "host=db user=quote dbname=quotes sslmode=disable",
		"postgres://scopequote@localhost:5432/scopequote?sslmode=disable": "postgres://scopequote@localhost:5432/scopequote?sslmode=disable",
	}
	for in, want := range tests {
		assert.Equal(t, want, maskDSN(in), in)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "m²m²m²m...", truncate("m²m²m²m²m²m²", 10))
}
