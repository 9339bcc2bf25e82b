package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scope-quote/decision/estimation"
	"scope-quote/decision/scope"
	"scope-quote/pkg/confidence"
	"scope-quote/pkg/units"
)

func TestItemArgs(t *testing.T) {
	item := estimation.QuoteItem{
		ID:          "quote-item-1",
		ScopeItemID: "item-1",
		Description: "Supply and install plywood",
		Category:    scope.CategorySupplyInstall,
		Quantity:    27.5,
		Unit:        units.UnitSquareMetre,
		UnitPrice:   decimal.RequireFromString("12.345"),
		TotalPrice:  decimal.Zero,
		Confidence:  confidence.New(82, nil, nil),
		Source:      &estimation.SourceReference{Type: estimation.SourceDrawing, Reference: "2 building element(s)"},
	}

	args := itemArgs("q-1", 0, item)

	require.Len(t, args, 15)
	assert.Equal(t, "quote-item-1", args[0])
	assert.Equal(t, "q-1", args[1])
	assert.Equal(t, 0, args[2])
	assert.Equal(t, "supply_install", args[5])
	assert.Equal(t, "m²", args[7])
	assert.True(t, decimal.RequireFromString("12.35").Equal(args[8].(decimal.Decimal)))
	assert.Equal(t, 82.0, args[10])
	assert.Equal(t, estimation.SourceDrawing, args[13])

	bare := itemArgs("q-1", 3, estimation.QuoteItem{ID: "x"})
	assert.Equal(t, "", bare[13])
	assert.Equal(t, "", bare[14])
}

func TestQuoteArgs(t *testing.T) {
	q := &estimation.GeneratedQuote{
		ID:          "q-1",
		RequestID:   "req-1",
		ProjectName: "Kitchen refit",
		Status:      estimation.QuoteStatusDraft,
		Financials:  estimation.Financials{Subtotal: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero, Currency: "AUD"},
		Summary:     estimation.ConfidenceSummary{Overall: 88, High: 2},
		CreatedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	args := quoteArgs(q)

	require.Len(t, args, 15)
	assert.Equal(t, "AUD", args[4])
	assert.Equal(t, 88.0, args[8])
	// nil reasons are written as an empty array
	arr, ok := args[13].(*pq.StringArray)
	require.True(t, ok)
	assert.NotNil(t, *arr)
	assert.Empty(t, *arr)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Contains(t, cfg.DSN, "sslmode=disable")
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetime)
}
