package estimation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"scope-quote/decision/drawing"
	"scope-quote/decision/measurement"
	"scope-quote/decision/scope"
	"scope-quote/pkg/confidence"
	"scope-quote/pkg/units"
)

// auditTrail appends decisions in pipeline order.
type auditTrail struct {
	AuditTrail
	clock func() time.Time
	seen  map[string]bool
}

func (e *Engine) newAuditTrail(requestID string) *auditTrail {
	return &auditTrail{
		AuditTrail: AuditTrail{
			ID:          "audit-" + requestID,
			RequestID:   requestID,
			CreatedAt:   e.now(),
			Actions:     make([]Decision, 0),
			Assumptions: make([]string, 0),
		},
		clock: e.now,
		seen:  make(map[string]bool),
	}
}

func (t *auditTrail) record(d Decision) {
	d.ID = fmt.Sprintf("%s-%d", t.ID, len(t.Actions)+1)
	d.Timestamp = t.clock()
	t.Actions = append(t.Actions, d)
}

func (t *auditTrail) assume(a string) {
	if t.seen[a] {
		return
	}
	t.seen[a] = true
	t.Assumptions = append(t.Assumptions, a)
}

// riskFor maps a confidence score to a risk statement.
func riskFor(score float64) string {
	switch {
	case score >= 85:
		return "Low: quantities are well supported"
	case score >= 70:
		return "Medium: minor assumptions may shift quantities"
	case score >= 40:
		return "High: quantities rely on defaults and should be verified"
	default:
		return "Critical: manual review required before pricing"
	}
}

func (e *Engine) scopeDecision(a *scope.Analysis) Decision {
	factors := []string{
		fmt.Sprintf("completeness %.0f%%", a.Completeness),
		fmt.Sprintf("parser confidence %.0f%%", a.Confidence),
	}
	if len(a.Ambiguities) > 0 {
		factors = append(factors, fmt.Sprintf("%d ambiguity(ies) detected", len(a.Ambiguities)))
	}
	return Decision{
		Step:      StepScopeAnalysis,
		Action:    fmt.Sprintf("Extracted %d scope item(s)", len(a.Items)),
		Reasoning: "Scope text split into independent work sections and classified by keyword rules",
		Alternatives: []string{
			"Treat the whole scope as a single provisional item",
			"Ask the client to restructure the scope as a list",
		},
		ConfidenceFactors: factors,
		RiskAssessment:    riskFor(a.Confidence),
	}
}

func (e *Engine) drawingDecision(elements []drawing.BuildingElement) Decision {
	if len(elements) == 0 {
		return Decision{
			Step:           StepDrawingAnalysis,
			Action:         "No drawing elements supplied",
			Reasoning:      "Quantities rely on the scope text and default assumptions",
			Alternatives:   []string{"Supply drawings for element extraction", "Measure on site"},
			RiskAssessment: riskFor(40),
		}
	}
	scores := make([]float64, len(elements))
	for i, el := range elements {
		scores[i] = el.Confidence
	}
	mean := confidence.Mean(scores)
	return Decision{
		Step:              StepDrawingAnalysis,
		Action:            fmt.Sprintf("Using %d building element(s) from drawings", len(elements)),
		Reasoning:         drawing.Summary(elements),
		Alternatives:      []string{"Ignore drawing data and use stated quantities"},
		ConfidenceFactors: []string{fmt.Sprintf("mean element confidence %.0f%%", mean)},
		RiskAssessment:    riskFor(mean),
	}
}

func (e *Engine) calculationDecision(item QuoteItem, res *measurement.Result) Decision {
	reasoning := res.Method
	if len(res.Assumptions) > 0 {
		reasoning += "; assumed " + strings.Join(res.Assumptions, "; ")
	}
	return Decision{
		Step:   StepQuantityCalculation,
		Action: fmt.Sprintf("Calculated %s %s", formatQuantity(res.Quantity), res.Unit),
		Reasoning: fmt.Sprintf("%s (base %s, waste %.0f%%, access x%.2f, complexity x%.2f)",
			reasoning, formatQuantity(res.BaseQuantity), res.WasteFactor*100, res.AccessFactor, res.ComplexityFactor),
		Alternatives:      []string{"Measure on site", "Use a provisional allowance"},
		ConfidenceFactors: res.Confidence.Reasons,
		RiskAssessment:    riskFor(res.Confidence.Score),
		ScopeItemID:       item.ScopeItemID,
	}
}

func (e *Engine) fallbackDecision(item QuoteItem) Decision {
	return Decision{
		Step:           StepQuantityCalculation,
		Action:         "Substituted a provisional item after calculation failure",
		Reasoning:      item.Reason,
		Alternatives:   []string{"Measure on site", "Rephrase the scope item"},
		RiskAssessment: riskFor(0),
		ScopeItemID:    item.ScopeItemID,
	}
}

func (e *Engine) proceedDecision(r *Result) Decision {
	action := "Stop for clarification"
	alternatives := []string{"Proceed to pricing with provisional quantities"}
	if r.ShouldProceed {
		action = "Proceed to pricing"
		alternatives = []string{"Hold for clarification questions"}
	}
	return Decision{
		Step:              StepProceedDecision,
		Action:            action,
		Reasoning:         strings.Join(r.ProceedReasons, "; "),
		Alternatives:      alternatives,
		ConfidenceFactors: r.Summary.Reasons,
		RiskAssessment:    riskFor(r.Summary.Overall),
	}
}

// quoteItem wraps a successful calculation.
func (e *Engine) quoteItem(item scope.Item, res *measurement.Result) QuoteItem {
	src := &SourceReference{
		Type:      SourceScopeText,
		Reference: scope.Shorten(item.Description, 60),
		Method:    res.Method,
	}
	if res.ElementsUsed > 0 {
		src.Type = SourceDrawing
		src.Reference = fmt.Sprintf("%d building element(s)", res.ElementsUsed)
	}

	qi := QuoteItem{
		ID:          "quote-" + item.ID,
		ScopeItemID: item.ID,
		Description: item.Description,
		Category:    item.Category,
		Quantity:    res.Quantity,
		Unit:        res.Unit,
		UnitPrice:   decimal.Zero,
		TotalPrice:  decimal.Zero,
		Confidence:  res.Confidence,
		Source:      src,
		Measurement: res,
	}
	switch {
	case res.Quantity == 0:
		qi.RequiresReview = true
		qi.Reason = "Quantity must be measured on site"
	case res.Confidence.Score < e.settings.LowConfidence:
		qi.RequiresReview = true
		qi.Reason = fmt.Sprintf("Confidence %.0f%% below review threshold", res.Confidence.Score)
	}
	return qi
}

// fallbackItem stands in for an item whose calculation failed.
func fallbackItem(item scope.Item, err error) QuoteItem {
	return QuoteItem{
		ID:             "quote-" + item.ID,
		ScopeItemID:    item.ID,
		Description:    item.Description,
		Category:       item.Category,
		Quantity:       1,
		Unit:           units.UnitItem,
		UnitPrice:      decimal.Zero,
		TotalPrice:     decimal.Zero,
		Confidence:     confidence.New(0, nil, []string{"calculation failed"}),
		Source:         &SourceReference{Type: SourceFallback, Reference: "manual review"},
		RequiresReview: true,
		Reason:         fmt.Sprintf("Calculation failed: %v", err),
	}
}

// summarize buckets items and averages their confidence.
func (e *Engine) summarize(items []QuoteItem) ConfidenceSummary {
	s := ConfidenceSummary{Reasons: make([]string, 0)}
	if len(items) == 0 {
		s.Reasons = append(s.Reasons, "No items to assess")
		return s
	}

	scores := make([]float64, len(items))
	for i, item := range items {
		score := item.Confidence.Score
		scores[i] = score
		switch {
		case score >= e.settings.HighConfidence:
			s.High++
		case score >= e.settings.MediumConfidence:
			s.Medium++
		case score >= e.settings.LowConfidence:
			s.Low++
		default:
			s.NeedsReview++
		}
	}
	s.Overall = confidence.Round(confidence.Mean(scores), 2)

	s.Reasons = append(s.Reasons, fmt.Sprintf("Mean confidence %.1f%% across %d item(s)", s.Overall, len(items)))
	if s.High > 0 {
		s.Reasons = append(s.Reasons, fmt.Sprintf("%d item(s) at high confidence", s.High))
	}
	if s.Low > 0 {
		s.Reasons = append(s.Reasons, fmt.Sprintf("%d item(s) at low confidence", s.Low))
	}
	if s.NeedsReview > 0 {
		s.Reasons = append(s.Reasons, fmt.Sprintf("%d item(s) need manual review", s.NeedsReview))
	}
	return s
}

func zeroFinancials(currency string) Financials {
	return Financials{
		Subtotal: decimal.Zero,
		Tax:      decimal.Zero,
		Total:    decimal.Zero,
		Currency: currency,
	}
}

func formatQuantity(q float64) string {
	return decimal.NewFromFloat(q).Round(2).String()
}
