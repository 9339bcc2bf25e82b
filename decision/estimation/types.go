package estimation

import (
	"time"

	"github.com/shopspring/decimal"

	"scope-quote/decision/drawing"
	"scope-quote/decision/measurement"
	"scope-quote/decision/policy"
	"scope-quote/decision/questions"
	"scope-quote/decision/scope"
	"scope-quote/pkg/confidence"
	"scope-quote/pkg/units"
)

// Request contains inputs for one estimation run
type Request struct {
	ScopeText string `json:"scope_text"`

	// Drawing collaborator output
	DrawingContext  string               `json:"drawing_context,omitempty"`
	DrawingElements []drawing.RawElement `json:"drawing_elements,omitempty"`
	DrawingRefs     []string             `json:"drawing_refs,omitempty"`

	ProjectName        string  `json:"project_name,omitempty"`
	ProjectType        string  `json:"project_type,omitempty"`
	Location           string  `json:"location,omitempty"`
	Scale              float64 `json:"scale,omitempty"`
	ConstructionMethod string  `json:"construction_method,omitempty"`
}

// Result contains the complete estimation output
type Result struct {
	RequestID string          `json:"request_id"`
	Analysis  *scope.Analysis `json:"analysis"`

	QuoteItems     []QuoteItem              `json:"quote_items"`
	Questions      []questions.Question     `json:"questions"`
	BlockingIssues []string                 `json:"blocking_issues"`
	Summary        ConfidenceSummary        `json:"confidence_summary"`
	Policy         *policy.EvaluationResult `json:"policy,omitempty"`

	ShouldProceed  bool            `json:"should_proceed"`
	ProceedReasons []string        `json:"proceed_reasons,omitempty"`
	Quote          *GeneratedQuote `json:"quote,omitempty"`

	// Audit trail
	AuditTrail AuditTrail `json:"audit_trail"`

	NextSteps         []string `json:"next_steps"`
	EstimatedDuration string   `json:"estimated_duration"`

	// Errors and statistics
	Errors         []EstimationError `json:"errors"`
	Degraded       bool              `json:"degraded"`
	ItemsProcessed int               `json:"items_processed"`
	ItemsMeasured  int               `json:"items_measured"`
	ItemsFallback  int               `json:"items_fallback"`
}

// QuoteItem is an unpriced line item ready for the pricing collaborator.
type QuoteItem struct {
	ID             string              `json:"id"`
	ScopeItemID    string              `json:"scope_item_id"`
	Description    string              `json:"description"`
	Category       scope.Category      `json:"category"`
	Quantity       float64             `json:"quantity"`
	Unit           units.Unit          `json:"unit"`
	UnitPrice      decimal.Decimal     `json:"unit_price"`
	TotalPrice     decimal.Decimal     `json:"total_price"`
	Confidence     confidence.Level    `json:"confidence"`
	Source         *SourceReference    `json:"source,omitempty"`
	Measurement    *measurement.Result `json:"measurement,omitempty"`
	RequiresReview bool                `json:"requires_review"`
	Reason         string              `json:"reason,omitempty"`
}

// SourceReference says where a quantity came from.
type SourceReference struct {
	Type      string `json:"type"`
	Reference string `json:"reference"`
	Method    string `json:"method,omitempty"`
}

// Source types.
const (
	SourceScopeText = "scope_text"
	SourceDrawing   = "drawing"
	SourceFallback  = "fallback"
)

// ConfidenceSummary buckets quote items by confidence. Bucket counts always
// sum to the number of quote items.
type ConfidenceSummary struct {
	Overall     float64  `json:"overall"`
	High        int      `json:"high"`
	Medium      int      `json:"medium"`
	Low         int      `json:"low"`
	NeedsReview int      `json:"needs_review"`
	Reasons     []string `json:"reasons"`
}

// Total is the number of bucketed items.
func (s ConfidenceSummary) Total() int {
	return s.High + s.Medium + s.Low + s.NeedsReview
}

// Financials are zero until a pricing collaborator fills them.
type Financials struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

// GeneratedQuote is the draft quote handed to pricing.
type GeneratedQuote struct {
	ID          string            `json:"id"`
	RequestID   string            `json:"request_id"`
	ProjectName string            `json:"project_name"`
	Items       []QuoteItem       `json:"items"`
	Summary     ConfidenceSummary `json:"confidence_summary"`
	Financials  Financials        `json:"financials"`
	Status      string            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// QuoteStatusDraft is the only status this package produces.
const QuoteStatusDraft = "draft"

// Decision is one audited pipeline step.
type Decision struct {
	ID                string    `json:"id"`
	Step              string    `json:"step"`
	Action            string    `json:"action"`
	Reasoning         string    `json:"reasoning"`
	Alternatives      []string  `json:"alternatives,omitempty"`
	ConfidenceFactors []string  `json:"confidence_factors,omitempty"`
	RiskAssessment    string    `json:"risk_assessment"`
	ScopeItemID       string    `json:"scope_item_id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Audit steps.
const (
	StepScopeAnalysis       = "scope_analysis"
	StepDrawingAnalysis     = "drawing_analysis"
	StepQuantityCalculation = "quantity_calculation"
	StepProceedDecision     = "proceed_decision"
	StepPipelineFailure     = "pipeline_failure"
)

// AuditTrail provides reproducibility information. Actions are appended in
// pipeline order and never rewritten.
type AuditTrail struct {
	ID                string               `json:"id"`
	RequestID         string               `json:"request_id"`
	CreatedAt         time.Time            `json:"created_at"`
	Actions           []Decision           `json:"actions"`
	QuestionsAsked    []questions.Question `json:"questions_asked"`
	Assumptions       []string             `json:"assumptions"`
	ConfidenceSummary ConfidenceSummary    `json:"confidence_summary"`
}

// EstimationError represents an item-level or pipeline error
type EstimationError struct {
	ScopeItemID string `json:"scope_item_id,omitempty"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	IsCritical  bool   `json:"is_critical"`
}

// ItemOutcome is the per-item calculation result: exactly one of Result and
// Err is set.
type ItemOutcome struct {
	Item   scope.Item
	Result *measurement.Result
	Err    error
}

// OK reports whether the calculation succeeded.
func (o ItemOutcome) OK() bool {
	return o.Err == nil && o.Result != nil
}
