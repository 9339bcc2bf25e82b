// Package questions provides the Question Generator: it turns parser
// ambiguities and item uncertainty into multiple-choice questions for the
// estimator's user.
package questions

import "scope-quote/decision/scope"

// Type classifies a question.
type Type string

const (
	TypeClarification        Type = "clarification"
	TypeSpecification        Type = "specification"
	TypeAssumptionValidation Type = "assumption_validation"
)

// CostImpact is the direction an answer is expected to move the price.
type CostImpact string

const (
	CostIncrease CostImpact = "increase"
	CostDecrease CostImpact = "decrease"
	CostNeutral  CostImpact = "neutral"
)

// Option is one selectable answer.
type Option struct {
	ID              string     `json:"id"`
	Label           string     `json:"label"`
	Implications    string     `json:"implications"`
	ConfidenceDelta float64    `json:"confidence_delta"`
	CostImpact      CostImpact `json:"cost_impact"`
}

// Question is tied to exactly one scope item through ScopeItemID.
type Question struct {
	ID               string         `json:"id"`
	ScopeItemID      string         `json:"scope_item_id"`
	Type             Type           `json:"type"`
	Text             string         `json:"question"`
	Context          string         `json:"context,omitempty"`
	Options          []Option       `json:"options"`
	Priority         scope.Priority `json:"priority"`
	ConfidenceImpact float64        `json:"confidence_impact"`
	VisualReferences []string       `json:"visual_references,omitempty"`
}

// Context is request-level information that shapes questions.
type Context struct {
	DrawingRefs []string `json:"drawing_refs,omitempty"`
	ProjectType string   `json:"project_type,omitempty"`
	Location    string   `json:"location,omitempty"`
}

// Result is the generator output for one item.
type Result struct {
	Questions              []Question `json:"questions"`
	ShouldProceed          bool       `json:"should_proceed"`
	ConfidenceThresholdMet bool       `json:"confidence_threshold_met"`
	BlockingIssues         []string   `json:"blocking_issues"`
}

// CountByPriority counts questions with the given priority.
func CountByPriority(qs []Question, p scope.Priority) int {
	n := 0
	for _, q := range qs {
		if q.Priority == p {
			n++
		}
	}
	return n
}
