// Package policy provides the proceed/stop rules for an estimation run.
// Evaluates typed policies against a snapshot of the run's facts.
package policy

import (
	"fmt"
	"time"
)

// PolicyType defines the type of policy
type PolicyType string

const (
	PolicyTypeEmptyEstimate         PolicyType = "empty_estimate"
	PolicyTypeHighPriorityQuestions PolicyType = "high_priority_questions"
	PolicyTypeConfidenceThreshold   PolicyType = "confidence_threshold"
	PolicyTypeLowConfidenceShare    PolicyType = "low_confidence_share"
	PolicyTypeNeedsReviewItems      PolicyType = "needs_review_items"
	PolicyTypeCustom                PolicyType = "custom"
)

// Severity defines policy violation severity
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Decision is the policy evaluation outcome
type Decision string

const (
	DecisionPass Decision = "pass"
	DecisionWarn Decision = "warn"
	DecisionDeny Decision = "deny"
)

// Facts is the evaluated snapshot of one estimation run. ItemConfidences
// holds one score per quote item.
type Facts struct {
	ItemCount             int       `json:"item_count"`
	HighPriorityQuestions int       `json:"high_priority_questions"`
	OverallConfidence     float64   `json:"overall_confidence"`
	ItemConfidences       []float64 `json:"item_confidences"`
	ReviewItems           int       `json:"review_items"`
}

// Policy defines a proceed rule. Threshold meaning depends on Type. Custom
// policies supply Check, which returns a message when the rule fires.
type Policy struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Type        PolicyType           `json:"type"`
	Severity    Severity             `json:"severity"`
	Threshold   float64              `json:"threshold"`
	Bound       float64              `json:"bound,omitempty"`
	Enabled     bool                 `json:"enabled"`
	Check       func(f Facts) string `json:"-"`
}

// Violation represents a policy violation
type Violation struct {
	PolicyID   string `json:"policy_id"`
	PolicyName string `json:"policy_name"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
}

// Warning represents a policy warning
type Warning struct {
	PolicyID string `json:"policy_id"`
	Message  string `json:"message"`
}

// EvaluationRequest contains the input for policy evaluation
type EvaluationRequest struct {
	Facts          Facts
	CustomPolicies []Policy
}

// EvaluationResult contains the policy evaluation outcome
type EvaluationResult struct {
	Decision    Decision    `json:"decision"`
	Violations  []Violation `json:"violations"`
	Warnings    []Warning   `json:"warnings"`
	PoliciesRan int         `json:"policies_ran"`
	EvaluatedAt time.Time   `json:"evaluated_at"`
}

// ShouldProceed is true unless a policy denied the run.
func (r *EvaluationResult) ShouldProceed() bool {
	return r.Decision != DecisionDeny
}

// Reasons lists violation messages followed by warning messages.
func (r *EvaluationResult) Reasons() []string {
	out := make([]string, 0, len(r.Violations)+len(r.Warnings))
	for _, v := range r.Violations {
		out = append(out, v.Message)
	}
	for _, w := range r.Warnings {
		out = append(out, w.Message)
	}
	return out
}

// Thresholds parameterise the built-in policies.
type Thresholds struct {
	MaxHighPriorityQuestions int     `koanf:"max_high_priority_questions"`
	MinConfidence            float64 `koanf:"min_confidence"`
	LowConfidenceScore       float64 `koanf:"low_confidence_score"`
	MaxLowConfidenceShare    float64 `koanf:"max_low_confidence_share"`
}

// DefaultThresholds: more than 3 high-priority questions, mean confidence
// under 70, or more than 30% of items under 40 stops the run.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxHighPriorityQuestions: 3,
		MinConfidence:            70,
		LowConfidenceScore:       40,
		MaxLowConfidenceShare:    30,
	}
}

// Engine evaluates policies against run facts
type Engine struct {
	policies []Policy
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithThresholds rebuilds the built-in policies from t.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) { e.policies = DefaultPolicies(t) }
}

// WithClock sets the time source for EvaluatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a new policy engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		policies: DefaultPolicies(DefaultThresholds()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddPolicy adds a custom policy
func (e *Engine) AddPolicy(p Policy) {
	e.policies = append(e.policies, p)
}

// Policies returns a copy of the configured policies.
func (e *Engine) Policies() []Policy {
	return append([]Policy(nil), e.policies...)
}

// Evaluate runs all policies against the facts.
func (e *Engine) Evaluate(req EvaluationRequest) *EvaluationResult {
	result := &EvaluationResult{
		Decision:    DecisionPass,
		Violations:  make([]Violation, 0),
		Warnings:    make([]Warning, 0),
		EvaluatedAt: e.now(),
	}

	allPolicies := make([]Policy, 0, len(e.policies)+len(req.CustomPolicies))
	allPolicies = append(allPolicies, e.policies...)
	allPolicies = append(allPolicies, req.CustomPolicies...)

	for _, policy := range allPolicies {
		if !policy.Enabled {
			continue
		}

		result.PoliciesRan++
		msg := evaluatePolicy(policy, req.Facts)
		if msg == "" {
			continue
		}

		if policy.Severity == SeverityError {
			result.Violations = append(result.Violations, Violation{
				PolicyID:   policy.ID,
				PolicyName: policy.Name,
				Message:    msg,
				Severity:   string(policy.Severity),
			})
			result.Decision = DecisionDeny
			continue
		}

		result.Warnings = append(result.Warnings, Warning{PolicyID: policy.ID, Message: msg})
		if result.Decision == DecisionPass {
			result.Decision = DecisionWarn
		}
	}

	return result
}

// evaluatePolicy returns a message when the policy fires.
func evaluatePolicy(p Policy, f Facts) string {
	switch p.Type {
	case PolicyTypeEmptyEstimate:
		if f.ItemCount == 0 {
			return "No scope items could be extracted"
		}

	case PolicyTypeHighPriorityQuestions:
		if float64(f.HighPriorityQuestions) > p.Threshold {
			return fmt.Sprintf("%d high-priority questions outstanding (limit %.0f)", f.HighPriorityQuestions, p.Threshold)
		}

	case PolicyTypeConfidenceThreshold:
		if f.ItemCount > 0 && f.OverallConfidence < p.Threshold {
			return fmt.Sprintf("Overall confidence (%.0f%%) below threshold (%.0f%%)", f.OverallConfidence, p.Threshold)
		}

	case PolicyTypeLowConfidenceShare:
		if len(f.ItemConfidences) == 0 {
			return ""
		}
		low := 0
		for _, c := range f.ItemConfidences {
			if c < p.Bound {
				low++
			}
		}
		share := float64(low) / float64(len(f.ItemConfidences)) * 100
		if share > p.Threshold {
			return fmt.Sprintf("%.0f%% of items below %.0f confidence (limit %.0f%%)", share, p.Bound, p.Threshold)
		}

	case PolicyTypeNeedsReviewItems:
		if f.ReviewItems > 0 {
			return fmt.Sprintf("%d item(s) require manual review", f.ReviewItems)
		}

	case PolicyTypeCustom:
		if p.Check != nil {
			return p.Check(f)
		}
	}

	return ""
}

// DefaultPolicies builds the built-in proceed rules.
func DefaultPolicies(t Thresholds) []Policy {
	return []Policy{
		{
			ID:          "empty-estimate",
			Name:        "Non-empty Estimate",
			Description: "Stop when no scope items were extracted",
			Type:        PolicyTypeEmptyEstimate,
			Severity:    SeverityError,
			Enabled:     true,
		},
		{
			ID:          "high-priority-questions",
			Name:        "Open High-priority Questions",
			Description: fmt.Sprintf("Stop when more than %d high-priority questions are open", t.MaxHighPriorityQuestions),
			Type:        PolicyTypeHighPriorityQuestions,
			Severity:    SeverityError,
			Threshold:   float64(t.MaxHighPriorityQuestions),
			Enabled:     true,
		},
		{
			ID:          "minimum-confidence",
			Name:        "Minimum Confidence",
			Description: fmt.Sprintf("Stop when overall confidence is below %.0f", t.MinConfidence),
			Type:        PolicyTypeConfidenceThreshold,
			Severity:    SeverityError,
			Threshold:   t.MinConfidence,
			Enabled:     true,
		},
		{
			ID:          "low-confidence-share",
			Name:        "Low-confidence Share",
			Description: fmt.Sprintf("Stop when more than %.0f%% of items are below %.0f confidence", t.MaxLowConfidenceShare, t.LowConfidenceScore),
			Type:        PolicyTypeLowConfidenceShare,
			Severity:    SeverityError,
			Threshold:   t.MaxLowConfidenceShare,
			Bound:       t.LowConfidenceScore,
			Enabled:     true,
		},
		{
			ID:          "needs-review",
			Name:        "Items Needing Review",
			Description: "Warn when any item fell back to manual review",
			Type:        PolicyTypeNeedsReviewItems,
			Severity:    SeverityWarning,
			Enabled:     true,
		},
	}
}
