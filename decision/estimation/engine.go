// Package estimation provides the Estimation Orchestrator
// Combines scope parsing, quantity calculation, and clarification questions to produce an unpriced quote
package estimation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scope-quote/decision/drawing"
	"scope-quote/decision/measurement"
	"scope-quote/decision/policy"
	"scope-quote/decision/questions"
	"scope-quote/decision/scope"
	"scope-quote/internal/logging"
	"scope-quote/internal/metrics"
	perrors "scope-quote/pkg/errors"
	"scope-quote/pkg/ids"
)

// ScopeParser decomposes scope text into items.
type ScopeParser interface {
	Parse(text string) *scope.Analysis
}

// Calculator computes the quantity for one scope item.
type Calculator interface {
	Calculate(item scope.Item, elements []drawing.BuildingElement, opts measurement.Options) (*measurement.Result, error)
}

// QuestionGenerator produces clarification questions for one scope item.
type QuestionGenerator interface {
	Generate(item scope.Item, elements []drawing.BuildingElement, ambiguities []scope.Ambiguity, ctx questions.Context) *questions.Result
	Threshold() float64
}

// Settings hold the orchestrator's tunables.
type Settings struct {
	Workers          int     `koanf:"workers"`
	HighConfidence   float64 `koanf:"high_confidence"`
	MediumConfidence float64 `koanf:"medium_confidence"`
	LowConfidence    float64 `koanf:"low_confidence"`
	Currency         string  `koanf:"currency"`
	ProjectName      string  `koanf:"project_name"`
}

// DefaultSettings returns the bucket thresholds 85/70/40 and four workers.
func DefaultSettings() Settings {
	return Settings{
		Workers:          4,
		HighConfidence:   85,
		MediumConfidence: 70,
		LowConfidence:    40,
		Currency:         "AUD",
		ProjectName:      "Untitled project",
	}
}

// Engine is the Estimation Orchestrator
type Engine struct {
	parser     ScopeParser
	calculator Calculator
	questions  QuestionGenerator
	policies   *policy.Engine
	ids        ids.Generator
	logger     *zap.Logger
	metrics    *metrics.Collectors
	settings   Settings
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithParser replaces the scope parser.
func WithParser(p ScopeParser) Option {
	return func(e *Engine) { e.parser = p }
}

// WithCalculator replaces the measurement calculator.
func WithCalculator(c Calculator) Option {
	return func(e *Engine) { e.calculator = c }
}

// WithQuestionGenerator replaces the question generator.
func WithQuestionGenerator(g QuestionGenerator) Option {
	return func(e *Engine) { e.questions = g }
}

// WithPolicyEngine replaces the proceed policies.
func WithPolicyEngine(p *policy.Engine) Option {
	return func(e *Engine) { e.policies = p }
}

// WithIDGenerator sets the generator for request, quote, and audit ids.
func WithIDGenerator(g ids.Generator) Option {
	return func(e *Engine) { e.ids = ids.OrDefault(g) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

// WithMetrics sets the run collectors. Nil disables metrics.
func WithMetrics(m *metrics.Collectors) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithWorkers bounds concurrent item calculations.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.settings.Workers = n }
}

// WithClock sets the time source for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSettings replaces all settings.
func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// NewEngine creates a new estimation engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		ids:      ids.UUID{},
		logger:   zap.NewNop(),
		settings: DefaultSettings(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parser == nil {
		e.parser = scope.NewParser()
	}
	if e.calculator == nil {
		e.calculator = measurement.NewCalculator(nil)
	}
	if e.questions == nil {
		e.questions = questions.NewGenerator()
	}
	if e.policies == nil {
		e.policies = policy.NewEngine(policy.WithClock(e.now))
	}
	if e.settings.Workers < 1 {
		e.settings.Workers = 1
	}
	return e
}

// Settings returns the engine's effective settings.
func (e *Engine) Settings() Settings { return e.settings }

// Process runs the whole pipeline for one request. It never panics and never
// fails: a pipeline failure yields a degraded result.
func (e *Engine) Process(ctx context.Context, req Request) (result *Result) {
	began := time.Now()
	requestID := e.ids.NewID()
	log := e.logger.With(zap.String("request_id", requestID))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.Error("estimation pipeline failed", zap.Error(err))
			result = e.degraded(requestID, err)
			e.metrics.ObserveRun(metrics.OutcomeDegraded, 0, time.Since(began))
		}
	}()

	result = e.process(ctx, log, requestID, req)

	outcome := metrics.OutcomeStop
	if result.ShouldProceed {
		outcome = metrics.OutcomeProceed
	}
	e.metrics.ObserveRun(outcome, result.Summary.Overall, time.Since(began))
	log.Info("estimation complete",
		zap.Int("items", len(result.QuoteItems)),
		zap.Int("questions", len(result.Questions)),
		zap.Float64("confidence", result.Summary.Overall),
		zap.Bool("proceed", result.ShouldProceed),
	)
	return result
}

func (e *Engine) process(ctx context.Context, log *zap.Logger, requestID string, req Request) *Result {
	elements := drawing.Convert(req.DrawingElements)
	analysis := e.parser.Parse(augment(req, elements))
	if analysis == nil {
		analysis = &scope.Analysis{Items: []scope.Item{}, Ambiguities: []scope.Ambiguity{}}
	}
	log.Debug("scope parsed",
		zap.Int("items", len(analysis.Items)),
		zap.Int("ambiguities", len(analysis.Ambiguities)),
		zap.Int("elements", len(elements)),
	)

	result := &Result{
		RequestID:  requestID,
		Analysis:   analysis,
		QuoteItems: make([]QuoteItem, 0, len(analysis.Items)),
		Questions:  make([]questions.Question, 0),
		Errors:     make([]EstimationError, 0),
	}
	trail := e.newAuditTrail(requestID)
	trail.record(e.scopeDecision(analysis))
	trail.record(e.drawingDecision(elements))

	opts := measurement.Options{
		Scale:              req.Scale,
		LocationContext:    req.Location,
		BuildingType:       req.ProjectType,
		ConstructionMethod: req.ConstructionMethod,
	}

	// Calculate quantities per item
	for _, outcome := range e.calculateAll(ctx, analysis.Items, elements, opts) {
		result.ItemsProcessed++
		if outcome.OK() {
			result.ItemsMeasured++
			item := e.quoteItem(outcome.Item, outcome.Result)
			result.QuoteItems = append(result.QuoteItems, item)
			trail.record(e.calculationDecision(item, outcome.Result))
			if ce := log.Check(logging.TraceLevel, "item measured"); ce != nil {
				ce.Write(
					zap.String("scope_item_id", outcome.Item.ID),
					zap.String("method", outcome.Result.Method),
					zap.Float64("quantity", item.Quantity),
					zap.String("unit", string(item.Unit)),
					zap.Float64("confidence", item.Confidence.Score),
				)
			}
			for _, a := range outcome.Result.Assumptions {
				trail.assume(fmt.Sprintf("%s: %s", scope.Shorten(outcome.Item.Description, 48), a))
			}
			continue
		}

		// Create fallback item for failed calculations
		code := perrors.CodeOf(outcome.Err)
		log.Warn("item calculation failed",
			zap.String("scope_item_id", outcome.Item.ID),
			zap.String("code", code),
			zap.Error(outcome.Err),
		)
		e.metrics.ItemFailed(code)
		result.ItemsFallback++
		result.Errors = append(result.Errors, EstimationError{
			ScopeItemID: outcome.Item.ID,
			Code:        code,
			Message:     outcome.Err.Error(),
			IsCritical:  false,
		})
		item := fallbackItem(outcome.Item, outcome.Err)
		result.QuoteItems = append(result.QuoteItems, item)
		trail.record(e.fallbackDecision(item))
	}

	qctx := questions.Context{
		DrawingRefs: req.DrawingRefs,
		ProjectType: req.ProjectType,
		Location:    req.Location,
	}
	result.Questions, result.BlockingIssues = e.generateQuestions(analysis, elements, qctx)
	for _, p := range []scope.Priority{scope.PriorityHigh, scope.PriorityMedium, scope.PriorityLow} {
		e.metrics.QuestionsAdded(string(p), questions.CountByPriority(result.Questions, p))
	}

	result.Summary = e.summarize(result.QuoteItems)

	result.Policy = e.policies.Evaluate(policy.EvaluationRequest{Facts: e.facts(result)})
	result.ShouldProceed = result.Policy.ShouldProceed()
	result.ProceedReasons = result.Policy.Reasons()
	if result.ShouldProceed && len(result.ProceedReasons) == 0 {
		result.ProceedReasons = []string{"All proceed checks passed"}
	}
	trail.record(e.proceedDecision(result))

	if result.ShouldProceed {
		result.Quote = e.assembleQuote(requestID, req, analysis, result)
	}

	trail.QuestionsAsked = result.Questions
	trail.ConfidenceSummary = result.Summary
	result.AuditTrail = trail.AuditTrail

	result.NextSteps = e.nextSteps(result)
	result.EstimatedDuration = EstimatedDuration(len(result.QuoteItems), len(result.Questions))
	return result
}

// augment prefixes a drawing context line to non-empty scope text.
func augment(req Request, elements []drawing.BuildingElement) string {
	text := strings.TrimSpace(req.ScopeText)
	if text == "" {
		return text
	}
	summary := strings.TrimSpace(req.DrawingContext)
	if summary == "" {
		summary = drawing.Summary(elements)
	}
	if summary == "" {
		return text
	}
	return "Drawing context: " + summary + "\n\n" + text
}

// calculateAll fans calculations out over a bounded worker pool. Outcomes
// keep item order.
func (e *Engine) calculateAll(ctx context.Context, items []scope.Item, elements []drawing.BuildingElement, opts measurement.Options) []ItemOutcome {
	outcomes := make([]ItemOutcome, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.settings.Workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			outcomes[i] = e.calculateOne(gctx, item, elements, opts)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (e *Engine) calculateOne(ctx context.Context, item scope.Item, elements []drawing.BuildingElement, opts measurement.Options) (out ItemOutcome) {
	out.Item = item
	defer func() {
		if r := recover(); r != nil {
			out.Result = nil
			out.Err = perrors.NewCalculationFailedError(item.ID, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		out.Err = perrors.NewCalculationFailedError(item.ID, err)
		return out
	}

	res, err := e.calculator.Calculate(item, elements, opts)
	switch {
	case err != nil && perrors.CodeOf(err) == "":
		out.Err = perrors.NewCalculationFailedError(item.ID, err)
	case err != nil:
		out.Err = err
	case res == nil:
		out.Err = perrors.NewCalculationFailedError(item.ID, errors.New("calculator returned no result"))
	default:
		out.Result = res
	}
	return out
}

// generateQuestions asks about items under the generator threshold, in item order.
func (e *Engine) generateQuestions(analysis *scope.Analysis, elements []drawing.BuildingElement, qctx questions.Context) ([]questions.Question, []string) {
	qs := make([]questions.Question, 0)
	blocking := make([]string, 0)
	threshold := e.questions.Threshold()
	for _, item := range analysis.Items {
		if item.Confidence.Score >= threshold {
			continue
		}
		res := e.questions.Generate(item, elements, analysis.AmbiguitiesFor(item.ID), qctx)
		if res == nil {
			continue
		}
		qs = append(qs, res.Questions...)
		blocking = append(blocking, res.BlockingIssues...)
	}
	return qs, blocking
}

func (e *Engine) facts(r *Result) policy.Facts {
	f := policy.Facts{
		ItemCount:             len(r.QuoteItems),
		HighPriorityQuestions: questions.CountByPriority(r.Questions, scope.PriorityHigh),
		OverallConfidence:     r.Summary.Overall,
		ItemConfidences:       make([]float64, 0, len(r.QuoteItems)),
	}
	for _, item := range r.QuoteItems {
		f.ItemConfidences = append(f.ItemConfidences, item.Confidence.Score)
		if item.RequiresReview {
			f.ReviewItems++
		}
	}
	return f
}

func (e *Engine) assembleQuote(requestID string, req Request, analysis *scope.Analysis, r *Result) *GeneratedQuote {
	return &GeneratedQuote{
		ID:          e.ids.NewID(),
		RequestID:   requestID,
		ProjectName: e.projectName(req, analysis),
		Items:       r.QuoteItems,
		Summary:     r.Summary,
		Financials:  zeroFinancials(e.settings.Currency),
		Status:      QuoteStatusDraft,
		CreatedAt:   e.now(),
	}
}

// projectName prefers the request name, then the first item, then the default.
func (e *Engine) projectName(req Request, analysis *scope.Analysis) string {
	if name := strings.TrimSpace(req.ProjectName); name != "" {
		return name
	}
	name := e.settings.ProjectName
	if len(analysis.Items) > 0 {
		if desc := scope.Shorten(analysis.Items[0].Description, 48); desc != "" {
			name = desc
		}
	}
	if loc := strings.TrimSpace(req.Location); loc != "" {
		name = fmt.Sprintf("%s (%s)", name, loc)
	}
	return name
}

// nextSteps lists what the user should do with this result.
func (e *Engine) nextSteps(r *Result) []string {
	var steps []string
	high := questions.CountByPriority(r.Questions, scope.PriorityHigh)
	if high > 0 {
		steps = append(steps, fmt.Sprintf("Answer %d high-priority question(s)", high))
	}
	if rest := len(r.Questions) - high; rest > 0 {
		steps = append(steps, fmt.Sprintf("Review %d remaining clarification question(s)", rest))
	}
	low := 0
	for _, item := range r.QuoteItems {
		if item.Confidence.Score < e.settings.MediumConfidence {
			low++
		}
	}
	if low > 0 {
		steps = append(steps, fmt.Sprintf("Review %d low-confidence item(s)", low))
	}
	if r.ShouldProceed {
		steps = append(steps, fmt.Sprintf("Price %d unpriced item(s) against the rate catalogue", len(r.QuoteItems)))
	} else {
		steps = append(steps, "Resolve open questions before pricing")
	}
	return steps
}

// EstimatedDuration is 5 minutes plus 2 per item and 3 per question, rounded
// up to the next multiple of 5.
func EstimatedDuration(items, questionCount int) string {
	minutes := 5 + 2*items + 3*questionCount
	if rem := minutes % 5; rem != 0 {
		minutes += 5 - rem
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// degraded is the well-formed result of a failed run.
func (e *Engine) degraded(requestID string, cause error) *Result {
	err := perrors.NewPipelineFailedError(cause)
	summary := ConfidenceSummary{Reasons: []string{"Estimation failed before items could be assessed"}}

	trail := e.newAuditTrail(requestID)
	trail.record(Decision{
		Step:           StepPipelineFailure,
		Action:         "Returned degraded result",
		Reasoning:      err.Error(),
		Alternatives:   []string{"Retry with simpler input", "Split the scope into smaller requests"},
		RiskAssessment: riskFor(0),
	})
	trail.ConfidenceSummary = summary
	trail.QuestionsAsked = make([]questions.Question, 0)

	return &Result{
		RequestID:         requestID,
		Analysis:          &scope.Analysis{Items: []scope.Item{}, Ambiguities: []scope.Ambiguity{}},
		QuoteItems:        make([]QuoteItem, 0),
		Questions:         make([]questions.Question, 0),
		BlockingIssues:    make([]string, 0),
		Summary:           summary,
		ShouldProceed:     false,
		ProceedReasons:    []string{"Processing error: " + cause.Error()},
		AuditTrail:        trail.AuditTrail,
		NextSteps:         []string{"Fix processing error and retry with simpler input"},
		EstimatedDuration: EstimatedDuration(0, 0),
		Errors: []EstimationError{{
			Code:       err.Code,
			Message:    err.Error(),
			IsCritical: true,
		}},
		Degraded: true,
	}
}
