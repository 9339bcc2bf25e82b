package questions

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"scope-quote/decision/compliance"
	"scope-quote/decision/drawing"
	"scope-quote/decision/scope"
	"scope-quote/pkg/ids"
)

// DefaultThreshold is the item confidence at or above which no
// uncertainty-driven questions are asked.
const DefaultThreshold = 85.0

// Generator builds questions for one item at a time. It keeps no per-call
// state; question ids come from the injected generator.
type Generator struct {
	ids          ids.Generator
	threshold    float64
	materials    []scope.MaterialFamily
	standards    Standards
	sanity       []SanityRule
	compliance   *compliance.Table
	jurisdiction compliance.Jurisdiction
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithIDGenerator sets the id source for questions.
func WithIDGenerator(g ids.Generator) GeneratorOption {
	return func(gen *Generator) { gen.ids = ids.OrDefault(g) }
}

// WithThreshold sets the confidence threshold.
func WithThreshold(t float64) GeneratorOption {
	return func(gen *Generator) {
		if t > 0 {
			gen.threshold = t
		}
	}
}

// WithJurisdiction sets the default jurisdiction for compliance context.
func WithJurisdiction(j compliance.Jurisdiction) GeneratorOption {
	return func(gen *Generator) { gen.jurisdiction = j }
}

// NewGenerator creates a generator with the built-in tables.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		ids:          ids.UUID{},
		threshold:    DefaultThreshold,
		materials:    scope.DefaultMaterialFamilies(),
		standards:    DefaultStandards(),
		sanity:       DefaultSanityRules(),
		compliance:   compliance.DefaultTable(),
		jurisdiction: compliance.JurisdictionAU,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Threshold returns the configured confidence threshold.
func (g *Generator) Threshold() float64 { return g.threshold }

// Generate returns the questions for item. Only ambiguities whose
// ScopeItemID matches the item are used.
func (g *Generator) Generate(item scope.Item, elements []drawing.BuildingElement, ambiguities []scope.Ambiguity, ctx Context) *Result {
	res := &Result{
		Questions:              []Question{},
		BlockingIssues:         []string{},
		ConfidenceThresholdMet: item.Confidence.Score >= g.threshold,
	}

	relevant := drawing.Relevant(item.Description, item.Location, elements)
	refs := visualReferences(ctx, relevant)
	add := func(q Question) {
		q.ScopeItemID = item.ID
		q.VisualReferences = refs
		res.Questions = append(res.Questions, q)
	}

	askedMaterial := false
	for _, amb := range ambiguities {
		if amb.ScopeItemID != item.ID {
			continue
		}
		if amb.Type == scope.AmbiguityMaterial {
			askedMaterial = true
		}
		if amb.Priority == scope.PriorityHigh {
			res.BlockingIssues = append(res.BlockingIssues, amb.Description)
		}
		add(g.fromAmbiguity(amb))
	}

	if !res.ConfidenceThresholdMet {
		if item.Confidence.HasUncertainty(scope.UncertaintyMaterial) {
			add(g.materialQuestion(item))
			askedMaterial = true
		}
		if item.Confidence.HasUncertainty(scope.UncertaintyQuantity) {
			add(g.quantityMethodQuestion(item, relevant))
		}
		if item.Confidence.HasUncertainty(scope.UncertaintyLocation) {
			add(g.locationQuestion(item, elements))
		}
	}

	if len(item.Specifications) == 0 && !askedMaterial {
		add(g.specificationQuestion(item))
	}
	if item.Category == scope.CategoryInstall || item.Category == scope.CategorySupplyInstall {
		add(g.installationQuestion(item))
	}
	if q, ok := g.sanityQuestion(item, ctx); ok {
		add(q)
	}
	for _, q := range g.complianceQuestions(item, ctx) {
		add(q)
	}

	sort.SliceStable(res.Questions, func(i, j int) bool {
		return res.Questions[i].Priority.Rank() < res.Questions[j].Priority.Rank()
	})
	res.ShouldProceed = len(res.BlockingIssues) == 0 && res.ConfidenceThresholdMet
	return res
}

func visualReferences(ctx Context, relevant []drawing.BuildingElement) []string {
	if len(relevant) == 0 {
		return nil
	}
	refs := append([]string(nil), ctx.DrawingRefs...)
	for _, el := range relevant {
		refs = append(refs, "element:"+el.ID)
	}
	return refs
}

func (g *Generator) newQuestion(t Type, text, context string, priority scope.Priority, impact float64, labels []string) Question {
	id := g.ids.NewID()
	return Question{
		ID:               id,
		Type:             t,
		Text:             text,
		Context:          context,
		Options:          buildOptions(id, labels),
		Priority:         priority,
		ConfidenceImpact: impact,
	}
}

func buildOptions(questionID string, labels []string) []Option {
	opts := make([]Option, 0, len(labels))
	for i, label := range labels {
		impact, implication := CostImpactOf(label)
		opts = append(opts, Option{
			ID:              fmt.Sprintf("%s-opt-%d", questionID, i+1),
			Label:           label,
			Implications:    implication,
			ConfidenceDelta: ConfidenceDeltaOf(label),
			CostImpact:      impact,
		})
	}
	return opts
}

// CostImpactOf infers the cost direction of an answer from its wording.
func CostImpactOf(label string) (CostImpact, string) {
	switch {
	case costDecreaseWords.MatchString(label):
		return CostDecrease, "Likely to reduce cost"
	case costIncreaseWords.MatchString(label):
		return CostIncrease, "Likely to increase cost"
	default:
		return CostNeutral, "No significant cost change expected"
	}
}

// ConfidenceDeltaOf is the confidence gained by choosing an answer.
func ConfidenceDeltaOf(label string) float64 {
	for _, r := range confidenceRules {
		if r.Pattern.MatchString(label) {
			return r.Delta
		}
	}
	return defaultConfidenceDelta
}

func (g *Generator) fromAmbiguity(amb scope.Ambiguity) Question {
	return g.newQuestion(TypeClarification, amb.SuggestedQuestion, amb.Description,
		amb.Priority, math.Abs(amb.ConfidenceImpact), amb.Interpretations)
}

func (g *Generator) materialQuestion(item scope.Item) Question {
	desc := scope.Shorten(item.Description, 60)
	labels := genericGrades
	context := "No recognised material grade in the description"
	if name := g.standardFamily(item.Description); name != "" {
		labels = g.standards[name]
		context = fmt.Sprintf("Recognised %s work; grade not stated", name)
	}
	return g.newQuestion(TypeSpecification,
		fmt.Sprintf("Which material grade should be allowed for %q?", desc),
		context, scope.PriorityMedium, 15, labels)
}

// standardFamily names the grade table that applies to text, or "".
func (g *Generator) standardFamily(text string) string {
	if family, ok := scope.MaterialFor(g.materials, text); ok {
		if _, ok := g.standards[family.Name]; ok {
			return family.Name
		}
	}
	for _, h := range standardHints {
		if _, ok := g.standards[h.Family]; ok && h.Pattern.MatchString(text) {
			return h.Family
		}
	}
	return ""
}

// quantityMethodQuestion offers only the methods the available data supports.
func (g *Generator) quantityMethodQuestion(item scope.Item, relevant []drawing.BuildingElement) Question {
	var labels []string
	if len(relevant) > 0 {
		labels = append(labels, fmt.Sprintf("Measure from drawings (%d element(s) found)", len(relevant)))
	}
	if item.Quantity.HasBaseQuantity() {
		labels = append(labels, fmt.Sprintf("Use specified quantity (%g %s)", *item.Quantity.BaseQuantity, item.Quantity.Unit))
	}
	labels = append(labels, "Provisional allowance to be confirmed on site")
	return g.newQuestion(TypeAssumptionValidation,
		fmt.Sprintf("How should the quantity for %q be determined?", scope.Shorten(item.Description, 60)),
		"Quantity could not be determined from the scope text",
		scope.PriorityMedium, 20, labels)
}

func (g *Generator) locationQuestion(item scope.Item, elements []drawing.BuildingElement) Question {
	labels := drawing.Locations(elements)
	labels = append(labels, "Throughout the building", "To be confirmed on site")
	return g.newQuestion(TypeClarification,
		fmt.Sprintf("Where is %q located?", scope.Shorten(item.Description, 60)),
		"No room, level or orientation found in the description",
		scope.PriorityLow, 10, labels)
}

func (g *Generator) specificationQuestion(item scope.Item) Question {
	return g.newQuestion(TypeSpecification,
		fmt.Sprintf("Is there a product or specification for %q?", scope.Shorten(item.Description, 60)),
		"No dimensions, product codes or materials were extracted",
		scope.PriorityLow, 10,
		[]string{"Standard specification", "Match existing", "Architect or engineer to specify"})
}

func (g *Generator) installationQuestion(item scope.Item) Question {
	labels := genericMethods
	switch {
	case wallWords.MatchString(item.Description):
		labels = wallMethods
	case roofWords.MatchString(item.Description):
		labels = roofMethods
	}
	return g.newQuestion(TypeSpecification,
		fmt.Sprintf("What installation method applies to %q?", scope.Shorten(item.Description, 60)),
		"Installation method affects labour allowance",
		scope.PriorityLow, 5, labels)
}

func (g *Generator) sanityQuestion(item scope.Item, ctx Context) (Question, bool) {
	if !item.Quantity.HasBaseQuantity() {
		return Question{}, false
	}
	q := *item.Quantity.BaseQuantity
	for _, rule := range g.sanity {
		if !rule.Check(q, item.Quantity.Unit, item.Description, ctx.ProjectType) {
			continue
		}
		return g.newQuestion(TypeAssumptionValidation,
			fmt.Sprintf("Please confirm the quantity of %g %s for %q", q, item.Quantity.Unit, scope.Shorten(item.Description, 60)),
			fmt.Sprintf("Quantity is outside the usual range (%s)", rule.Name),
			scope.PriorityHigh, 25,
			[]string{"Quantity is correct", "Quantity needs to be re-measured", "Unit was stated incorrectly"}), true
	}
	return Question{}, false
}

func (g *Generator) complianceQuestions(item scope.Item, ctx Context) []Question {
	jurisdiction := compliance.ResolveJurisdiction(ctx.Location, g.jurisdiction)
	desc := scope.Shorten(item.Description, 60)
	var out []Question
	if g.compliance.Matches(item.Description, compliance.TopicStructural) {
		out = append(out, g.newQuestion(TypeSpecification,
			fmt.Sprintf("Has structural engineering been provided for %q?", desc),
			strings.Join(g.compliance.Notes(jurisdiction, item.Description), "; "),
			scope.PriorityMedium, 15,
			[]string{"Engineer's design provided", "Engineer to be engaged", "Not structural work"}))
	}
	if g.compliance.Matches(item.Description, compliance.TopicFireRating) {
		out = append(out, g.newQuestion(TypeSpecification,
			fmt.Sprintf("What fire rating is required for %q?", desc),
			strings.Join(g.compliance.Notes(jurisdiction, item.Description), "; "),
			scope.PriorityMedium, 15,
			[]string{"FRL 60/60/60", "FRL 90/90/90 (upgrade)", "No fire rating required"}))
	}
	return out
}
