package scope

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"scope-quote/decision/compliance"
	"scope-quote/pkg/confidence"
	"scope-quote/pkg/ids"
	"scope-quote/pkg/units"
)

// Parser turns scope text into an Analysis. It holds only read-only tables and
// is safe for concurrent use.
type Parser struct {
	rules        *Rules
	ids          ids.Generator
	compliance   *compliance.Table
	jurisdiction compliance.Jurisdiction
}

// Option configures a Parser.
type Option func(*Parser)

// WithRules replaces the built-in rule set.
func WithRules(r *Rules) Option {
	return func(p *Parser) { p.rules = r }
}

// WithIDGenerator sets the generator used for item and ambiguity ids.
func WithIDGenerator(g ids.Generator) Option {
	return func(p *Parser) { p.ids = ids.OrDefault(g) }
}

// WithJurisdiction selects the code names used in compliance notes.
func WithJurisdiction(j compliance.Jurisdiction) Option {
	return func(p *Parser) { p.jurisdiction = j }
}

// NewParser creates a parser with the default rules.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		rules:        DefaultRules(),
		ids:          ids.UUID{},
		compliance:   compliance.DefaultTable(),
		jurisdiction: compliance.JurisdictionAU,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Rules exposes the parser's rule set.
func (p *Parser) Rules() *Rules { return p.rules }

// Parse never fails: text that yields no recognisable sections becomes a
// single low-confidence item with a quantity ambiguity.
func (p *Parser) Parse(text string) *Analysis {
	analysis := &Analysis{
		Items:       []Item{},
		Ambiguities: []Ambiguity{},
	}

	normalized := normalize(text)
	if normalized == "" {
		return analysis
	}
	body, ctx := extractContext(normalized)
	analysis.Context = ctx

	sections := p.sections(body)
	if len(sections) == 0 {
		fallbackText := body
		if fallbackText == "" {
			fallbackText = normalized
		}
		item, amb := p.fallbackItem(fallbackText)
		analysis.Items = append(analysis.Items, item)
		analysis.Ambiguities = append(analysis.Ambiguities, amb)
		p.aggregate(analysis, []float64{0})
		return analysis
	}

	completeness := make([]float64, 0, len(sections))
	for _, section := range sections {
		item, facts := p.analyzeSection(section)
		analysis.Items = append(analysis.Items, item)
		analysis.Ambiguities = append(analysis.Ambiguities, p.detectAmbiguities(item, facts)...)
		completeness = append(completeness, p.completeness(item, facts))
	}
	p.aggregate(analysis, completeness)
	return analysis
}

// sectionFacts are the derived booleans shared by scoring and ambiguity detection.
type sectionFacts struct {
	hasAction         bool
	hasMaterial       bool
	hasDimensions     bool
	explicitQuantity  bool
	quantityIndicator bool
	ambiguousWording  bool
	complexWording    bool
}

func (p *Parser) hasAction(text string) bool {
	r := p.rules
	return Score(r.Supply, text) > 0 || Score(r.Install, text) > 0 ||
		Score(r.Demolition, text) > 0 || Score(r.Preparation, text) > 0
}

func (p *Parser) analyzeSection(text string) (Item, sectionFacts) {
	r := p.rules
	_, hasMaterial := MaterialFor(r.Materials, text)
	facts := sectionFacts{
		hasAction:        p.hasAction(text),
		hasMaterial:      hasMaterial,
		ambiguousWording: r.AmbiguityWords.MatchString(text),
		complexWording:   r.ComplexityWords.MatchString(text),
	}

	category := p.classifyCategory(text)
	location := p.extractLocation(text)
	specs, hasDims := p.extractSpecifications(text)
	facts.hasDimensions = hasDims

	qr := p.quantityRequirement(text)
	facts.explicitQuantity = qr.HasBaseQuantity()
	facts.quantityIndicator = facts.explicitQuantity || r.QuantityIndicators.MatchString(text)

	mt := p.classifyMeasurement(text, category, qr.MeasurementType)
	if qr.MeasurementType == "" {
		qr.MeasurementType = mt
	}
	if qr.Unit == "" {
		qr.Unit = qr.MeasurementType.DefaultUnit()
	}

	item := Item{
		ID:              p.ids.NewID(),
		Description:     text,
		Category:        category,
		Location:        location,
		Specifications:  specs,
		Quantity:        qr,
		MeasurementType: mt,
	}
	item.Confidence = p.scoreItem(item, facts)
	return item, facts
}

func (p *Parser) classifyCategory(text string) Category {
	r := p.rules
	demolition := Score(r.Demolition, text)
	preparation := Score(r.Preparation, text)
	if demolition > r.DominanceThreshold || preparation > r.DominanceThreshold {
		if demolition >= preparation {
			return CategoryDemolition
		}
		return CategoryPreparation
	}

	supply := Score(r.Supply, text)
	install := Score(r.Install, text)
	switch {
	case supply > 0 && supply > install*r.SupplyInstallRatio:
		return CategorySupply
	case install > 0 && install > supply*r.SupplyInstallRatio:
		return CategoryInstall
	default:
		return CategorySupplyInstall
	}
}

func (p *Parser) extractLocation(text string) string {
	var parts []string
	for _, pattern := range []*regexp.Regexp{p.rules.Rooms, p.rules.Levels, p.rules.Orientations} {
		if pattern == nil {
			continue
		}
		if m := pattern.FindString(text); m != "" {
			parts = append(parts, strings.ToLower(m))
		}
	}
	return strings.Join(parts, ", ")
}

// extractSpecifications returns dimension matches in text order, one match per
// material family, then product codes; duplicates are dropped.
func (p *Parser) extractSpecifications(text string) ([]string, bool) {
	r := p.rules
	var spans [][]int
	for _, pattern := range r.Dimensions {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			if !overlaps(spans, loc) {
				spans = append(spans, loc)
			}
		}
	}
	sortSpans(spans)

	seen := make(map[string]bool)
	var specs []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			return
		}
		seen[key] = true
		specs = append(specs, s)
	}
	for _, loc := range spans {
		add(text[loc[0]:loc[1]])
	}
	for _, family := range r.Materials {
		if m := family.Pattern.FindString(text); m != "" {
			add(m)
		}
	}
	for _, pattern := range r.ProductCodes {
		for _, m := range pattern.FindAllString(text, -1) {
			add(m)
		}
	}
	return specs, len(spans) > 0
}

func overlaps(spans [][]int, loc []int) bool {
	for _, s := range spans {
		if loc[0] < s[1] && s[0] < loc[1] {
			return true
		}
	}
	return false
}

func sortSpans(spans [][]int) {
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j][0] < spans[j-1][0]; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
}

func (p *Parser) quantityRequirement(text string) *QuantityRequirement {
	r := p.rules
	qr := &QuantityRequirement{WasteFactor: r.DefaultWaste}

	for _, qp := range r.Quantities {
		m := qp.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		mt, unit := qp.MeasurementType, qp.Unit
		if qp.UnitGroup > 0 && qp.UnitGroup < len(m) {
			mt, unit = "", ""
			if u, ok := units.Normalize(m[qp.UnitGroup]); ok {
				unit = u
				mt = MeasurementType(units.KindOf(u))
			}
		}
		qr.BaseQuantity = &v
		qr.MeasurementType = mt
		qr.Unit = unit
		qr.Notes = append(qr.Notes, fmt.Sprintf("explicit quantity (%s): %s", qp.Name, strings.TrimSpace(m[0])))
		break
	}
	if qr.BaseQuantity != nil && r.Approximate.MatchString(text) {
		qr.Notes = append(qr.Notes, "quantity stated as approximate")
	}

	if family, ok := MaterialFor(r.Materials, text); ok {
		qr.WasteFactor = family.Waste
		qr.Notes = append(qr.Notes, fmt.Sprintf("waste allowance from %s material", family.Name))
	}
	var name string
	qr.AccessFactor, name = MaxFactor(r.Access, text)
	if name != "" {
		qr.Notes = append(qr.Notes, "access difficulty: "+name)
	}
	qr.ComplexityFactor, name = MaxFactor(r.Complexity, text)
	if name != "" {
		qr.Notes = append(qr.Notes, "complexity: "+name)
	}
	return qr
}

// classifyMeasurement prefers strong unit wording, then the type implied by an
// explicit quantity, then the category's fallback nouns.
func (p *Parser) classifyMeasurement(text string, category Category, explicit MeasurementType) MeasurementType {
	r := p.rules
	var best MeasurementType
	bestScore := 0.0
	for _, family := range r.Measurements {
		if s := Score(family.Rules, text); s > bestScore {
			best, bestScore = family.Type, s
		}
	}
	if bestScore > r.MeasurementThreshold {
		return best
	}
	if explicit != "" {
		return explicit
	}

	order := r.FallbackOrder[category]
	if len(order) == 0 {
		order = r.FallbackOrder[CategorySupplyInstall]
	}
	for _, t := range order {
		for _, fb := range r.Fallbacks {
			if fb.Type == t && fb.Pattern.MatchString(text) {
				return t
			}
		}
	}
	return MeasurementAssembly
}

func (p *Parser) scoreItem(item Item, f sectionFacts) confidence.Level {
	w := p.rules.Confidence
	score := w.Base
	var reasons, uncertain []string

	if f.hasAction {
		score += w.ClearAction
		reasons = append(reasons, "clear work action")
	}
	if f.hasMaterial {
		score += w.Material
		reasons = append(reasons, "material identified")
	} else {
		uncertain = append(uncertain, UncertaintyMaterial)
	}
	if item.Location != "" {
		score += w.Location
		reasons = append(reasons, "location identified: "+item.Location)
	} else {
		uncertain = append(uncertain, UncertaintyLocation)
	}
	if len(item.Specifications) > 0 {
		score += w.Specifications
		reasons = append(reasons, fmt.Sprintf("%d specification(s) extracted", len(item.Specifications)))
	}
	if f.quantityIndicator {
		score += w.QuantityIndicator
		reasons = append(reasons, "quantity indicated")
	} else {
		uncertain = append(uncertain, UncertaintyQuantity)
	}
	if !f.ambiguousWording {
		score += w.Unambiguous
	} else {
		uncertain = append(uncertain, "ambiguous wording")
	}
	if f.explicitQuantity {
		score += w.ExplicitQuantity
		reasons = append(reasons, "explicit numeric quantity")
	}
	if f.hasDimensions {
		score += w.Dimensions
		reasons = append(reasons, "dimensions stated")
	}
	if f.complexWording {
		score -= w.ComplexityPenalty
		uncertain = append(uncertain, "complexity")
	}
	return confidence.New(score, reasons, uncertain)
}

type ambiguityTemplate struct {
	description     string
	question        string
	interpretations []string
	impact          float64
	priority        Priority
}

var ambiguityTemplates = map[AmbiguityType]ambiguityTemplate{
	AmbiguityMaterial: {
		description: "No material or product specified for %q",
		question:    "What material or product should be used for %q?",
		interpretations: []string{
			"Standard builder's grade material",
			"Premium grade material",
			"Match existing materials",
			"Client-supplied material",
		},
		impact:   -15,
		priority: PriorityMedium,
	},
	AmbiguityQuantity: {
		description: "Quantity is not stated for %q",
		question:    "What quantity is required for %q?",
		interpretations: []string{
			"Measure from drawings",
			"Use a provisional allowance",
			"Client to confirm quantity",
		},
		impact:   -20,
		priority: PriorityHigh,
	},
	AmbiguityLocation: {
		description: "Location is not stated for %q",
		question:    "Where should %q be carried out?",
		interpretations: []string{
			"Throughout the building",
			"Specific room to be confirmed",
			"External areas only",
		},
		impact:   -10,
		priority: PriorityLow,
	},
}

func (p *Parser) newAmbiguity(item Item, t AmbiguityType) Ambiguity {
	tpl := ambiguityTemplates[t]
	short := Shorten(item.Description, 60)
	return Ambiguity{
		ID:                p.ids.NewID(),
		ScopeItemID:       item.ID,
		Type:              t,
		Description:       fmt.Sprintf(tpl.description, short),
		Interpretations:   append([]string(nil), tpl.interpretations...),
		SuggestedQuestion: fmt.Sprintf(tpl.question, short),
		ConfidenceImpact:  tpl.impact,
		Priority:          tpl.priority,
	}
}

func (p *Parser) detectAmbiguities(item Item, f sectionFacts) []Ambiguity {
	var out []Ambiguity
	if !f.hasMaterial {
		out = append(out, p.newAmbiguity(item, AmbiguityMaterial))
	}
	if !f.quantityIndicator {
		out = append(out, p.newAmbiguity(item, AmbiguityQuantity))
	}
	if item.Location == "" && impliesPlacement(item.Category) {
		out = append(out, p.newAmbiguity(item, AmbiguityLocation))
	}
	return out
}

func impliesPlacement(c Category) bool {
	return c == CategoryInstall || c == CategorySupplyInstall || c == CategoryDemolition
}

func (p *Parser) completeness(item Item, f sectionFacts) float64 {
	w := p.rules.Completeness
	var s float64
	if f.hasAction {
		s += w.Action
	}
	if item.Location != "" {
		s += w.Location
	}
	if len(item.Specifications) > 0 {
		s += w.Specifications
	}
	if item.Quantity.HasBaseQuantity() {
		s += w.Quantity
	}
	return s
}

func (p *Parser) fallbackItem(text string) (Item, Ambiguity) {
	r := p.rules
	mt := p.classifyMeasurement(text, CategorySupplyInstall, "")
	item := Item{
		ID:              p.ids.NewID(),
		Description:     text,
		Category:        CategorySupplyInstall,
		MeasurementType: mt,
		Quantity: &QuantityRequirement{
			MeasurementType:  mt,
			Unit:             mt.DefaultUnit(),
			WasteFactor:      r.DefaultWaste,
			AccessFactor:     1,
			ComplexityFactor: 1,
			Notes:            []string{"scope text could not be decomposed"},
		},
		Confidence: confidence.New(r.Confidence.FallbackScore, nil,
			[]string{UncertaintyMaterial, UncertaintyQuantity, UncertaintyLocation}),
	}
	return item, p.newAmbiguity(item, AmbiguityQuantity)
}

func (p *Parser) aggregate(a *Analysis, completeness []float64) {
	scores := make([]float64, len(a.Items))
	descriptions := make([]string, len(a.Items))
	for i, item := range a.Items {
		scores[i] = item.Confidence.Score
		descriptions[i] = item.Description
	}
	a.Completeness = confidence.Round(confidence.Mean(completeness), 2)
	a.Confidence = confidence.Round(confidence.Clamp(
		confidence.Mean(scores)-p.rules.AmbiguityPenalty*float64(len(a.Ambiguities))), 2)
	a.ComplianceNotes = p.compliance.Notes(p.jurisdiction, descriptions...)
}

// Shorten truncates s to max runes, adding an ellipsis when cut.
func Shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
