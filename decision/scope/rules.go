package scope

import (
	"regexp"

	"scope-quote/pkg/units"
)

// Rule is one weighted pattern inside a classification family. A family's
// score is the sum of the weights of its matching rules, capped at 1.
type Rule struct {
	Pattern *regexp.Regexp
	Weight  float64
}

// MeasurementFamily scores one measurement type.
type MeasurementFamily struct {
	Type  MeasurementType
	Rules []Rule
}

// FallbackNouns are the work nouns that imply a measurement type when no
// explicit unit wording is present.
type FallbackNouns struct {
	Type    MeasurementType
	Pattern *regexp.Regexp
}

// MaterialFamily is a material keyword group with its default waste allowance.
type MaterialFamily struct {
	Name    string
	Pattern *regexp.Regexp
	Waste   float64
}

// FactorRule maps a keyword group to a multiplier. When several rules match,
// the largest factor applies.
type FactorRule struct {
	Name    string
	Pattern *regexp.Regexp
	Factor  float64
}

// QuantityPattern recognises one explicit-quantity phrasing. Group 1 holds the
// number; UnitGroup, when non-zero, holds a unit spelling to normalise.
type QuantityPattern struct {
	Name            string
	Pattern         *regexp.Regexp
	MeasurementType MeasurementType
	Unit            units.Unit
	UnitGroup       int
}

// ConfidenceWeights are the additive item confidence model constants.
type ConfidenceWeights struct {
	Base              float64
	ClearAction       float64
	Material          float64
	Location          float64
	Specifications    float64
	QuantityIndicator float64
	Unambiguous       float64
	ExplicitQuantity  float64
	Dimensions        float64
	ComplexityPenalty float64
	FallbackScore     float64
}

// CompletenessWeights score structural completeness of an item out of 100.
type CompletenessWeights struct {
	Action         float64
	Location       float64
	Specifications float64
	Quantity       float64
}

// Rules is the immutable rule set the parser runs on. Build it once with
// DefaultRules and share it; nothing mutates it after construction.
type Rules struct {
	Supply      []Rule
	Install     []Rule
	Demolition  []Rule
	Preparation []Rule

	// DominanceThreshold is the score above which demolition or preparation
	// wins outright; SupplyInstallRatio decides supply vs install.
	DominanceThreshold float64
	SupplyInstallRatio float64

	Rooms        *regexp.Regexp
	Levels       *regexp.Regexp
	Orientations *regexp.Regexp

	Dimensions   []*regexp.Regexp
	Materials    []MaterialFamily
	ProductCodes []*regexp.Regexp

	Measurements         []MeasurementFamily
	MeasurementThreshold float64
	Fallbacks            []FallbackNouns
	FallbackOrder        map[Category][]MeasurementType

	Quantities         []QuantityPattern
	QuantityIndicators *regexp.Regexp
	Approximate        *regexp.Regexp

	DefaultWaste float64
	Access       []FactorRule
	Complexity   []FactorRule

	AmbiguityWords  *regexp.Regexp
	ComplexityWords *regexp.Regexp

	Confidence   ConfidenceWeights
	Completeness CompletenessWeights

	// AmbiguityPenalty is subtracted from overall confidence per ambiguity.
	AmbiguityPenalty float64
	// MinSectionLength drops shorter sentence fragments.
	MinSectionLength int
}

func re(p string) *regexp.Regexp { return regexp.MustCompile(p) }

// DefaultAccessRules is the site-access keyword table shared with the calculator.
func DefaultAccessRules() []FactorRule {
	return []FactorRule{
		{Name: "crane", Pattern: re(`(?i)\bcranes?\b`), Factor: 1.5},
		{Name: "restricted", Pattern: re(`(?i)\b(confined|restricted\s+access|tight\s+access|limited\s+access|difficult\s+access)\b`), Factor: 1.3},
		{Name: "height", Pattern: re(`(?i)\b(scaffold\w*|working\s+at\s+heights?|high\s+level|elevated)\b`), Factor: 1.2},
		{Name: "roof", Pattern: re(`(?i)\b(roof|roofs|rooftop)\b`), Factor: 1.15},
		{Name: "upper_storey", Pattern: re(`(?i)\b(upstairs|first\s+floor|second\s+floor|upper\s+floor|second\s+storey|two[- ]storey)\b`), Factor: 1.1},
	}
}

// DefaultComplexityRules is the construction-complexity keyword table shared with the calculator.
func DefaultComplexityRules() []FactorRule {
	return []FactorRule{
		{Name: "custom", Pattern: re(`(?i)\b(custom|bespoke|made\s+to\s+measure)\b`), Factor: 1.8},
		{Name: "intricate", Pattern: re(`(?i)\b(intricate|ornate)\b`), Factor: 1.5},
		{Name: "heritage", Pattern: re(`(?i)\b(heritage|restoration)\b`), Factor: 1.4},
		{Name: "complex", Pattern: re(`(?i)\b(complex|curved|raked|angled|irregular|cathedral)\b`), Factor: 1.3},
		{Name: "feature", Pattern: re(`(?i)\b(feature|non[- ]standard)\b`), Factor: 1.15},
	}
}

// DefaultMaterialFamilies lists material keyword groups in lookup order. The
// first matching family supplies the default waste factor.
func DefaultMaterialFamilies() []MaterialFamily {
	return []MaterialFamily{
		{Name: "timber", Pattern: re(`(?i)\b(MGP\s?\d{2}|F\d{1,2}|LVL|GL\d{1,2}|hardwood|treated\s+pine|pine|timber|merbau|spotted\s+gum|blackbutt|oak)\b`), Waste: 0.10},
		{Name: "plasterboard", Pattern: re(`(?i)\b(plasterboard|gyprock|drywall)\b`), Waste: 0.12},
		{Name: "sheet", Pattern: re(`(?i)\b(plywood|ply|MDF|particleboard|chipboard|fibre\s+cement|villaboard|hardiflex|OSB)\b`), Waste: 0.10},
		{Name: "concrete", Pattern: re(`(?i)\b(concrete|N\d{2}|\d{2}\s?MPa|reinforc\w*|SL\d{2,3})\b`), Waste: 0.05},
		{Name: "steel", Pattern: re(`(?i)\b(steel|galvani[sz]ed|colorbond|zincalume|C\d{3}|UB|UC|PFC|RHS|SHS|alumini?um)\b`), Waste: 0.05},
		{Name: "insulation", Pattern: re(`(?i)\b(insulation|batts?|R\d(\.\d)?|sarking|anticon)\b`), Waste: 0.05},
		{Name: "tiles", Pattern: re(`(?i)\b(tiles?|tiling|ceramic|porcelain|mosaic|travertine|marble|granite)\b`), Waste: 0.15},
		{Name: "floor_covering", Pattern: re(`(?i)\b(carpet|vinyl|laminate|lino(leum)?|underlay|floorboards?)\b`), Waste: 0.10},
		{Name: "paint", Pattern: re(`(?i)\b(paint|primer|sealer|undercoat|stain|varnish|enamel|acrylic)\b`), Waste: 0.10},
		{Name: "masonry", Pattern: re(`(?i)\b(bricks?|blocks?|besser|masonry|mortar|render)\b`), Waste: 0.08},
		{Name: "glazing", Pattern: re(`(?i)\b(glass|glazing|double[- ]glazed|toughened)\b`), Waste: 0.05},
		{Name: "roofing", Pattern: re(`(?i)\b(roofing|corrugated|klip[- ]?lok|terracotta)\b`), Waste: 0.10},
		{Name: "membrane", Pattern: re(`(?i)\b(membrane|waterproof\w*|sealant|silicone)\b`), Waste: 0.10},
	}
}

const num = `(\d+(?:\.\d+)?)`

// DefaultRules returns the built-in rule set.
func DefaultRules() *Rules {
	return &Rules{
		Supply: []Rule{
			{re(`(?i)\bsuppl(y|ied|ies)\b`), 0.8},
			{re(`(?i)\bprovid(e|es|ed|ing)\b`), 0.6},
			{re(`(?i)\bpurchase[sd]?\b`), 0.6},
			{re(`(?i)\bdeliver(y|ed|s)?\b`), 0.5},
			{re(`(?i)\bprocure\b`), 0.5},
			{re(`(?i)\bnew\b`), 0.2},
		},
		Install: []Rule{
			{re(`(?i)\binstall(s|ed|ing|ation)?\b`), 0.8},
			{re(`(?i)\bfit(s|ted|ting)?\b`), 0.6},
			{re(`(?i)\berect(ed|ion)?\b`), 0.6},
			{re(`(?i)\blay(ing)?\b`), 0.6},
			{re(`(?i)\bhang(ing)?\b`), 0.6},
			{re(`(?i)\bfix(ed|ing)?\b`), 0.5},
			{re(`(?i)\bmount(ed|ing)?\b`), 0.5},
			{re(`(?i)\b(construct(ed|ion)?|build)\b`), 0.5},
			{re(`(?i)\bpaint(ing)?\b`), 0.5},
			{re(`(?i)\bpour(ed|ing)?\b`), 0.5},
			{re(`(?i)\b(replace(ment)?|apply)\b`), 0.4},
		},
		Demolition: []Rule{
			{re(`(?i)\b(demolish(ed|ing)?|demolition)\b`), 0.9},
			{re(`(?i)\bremov(e|al|ing)\b`), 0.8},
			{re(`(?i)\b(strip|rip|break)\s+out\b`), 0.8},
			{re(`(?i)\bdismantl(e|ing)\b`), 0.8},
			{re(`(?i)\bdispos(e|al)\b`), 0.4},
		},
		Preparation: []Rule{
			{re(`(?i)\bprepar(e|ation)\b`), 0.8},
			{re(`(?i)\bexcavat(e|ion)\b`), 0.8},
			{re(`(?i)\bsand(ing)?\b`), 0.5},
			{re(`(?i)\bprim(e|ing)\b`), 0.5},
			{re(`(?i)\blevell?ing\b`), 0.5},
			{re(`(?i)\bgrind(ing)?\b`), 0.5},
			{re(`(?i)\bset\s*out\b`), 0.5},
			{re(`(?i)\b(clean(ing)?|patch(ing)?)\b`), 0.4},
		},
		DominanceThreshold: 0.7,
		SupplyInstallRatio: 1.5,

		Rooms:        re(`(?i)\b(kitchen|bathroom|bedroom|ensuite|laundry|living(\s+room)?|dining(\s+room)?|lounge|family\s+room|garage|hallway|entry|foyer|study|office|pantry|toilet|wc|powder\s+room|deck|patio|balcony|alfresco|verandah|porch|staircase|stairwell|attic|driveway|backyard|front\s+yard)\b`),
		Levels:       re(`(?i)\b(ground\s+floor|first\s+floor|second\s+floor|third\s+floor|upper\s+floor|lower\s+floor|level\s+\d+|upstairs|downstairs|mezzanine|basement)\b`),
		Orientations: re(`(?i)\b(north(ern)?|south(ern)?|east(ern)?|west(ern)?|front|rear|external|internal|exterior|interior)\b`),

		Dimensions: []*regexp.Regexp{
			re(`(?i)\b\d+(?:\.\d+)?\s*[x×]\s*\d+(?:\.\d+)?(?:\s*[x×]\s*\d+(?:\.\d+)?)?\s*(?:mm|cm|m)?\b`),
			re(`(?i)\b\d+(?:\.\d+)?\s?(?:mm|cm)\b`),
			re(`(?i)\b\d+(?:\.\d+)?\s?m\s+(?:high|long|wide|deep|tall|thick)\b`),
		},
		Materials: DefaultMaterialFamilies(),
		ProductCodes: []*regexp.Regexp{
			re(`\b[A-Z]{2,5}-?\d{2,6}[A-Z0-9-]*\b`),
		},

		Measurements: []MeasurementFamily{
			{Type: MeasurementLinear, Rules: []Rule{
				{re(`(?i)\b\d+(?:\.\d+)?\s*(?:lm|lin\.?\s?m|l/m)\b`), 0.6},
				{re(`(?i)\b(linear|lineal|running)\s+met(er|re)s?\b`), 0.6},
				{re(`(?i)\bperimeter\b`), 0.4},
				{re(`(?i)\blength\b`), 0.3},
			}},
			{Type: MeasurementArea, Rules: []Rule{
				{re(`(?i)(\bsqm\b|\bsq\.?\s?m\b|\bm2\b|m²)`), 0.6},
				{re(`(?i)\bsquare\s+met(er|re)s?\b`), 0.6},
				{re(`(?i)\barea\b`), 0.3},
				{re(`(?i)\b(floor|ceiling|wall)\s+surface\b`), 0.3},
			}},
			{Type: MeasurementVolume, Rules: []Rule{
				{re(`(?i)(\bm3\b|m³|\bcu\.?\s?m\b)`), 0.6},
				{re(`(?i)\bcubic\s+met(er|re)s?\b`), 0.6},
				{re(`(?i)\bvolume\b`), 0.4},
				{re(`(?i)\b(pour|backfill)\b`), 0.2},
			}},
			{Type: MeasurementCount, Rules: []Rule{
				{re(`(?i)\b\d+\s*x\s+[a-z]`), 0.6},
				{re(`(?i)\b(qty|quantity)\s*:?\s*\d+`), 0.5},
				{re(`(?i)\b(each|pcs|nr)\b`), 0.4},
			}},
		},
		MeasurementThreshold: 0.3,
		Fallbacks: []FallbackNouns{
			{Type: MeasurementCount, Pattern: re(`(?i)\b(doors?|windows?|fixtures?|lights?|downlights?|fans?|taps?|toilets?|basins?|vanit(y|ies)|sinks?|power\s*points?|gpos?|switch(es)?|outlets?|handles?|locks?|hinges?|smoke\s+alarms?|skylights?|mirrors?|towel\s+rails?|appliances?|cooktops?|ovens?|rangehoods?|dishwashers?|heaters?)\b`)},
			{Type: MeasurementLinear, Pattern: re(`(?i)\b(skirtings?|architraves?|cornices?|trims?|gutters?|fascias?|handrails?|balustrades?|pipes?|piping|cables?|cabling|fenc(e|es|ing)|edging|flashings?|downpipes?|kickboards?|beading|capping)\b`)},
			{Type: MeasurementVolume, Pattern: re(`(?i)\b(concrete|slabs?|footings?|excavation|backfill|fill|soil|gravel|mulch|topsoil)\b`)},
			{Type: MeasurementArea, Pattern: re(`(?i)\b(walls?|floors?|flooring|ceilings?|roofs?|roofing|decks?|decking|paint(ing)?|til(e|es|ing)|carpet|plaster(board)?|cladding|sheeting|lining|render(ing)?|membrane|waterproofing|insulation|paving|screed|lawn|turf)\b`)},
		},
		FallbackOrder: map[Category][]MeasurementType{
			CategorySupply:        {MeasurementCount, MeasurementLinear, MeasurementVolume, MeasurementArea},
			CategoryInstall:       {MeasurementCount, MeasurementLinear, MeasurementVolume, MeasurementArea},
			CategorySupplyInstall: {MeasurementCount, MeasurementLinear, MeasurementVolume, MeasurementArea},
			CategoryDemolition:    {MeasurementArea, MeasurementVolume, MeasurementLinear, MeasurementCount},
			CategoryPreparation:   {MeasurementArea, MeasurementVolume, MeasurementLinear, MeasurementCount},
		},

		Quantities: []QuantityPattern{
			{Name: "multiplier", Pattern: re(`(?i)\b(\d+)\s*x\s+[a-z]`), MeasurementType: MeasurementCount, Unit: units.UnitEach},
			{Name: "linear_words", Pattern: re(`(?i)\b` + num + `\s*(?:linear|lineal|running)\s+met(?:er|re)s?\b`), MeasurementType: MeasurementLinear, Unit: units.UnitMetre},
			{Name: "square_words", Pattern: re(`(?i)\b` + num + `\s*square\s+met(?:er|re)s?\b`), MeasurementType: MeasurementArea, Unit: units.UnitSquareMetre},
			{Name: "cubic_words", Pattern: re(`(?i)\b` + num + `\s*cubic\s+met(?:er|re)s?\b`), MeasurementType: MeasurementVolume, Unit: units.UnitCubicMetre},
			{Name: "area_abbrev", Pattern: re(`(?i)\b` + num + `\s*(?:sqm\b|sq\.?\s?m\b|m2\b|m²)`), MeasurementType: MeasurementArea, Unit: units.UnitSquareMetre},
			{Name: "linear_abbrev", Pattern: re(`(?i)\b` + num + `\s*(?:lm\b|lin\.?\s?m\b|l/m\b)`), MeasurementType: MeasurementLinear, Unit: units.UnitMetre},
			{Name: "volume_abbrev", Pattern: re(`(?i)\b` + num + `\s*(?:m3\b|m³|cu\.?\s?m\b)`), MeasurementType: MeasurementVolume, Unit: units.UnitCubicMetre},
			{Name: "count_nouns", Pattern: re(`(?i)\b(\d+)\s+(?:no\.?\s+)?(?:new\s+)?(?:doors?|windows?|lights?|downlights?|units?|pieces|pcs|fixtures?|taps?|toilets?|basins?|sinks?|fans?|power\s*points?|gpos?|skylights?|posts?|panels?|sheets?|lengths?|bags?)\b`), MeasurementType: MeasurementCount, Unit: units.UnitEach},
			{Name: "approximate", Pattern: re(`(?i)(?:\b(?:approximately|approx\.?|about|around|roughly|circa)|~)\s*` + num + `\s*((?:square|cubic|linear|lineal)\s+met(?:er|re)s?|[a-z²³]+)?`), UnitGroup: 2},
		},
		QuantityIndicators: re(`(?i)\b(all|entire|whole|throughout|every)\b`),
		Approximate:        re(`(?i)(\b(approximately|approx|about|around|roughly|circa)\b|~)`),

		DefaultWaste: 0.10,
		Access:       DefaultAccessRules(),
		Complexity:   DefaultComplexityRules(),

		AmbiguityWords:  re(`(?i)\b(or|maybe|either|possibly|perhaps|tbc|tba|tbd|optional|etc)\b`),
		ComplexityWords: re(`(?i)\b(complex|custom|bespoke|curved|intricate|various|multiple|heritage|irregular)\b`),

		Confidence: ConfidenceWeights{
			Base:              50,
			ClearAction:       12,
			Material:          10,
			Location:          8,
			Specifications:    8,
			QuantityIndicator: 8,
			Unambiguous:       4,
			ExplicitQuantity:  5,
			Dimensions:        3,
			ComplexityPenalty: 10,
			FallbackScore:     20,
		},
		Completeness: CompletenessWeights{
			Action:         30,
			Location:       20,
			Specifications: 25,
			Quantity:       25,
		},
		AmbiguityPenalty: 5,
		MinSectionLength: 10,
	}
}

// Score sums the weights of matching rules, capped at 1.
func Score(rules []Rule, text string) float64 {
	var s float64
	for _, r := range rules {
		if r.Pattern.MatchString(text) {
			s += r.Weight
		}
	}
	if s > 1 {
		return 1
	}
	return s
}

// MaxFactor returns the largest factor among matching rules, or 1.
func MaxFactor(rules []FactorRule, text string) (float64, string) {
	factor, name := 1.0, ""
	for _, r := range rules {
		if r.Pattern.MatchString(text) && r.Factor > factor {
			factor, name = r.Factor, r.Name
		}
	}
	return factor, name
}

// MaterialFor returns the first material family that matches text.
func MaterialFor(families []MaterialFamily, text string) (MaterialFamily, bool) {
	for _, f := range families {
		if f.Pattern.MatchString(text) {
			return f, true
		}
	}
	return MaterialFamily{}, false
}
