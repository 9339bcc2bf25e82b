package questions

import (
	"regexp"
	"strings"

	"scope-quote/pkg/units"
)

// Standards lists answer options for material families that have recognised
// product grades. Keys match scope material family names.
type Standards map[string][]string

// DefaultStandards returns the built-in grade tables.
func DefaultStandards() Standards {
	return Standards{
		"timber": {
			"MGP10 structural pine (standard)",
			"MGP12 structural pine",
			"F17 hardwood",
			"LVL engineered timber (premium)",
		},
		"concrete": {
			"N20 concrete (standard)",
			"N25 concrete",
			"N32 high strength concrete",
			"Engineer-specified mix",
		},
		"steel": {
			"Galvanised mild steel (standard)",
			"Colorbond pre-painted steel",
			"Stainless steel (premium)",
		},
		"insulation": {
			"R2.0 glasswool batts (standard)",
			"R2.5 glasswool batts",
			"R3.5 high performance batts",
			"Reflective foil sarking",
		},
	}
}

// standardHints infer a material family from the work described when no
// material keyword is present.
var standardHints = []struct {
	Family  string
	Pattern *regexp.Regexp
}{
	{"timber", regexp.MustCompile(`(?i)\b(fram(e|es|ing)|studs?|joists?|bearers?|rafters?|decking|pergola|noggings?)\b`)},
	{"concrete", regexp.MustCompile(`(?i)\b(slabs?|footings?|driveway|path(way)?s?|piers?|kerbs?)\b`)},
	{"steel", regexp.MustCompile(`(?i)\b(gutters?|downpipes?|lintels?|beams?|posts?|balustrades?|flashings?)\b`)},
	{"insulation", regexp.MustCompile(`(?i)\b(thermal|acoustic|ceiling\s+space|roof\s+space|underfloor)\b`)},
}

var genericGrades = []string{
	"Standard builder's grade",
	"Mid-range grade",
	"Premium grade",
	"Client-supplied material",
}

// SanityRule flags a stated quantity outside a plausible range for its unit
// and description. A zero bound is not checked.
type SanityRule struct {
	Name            string
	Unit            units.Unit
	Pattern         *regexp.Regexp
	Min             float64
	Max             float64
	ResidentialOnly bool
}

// Check reports whether q violates the rule.
func (r SanityRule) Check(q float64, unit units.Unit, description, projectType string) bool {
	if unit != r.Unit || !r.Pattern.MatchString(description) {
		return false
	}
	if r.ResidentialOnly && isNonResidential(projectType) {
		return false
	}
	return (r.Max > 0 && q > r.Max) || (r.Min > 0 && q < r.Min)
}

func isNonResidential(projectType string) bool {
	switch strings.ToLower(strings.TrimSpace(projectType)) {
	case "commercial", "industrial", "retail", "office":
		return true
	}
	return false
}

// DefaultSanityRules is the fixed plausibility table.
func DefaultSanityRules() []SanityRule {
	floor := regexp.MustCompile(`(?i)\b(floors?|flooring|tiles?|tiling|carpet|vinyl|laminate|timber\s+floor\w*)\b`)
	return []SanityRule{
		{Name: "floor_area_large", Unit: units.UnitSquareMetre, Pattern: floor, Max: 1000, ResidentialOnly: true},
		{Name: "floor_area_small", Unit: units.UnitSquareMetre, Pattern: floor, Min: 1},
		{Name: "wall_area_large", Unit: units.UnitSquareMetre, Pattern: regexp.MustCompile(`(?i)\b(walls?|plasterboard|cladding|render)\b`), Max: 2000, ResidentialOnly: true},
		{Name: "skirting_length", Unit: units.UnitMetre, Pattern: regexp.MustCompile(`(?i)\b(skirtings?|architraves?|cornices?)\b`), Max: 500},
		{Name: "door_count", Unit: units.UnitEach, Pattern: regexp.MustCompile(`(?i)\bdoors?\b`), Max: 50},
		{Name: "window_count", Unit: units.UnitEach, Pattern: regexp.MustCompile(`(?i)\bwindows?\b`), Max: 50},
		{Name: "concrete_volume", Unit: units.UnitCubicMetre, Pattern: regexp.MustCompile(`(?i)\b(concrete|slab|footings?)\b`), Max: 200, ResidentialOnly: true},
	}
}

// optionRule maps label keywords to option effects.
type optionRule struct {
	Pattern *regexp.Regexp
	Delta   float64
}

var (
	costIncreaseWords = regexp.MustCompile(`(?i)\b(premium|high|certified|custom|upgrade\w*|additional|specialist|engineer)\b`)
	costDecreaseWords = regexp.MustCompile(`(?i)\b(client[- ]supplied|existing|reuse|economy|basic)\b`)

	confidenceRules = []optionRule{
		{regexp.MustCompile(`(?i)\b(standard|typical|measure\w*)\b`), 20},
		{regexp.MustCompile(`(?i)\bdrawings?\b`), 15},
		{regexp.MustCompile(`(?i)\b(provisional|confirm\w*|allowance)\b`), 5},
	}
	defaultConfidenceDelta = 10.0
)

var (
	wallWords = regexp.MustCompile(`(?i)\b(walls?|partitions?|plasterboard|stud\w*|lining)\b`)
	roofWords = regexp.MustCompile(`(?i)\b(roof\w*|gutters?|fascias?|sheeting)\b`)
)

var (
	wallMethods    = []string{"Timber stud framing (standard)", "Steel stud framing", "Direct fix to existing masonry"}
	roofMethods    = []string{"Screw-fixed sheeting on existing battens (standard)", "Concealed-fix sheeting (premium)", "Replace battens as required"}
	genericMethods = []string{"Standard installation", "Specialist subcontractor installation", "Client to install"}
)
