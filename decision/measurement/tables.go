// Package measurement provides the Measurement Calculator: it turns a scope
// item plus any drawing elements into an adjusted quantity with recorded
// assumptions.
package measurement

import (
	"strings"

	"scope-quote/decision/compliance"
	"scope-quote/decision/scope"
)

// ConfidenceAdjustments are the additive terms of the measurement confidence
// model. The result is averaged with the scope item's own score.
type ConfidenceAdjustments struct {
	Base             float64 `koanf:"base" json:"base"`
	ElementsFound    float64 `koanf:"elements_found" json:"elements_found"`
	NoElements       float64 `koanf:"no_elements" json:"no_elements"`
	PositiveQuantity float64 `koanf:"positive_quantity" json:"positive_quantity"`
	ZeroQuantity     float64 `koanf:"zero_quantity" json:"zero_quantity"`
	PerAssumption    float64 `koanf:"per_assumption" json:"per_assumption"`
}

// Tables holds every numeric constant the calculator uses. Tables are read
// only once built; Apply returns a modified copy.
type Tables struct {
	Materials     []scope.MaterialFamily
	DefaultWaste  float64
	CountWaste    float64
	AssemblyWaste float64

	Access     []scope.FactorRule
	Complexity []scope.FactorRule

	RoofPitchFactor          float64
	ResidentialCeilingHeight float64
	CommercialCeilingHeight  float64
	DefaultSlabThickness     float64

	Confidence ConfidenceAdjustments

	Compliance   *compliance.Table
	Jurisdiction compliance.Jurisdiction
}

// DefaultTables returns the built-in constants.
func DefaultTables() *Tables {
	return &Tables{
		Materials:     scope.DefaultMaterialFamilies(),
		DefaultWaste:  0.10,
		CountWaste:    0,
		AssemblyWaste: 0.15,

		Access:     scope.DefaultAccessRules(),
		Complexity: scope.DefaultComplexityRules(),

		RoofPitchFactor:          1.15,
		ResidentialCeilingHeight: 2.4,
		CommercialCeilingHeight:  2.7,
		DefaultSlabThickness:     0.1,

		Confidence: ConfidenceAdjustments{
			Base:             70,
			ElementsFound:    20,
			NoElements:       -30,
			PositiveQuantity: 10,
			ZeroQuantity:     -20,
			PerAssumption:    -5,
		},

		Compliance:   compliance.DefaultTable(),
		Jurisdiction: compliance.JurisdictionAU,
	}
}

// Overrides is the configurable subset of Tables. Zero values and nil
// pointers keep the existing constant.
type Overrides struct {
	Waste                    map[string]float64     `koanf:"waste"`
	DefaultWaste             *float64               `koanf:"default_waste"`
	CountWaste               *float64               `koanf:"count_waste"`
	AssemblyWaste            *float64               `koanf:"assembly_waste"`
	Access                   map[string]float64     `koanf:"access"`
	Complexity               map[string]float64     `koanf:"complexity"`
	RoofPitchFactor          float64                `koanf:"roof_pitch_factor"`
	ResidentialCeilingHeight float64                `koanf:"residential_ceiling_height"`
	CommercialCeilingHeight  float64                `koanf:"commercial_ceiling_height"`
	DefaultSlabThickness     float64                `koanf:"default_slab_thickness"`
	Confidence               *ConfidenceAdjustments `koanf:"confidence"`
	Jurisdiction             string                 `koanf:"jurisdiction"`
}

// Apply returns a copy of t with o applied. Keys in the waste, access and
// complexity maps name existing families; unknown keys are ignored.
func (t *Tables) Apply(o Overrides) *Tables {
	out := *t

	out.Materials = make([]scope.MaterialFamily, len(t.Materials))
	for i, f := range t.Materials {
		if w, ok := o.Waste[f.Name]; ok {
			f.Waste = w
		}
		out.Materials[i] = f
	}
	out.Access = applyFactors(t.Access, o.Access)
	out.Complexity = applyFactors(t.Complexity, o.Complexity)

	if o.DefaultWaste != nil {
		out.DefaultWaste = *o.DefaultWaste
	}
	if o.CountWaste != nil {
		out.CountWaste = *o.CountWaste
	}
	if o.AssemblyWaste != nil {
		out.AssemblyWaste = *o.AssemblyWaste
	}
	if o.RoofPitchFactor > 0 {
		out.RoofPitchFactor = o.RoofPitchFactor
	}
	if o.ResidentialCeilingHeight > 0 {
		out.ResidentialCeilingHeight = o.ResidentialCeilingHeight
	}
	if o.CommercialCeilingHeight > 0 {
		out.CommercialCeilingHeight = o.CommercialCeilingHeight
	}
	if o.DefaultSlabThickness > 0 {
		out.DefaultSlabThickness = o.DefaultSlabThickness
	}
	if o.Confidence != nil {
		out.Confidence = *o.Confidence
	}
	if o.Jurisdiction != "" {
		out.Jurisdiction = compliance.Jurisdiction(o.Jurisdiction)
	}
	return &out
}

func applyFactors(rules []scope.FactorRule, overrides map[string]float64) []scope.FactorRule {
	out := make([]scope.FactorRule, len(rules))
	for i, r := range rules {
		if f, ok := overrides[r.Name]; ok && f > 0 {
			r.Factor = f
		}
		out[i] = r
	}
	return out
}

// CeilingHeight returns the standard ceiling height for a building type.
func (t *Tables) CeilingHeight(buildingType string) float64 {
	if isCommercial(buildingType) {
		return t.CommercialCeilingHeight
	}
	return t.ResidentialCeilingHeight
}

func isCommercial(buildingType string) bool {
	switch strings.ToLower(strings.TrimSpace(buildingType)) {
	case "commercial", "industrial", "retail", "office":
		return true
	}
	return false
}
