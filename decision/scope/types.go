// Package scope provides the Scope Parser: it decomposes free-text scope of
// work into structured items and records what it could not determine.
package scope

import (
	"scope-quote/pkg/confidence"
	"scope-quote/pkg/units"
)

// Category is the kind of work an item describes.
type Category string

const (
	CategorySupply        Category = "supply"
	CategoryInstall       Category = "install"
	CategorySupplyInstall Category = "supply_install"
	CategoryDemolition    Category = "demolition"
	CategoryPreparation   Category = "preparation"
)

// MeasurementType selects the quantity calculation for an item.
type MeasurementType string

const (
	MeasurementLinear   MeasurementType = "linear"
	MeasurementArea     MeasurementType = "area"
	MeasurementVolume   MeasurementType = "volume"
	MeasurementCount    MeasurementType = "count"
	MeasurementAssembly MeasurementType = "assembly"
)

// Kind maps a measurement type to its unit kind.
func (m MeasurementType) Kind() units.Kind {
	return units.Kind(m)
}

// DefaultUnit is the canonical unit for the measurement type.
func (m MeasurementType) DefaultUnit() units.Unit {
	return units.ForKind(m.Kind())
}

// AmbiguityType classifies a detected gap.
type AmbiguityType string

const (
	AmbiguityMaterial AmbiguityType = "material_specification"
	AmbiguityQuantity AmbiguityType = "quantity_unclear"
	AmbiguityLocation AmbiguityType = "location_undefined"
)

// Priority orders ambiguities and questions.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Uncertainty keys recorded on item confidence.
const (
	UncertaintyMaterial = "material"
	UncertaintyQuantity = "quantity"
	UncertaintyLocation = "location"
)

// QuantityRequirement is what the text says about how much work there is.
type QuantityRequirement struct {
	MeasurementType  MeasurementType `json:"measurement_type"`
	Unit             units.Unit      `json:"unit"`
	BaseQuantity     *float64        `json:"base_quantity,omitempty"`
	WasteFactor      float64         `json:"waste_factor"`
	AccessFactor     float64         `json:"access_factor"`
	ComplexityFactor float64         `json:"complexity_factor"`
	Notes            []string        `json:"notes,omitempty"`
}

// HasBaseQuantity reports whether the text stated an explicit quantity.
func (q *QuantityRequirement) HasBaseQuantity() bool {
	return q != nil && q.BaseQuantity != nil
}

// Item is one unit of work. It is never modified after parsing.
type Item struct {
	ID              string               `json:"id"`
	Description     string               `json:"description"`
	Category        Category             `json:"category"`
	Location        string               `json:"location,omitempty"`
	Specifications  []string             `json:"specifications,omitempty"`
	Quantity        *QuantityRequirement `json:"quantity_requirements,omitempty"`
	MeasurementType MeasurementType      `json:"measurement_type"`
	Confidence      confidence.Level     `json:"confidence"`
}

// Ambiguity is a gap in the text tied to one item.
type Ambiguity struct {
	ID                string        `json:"id"`
	ScopeItemID       string        `json:"scope_item_id"`
	Type              AmbiguityType `json:"type"`
	Description       string        `json:"description"`
	Interpretations   []string      `json:"possible_interpretations"`
	SuggestedQuestion string        `json:"suggested_question"`
	ConfidenceImpact  float64       `json:"confidence_impact"`
	Priority          Priority      `json:"priority"`
}

// Analysis is the parser output for one scope text.
type Analysis struct {
	Items           []Item      `json:"items"`
	Ambiguities     []Ambiguity `json:"ambiguities"`
	Completeness    float64     `json:"completeness"`
	Confidence      float64     `json:"confidence"`
	ComplianceNotes []string    `json:"compliance_notes,omitempty"`
	Context         []string    `json:"context,omitempty"`
}

// AmbiguitiesFor returns the ambiguities attached to an item, in order.
func (a *Analysis) AmbiguitiesFor(itemID string) []Ambiguity {
	var out []Ambiguity
	for _, amb := range a.Ambiguities {
		if amb.ScopeItemID == itemID {
			out = append(out, amb)
		}
	}
	return out
}
