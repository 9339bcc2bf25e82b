// Package drawing holds the building-element facts supplied by the external
// drawing-analysis collaborator and the helpers the estimator uses to consume them.
package drawing

import (
	"fmt"
	"sort"
	"strings"

	"scope-quote/pkg/units"
)

// BuildingElement is a structured fact extracted from drawings. Dimensions are
// metres; zero means not supplied.
type BuildingElement struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Location   string     `json:"location,omitempty"`
	Length     float64    `json:"length,omitempty"`
	Width      float64    `json:"width,omitempty"`
	Height     float64    `json:"height,omitempty"`
	Area       float64    `json:"area,omitempty"`
	Quantity   float64    `json:"quantity"`
	Unit       units.Unit `json:"unit,omitempty"`
	Confidence float64    `json:"confidence"`
}

// RawElement is the record shape handed over by the drawing-analysis
// collaborator. Confidence may be on a 0-1 or 0-100 scale; dimensions may be
// keyed by any of the names in dimensionKeys.
type RawElement struct {
	ID         string             `json:"id,omitempty"`
	Type       string             `json:"type"`
	Location   string             `json:"location,omitempty"`
	Dimensions map[string]float64 `json:"dimensions,omitempty"`
	Quantity   float64            `json:"quantity,omitempty"`
	Unit       string             `json:"unit,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
}

var dimensionKeys = map[string][]string{
	"length": {"length", "len", "l", "length_m"},
	"width":  {"width", "w", "depth", "width_m"},
	"height": {"height", "h", "height_m"},
	"area":   {"area", "area_m2", "area_sqm"},
}

var typeAliases = map[string]string{
	"walls":     "wall",
	"doors":     "door",
	"windows":   "window",
	"floors":    "floor",
	"ceilings":  "ceiling",
	"roofs":     "roof",
	"beams":     "beam",
	"columns":   "column",
	"slabs":     "slab",
	"stairs":    "stair",
	"staircase": "stair",
	"partition": "wall",
}

// Convert turns collaborator records into BuildingElements. Records without a
// type are dropped; ids are assigned as element-N when missing.
func Convert(raw []RawElement) []BuildingElement {
	out := make([]BuildingElement, 0, len(raw))
	for i, r := range raw {
		typ := NormalizeType(r.Type)
		if typ == "" {
			continue
		}
		el := BuildingElement{
			ID:         r.ID,
			Type:       typ,
			Location:   strings.TrimSpace(r.Location),
			Length:     dimension(r.Dimensions, "length"),
			Width:      dimension(r.Dimensions, "width"),
			Height:     dimension(r.Dimensions, "height"),
			Area:       dimension(r.Dimensions, "area"),
			Quantity:   r.Quantity,
			Confidence: normalizeConfidence(r.Confidence),
		}
		if el.ID == "" {
			el.ID = fmt.Sprintf("element-%d", i+1)
		}
		if u, ok := units.Normalize(r.Unit); ok {
			el.Unit = u
		}
		if el.Quantity <= 0 {
			el.Quantity = 1
		}
		out = append(out, el)
	}
	return out
}

// NormalizeType lowercases and singularises an element type.
func NormalizeType(t string) string {
	typ := strings.ToLower(strings.TrimSpace(t))
	if alias, ok := typeAliases[typ]; ok {
		return alias
	}
	return typ
}

func dimension(dims map[string]float64, name string) float64 {
	for _, key := range dimensionKeys[name] {
		if v, ok := dims[key]; ok && v > 0 {
			return v
		}
	}
	return 0
}

func normalizeConfidence(c float64) float64 {
	switch {
	case c <= 0:
		return 0
	case c <= 1:
		return c * 100
	case c > 100:
		return 100
	default:
		return c
	}
}

// Summary renders a one-line description of the supplied elements, suitable
// for prefixing to scope text.
func Summary(elements []BuildingElement) string {
	if len(elements) == 0 {
		return ""
	}
	counts := make(map[string]int)
	for _, el := range elements {
		counts[el.Type]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%d %s", counts[t], t)
	}
	return fmt.Sprintf("%d building elements extracted (%s)", len(elements), strings.Join(parts, ", "))
}

// Locations returns the distinct non-empty element locations in first-seen order.
func Locations(elements []BuildingElement) []string {
	seen := make(map[string]bool)
	var out []string
	for _, el := range elements {
		loc := strings.TrimSpace(el.Location)
		key := strings.ToLower(loc)
		if loc == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, loc)
	}
	return out
}
