package measurement

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"scope-quote/decision/compliance"
	"scope-quote/decision/drawing"
	"scope-quote/decision/scope"
	"scope-quote/pkg/confidence"
	perrors "scope-quote/pkg/errors"
	"scope-quote/pkg/units"
)

// Options carry request-level context into a calculation.
type Options struct {
	// Scale multiplies element dimensions. Zero means 1.
	Scale              float64 `json:"scale,omitempty"`
	LocationContext    string  `json:"location_context,omitempty"`
	BuildingType       string  `json:"building_type,omitempty"`
	ConstructionMethod string  `json:"construction_method,omitempty"`
}

// Result is a calculated quantity with its derivation.
type Result struct {
	Quantity         float64          `json:"quantity"`
	Unit             units.Unit       `json:"unit"`
	Method           string           `json:"method"`
	Assumptions      []string         `json:"assumptions"`
	Confidence       confidence.Level `json:"confidence"`
	BaseQuantity     float64          `json:"base_quantity"`
	WasteFactor      float64          `json:"waste_factor"`
	AccessFactor     float64          `json:"access_factor"`
	ComplexityFactor float64          `json:"complexity_factor"`
	ComplianceNotes  []string         `json:"compliance_notes,omitempty"`
	ElementsUsed     int              `json:"elements_used"`
}

// Calculator computes quantities. It holds only read-only tables, so a single
// instance can serve concurrent calls.
type Calculator struct {
	tables   *Tables
	measures map[scope.MeasurementType]measureFunc
}

// NewCalculator creates a calculator; nil tables means DefaultTables.
func NewCalculator(tables *Tables) *Calculator {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Calculator{
		tables: tables,
		measures: map[scope.MeasurementType]measureFunc{
			scope.MeasurementLinear:   measureLinear,
			scope.MeasurementArea:     measureArea,
			scope.MeasurementVolume:   measureVolume,
			scope.MeasurementCount:    measureCount,
			scope.MeasurementAssembly: measureAssembly,
		},
	}
}

// Tables returns the calculator's constants.
func (c *Calculator) Tables() *Tables { return c.tables }

// measureEnv is what a per-element measure may read. Measures add to
// assumptions through note.
type measureEnv struct {
	tables        *Tables
	item          scope.Item
	opts          Options
	scale         float64
	ceilingHeight float64
	note          func(string)
}

type measureFunc func(env *measureEnv, relevant []drawing.BuildingElement) (float64, string)

// Calculate runs the branch selected by item.MeasurementType. It returns an
// error only for unsupported types and invalid stated quantities.
func (c *Calculator) Calculate(item scope.Item, elements []drawing.BuildingElement, opts Options) (*Result, error) {
	measure, ok := c.measures[item.MeasurementType]
	if !ok {
		return nil, perrors.NewUnsupportedMeasurementError(string(item.MeasurementType), item.ID)
	}

	stated, hasStated := statedQuantity(item)
	if hasStated && (stated < 0 || math.IsNaN(stated) || math.IsInf(stated, 0)) {
		return nil, perrors.NewInvalidQuantityError(stated, item.ID)
	}

	t := c.tables
	var assumptions []string
	env := &measureEnv{
		tables:        t,
		item:          item,
		opts:          opts,
		scale:         opts.Scale,
		ceilingHeight: t.CeilingHeight(opts.BuildingType),
		note:          func(s string) { assumptions = appendUnique(assumptions, s) },
	}
	if env.scale <= 0 {
		env.scale = 1
	}

	discrete := units.IsDiscrete(item.MeasurementType.Kind())
	relevant := drawing.Relevant(item.Description, item.Location, elements)

	var base float64
	var method string
	if len(relevant) == 0 {
		switch {
		case hasStated:
			base = stated
			method = "stated quantity"
		case discrete:
			base = 1
			method = "single unit assumed"
			env.note(fmt.Sprintf("No quantity stated; assumed 1 %s", item.MeasurementType.DefaultUnit()))
		default:
			method = "no measurable data"
			env.note("No quantity stated; quantity must be measured on site")
		}
		env.note("No drawing data available for this item")
	} else {
		base, method = measure(env, relevant)
		if base == 0 && hasStated {
			base = stated
			method = "stated quantity"
			env.note("Drawing elements had no usable dimensions; stated quantity used")
		} else if hasStated && !nearlyEqual(base, stated) {
			env.note(fmt.Sprintf("Drawing measure %.2f used in place of stated quantity %.2f", base, stated))
		}
	}
	if opts.ConstructionMethod != "" {
		method += " (" + opts.ConstructionMethod + ")"
	}

	waste := c.wasteFactor(item)
	access, accessName := scope.MaxFactor(t.Access, item.Description)
	complexity, complexityName := scope.MaxFactor(t.Complexity, item.Description)

	adjusted := Adjust(base, waste, access, complexity, discrete)

	result := &Result{
		Quantity:         adjusted,
		Unit:             item.MeasurementType.DefaultUnit(),
		Method:           fmt.Sprintf("%s: %s", item.MeasurementType, method),
		BaseQuantity:     confidence.Round(base, 4),
		WasteFactor:      waste,
		AccessFactor:     access,
		ComplexityFactor: complexity,
		ElementsUsed:     len(relevant),
	}

	jurisdiction := compliance.ResolveJurisdiction(opts.LocationContext, t.Jurisdiction)
	result.ComplianceNotes = t.Compliance.Notes(jurisdiction, item.Description)

	result.Assumptions = assumptions
	if result.Assumptions == nil {
		result.Assumptions = []string{}
	}
	result.Confidence = c.score(item, len(relevant) > 0, base, len(assumptions), accessName, complexityName)
	return result, nil
}

// Adjust applies base × (1+waste) × access × complexity, rounding continuous
// quantities to 2 decimals and discrete ones up to a whole number.
func Adjust(base, waste, access, complexity float64, discrete bool) float64 {
	q := base * (1 + waste) * access * complexity
	if discrete {
		// strip float noise so 10 × 1.1 does not become 12
		return math.Ceil(confidence.Round(q, 6))
	}
	return confidence.Round(q, 2)
}

func (c *Calculator) wasteFactor(item scope.Item) float64 {
	t := c.tables
	switch item.MeasurementType {
	case scope.MeasurementCount:
		return t.CountWaste
	case scope.MeasurementAssembly:
		return t.AssemblyWaste
	}
	if family, ok := scope.MaterialFor(t.Materials, item.Description); ok {
		return family.Waste
	}
	return t.DefaultWaste
}

func (c *Calculator) score(item scope.Item, found bool, base float64, assumptions int, access, complexity string) confidence.Level {
	adj := c.tables.Confidence
	score := adj.Base
	var reasons, uncertain []string

	if found {
		score += adj.ElementsFound
		reasons = append(reasons, "measured from drawing elements")
	} else {
		score += adj.NoElements
		uncertain = append(uncertain, "no drawing data")
	}
	if base > 0 {
		score += adj.PositiveQuantity
		reasons = append(reasons, "non-zero base quantity")
	} else {
		score += adj.ZeroQuantity
		uncertain = append(uncertain, scope.UncertaintyQuantity)
	}
	score += adj.PerAssumption * float64(assumptions)
	if assumptions > 0 {
		uncertain = append(uncertain, fmt.Sprintf("%d assumption(s) recorded", assumptions))
	}
	if access != "" {
		reasons = append(reasons, "access factor: "+access)
	}
	if complexity != "" {
		reasons = append(reasons, "complexity factor: "+complexity)
	}

	score = (confidence.Clamp(score) + item.Confidence.Score) / 2
	return confidence.New(confidence.Round(score, 2), reasons, uncertain)
}

func statedQuantity(item scope.Item) (float64, bool) {
	if !item.Quantity.HasBaseQuantity() {
		return 0, false
	}
	q := *item.Quantity.BaseQuantity
	// a stated quantity in another unit kind cannot be used for this branch
	if u := item.Quantity.Unit; u != "" && units.KindOf(u) != units.KindUnknown &&
		units.KindOf(u) != item.MeasurementType.Kind() {
		return 0, false
	}
	return q, true
}

// Element measures.

var wallLike = map[string]bool{"wall": true, "partition": true}

func measureLinear(env *measureEnv, relevant []drawing.BuildingElement) (float64, string) {
	var total float64
	var perimeters, lengths, skipped int
	for _, el := range relevant {
		switch {
		case el.Length > 0 && el.Width > 0 && !wallLike[el.Type]:
			total += 2 * (el.Length + el.Width) * env.scale
			perimeters++
		case el.Length > 0:
			total += el.Length * env.scale
			lengths++
		case el.Unit == units.UnitMetre && el.Quantity > 0:
			total += el.Quantity * env.scale
			lengths++
		default:
			skipped++
		}
	}
	if skipped > 0 {
		env.note(fmt.Sprintf("%d element(s) had no length and were ignored", skipped))
	}
	return total, fmt.Sprintf("sum of %d perimeter(s) and %d length(s)", perimeters, lengths)
}

func measureArea(env *measureEnv, relevant []drawing.BuildingElement) (float64, string) {
	var total float64
	var used, skipped int
	for _, el := range relevant {
		a := elementArea(env, el)
		if a <= 0 {
			skipped++
			continue
		}
		if el.Type == "roof" {
			a *= env.tables.RoofPitchFactor
			env.note(fmt.Sprintf("Roof pitch factor %.2f applied to plan area", env.tables.RoofPitchFactor))
		}
		total += a
		used++
	}
	if skipped > 0 {
		env.note(fmt.Sprintf("%d element(s) had no area and were ignored", skipped))
	}
	return total, fmt.Sprintf("sum of %d element area(s)", used)
}

// elementArea is stated area, wall length × height, or length × width.
func elementArea(env *measureEnv, el drawing.BuildingElement) float64 {
	s2 := env.scale * env.scale
	switch {
	case el.Area > 0:
		return el.Area * s2
	case wallLike[el.Type] && el.Length > 0:
		h := el.Height
		if h <= 0 {
			h = env.ceilingHeight
			env.note(fmt.Sprintf("Standard ceiling height %.1f m assumed for walls", h))
		}
		return el.Length * h * s2
	case el.Length > 0 && el.Width > 0:
		return el.Length * el.Width * s2
	case el.Unit == units.UnitSquareMetre && el.Quantity > 0:
		return el.Quantity * s2
	}
	return 0
}

var thicknessPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s?(mm|m)\s+(?:thick|deep|slab|depth)\b|\b(?:thickness|depth)\s+(?:of\s+)?(\d+(?:\.\d+)?)\s?(mm|m)\b`)

// Thickness extracts a slab or layer thickness in metres from text.
func Thickness(text string) (float64, bool) {
	m := thicknessPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	raw, unit := m[1], m[2]
	if raw == "" {
		raw, unit = m[3], m[4]
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if strings.EqualFold(unit, "mm") {
		v = units.MillimetresToMetres(v)
	}
	return v, true
}

func measureVolume(env *measureEnv, relevant []drawing.BuildingElement) (float64, string) {
	thickness, ok := Thickness(env.item.Description)
	if !ok {
		thickness = env.tables.DefaultSlabThickness
	}

	var total float64
	var used, skipped int
	defaulted := false
	for _, el := range relevant {
		if el.Unit == units.UnitCubicMetre && el.Quantity > 0 {
			total += el.Quantity * env.scale * env.scale * env.scale
			used++
			continue
		}
		a := el.Area * env.scale * env.scale
		if a <= 0 && el.Length > 0 && el.Width > 0 {
			a = el.Length * el.Width * env.scale * env.scale
		}
		if a <= 0 {
			skipped++
			continue
		}
		depth := thickness
		if !ok && el.Height > 0 && el.Height < 1 {
			depth = el.Height
		} else if !ok {
			defaulted = true
		}
		total += a * depth
		used++
	}
	if defaulted {
		env.note(fmt.Sprintf("Default thickness %.2f m assumed", env.tables.DefaultSlabThickness))
	}
	if skipped > 0 {
		env.note(fmt.Sprintf("%d element(s) had no plan area and were ignored", skipped))
	}
	return total, fmt.Sprintf("sum of %d element area(s) × thickness", used)
}

// measureCount sums element quantities. An element without a quantity counts once.
func measureCount(env *measureEnv, relevant []drawing.BuildingElement) (float64, string) {
	var total float64
	for _, el := range relevant {
		if el.Quantity <= 0 {
			total++
			continue
		}
		total += el.Quantity
	}
	return total, fmt.Sprintf("count of %d element(s)", len(relevant))
}

// measureAssembly counts one assembly per distinct element location.
func measureAssembly(env *measureEnv, relevant []drawing.BuildingElement) (float64, string) {
	n := len(drawing.Locations(relevant))
	if n == 0 {
		n = 1
		env.note("Related drawing elements have no location; one assembly assumed")
	}
	return float64(n), fmt.Sprintf("one assembly per location across %d element(s)", len(relevant))
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
