package scope

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scope-quote/pkg/confidence"
	"scope-quote/pkg/ids"
	"scope-quote/pkg/units"
)

func newTestParser() *Parser {
	return NewParser(WithIDGenerator(ids.NewSequence("scope")))
}

func TestParseSingleItemWithFollowOnSentence(t *testing.T) {
	p := newTestParser()
	a := p.Parse("Supply and install 19mm F11 structural plywood to kitchen ceiling. Area approximately 25 sqm.")

	require.Len(t, a.Items, 1)
	item := a.Items[0]
	assert.Equal(t, "scope-1", item.ID)
	assert.Equal(t, MeasurementArea, item.MeasurementType)
	assert.Equal(t, CategorySupplyInstall, item.Category)
	assert.Contains(t, item.Location, "kitchen")

	require.True(t, item.Quantity.HasBaseQuantity())
	assert.Equal(t, 25.0, *item.Quantity.BaseQuantity)
	assert.Equal(t, units.UnitSquareMetre, item.Quantity.Unit)
	assert.Contains(t, item.Quantity.Notes, "quantity stated as approximate")
	assert.Equal(t, 0.10, item.Quantity.WasteFactor)

	assert.Contains(t, item.Specifications, "19mm")
	assert.Contains(t, item.Specifications, "F11")
	assert.Empty(t, a.Ambiguities)
	assert.NotEmpty(t, a.ComplianceNotes)
}

func TestParseBulletedList(t *testing.T) {
	text := `Kitchen renovation scope:
- Remove existing kitchen cabinets
- Supply and install 12 downlights
- Paint kitchen walls and ceiling
- Lay 20 sqm porcelain floor tiles
- Install 3 new power points
- Supply and fit skirting boards`

	p := newTestParser()
	a := p.Parse(text)

	require.Len(t, a.Items, 6)
	want := []string{
		"Remove existing kitchen cabinets",
		"Supply and install 12 downlights",
		"Paint kitchen walls and ceiling",
		"Lay 20 sqm porcelain floor tiles",
		"Install 3 new power points",
		"Supply and fit skirting boards",
	}
	for i, item := range a.Items {
		assert.Equal(t, want[i], item.Description)
	}

	assert.Equal(t, CategoryDemolition, a.Items[0].Category)
	assert.Equal(t, MeasurementCount, a.Items[1].MeasurementType)
	assert.Equal(t, 12.0, *a.Items[1].Quantity.BaseQuantity)
	assert.Equal(t, MeasurementArea, a.Items[2].MeasurementType)
	assert.Equal(t, MeasurementArea, a.Items[3].MeasurementType)
	assert.Equal(t, 0.15, a.Items[3].Quantity.WasteFactor)
	assert.Equal(t, CategoryInstall, a.Items[4].Category)
	assert.Equal(t, MeasurementLinear, a.Items[5].MeasurementType)
}

func TestParseNumberedListWithContinuation(t *testing.T) {
	text := "1. Demolish existing deck\nincluding disposal of materials\n2) Construct new merbau deck 4.2 x 3.6m"
	a := newTestParser().Parse(text)

	require.Len(t, a.Items, 2)
	assert.Equal(t, "Demolish existing deck. including disposal of materials", a.Items[0].Description)
	assert.Equal(t, "Construct new merbau deck 4.2 x 3.6m", a.Items[1].Description)
}

func TestMeasurementFallsBackToCategoryNouns(t *testing.T) {
	p := newTestParser()

	a := p.Parse("door")
	require.Len(t, a.Items, 1)
	assert.Equal(t, MeasurementCount, a.Items[0].MeasurementType)

	assert.Equal(t, MeasurementCount, p.classifyMeasurement("Hang new door", CategoryInstall, ""))
	assert.Equal(t, MeasurementLinear, p.classifyMeasurement("Replace skirting", CategoryInstall, ""))
	assert.Equal(t, MeasurementVolume, p.classifyMeasurement("Pour concrete footings", CategorySupplyInstall, ""))
	assert.Equal(t, MeasurementAssembly, p.classifyMeasurement("Supply and install kitchen package", CategorySupplyInstall, ""))
	// demolition prefers area over count
	assert.Equal(t, MeasurementArea, p.classifyMeasurement("Remove wall and door", CategoryDemolition, ""))
}

func TestClassifyCategory(t *testing.T) {
	p := newTestParser()
	tests := []struct {
		text string
		want Category
	}{
		{"Supply 10 bags of cement", CategorySupply},
		{"Install client supplied vanity", CategorySupplyInstall},
		{"Fit new architraves", CategoryInstall},
		{"Demolish existing garage", CategoryDemolition},
		{"Excavate for new footings", CategoryPreparation},
		{"Kitchen cabinets", CategorySupplyInstall},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, p.classifyCategory(tt.text))
		})
	}
}

func TestParseDetectsAmbiguities(t *testing.T) {
	a := newTestParser().Parse("Install new flooring")

	require.Len(t, a.Items, 1)
	item := a.Items[0]
	types := make(map[AmbiguityType]Ambiguity)
	for _, amb := range a.Ambiguities {
		assert.Equal(t, item.ID, amb.ScopeItemID)
		assert.NotEmpty(t, amb.SuggestedQuestion)
		assert.Less(t, amb.ConfidenceImpact, 0.0)
		types[amb.Type] = amb
	}
	require.Len(t, types, 3)
	assert.Equal(t, PriorityHigh, types[AmbiguityQuantity].Priority)
	assert.Equal(t, PriorityMedium, types[AmbiguityMaterial].Priority)
	assert.Equal(t, PriorityLow, types[AmbiguityLocation].Priority)

	assert.True(t, item.Confidence.HasUncertainty(UncertaintyMaterial))
	assert.True(t, item.Confidence.HasUncertainty(UncertaintyQuantity))
	assert.True(t, item.Confidence.HasUncertainty(UncertaintyLocation))
	assert.Len(t, a.AmbiguitiesFor(item.ID), 3)
	assert.InDelta(t, item.Confidence.Score-15, a.Confidence, 0.001)
}

func TestParseFactors(t *testing.T) {
	a := newTestParser().Parse("Install custom timber screens to roof area with crane access, 30 sqm")

	require.Len(t, a.Items, 1)
	q := a.Items[0].Quantity
	assert.Equal(t, 1.5, q.AccessFactor)
	assert.Equal(t, 1.8, q.ComplexityFactor)
	assert.True(t, a.Items[0].Confidence.HasUncertainty("complexity"))
}

func TestParseDrawingContextIsNotAnItem(t *testing.T) {
	text := "Paint bedroom walls throughout\nDrawing context: 3 building elements extracted (3 wall)"
	a := newTestParser().Parse(text)

	require.Len(t, a.Items, 1)
	assert.Equal(t, []string{"3 building elements extracted (3 wall)"}, a.Context)
}

func TestParseEmptyAndUnstructuredInput(t *testing.T) {
	p := newTestParser()

	empty := p.Parse("   \n\t ")
	assert.Empty(t, empty.Items)
	assert.Empty(t, empty.Ambiguities)

	a := p.Parse("misc")
	require.Len(t, a.Items, 1)
	assert.Equal(t, 20.0, a.Items[0].Confidence.Score)
	assert.Equal(t, MeasurementAssembly, a.Items[0].MeasurementType)
	require.Len(t, a.Ambiguities, 1)
	assert.Equal(t, AmbiguityQuantity, a.Ambiguities[0].Type)
}

func TestParseAbbreviationsDoNotSplit(t *testing.T) {
	a := newTestParser().Parse("Supply approx. 40 lm of pine skirting to hallway, e.g. 68mm bevel profile")
	require.Len(t, a.Items, 1)
	assert.Equal(t, MeasurementLinear, a.Items[0].MeasurementType)
}

func TestParseInvariants(t *testing.T) {
	inputs := []string{
		"",
		"Supply and install plasterboard to bedroom walls; paint ceilings and then lay carpet upstairs",
		"- Item one is here\n- Item two is here or maybe not",
		strings.Repeat("Install timber frame. ", 20),
		"??? !!! ...",
	}
	p := newTestParser()
	for _, in := range inputs {
		a := p.Parse(in)
		if strings.TrimSpace(in) != "" {
			assert.NotEmpty(t, a.Items, in)
		}
		itemIDs := make(map[string]bool)
		for _, item := range a.Items {
			assert.False(t, itemIDs[item.ID], "duplicate id %s", item.ID)
			itemIDs[item.ID] = true
			assert.GreaterOrEqual(t, item.Confidence.Score, 0.0)
			assert.LessOrEqual(t, item.Confidence.Score, 100.0)
			assert.Equal(t, confidence.IndicatorFor(item.Confidence.Score), item.Confidence.Indicator)
		}
		for _, amb := range a.Ambiguities {
			assert.True(t, itemIDs[amb.ScopeItemID], "ambiguity %s references unknown item", amb.ID)
		}
		assert.GreaterOrEqual(t, a.Confidence, 0.0)
		assert.LessOrEqual(t, a.Confidence, 100.0)
		assert.GreaterOrEqual(t, a.Completeness, 0.0)
		assert.LessOrEqual(t, a.Completeness, 100.0)
	}
}

func TestParserConcurrentUse(t *testing.T) {
	p := NewParser()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := p.Parse("Supply and install 19mm F11 structural plywood to kitchen ceiling. Area approximately 25 sqm.")
			assert.Len(t, a.Items, 1)
		}()
	}
	wg.Wait()
}
