package questions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scope-quote/decision/drawing"
	"scope-quote/decision/scope"
	"scope-quote/pkg/confidence"
	"scope-quote/pkg/ids"
	"scope-quote/pkg/units"
)

func ptr(v float64) *float64 { return &v }

func newGen() *Generator {
	return NewGenerator(WithIDGenerator(ids.NewSequence("q")))
}

func item(id, desc string, category scope.Category, score float64, uncertain ...string) scope.Item {
	return scope.Item{
		ID:              id,
		Description:     desc,
		Category:        category,
		MeasurementType: scope.MeasurementArea,
		Quantity:        &scope.QuantityRequirement{MeasurementType: scope.MeasurementArea, Unit: units.UnitSquareMetre},
		Confidence:      confidence.New(score, nil, uncertain),
	}
}

func TestGenerateFromAmbiguities(t *testing.T) {
	it := item("item-1", "Install new flooring", scope.CategoryInstall, 66,
		scope.UncertaintyMaterial, scope.UncertaintyQuantity, scope.UncertaintyLocation)
	ambiguities := []scope.Ambiguity{
		{ID: "a1", ScopeItemID: "item-1", Type: scope.AmbiguityMaterial, Description: "No material",
			SuggestedQuestion: "What material?", Interpretations: []string{"Standard grade", "Premium grade"},
			ConfidenceImpact: -15, Priority: scope.PriorityMedium},
		{ID: "a2", ScopeItemID: "item-1", Type: scope.AmbiguityQuantity, Description: "No quantity",
			SuggestedQuestion: "What quantity?", Interpretations: []string{"Measure from drawings"},
			ConfidenceImpact: -20, Priority: scope.PriorityHigh},
		{ID: "a3", ScopeItemID: "other", Type: scope.AmbiguityLocation, Description: "Elsewhere",
			SuggestedQuestion: "Where?", Priority: scope.PriorityHigh},
	}

	res := newGen().Generate(it, nil, ambiguities, Context{})

	assert.False(t, res.ConfidenceThresholdMet)
	assert.False(t, res.ShouldProceed)
	assert.Equal(t, []string{"No quantity"}, res.BlockingIssues)

	require.NotEmpty(t, res.Questions)
	assert.Equal(t, "What quantity?", res.Questions[0].Text)
	assert.Equal(t, scope.PriorityHigh, res.Questions[0].Priority)
	assert.Equal(t, 20.0, res.Questions[0].ConfidenceImpact)

	seen := make(map[string]bool)
	for i, q := range res.Questions {
		assert.Equal(t, "item-1", q.ScopeItemID)
		assert.NotEqual(t, "Where?", q.Text)
		assert.False(t, seen[q.ID], "duplicate question id %s", q.ID)
		seen[q.ID] = true
		if i > 0 {
			assert.LessOrEqual(t, res.Questions[i-1].Priority.Rank(), q.Priority.Rank())
		}
	}
	// material was asked, so no separate specification question
	for _, q := range res.Questions {
		assert.False(t, strings.HasPrefix(q.Text, "Is there a product or specification"))
	}
}

func TestGenerateUncertaintyFamilies(t *testing.T) {
	it := item("item-1", "Replace timber framing to rear wall", scope.CategoryInstall, 60,
		scope.UncertaintyMaterial, scope.UncertaintyQuantity, scope.UncertaintyLocation)
	elements := []drawing.BuildingElement{
		{ID: "w1", Type: "wall", Location: "Kitchen", Length: 4},
		{ID: "w2", Type: "wall", Location: "Laundry", Length: 3},
	}

	res := newGen().Generate(it, elements, nil, Context{DrawingRefs: []string{"A-101"}})

	var material, method, location *Question
	for i := range res.Questions {
		q := &res.Questions[i]
		switch {
		case strings.HasPrefix(q.Text, "Which material grade"):
			material = q
		case strings.HasPrefix(q.Text, "How should the quantity"):
			method = q
		case strings.HasPrefix(q.Text, "Where is"):
			location = q
		}
	}
	require.NotNil(t, material)
	assert.Equal(t, "MGP10 structural pine (standard)", material.Options[0].Label)

	require.NotNil(t, method)
	require.Len(t, method.Options, 2)
	assert.Equal(t, "Measure from drawings (2 element(s) found)", method.Options[0].Label)
	assert.Equal(t, 20.0, method.Options[0].ConfidenceDelta)
	assert.Equal(t, []string{"A-101", "element:w1", "element:w2"}, method.VisualReferences)

	require.NotNil(t, location)
	var labels []string
	for _, o := range location.Options {
		labels = append(labels, o.Label)
	}
	assert.Equal(t, []string{"Kitchen", "Laundry", "Throughout the building", "To be confirmed on site"}, labels)
}

func TestGenerateAboveThresholdSkipsUncertaintyFamilies(t *testing.T) {
	it := item("item-1", "Supply skip bin", scope.CategorySupply, 90, scope.UncertaintyMaterial)
	it.Specifications = []string{"6m3"}

	res := newGen().Generate(it, nil, nil, Context{})

	assert.True(t, res.ConfidenceThresholdMet)
	assert.True(t, res.ShouldProceed)
	assert.Empty(t, res.Questions)
}

func TestGenerateInstallationMethodOptions(t *testing.T) {
	g := newGen()
	tests := []struct {
		desc  string
		first string
	}{
		{"Hang plasterboard to bedroom walls", "Timber stud framing (standard)"},
		{"Install new roof sheeting", "Screw-fixed sheeting on existing battens (standard)"},
		{"Install bathroom vanity", "Standard installation"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			it := item("item-1", tt.desc, scope.CategorySupplyInstall, 95)
			it.Specifications = []string{"spec"}
			res := g.Generate(it, nil, nil, Context{})
			require.Len(t, res.Questions, 1)
			assert.Equal(t, tt.first, res.Questions[0].Options[0].Label)
		})
	}
}

func TestGenerateSanityCheck(t *testing.T) {
	g := newGen()
	tests := []struct {
		name        string
		desc        string
		qty         float64
		unit        units.Unit
		projectType string
		want        bool
	}{
		{"large residential floor", "Lay floor tiles", 1500, units.UnitSquareMetre, "residential", true},
		{"large commercial floor", "Lay floor tiles", 1500, units.UnitSquareMetre, "commercial", false},
		{"tiny floor", "Lay carpet", 0.5, units.UnitSquareMetre, "", true},
		{"long skirting", "Fit skirting", 650, units.UnitMetre, "", true},
		{"many doors", "Hang doors", 60, units.UnitEach, "", true},
		{"normal doors", "Hang doors", 6, units.UnitEach, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := item("item-1", tt.desc, scope.CategorySupply, 95)
			it.Specifications = []string{"spec"}
			it.Quantity = &scope.QuantityRequirement{Unit: tt.unit, BaseQuantity: ptr(tt.qty)}
			res := g.Generate(it, nil, nil, Context{ProjectType: tt.projectType})
			if !tt.want {
				assert.Empty(t, res.Questions)
				return
			}
			require.Len(t, res.Questions, 1)
			q := res.Questions[0]
			assert.Equal(t, TypeAssumptionValidation, q.Type)
			assert.Equal(t, scope.PriorityHigh, q.Priority)
		})
	}
}

func TestGenerateComplianceQuestions(t *testing.T) {
	it := item("item-1", "Replace load-bearing wall with fire-rated partition", scope.CategoryDemolition, 95)
	it.Specifications = []string{"spec"}

	res := newGen().Generate(it, nil, nil, Context{Location: "Melbourne VIC"})

	require.Len(t, res.Questions, 2)
	assert.Contains(t, res.Questions[0].Text, "structural engineering")
	assert.Contains(t, res.Questions[0].Context, "AS 1684")
	assert.Contains(t, res.Questions[1].Text, "fire rating")
}

func TestOptionInference(t *testing.T) {
	tests := []struct {
		label  string
		impact CostImpact
		delta  float64
	}{
		{"Premium grade", CostIncrease, 10},
		{"Client-supplied material", CostDecrease, 10},
		{"Standard builder's grade", CostNeutral, 20},
		{"Measure from drawings", CostNeutral, 20},
		{"Dimensions from drawings", CostNeutral, 15},
		{"Provisional allowance", CostNeutral, 5},
		{"Match existing", CostDecrease, 10},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			impact, implication := CostImpactOf(tt.label)
			assert.Equal(t, tt.impact, impact)
			assert.NotEmpty(t, implication)
			assert.Equal(t, tt.delta, ConfidenceDeltaOf(tt.label))
		})
	}
}

func TestQuestionIDsAreStable(t *testing.T) {
	it := item("item-7", "Install new flooring", scope.CategoryInstall, 50, scope.UncertaintyQuantity)
	res := NewGenerator(WithIDGenerator(ids.NewSequence("q"))).Generate(it, nil, nil, Context{})

	require.NotEmpty(t, res.Questions)
	for _, q := range res.Questions {
		assert.True(t, strings.HasPrefix(q.ID, "q-"))
		for i, o := range q.Options {
			assert.Equal(t, q.ID+"-opt-"+string(rune('1'+i)), o.ID)
		}
	}
	assert.Equal(t, 1, CountByPriority(res.Questions, scope.PriorityMedium))
}
