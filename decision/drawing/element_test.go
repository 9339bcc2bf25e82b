package drawing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scope-quote/pkg/units"
)

func TestConvert(t *testing.T) {
	raw := []RawElement{
		{Type: "Walls", Location: " Kitchen ", Dimensions: map[string]float64{"length": 4.2, "h": 2.7}, Unit: "lm", Confidence: 0.8},
		{Type: "", Location: "nowhere"},
		{ID: "d1", Type: "door", Quantity: 3, Unit: "ea", Confidence: 95},
		{Type: "floor", Dimensions: map[string]float64{"area_m2": 18.5}, Confidence: 250},
	}

	got := Convert(raw)
	require.Len(t, got, 3)

	assert.Equal(t, BuildingElement{
		ID: "element-1", Type: "wall", Location: "Kitchen", Length: 4.2, Height: 2.7,
		Quantity: 1, Unit: units.UnitMetre, Confidence: 80,
	}, got[0])
	assert.Equal(t, "d1", got[1].ID)
	assert.Equal(t, 3.0, got[1].Quantity)
	assert.Equal(t, units.UnitEach, got[1].Unit)
	assert.Equal(t, 95.0, got[1].Confidence)
	assert.Equal(t, "element-4", got[2].ID)
	assert.Equal(t, 18.5, got[2].Area)
	assert.Equal(t, 100.0, got[2].Confidence)
}

func TestSummaryAndLocations(t *testing.T) {
	els := []BuildingElement{
		{Type: "wall", Location: "Kitchen"},
		{Type: "door", Location: "kitchen"},
		{Type: "wall", Location: "Laundry"},
		{Type: "window"},
	}
	assert.Equal(t, "4 building elements extracted (1 door, 2 wall, 1 window)", Summary(els))
	assert.Equal(t, "", Summary(nil))
	assert.Equal(t, []string{"Kitchen", "Laundry"}, Locations(els))
}

func TestRelevant(t *testing.T) {
	els := []BuildingElement{
		{ID: "w1", Type: "wall", Location: "Bathroom"},
		{ID: "d1", Type: "door", Location: "Hallway"},
		{ID: "f1", Type: "floor", Location: "Kitchen"},
		{ID: "b1", Type: "beam", Location: "Garage"},
	}

	tests := []struct {
		name        string
		description string
		location    string
		want        []string
	}{
		{"type named", "Replace 2 doors", "", []string{"d1"}},
		{"alias", "Hang plasterboard", "", []string{"w1"}},
		{"location match", "Paint everything", "kitchen", []string{"f1"}},
		{"carpet alias plus location", "Lay carpet", "Hallway", []string{"d1", "f1"}},
		{"nothing", "Supply skip bin", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, el := range Relevant(tt.description, tt.location, els) {
				got = append(got, el.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
