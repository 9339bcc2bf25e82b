package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopics(t *testing.T) {
	table := DefaultTable()

	assert.Equal(t, []Topic{TopicStructural}, table.Topics("Install structural plywood to ceiling"))
	assert.Equal(t, []Topic{TopicConcrete}, table.Topics("Pour 100mm N25 slab"))
	assert.Equal(t, []Topic{TopicFireRating, TopicInsulation}, table.Topics("fire-rated wall with R2.5 batts"))
	assert.Empty(t, table.Topics("paint the bedroom"))
	assert.True(t, table.Matches("waterproof shower recess", TopicWaterproofing))
	assert.False(t, table.Matches("waterproof shower recess", TopicConcrete))
}

func TestNotes_DedupedAndJurisdictional(t *testing.T) {
	table := DefaultTable()

	au := table.Notes(JurisdictionAU, "structural beam", "new load-bearing wall", "concrete footing")
	assert.Len(t, au, 2)
	assert.Contains(t, au[0], "AS 1684")
	assert.Contains(t, au[1], "AS 2870")

	generic := table.Notes(JurisdictionGeneric, "structural beam")
	assert.Equal(t, []string{"Structural framing must comply with the applicable structural framing code"}, generic)

	assert.Nil(t, table.Notes(JurisdictionAU, "paint"))
}

func TestResolveJurisdiction(t *testing.T) {
	tests := []struct {
		location string
		def      Jurisdiction
		want     Jurisdiction
	}{
		{"", JurisdictionAU, JurisdictionAU},
		{"Parramatta, NSW", JurisdictionGeneric, JurisdictionAU},
		{"Melbourne", JurisdictionGeneric, JurisdictionAU},
		{"Auckland, New Zealand", JurisdictionAU, JurisdictionGeneric},
		{"London, UK", JurisdictionAU, JurisdictionGeneric},
		// unrecognised places keep the configured default
		{"Parramatta", JurisdictionAU, JurisdictionAU},
		{"12 Smith St, Penrith", JurisdictionAU, JurisdictionAU},
		{"Springfield", JurisdictionGeneric, JurisdictionGeneric},
		// hints match whole words only
		{"Newcastle upon Tyne", JurisdictionAU, JurisdictionAU},
		{"Busselton", JurisdictionGeneric, JurisdictionGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveJurisdiction(tt.location, tt.def))
		})
	}
}
