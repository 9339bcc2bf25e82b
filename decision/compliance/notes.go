// Package compliance maps scope descriptions to the regulatory codes that
// usually govern them. It is a static keyword lookup, not a compliance check.
package compliance

import (
	"regexp"
	"strings"
)

// Jurisdiction selects which code names appear in notes.
type Jurisdiction string

const (
	JurisdictionAU      Jurisdiction = "AU"
	JurisdictionGeneric Jurisdiction = "generic"
)

// Topic is a keyword family that triggers a note.
type Topic string

const (
	TopicStructural    Topic = "structural"
	TopicConcrete      Topic = "concrete"
	TopicFireRating    Topic = "fire_rating"
	TopicInsulation    Topic = "insulation"
	TopicWaterproofing Topic = "waterproofing"
)

// Family binds a topic to its trigger pattern and per-jurisdiction note.
type Family struct {
	Topic   Topic
	Pattern *regexp.Regexp
	Notes   map[Jurisdiction]string
}

// Table is an ordered, read-only list of families.
type Table struct {
	families []Family
}

// DefaultTable returns the built-in families in a fixed order.
func DefaultTable() *Table {
	return &Table{families: []Family{
		{
			Topic:   TopicStructural,
			Pattern: regexp.MustCompile(`(?i)\b(structural|load[- ]?bearing|bearer|joist|lintel|beam|framing|frame)\b`),
			Notes: map[Jurisdiction]string{
				JurisdictionAU:      "AS 1684 Residential timber-framed construction applies to structural framing",
				JurisdictionGeneric: "Structural framing must comply with the applicable structural framing code",
			},
		},
		{
			Topic:   TopicConcrete,
			Pattern: regexp.MustCompile(`(?i)\b(concrete|slab|footings?|N\d{2}|\d{2}\s?MPa)\b`),
			Notes: map[Jurisdiction]string{
				JurisdictionAU:      "AS 2870 Residential slabs and footings and AS 3600 Concrete structures apply",
				JurisdictionGeneric: "Concrete work must comply with the applicable slab and footing code",
			},
		},
		{
			Topic:   TopicFireRating,
			Pattern: regexp.MustCompile(`(?i)\b(fire[- ]?rat(ed|ing)|fire[- ]?resist\w*|FRL|fire[- ]?proof\w*)\b`),
			Notes: map[Jurisdiction]string{
				JurisdictionAU:      "NCC Volume One Section C fire resistance requirements apply",
				JurisdictionGeneric: "Fire-rated construction must comply with the applicable building code",
			},
		},
		{
			Topic:   TopicInsulation,
			Pattern: regexp.MustCompile(`(?i)\b(insulation|insulate|batts?|R\d(\.\d)?|thermal)\b`),
			Notes: map[Jurisdiction]string{
				JurisdictionAU:      "NCC Section J energy efficiency and AS/NZS 4859.1 thermal insulation apply",
				JurisdictionGeneric: "Insulation must meet the applicable thermal performance code",
			},
		},
		{
			Topic:   TopicWaterproofing,
			Pattern: regexp.MustCompile(`(?i)\b(waterproof\w*|membrane|wet areas?|shower|tanking)\b`),
			Notes: map[Jurisdiction]string{
				JurisdictionAU:      "AS 3740 Waterproofing of domestic wet areas applies",
				JurisdictionGeneric: "Waterproofing must comply with the applicable membrane code",
			},
		},
	}}
}

// Topics returns the topics whose pattern matches text, in table order.
func (t *Table) Topics(text string) []Topic {
	var out []Topic
	for _, f := range t.families {
		if f.Pattern.MatchString(text) {
			out = append(out, f.Topic)
		}
	}
	return out
}

// Matches reports whether text triggers the given topic.
func (t *Table) Matches(text string, topic Topic) bool {
	for _, f := range t.families {
		if f.Topic == topic {
			return f.Pattern.MatchString(text)
		}
	}
	return false
}

// Notes returns the deduplicated notes for every text, preserving first-seen order.
func (t *Table) Notes(j Jurisdiction, texts ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, text := range texts {
		for _, f := range t.families {
			if !f.Pattern.MatchString(text) {
				continue
			}
			note := f.Notes[j]
			if note == "" {
				note = f.Notes[JurisdictionGeneric]
			}
			if note == "" || seen[note] {
				continue
			}
			seen[note] = true
			out = append(out, note)
		}
	}
	return out
}

var auHints = []string{"australia", "au", "nsw", "vic", "qld", "wa", "sa", "tas", "act", "nt", "sydney", "melbourne", "brisbane", "perth", "adelaide", "hobart", "canberra", "darwin"}

// foreignHints name places outside Australia. Multi-word hints match as phrases.
var foreignHints = []string{
	"new zealand", "nz", "auckland", "wellington", "christchurch",
	"united kingdom", "uk", "england", "scotland", "wales", "london",
	"united states", "usa", "us", "canada", "ireland", "singapore",
}

// ResolveJurisdiction picks a jurisdiction from a free-text location. An
// Australian hint gives AU, a foreign hint gives the generic notes, and
// anything else (a suburb or street address) falls back to def.
func ResolveJurisdiction(location string, def Jurisdiction) Jurisdiction {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return def
	}
	words := strings.FieldsFunc(loc, func(r rune) bool {
		return r == ' ' || r == ',' || r == '/' || r == '-' || r == '.'
	})
	phrase := " " + strings.Join(words, " ") + " "

	if containsHint(phrase, auHints) {
		return JurisdictionAU
	}
	if containsHint(phrase, foreignHints) {
		return JurisdictionGeneric
	}
	return def
}

func containsHint(phrase string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(phrase, " "+h+" ") {
			return true
		}
	}
	return false
}
