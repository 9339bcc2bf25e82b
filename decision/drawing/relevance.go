package drawing

import (
	"regexp"
	"strings"
)

// categoryAliases lists description words that count as a mention of an
// element category.
var categoryAliases = map[string][]string{
	"wall":    {"wall", "walls", "partition", "partitions", "plasterboard", "gyprock", "stud", "studs", "lining", "cladding"},
	"floor":   {"floor", "floors", "flooring", "carpet", "tiles", "tiling", "vinyl", "laminate", "subfloor"},
	"ceiling": {"ceiling", "ceilings", "cornice", "bulkhead"},
	"roof":    {"roof", "roofing", "gutter", "gutters", "fascia", "sarking", "ridge"},
	"door":    {"door", "doors", "doorway", "architrave", "jamb"},
	"window":  {"window", "windows", "glazing", "sill", "flyscreen"},
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// Relevant filters elements to those related to an item: the element type is
// named in the description, a category alias for the type occurs in it, or
// the element location matches the item location. Input order is kept.
func Relevant(description, location string, elements []BuildingElement) []BuildingElement {
	if len(elements) == 0 {
		return nil
	}
	desc := strings.ToLower(description)
	words := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(desc, -1) {
		words[w] = true
	}
	loc := strings.ToLower(strings.TrimSpace(location))

	var out []BuildingElement
	for _, el := range elements {
		if isRelevant(el, desc, words, loc) {
			out = append(out, el)
		}
	}
	return out
}

func isRelevant(el BuildingElement, desc string, words map[string]bool, loc string) bool {
	typ := strings.ToLower(el.Type)
	if typ != "" && (words[typ] || words[typ+"s"] || (strings.Contains(typ, " ") && strings.Contains(desc, typ))) {
		return true
	}
	for _, alias := range categoryAliases[typ] {
		if words[alias] {
			return true
		}
	}
	elLoc := strings.ToLower(strings.TrimSpace(el.Location))
	if elLoc != "" && loc != "" && (strings.Contains(loc, elLoc) || strings.Contains(elLoc, loc)) {
		return true
	}
	return false
}
