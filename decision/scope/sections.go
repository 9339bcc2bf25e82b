package scope

import (
	"regexp"
	"strings"
)

// ContextPrefix marks lines that carry shared context (for example a drawing
// summary) rather than work to be itemised.
const ContextPrefix = "Drawing context:"

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v]+`)
	listMarker      = regexp.MustCompile(`^\s*(?:[-*•‣▪]|\d{1,3}[.)])\s+`)
	sentenceBreak   = regexp.MustCompile(`[.!?]+\s+|\n\s*\n|;\s*|\s+and\s+then\s+|\s+plus\s+`)
	trailingPunct   = regexp.MustCompile(`[\s.;,!?]+$`)
)

// abbreviations never end a sentence.
var abbreviations = map[string]bool{
	"approx": true, "no": true, "nos": true, "incl": true, "e.g": true, "eg": true,
	"i.e": true, "ie": true, "etc": true, "min": true, "max": true, "qty": true,
	"dia": true, "ea": true, "sq": true, "lin": true, "cu": true, "vs": true,
	"mr": true, "dr": true, "st": true, "rd": true, "ave": true, "ext": true, "int": true,
}

// normalize unifies line endings and collapses horizontal whitespace.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(l, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractContext removes context lines and returns them separately.
func extractContext(text string) (string, []string) {
	var keep, ctx []string
	for _, l := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.ToLower(l), strings.ToLower(ContextPrefix)) {
			if c := strings.TrimSpace(l[len(ContextPrefix):]); c != "" {
				ctx = append(ctx, c)
			}
			continue
		}
		keep = append(keep, l)
	}
	return strings.TrimSpace(strings.Join(keep, "\n")), ctx
}

// hasListMarkers reports whether any line is a bullet or numbered list entry.
func hasListMarkers(text string) bool {
	for _, l := range strings.Split(text, "\n") {
		if listMarker.MatchString(l) {
			return true
		}
	}
	return false
}

// splitList returns one section per list entry. Unmarked lines before the
// first entry are header context and dropped; later unmarked lines continue
// the entry above them.
func splitList(text string) []string {
	var sections []string
	for _, l := range strings.Split(text, "\n") {
		if l == "" {
			continue
		}
		if loc := listMarker.FindStringIndex(l); loc != nil {
			if entry := cleanFragment(l[loc[1]:]); entry != "" {
				sections = append(sections, entry)
			}
			continue
		}
		cont := cleanFragment(l)
		if len(sections) == 0 || cont == "" {
			continue
		}
		sections[len(sections)-1] = sections[len(sections)-1] + ". " + cont
	}
	return sections
}

// splitSentences breaks prose into fragments at sentence punctuation, blank
// lines, semicolons and the conjunctions "and then" / "plus".
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceBreak.FindAllStringIndex(text, -1) {
		if isAbbreviation(text[start:loc[0]], text[loc[0]:loc[1]]) {
			continue
		}
		out = append(out, text[start:loc[0]])
		start = loc[1]
	}
	out = append(out, text[start:])

	fragments := make([]string, 0, len(out))
	for _, f := range out {
		if f = cleanFragment(f); f != "" {
			fragments = append(fragments, f)
		}
	}
	return fragments
}

func isAbbreviation(before, sep string) bool {
	if !strings.HasPrefix(sep, ".") || strings.HasPrefix(sep, "..") {
		return false
	}
	fields := strings.Fields(before)
	if len(fields) == 0 {
		return false
	}
	word := strings.ToLower(strings.TrimLeft(fields[len(fields)-1], `("'`))
	return abbreviations[word]
}

func cleanFragment(f string) string {
	f = strings.Join(strings.Fields(f), " ")
	return trailingPunct.ReplaceAllString(f, "")
}

// sections runs the sectioning step. hasAction decides whether a sentence
// fragment starts new work or continues the previous one.
func (p *Parser) sections(text string) []string {
	if hasListMarkers(text) {
		return splitList(text)
	}

	var sections []string
	for _, f := range splitSentences(text) {
		if len(f) < p.rules.MinSectionLength {
			continue
		}
		if len(sections) > 0 && !p.hasAction(f) {
			sections[len(sections)-1] = sections[len(sections)-1] + ". " + f
			continue
		}
		sections = append(sections, f)
	}
	return sections
}
