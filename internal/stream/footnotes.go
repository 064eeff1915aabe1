package stream

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/brickchat/backend/internal/model"
)

var (
	footnoteDefPattern      = regexp.MustCompile(`(?m)^\[\^([A-Za-z0-9\-]+)\]:[ \t]*`)
	footnoteRefPattern      = regexp.MustCompile(`\[\^([A-Za-z0-9\-]+)\]`)
	footnoteArtifactPattern = regexp.MustCompile(`\[\^[A-Za-z0-9\-]+\]\d+`)
)

// StripArtifacts removes malformed footnote markers that some models emit,
// a reference immediately followed by digits ("[^src]12"). Safe to apply to
// partial chunks because the artifact never spans a chunk the way a valid
// reference plus definition pair can.
func StripArtifacts(s string) string {
	return footnoteArtifactPattern.ReplaceAllString(s, "")
}

// ExtractFootnotes pulls markdown footnote definitions out of text, rewrites
// inline references into numbered superscript links, and returns the cleaned
// text plus the footnotes. Numbering follows the order definitions appear in
// the text, and every definition is listed even when nothing references it.
// References without a matching definition are left untouched.
func ExtractFootnotes(buf string) (string, []model.Footnote) {
	main, defs := splitDefinitions(buf)
	if len(defs) == 0 {
		return StripArtifacts(buf), nil
	}

	notes := make([]model.Footnote, len(defs))
	numbers := make(map[string]int, len(defs))
	for i, d := range defs {
		notes[i] = model.Footnote{ID: d.id, Number: i + 1, Content: d.body}
		numbers[d.id] = i + 1
	}

	text := rewriteReferences(StripArtifacts(main), numbers)
	return strings.TrimRight(text, " \t\n"), notes
}

// rewriteReferences replaces inline "[^id]" markers with numbered superscript
// links. Markers whose id has no assigned number pass through unchanged.
func rewriteReferences(text string, numbers map[string]int) string {
	return footnoteRefPattern.ReplaceAllStringFunc(text, func(m string) string {
		id := footnoteRefPattern.FindStringSubmatch(m)[1]
		n, ok := numbers[id]
		if !ok {
			return m
		}
		return fmt.Sprintf(`<sup><a href="#footnote-%d">%d</a></sup>`, n, n)
	})
}

type footnoteDef struct {
	id   string
	body string
}

// splitDefinitions separates footnote definition lines from the surrounding
// text, keeping definitions in order of appearance. A definition body runs
// from the end of its "[^id]:" header to the start of the next definition,
// or end of input. The first definition wins on a duplicated id.
func splitDefinitions(buf string) (string, []footnoteDef) {
	locs := footnoteDefPattern.FindAllStringSubmatchIndex(buf, -1)
	if len(locs) == 0 {
		return buf, nil
	}
	seen := make(map[string]struct{}, len(locs))
	defs := make([]footnoteDef, 0, len(locs))
	var main strings.Builder
	prevEnd := 0
	for i, loc := range locs {
		main.WriteString(buf[prevEnd:loc[0]])
		bodyEnd := len(buf)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		id := buf[loc[2]:loc[3]]
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			defs = append(defs, footnoteDef{id: id, body: strings.TrimSpace(buf[loc[1]:bodyEnd])})
		}
		prevEnd = bodyEnd
	}
	main.WriteString(buf[prevEnd:])
	return main.String(), defs
}
