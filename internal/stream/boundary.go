// Package stream implements the streaming response post-processing pipeline:
// boundary detection, reasoning classification, citation collection, footnote
// extraction, and the orchestrator that drives them over a live model stream.
package stream

import (
	"regexp"
	"strings"
)

// boundaryPattern matches a sentence terminator followed by whitespace, or a
// paragraph break.
var boundaryPattern = regexp.MustCompile(`[.!?]\s+|\n\n`)

// sentenceEndPattern matches a sentence terminator followed by whitespace,
// used for speech segmentation.
var sentenceEndPattern = regexp.MustCompile(`[.!?]\s+`)

// minSentenceLength guards speech segmentation against splitting on
// abbreviations like "Dr. Smith".
const minSentenceLength = 10

// HasBoundary reports whether buf contains a complete sentence or paragraph.
func HasBoundary(buf string) bool {
	return boundaryPattern.MatchString(buf)
}

// SplitAtBoundary splits buf at the first sentence or paragraph boundary.
// The unit includes the boundary itself; ok is false when no boundary exists.
func SplitAtBoundary(buf string) (unit, rest string, ok bool) {
	loc := boundaryPattern.FindStringIndex(buf)
	if loc == nil {
		return "", buf, false
	}
	return buf[:loc[1]], buf[loc[1]:], true
}

// HasSentence reports whether buf contains a complete speakable sentence: a
// terminator followed by whitespace at or beyond the minimum offset.
func HasSentence(buf string) bool {
	_, _, ok := SplitSentence(buf)
	return ok
}

// SplitSentence extracts the first speakable sentence from buf, skipping
// boundaries that fall inside the minimum-length guard. Both the sentence and
// the remainder are trimmed.
func SplitSentence(buf string) (sentence, rest string, ok bool) {
	for _, loc := range sentenceEndPattern.FindAllStringIndex(buf, -1) {
		if loc[0] < minSentenceLength {
			continue
		}
		return strings.TrimSpace(buf[:loc[0]+1]), strings.TrimSpace(buf[loc[1]:]), true
	}
	return "", buf, false
}
