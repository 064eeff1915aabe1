package store

import "strings"

// PDF-derived sources leak ligatures and odd punctuation through the model
// output. Normalized at write time so stored transcripts stay searchable.
var unicodeReplacer = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬀ", "ff",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	" ", " ",
	"●", "•",
)

// NormalizeUnicode replaces typographic ligatures and punctuation variants
// with their plain equivalents.
func NormalizeUnicode(s string) string {
	return unicodeReplacer.Replace(s)
}
