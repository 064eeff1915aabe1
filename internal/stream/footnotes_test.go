package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFootnotes(t *testing.T) {
	t.Parallel()

	in := "Claim A[^a] and claim B[^b].\n\n[^a]: Source Alpha\n[^b]: Source Beta"
	main, notes := ExtractFootnotes(in)

	assert.Equal(t, `Claim A<sup><a href="#footnote-1">1</a></sup> and claim B<sup><a href="#footnote-2">2</a></sup>.`, main)
	require.Len(t, notes, 2)
	assert.Equal(t, "a", notes[0].ID)
	assert.Equal(t, 1, notes[0].Number)
	assert.Equal(t, "Source Alpha", notes[0].Content)
	assert.Equal(t, "Source Beta", notes[1].Content)
}

func TestExtractFootnotesDefinitionOrder(t *testing.T) {
	t.Parallel()

	// Numbering follows the order definitions appear, not reference order,
	// and a definition nothing references is still listed.
	in := "See B[^b] then A[^a] then B again[^b].\n\n[^a]: Alpha\n[^b]: Beta\n[^c]: Gamma"
	main, notes := ExtractFootnotes(in)

	require.Len(t, notes, 3)
	assert.Equal(t, "a", notes[0].ID)
	assert.Equal(t, 1, notes[0].Number)
	assert.Equal(t, "b", notes[1].ID)
	assert.Equal(t, 2, notes[1].Number)
	assert.Equal(t, "c", notes[2].ID)
	assert.Equal(t, 3, notes[2].Number)
	assert.Equal(t, "Gamma", notes[2].Content)
	assert.Contains(t, main, `See B<sup><a href="#footnote-2">2</a></sup>`)
	assert.Contains(t, main, `then A<sup><a href="#footnote-1">1</a></sup>`)
	assert.Contains(t, main, `B again<sup><a href="#footnote-2">2</a></sup>`)
}

func TestExtractFootnotesUnknownReferenceUntouched(t *testing.T) {
	t.Parallel()

	in := "Known[^a] and unknown[^zz].\n\n[^a]: Alpha"
	main, notes := ExtractFootnotes(in)

	require.Len(t, notes, 1)
	assert.Contains(t, main, "unknown[^zz].")
	assert.NotContains(t, main, "[^a]")
}

func TestExtractFootnotesNoDefinitions(t *testing.T) {
	t.Parallel()

	main, notes := ExtractFootnotes("Just text with a stray ref[^x].")
	assert.Equal(t, "Just text with a stray ref[^x].", main)
	assert.Empty(t, notes)
}

func TestStripArtifacts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "value rest", StripArtifacts("value[^src]42 rest"))
	// A plain reference is not an artifact.
	assert.Equal(t, "value[^src] rest", StripArtifacts("value[^src] rest"))
}
