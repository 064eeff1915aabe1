package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifierExplicitMarker(t *testing.T) {
	t.Parallel()

	c := NewClassifier(DefaultSignatures())
	out := c.Feed("Weighing the options</think>\n\nThe answer is 42.")
	assert.Equal(t, "The answer is 42.", out)
	assert.Equal(t, ModeContent, c.Mode())
	assert.Equal(t, "Weighing the options", c.Reasoning())
	assert.Equal(t, "The answer is 42.", c.Content())
}

func TestClassifierContentStartSignature(t *testing.T) {
	t.Parallel()

	c := NewClassifier(DefaultSignatures())
	// Narration vocabulary keeps the buffer withheld.
	assert.Empty(t, c.Feed("Mapping query intent. "))
	assert.Equal(t, ModeReasoning, c.Mode())

	// The answer opening splits the buffer mid-stream: narration before the
	// phrase, content from it onward.
	out := c.Feed("Here are the results:\n- one")
	assert.Equal(t, "Here are the results:\n- one", out)
	assert.Equal(t, ModeContent, c.Mode())
	assert.Equal(t, "Mapping query intent.", c.Reasoning())
}

func TestClassifierProgressMarkerBuffering(t *testing.T) {
	t.Parallel()

	c := NewClassifier(DefaultSignatures())
	assert.Empty(t, c.Feed("[searching docs...]"))
	out := c.Feed("\nBased on the sources, X.")
	assert.Equal(t, "Based on the sources, X.", out)
	assert.Contains(t, c.Reasoning(), "[searching docs...]")
}

func TestClassifierFailOpenThreshold(t *testing.T) {
	t.Parallel()

	c := NewClassifier(DefaultSignatures())
	long := strings.Repeat("plain narrative text without any signal words ", 12)
	require.Greater(t, len(long), flushThreshold)

	out := c.Feed(long)
	assert.Equal(t, long, out)
	assert.Equal(t, ModeContent, c.Mode())
	assert.Empty(t, c.Reasoning())
}

func TestClassifierEndOfStreamFlush(t *testing.T) {
	t.Parallel()

	c := NewClassifier(DefaultSignatures())
	assert.Empty(t, c.Feed("Decomposing the question"))
	assert.Equal(t, "Decomposing the question", c.Finish())
	assert.Equal(t, "Decomposing the question", c.Content())
	assert.Empty(t, c.Finish())
}

func TestClassifierPassThroughAfterTransition(t *testing.T) {
	t.Parallel()

	c := NewClassifier(DefaultSignatures())
	c.Feed("context</think>first")
	assert.Equal(t, " and more. Mapping query intent.", c.Feed(" and more. Mapping query intent."))
	assert.Equal(t, "first and more. Mapping query intent.", c.Content())
}

func TestClassifierExplicitReasoningAccumulates(t *testing.T) {
	t.Parallel()

	c := NewClassifier(DefaultSignatures())
	c.FeedReasoning("<think>step one. ")
	out := c.Feed("**Answer** text")
	assert.Equal(t, "**Answer** text", out)
	c.FeedReasoning("step two</think>")
	assert.Equal(t, "step one. step two", c.Reasoning())
}
