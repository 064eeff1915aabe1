package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasBoundary(t *testing.T) {
	t.Parallel()

	assert.True(t, HasBoundary("Done. And"))
	assert.True(t, HasBoundary("Really?\nNext"))
	assert.True(t, HasBoundary("para one\n\npara two"))
	assert.False(t, HasBoundary("still going"))
	assert.False(t, HasBoundary("ends with period."))
}

func TestSplitAtBoundary(t *testing.T) {
	t.Parallel()

	unit, rest, ok := SplitAtBoundary("First sentence. Second")
	require.True(t, ok)
	assert.Equal(t, "First sentence. ", unit)
	assert.Equal(t, "Second", rest)

	unit, rest, ok = SplitAtBoundary("heading\n\nbody text")
	require.True(t, ok)
	assert.Equal(t, "heading\n\n", unit)
	assert.Equal(t, "body text", rest)

	_, rest, ok = SplitAtBoundary("no boundary here")
	assert.False(t, ok)
	assert.Equal(t, "no boundary here", rest)
}

func TestSplitSentenceMinimumLength(t *testing.T) {
	t.Parallel()

	// "Dr. Smith" terminates at offset 2, inside the guard; the split must
	// wait for the later boundary.
	sentence, rest, ok := SplitSentence("Dr. Smith arrived early. Then we began")
	require.True(t, ok)
	assert.Equal(t, "Dr. Smith arrived early.", sentence)
	assert.Equal(t, "Then we began", rest)
}

func TestSplitSentenceNoBoundary(t *testing.T) {
	t.Parallel()

	_, rest, ok := SplitSentence("short. x")
	assert.False(t, ok)
	assert.Equal(t, "short. x", rest)

	assert.False(t, HasSentence("still streaming without end"))
	assert.True(t, HasSentence("a complete sentence here. more"))
}
