package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorSequentialIDs(t *testing.T) {
	t.Parallel()

	col := NewCollector()
	first := col.Add(0, "Alpha", "https://a.example")
	require.NotNil(t, first)
	assert.Equal(t, "1", first.ID)

	second := col.Add(3, "Beta", "https://b.example")
	require.NotNil(t, second)
	assert.Equal(t, "2", second.ID)
	assert.Equal(t, 3, second.ContentIndex)

	citations := col.Citations()
	require.Len(t, citations, 2)
	assert.Equal(t, "Alpha", citations[0].Title)
	assert.Equal(t, "Beta", citations[1].Title)
}

func TestCollectorDeduplicatesByURL(t *testing.T) {
	t.Parallel()

	col := NewCollector()
	require.NotNil(t, col.Add(0, "Alpha", "https://a.example"))
	assert.Nil(t, col.Add(1, "Alpha again", "https://a.example"))
	assert.Len(t, col.Citations(), 1)

	// The duplicate must not consume an id.
	next := col.Add(2, "Beta", "https://b.example")
	require.NotNil(t, next)
	assert.Equal(t, "2", next.ID)
}

func TestCollectorDropsEmptyURL(t *testing.T) {
	t.Parallel()

	col := NewCollector()
	assert.Nil(t, col.Add(0, "No link", ""))
	assert.Empty(t, col.Citations())
}
