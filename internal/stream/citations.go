package stream

import (
	"strconv"

	"github.com/brickchat/backend/internal/model"
)

// Collector accumulates citation annotations for one stream, deduplicating
// by URL and assigning sequential string ids in first-seen order.
type Collector struct {
	seen      map[string]struct{}
	citations []model.Citation
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[string]struct{})}
}

// Add records one annotation. It returns the new citation, or nil when the
// URL is empty or already collected.
func (c *Collector) Add(contentIndex int, title, url string) *model.Citation {
	if url == "" {
		return nil
	}
	if _, ok := c.seen[url]; ok {
		return nil
	}
	c.seen[url] = struct{}{}
	cit := model.Citation{
		ID:           strconv.Itoa(len(c.citations) + 1),
		Title:        title,
		URL:          url,
		ContentIndex: contentIndex,
	}
	c.citations = append(c.citations, cit)
	return &c.citations[len(c.citations)-1]
}

// Citations returns the collected citations in assignment order.
func (c *Collector) Citations() []model.Citation {
	return c.citations
}
