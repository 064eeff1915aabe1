package stream

import (
	"regexp"
	"strings"
)

// thinkClose is the explicit delimiter some models emit between their
// narration and the answer.
const thinkClose = "</think>"

// flushThreshold bounds how much text the classifier may withhold while
// undecided. Crossing it fails open: the buffer is shown as content rather
// than risking silently eaten answer text.
const flushThreshold = 500

var thinkTagPattern = regexp.MustCompile(`</?think>`)

// Signatures holds the phrase heuristics the classifier matches against its
// pending buffer. The sets are data so they can be tuned and tested
// independently of the state machine.
type Signatures struct {
	// Reasoning matches narration vocabulary anywhere in the buffer.
	Reasoning *regexp.Regexp
	// ContentStart matches the opening of real answer text. Its first
	// capture group marks where the answer begins.
	ContentStart *regexp.Regexp
}

var defaultSignatures = Signatures{
	Reasoning: regexp.MustCompile(`(?i)(mapping query intent|filtering to the highest-value|searching [a-z0-9\-]+\.\.\.|structuring selected content|answer synthesis|establishing a working model|decomposing the question|targeted sub-queries|consolidating results|across sub-queries|staging key excerpts|for inspection|the user asked:|the provided source is|i will extract|salient points|no external search needed|for retrieval query|produce a clear|unambiguous query|unique aspects|i have several documents|let me pull together|key highlights)`),
	ContentStart: regexp.MustCompile(`(?:^|\n|[.!?]\s+)((?i:great question|here are|here's what|based on|thank you for|let me share|i'm happy to|the (?:key|main|primary|top) )|\*\*[A-Z]|#{1,6} )`),
}

// DefaultSignatures returns the built-in signature set.
func DefaultSignatures() Signatures {
	return defaultSignatures
}

// Mode is the classifier state.
type Mode int

const (
	// ModeReasoning withholds incoming text pending classification.
	ModeReasoning Mode = iota
	// ModeContent passes incoming text through immediately.
	ModeContent
)

// Classifier incrementally separates reasoning narration from answer text in
// a model output stream. It starts in ModeReasoning and transitions to
// ModeContent on an explicit marker, a content-start signature, or the
// fail-open length threshold. One instance serves exactly one stream.
type Classifier struct {
	sig     Signatures
	mode    Mode
	pending string

	eventReasoning  strings.Builder
	inlineReasoning strings.Builder
	content         strings.Builder
}

// NewClassifier creates a classifier with the given signature set.
func NewClassifier(sig Signatures) *Classifier {
	if sig.Reasoning == nil {
		sig.Reasoning = defaultSignatures.Reasoning
	}
	if sig.ContentStart == nil {
		sig.ContentStart = defaultSignatures.ContentStart
	}
	return &Classifier{sig: sig}
}

// Mode returns the current state.
func (c *Classifier) Mode() Mode {
	return c.mode
}

// Feed consumes one text delta and returns any text that should be emitted
// to the client immediately.
func (c *Classifier) Feed(delta string) string {
	// An explicit marker decides the split regardless of state: everything
	// buffered plus the pre-marker part is reasoning, the rest is answer.
	if idx := strings.Index(delta, thinkClose); idx >= 0 {
		c.inlineReasoning.WriteString(c.pending)
		c.inlineReasoning.WriteString(delta[:idx])
		c.pending = ""
		c.mode = ModeContent
		emit := strings.TrimLeft(delta[idx+len(thinkClose):], "\n")
		c.content.WriteString(emit)
		return emit
	}

	if c.mode == ModeContent {
		c.content.WriteString(delta)
		return delta
	}

	c.pending += delta

	// A content-start signature ends the reasoning phase. Anything buffered
	// ahead of the matched opening belongs to the narration.
	if loc := c.sig.ContentStart.FindStringSubmatchIndex(c.pending); loc != nil {
		start := loc[2]
		c.inlineReasoning.WriteString(c.pending[:start])
		return c.flushPending(start)
	}

	// Narration vocabulary, or a leading bracket (progress markers like
	// "[searching ...]"): keep buffering.
	if c.sig.Reasoning.MatchString(c.pending) || strings.HasPrefix(c.pending, "[") {
		return ""
	}

	// No decisive signal: fail open toward showing content.
	if len(c.pending) > flushThreshold {
		return c.flushPending(0)
	}
	return ""
}

// FeedReasoning records text explicitly tagged as reasoning by the upstream
// protocol. It accumulates regardless of state.
func (c *Classifier) FeedReasoning(delta string) {
	c.eventReasoning.WriteString(delta)
}

// Finish flushes any still-pending buffer as content and returns it. Text is
// never dropped at stream end.
func (c *Classifier) Finish() string {
	if c.mode != ModeReasoning || c.pending == "" {
		return ""
	}
	return c.flushPending(0)
}

func (c *Classifier) flushPending(from int) string {
	emit := c.pending[from:]
	c.pending = ""
	c.mode = ModeContent
	c.content.WriteString(emit)
	return emit
}

// Content returns the accumulated answer text.
func (c *Classifier) Content() string {
	return c.content.String()
}

// Reasoning returns the combined reasoning text (explicit-event reasoning
// first, then inline-detected), stripped of stray think tags and trimmed.
// Empty when no reasoning was seen.
func (c *Classifier) Reasoning() string {
	combined := c.eventReasoning.String() + c.inlineReasoning.String()
	return strings.TrimSpace(thinkTagPattern.ReplaceAllString(combined, ""))
}
