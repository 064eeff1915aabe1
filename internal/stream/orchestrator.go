package stream

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/brickchat/backend/internal/llm"
	"github.com/brickchat/backend/internal/model"
	"github.com/brickchat/backend/pkg/metrics"
)

// Sink receives outbound events in order. Returning an error aborts the
// stream; the orchestrator will not call the sink again after that.
type Sink func(ev model.OutboundEvent) error

// MessageSaver persists a finished assistant turn.
type MessageSaver interface {
	SaveMessage(ctx context.Context, threadID, userID string, role model.Role, content, agentEndpoint string, metadata map[string]any) (string, error)
}

// Request describes one turn to stream.
type Request struct {
	ThreadID      string
	UserID        string
	UserMessageID string
	AgentEndpoint string
	Model         string
	Messages      []llm.ChatMessage
}

// Result is the outcome of a non-streaming turn.
type Result struct {
	Content            string
	Reasoning          string
	Citations          []model.Citation
	Footnotes          []model.Footnote
	AssistantMessageID string
}

// Orchestrator drives one upstream model stream through the processing
// pipeline and into an ordered outbound event sequence. It holds only
// dependencies; per-stream state lives in Run, so one instance is safe for
// concurrent streams.
type Orchestrator struct {
	client llm.Client
	saver  MessageSaver
	sig    Signatures
	log    *zap.Logger
}

// NewOrchestrator wires an orchestrator. saver may be nil, in which case
// turns are not persisted and no assistant_message_id frame is emitted.
func NewOrchestrator(client llm.Client, saver MessageSaver, sig Signatures, log *zap.Logger) *Orchestrator {
	return &Orchestrator{client: client, saver: saver, sig: sig, log: log}
}

// Run streams one turn. Frame order: metadata first, then content and
// event frames, then exactly one terminal frame (done on success, error on
// upstream failure). The assistant turn is persisted exactly once, before
// the done frame; a persistence failure downgrades to a logged warning so
// the delivered stream still terminates cleanly.
//
// The returned error reports the upstream or sink failure for the caller's
// own accounting; the terminal frame has already been sent when possible.
// When ctx is done the client is gone, so no error frame is attempted.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink Sink) error {
	if err := sink(model.MetadataEvent(model.StreamMetadata{
		ThreadID:      req.ThreadID,
		UserMessageID: req.UserMessageID,
		UserID:        req.UserID,
		AgentEndpoint: req.AgentEndpoint,
	})); err != nil {
		return err
	}

	cls := NewClassifier(o.sig)
	col := NewCollector()
	var answer strings.Builder
	var buf string

	emit := func(text string) error {
		answer.WriteString(text)
		buf += text
		for {
			unit, rest, ok := SplitAtBoundary(buf)
			if !ok {
				return nil
			}
			buf = rest
			if frame := StripArtifacts(unit); frame != "" {
				if err := sink(model.ContentEvent(frame)); err != nil {
					return err
				}
			}
		}
	}

	streamErr := o.client.Stream(ctx, &llm.ChatRequest{Model: req.Model, Messages: req.Messages}, func(ev llm.StreamEvent) error {
		switch ev.Kind {
		case llm.EventTextDelta:
			if out := cls.Feed(ev.Text); out != "" {
				return emit(out)
			}
		case llm.EventReasoningDelta:
			cls.FeedReasoning(ev.Text)
		case llm.EventAnnotationAdded:
			if ev.Annotation == nil {
				return nil
			}
			if c := col.Add(ev.ContentIndex, ev.Annotation.Title, ev.Annotation.URL); c != nil {
				metrics.RecordCitation()
			} else {
				metrics.RecordCitationDropped()
			}
		case llm.EventDone:
		}
		return nil
	})
	if streamErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.log.Error("upstream stream failed",
			zap.String("thread_id", req.ThreadID),
			zap.String("provider", o.client.Name()),
			zap.Error(streamErr))
		if err := sink(model.ErrorEvent(streamErr.Error())); err != nil {
			return err
		}
		return streamErr
	}

	if tail := cls.Finish(); tail != "" {
		answer.WriteString(tail)
		buf += tail
	}

	content, notes := ExtractFootnotes(answer.String())
	reasoning := cls.Reasoning()

	// Remaining buffered text goes out in one frame with footnote
	// definition lines removed and inline references rewritten to the same
	// numbered links the full answer carries; the definitions themselves
	// travel in the footnotes frame below.
	if buf != "" {
		tailMain, _ := splitDefinitions(buf)
		numbers := make(map[string]int, len(notes))
		for _, n := range notes {
			numbers[n.ID] = n.Number
		}
		frame := rewriteReferences(StripArtifacts(tailMain), numbers)
		if frame = strings.TrimRight(frame, " \t\n"); frame != "" {
			if err := sink(model.ContentEvent(frame)); err != nil {
				return err
			}
		}
	}

	if reasoning != "" {
		if err := sink(model.ReasoningEvent(wrapThink(reasoning))); err != nil {
			return err
		}
	}
	if citations := col.Citations(); len(citations) > 0 {
		if err := sink(model.CitationsEvent(citations)); err != nil {
			return err
		}
	}
	if len(notes) > 0 {
		metrics.RecordFootnotes(len(notes))
		if err := sink(model.FootnotesEvent(notes)); err != nil {
			return err
		}
	}

	if id, ok := o.persist(ctx, req, content, reasoning, col.Citations(), notes); ok {
		if err := sink(model.AssistantMessageIDEvent(id)); err != nil {
			return err
		}
	}
	return sink(model.DoneEvent())
}

// Complete runs one turn without streaming, applying the same pipeline to
// the full response.
func (o *Orchestrator) Complete(ctx context.Context, req Request) (*Result, error) {
	resp, err := o.client.Complete(ctx, &llm.ChatRequest{Model: req.Model, Messages: req.Messages})
	if err != nil {
		return nil, err
	}

	cls := NewClassifier(o.sig)
	col := NewCollector()
	for i, block := range resp.Blocks {
		cls.Feed(block.Text)
		for _, a := range block.Annotations {
			if c := col.Add(i, a.Title, a.URL); c != nil {
				metrics.RecordCitation()
			} else {
				metrics.RecordCitationDropped()
			}
		}
	}
	cls.Finish()

	content, notes := ExtractFootnotes(cls.Content())
	reasoning := cls.Reasoning()
	if len(notes) > 0 {
		metrics.RecordFootnotes(len(notes))
	}

	res := &Result{
		Content:   content,
		Reasoning: reasoning,
		Citations: col.Citations(),
		Footnotes: notes,
	}
	if id, ok := o.persist(ctx, req, content, reasoning, col.Citations(), notes); ok {
		res.AssistantMessageID = id
	}
	return res, nil
}

// persist saves the assistant turn. Reasoning is folded into the stored
// content inside a think block so a single column round-trips the whole
// turn. Returns the new message id and whether the save succeeded.
func (o *Orchestrator) persist(ctx context.Context, req Request, content, reasoning string, citations []model.Citation, notes []model.Footnote) (string, bool) {
	if o.saver == nil {
		return "", false
	}
	stored := content
	if reasoning != "" {
		stored = wrapThink(reasoning) + content
	}
	var meta map[string]any
	if len(citations) > 0 || len(notes) > 0 {
		meta = make(map[string]any, 2)
		if len(citations) > 0 {
			meta["citations"] = citations
		}
		if len(notes) > 0 {
			meta["footnotes"] = notes
		}
	}
	id, err := o.saver.SaveMessage(ctx, req.ThreadID, req.UserID, model.RoleAssistant, stored, req.AgentEndpoint, meta)
	if err != nil {
		o.log.Warn("failed to persist assistant message",
			zap.String("thread_id", req.ThreadID),
			zap.Error(err))
		return "", false
	}
	return id, true
}

func wrapThink(reasoning string) string {
	return "<think>\n" + reasoning + "\n</think>\n\n"
}
