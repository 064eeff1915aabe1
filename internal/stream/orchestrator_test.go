package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brickchat/backend/internal/llm"
	"github.com/brickchat/backend/internal/model"
)

type fakeClient struct {
	events    []llm.StreamEvent
	streamErr error
	response  *llm.Response
}

func (f *fakeClient) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return f.response, nil
}

func (f *fakeClient) Stream(ctx context.Context, req *llm.ChatRequest, fn llm.EventFunc) error {
	for _, ev := range f.events {
		if err := fn(ev); err != nil {
			return err
		}
	}
	if f.streamErr != nil {
		return f.streamErr
	}
	return fn(llm.StreamEvent{Kind: llm.EventDone})
}

func (f *fakeClient) Name() string { return "fake" }

type fakeSaver struct {
	saved    bool
	content  string
	role     model.Role
	metadata map[string]any
	err      error
}

func (f *fakeSaver) SaveMessage(ctx context.Context, threadID, userID string, role model.Role, content, agentEndpoint string, metadata map[string]any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = true
	f.role = role
	f.content = content
	f.metadata = metadata
	return "msg-assistant-1", nil
}

func collectSink(frames *[]model.OutboundEvent) Sink {
	return func(ev model.OutboundEvent) error {
		*frames = append(*frames, ev)
		return nil
	}
}

func testRequest() Request {
	return Request{
		ThreadID:      "thread-1",
		UserID:        "user-1",
		UserMessageID: "msg-user-1",
		AgentEndpoint: "default",
		Messages:      []llm.ChatMessage{{Role: "user", Content: "hi"}},
	}
}

func TestOrchestratorRunFullStream(t *testing.T) {
	t.Parallel()

	client := &fakeClient{events: []llm.StreamEvent{
		{Kind: llm.EventTextDelta, Text: "Weighing sources</think>\n\nHere is the answer. "},
		{Kind: llm.EventTextDelta, Text: "More detail[^a] here.\n\n"},
		{Kind: llm.EventAnnotationAdded, ContentIndex: 0, Annotation: &llm.Annotation{Title: "Alpha", URL: "https://a.example"}},
		{Kind: llm.EventAnnotationAdded, ContentIndex: 1, Annotation: &llm.Annotation{Title: "Alpha dup", URL: "https://a.example"}},
		{Kind: llm.EventAnnotationAdded, ContentIndex: 2, Annotation: &llm.Annotation{Title: "No link", URL: ""}},
		{Kind: llm.EventTextDelta, Text: "[^a]: A source"},
	}}
	saver := &fakeSaver{}
	o := NewOrchestrator(client, saver, DefaultSignatures(), zap.NewNop())

	var frames []model.OutboundEvent
	require.NoError(t, o.Run(context.Background(), testRequest(), collectSink(&frames)))
	require.NotEmpty(t, frames)

	// First frame is metadata, last is the single terminal.
	require.NotNil(t, frames[0].Metadata)
	assert.Equal(t, "thread-1", frames[0].Metadata.ThreadID)
	assert.Equal(t, "msg-user-1", frames[0].Metadata.UserMessageID)
	assert.True(t, frames[len(frames)-1].Done)
	for _, f := range frames[:len(frames)-1] {
		assert.False(t, f.Terminal())
	}

	var content string
	var citations []model.Citation
	var footnotes []model.Footnote
	var reasoning, assistantID string
	for _, f := range frames {
		content += f.Content
		if f.Citations != nil {
			citations = f.Citations
		}
		if f.Footnotes != nil {
			footnotes = f.Footnotes
		}
		if f.Reasoning != "" {
			reasoning = f.Reasoning
		}
		if f.AssistantMessageID != "" {
			assistantID = f.AssistantMessageID
		}
	}

	assert.Equal(t, "Here is the answer. More detail[^a] here.\n\n", content)
	assert.Equal(t, "<think>\nWeighing sources\n</think>\n\n", reasoning)
	require.Len(t, citations, 1)
	assert.Equal(t, "1", citations[0].ID)
	require.Len(t, footnotes, 1)
	assert.Equal(t, "A source", footnotes[0].Content)
	assert.Equal(t, "msg-assistant-1", assistantID)

	require.True(t, saver.saved)
	assert.Equal(t, model.RoleAssistant, saver.role)
	assert.Contains(t, saver.content, "<think>\nWeighing sources\n</think>\n\n")
	assert.Contains(t, saver.content, `<sup><a href="#footnote-1">1</a></sup>`)
	assert.NotContains(t, saver.content, "[^a]:")
	assert.Contains(t, saver.metadata, "citations")
}

func TestOrchestratorRunRewritesTailReferences(t *testing.T) {
	t.Parallel()

	// A reference still buffered at stream end goes out as the numbered
	// link, not the raw marker, matching the footnotes frame.
	client := &fakeClient{events: []llm.StreamEvent{
		{Kind: llm.EventTextDelta, Text: "Here are the results[^a]\n[^a]: Note"},
	}}
	o := NewOrchestrator(client, &fakeSaver{}, DefaultSignatures(), zap.NewNop())

	var frames []model.OutboundEvent
	require.NoError(t, o.Run(context.Background(), testRequest(), collectSink(&frames)))

	var content string
	var footnotes []model.Footnote
	for _, f := range frames {
		content += f.Content
		if f.Footnotes != nil {
			footnotes = f.Footnotes
		}
	}

	assert.Equal(t, `Here are the results<sup><a href="#footnote-1">1</a></sup>`, content)
	assert.NotContains(t, content, "[^a]")
	require.Len(t, footnotes, 1)
	assert.Equal(t, 1, footnotes[0].Number)
	assert.Equal(t, "Note", footnotes[0].Content)
}

func TestOrchestratorRunUpstreamError(t *testing.T) {
	t.Parallel()

	upstream := errors.New("upstream unavailable")
	client := &fakeClient{
		events:    []llm.StreamEvent{{Kind: llm.EventTextDelta, Text: "Partial answer. "}},
		streamErr: upstream,
	}
	saver := &fakeSaver{}
	o := NewOrchestrator(client, saver, DefaultSignatures(), zap.NewNop())

	var frames []model.OutboundEvent
	err := o.Run(context.Background(), testRequest(), collectSink(&frames))
	require.ErrorIs(t, err, upstream)

	last := frames[len(frames)-1]
	assert.Equal(t, "upstream unavailable", last.Error)
	assert.False(t, last.Done)
	terminals := 0
	for _, f := range frames {
		if f.Terminal() {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
	assert.False(t, saver.saved)
}

func TestOrchestratorRunDisconnect(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &fakeClient{streamErr: context.Canceled}
	o := NewOrchestrator(client, &fakeSaver{}, DefaultSignatures(), zap.NewNop())

	var frames []model.OutboundEvent
	err := o.Run(ctx, testRequest(), collectSink(&frames))
	require.ErrorIs(t, err, context.Canceled)

	// No error frame for a client that already went away.
	for _, f := range frames {
		assert.Empty(t, f.Error)
	}
}

func TestOrchestratorRunPersistFailure(t *testing.T) {
	t.Parallel()

	client := &fakeClient{events: []llm.StreamEvent{
		{Kind: llm.EventTextDelta, Text: "A short answer.</think>\n\nAll good here. "},
	}}
	saver := &fakeSaver{err: errors.New("database locked")}
	o := NewOrchestrator(client, saver, DefaultSignatures(), zap.NewNop())

	var frames []model.OutboundEvent
	require.NoError(t, o.Run(context.Background(), testRequest(), collectSink(&frames)))

	assert.True(t, frames[len(frames)-1].Done)
	for _, f := range frames {
		assert.Empty(t, f.AssistantMessageID)
	}
}

func TestOrchestratorComplete(t *testing.T) {
	t.Parallel()

	client := &fakeClient{response: &llm.Response{Blocks: []llm.ContentBlock{
		{
			Text:        "Planning the reply</think>\n\nThe result[^r] is ready.\n\n[^r]: Ref text",
			Annotations: []llm.Annotation{{Title: "Ref", URL: "https://r.example"}},
		},
		{
			Annotations: []llm.Annotation{{Title: "Second ref", URL: "https://r2.example"}},
		},
	}}}
	saver := &fakeSaver{}
	o := NewOrchestrator(client, saver, DefaultSignatures(), zap.NewNop())

	res, err := o.Complete(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, `The result<sup><a href="#footnote-1">1</a></sup> is ready.`, res.Content)
	assert.Equal(t, "Planning the reply", res.Reasoning)
	require.Len(t, res.Citations, 2)
	// Citations carry the index of the content block they annotate.
	assert.Equal(t, 0, res.Citations[0].ContentIndex)
	assert.Equal(t, 1, res.Citations[1].ContentIndex)
	require.Len(t, res.Footnotes, 1)
	assert.Equal(t, "msg-assistant-1", res.AssistantMessageID)
	assert.True(t, saver.saved)
}
