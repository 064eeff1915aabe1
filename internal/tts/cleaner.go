// Package tts turns assistant responses into speakable audio: an LLM pass
// strips formatting the voice should not read, sentences are segmented as
// the cleaned text streams in, and each sentence is synthesized.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/brickchat/backend/pkg/metrics"
)

var thinkBlockPattern = regexp.MustCompile(`(?is)<think>.*?</think>\s*`)

// StripThinkTags removes reasoning blocks from text before speech
// processing. Reasoning is never spoken aloud.
func StripThinkTags(text string) string {
	return strings.TrimSpace(thinkBlockPattern.ReplaceAllString(text, ""))
}

const cleanPrompt = `Act like a human who is editing this text to be optimized for listening by other humans.
Clean up and remove all footnotes, references, HTML tags, markdown formatting, and any reasoning/thinking process text.
Focus only on the actual informational content that should be spoken aloud.
Don't change the core subject or meaning, just make it natural for text-to-speech.
Return only the cleaned text without any explanation.

Text to clean:
%s`

const (
	cleanMaxTokens   = 2000
	cleanTemperature = 0.3
)

// Cleaner rewrites text for listening via an LLM, with an LRU cache keyed by
// the raw input. Cleaning is best effort: any LLM failure falls back to the
// original text so speech never fails on the cleaning pass.
type Cleaner struct {
	model string
	cache *lru.Cache[string, string]
	log   *zap.Logger

	complete func(ctx context.Context, prompt string) (string, error)
	stream   func(ctx context.Context, prompt string, fn func(string) error) error
}

// NewCleaner wires a cleaner around a chat-completions client. client may be
// nil, in which case text passes through unchanged.
func NewCleaner(client *goopenai.Client, model string, cacheSize int, log *zap.Logger) (*Cleaner, error) {
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create clean cache: %w", err)
	}
	c := &Cleaner{model: model, cache: cache, log: log}
	if client != nil {
		c.complete = func(ctx context.Context, prompt string) (string, error) {
			resp, err := client.CreateChatCompletion(ctx, c.request(prompt, false))
			if err != nil {
				return "", err
			}
			if len(resp.Choices) == 0 {
				return "", errors.New("empty completion response")
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}
		c.stream = func(ctx context.Context, prompt string, fn func(string) error) error {
			s, err := client.CreateChatCompletionStream(ctx, c.request(prompt, true))
			if err != nil {
				return err
			}
			defer s.Close()
			for {
				chunk, err := s.Recv()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
					continue
				}
				if err := fn(chunk.Choices[0].Delta.Content); err != nil {
					return err
				}
			}
		}
	}
	return c, nil
}

func (c *Cleaner) request(prompt string, stream bool) goopenai.ChatCompletionRequest {
	return goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   cleanMaxTokens,
		Temperature: cleanTemperature,
		Stream:      stream,
	}
}

// Clean returns the text rewritten for listening. Reasoning blocks are
// always stripped first.
func (c *Cleaner) Clean(ctx context.Context, text string) string {
	text = StripThinkTags(text)
	if text == "" {
		return ""
	}
	if cached, ok := c.cache.Get(text); ok {
		metrics.RecordTTSCacheHit()
		return cached
	}
	metrics.RecordTTSCacheMiss()

	if c.complete == nil {
		return text
	}
	cleaned, err := c.complete(ctx, fmt.Sprintf(cleanPrompt, text))
	if err != nil || cleaned == "" {
		c.log.Warn("text cleaning failed, using original text", zap.Error(err))
		return text
	}
	c.cache.Add(text, cleaned)
	return cleaned
}

// StreamClean streams the cleaned text to fn chunk by chunk. On any LLM
// failure the original text is delivered in one chunk instead.
func (c *Cleaner) StreamClean(ctx context.Context, text string, fn func(string) error) error {
	text = StripThinkTags(text)
	if text == "" {
		return nil
	}
	if cached, ok := c.cache.Get(text); ok {
		metrics.RecordTTSCacheHit()
		return fn(cached)
	}
	metrics.RecordTTSCacheMiss()

	if c.stream == nil {
		return fn(text)
	}

	var cleaned strings.Builder
	err := c.stream(ctx, fmt.Sprintf(cleanPrompt, text), func(chunk string) error {
		cleaned.WriteString(chunk)
		return fn(chunk)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("streaming text cleaning failed, using original text", zap.Error(err))
		return fn(text)
	}
	c.cache.Add(text, cleaned.String())
	return nil
}
