package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStripThinkTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "The answer.", StripThinkTags("<think>\nplanning\n</think>\n\nThe answer."))
	assert.Equal(t, "plain text", StripThinkTags("plain text"))
	assert.Empty(t, StripThinkTags("<think>only reasoning</think>"))
	// Case-insensitive, multiline blocks.
	assert.Equal(t, "kept", StripThinkTags("<THINK>a\nb\nc</THINK>   kept"))
}

func TestCleanerFallsBackOnError(t *testing.T) {
	t.Parallel()

	c, err := NewCleaner(nil, "test-model", 10, zap.NewNop())
	require.NoError(t, err)
	c.complete = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("upstream down")
	}

	assert.Equal(t, "original text stays", c.Clean(context.Background(), "original text stays"))
}

func TestCleanerCachesResults(t *testing.T) {
	t.Parallel()

	c, err := NewCleaner(nil, "test-model", 10, zap.NewNop())
	require.NoError(t, err)
	calls := 0
	c.complete = func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "cleaned", nil
	}

	assert.Equal(t, "cleaned", c.Clean(context.Background(), "raw input"))
	assert.Equal(t, "cleaned", c.Clean(context.Background(), "raw input"))
	assert.Equal(t, 1, calls)
}

func TestCleanerNilClientPassesThrough(t *testing.T) {
	t.Parallel()

	c, err := NewCleaner(nil, "test-model", 10, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "untouched", c.Clean(context.Background(), "untouched"))
}

type fakeSynth struct {
	spoken []string
	audio  []byte
	err    error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.spoken = append(f.spoken, text)
	return f.audio, nil
}

func TestPipelineSpeak(t *testing.T) {
	t.Parallel()

	cleaner, err := NewCleaner(nil, "test-model", 10, zap.NewNop())
	require.NoError(t, err)
	synth := &fakeSynth{audio: []byte("pcm-audio-bytes")}
	p := NewPipeline(cleaner, synth, zap.NewNop())

	var frames []Frame
	err = p.Speak(context.Background(),
		"<think>never spoken</think>The first sentence is here. And a short tail",
		"aura-2-thalia-en",
		func(f Frame) error {
			frames = append(frames, f)
			return nil
		})
	require.NoError(t, err)

	require.Equal(t, []string{"The first sentence is here.", "And a short tail"}, synth.spoken)
	require.Len(t, frames, 3)
	assert.Equal(t, "audio", frames[0].Type)
	decoded, err := base64.StdEncoding.DecodeString(frames[0].Chunk)
	require.NoError(t, err)
	assert.Equal(t, "pcm-audio-bytes", string(decoded))
	assert.Equal(t, "done", frames[2].Type)
	assert.Equal(t, 2, frames[2].Sentences)
}

func TestPipelineSpeakSkipsFailedSentence(t *testing.T) {
	t.Parallel()

	cleaner, err := NewCleaner(nil, "test-model", 10, zap.NewNop())
	require.NoError(t, err)
	synth := &fakeSynth{err: errors.New("synth down")}
	p := NewPipeline(cleaner, synth, zap.NewNop())

	var frames []Frame
	require.NoError(t, p.Speak(context.Background(), "A complete sentence here. ", "aura-2-thalia-en",
		func(f Frame) error {
			frames = append(frames, f)
			return nil
		}))

	require.Len(t, frames, 1)
	assert.Equal(t, "done", frames[0].Type)
	assert.Equal(t, 1, frames[0].Sentences)
}

func TestPipelineSpeakEmptyText(t *testing.T) {
	t.Parallel()

	cleaner, err := NewCleaner(nil, "test-model", 10, zap.NewNop())
	require.NoError(t, err)
	p := NewPipeline(cleaner, &fakeSynth{}, zap.NewNop())

	var frames []Frame
	require.NoError(t, p.Speak(context.Background(), "<think>nothing else</think>", "bad-voice",
		func(f Frame) error {
			frames = append(frames, f)
			return nil
		}))
	require.Len(t, frames, 1)
	assert.Equal(t, "error", frames[0].Type)
}
