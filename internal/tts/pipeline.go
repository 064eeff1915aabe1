package tts

import (
	"context"
	"encoding/base64"
	"strings"

	"go.uber.org/zap"

	"github.com/brickchat/backend/internal/stream"
)

// audioChunkSize bounds one audio frame so the client can start playback
// before a sentence finishes downloading.
const audioChunkSize = 8192

// Frame is one event of the speech stream.
type Frame struct {
	Type      string `json:"type"`
	Chunk     string `json:"chunk,omitempty"`
	Sentences int    `json:"sentences,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Pipeline streams text through cleaning, sentence segmentation, and
// synthesis. Sentence boundaries are detected on the cleaned stream so audio
// for early sentences plays while later text is still being cleaned.
type Pipeline struct {
	cleaner *Cleaner
	synth   Synthesizer
	log     *zap.Logger
}

// NewPipeline wires a speech pipeline.
func NewPipeline(cleaner *Cleaner, synth Synthesizer, log *zap.Logger) *Pipeline {
	return &Pipeline{cleaner: cleaner, synth: synth, log: log}
}

// Speak streams audio frames for text into emit, ending with a done frame.
// A sentence whose synthesis fails is skipped so one bad sentence does not
// kill the whole stream.
func (p *Pipeline) Speak(ctx context.Context, text, voice string, emit func(Frame) error) error {
	if !strings.HasPrefix(voice, "aura-") {
		voice = DefaultVoice
	}

	text = StripThinkTags(text)
	if text == "" {
		return emit(Frame{Type: "error", Message: "No text after cleaning"})
	}

	var buf string
	sentences := 0
	speak := func(sentence string) error {
		audio, err := p.synth.Synthesize(ctx, sentence, voice)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn("sentence synthesis failed",
				zap.Int("sentence", sentences),
				zap.Error(err))
			return nil
		}
		for off := 0; off < len(audio); off += audioChunkSize {
			end := off + audioChunkSize
			if end > len(audio) {
				end = len(audio)
			}
			frame := Frame{
				Type:  "audio",
				Chunk: base64.StdEncoding.EncodeToString(audio[off:end]),
			}
			if err := emit(frame); err != nil {
				return err
			}
		}
		return nil
	}

	err := p.cleaner.StreamClean(ctx, text, func(chunk string) error {
		buf += chunk
		for {
			sentence, rest, ok := stream.SplitSentence(buf)
			if !ok {
				return nil
			}
			buf = rest
			if sentence == "" {
				continue
			}
			sentences++
			if err := speak(sentence); err != nil {
				return err
			}
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return emit(Frame{Type: "error", Message: err.Error()})
	}

	if tail := strings.TrimSpace(buf); tail != "" {
		sentences++
		if err := speak(tail); err != nil {
			return err
		}
	}

	return emit(Frame{Type: "done", Sentences: sentences})
}
