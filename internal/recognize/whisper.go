package recognize

import (
	"fmt"
	"io"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperTranscriber wraps a whisper.cpp model for speech-to-text.
type WhisperTranscriber struct {
	language string

	mu    sync.Mutex
	model whisper.Model
}

// NewWhisperTranscriber loads a whisper model from the given path and checks
// that it can decode the given language ("" or "auto" for detection).
// The caller must call Close() when done.
func NewWhisperTranscriber(modelPath, language string) (*WhisperTranscriber, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("recognize: load whisper model %q: %w", modelPath, err)
	}

	t := &WhisperTranscriber{model: model, language: language}
	if _, err := t.newContext(); err != nil {
		model.Close()
		return nil, err
	}
	return t, nil
}

// Close releases the whisper model resources.
func (t *WhisperTranscriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model != nil {
		err := t.model.Close()
		t.model = nil
		return err
	}
	return nil
}

// Process transcribes mono 16kHz float32 audio samples to text.
func (t *WhisperTranscriber) Process(samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return "", fmt.Errorf("recognize: whisper model is closed")
	}

	ctx, err := t.newContext()
	if err != nil {
		return "", err
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("recognize: process: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("recognize: next segment: %w", err)
		}
		segments = append(segments, strings.TrimSpace(seg.Text))
	}

	return strings.TrimSpace(strings.Join(segments, WordSeparator(t.language))), nil
}

func (t *WhisperTranscriber) newContext() (whisper.Context, error) {
	ctx, err := t.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("recognize: create context: %w", err)
	}
	if t.language != "" {
		if err := ctx.SetLanguage(t.language); err != nil {
			return nil, fmt.Errorf("recognize: set language %q: %w", t.language, err)
		}
	}
	return ctx, nil
}
