package recognize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chaz8081/gostt-live/internal/audio"
)

// whisperModelPath resolves the path to the multilingual whisper model
// relative to the project root.
func whisperModelPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join("..", "..", "models", "ggml-base.bin")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("model not found at %s (run 'gostt-live -download-model' first): %v", path, err)
	}
	return path
}

func TestNewWhisperTranscriberBadPath(t *testing.T) {
	_, err := NewWhisperTranscriber("/nonexistent/model.bin", "ja")
	if err == nil {
		t.Fatal("NewWhisperTranscriber with bad path should return error")
	}
}

func TestWhisperTranscriberLifecycle(t *testing.T) {
	path := whisperModelPath(t)

	tr, err := NewWhisperTranscriber(path, "ja")
	if err != nil {
		t.Fatalf("NewWhisperTranscriber(%q) returned error: %v", path, err)
	}

	text, err := tr.Process(nil)
	if err != nil || text != "" {
		t.Errorf("Process(nil) = %q, %v; want empty", text, err)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	if _, err := tr.Process(make([]float32, 16000)); err == nil {
		t.Error("Process() after Close should return error")
	}
}

func TestWhisperStreamingJFK(t *testing.T) {
	path := whisperModelPath(t)
	wavPath := filepath.Join("..", "..", "testdata", "jfk.wav")
	if _, err := os.Stat(wavPath); err != nil {
		t.Skipf("sample not found at %s: %v", wavPath, err)
	}

	samples, err := audio.LoadWAV(wavPath, 16000, 1)
	if err != nil {
		t.Fatalf("LoadWAV: %v", err)
	}

	tr, err := NewWhisperTranscriber(path, "en")
	if err != nil {
		t.Fatalf("NewWhisperTranscriber: %v", err)
	}
	defer tr.Close()

	r, err := New(EngineAnalyzer, tr, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	handler, events := collect()
	req := NewRequest()
	req.ShouldReportPartialResults = false
	task := r.RecognitionTask(req, handler)
	for off := 0; off < len(samples); off += 2048 {
		req.Append(samples[off:min(off+2048, len(samples))])
	}
	task.Finish()

	var final *Result
	for final == nil {
		ev := nextWithin(t, events, time.Minute)
		if ev.err != nil {
			t.Fatalf("recognition error: %v", ev.err)
		}
		if ev.res.IsFinal {
			final = ev.res
		}
	}

	if !strings.Contains(strings.ToLower(final.Text), "ask not what your country") {
		t.Errorf("expected transcript to contain 'ask not what your country', got: %q", final.Text)
	}

	const reference = "And so my fellow Americans, ask not what your country can do for you, ask what you can do for your country."
	rate := CompareTranscripts(reference, final.Text, "en")
	t.Logf("WER: %.1f%% (%d subs, %d ins, %d dels of %d words)",
		rate.Rate*100, rate.Substitutions, rate.Insertions, rate.Deletions, rate.RefUnits)
	if rate.Rate > 0.3 {
		t.Errorf("WER = %.2f, want <= 0.30", rate.Rate)
	}
}
