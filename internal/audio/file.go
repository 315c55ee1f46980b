package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"
)

// FileInput replays a WAV file through a tap as if it were captured live.
// It has the same surface as Engine.
type FileInput struct {
	path       string
	sampleRate uint32
	channels   uint32
	realtime   bool

	mu    sync.Mutex
	tap   *tap
	stop  chan struct{}
	done  chan struct{}
	ended chan struct{}
}

// NewFileInput creates a FileInput that replays path in real time. The file's
// sample rate must match sampleRate; multi-channel files are downmixed when
// channels is 1.
func NewFileInput(path string, sampleRate, channels uint32) *FileInput {
	return &FileInput{
		path:       path,
		sampleRate: sampleRate,
		channels:   channels,
		realtime:   true,
		ended:      make(chan struct{}),
	}
}

// InstallTap registers fn to receive frames of bufferSize sample-frames.
func (f *FileInput) InstallTap(bufferSize uint32, fn TapFunc) error {
	if bufferSize == 0 {
		return fmt.Errorf("audio: tap buffer size must be > 0")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tap != nil {
		return ErrTapInstalled
	}
	f.tap = &tap{fn: fn, samples: int(bufferSize * f.channels)}
	return nil
}

// RemoveTap delivers any buffered partial frame and detaches the tap. No
// frames are delivered after it returns.
func (f *FileInput) RemoveTap() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tap != nil {
		f.tap.flush()
		f.tap = nil
	}
}

// Start loads the file and begins replaying it.
func (f *FileInput) Start() error {
	f.mu.Lock()
	if f.stop != nil {
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	samples, err := LoadWAV(f.path, f.sampleRate, f.channels)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	f.ended = make(chan struct{})
	go f.replay(samples, f.stop, f.done, f.ended)
	f.mu.Unlock()
	return nil
}

// Stop halts replay. Stopping a stopped input is a no-op.
func (f *FileInput) Stop() {
	f.mu.Lock()
	stop, done := f.stop, f.done
	f.stop, f.done = nil, nil
	f.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// IsRunning returns whether replay has been started and not stopped.
func (f *FileInput) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stop != nil
}

// Ended is closed once the current replay has delivered the whole file.
func (f *FileInput) Ended() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ended
}

func (f *FileInput) replay(samples []float32, stop <-chan struct{}, done, ended chan struct{}) {
	defer close(done)

	chunk := int(f.sampleRate/10) * int(f.channels) // 100ms
	interval := 100 * time.Millisecond

	for off := 0; off < len(samples); off += chunk {
		select {
		case <-stop:
			return
		default:
		}

		end := min(off+chunk, len(samples))

		f.mu.Lock()
		if f.tap != nil {
			f.tap.feed(samples[off:end])
		}
		f.mu.Unlock()

		if f.realtime {
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
		}
	}
	close(ended)
}

const wavFormatIEEEFloat = 3

// LoadWAV decodes a PCM WAV file into interleaved float32 samples in [-1, 1].
func LoadWAV(path string, sampleRate, channels uint32) ([]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: opening %s: %w", path, err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("audio: %s is not a valid WAV file", path)
	}
	if dec.WavAudioFormat == wavFormatIEEEFloat {
		return nil, fmt.Errorf("audio: %s holds IEEE float samples, only integer PCM is supported", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decoding %s: %w", path, err)
	}

	if uint32(buf.Format.SampleRate) != sampleRate {
		return nil, fmt.Errorf("audio: %s has sample rate %d, want %d", path, buf.Format.SampleRate, sampleRate)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("audio: %s has unsupported bit depth %d", path, bitDepth)
	}
	scale := float32(int64(1) << (bitDepth - 1))
	fileChans := buf.Format.NumChannels

	switch {
	case uint32(fileChans) == channels:
		samples := make([]float32, len(buf.Data))
		for i, s := range buf.Data {
			samples[i] = float32(s) / scale
		}
		return samples, nil
	case channels == 1:
		samples := make([]float32, len(buf.Data)/fileChans)
		for i := range samples {
			var sum float32
			for c := 0; c < fileChans; c++ {
				sum += float32(buf.Data[i*fileChans+c]) / scale
			}
			samples[i] = sum / float32(fileChans)
		}
		return samples, nil
	default:
		return nil, fmt.Errorf("audio: %s has %d channels, want %d", path, fileChans, channels)
	}
}
