package recognize

import (
	"fmt"
	"time"
)

// Engine names.
const (
	EngineAnalyzer = "analyzer"
	EngineLegacy   = "legacy"
)

// Options tunes a Recognizer.
type Options struct {
	SampleRate       int
	Channels         int
	Language         string
	PartialInterval  time.Duration
	MaxDuration      time.Duration // legacy: utterance length that forces a final result
	SilenceThreshold float64       // analyzer: RMS below which audio counts as silence
	SilenceDuration  time.Duration // analyzer: silence that closes a segment
	MaxSegment       time.Duration // analyzer: segment length that forces a close
}

// DefaultOptions returns options for 16kHz mono audio.
func DefaultOptions() Options {
	return Options{
		SampleRate:       16000,
		Channels:         1,
		PartialInterval:  500 * time.Millisecond,
		MaxDuration:      time.Minute,
		SilenceThreshold: 0.01,
		SilenceDuration:  800 * time.Millisecond,
		MaxSegment:       25 * time.Second,
	}
}

func (o Options) samples(d time.Duration) int {
	return int(d.Seconds() * float64(o.SampleRate))
}

// Recognizer starts streaming recognition tasks for one engine.
type Recognizer struct {
	engine string
	tr     Transcriber
	opts   Options
}

// New creates a Recognizer for the named engine.
func New(engine string, tr Transcriber, opts Options) (*Recognizer, error) {
	switch engine {
	case EngineAnalyzer, EngineLegacy:
	default:
		return nil, fmt.Errorf("recognize: unknown engine %q (supported: analyzer, legacy)", engine)
	}
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("recognize: sample rate must be > 0")
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	if opts.PartialInterval <= 0 {
		opts.PartialInterval = DefaultOptions().PartialInterval
	}
	return &Recognizer{engine: engine, tr: tr, opts: opts}, nil
}

// Engine returns the engine name.
func (r *Recognizer) Engine() string {
	return r.engine
}

// Available reports whether the recognizer has a backend to decode with.
func (r *Recognizer) Available() bool {
	return r.tr != nil
}

// RecognitionTask starts recognizing audio appended to req. Results and the
// terminal error are delivered to handler from the task goroutine.
func (r *Recognizer) RecognitionTask(req *Request, handler Handler) Task {
	return startTask(req, r.newDecoder(), handler, r.opts.Channels, r.opts.PartialInterval)
}

func (r *Recognizer) newDecoder() decoder {
	if r.engine == EngineLegacy {
		return &legacyDecoder{
			tr:         r.tr,
			maxSamples: r.opts.samples(r.opts.MaxDuration),
		}
	}
	return &analyzerDecoder{
		tr:                r.tr,
		sep:               WordSeparator(r.opts.Language),
		threshold:         r.opts.SilenceThreshold,
		silenceSamples:    max(r.opts.samples(r.opts.SilenceDuration), 1),
		maxSegmentSamples: max(r.opts.samples(r.opts.MaxSegment), 1),
	}
}
