// Package recognize provides streaming speech recognition on top of a batch
// Transcriber.
//
// Two engines are available:
//   - analyzer: segments speech on silence, emitting finalized and volatile text
//   - legacy: re-decodes a single utterance and finalizes at end of audio or
//     after a maximum duration
package recognize

// Transcriber converts audio samples to text.
type Transcriber interface {
	// Process transcribes mono float32 audio samples to text.
	Process(samples []float32) (string, error)
	// Close releases backend resources.
	Close() error
}
