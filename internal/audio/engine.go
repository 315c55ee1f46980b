package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// TapFunc receives one frame of interleaved float32 samples. It is called from
// the audio thread and must not block.
type TapFunc func(frame []float32)

// ErrTapInstalled is returned by InstallTap when a tap is already installed.
var ErrTapInstalled = errors.New("audio: tap already installed")

// tap slices incoming samples into fixed-size frames for a TapFunc.
type tap struct {
	fn      TapFunc
	samples int // samples per frame (frames * channels)
	pending []float32
}

// feed appends samples and emits every complete frame.
func (t *tap) feed(samples []float32) {
	t.pending = append(t.pending, samples...)
	for len(t.pending) >= t.samples {
		frame := make([]float32, t.samples)
		copy(frame, t.pending[:t.samples])
		t.fn(frame)
		t.pending = t.pending[t.samples:]
	}
}

// flush emits the samples left over from the last incomplete frame.
func (t *tap) flush() {
	if len(t.pending) == 0 {
		return
	}
	frame := make([]float32, len(t.pending))
	copy(frame, t.pending)
	t.pending = nil
	t.fn(frame)
}

// Engine captures audio from the default microphone and delivers it to an
// installed tap in frames of a fixed size.
type Engine struct {
	session    *Session
	sampleRate uint32
	channels   uint32

	mu     sync.Mutex
	device *malgo.Device
	tap    *tap
}

// NewEngine creates a capture engine bound to the shared audio session.
func NewEngine(session *Session, sampleRate, channels uint32) *Engine {
	return &Engine{
		session:    session,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// InstallTap registers fn to receive frames of bufferSize sample-frames.
func (e *Engine) InstallTap(bufferSize uint32, fn TapFunc) error {
	if bufferSize == 0 {
		return fmt.Errorf("audio: tap buffer size must be > 0")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tap != nil {
		return ErrTapInstalled
	}
	e.tap = &tap{fn: fn, samples: int(bufferSize * e.channels)}
	return nil
}

// RemoveTap delivers any buffered partial frame and detaches the tap. No
// frames are delivered after it returns.
func (e *Engine) RemoveTap() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tap != nil {
		e.tap.flush()
		e.tap = nil
	}
}

// Start begins capturing from the default microphone. The session must be active.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.device != nil {
		e.mu.Unlock()
		return nil
	}
	period := uint32(0)
	if e.tap != nil {
		period = uint32(e.tap.samples) / e.channels
	}
	e.mu.Unlock()

	ctx, err := e.session.context()
	if err != nil {
		return err
	}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = e.channels
	deviceCfg.SampleRate = e.sampleRate
	deviceCfg.PeriodSizeInFrames = period

	device, err := malgo.InitDevice(ctx, deviceCfg, malgo.DeviceCallbacks{
		Data: e.onData,
	})
	if err != nil {
		return fmt.Errorf("audio: initializing capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("audio: starting capture device: %w", err)
	}

	e.mu.Lock()
	e.device = device
	e.mu.Unlock()
	return nil
}

// Stop halts capture. Stopping a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	device := e.device
	e.device = nil
	e.mu.Unlock()

	// Uninit waits for the audio thread, which takes e.mu in onData.
	if device != nil {
		device.Uninit()
	}
}

// IsRunning returns whether the engine is currently capturing audio.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.device != nil
}

// onData is the malgo callback invoked when audio data is available.
// pSample contains the captured audio frames as raw bytes (float32 format).
func (e *Engine) onData(_, pSample []byte, frameCount uint32) {
	samples := bytesToFloat32(pSample, frameCount*e.channels)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tap != nil {
		e.tap.feed(samples)
	}
}

// bytesToFloat32 converts raw bytes (little-endian float32) to a float32 slice.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}
