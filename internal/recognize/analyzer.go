package recognize

import "math"

// analyzerDecoder splits audio into speech segments with an energy-based
// voice activity detector. Closed segments become finalized text; the open
// segment is re-decoded as volatile text.
type analyzerDecoder struct {
	tr                Transcriber
	sep               string
	threshold         float64
	silenceSamples    int
	maxSegmentSamples int

	finalized string
	volatile  string
	segment   []float32
	voiced    bool
	silentRun int
	dirty     bool
}

func (d *analyzerDecoder) push(samples []float32) (*Result, error) {
	d.segment = append(d.segment, samples...)
	if rms(samples) >= d.threshold {
		d.voiced = true
		d.silentRun = 0
		d.dirty = true
	} else {
		d.silentRun += len(samples)
	}

	switch {
	case d.voiced && (d.silentRun >= d.silenceSamples || len(d.segment) >= d.maxSegmentSamples):
		return d.closeSegment()
	case !d.voiced && d.silentRun >= d.silenceSamples:
		// Leading silence carries nothing worth decoding.
		d.segment = d.segment[:0]
		d.silentRun = 0
	}
	return nil, nil
}

func (d *analyzerDecoder) partial() (*Result, error) {
	if !d.dirty || !d.voiced {
		return nil, nil
	}
	d.dirty = false

	text, err := d.tr.Process(d.segment)
	if err != nil {
		return nil, err
	}
	if text == d.volatile {
		return nil, nil
	}
	d.volatile = text
	return d.result(false), nil
}

func (d *analyzerDecoder) final() (*Result, error) {
	if d.voiced {
		if _, err := d.closeSegment(); err != nil {
			return nil, err
		}
	}
	return d.result(true), nil
}

// closeSegment decodes the open segment into finalized text.
func (d *analyzerDecoder) closeSegment() (*Result, error) {
	text, err := d.tr.Process(d.segment)
	if err != nil {
		return nil, err
	}

	changed := text != "" || d.volatile != ""
	d.finalized = join(d.finalized, text, d.sep)
	d.volatile = ""
	d.segment = d.segment[:0]
	d.voiced = false
	d.silentRun = 0
	d.dirty = false

	if !changed {
		return nil, nil
	}
	return d.result(false), nil
}

func (d *analyzerDecoder) result(final bool) *Result {
	return &Result{
		Text:      join(d.finalized, d.volatile, d.sep),
		Finalized: d.finalized,
		Volatile:  d.volatile,
		IsFinal:   final,
	}
}

// rms returns the root mean square amplitude of samples.
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
