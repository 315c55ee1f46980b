package recognize

// legacyDecoder recognizes one utterance. Every partial re-decodes all audio
// received so far; the utterance is finalized at end of audio or when it
// reaches maxSamples.
type legacyDecoder struct {
	tr         Transcriber
	maxSamples int

	samples []float32
	dirty   bool
	last    string
}

func (d *legacyDecoder) push(samples []float32) (*Result, error) {
	d.samples = append(d.samples, samples...)
	d.dirty = true
	if d.maxSamples > 0 && len(d.samples) >= d.maxSamples {
		d.samples = d.samples[:d.maxSamples]
		return d.final()
	}
	return nil, nil
}

func (d *legacyDecoder) partial() (*Result, error) {
	if !d.dirty {
		return nil, nil
	}
	d.dirty = false

	text, err := d.tr.Process(d.samples)
	if err != nil {
		return nil, err
	}
	if text == d.last {
		return nil, nil
	}
	d.last = text
	return &Result{Text: text, Volatile: text}, nil
}

func (d *legacyDecoder) final() (*Result, error) {
	text := d.last
	if d.dirty {
		var err error
		text, err = d.tr.Process(d.samples)
		if err != nil {
			return nil, err
		}
		d.dirty = false
		d.last = text
	}
	return &Result{Text: text, Finalized: text, IsFinal: true}, nil
}
