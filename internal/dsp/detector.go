// internal/dsp/detector.go
package dsp

import (
	"sync/atomic"
	"time"
)

// ToneEvent reports the start of a new, distinct tone.
type ToneEvent struct {
	// Tone is the detected keypad symbol
	Tone Tone
	// Offset is the stream index of the first sample of the batch that
	// produced the event
	Offset int64
	// At is Offset expressed as time since the start of the stream
	At time.Duration
}

// ToneCallback is called when a new tone is detected.
// It runs synchronously inside Process. It must be fast and must not call
// Process or Reset; the read-only accessors are safe.
type ToneCallback func(event ToneEvent)

// Phase is the confirmed state of the debounce state machine.
type Phase int

const (
	// PhaseSilence means no tone is being held
	PhaseSilence Phase = iota
	// PhaseTone means a tone has been reported and is still held
	PhaseTone
)

func (p Phase) String() string {
	if p == PhaseTone {
		return "tone"
	}
	return "silence"
}

// State is the debounce state. Tone is the last reported symbol and is kept
// when the phase returns to silence.
type State struct {
	Phase Phase
	Tone  Tone
}

// DetectorConfig holds configuration for the DTMF detector.
// All values should come from the application config file.
type DetectorConfig struct {
	// SampleRate of the input stream in Hz: 8000, 16000 or 44100 (from config: sample_rate)
	SampleRate int
	// Thresholds for the classification gates (from config: power_threshold, low_ratio, high_ratio)
	Thresholds Thresholds
}

// Detector detects DTMF tones in a stream of 16-bit PCM samples.
// Input of any length is queued and classified in fixed-size batches; a
// tone is reported once when it begins.
//
// Process must be called by a single goroutine with samples in stream order.
type Detector struct {
	config     DetectorConfig
	profile    Profile
	classifier *Classifier

	// Samples not yet classified, always fewer than one batch between calls.
	// Its capacity stays at one batch.
	pending []int16
	// Samples consumed into batches since construction or Reset
	processed int64

	state State

	// Callback for tone events (atomic so it can be swapped from another goroutine)
	callbackPtr atomic.Pointer[ToneCallback]
}

// NewDetector creates a new DTMF detector with the given configuration.
// A zero Thresholds value selects DefaultThresholds.
func NewDetector(cfg DetectorConfig) (*Detector, error) {
	profile, err := ProfileFor(cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	classifier, err := NewClassifier(profile, cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	return &Detector{
		config:     cfg,
		profile:    profile,
		classifier: classifier,
		pending:    make([]int16, 0, profile.BatchSize),
		state:      State{Phase: PhaseSilence},
	}, nil
}

// SetCallback sets the callback for tone events. A nil callback disables
// reporting; detection state still advances.
func (d *Detector) SetCallback(cb ToneCallback) {
	if cb == nil {
		d.callbackPtr.Store(nil)
	} else {
		d.callbackPtr.Store(&cb)
	}
}

// Process classifies every complete batch of the stream in order. Samples
// that do not fill a batch are kept for the next call, so the events
// produced do not depend on how the stream is split across calls. Full
// batches are read in place from samples, and at most one partial batch is
// ever queued.
func (d *Detector) Process(samples []int16) {
	size := d.profile.BatchSize

	if len(d.pending) > 0 {
		n := min(size-len(d.pending), len(samples))
		d.pending = append(d.pending, samples[:n]...)
		samples = samples[n:]
		if len(d.pending) < size {
			return
		}
		d.classifyBatch(d.pending)
		d.pending = d.pending[:0]
	}

	for len(samples) >= size {
		d.classifyBatch(samples[:size])
		samples = samples[size:]
	}

	d.pending = append(d.pending, samples...)
}

func (d *Detector) classifyBatch(batch []int16) {
	d.advance(d.classifier.classify(batch), d.processed)
	d.processed += int64(len(batch))
}

// advance applies one verdict to the debounce state machine. Undefined
// verdicts never change the state; only an explicit silence ends a tone.
func (d *Detector) advance(v Verdict, offset int64) {
	switch v.Class {
	case ClassSilence:
		d.state.Phase = PhaseSilence
	case ClassTone:
		if d.state.Phase == PhaseTone && d.state.Tone == v.Tone {
			return
		}
		d.state = State{Phase: PhaseTone, Tone: v.Tone}
		d.emitEvent(ToneEvent{
			Tone:   v.Tone,
			Offset: offset,
			At:     d.sampleTime(offset),
		})
	}
}

// emitEvent calls the registered callback if set
func (d *Detector) emitEvent(event ToneEvent) {
	cbPtr := d.callbackPtr.Load()
	if cbPtr != nil {
		(*cbPtr)(event)
	}
}

func (d *Detector) sampleTime(offset int64) time.Duration {
	rate := int64(d.profile.SampleRate)
	return time.Duration(offset/rate)*time.Second +
		time.Duration(offset%rate)*time.Second/time.Duration(rate)
}

// State returns the current debounce state
func (d *Detector) State() State {
	return d.state
}

// Pending returns the number of queued samples not yet classified
func (d *Detector) Pending() int {
	return len(d.pending)
}

// Processed returns the number of samples classified so far
func (d *Detector) Processed() int64 {
	return d.processed
}

// Energies returns the energy vector of the last non-silent batch (for debugging)
func (d *Detector) Energies() Energies {
	return d.classifier.Energies()
}

// Reset drops queued samples and returns the detector to silence
func (d *Detector) Reset() {
	d.pending = d.pending[:0]
	d.processed = 0
	d.state = State{Phase: PhaseSilence}
}

// Config returns the current configuration
func (d *Detector) Config() DetectorConfig {
	return d.config
}

// Profile returns the analysis profile selected for the sample rate
func (d *Detector) Profile() Profile {
	return d.profile
}
