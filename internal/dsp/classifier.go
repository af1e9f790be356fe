// internal/dsp/classifier.go
package dsp

import "errors"

var (
	// ErrBatchSize indicates a batch whose length differs from the profile's batch size
	ErrBatchSize = errors.New("batch length does not match profile batch size")
	// ErrInvalidPowerThreshold indicates power threshold must be non-negative
	ErrInvalidPowerThreshold = errors.New("power threshold must be non-negative")
	// ErrInvalidLowRatio indicates the dial-tone ratio must be at least 1
	ErrInvalidLowRatio = errors.New("low ratio must be at least 1")
	// ErrInvalidHighRatio indicates the harmonic ratio must be at least 1
	ErrInvalidHighRatio = errors.New("high ratio must be at least 1")
)

// Default classification thresholds.
const (
	DefaultPowerThreshold = 328
	DefaultLowRatio       = 6
	DefaultHighRatio      = 16
)

// Thresholds tunes the classification gates.
type Thresholds struct {
	// Power is the minimum mean absolute sample value of a non-silent batch (from config: power_threshold)
	Power int32
	// LowRatio is the minimum ratio of a detected tone to the other dial tones (from config: low_ratio)
	LowRatio int32
	// HighRatio is the minimum ratio of a detected tone to each harmonic (from config: high_ratio)
	HighRatio int32
}

// DefaultThresholds returns the thresholds the coefficient tables were tuned with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Power:     DefaultPowerThreshold,
		LowRatio:  DefaultLowRatio,
		HighRatio: DefaultHighRatio,
	}
}

// Validate checks the thresholds can be used as divisors and gates.
func (t Thresholds) Validate() error {
	if t.Power < 0 {
		return ErrInvalidPowerThreshold
	}
	if t.LowRatio < 1 {
		return ErrInvalidLowRatio
	}
	if t.HighRatio < 1 {
		return ErrInvalidHighRatio
	}
	return nil
}

// Class is the kind of a classification verdict.
type Class int

const (
	// ClassSilence means the batch is below the power threshold
	ClassSilence Class = iota
	// ClassTone means the batch holds a single keypad tone
	ClassTone
	// ClassUndefined means the batch has energy but no clean tone
	ClassUndefined
)

func (c Class) String() string {
	switch c {
	case ClassSilence:
		return "silence"
	case ClassTone:
		return "tone"
	case ClassUndefined:
		return "undefined"
	}
	return "unknown"
}

// Verdict is the result of classifying one batch.
// Tone is only meaningful when Class is ClassTone.
type Verdict struct {
	Class Class
	Tone  Tone
}

var (
	silence   = Verdict{Class: ClassSilence}
	undefined = Verdict{Class: ClassUndefined}
)

func toneVerdict(t Tone) Verdict {
	return Verdict{Class: ClassTone, Tone: t}
}

// Classifier turns one batch of samples into a Verdict.
// It keeps a scratch batch and the energy vector between calls, so it is
// not safe for concurrent use.
type Classifier struct {
	profile    Profile
	thresholds Thresholds
	scratch    []int16
	energies   Energies
}

// NewClassifier creates a classifier for a profile.
func NewClassifier(profile Profile, thresholds Thresholds) (*Classifier, error) {
	if profile.BatchSize <= 0 {
		return nil, ErrBatchSize
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{
		profile:    profile,
		thresholds: thresholds,
		scratch:    make([]int16, profile.BatchSize),
	}, nil
}

// Classify classifies a batch of exactly BatchSize samples.
func (c *Classifier) Classify(batch []int16) (Verdict, error) {
	if len(batch) != c.profile.BatchSize {
		return Verdict{}, ErrBatchSize
	}
	return c.classify(batch), nil
}

// Energies returns the energy vector of the last batch that passed the
// silence gate.
func (c *Classifier) Energies() Energies {
	return c.energies
}

// classify is the unchecked hot path. Caller MUST pass BatchSize samples.
func (c *Classifier) classify(batch []int16) Verdict {
	n := int32(len(batch))

	// Silence gate on the mean absolute amplitude
	var sum int32
	for _, x := range batch {
		if x >= 0 {
			sum += int32(x)
		} else {
			sum -= int32(x)
		}
	}
	if sum/n < c.thresholds.Power {
		return silence
	}

	c.normalize(batch)
	filterBank(&c.profile.Coefficients, c.scratch, &c.energies)

	return c.decide(&c.energies)
}

// normalize scales the batch into the scratch buffer so the loudest sample
// uses the top of the 16-bit range.
func (c *Classifier) normalize(batch []int16) {
	dial := 32
	for _, x := range batch {
		if x != 0 {
			dial = min(dial, NormShift(int32(x)))
		}
	}
	dial -= 16

	for i, x := range batch {
		c.scratch[i] = int16(int32(x) << dial)
	}
}

// decide applies the energy gates to the energy vector. e is modified in
// place: zero entries are replaced by 1 before the ratio checks.
func (c *Classifier) decide(e *Energies) Verdict {
	low := c.thresholds.LowRatio
	high := c.thresholds.HighRatio

	// Strongest row and column, earliest wins a tie
	row, peak := rowFirst, int32(0)
	for i := rowFirst; i < colFirst; i++ {
		if peak < e[i] {
			row, peak = i, e[i]
		}
	}
	col := colFirst
	peak = 0
	for i := colFirst; i < colFirst+4; i++ {
		if peak < e[i] {
			col, peak = i, e[i]
		}
	}

	// Mean of the other eight dial-tone energies
	var avg int32
	for i := 0; i < dialToneLast; i++ {
		avg += e[i]
	}
	avg -= e[row] + e[col]
	avg >>= 3
	if avg == 0 {
		avg = 1
	}

	if e[row]/avg < low || e[col]/avg < low {
		return undefined
	}

	// Twist: reverse (column louder) tolerates 4x, forward tolerates 0.375x
	if e[row] < e[col]>>2 {
		return undefined
	}
	if e[col] < (e[row]>>1)-(e[row]>>3) {
		return undefined
	}

	for i := range e {
		if e[i] == 0 {
			e[i] = 1
		}
	}

	for i := harmonicFirst; i < NumCoefficients; i++ {
		if e[row]/e[i] < high || e[col]/e[i] < high {
			return undefined
		}
	}

	// 1176 Hz overlaps harmonics of several discriminators, so column 4
	// gets a looser ratio against the other dial tones.
	colRatio := low
	if col == colFirst {
		colRatio = low / 3
	}
	for i := 0; i < dialToneLast; i++ {
		if i == row || i == col {
			continue
		}
		if e[row]/e[i] < low || e[col]/e[i] < colRatio {
			return undefined
		}
	}

	return toneVerdict(Keypad[row-rowFirst][col-colFirst])
}
