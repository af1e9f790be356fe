// internal/dsp/profile.go
package dsp

import (
	"errors"
	"fmt"
)

// ErrUnsupportedSampleRate indicates there is no coefficient table for the rate
var ErrUnsupportedSampleRate = errors.New("unsupported sample rate (want 8000, 16000 or 44100 Hz)")

// Coefficient layout within a Profile.
const (
	rowFirst      = 0  // 4 row tones
	colFirst      = 4  // 4 column tones
	dialToneLast  = 10 // rows, columns and the 2 discriminators end here
	harmonicFirst = 10 // 8 harmonic-rejection frequencies
)

// Profile is the fixed analysis setup for one sampling rate.
type Profile struct {
	// SampleRate in Hz
	SampleRate int
	// BatchSize is the number of samples classified at a time
	BatchSize int
	// Coefficients are Q14 values of 2*cos(2*pi*f/SampleRate)
	Coefficients [NumCoefficients]int16
}

// The analysis frequencies sit slightly off the nominal DTMF tones so that
// most of them are integer multiples of 78 Hz, which keeps the harmonic
// checks below cheap.
var profile8k = Profile{
	SampleRate: 8000,
	BatchSize:  102,
	Coefficients: [NumCoefficients]int16{
		27860,  // 706 Hz
		26745,  // 784 Hz
		25529,  // 863 Hz
		24216,  // 941 Hz
		19747,  // 1176 Hz
		16384,  // 1333 Hz
		12773,  // 1490 Hz
		8967,   // 1547 Hz
		21319,  // 1098 Hz
		29769,  // 549 Hz
		32706,  // 78 Hz
		32210,  // 235 Hz
		31778,  // 314 Hz
		31226,  // 392 Hz
		-1009,  // 2039 Hz
		-12772, // 2510 Hz
		-22811, // 2980 Hz
		-30555, // 3529 Hz
	},
}

var profile16k = Profile{
	SampleRate: 16000,
	BatchSize:  204,
	Coefficients: [NumCoefficients]int16{
		31516, 31226, 30903, 30555,
		29335, 28379, 27316, 26149,
		29768, 32008,
		32752, 32628, 32518, 32380, 22812, 18097, 12777, 6026,
	},
}

var profile44k1 = Profile{
	SampleRate: 44100,
	BatchSize:  512,
	Coefficients: [NumCoefficients]int16{
		32601, 32563, 32520, 32473,
		32308, 32178, 32031, 31869,
		32367, 32667,
		32765, 32749, 32734, 32716, 31394, 30694, 29858, 28712,
	},
}

// ProfileFor returns the analysis profile for a sampling rate.
// There is no fallback: any rate without a table is an error.
func ProfileFor(sampleRate int) (Profile, error) {
	switch sampleRate {
	case 8000:
		return profile8k, nil
	case 16000:
		return profile16k, nil
	case 44100:
		return profile44k1, nil
	}
	return Profile{}, fmt.Errorf("%w: %d Hz", ErrUnsupportedSampleRate, sampleRate)
}

// SupportedSampleRates lists the rates accepted by ProfileFor.
func SupportedSampleRates() []int {
	return []int{8000, 16000, 44100}
}
