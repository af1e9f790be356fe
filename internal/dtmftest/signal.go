// internal/dtmftest/signal.go
// Package dtmftest synthesizes PCM test signals for DTMF detection tests.
package dtmftest

import (
	"fmt"
	"math"
)

// Nominal DTMF frequencies in Hz.
var (
	RowFrequencies    = [4]float64{697, 770, 852, 941}
	ColumnFrequencies = [4]float64{1209, 1336, 1477, 1633}
)

// DefaultAmplitude is the per-component peak amplitude used by the helpers.
// Two components at this level stay well inside the int16 range.
const DefaultAmplitude = 8000

var keypad = [4]string{"123A", "456B", "789C", "*0#D"}

// KeypadPosition returns the keypad row and column of a symbol.
func KeypadPosition(symbol byte) (row, col int, ok bool) {
	for r, line := range keypad {
		for c := 0; c < len(line); c++ {
			if line[c] == symbol {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

// Frequencies returns the nominal low and high frequency of a keypad symbol.
func Frequencies(symbol byte) (low, high float64, ok bool) {
	r, c, ok := KeypadPosition(symbol)
	if !ok {
		return 0, 0, false
	}
	return RowFrequencies[r], ColumnFrequencies[c], true
}

// CoefficientFrequency inverts a Q14 Goertzel coefficient 2*cos(w) back to
// the frequency in Hz it was generated for.
func CoefficientFrequency(coeff int16, sampleRate int) float64 {
	return math.Acos(float64(coeff)/32767.0) * float64(sampleRate) / (2 * math.Pi)
}

// DualTone returns n samples of two summed sines starting at phase zero.
func DualTone(low, high float64, sampleRate, n int, amplitude float64) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		v := amplitude*math.Sin(2*math.Pi*low*t) + amplitude*math.Sin(2*math.Pi*high*t)
		samples[i] = clamp16(v)
	}
	return samples
}

// Sine returns n samples of a single sine starting at phase zero.
func Sine(freq float64, sampleRate, n int, amplitude float64) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		samples[i] = clamp16(amplitude * math.Sin(2*math.Pi*freq*t))
	}
	return samples
}

// Tone returns n samples of the nominal DTMF pair for a keypad symbol.
// It panics on a symbol that is not on the keypad.
func Tone(symbol byte, sampleRate, n int) []int16 {
	low, high, ok := Frequencies(symbol)
	if !ok {
		panic("dtmftest: not a keypad symbol: " + string(symbol))
	}
	return DualTone(low, high, sampleRate, n, DefaultAmplitude)
}

// Silence returns n zero samples.
func Silence(n int) []int16 {
	return make([]int16, n)
}

// Sequence renders each symbol as toneMs of tone followed by gapMs of silence.
func Sequence(symbols string, sampleRate, toneMs, gapMs int) []int16 {
	toneLen := sampleRate * toneMs / 1000
	gapLen := sampleRate * gapMs / 1000

	out := make([]int16, 0, len(symbols)*(toneLen+gapLen))
	for i := 0; i < len(symbols); i++ {
		out = append(out, Tone(symbols[i], sampleRate, toneLen)...)
		out = append(out, Silence(gapLen)...)
	}
	return out
}

// Constant returns n copies of value.
func Constant(value int16, n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = value
	}
	return samples
}

// Split cuts samples into consecutive chunks of the given sizes, cycling
// through sizes until the input is used up. It panics when sizes is empty
// or holds a size below 1.
func Split(samples []int16, sizes ...int) [][]int16 {
	if len(sizes) == 0 {
		panic("dtmftest: Split needs at least one size")
	}
	for _, n := range sizes {
		if n < 1 {
			panic(fmt.Sprintf("dtmftest: Split size %d is below 1", n))
		}
	}

	var chunks [][]int16
	for i := 0; len(samples) > 0; i++ {
		n := min(sizes[i%len(sizes)], len(samples))
		chunks = append(chunks, samples[:n])
		samples = samples[n:]
	}
	return chunks
}

func clamp16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
