package dsp

import (
	"errors"
	"strings"
	"testing"

	"github.com/ColonelBlimp/dtmfdecoder/internal/dtmftest"
)

// testedRates are the rates at which one batch of any symbol is recognized.
// At 44.1 kHz the 16-bit Goertzel state overflows for the low analysis
// frequencies, see TestClassify_SingleBatchAt44100.
var testedRates = []int{8000, 16000}

func newTestClassifier(t *testing.T, rate int, th Thresholds) *Classifier {
	t.Helper()
	p, err := ProfileFor(rate)
	if err != nil {
		t.Fatalf("ProfileFor(%d) error = %v", rate, err)
	}
	c, err := NewClassifier(p, th)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	return c
}

func classifyBatch(t *testing.T, c *Classifier, batch []int16) Verdict {
	t.Helper()
	v, err := c.Classify(batch)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	return v
}

// mix sums two signals sample by sample
func mix(a, b []int16) []int16 {
	out := make([]int16, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func TestClassify_Silence(t *testing.T) {
	for _, rate := range SupportedSampleRates() {
		c := newTestClassifier(t, rate, DefaultThresholds())
		n := c.profile.BatchSize

		if v := classifyBatch(t, c, dtmftest.Silence(n)); v.Class != ClassSilence {
			t.Errorf("rate %d: zeros classified as %v", rate, v.Class)
		}
		if v := classifyBatch(t, c, dtmftest.Constant(327, n)); v.Class != ClassSilence {
			t.Errorf("rate %d: constant 327 classified as %v", rate, v.Class)
		}
		if v := classifyBatch(t, c, dtmftest.Constant(328, n)); v.Class == ClassSilence {
			t.Errorf("rate %d: constant 328 classified as silence", rate)
		}
		if v := classifyBatch(t, c, dtmftest.Constant(-328, n)); v.Class == ClassSilence {
			t.Errorf("rate %d: constant -328 classified as silence", rate)
		}
	}
}

func TestClassify_QuietToneIsSilence(t *testing.T) {
	for _, rate := range testedRates {
		c := newTestClassifier(t, rate, DefaultThresholds())
		n := c.profile.BatchSize
		low, high, _ := dtmftest.Frequencies('5')

		for _, amp := range []float64{50, 100, 150} {
			v := classifyBatch(t, c, dtmftest.DualTone(low, high, rate, n, amp))
			if v.Class != ClassSilence {
				t.Errorf("rate %d: amplitude %.0f classified as %v, want silence", rate, amp, v.Class)
			}
		}
	}
}

func TestClassify_AllSymbols(t *testing.T) {
	for _, rate := range testedRates {
		c := newTestClassifier(t, rate, DefaultThresholds())
		n := c.profile.BatchSize

		for _, amp := range []float64{1000, 4000, dtmftest.DefaultAmplitude, 16000} {
			for _, tone := range AllTones {
				low, high, ok := dtmftest.Frequencies(byte(tone))
				if !ok {
					t.Fatalf("no frequencies for %v", tone)
				}
				v := classifyBatch(t, c, dtmftest.DualTone(low, high, rate, n, amp))
				if v.Class != ClassTone || v.Tone != tone {
					t.Errorf("rate %d amplitude %.0f: %v classified as %v %v", rate, amp, tone, v.Class, v.Tone)
				}
			}
		}
	}
}

func TestClassify_SingleBatchAt44100(t *testing.T) {
	c := newTestClassifier(t, 44100, DefaultThresholds())
	n := c.profile.BatchSize
	recognized := "2580"

	for _, tone := range AllTones {
		v := classifyBatch(t, c, dtmftest.Tone(byte(tone), 44100, n))
		if strings.ContainsRune(recognized, rune(tone)) {
			if v.Class != ClassTone || v.Tone != tone {
				t.Errorf("%v classified as %v %v, want tone", tone, v.Class, v.Tone)
			}
			continue
		}
		if v.Class != ClassUndefined {
			t.Errorf("%v classified as %v %v, want undefined", tone, v.Class, v.Tone)
		}
	}
}

// Signals generated exactly at the analysis frequencies of the coefficient
// tables must also be recognized.
func TestClassify_AnalysisFrequencies(t *testing.T) {
	for _, rate := range testedRates {
		c := newTestClassifier(t, rate, DefaultThresholds())
		coeffs := c.profile.Coefficients
		n := c.profile.BatchSize

		for _, tone := range AllTones {
			row, col, _ := tone.Position()
			low := dtmftest.CoefficientFrequency(coeffs[rowFirst+row], rate)
			high := dtmftest.CoefficientFrequency(coeffs[colFirst+col], rate)

			v := classifyBatch(t, c, dtmftest.DualTone(low, high, rate, n, dtmftest.DefaultAmplitude))
			if v.Class != ClassTone || v.Tone != tone {
				t.Errorf("rate %d: %v at analysis frequencies classified as %v %v", rate, tone, v.Class, v.Tone)
			}
		}
	}
}

func TestClassify_SingleSineIsUndefined(t *testing.T) {
	for _, rate := range testedRates {
		c := newTestClassifier(t, rate, DefaultThresholds())
		n := c.profile.BatchSize

		for _, freq := range []float64{440, 697, 1000, 1209, 1633} {
			v := classifyBatch(t, c, dtmftest.Sine(freq, rate, n, dtmftest.DefaultAmplitude))
			if v.Class != ClassUndefined {
				t.Errorf("rate %d: %.0f Hz sine classified as %v, want undefined", rate, freq, v.Class)
			}
		}
	}
}

func TestClassify_Twist(t *testing.T) {
	tests := []struct {
		name     string
		rowAmp   float64
		colAmp   float64
		wantTone bool
	}{
		{"balanced", 8000, 8000, true},
		{"forward twist", 8000, 2000, false},
		{"strong forward twist", 8000, 1000, false},
		{"reverse twist", 2000, 8000, false},
		{"strong reverse twist", 1000, 8000, false},
	}

	for _, rate := range testedRates {
		c := newTestClassifier(t, rate, DefaultThresholds())
		n := c.profile.BatchSize

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				for _, symbol := range []byte("15D*") {
					low, high, _ := dtmftest.Frequencies(symbol)
					batch := mix(
						dtmftest.Sine(low, rate, n, tt.rowAmp),
						dtmftest.Sine(high, rate, n, tt.colAmp),
					)
					v := classifyBatch(t, c, batch)
					if tt.wantTone && (v.Class != ClassTone || v.Tone != Tone(symbol)) {
						t.Errorf("rate %d: %c classified as %v %v", rate, symbol, v.Class, v.Tone)
					}
					if !tt.wantTone && v.Class != ClassUndefined {
						t.Errorf("rate %d: %c classified as %v, want undefined", rate, symbol, v.Class)
					}
				}
			})
		}
	}
}

func TestClassify_RatioGates(t *testing.T) {
	tests := []struct {
		name string
		th   Thresholds
	}{
		{"high ratio unreachable", Thresholds{Power: DefaultPowerThreshold, LowRatio: DefaultLowRatio, HighRatio: 1 << 30}},
		{"low ratio unreachable", Thresholds{Power: DefaultPowerThreshold, LowRatio: 1 << 30, HighRatio: DefaultHighRatio}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, rate := range testedRates {
				c := newTestClassifier(t, rate, tt.th)
				v := classifyBatch(t, c, dtmftest.Tone('5', rate, c.profile.BatchSize))
				if v.Class != ClassUndefined {
					t.Errorf("rate %d: classified as %v, want undefined", rate, v.Class)
				}
			}
		})
	}
}

func TestClassify_ZeroPowerThreshold(t *testing.T) {
	th := Thresholds{Power: 0, LowRatio: DefaultLowRatio, HighRatio: DefaultHighRatio}
	c := newTestClassifier(t, 8000, th)

	// Nothing is silent with a zero threshold, and zeros hold no tone
	v := classifyBatch(t, c, dtmftest.Silence(c.profile.BatchSize))
	if v.Class != ClassUndefined {
		t.Errorf("zeros classified as %v, want undefined", v.Class)
	}
}

func TestClassify_DoesNotModifyInput(t *testing.T) {
	c := newTestClassifier(t, 8000, DefaultThresholds())
	batch := dtmftest.Tone('9', 8000, c.profile.BatchSize)
	orig := append([]int16(nil), batch...)

	classifyBatch(t, c, batch)

	for i := range batch {
		if batch[i] != orig[i] {
			t.Fatalf("sample %d changed from %d to %d", i, orig[i], batch[i])
		}
	}
}

func TestClassify_Energies(t *testing.T) {
	c := newTestClassifier(t, 8000, DefaultThresholds())
	classifyBatch(t, c, dtmftest.Tone('1', 8000, c.profile.BatchSize))

	e := c.Energies()
	// '1' is row 0, column 0
	for i := rowFirst + 1; i < colFirst; i++ {
		if e[rowFirst] <= e[i] {
			t.Errorf("row energy %d = %d not below row 0 energy %d", i, e[i], e[rowFirst])
		}
	}
	for i := colFirst + 1; i < colFirst+4; i++ {
		if e[colFirst] <= e[i] {
			t.Errorf("column energy %d = %d not below column 0 energy %d", i, e[i], e[colFirst])
		}
	}
}

func TestClassify_BatchSize(t *testing.T) {
	c := newTestClassifier(t, 8000, DefaultThresholds())

	for _, n := range []int{0, 101, 103, 204} {
		if _, err := c.Classify(make([]int16, n)); !errors.Is(err, ErrBatchSize) {
			t.Errorf("Classify(len %d) error = %v, want ErrBatchSize", n, err)
		}
	}
}

func TestNewClassifier_Errors(t *testing.T) {
	p, _ := ProfileFor(8000)

	tests := []struct {
		name    string
		profile Profile
		th      Thresholds
		wantErr error
	}{
		{"empty profile", Profile{}, DefaultThresholds(), ErrBatchSize},
		{"negative power", p, Thresholds{Power: -1, LowRatio: 6, HighRatio: 16}, ErrInvalidPowerThreshold},
		{"zero low ratio", p, Thresholds{Power: 328, LowRatio: 0, HighRatio: 16}, ErrInvalidLowRatio},
		{"zero high ratio", p, Thresholds{Power: 328, LowRatio: 6, HighRatio: 0}, ErrInvalidHighRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClassifier(tt.profile, tt.th)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewClassifier() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClass_String(t *testing.T) {
	tests := map[Class]string{
		ClassSilence:   "silence",
		ClassTone:      "tone",
		ClassUndefined: "undefined",
		Class(9):       "unknown",
	}
	for c, want := range tests {
		if got := c.String(); got != want {
			t.Errorf("Class(%d).String() = %q, want %q", int(c), got, want)
		}
	}
}
