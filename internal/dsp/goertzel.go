// internal/dsp/goertzel.go
package dsp

// NumCoefficients is the number of analysis frequencies evaluated per batch:
// 4 row tones, 4 column tones, 2 low-frequency discriminators and 8
// harmonic-rejection frequencies.
const NumCoefficients = 18

// Energies holds one fixed-point magnitude per analysis frequency.
type Energies [NumCoefficients]int32

// GoertzelPair runs the fixed-point Goertzel recurrence for two
// coefficients over the same samples and returns both terminal magnitudes.
//
// The recurrence is s[n] = 2*coeff*s[n-1] - s[n-2] + x[n], starting from
// zero state. Before the magnitude s1² + s2² - coeff*s1*s2 is formed, the
// state is shifted right by 10 bits so the products fit in 16x16 multiplies.
// The shift and rounding order is part of the tuning of every ratio
// threshold in the classifier and must not change.
func GoertzelPair(coeff0, coeff1 int16, samples []int16) (int32, int32) {
	var prev0, prevPrev0, prev1, prevPrev1 int32

	for _, x := range samples {
		s0 := MulQ15(coeff0, prev0<<1) - prevPrev0 + int32(x)
		s1 := MulQ15(coeff1, prev1<<1) - prevPrev1 + int32(x)
		prevPrev0, prevPrev1 = prev0, prev1
		prev0, prev1 = s0, s1
	}

	return goertzelMagnitude(coeff0, prev0>>10, prevPrev0>>10),
		goertzelMagnitude(coeff1, prev1>>10, prevPrev1>>10)
}

// goertzelMagnitude computes s1² + s2² - coeff*s1*s2 on the descaled state.
func goertzelMagnitude(coeff int16, prev, prevPrev int32) int32 {
	cross := int32(int16(MulQ15(coeff, prev<<1))) * int32(int16(prevPrev))
	return int32(int16(prev))*int32(int16(prev)) +
		int32(int16(prevPrev))*int32(int16(prevPrev)) - cross
}

// filterBank fills out with the magnitude of every coefficient, two at a
// time, over one batch of samples.
func filterBank(coeffs *[NumCoefficients]int16, samples []int16, out *Energies) {
	for i := 0; i < NumCoefficients; i += 2 {
		out[i], out[i+1] = GoertzelPair(coeffs[i], coeffs[i+1], samples)
	}
}
