// internal/dsp/fixedpoint.go
package dsp

import "math/bits"

// MulQ15 multiplies a Q15 coefficient by a 32-bit value and scales the
// product down by 15 bits. The value is split into a low 16-bit half, which
// is rounded, and a high 16-bit half so that no intermediate product needs
// more than 32 bits. Overflow wraps.
func MulQ15(coeff int16, value int32) int32 {
	low := (int32(uint16(value))*int32(coeff) + 0x4000) >> 15
	high := int32(int16(value>>16)) * int32(coeff)
	return high<<1 + low
}

// NormShift returns the number of left shifts needed to bring x (or its
// one's complement when x is negative) up to bit 30, the highest bit below
// the sign. NormShift(0) is 0 and NormShift(-1) is 31.
func NormShift(x int32) int {
	switch x {
	case 0:
		return 0
	case -1:
		return 31
	}
	if x < 0 {
		x = ^x
	}
	return bits.LeadingZeros32(uint32(x)) - 1
}
