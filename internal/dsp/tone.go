// internal/dsp/tone.go
package dsp

import (
	"errors"
	"fmt"
)

// ErrInvalidTone indicates a rune that is not on the DTMF keypad
var ErrInvalidTone = errors.New("not a DTMF keypad symbol")

// Tone is one of the 16 DTMF keypad symbols.
type Tone byte

// DTMF keypad symbols.
const (
	Tone0    Tone = '0'
	Tone1    Tone = '1'
	Tone2    Tone = '2'
	Tone3    Tone = '3'
	Tone4    Tone = '4'
	Tone5    Tone = '5'
	Tone6    Tone = '6'
	Tone7    Tone = '7'
	Tone8    Tone = '8'
	Tone9    Tone = '9'
	ToneA    Tone = 'A'
	ToneB    Tone = 'B'
	ToneC    Tone = 'C'
	ToneD    Tone = 'D'
	ToneStar Tone = '*'
	ToneHash Tone = '#'
)

// Keypad maps (row, column) tone indices to keypad symbols.
// Rows are the low-group frequencies, columns the high-group ones.
var Keypad = [4][4]Tone{
	{Tone1, Tone2, Tone3, ToneA},
	{Tone4, Tone5, Tone6, ToneB},
	{Tone7, Tone8, Tone9, ToneC},
	{ToneStar, Tone0, ToneHash, ToneD},
}

// AllTones lists the keypad symbols in keypad order.
var AllTones = []Tone{
	Tone1, Tone2, Tone3, ToneA,
	Tone4, Tone5, Tone6, ToneB,
	Tone7, Tone8, Tone9, ToneC,
	ToneStar, Tone0, ToneHash, ToneD,
}

// ParseTone converts a keypad rune to a Tone. Letters are case-insensitive.
func ParseTone(r rune) (Tone, error) {
	if r >= 'a' && r <= 'd' {
		r -= 'a' - 'A'
	}
	t := Tone(r)
	if r > 0x7f || !t.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTone, r)
	}
	return t, nil
}

// Valid reports whether t is one of the 16 keypad symbols.
func (t Tone) Valid() bool {
	switch {
	case t >= '0' && t <= '9':
		return true
	case t >= 'A' && t <= 'D':
		return true
	case t == '*' || t == '#':
		return true
	}
	return false
}

// Event returns the RFC 4733 telephone-event code for the tone, or -1 if
// the tone is not valid.
func (t Tone) Event() int {
	switch {
	case t >= '0' && t <= '9':
		return int(t - '0')
	case t == ToneStar:
		return 10
	case t == ToneHash:
		return 11
	case t >= 'A' && t <= 'D':
		return int(t-'A') + 12
	}
	return -1
}

// Position returns the keypad row (0-3) and column (0-3) of the tone.
func (t Tone) Position() (row, col int, ok bool) {
	for r := range Keypad {
		for c, k := range Keypad[r] {
			if k == t {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

func (t Tone) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Tone(%d)", byte(t))
	}
	return string(rune(t))
}
