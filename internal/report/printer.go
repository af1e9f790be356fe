// internal/report/printer.go
// Package report prints detected DTMF tones.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ColonelBlimp/dtmfdecoder/internal/dsp"
)

// ErrUnknownFormat indicates an output format other than text or json
var ErrUnknownFormat = errors.New("unknown output format")

// Format selects how events are written.
type Format string

const (
	// FormatText writes one human-readable line per tone
	FormatText Format = "text"
	// FormatJSON writes one JSON object per line
	FormatJSON Format = "json"
)

// ParseFormat validates an output format name (from config: output_format).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// record is the JSON shape of one event
type record struct {
	Source  string  `json:"source,omitempty"`
	Tone    string  `json:"tone"`
	Event   int     `json:"event"`
	Offset  int64   `json:"offset"`
	Seconds float64 `json:"seconds"`
}

// Printer writes tone events to an io.Writer.
// Handle has the dsp.ToneCallback signature, so a Printer can be registered
// with a detector directly.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
	source string
	enc    *json.Encoder

	digits []byte
	err    error
}

// NewPrinter creates a printer. An unknown format falls back to text.
func NewPrinter(w io.Writer, format Format) *Printer {
	if format != FormatJSON {
		format = FormatText
	}
	p := &Printer{w: w, format: format}
	if format == FormatJSON {
		p.enc = json.NewEncoder(w)
	}
	return p
}

// SetSource labels subsequent events, typically with the input file name.
func (p *Printer) SetSource(source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = source
}

// Handle prints one event. After the first write error nothing more is
// written; the error is available from Err.
func (p *Printer) Handle(event dsp.ToneEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.digits = append(p.digits, byte(event.Tone))
	if p.err != nil {
		return
	}

	if p.format == FormatJSON {
		p.err = p.enc.Encode(record{
			Source:  p.source,
			Tone:    event.Tone.String(),
			Event:   event.Tone.Event(),
			Offset:  event.Offset,
			Seconds: event.At.Seconds(),
		})
		return
	}

	prefix := ""
	if p.source != "" {
		prefix = p.source + ": "
	}
	_, p.err = fmt.Fprintf(p.w, "%s%10.3fs  %s\n", prefix, event.At.Seconds(), event.Tone)
}

// Count returns the number of events handled.
func (p *Printer) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.digits)
}

// Digits returns the handled symbols in order.
func (p *Printer) Digits() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.digits)
}

// Err returns the first write error.
func (p *Printer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Reset clears the collected symbols and the write error.
func (p *Printer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.digits = p.digits[:0]
	p.err = nil
}
