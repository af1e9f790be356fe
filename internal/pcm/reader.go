// internal/pcm/reader.go
// Package pcm reads 16-bit mono PCM samples from WAV and AIFF files.
//
// Decoding is delegated to github.com/go-audio/wav and
// github.com/go-audio/aiff. Samples are delivered as []int16 so they can be
// fed straight into the DTMF detector.
package pcm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	// ErrUnknownFormat indicates a file extension with no decoder
	ErrUnknownFormat = errors.New("unknown audio file format")
	// ErrInvalidFile indicates the data is not a readable WAV or AIFF stream
	ErrInvalidFile = errors.New("invalid audio file")
	// ErrUnsupportedBitDepth indicates samples that are not 16-bit
	ErrUnsupportedBitDepth = errors.New("only 16-bit PCM is supported")
	// ErrNotMono indicates a file with more than one channel
	ErrNotMono = errors.New("only mono audio is supported")
)

// Format is a container format understood by the reader.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatAIFF Format = "aiff"
)

// FormatFromPath picks the container format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV, nil
	case ".aif", ".aiff", ".aifc":
		return FormatAIFF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// decoder is the subset of the go-audio decoders used by Reader
type decoder interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Reader yields the samples of a 16-bit mono audio stream.
type Reader struct {
	dec        decoder
	closer     io.Closer
	format     Format
	sampleRate int
	intBuf     *goaudio.IntBuffer
}

// Open opens a WAV or AIFF file, choosing the decoder by extension.
func Open(path string) (*Reader, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	r, err := NewReader(f, format)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// NewReader decodes rs as the given format. The header is read and
// validated immediately.
func NewReader(rs io.ReadSeeker, format Format) (*Reader, error) {
	var (
		dec      decoder
		bitDepth int
		channels int
	)

	switch format {
	case FormatWAV:
		d := wav.NewDecoder(rs)
		if !d.IsValidFile() {
			return nil, fmt.Errorf("%w: not a WAV stream", ErrInvalidFile)
		}
		d.ReadInfo()
		dec, bitDepth, channels = d, int(d.BitDepth), int(d.NumChans)
	case FormatAIFF:
		d := aiff.NewDecoder(rs)
		if !d.IsValidFile() {
			return nil, fmt.Errorf("%w: not an AIFF stream", ErrInvalidFile)
		}
		d.ReadInfo()
		dec, bitDepth, channels = d, int(d.BitDepth), int(d.NumChans)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if bitDepth != 16 {
		return nil, fmt.Errorf("%w: got %d-bit", ErrUnsupportedBitDepth, bitDepth)
	}
	if channels != 1 {
		return nil, fmt.Errorf("%w: got %d channels", ErrNotMono, channels)
	}

	f := dec.Format()
	if f == nil || f.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing sample rate", ErrInvalidFile)
	}

	return &Reader{
		dec:        dec,
		format:     format,
		sampleRate: f.SampleRate,
	}, nil
}

// SampleRate returns the sample rate declared in the file header.
func (r *Reader) SampleRate() int { return r.sampleRate }

// Format returns the container format being decoded.
func (r *Reader) Format() Format { return r.format }

// Read fills dst with up to len(dst) samples. It returns io.EOF once the
// stream is exhausted; a short read before that is not an error.
func (r *Reader) Read(dst []int16) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if r.intBuf == nil || cap(r.intBuf.Data) < len(dst) {
		r.intBuf = &goaudio.IntBuffer{
			Data:           make([]int, len(dst)),
			Format:         r.dec.Format(),
			SourceBitDepth: 16,
		}
	} else {
		r.intBuf.Data = r.intBuf.Data[:len(dst)]
	}

	n, err := r.dec.PCMBuffer(r.intBuf)
	for i := 0; i < n; i++ {
		dst[i] = int16(r.intBuf.Data[i])
	}

	switch {
	case n == 0 && (err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)):
		return 0, io.EOF
	case n > 0 && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)):
		// Report the end on the next call
		return n, nil
	case err != nil:
		return n, fmt.Errorf("failed to decode samples: %w", err)
	}
	return n, nil
}

// ReadAll reads every remaining sample.
func (r *Reader) ReadAll() ([]int16, error) {
	var out []int16
	buf := make([]int16, 4096)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

// Close closes the underlying file when the reader was created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
