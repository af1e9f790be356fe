// cmd/detect.go
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/dtmfdecoder/internal/config"
	"github.com/ColonelBlimp/dtmfdecoder/internal/dsp"
	"github.com/ColonelBlimp/dtmfdecoder/internal/pcm"
	"github.com/ColonelBlimp/dtmfdecoder/internal/report"
)

// ErrRateMismatch indicates a file whose sample rate differs from --rate
var ErrRateMismatch = errors.New("file sample rate does not match --rate")

var detectCmd = &cobra.Command{
	Use:   "detect FILE...",
	Short: "Detect DTMF tones in WAV or AIFF files",
	Long: `Decodes each 16-bit mono WAV or AIFF file and prints the tones it contains.
Without --rate each file is analysed at its own sample rate; with --rate the
file must match it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	settings, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(settings.OutputFormat)
	if err != nil {
		return err
	}
	printer := report.NewPrinter(cmd.OutOrStdout(), format)
	fixedRate := cmd.Flags().Changed("rate")

	for _, path := range args {
		if len(args) > 1 {
			printer.SetSource(filepath.Base(path))
		}
		if err := detectFile(path, settings, fixedRate, printer, logger); err != nil {
			return err
		}
	}
	return nil
}

// detectFile runs one file through a fresh detector
func detectFile(path string, settings *config.Settings, fixedRate bool, printer *report.Printer, logger *slog.Logger) error {
	reader, err := pcm.Open(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	rate := reader.SampleRate()
	if fixedRate && rate != settings.SampleRate {
		return fmt.Errorf("%s: %w: file is %d Hz, --rate is %d Hz",
			path, ErrRateMismatch, rate, settings.SampleRate)
	}

	detector, err := dsp.NewDetector(settings.DetectorConfig(rate))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("decoding file",
		"file", path,
		"format", reader.Format(),
		"sample_rate", rate,
		"batch_size", detector.Profile().BatchSize)

	first := printer.Count()
	detector.SetCallback(func(event dsp.ToneEvent) {
		logger.Debug("tone", "tone", event.Tone, "offset", event.Offset, "energies", detector.Energies())
		printer.Handle(event)
	})

	buf := make([]int16, settings.BufferSize)
	for {
		n, err := reader.Read(buf)
		detector.Process(buf[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := printer.Err(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	logger.Info("file decoded",
		"file", path,
		"tones", printer.Count()-first,
		"digits", printer.Digits()[first:],
		"duration", time.Duration(detector.Processed())*time.Second/time.Duration(rate))
	return nil
}
