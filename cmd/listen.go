// cmd/listen.go
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/dtmfdecoder/internal/audio"
	"github.com/ColonelBlimp/dtmfdecoder/internal/dsp"
	"github.com/ColonelBlimp/dtmfdecoder/internal/recovery"
	"github.com/ColonelBlimp/dtmfdecoder/internal/report"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Detect DTMF tones from a live audio input",
	Long:  `Captures mono 16-bit audio from a sound card and prints tones until interrupted.`,
	Args:  cobra.NoArgs,
	RunE:  runListen,
}

func runListen(cmd *cobra.Command, _ []string) error {
	settings, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(settings.OutputFormat)
	if err != nil {
		return err
	}
	printer := report.NewPrinter(cmd.OutOrStdout(), format)

	detector, err := dsp.NewDetector(settings.DetectorConfig(0))
	if err != nil {
		return err
	}
	detector.SetCallback(printer.Handle)

	capture := audio.New(settings.CaptureConfig())
	if err := capture.Init(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	defer capture.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := capture.Start(ctx); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	logger.Info("listening",
		"device", settings.DeviceIndex,
		"sample_rate", settings.SampleRate,
		"batch_size", detector.Profile().BatchSize)

	// Samples is closed by capture.Close, which ends the consumer
	done := make(chan struct{})
	go func() {
		defer recovery.HandlePanicFunc(func() {
			_ = capture.Close()
		})
		defer close(done)
		for samples := range capture.Samples {
			detector.Process(samples)
		}
	}()

	<-ctx.Done()
	if err := capture.Close(); err != nil {
		logger.Warn("closing audio device", "error", err)
	}
	<-done

	logger.Info("stopped",
		"tones", printer.Count(),
		"digits", printer.Digits(),
		"dropped_chunks", capture.Dropped())
	return printer.Err()
}
