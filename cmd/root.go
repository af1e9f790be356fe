// cmd/root.go
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/dtmfdecoder/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "dtmfdecoder",
	Short: "DTMF (touch-tone) decoder for audio files and live input",
	Long: `Detects DTMF keypad tones (0-9, A-D, * and #) in 16-bit mono PCM audio.
Tones are read from WAV/AIFF files with 'detect' or from a sound card with
'listen', and each new tone is printed once when it begins.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio device index (-1 for default)")
	rootCmd.PersistentFlags().IntP("rate", "r", 8000, "sample rate in Hz: 8000, 16000 or 44100")
	rootCmd.PersistentFlags().StringP("format", "o", "text", "output format: text or json")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug logging")

	rootCmd.AddCommand(detectCmd, listenCmd, devicesCmd)
}

// bindFlags binds the global flags to their config keys
func bindFlags() {
	flags := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("device_index", flags.Lookup("device"))
	_ = viper.BindPFlag("sample_rate", flags.Lookup("rate"))
	_ = viper.BindPFlag("output_format", flags.Lookup("format"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
}

func initConfig() {
	bindFlags()
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings reads the validated settings and builds the logger for a run
func loadSettings(cmd *cobra.Command) (*config.Settings, *slog.Logger, error) {
	settings, err := config.Get()
	if err != nil {
		return nil, nil, err
	}
	return settings, newLogger(cmd.ErrOrStderr(), settings.Debug), nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
