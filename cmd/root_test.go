package cmd

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/dtmfdecoder/internal/config"
)

func resetViperForTest() {
	viper.Reset()
}

// resetFlags restores every flag to its default so values do not leak
// between Execute calls
func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}
}

// setupConfig isolates the config search path and writes content as the
// user config file. An empty content leaves no file behind.
func setupConfig(t *testing.T, content string) {
	t.Helper()
	resetViperForTest()
	resetFlags()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, ".config"))
	if content == "" {
		return
	}

	configDir := filepath.Join(tmpDir, ".config", config.AppName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

// execute runs the root command and returns stdout and stderr
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCmd_HasExpectedFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	tests := []struct {
		name         string
		shorthand    string
		defaultValue string
	}{
		{"device", "d", "-1"},
		{"rate", "r", "8000"},
		{"format", "o", "text"},
		{"debug", "D", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := flags.Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defaultValue {
				t.Errorf("flag %q default = %q, want %q", tt.name, flag.DefValue, tt.defaultValue)
			}
			if flag.Usage == "" {
				t.Errorf("flag %q has no description", tt.name)
			}
		})
	}
}

func TestRootCmd_Properties(t *testing.T) {
	if rootCmd.Use != "dtmfdecoder" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "dtmfdecoder")
	}
	if rootCmd.Short == "" {
		t.Error("rootCmd.Short is empty")
	}
	if rootCmd.Long == "" {
		t.Error("rootCmd.Long is empty")
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	want := map[string]bool{"detect": false, "listen": false, "devices": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	setupConfig(t, "")

	stdout, _, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("Execute() with --help error = %v", err)
	}

	for _, want := range []string{"dtmfdecoder", "--device", "--rate", "--format", "detect", "listen", "devices"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestInitConfig(t *testing.T) {
	setupConfig(t, "sample_rate: 16000\nlow_ratio: 7\n")

	initConfig()

	if viper.GetInt("sample_rate") != 16000 {
		t.Errorf("viper.GetInt(sample_rate) = %d, want 16000", viper.GetInt("sample_rate"))
	}
	if viper.GetInt("low_ratio") != 7 {
		t.Errorf("viper.GetInt(low_ratio) = %d, want 7", viper.GetInt("low_ratio"))
	}
}

func TestInitConfig_FlagsOverrideConfig(t *testing.T) {
	setupConfig(t, "sample_rate: 16000\noutput_format: text\n")

	flags := rootCmd.PersistentFlags()
	if err := flags.Set("rate", "44100"); err != nil {
		t.Fatal(err)
	}
	if err := flags.Set("format", "json"); err != nil {
		t.Fatal(err)
	}
	defer resetFlags()

	initConfig()

	if got := viper.GetInt("sample_rate"); got != 44100 {
		t.Errorf("sample_rate = %d, want 44100 from --rate", got)
	}
	if got := viper.GetString("output_format"); got != "json" {
		t.Errorf("output_format = %q, want json from --format", got)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&buf, false)
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("info logger output = %q", buf.String())
	}

	buf.Reset()
	logger = newLogger(&buf, true)
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "level=DEBUG") {
		t.Errorf("debug logger output = %q", buf.String())
	}
	if !logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug logger does not enable debug level")
	}
}

func TestDevicesCmd(t *testing.T) {
	setupConfig(t, "")

	stdout, _, err := execute(t, "devices")
	if err != nil {
		// No audio backend in this environment
		if !strings.Contains(err.Error(), "audio") {
			t.Errorf("unexpected error type: %v", err)
		}
		return
	}
	if stdout == "" {
		t.Error("devices printed nothing")
	}
}

func TestListenCmd_InvalidConfig(t *testing.T) {
	setupConfig(t, "sample_rate: 48000\n")

	_, _, err := execute(t, "listen")
	if err == nil {
		t.Fatal("expected error for invalid config, got nil")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("expected config error, got: %v", err)
	}
}

func TestListenCmd_RejectsArgs(t *testing.T) {
	setupConfig(t, "")

	if _, _, err := execute(t, "listen", "extra"); err == nil {
		t.Error("listen accepted a positional argument")
	}
}
