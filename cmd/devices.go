// cmd/devices.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/dtmfdecoder/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		capture := audio.New(audio.DefaultConfig())
		if err := capture.Init(); err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		defer capture.Close()

		devices, err := capture.ListDevices()
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(devices) == 0 {
			fmt.Fprintln(out, "no capture devices found")
			return nil
		}
		for _, d := range devices {
			marker := ""
			if d.IsDefault {
				marker = " (default)"
			}
			fmt.Fprintf(out, "[%d] %s%s\n", d.Index, d.Name, marker)
		}
		return nil
	},
}
