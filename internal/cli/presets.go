package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"chaos-disruptor/internal/scenario"
)

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List preset scenarios",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available presets:")
			fmt.Fprintln(out)
			for _, name := range scenario.ListPresets() {
				preset, _ := scenario.GetPreset(name)
				fmt.Fprintf(out, "  %-10s %s\n", name, preset.Config.Description)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Example: disruptor run --preset quick")
		},
	}
}
