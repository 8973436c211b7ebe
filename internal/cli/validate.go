package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"chaos-disruptor/internal/config"
	"chaos-disruptor/pkg/disruptor"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a disruption config file and print its groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileConfig, err := config.LoadFile(args[0])
			if err != nil {
				return err
			}
			engine, err := fileConfig.Build()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range engine.Groups() {
				g, _ := engine.Group(name)
				fmt.Fprintf(out, "%s\n", name)
				for _, c := range g.Configs() {
					fmt.Fprintf(out, "  %-6s %s ->", c.Phase(), disruptor.Describe(c.Trigger()))
					for _, d := range c.Disruptions() {
						fmt.Fprintf(out, " %s", describe(d))
					}
					fmt.Fprintln(out)
				}
			}
			fmt.Fprintln(out, "OK")
			return nil
		},
	}
}

func describe(d disruptor.Disruption) string {
	if s, ok := d.(fmt.Stringer); ok {
		return s.String()
	}
	return d.Kind()
}
