package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chaos-disruptor/internal/api"
	"chaos-disruptor/internal/events"
	"chaos-disruptor/internal/logger"
	"chaos-disruptor/internal/metrics"
	"chaos-disruptor/internal/scenario"
	"chaos-disruptor/pkg/disruptor"
)

func addSourceFlags(c *cobra.Command, src *sourceFlags) {
	c.Flags().StringVarP(&src.configFile, "config", "c", "", "config file (YAML/JSON)")
	c.Flags().StringVarP(&src.preset, "preset", "p", "", "preset scenario name")
	c.MarkFlagsMutuallyExclusive("config", "preset")
}

func addOverrideFlags(c *cobra.Command, ov *overrideFlags) {
	c.Flags().DurationVarP(&ov.duration, "duration", "d", 0, "scenario duration (e.g. 10s, 1m)")
	c.Flags().IntVarP(&ov.workers, "workers", "w", 0, "concurrent workers")
	c.Flags().Float64Var(&ov.rate, "rate", 0, "operations per second")
	c.Flags().StringSliceVar(&ov.groups, "groups", nil, "groups to drive (default: all configured)")
}

func runCmd() *cobra.Command {
	var (
		src  sourceFlags
		ov   overrideFlags
		addr string
	)

	c := &cobra.Command{
		Use:   "run",
		Short: "Drive load through the configured disruptions and print a report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSetup(src, ov)
			if err != nil {
				return err
			}

			bus := events.NewBus()
			defer bus.Close()
			collector := metrics.NewCollector()

			engine, err := s.build(
				disruptor.WithObserver(collector),
				disruptor.WithObserver(events.Observer(bus)),
			)
			if err != nil {
				return err
			}
			runner := scenario.New(s.config, engine)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scenario: %s\n", s.config.Name)
			fmt.Fprintf(out, "Duration: %v, Workers: %d, Rate: %.0f/s\n", s.config.Duration, s.config.Workers, s.config.Rate)
			fmt.Fprintf(out, "Groups:   %v\n", engine.Groups())

			result, err := runWithServer(cmd.Context(), runner, engine, bus, collector, addr)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, result.Report())
			return nil
		},
	}

	addSourceFlags(c, &src)
	addOverrideFlags(c, &ov)
	c.Flags().StringVar(&addr, "addr", "", "also serve the API on this address while running")
	return c
}

// runWithServer はシナリオを実行する。addr があれば実行中だけ API を公開する
func runWithServer(ctx context.Context, runner *scenario.Runner, engine *disruptor.Engine, bus *events.Bus, collector *metrics.Collector, addr string) (*scenario.Result, error) {
	if addr == "" {
		return runner.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	server := api.NewServer(addr, engine)
	server.SetEventBus(bus)
	server.SetCollector(collector)
	server.SetRunner(runner)

	var result *scenario.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		// 実行が終わればサーバーも止める
		defer cancel()
		var err error
		result, err = runner.Run(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("", "Scenario and API server stopped")
	return result, nil
}
