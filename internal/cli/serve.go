package cli

import (
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

func serveCmd() *cobra.Command {
	var (
		src  sourceFlags
		ov   overrideFlags
		addr string
		load bool
	)

	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP until interrupted",
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

			server := api.NewServer(addr, engine)
			server.SetEventBus(bus)
			server.SetCollector(collector)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Serving %d group(s) on http://%s\n", len(engine.Groups()), addr)
			fmt.Fprintln(out, "Press Ctrl+C to stop")

			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return server.Start(gctx)
			})
			if load {
				runner := scenario.New(s.config, engine)
				server.SetRunner(runner)
				g.Go(func() error {
					result, err := runner.Run(gctx)
					if err != nil {
						return err
					}
					logger.Info("", "Background load finished: %d requests, %d disrupted",
						result.TotalRequests, result.DisruptedRequests)
					return nil
				})
			}
			return g.Wait()
		},
	}

	addSourceFlags(c, &src)
	addOverrideFlags(c, &ov)
	c.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	c.Flags().BoolVar(&load, "load", false, "drive scenario load in the background while serving")
	return c
}
