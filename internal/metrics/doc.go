// Package metrics collects statistics about guarded operations and the
// disruptions injected into them.
//
// Two collectors live here. Metrics records caller-side results (latency,
// success, disrupted and failed calls, throughput). Collector implements
// disruptor.Observer and exports engine activity as Prometheus series.
//
// # Basic Usage
//
//	m := metrics.New()
//
//	start := time.Now()
//	err := engine.Around(ctx, "payments", op)
//	m.Record(time.Since(start), err)
//
//	snap := m.Snapshot()
//	fmt.Printf("Total: %d, RPS: %.2f, P99: %v\n",
//	    snap.TotalRequests, snap.RPS, snap.P99Latency)
//
// Exporting engine activity:
//
//	c := metrics.NewCollector()
//	engine, _ := disruptor.New(disruptor.WithObserver(c), ...)
//	http.Handle("/metrics", c.Handler())
//
// # Configuration
//
// Use NewWithConfig for custom settings:
//
//	config := metrics.Config{
//	    MaxLatencySamples: 5000, // More samples for P99 accuracy
//	}
//	m := metrics.NewWithConfig(config)
//
// # Thread Safety
//
// All operations are safe for concurrent access.
package metrics
