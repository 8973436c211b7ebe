// Package worker provides a goroutine pool for concurrent job execution.
//
// The Pool manages a fixed number of worker goroutines that process jobs
// from a shared queue. Each job receives the pool's context, which is
// cancelled when the pool stops, so blocking work such as an injected delay
// ends promptly on shutdown.
//
// # Basic Usage
//
//	pool := worker.NewPool(4) // 4 workers
//	pool.Start(ctx)
//	defer pool.Stop()
//
//	for range 100 {
//	    pool.Submit(func(ctx context.Context) {
//	        _ = engine.Around(ctx, "payments", op)
//	    })
//	}
//
// # Configuration
//
// Use NewPoolWithConfig for custom settings:
//
//	config := worker.PoolConfig{
//	    NumWorkers:  8,
//	    QueueFactor: 200, // Queue size = 8 * 200 = 1600
//	}
//	pool := worker.NewPoolWithConfig(config)
//
// # Graceful Shutdown
//
// Stop() cancels the pool context and waits for running jobs to return.
// Jobs still queued at that point are discarded and counted as dropped.
package worker
