// Package disruptor provides a fault-injection engine.
//
// Callers mark checkpoints around an operation and ask the engine, by group
// name and phase, whether configured disruptions should fire. A disruption
// either delays the calling goroutine or fails the call.
//
// # Building an Engine
//
//	flaky := disruptor.Must(disruptor.Counting(5))
//	cfg := disruptor.Must(disruptor.NewConfig(disruptor.PhaseBefore, flaky,
//	    disruptor.Must(disruptor.Delay(200*time.Millisecond)),
//	    disruptor.RaiseError(errors.New("upstream unavailable")),
//	))
//	group := disruptor.Must(disruptor.NewGroup("payments", cfg))
//	engine, err := disruptor.New(disruptor.WithGroup(group))
//
// # Guarding an Operation
//
//	err := engine.Around(ctx, "payments", func(ctx context.Context) error {
//	    return charge(ctx, order)
//	})
//
// Around evaluates BEFORE configs, runs the operation, then evaluates AFTER
// configs. A failure in any step stops the remaining steps. Groups that are
// not configured are a pass-through.
//
// # Triggers
//
// Never and Random are stateless. Counting, Lasting and Limiting keep state
// guarded by a mutex owned by each trigger instance, so a single trigger can
// be shared by any number of goroutines.
//
// # Failures
//
// A Raise disruption returning an error propagates that exact error. Any
// other payload, and a cancelled Delay, is reported as *DisruptionError.
//
// # Logging
//
// Lasting and Limiting log at INFO when they latch or exhaust their budget,
// and Delay logs at DEBUG. Output goes to slog.Default() unless SetLogger
// installs another *slog.Logger.
package disruptor
