// Package store provides the in-memory key-value store that load scenarios
// exercise, and a Guarded wrapper that routes every call through a
// disruptor.Engine.
//
// # Basic Usage
//
//	kv := store.New("primary")
//	guarded := store.Guard(kv, engine, "payments")
//
//	// BEFORE disruptions, then the write, then AFTER disruptions
//	if err := guarded.Set(ctx, "key", []byte("value")); err != nil {
//	    return err
//	}
//
//	value, err := guarded.Get(ctx, "key")
//
// # Thread Safety
//
// All operations on a Store are protected by a RWMutex, allowing concurrent
// reads while serializing writes.
package store
