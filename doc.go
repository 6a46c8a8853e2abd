// Package lotgo provides an embedded reservation engine for a fixed
// inventory of exclusively-allocatable parking spots.
//
// The engine guarantees at most one committed booking per spot at any
// instant, supports short-lived advisory holds for interactive flows,
// reclaims spots automatically on timeout and throttles state-change
// notifications to external observers.
//
// # Quick Start
//
//	engine, err := lotgo.New(lotgo.DefaultLayout(),
//	    lotgo.WithLogLevel(slog.LevelInfo),
//	    lotgo.WithAdmissionLimit(5),
//	)
//	if err != nil {
//	    panic(err)
//	}
//	defer engine.Close()
//
//	engine.RegisterUser("alice", model.RoleVIP)
//	engine.RegisterObserver(myObserver)
//
// Claim a spot for an interactive flow, then commit:
//
//	if engine.TrySoftLock("A1", "alice", time.Minute) {
//	    future := engine.BookSpot("A1", "alice", "KX-1234", "2 hours", 2*time.Hour, false)
//	    ok, err := future.Wait(ctx)
//	    ...
//	}
//
// Booking requests are serialized through a priority queue and a
// bounded-concurrency admission gate; two racing commits against the same
// spot resolve with exactly one winner. Status changes reach the observer
// through a single consumer that deduplicates and throttles per spot.
//
// # Lifecycle
//
// Spots never persist across restarts and the engine performs no network
// or disk IO; everything is in-process call/return plus asynchronous
// callbacks.
package lotgo
