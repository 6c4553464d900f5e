// Package connection supervises mirror sessions across stream faults.
//
// A mirror.Synchronizer never reconnects by itself: when its change stream
// ends it reports a terminal StreamError and moves to FAILED. A Supervisor
// is the opt-in policy on top. It watches for terminal faults and starts a
// fresh session (new snapshot, new stream) after an exponential backoff.
//
// # Resync Strategy
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Continue at 60s until a session starts
//  5. Reset to 1s once a session is running again
//
// # Jitter
//
// Many mirrors of one source usually lose their streams together. To keep
// them from resyncing in lockstep:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// Non-terminal stream errors do not trigger a resync; the session carries on.
package connection
