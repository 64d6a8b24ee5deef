// Package stream implements the reconnecting push-stream client.
//
// # State Machine
//
//	          Connect()              open event
//	Closed ───────────────> Connecting ───────────> Open
//	  ^                         │                    │
//	  │        error event      │     error event    │
//	  └─────────────────────────┴────────────────────┘
//	     (retry scheduled while attempts <= MaxAttempts)
//
// On every transition to Open the attempt counter goes back to zero and the
// delay back to Policy.Floor. Each consecutive failure schedules a retry
// after the current delay and then doubles it, capped at Policy.Ceiling.
// After MaxAttempts failures the client stops retrying and sends a single
// notice to its Sink; only Reconnect clears that state.
//
// # Ownership
//
// A Client has exactly one owner goroutine. Transports and the reconnect
// timer never touch client state; they post Events onto the channel returned
// by Events, and the owner feeds each one to Dispatch. In the terminal UI
// the owner is the Bubble Tea update loop; headless callers use Run.
//
// Every subscription carries a fresh uuid. Events from any subscription
// other than the current one are dropped, so a subscription that is still
// draining after being replaced cannot affect state. Reconnect timers carry
// a token; superseding Connect calls stop the timer and clear the token, so
// a timer that fires anyway is a no-op.
//
// # Visibility
//
// VisibilityRestored is the hook for "the user is looking again" (terminal
// focus regained). It only acts when the stream is Closed, resets backoff,
// and reconnects immediately.
package stream
