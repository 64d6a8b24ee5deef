// Package state holds the watcher status shared between the file watcher and
// the HTTP server.
//
// The watcher is the single writer: after every poll it calls Update with the
// file it read, the new offset and how many lines it published, or with the
// error that stopped it. Subscriber counts are written as streams come and
// go. The /status handler reads copies through Snapshot.
//
//	Producer (Watcher):            Consumer (server):
//	┌────────────────┐            ┌──────────────────┐
//	│ logtail.ReadFrom│           │                  │
//	│      ↓         │            │                  │
//	│ store.Update() │───────────→│ store.Snapshot() │
//	│      ↓         │  (mutex)   │      ↓           │
//	│  repeat...     │            │  GET /status     │
//	└────────────────┘            └──────────────────┘
//
// On error the previous file and offset are kept and ConsecutiveFailures
// grows; the first successful poll resets it. The zero Store is ready to use.
package state
