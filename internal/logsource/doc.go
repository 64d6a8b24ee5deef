// Package logsource is the HTTP client for a logview server.
//
// It fetches the full log text from /content for the initial snapshot and
// implements stream.Transport over the /logs server-sent event stream. Each
// subscription runs its request in its own goroutine and reports back only
// through the post callback it was opened with:
//
//	200 + text/event-stream   → EventOpen
//	each "data:" event        → EventMessage
//	EOF, read error, non-200  → EventError (suppressed after Close)
//
// Only the data field of the event-stream format is interpreted. Multi-line
// data fields are joined with "\n", matching the browser EventSource.
package logsource
