// Package server exposes a watched log file over HTTP.
//
// Routes:
//
//	GET /content   full log text (text/plain); ?tail=N for the last N lines
//	GET /logs      text/event-stream, one "data: <line>" event per new line
//	GET /status    watcher status as JSON
//	GET /health    {"status":"ok"}
//
// Every request passes through chi's RequestID and Recoverer middleware and
// is logged through zap. Event streams end when the client disconnects, when
// the watcher drops the subscriber for falling behind, or on shutdown.
package server
