// Package app is the composition root for logview.
//
// RunViewer loads the config and prefs, builds the HTTP log source and hands
// it to the terminal UI as both snapshot fetcher and stream transport. The
// viewer logs to a file because the UI owns the terminal. In plain mode
// there is no UI: the snapshot and the live stream are written to stdout as
// colored lines, and the run ends with stream.ErrExhausted once reconnects
// run out.
//
// RunServer resolves the file to serve (--file, or the newest *.log in
// --dir), starts a watch.Watcher on it and serves it over HTTP until the
// context is cancelled.
//
//	RunViewer ──> config.Load ──> logsource.NewClient ──> ui.Run
//	                                              └─(plain)─> snapshot.Load, stream.Client.Run
//
//	RunServer ──> config.Load ──> watch.New ──> go Watcher.Run
//	                                        └─> server.New ──> Start (blocks)
package app
