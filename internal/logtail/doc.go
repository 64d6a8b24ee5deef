// Package logtail reads log files for serving.
//
// Read returns the last N lines of a file with a single sequential pass and
// O(N) memory (a ring buffer of N strings). ReadFrom is the incremental
// reader behind the watcher: it returns only complete lines written after a
// byte offset, together with the offset to resume from, so a line that is
// still being written is never split across two reads. Newest picks the
// most recently modified *.log file in a directory.
//
//	lines, err := logtail.Read("/var/log/app.log", 400)
//
//	chunk, err := logtail.ReadFrom(path, offset)
//	publish(chunk.Lines)
//	offset = chunk.Offset
package logtail
