// Package watch follows a log file and fans appended lines out to
// subscribers.
//
// A Watcher polls its file on a fixed interval. Each poll reads only the
// complete lines written since the previous one (see logtail.ReadFrom),
// drops blank lines and hands the rest to every subscriber's buffered
// channel. A subscriber whose buffer is full is dropped and its channel
// closed, so one stalled client cannot hold up the others.
//
// If the file is truncated the watcher starts over from the beginning. If
// it disappears the watcher switches to the newest *.log file in the same
// directory, which covers rotation schemes that create a new file.
//
// Poll outcomes and subscriber counts are recorded in a state.Store for the
// /status endpoint.
package watch
