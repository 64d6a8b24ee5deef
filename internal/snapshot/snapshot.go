// Package snapshot loads the existing log content once at startup.
package snapshot

import (
	"context"
	"fmt"
	"strings"
)

// Fetcher retrieves the full log text.
type Fetcher interface {
	FetchContent(ctx context.Context) (string, error)
}

// Target is the container the snapshot is rendered into.
type Target interface {
	Reset()
	AppendLine(line string)
	Notice(msg string)
}

// Lines splits body on newlines, dropping whitespace-only lines and a
// trailing carriage return on each line. Order is preserved.
func Lines(body string) []string {
	if body == "" {
		return nil
	}
	parts := strings.Split(body, "\n")
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSuffix(part, "\r")
		if strings.TrimSpace(part) == "" {
			continue
		}
		lines = append(lines, part)
	}
	return lines
}

// Apply renders the outcome of a fetch into t. On success t is cleared and
// every non-blank line appended; on failure existing content is kept and a
// notice is shown instead.
func Apply(t Target, body string, err error) {
	if err != nil {
		t.Notice(fmt.Sprintf("failed to load log snapshot: %v", err))
		return
	}
	t.Reset()
	for _, line := range Lines(body) {
		t.AppendLine(line)
	}
}

// Load performs a single fetch and applies it to t. The fetch error, if any,
// is returned after the notice has been rendered.
func Load(ctx context.Context, f Fetcher, t Target) error {
	body, err := f.FetchContent(ctx)
	Apply(t, body, err)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	return nil
}
