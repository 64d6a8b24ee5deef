package logsource

import (
	"bufio"
	"io"
	"strings"
)

const maxEventLine = 1024 * 1024

// readEvents parses a text/event-stream body and calls fn with the data of
// each dispatched event. Only the data field is interpreted; event, id and
// retry fields and comments are ignored. It returns when r is exhausted.
func readEvents(r io.Reader, fn func(data string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)

	var data []string
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			if len(data) > 0 {
				fn(strings.Join(data, "\n"))
				data = data[:0]
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}
		if field == "data" {
			data = append(data, value)
		}
	}
	return scanner.Err()
}
