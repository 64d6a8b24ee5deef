package snapshot

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/five82/logview/internal/render"
)

type recordingTarget struct {
	resets  int
	lines   []string
	notices []string
}

func (r *recordingTarget) Reset()                 { r.resets++; r.lines = nil }
func (r *recordingTarget) AppendLine(line string) { r.lines = append(r.lines, line) }
func (r *recordingTarget) Notice(msg string)      { r.notices = append(r.notices, msg) }

type fetchFunc func(ctx context.Context) (string, error)

func (f fetchFunc) FetchContent(ctx context.Context) (string, error) { return f(ctx) }

func TestLines(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"empty", "", nil},
		{"only newlines", "\n\n\n", []string{}},
		{"whitespace lines dropped", "a\n   \n\t\nb", []string{"a", "b"}},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"leading spaces kept", "  indented", []string{"  indented"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lines(tt.body)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Lines(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestLoad_RendersNonBlankLinesWithSeverity(t *testing.T) {
	target := &recordingTarget{lines: []string{"stale"}}
	fetch := fetchFunc(func(context.Context) (string, error) {
		return "a\nERROR b\n\n", nil
	})

	if err := Load(context.Background(), fetch, target); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if target.resets != 1 {
		t.Fatalf("Reset called %d times, want 1", target.resets)
	}
	if want := []string{"a", "ERROR b"}; !reflect.DeepEqual(target.lines, want) {
		t.Fatalf("lines = %q, want %q", target.lines, want)
	}
	if got := render.Line(target.lines[1]).Level; got != render.Error {
		t.Fatalf("second line level = %v, want error", got)
	}
	if len(target.notices) != 0 {
		t.Fatalf("unexpected notices: %v", target.notices)
	}
}

func TestLoad_FailureShowsNoticeAndKeepsContent(t *testing.T) {
	target := &recordingTarget{lines: []string{"kept"}}
	fetch := fetchFunc(func(context.Context) (string, error) {
		return "", errors.New("api /content returned status 500")
	})

	err := Load(context.Background(), fetch, target)
	if err == nil {
		t.Fatalf("Load returned nil error, want failure")
	}
	if target.resets != 0 {
		t.Fatalf("Reset called on failure")
	}
	if want := []string{"kept"}; !reflect.DeepEqual(target.lines, want) {
		t.Fatalf("lines = %q, want %q", target.lines, want)
	}
	if len(target.notices) != 1 || !strings.HasPrefix(target.notices[0], "failed to load log snapshot:") {
		t.Fatalf("notices = %q, want one snapshot failure notice", target.notices)
	}
}
