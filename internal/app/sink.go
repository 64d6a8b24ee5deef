package app

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/logview/internal/render"
	"github.com/five82/logview/internal/ui"
)

// lineWriter is the plain-mode sink: classified lines go straight to w.
type lineWriter struct {
	mu     sync.Mutex
	w      io.Writer
	styler render.Styler
	notice lipgloss.Style
}

func newLineWriter(w io.Writer, theme ui.Theme) *lineWriter {
	return &lineWriter{
		w:      w,
		styler: theme.LevelStyler(),
		notice: theme.Styles().WarningText.Bold(true),
	}
}

// Reset is a no-op: lines already written to a stream cannot be taken back.
func (s *lineWriter) Reset() {}

func (s *lineWriter) AppendLine(line string) {
	s.write(s.styler.Render(render.Line(line)))
}

func (s *lineWriter) Notice(msg string) {
	s.write(s.notice.Render("! " + render.Sanitize(msg)))
}

func (s *lineWriter) write(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.w, text)
}
