package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/logview/internal/render"
	"github.com/five82/logview/internal/scroll"
)

const defaultBufferLimit = 5000

type paneEntry struct {
	unit     render.Unit
	notice   bool
	rendered string
}

// logPane is the scrollable log container. It receives snapshot lines,
// streamed lines and notices, and owns the follow-the-tail behavior.
type logPane struct {
	viewport    viewport.Model
	styler      render.Styler
	noticeStyle lipgloss.Style
	threshold   int
	limit       int
	entries     []paneEntry
}

func newLogPane(threshold, limit int) *logPane {
	if limit <= 0 {
		limit = defaultBufferLimit
	}
	plain := lipgloss.NewStyle()
	return &logPane{
		viewport:    viewport.New(0, 0),
		styler:      render.Styler{Error: plain, Warning: plain, Info: plain, Debug: plain, None: plain},
		noticeStyle: plain,
		threshold:   threshold,
		limit:       limit,
	}
}

// Reset drops all content.
func (p *logPane) Reset() {
	p.entries = nil
	p.sync()
	p.viewport.GotoTop()
}

// AppendLine classifies and appends one log line. The view follows the new
// line only if it was near the bottom before the append.
func (p *logPane) AppendLine(line string) {
	p.append(paneEntry{unit: render.Line(line)})
}

// Notice puts a visible message that is not part of the log at the top of
// the pane. When the buffer is full the oldest log line below it is dropped.
func (p *logPane) Notice(msg string) {
	e := paneEntry{unit: render.Unit{Text: render.Sanitize(msg)}, notice: true}
	e.rendered = p.renderEntry(e)
	follow := p.nearBottom()

	p.entries = append([]paneEntry{e}, p.entries...)
	dropped := 0
	if overflow := len(p.entries) - p.limit; overflow > 0 {
		p.entries = append(p.entries[:1], p.entries[1+overflow:]...)
		dropped = overflow
	}

	offset := p.viewport.YOffset
	p.sync()
	if follow {
		p.viewport.GotoBottom()
		return
	}
	p.viewport.SetYOffset(max(offset+1-dropped, 0))
}

func (p *logPane) append(e paneEntry) {
	follow := p.nearBottom()
	e.rendered = p.renderEntry(e)
	p.entries = append(p.entries, e)

	trimmed := 0
	if overflow := len(p.entries) - p.limit; overflow > 0 {
		p.entries = append([]paneEntry(nil), p.entries[overflow:]...)
		trimmed = overflow
	}

	offset := p.viewport.YOffset
	p.sync()
	if follow {
		p.viewport.GotoBottom()
		return
	}
	// Keep the same lines on screen when the top of the buffer is dropped.
	p.viewport.SetYOffset(max(offset-trimmed, 0))
}

// nearBottom reports whether the view is following the tail. Until the
// terminal size is known every position counts as following.
func (p *logPane) nearBottom() bool {
	if p.viewport.Height == 0 {
		return true
	}
	return scroll.NearBottom(p.metrics(), p.threshold)
}

func (p *logPane) metrics() scroll.Metrics {
	return scroll.Metrics{
		Offset:  p.viewport.YOffset,
		Visible: p.viewport.Height,
		Total:   p.viewport.TotalLineCount(),
	}
}

func (p *logPane) setSize(width, height int) {
	follow := p.nearBottom()
	p.viewport.Width = max(width, 0)
	p.viewport.Height = max(height, 0)
	if follow {
		p.viewport.GotoBottom()
	}
}

func (p *logPane) setStyles(styler render.Styler, notice lipgloss.Style) {
	p.styler = styler
	p.noticeStyle = notice
	for i := range p.entries {
		p.entries[i].rendered = p.renderEntry(p.entries[i])
	}
	offset := p.viewport.YOffset
	p.sync()
	p.viewport.SetYOffset(offset)
}

func (p *logPane) renderEntry(e paneEntry) string {
	if e.notice {
		return p.noticeStyle.Render("! " + e.unit.Text)
	}
	return p.styler.Render(e.unit)
}

func (p *logPane) sync() {
	lines := make([]string, len(p.entries))
	for i, e := range p.entries {
		lines[i] = e.rendered
	}
	p.viewport.SetContent(strings.Join(lines, "\n"))
}

// Len returns the number of entries held.
func (p *logPane) Len() int {
	return len(p.entries)
}

func (p *logPane) View() string {
	return p.viewport.View()
}
