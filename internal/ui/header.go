package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/five82/logview/internal/stream"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < 100
	sep := bg.Spaces(2)

	parts := []string{
		bg.Render("logview", styles.Logo),
		m.connectionIndicator(styles, bg),
	}

	source := m.serverURL
	if m.status != nil && m.status.File != "" {
		source = filepath.Base(m.status.File)
	}
	if source != "" {
		max := 50
		if compact {
			max = 24
		}
		parts = append(parts, bg.Render(truncateMiddle(source, max), styles.MutedText))
	}

	parts = append(parts,
		bg.Render("Lines:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", m.pane.Len()), styles.Text),
	)

	if m.pane.nearBottom() {
		parts = append(parts, bg.Render("FOLLOW", styles.AccentText))
	} else {
		parts = append(parts, bg.Render("PAUSED", styles.FaintText))
	}

	if !compact {
		if ts := m.formatTimestamp(); ts != "" {
			parts = append(parts, bg.Render(ts, styles.MutedText))
		}
	}

	if st := m.client.Status(); st.LastError != nil && st.State != stream.Open {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render("!", styles.WarningText.Bold(true))+bg.Space()+
				bg.Render(truncate(st.LastError.Error(), maxErr), styles.WarningText),
		)
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

// connectionIndicator summarizes the stream state.
func (m Model) connectionIndicator(styles Styles, bg BgStyle) string {
	st := m.client.Status()
	attempt := func() string {
		return bg.Space() + bg.Render(fmt.Sprintf("%d/%d", st.Attempts, st.MaxAttempts), styles.MutedText)
	}

	switch {
	case st.Exhausted:
		return bg.Render("● OFFLINE", styles.DangerText) + bg.Space() +
			bg.Render("r to reconnect", styles.MutedText)
	case st.State == stream.Open:
		return bg.Render("● LIVE", styles.SuccessText)
	case st.State == stream.Connecting && st.Attempts > 0:
		return bg.Render("● RECONNECTING", styles.WarningText.Bold(true)) + attempt()
	case st.State == stream.Connecting:
		return bg.Render("● CONNECTING", styles.WarningText.Bold(true))
	case st.Pending:
		return bg.Render("● RETRYING", styles.WarningText.Bold(true)) + attempt()
	default:
		return bg.Render("● CLOSED", styles.MutedText)
	}
}

// renderCommandBar renders the key hints.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	commands := []cmd{
		{"j/k", "Scroll"},
		{"g/G", "Top/Bottom"},
		{"r", "Reconnect"},
		{"q", "Quit"},
		{"?", "More"},
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	// Add theme indicator
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}

// formatTimestamp describes when server status was last fetched.
func (m Model) formatTimestamp() string {
	if m.lastUpdated.IsZero() {
		return ""
	}

	timeSince := time.Since(m.lastUpdated)
	timeStr := m.lastUpdated.Format("15:04:05")

	if timeSince < time.Minute {
		timeStr += " (now)"
	} else if timeSince < time.Hour {
		timeStr += fmt.Sprintf(" (%dm ago)", int(timeSince.Minutes()))
	} else if timeSince < 24*time.Hour {
		timeStr += fmt.Sprintf(" (%dh ago)", int(timeSince.Hours()))
	}

	return timeStr
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func truncateMiddle(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 5 {
		return s[:max]
	}
	// Keep more of the end (file name) than the start
	endLen := (max - 3) * 2 / 3
	startLen := max - 3 - endLen
	return s[:startLen] + "..." + s[len(s)-endLen:]
}
