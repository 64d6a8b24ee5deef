// Package render turns raw log lines into severity-tagged display units.
//
// Classification is a case-sensitive substring scan in fixed priority order
// (error, warning, info, debug). It is not word-bounded: a line
// containing "INFORMATION" is tagged info. Log text is always treated as
// plain text; escape sequences and control characters are neutralized before
// anything reaches the terminal.
package render

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Level is the severity class of a line.
type Level int

const (
	None Level = iota
	Debug
	Info
	Warning
	Error
)

// String returns the lowercase class name.
func (l Level) String() string {
	switch l {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Debug:
		return "debug"
	default:
		return "none"
	}
}

// Checked in order; the first rule with any matching keyword wins.
var rules = []struct {
	level    Level
	keywords []string
}{
	{Error, []string{"ERROR", "CRITICAL", "FATAL"}},
	{Warning, []string{"WARN", "WARNING"}},
	{Info, []string{"INFO"}},
	{Debug, []string{"DEBUG"}},
}

// Classify returns the severity of line.
func Classify(line string) Level {
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(line, kw) {
				return rule.level
			}
		}
	}
	return None
}

// Sanitize strips terminal escape sequences and replaces control characters
// (other than tab) and invalid UTF-8 bytes with U+FFFD. A raw 8-bit C1
// byte such as 0x9b is invalid UTF-8, so it is replaced too.
func Sanitize(line string) string {
	stripped := line
	if strings.ContainsRune(line, '\x1b') {
		parts := strings.Split(line, "\t")
		for i, part := range parts {
			parts[i] = ansi.Strip(part)
		}
		stripped = strings.Join(parts, "\t")
	}
	if !utf8.ValidString(stripped) {
		stripped = strings.ToValidUTF8(stripped, string(unicode.ReplacementChar))
	}
	if strings.IndexFunc(stripped, isUnsafe) < 0 {
		return stripped
	}
	return strings.Map(func(r rune) rune {
		if isUnsafe(r) {
			return unicode.ReplacementChar
		}
		return r
	}, stripped)
}

func isUnsafe(r rune) bool {
	return r != '\t' && unicode.IsControl(r)
}

// Unit is one rendered line.
type Unit struct {
	Text  string
	Level Level
}

// Line sanitizes raw and classifies the result.
func Line(raw string) Unit {
	text := Sanitize(raw)
	return Unit{Text: text, Level: Classify(text)}
}

// Styler maps severity classes to styles.
type Styler struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Debug   lipgloss.Style
	None    lipgloss.Style
}

// Style returns the style for level.
func (s Styler) Style(level Level) lipgloss.Style {
	switch level {
	case Error:
		return s.Error
	case Warning:
		return s.Warning
	case Info:
		return s.Info
	case Debug:
		return s.Debug
	default:
		return s.None
	}
}

// Render styles u. Text is passed to lipgloss as content only.
func (s Styler) Render(u Unit) string {
	return s.Style(u.Level).Render(u.Text)
}
