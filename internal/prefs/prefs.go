// Package prefs persists viewer choices made at runtime, currently the theme
// picked with the T key. The file lives next to the config in
// ~/.config/logview/prefs.toml and is rewritten in place, keeping any keys
// it does not know about.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/logview/internal/config"
)

// Prefs holds user preferences for logview.
type Prefs struct {
	Theme string `toml:"theme"`
}

const (
	defaultPrefsPath = "~/.config/logview/prefs.toml"
	defaultTheme     = "Nightfox"
	themeKey         = "theme"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Default returns the preferences used when nothing has been saved.
func Default() Prefs {
	return Prefs{Theme: defaultTheme}
}

// Load reads preferences from path. A missing file yields the defaults and
// no error; an unreadable or malformed file yields the defaults and the
// error, so the caller can report it and carry on.
func Load(path string) (Prefs, error) {
	values, err := readValues(path)
	if err != nil {
		return Default(), err
	}

	p := Default()
	if theme, ok := values[themeKey].(string); ok && strings.TrimSpace(theme) != "" {
		p.Theme = strings.TrimSpace(theme)
	}
	return p, nil
}

// SetTheme records theme in the prefs file at path.
func SetTheme(path, theme string) error {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return errors.New("theme is empty")
	}
	values, err := readValues(path)
	if err != nil {
		// A broken file is replaced rather than blocking the save.
		values = map[string]any{}
	}
	values[themeKey] = theme
	return writeValues(path, values)
}

func readValues(path string) (map[string]any, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}

	values := map[string]any{}
	if err := toml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse prefs %s: %w", resolved, err)
	}
	return values, nil
}

// writeValues replaces the file through a temp file and rename.
func writeValues(path string, values map[string]any) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("create temp prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	resolved, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("resolve prefs path: %w", err)
	}
	return resolved, nil
}
