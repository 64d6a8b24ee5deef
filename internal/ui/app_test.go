package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/five82/logview/internal/logsource"
	"github.com/five82/logview/internal/prefs"
	"github.com/five82/logview/internal/render"
	"github.com/five82/logview/internal/stream"
)

type fakeSub struct{ closed bool }

func (s *fakeSub) Close() error {
	s.closed = true
	return nil
}

type fakeTransport struct {
	opened []*fakeSub
}

func (t *fakeTransport) Open(uuid.UUID, func(stream.Event)) stream.Subscription {
	sub := &fakeSub{}
	t.opened = append(t.opened, sub)
	return sub
}

type fakeSource struct {
	body   string
	err    error
	status *logsource.StatusResponse
}

func (f fakeSource) FetchContent(context.Context) (string, error) { return f.body, f.err }

func (f fakeSource) FetchStatus(context.Context) (*logsource.StatusResponse, error) {
	return f.status, nil
}

func newTestModel(t *testing.T, src fakeSource, policy stream.Policy) (Model, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{}
	m := New(Options{
		Fetcher:   src,
		Transport: transport,
		Policy:    policy,
		Threshold: 5,
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	})
	t.Cleanup(m.client.Close)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(Model), transport
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_SnapshotThenConnect(t *testing.T) {
	m, transport := newTestModel(t, fakeSource{}, stream.Policy{})

	if len(transport.opened) != 0 {
		t.Fatalf("stream opened before snapshot")
	}

	m, cmd := update(t, m, snapshotMsg{body: "a\nERROR b\n\n"})
	if cmd == nil {
		t.Fatalf("no follow-up command after snapshot")
	}
	if m.pane.Len() != 2 {
		t.Fatalf("pane has %d entries, want 2", m.pane.Len())
	}
	if m.pane.entries[1].unit.Level != render.Error {
		t.Fatalf("second entry level = %v, want error", m.pane.entries[1].unit.Level)
	}
	if len(transport.opened) != 1 || m.client.Status().State != stream.Connecting {
		t.Fatalf("after snapshot opened=%d state=%v, want one connecting subscription",
			len(transport.opened), m.client.Status().State)
	}
}

func TestModel_SnapshotFailureShowsNotice(t *testing.T) {
	m, transport := newTestModel(t, fakeSource{}, stream.Policy{})

	m, _ = update(t, m, snapshotMsg{err: errors.New("api /content returned status 404")})

	if m.pane.Len() != 1 || !m.pane.entries[0].notice {
		t.Fatalf("entries = %+v, want one notice", m.pane.entries)
	}
	if !strings.Contains(m.pane.entries[0].unit.Text, "failed to load log snapshot") {
		t.Fatalf("notice = %q", m.pane.entries[0].unit.Text)
	}
	if len(transport.opened) != 1 {
		t.Fatalf("stream not started after failed snapshot")
	}
}

func TestModel_StreamEventsAppendInOrder(t *testing.T) {
	src := fakeSource{status: &logsource.StatusResponse{File: "/var/log/app.log"}}
	m, _ := newTestModel(t, src, stream.Policy{})
	m, _ = update(t, m, snapshotMsg{})
	id := m.client.Status().Subscription

	m, cmd := update(t, m, streamEventMsg(stream.Event{Kind: stream.EventOpen, Subscription: id}))
	if cmd == nil {
		t.Fatalf("no command after open event")
	}
	m, _ = update(t, m, streamEventMsg(stream.Event{Kind: stream.EventMessage, Subscription: id, Line: "DEBUG x"}))
	m, _ = update(t, m, streamEventMsg(stream.Event{Kind: stream.EventMessage, Subscription: id, Line: "INFO y"}))

	if m.pane.Len() != 2 {
		t.Fatalf("pane has %d entries, want 2", m.pane.Len())
	}
	if m.pane.entries[0].unit.Level != render.Debug || m.pane.entries[1].unit.Level != render.Info {
		t.Fatalf("levels = %v, %v; want debug, info", m.pane.entries[0].unit.Level, m.pane.entries[1].unit.Level)
	}

	m, _ = update(t, m, statusMsg{status: src.status})
	if view := m.View(); !strings.Contains(view, "LIVE") || !strings.Contains(view, "app.log") {
		t.Fatalf("header missing live state or file name:\n%s", view)
	}
}

func TestModel_FocusReconnectsClosedStream(t *testing.T) {
	m, transport := newTestModel(t, fakeSource{}, stream.Policy{})

	// Focus before the stream starts is ignored.
	m, _ = update(t, m, tea.FocusMsg{})
	if len(transport.opened) != 0 {
		t.Fatalf("focus before start opened a subscription")
	}

	m, _ = update(t, m, snapshotMsg{})
	id := m.client.Status().Subscription
	m, _ = update(t, m, streamEventMsg(stream.Event{Kind: stream.EventOpen, Subscription: id}))

	// Open stream: focus is a no-op.
	m, _ = update(t, m, tea.FocusMsg{})
	if len(transport.opened) != 1 {
		t.Fatalf("focus while open opened %d subscriptions", len(transport.opened))
	}

	m, _ = update(t, m, streamEventMsg(stream.Event{Kind: stream.EventError, Subscription: id, Err: errors.New("eof")}))
	if m.client.Status().State != stream.Closed {
		t.Fatalf("state = %v, want closed", m.client.Status().State)
	}

	m, _ = update(t, m, tea.FocusMsg{})
	st := m.client.Status()
	if len(transport.opened) != 2 || st.State != stream.Connecting || st.Attempts != 0 {
		t.Fatalf("after focus opened=%d status=%+v", len(transport.opened), st)
	}
}

func TestModel_ExhaustionNoticeAndManualReconnect(t *testing.T) {
	policy := stream.Policy{Floor: time.Millisecond, Ceiling: time.Millisecond, MaxAttempts: 0}
	m, transport := newTestModel(t, fakeSource{}, policy)
	m, _ = update(t, m, snapshotMsg{})
	id := m.client.Status().Subscription

	m, _ = update(t, m, streamEventMsg(stream.Event{Kind: stream.EventError, Subscription: id, Err: errors.New("refused")}))

	if !m.client.Status().Exhausted {
		t.Fatalf("client not exhausted")
	}
	if m.pane.Len() != 1 || !m.pane.entries[0].notice {
		t.Fatalf("entries = %+v, want connection lost notice", m.pane.entries)
	}
	if view := m.View(); !strings.Contains(view, "OFFLINE") {
		t.Fatalf("header does not show offline:\n%s", view)
	}

	m, _ = update(t, m, tea.FocusMsg{})
	if len(transport.opened) != 1 {
		t.Fatalf("focus reconnected an exhausted stream")
	}

	m, _ = update(t, m, runeKey("r"))
	if st := m.client.Status(); st.Exhausted || st.State != stream.Connecting || len(transport.opened) != 2 {
		t.Fatalf("after r status=%+v opened=%d", st, len(transport.opened))
	}
}

func TestModel_CycleThemeSavesPrefs(t *testing.T) {
	m, _ := newTestModel(t, fakeSource{}, stream.Policy{})
	if m.theme.Name != "Nightfox" {
		t.Fatalf("default theme = %q, want Nightfox", m.theme.Name)
	}

	m, _ = update(t, m, runeKey("T"))
	if m.theme.Name != "Kanagawa" {
		t.Fatalf("theme = %q, want Kanagawa", m.theme.Name)
	}
	saved, err := prefs.Load(m.prefsPath)
	if err != nil || saved.Theme != "Kanagawa" {
		t.Fatalf("saved prefs = %+v, %v; want Kanagawa", saved, err)
	}
}

func TestModel_HelpAndQuit(t *testing.T) {
	m, transport := newTestModel(t, fakeSource{}, stream.Policy{})
	m, _ = update(t, m, snapshotMsg{})

	m, _ = update(t, m, runeKey("?"))
	if !m.showHelp || !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatalf("help overlay not shown")
	}
	m, _ = update(t, m, runeKey("x"))
	if m.showHelp {
		t.Fatalf("help overlay not closed by key")
	}

	_, cmd := update(t, m, runeKey("q"))
	if cmd == nil {
		t.Fatalf("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("quit command did not return QuitMsg")
	}
	if !transport.opened[0].closed {
		t.Fatalf("subscription still open after quit")
	}
}

func TestModel_ViewBeforeReady(t *testing.T) {
	m := New(Options{Transport: &fakeTransport{}})
	defer m.client.Close()
	if got := m.View(); got != "Loading..." {
		t.Fatalf("View() = %q, want Loading...", got)
	}
}

func TestFetchSnapshotCmd_NilFetcher(t *testing.T) {
	msg := fetchSnapshotCmd(context.Background(), nil)()
	snap, ok := msg.(snapshotMsg)
	if !ok || snap.err == nil {
		t.Fatalf("msg = %#v, want snapshotMsg with error", msg)
	}
}
