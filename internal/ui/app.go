package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/logview/internal/logsource"
	"github.com/five82/logview/internal/prefs"
	"github.com/five82/logview/internal/scroll"
	"github.com/five82/logview/internal/snapshot"
	"github.com/five82/logview/internal/stream"
)

const (
	fetchTimeout = 10 * time.Second
	chromeHeight = 4 // header, command bar, pane borders
	chromeWidth  = 2 // pane borders
)

// StatusFetcher is implemented by sources that can describe what they serve.
type StatusFetcher interface {
	FetchStatus(ctx context.Context) (*logsource.StatusResponse, error)
}

// Options configures the UI.
type Options struct {
	Context     context.Context
	Fetcher     snapshot.Fetcher
	Transport   stream.Transport
	Policy      stream.Policy
	Logger      *zap.Logger
	ServerURL   string
	Threshold   int
	BufferLimit int
	ThemeName   string
	PrefsPath   string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	fetcher   snapshot.Fetcher
	logger    *zap.Logger
	serverURL string
	prefsPath string
	keys      keyMap

	// Stream state. The update loop is the client's single owner.
	client *stream.Client
	pane   *logPane

	// UI state
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool

	// Server state
	status      *logsource.StatusResponse
	lastUpdated time.Time
	started     bool
	wasOpen     bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	policy := opts.Policy
	if policy == (stream.Policy{}) {
		policy = stream.DefaultPolicy()
	}

	threshold := opts.Threshold
	if threshold < 0 {
		threshold = scroll.DefaultThreshold
	}

	pane := newLogPane(threshold, opts.BufferLimit)
	m := Model{
		ctx:       ctx,
		fetcher:   opts.Fetcher,
		logger:    logger,
		serverURL: opts.ServerURL,
		prefsPath: prefsPath,
		keys:      DefaultKeyMap(),
		pane:      pane,
		client: stream.New(opts.Transport, pane,
			stream.WithPolicy(policy),
			stream.WithLogger(logger),
		),
	}
	m.setTheme(GetTheme(themeName))
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		fetchSnapshotCmd(m.ctx, m.fetcher),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.pane.setSize(m.width-chromeWidth, m.height-chromeHeight)
		m.ready = true
		return m, nil

	case tea.FocusMsg:
		if m.started {
			m.client.VisibilityRestored()
		}
		return m, nil

	case snapshotMsg:
		// The stream starts once the snapshot is in place so live lines
		// are never cleared by it.
		snapshot.Apply(m.pane, msg.body, msg.err)
		if msg.err != nil {
			m.logger.Warn("snapshot load failed", zap.Error(msg.err))
		} else {
			m.logger.Info("snapshot loaded", zap.Int("lines", m.pane.Len()))
		}
		m.started = true
		m.client.Connect()
		return m, tea.Batch(waitForEventCmd(m.client), fetchStatusCmd(m.ctx, m.fetcher))

	case streamEventMsg:
		m.client.Dispatch(stream.Event(msg))
		cmds := []tea.Cmd{waitForEventCmd(m.client)}
		open := m.client.Status().State == stream.Open
		if open && !m.wasOpen {
			cmds = append(cmds, fetchStatusCmd(m.ctx, m.fetcher))
		}
		m.wasOpen = open
		return m, tea.Batch(cmds...)

	case statusMsg:
		if msg.err != nil {
			m.logger.Debug("status fetch failed", zap.Error(msg.err))
			return m, nil
		}
		m.status = msg.status
		m.lastUpdated = time.Now()
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	vp := &m.pane.viewport
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.client.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.CycleTheme):
		m.setTheme(GetTheme(NextTheme(m.theme.Name)))
		if m.prefsPath != "" {
			if err := prefs.SetTheme(m.prefsPath, m.theme.Name); err != nil {
				m.logger.Warn("save prefs", zap.Error(err))
			}
		}

	case key.Matches(msg, m.keys.Reconnect):
		m.logger.Info("manual reconnect")
		m.client.Reconnect()
		m.wasOpen = false

	case key.Matches(msg, m.keys.Up):
		vp.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		vp.ScrollDown(1)
	case key.Matches(msg, m.keys.Top):
		vp.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		vp.GotoBottom()
	case key.Matches(msg, m.keys.PageUp):
		vp.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		vp.PageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		vp.HalfPageUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		vp.HalfPageDown()
	}
	return m, nil
}

func (m *Model) setTheme(t Theme) {
	m.theme = t
	m.pane.setStyles(t.LevelStyler(), t.Styles().WarningText.Bold(true))
}

// renderMain renders the header, command bar and log pane.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.theme.Styles().Pane.
		Width(max(m.width-chromeWidth, 0)).
		Render(m.pane.View()))
	return b.String()
}

// Messages

type snapshotMsg struct {
	body string
	err  error
}

type streamEventMsg stream.Event

type statusMsg struct {
	status *logsource.StatusResponse
	err    error
}

// Commands

func fetchSnapshotCmd(ctx context.Context, fetcher snapshot.Fetcher) tea.Cmd {
	return func() tea.Msg {
		if fetcher == nil {
			return snapshotMsg{err: errors.New("no log source configured")}
		}
		ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		body, err := fetcher.FetchContent(ctx)
		return snapshotMsg{body: body, err: err}
	}
}

func fetchStatusCmd(ctx context.Context, fetcher snapshot.Fetcher) tea.Cmd {
	sf, ok := fetcher.(StatusFetcher)
	if !ok {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		status, err := sf.FetchStatus(ctx)
		return statusMsg{status: status, err: err}
	}
}

// waitForEventCmd hands the next stream event to the update loop. Exactly
// one is outstanding at a time.
func waitForEventCmd(c *stream.Client) tea.Cmd {
	return func() tea.Msg {
		ev, ok := c.Next()
		if !ok {
			return nil
		}
		return streamEventMsg(ev)
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	defer m.client.Close()

	teaOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithReportFocus()}
	if opts.Context != nil {
		teaOpts = append(teaOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, teaOpts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
