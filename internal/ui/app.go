package ui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/evenway2025/took/internal/config"
	"github.com/evenway2025/took/internal/prefs"
	"github.com/evenway2025/took/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewScreen View = iota
	ViewLogs
	ViewNotices
)

// Controller performs shell actions requested from the terminal.
type Controller interface {
	DeliverLink(ctx context.Context, rawURL string)
	Back() bool
	RetryPush(ctx context.Context)
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Store      *state.Store
	Controller Controller
	Config     *config.Config
	LogPath    string
	PollTick   time.Duration
	ThemeName  string
	PrefsPath  string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx        context.Context
	store      *state.Store
	controller Controller
	config     *config.Config
	prefsPath  string
	logPath    string
	pollTick   time.Duration

	theme       Theme
	keys        keyMap
	currentView View
	width       int
	height      int
	ready       bool

	snapshot    state.Snapshot
	lastUpdated time.Time

	logViewport viewport.Model
	logState    logState

	linkInput   textinput.Model
	editingLink bool

	showHelp bool

	flash   string
	flashAt time.Time
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = DefaultUIInterval
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	input := textinput.New()
	input.Prompt = "link> "
	input.Placeholder = "took://card-share/42?save=true"
	input.CharLimit = 2048

	return Model{
		ctx:         ctx,
		store:       opts.Store,
		controller:  opts.Controller,
		config:      opts.Config,
		prefsPath:   prefsPath,
		logPath:     opts.LogPath,
		pollTick:    pollTick,
		theme:       GetTheme(opts.ThemeName),
		keys:        DefaultKeyMap(),
		currentView: ViewScreen,
		logState:    logState{follow: true},
		linkInput:   input,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if cmd := m.refreshLogs(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.linkInput.Width = maxWidth(m.width-12, 10)
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case linkDeliveredMsg:
		m.setFlash("Link delivered: " + truncateMiddle(msg.url, 60))
		return m, fetchSnapshotCmd(m.store)

	case backMsg:
		if !msg.handled {
			m.setFlash("Nothing to go back to")
		}
		return m, fetchSnapshotCmd(m.store)

	case pushRetriedMsg:
		m.setFlash("Push registration retried")
		return m, fetchSnapshotCmd(m.store)
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

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editingLink {
		return m.handleLinkKey(msg)
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		m.currentView = (m.currentView + 1) % 3
		return m, m.enterView()

	case key.Matches(msg, m.keys.ShiftTab):
		m.currentView = (m.currentView + 2) % 3
		return m, m.enterView()

	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.ViewScreen):
		m.currentView = ViewScreen
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, m.enterView()

	case key.Matches(msg, m.keys.ViewNotices):
		m.currentView = ViewNotices
		return m, nil

	case key.Matches(msg, m.keys.OpenLink):
		m.editingLink = true
		m.linkInput.SetValue("")
		return m, m.linkInput.Focus()

	case key.Matches(msg, m.keys.Back):
		if m.controller == nil {
			return m, nil
		}
		return m, backCmd(m.controller)

	case key.Matches(msg, m.keys.RetryPush):
		if m.controller == nil {
			return m, nil
		}
		return m, retryPushCmd(m.ctx, m.controller)
	}

	if m.currentView == ViewLogs {
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) handleLinkKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.editingLink = false
		m.linkInput.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		raw := strings.TrimSpace(m.linkInput.Value())
		m.editingLink = false
		m.linkInput.Blur()
		if raw == "" || m.controller == nil {
			return m, nil
		}
		return m, deliverLinkCmd(m.ctx, m.controller, raw)
	}

	var cmd tea.Cmd
	m.linkInput, cmd = m.linkInput.Update(msg)
	return m, cmd
}

func (m *Model) enterView() tea.Cmd {
	if m.currentView == ViewLogs {
		return m.refreshLogs()
	}
	return nil
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	if m.prefsPath == "" {
		return
	}
	name := m.theme.Name
	if _, err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name }); err != nil {
		slog.Warn("save theme preference failed", "theme", name, "error", err)
	}
}

func (m *Model) setFlash(text string) {
	m.flash = text
	m.flashAt = time.Now()
}

func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs && m.logState.follow {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if m.flash != "" && now.Sub(m.flashAt) > FlashDuration {
		m.flash = ""
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogs:
		return m.renderLogs()
	case ViewNotices:
		return m.renderNotices()
	default:
		return m.renderScreen()
	}
}

// contentHeight is the space left after header, command bar and footer.
func (m Model) contentHeight() int {
	return maxWidth(m.height-3, 3)
}

func maxWidth(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type linkDeliveredMsg struct {
	url string
}

type backMsg struct {
	handled bool
}

type pushRetriedMsg struct{}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func deliverLinkCmd(ctx context.Context, c Controller, rawURL string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		c.DeliverLink(ctx, rawURL)
		return linkDeliveredMsg{url: rawURL}
	}
}

func backCmd(c Controller) tea.Cmd {
	return func() tea.Msg {
		return backMsg{handled: c.Back()}
	}
}

func retryPushCmd(ctx context.Context, c Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		c.RetryPush(ctx)
		return pushRetriedMsg{}
	}
}

// Run starts the Bubble Tea program and blocks until it exits. Cancelling
// the context in opts stops the program without error.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
