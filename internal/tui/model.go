package tui

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-audit/internal/findings"
	"github.com/scan-io-git/scanio-audit/internal/ingest"
	"github.com/scan-io-git/scanio-audit/internal/workflow"
)

// Controller is the subset of *workflow.Coordinator the screen drives.
type Controller interface {
	Snapshot() workflow.Snapshot
	SubmitScan(ctx context.Context, d ingest.Descriptor) error
	SelectFile(i int) error
	SetFilter(errorsOnly bool)
	ClickFinding(ctx context.Context, id string) error
	Cancel() error
	Apply(ctx context.Context) error
	Verify(ctx context.Context, finding findings.Finding) (findings.VerifyResult, error)
	Reset() error
}

// Browser resolves a folder picked on the backend host.
type Browser interface {
	Browse(ctx context.Context) (string, error)
}

// Uploader materializes a local directory for upload.
type Uploader interface {
	Directory(ctx context.Context, dir string) (ingest.Descriptor, error)
}

type pane int

const (
	paneFiles pane = iota
	paneFindings
)

type snapshotMsg struct{ snap workflow.Snapshot }

type actionDoneMsg struct {
	action string
	err    error
}

type verifyDoneMsg struct {
	finding findings.Finding
	result  findings.VerifyResult
	err     error
}

type browseDoneMsg struct {
	path string
	err  error
}

type verifyView struct {
	finding findings.Finding
	result  findings.VerifyResult
	err     error
}

// Model renders coordinator snapshots and turns key presses into coordinator
// events. Exchanges with the backend run as commands.
type Model struct {
	ctx      context.Context
	coord    Controller
	browser  Browser
	uploader Uploader
	logger   hclog.Logger

	snap          workflow.Snapshot
	focus         pane
	fileCursor    int
	findingCursor int
	codeOffset    int

	input       textinput.Model
	inputActive bool
	spin        spinner.Model
	help        help.Model
	keys        keyMap

	pending   string
	verifying int
	verify    *verifyView
	status    string

	width  int
	height int
}

// Option configures a Model.
type Option func(*Model)

// WithBrowser enables the folder picker key.
func WithBrowser(b Browser) Option {
	return func(m *Model) { m.browser = b }
}

// WithUploader enables uploading a local directory instead of sending its path.
func WithUploader(u Uploader) Option {
	return func(m *Model) { m.uploader = u }
}

// WithLogger sets the logger. It must not write to the terminal.
func WithLogger(logger hclog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithInitialPath pre-fills the path prompt.
func WithInitialPath(p string) Option {
	return func(m *Model) { m.input.SetValue(p) }
}

// NewModel creates the screen for coord. The path prompt is open while no
// files are loaded.
func NewModel(ctx context.Context, coord Controller, opts ...Option) Model {
	input := textinput.New()
	input.Placeholder = "/path/to/project"
	input.Prompt = "Path: "
	input.CharLimit = 4096
	input.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := Model{
		ctx:    ctx,
		coord:  coord,
		logger: hclog.NewNullLogger(),
		input:  input,
		spin:   spin,
		help:   help.New(),
		keys:   defaultKeyMap(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.applySnapshot(coord.Snapshot())
	if m.snap.State == workflow.Empty {
		m.inputActive = true
		m.input.Focus()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, textinput.Blink)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case snapshotMsg:
		m.applySnapshot(msg.snap)
		return m, nil
	case actionDoneMsg:
		m.pending = ""
		m.applySnapshot(m.coord.Snapshot())
		if msg.err != nil && !stderrors.Is(msg.err, workflow.ErrSuperseded) {
			m.logger.Error("action failed", "action", msg.action, "error", msg.err)
			m.status = fmt.Sprintf("%s: %v", msg.action, msg.err)
		}
		return m, nil
	case verifyDoneMsg:
		if m.verifying > 0 {
			m.verifying--
		}
		if msg.err != nil {
			m.logger.Warn("verify failed", "finding", msg.finding.ID, "error", msg.err)
		}
		m.verify = &verifyView{finding: msg.finding, result: msg.result, err: msg.err}
		return m, nil
	case browseDoneMsg:
		m.pending = ""
		switch {
		case msg.err != nil:
			m.status = fmt.Sprintf("browse: %v", msg.err)
		case msg.path == "":
			m.status = "Folder selection cancelled"
		default:
			m.input.SetValue(msg.path)
			return m, m.openInput()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.inputActive {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}
	if m.inputActive {
		return m.handleInputKey(msg)
	}
	m.status = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Open):
		if m.snap.State == workflow.Empty || m.snap.State == workflow.Loaded {
			return m, m.openInput()
		}
	case key.Matches(msg, m.keys.New):
		if err := m.coord.Reset(); err != nil {
			m.status = fmt.Sprintf("new scan: %v", err)
			return m, nil
		}
		m.verify = nil
		m.input.SetValue("")
		m.applySnapshot(m.coord.Snapshot())
		return m, m.openInput()
	case key.Matches(msg, m.keys.Browse):
		if m.browser == nil {
			m.status = "folder browsing is not available"
			return m, nil
		}
		m.pending = "Waiting for folder selection"
		return m, m.browseCmd()
	case key.Matches(msg, m.keys.Filter):
		m.coord.SetFilter(!m.snap.ErrorsOnly)
		m.applySnapshot(m.coord.Snapshot())
	case key.Matches(msg, m.keys.Tab):
		if m.focus == paneFiles {
			m.focus = paneFindings
		} else {
			m.focus = paneFiles
		}
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.Select):
		if m.focus == paneFiles {
			m.focus = paneFindings
			return m, nil
		}
		if f, ok := m.currentFinding(); ok {
			return m, m.actionCmd("generate fix", func(ctx context.Context) error {
				return m.coord.ClickFinding(ctx, f.ID)
			})
		}
	case key.Matches(msg, m.keys.Apply):
		if m.snap.State == workflow.FixReady {
			return m, m.actionCmd("apply fix", m.coord.Apply)
		}
	case key.Matches(msg, m.keys.Cancel):
		if m.snap.State == workflow.FixReady {
			if err := m.coord.Cancel(); err != nil {
				m.status = fmt.Sprintf("cancel: %v", err)
			}
			m.applySnapshot(m.coord.Snapshot())
		}
	case key.Matches(msg, m.keys.Verify):
		f, ok := m.verifyTarget()
		if !ok {
			return m, nil
		}
		m.verifying++
		return m, m.verifyCmd(f)
	case key.Matches(msg, m.keys.PageUp):
		m.codeOffset -= codeScrollStep
	case key.Matches(msg, m.keys.PageDown):
		m.codeOffset += codeScrollStep
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInput()
		return m, nil
	case tea.KeyEnter:
		d, err := ingest.FromPath(m.input.Value())
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.closeInput()
		m.verify = nil
		return m, m.scanCmd(d)
	}
	if key.Matches(msg, m.keys.Upload) {
		if m.uploader == nil {
			m.status = "upload is not available"
			return m, nil
		}
		dir := m.input.Value()
		if _, err := ingest.FromPath(dir); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.closeInput()
		m.verify = nil
		m.pending = "Reading " + dir
		return m, m.uploadCmd(dir)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) openInput() tea.Cmd {
	m.inputActive = true
	m.status = ""
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.inputActive = false
	m.input.Blur()
}

// applySnapshot adopts s unless a newer snapshot is already shown.
func (m *Model) applySnapshot(s workflow.Snapshot) {
	if s.Version < m.snap.Version {
		return
	}
	if s.SelectedFile != m.snap.SelectedFile || len(s.Files) != len(m.snap.Files) {
		m.codeOffset = 0
		m.findingCursor = 0
	}
	m.snap = s

	m.fileCursor = clamp(m.fileCursor, len(s.Visible))
	for i, v := range s.Visible {
		if v.Index == s.SelectedFile {
			m.fileCursor = i
			break
		}
	}

	active, ok := s.ActiveFile()
	if !ok {
		m.findingCursor = 0
		return
	}
	m.findingCursor = clamp(m.findingCursor, len(active.Findings))
	if s.SelectedFinding != nil {
		for i, f := range active.Findings {
			if f.ID == s.SelectedFinding.ID {
				m.findingCursor = i
				break
			}
		}
	}
}

func (m *Model) move(delta int) {
	switch m.focus {
	case paneFiles:
		if len(m.snap.Visible) == 0 {
			return
		}
		next := clamp(m.fileCursor+delta, len(m.snap.Visible))
		if err := m.coord.SelectFile(m.snap.Visible[next].Index); err != nil {
			m.status = fmt.Sprintf("select file: %v", err)
			return
		}
		m.fileCursor = next
		m.applySnapshot(m.coord.Snapshot())
	case paneFindings:
		active, ok := m.snap.ActiveFile()
		if !ok {
			return
		}
		m.findingCursor = clamp(m.findingCursor+delta, len(active.Findings))
		m.codeOffset = 0
	}
}

func (m Model) currentFinding() (findings.Finding, bool) {
	active, ok := m.snap.ActiveFile()
	if !ok || len(active.Findings) == 0 {
		return findings.Finding{}, false
	}
	return active.Findings[clamp(m.findingCursor, len(active.Findings))], true
}

// verifyTarget prefers the finding under review over the cursor.
func (m Model) verifyTarget() (findings.Finding, bool) {
	if m.snap.SelectedFinding != nil {
		return *m.snap.SelectedFinding, true
	}
	return m.currentFinding()
}

func (m Model) actionCmd(action string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

func (m Model) scanCmd(d ingest.Descriptor) tea.Cmd {
	coord := m.coord
	return m.actionCmd("scan", func(ctx context.Context) error {
		return coord.SubmitScan(ctx, d)
	})
}

func (m Model) uploadCmd(dir string) tea.Cmd {
	coord, uploader := m.coord, m.uploader
	return m.actionCmd("upload", func(ctx context.Context) error {
		d, err := uploader.Directory(ctx, dir)
		if err != nil {
			return err
		}
		return coord.SubmitScan(ctx, d)
	})
}

func (m Model) verifyCmd(f findings.Finding) tea.Cmd {
	ctx, coord := m.ctx, m.coord
	return func() tea.Msg {
		res, err := coord.Verify(ctx, f)
		return verifyDoneMsg{finding: f, result: res, err: err}
	}
}

func (m Model) browseCmd() tea.Cmd {
	ctx, browser := m.ctx, m.browser
	return func() tea.Msg {
		p, err := browser.Browse(ctx)
		return browseDoneMsg{path: p, err: err}
	}
}

func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
