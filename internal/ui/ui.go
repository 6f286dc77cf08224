package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sp2yt/internal/tasks"
)

const historySize = 5

// Runner runs one transfer, reporting on progress. [tasks.Pipeline] implements it.
type Runner interface {
	Run(ctx context.Context, opts tasks.Options, progress chan<- tasks.ProgressUpdate) (*tasks.TransferResult, error)
}

// stages are the checklist rows, in pipeline order.
var stages = []struct {
	phase tasks.Phase
	label string
}{
	{tasks.AcquireToken, "Spotify token"},
	{tasks.ReadTracks, "Read playlist tracks"},
	{tasks.ResolveVideos, "Search YouTube"},
	{tasks.Authorize, "Authorize YouTube"},
	{tasks.CreatePlaylist, "Create playlist"},
	{tasks.InsertItems, "Add videos"},
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	runner   Runner
	opts     tasks.Options
	width    int
	height   int
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	list     list.Model
	progress <-chan tasks.ProgressUpdate
	done     <-chan transferOutcome

	phase      tasks.Phase // last non-terminal phase seen
	history    []string
	prompts    []string
	running    bool
	quitting   bool
	missesOnly bool
	result     *tasks.TransferResult
	err        error
}

// NewModel creates a model that runs opts through runner once started.
func NewModel(ctx context.Context, runner Runner, opts tasks.Options) *Model {
	ctx, cancel := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.spinner

	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		runner:  runner,
		opts:    opts,
		width:   80,
		height:  24,
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Result returns the transfer outcome once the pipeline has returned.
func (m *Model) Result() (*tasks.TransferResult, error) {
	return m.result, m.err
}

// Init starts the transfer and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startTransfer())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.result != nil {
			m.list.SetSize(m.listSize())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		if !update.Terminal() {
			m.phase = update.Phase
		}
		m.history = append(m.history, update.Message)
		if len(m.history) > historySize {
			m.history = m.history[len(m.history)-historySize:]
		}
		return m, m.waitForProgress()

	case MsgTransferComplete:
		outcome := msg.data.(transferOutcome)
		m.running = false
		m.result = outcome.result
		m.err = outcome.err
		m.progress = nil
		m.done = nil
		m.resetList()
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case MsgPrompt:
		m.prompts = append(m.prompts, strings.TrimSpace(msg.data.(string)))
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.running {
		if key.Matches(msg, m.keys.quit) {
			m.quitting = true
			m.cancel()
		}
		return m, nil
	}

	if m.result != nil && m.list.FilterState() == list.Filtering {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.misses):
		m.missesOnly = !m.missesOnly
		m.resetList()
		return m, nil
	}

	return m.updateList(msg)
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.result == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) listSize() (int, int) {
	return max(m.width-4, 20), max(m.height-14, 5)
}

func (m *Model) resetList() {
	if m.result == nil {
		return
	}
	w, h := m.listSize()
	m.list = list.New(resolutionItems(m.result.Resolutions, m.missesOnly), list.NewDefaultDelegate(), w, h)
	m.list.Title = "Tracks"
	if m.missesOnly {
		m.list.Title = "Unmatched tracks"
	}
	m.list.SetShowHelp(false)
}

func (m *Model) startTransfer() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan transferOutcome, 1)
	m.progress = progress
	m.done = done
	m.running = true

	runner, ctx, opts := m.runner, m.ctx, m.opts
	go func() {
		result, err := runner.Run(ctx, opts, progress)
		done <- transferOutcome{result, err}
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progress, m.done
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			outcome := <-done
			return transferCompleteMsg(outcome.result, outcome.err)
		}
		return progressUpdateMsg(update)
	}
}

// View renders the checklist while running and the summary afterwards.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Spotify → YouTube"))
	b.WriteString("\n")
	b.WriteString(m.renderStages())

	if m.running {
		b.WriteString("\n")
		for _, line := range m.history {
			b.WriteString(styles.help.Render(line))
			b.WriteString("\n")
		}
		for _, p := range m.prompts {
			b.WriteString(styles.warn.Render(p))
			b.WriteString("\n")
		}
		if m.quitting {
			b.WriteString(styles.warn.Render("\nCancelling..."))
		} else {
			b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{m.keys.quit}))
		}
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(m.renderResult())
	return b.String()
}

func (m *Model) renderStages() string {
	var b strings.Builder
	finished := !m.running

	for _, s := range stages {
		var marker string
		switch {
		case finished && m.err != nil && s.phase == m.phase:
			marker = styles.err.Render("✗")
		case finished && m.err == nil && m.opts.DryRun && s.phase > tasks.ResolveVideos:
			marker = styles.help.Render("-")
		case s.phase < m.phase || (finished && m.err == nil):
			marker = styles.ok.Render("✓")
		case s.phase == m.phase && m.running:
			marker = m.spinner.View()
		default:
			marker = styles.help.Render("·")
		}
		fmt.Fprintf(&b, " %s %s\n", marker, s.label)
	}
	return b.String()
}

func (m *Model) renderResult() string {
	if m.err != nil {
		msg := fmt.Sprintf("Transfer failed: %v", m.err)
		if stage, ok := tasks.FailedStage(m.err); ok {
			msg = fmt.Sprintf("Transfer failed after %s: %v", stage, errorCause(m.err))
		}
		out := styles.err.Render(msg)
		if m.result == nil || len(m.result.Resolutions) == 0 {
			return out + "\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.quit})
		}
		return out + "\n\n" + m.list.View() + "\n" + m.help.View(m.keys)
	}

	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.quit})
	}

	res := m.result.Resolutions
	var summary string
	if m.result.Playlist != nil {
		summary = styles.ok.Render("✓ Transfer complete!") +
			fmt.Sprintf("\n\nPlaylist ID: %s\nAdded: %d videos", m.result.Playlist.ID, m.result.Playlist.Inserted)
	} else {
		summary = styles.ok.Render("✓ Dry run complete")
	}
	summary += fmt.Sprintf("\nMatched: %d/%d", res.FoundCount(), len(res))

	if misses := len(res.Misses()); misses > 0 {
		summary += "\n" + styles.warn.Render(fmt.Sprintf("%d tracks had no match", misses))
	}

	return summary + "\n\n" + m.list.View() + "\n" + m.help.View(m.keys)
}

func errorCause(err error) error {
	var se *tasks.StageError
	if errors.As(err, &se) {
		return se.Err
	}
	return err
}

// Program runs a [Model] and collects its outcome.
type Program struct {
	model   *Model
	program *tea.Program
}

// NewProgram prepares a TUI for one transfer. Options are passed to [tea.NewProgram].
func NewProgram(ctx context.Context, runner Runner, opts tasks.Options, teaOpts ...tea.ProgramOption) *Program {
	model := NewModel(ctx, runner, opts)
	return &Program{model: model, program: tea.NewProgram(model, teaOpts...)}
}

// Prompt shows a line below the progress output. Safe to call from the pipeline goroutine.
func (p *Program) Prompt(format string, args ...any) {
	p.program.Send(promptMsg(fmt.Sprintf(format, args...)))
}

// Run blocks until the user quits and returns the transfer outcome.
func (p *Program) Run() (*tasks.TransferResult, error) {
	if _, err := p.program.Run(); err != nil {
		return nil, fmt.Errorf("failed to run TUI: %w", err)
	}

	result, err := p.model.Result()
	if result == nil && err == nil {
		return nil, context.Canceled
	}
	return result, err
}
