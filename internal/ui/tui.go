package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// quitTimeout bounds how long Stop waits for the program to exit.
const quitTimeout = 2 * time.Second

// TUIRenderer renders refresh progress with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *refreshModel
	tracker *ProgressTracker
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails for non-terminal output.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, errors.New("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newRefreshModel(tracker, cfg.Root)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}
	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer. The tracker holds the state; the
// program only needs a nudge to redraw.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.tracker.Apply(event)
	r.send(redrawMsg{})
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.tracker.AddError(event)
	r.send(redrawMsg{})
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.tracker.Complete()
	r.send(completeMsg(stats))
}

func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p == nil {
		return nil
	}

	p.Quit()
	select {
	case <-r.done:
	case <-time.After(quitTimeout):
	}
	return nil
}

type redrawMsg struct{}
type completeMsg CompletionStats
type tickMsg time.Time

// refreshModel is the bubbletea model of one refresh.
type refreshModel struct {
	tracker  *ProgressTracker
	root     string
	width    int
	quitting bool
	complete bool
	stats    CompletionStats
	spinner  spinner.Model
	bar      progress.Model
	styles   Styles
}

func newRefreshModel(tracker *ProgressTracker, root string) *refreshModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	return &refreshModel{
		tracker: tracker,
		root:    root,
		width:   80,
		spinner: s,
		bar: progress.New(
			progress.WithSolidFill(ColorAccent),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		styles: DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m *refreshModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m *refreshModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if s := msg.String(); s == "ctrl+c" || s == "q" {
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-30, 20)
	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit
	case tickMsg:
		return m, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *refreshModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	stats := m.tracker.Stats()
	title := "routenav refresh"
	if m.root != "" {
		title += " • " + m.root
	}

	lines := []string{
		m.styles.Header.Render(title),
		m.renderStage("Scan", stats.Scan, "files"),
		m.renderStage("Parse", stats.Parse, "sources"),
	}
	if stats.CurrentFile != "" {
		lines = append(lines, m.styles.Dim.Render(truncatePath(stats.CurrentFile, max(m.width-4, 20))))
	}
	lines = append(lines, m.renderStatusBar(stats))
	return strings.Join(lines, "\n") + "\n"
}

// renderStage renders one stage line: icon, name, bar or count, rate.
func (m *refreshModel) renderStage(name string, p StageProgress, unit string) string {
	icon := m.spinner.View()
	style := m.styles.Active
	if p.Done {
		icon, style = "●", m.styles.Success
	}
	head := style.Render(fmt.Sprintf("%s %-5s", icon, name))

	var body string
	if p.Total > 0 {
		body = fmt.Sprintf("%s %s", m.bar.ViewAs(p.Fraction()),
			m.styles.Label.Render(fmt.Sprintf("%d/%d %s", p.Current, p.Total, unit)))
	} else {
		body = m.styles.Label.Render(fmt.Sprintf("%d %s", p.Current, unit))
	}
	if p.Rate > 0 && !p.Done {
		body += m.styles.Dim.Render(fmt.Sprintf("  %.0f/s", p.Rate))
	}
	return head + "  " + body
}

func (m *refreshModel) renderStatusBar(stats ProgressStats) string {
	var parts []string
	if stats.WarnCount > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", stats.WarnCount)))
	}
	if stats.ErrorCount > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", stats.ErrorCount)))
	}
	parts = append(parts, m.styles.Dim.Render("q to quit"))
	return strings.Join(parts, m.styles.Dim.Render("  │  "))
}

func (m *refreshModel) renderComplete() string {
	s := m.stats
	lines := []string{
		m.styles.Success.Render("✓ Refresh complete"),
		"",
		fmt.Sprintf("%s   %s", m.styles.Label.Render("Files:"), m.styles.Active.Render(fmt.Sprint(s.Files))),
		fmt.Sprintf("%s  %s %s", m.styles.Label.Render("Routes:"), m.styles.Active.Render(fmt.Sprint(s.Routes)),
			m.styles.Dim.Render(fmt.Sprintf("(%d sources)", s.Sources))),
		fmt.Sprintf("%s %s", m.styles.Label.Render("Elapsed:"), m.styles.Active.Render(formatDuration(s.Duration))),
	}
	if s.Warnings > 0 {
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("⚠ %d sources failed to parse", s.Warnings)))
	}
	if s.Errors > 0 {
		lines = append(lines, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", s.Errors)))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccent)).
		Padding(0, 2)
	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

// formatDuration renders d at a precision that suits its size.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// truncatePath shortens path to maxLen, keeping its tail.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return "..."
	}
	return "..." + path[len(path)-maxLen+3:]
}

var _ Renderer = (*TUIRenderer)(nil)
