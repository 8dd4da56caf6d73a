package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/config"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/output"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/tree"
	"github.com/mattn/go-isatty"
)

// progressEvery is the report interval while the progress view is shown.
const progressEvery = 1000

// noProgress is set by --no-progress.
var noProgress bool

var (
	progressFillStyle  = lipgloss.NewStyle().Foreground(output.ColorPrimary)
	progressEmptyStyle = lipgloss.NewStyle().Foreground(output.ColorMuted)
)

// progressEnv is what decides between the live view and plain logging.
type progressEnv struct {
	ToStdout bool
	Terminal bool
	Quiet    bool
	Verbose  bool
	Disabled bool
}

// useProgressUI reports whether the live view may take over stderr. Records
// streamed to stdout, a redirected stderr, --quiet and --verbose all fall
// back to the logger.
func useProgressUI(env progressEnv) bool {
	return env.Terminal && !env.ToStdout && !env.Quiet && !env.Verbose && !env.Disabled
}

// showProgress applies useProgressUI to the current flags and terminal.
func showProgress(cfg *config.Config) bool {
	fd := os.Stderr.Fd()
	return useProgressUI(progressEnv{
		ToStdout: cfg.Output == output.Stdout,
		Terminal: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
		Quiet:    getQuiet(),
		Verbose:  getVerbose(),
		Disabled: noProgress,
	})
}

// progressMsg carries a builder progress report.
type progressMsg tree.Progress

// progressDoneMsg ends the view with the final item count.
type progressDoneMsg struct {
	items int
	err   error
}

// progressModel renders generation progress as a spinner, a bar and counts.
type progressModel struct {
	spinner   spinner.Model
	target    int
	current   tree.Progress
	startTime time.Time
	width     int
	done      bool
	err       error
}

func newProgressModel(target int) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(output.ColorPrimary)

	return progressModel{
		spinner:   s,
		target:    target,
		startTime: time.Now(),
		width:     80,
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case progressMsg:
		m.current = tree.Progress(msg)
		return m, nil

	case progressDoneMsg:
		if msg.items > 0 {
			m.current.Items = msg.items
		}
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		if m.err != nil {
			return output.WarningStyle.Render(fmt.Sprintf("Generation stopped: %v", m.err)) + "\n"
		}
		return output.SuccessStyle.Render(fmt.Sprintf("Generated %s items in %s",
			humanize.Comma(int64(m.current.Items)), formatElapsed(time.Since(m.startTime)))) + "\n"
	}

	counts := fmt.Sprintf("%s / %s items",
		humanize.Comma(int64(m.current.Items)), humanize.Comma(int64(m.target)))
	phase := string(m.current.Phase)
	if phase == "" {
		phase = "starting"
	}
	status := output.MutedStyle.Render(fmt.Sprintf("%s  %s", phase, formatElapsed(time.Since(m.startTime))))

	barWidth := m.width - lipgloss.Width(counts) - 30
	if barWidth < 10 {
		barWidth = 10
	}
	return fmt.Sprintf("%s Generating %s %3.0f%%  %s  %s\n",
		m.spinner.View(), m.renderBar(barWidth), m.fraction()*100, counts, status)
}

// fraction is the share of the item target emitted so far.
func (m progressModel) fraction() float64 {
	if m.target <= 0 {
		return 0
	}
	f := float64(m.current.Items) / float64(m.target)
	if f > 1 {
		f = 1
	}
	return f
}

func (m progressModel) renderBar(width int) string {
	filled := int(m.fraction() * float64(width))
	return progressFillStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// formatElapsed formats a duration as M:SS.
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", d/time.Minute, (d%time.Minute)/time.Second)
}

// progressUI runs a progressModel in its own bubbletea program.
type progressUI struct {
	program *tea.Program
	done    chan struct{}
	err     error
}

// newProgressUI prepares a view on w. Nothing is drawn until Start.
func newProgressUI(target int, w io.Writer) *progressUI {
	p := tea.NewProgram(newProgressModel(target),
		tea.WithOutput(w),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	return &progressUI{program: p, done: make(chan struct{})}
}

// Start runs the program in the background.
func (u *progressUI) Start() {
	go func() {
		defer close(u.done)
		_, u.err = u.program.Run()
	}()
}

// Report forwards a builder progress report. It is used as tree.Options.Progress.
func (u *progressUI) Report(p tree.Progress) {
	u.program.Send(progressMsg(p))
}

// Finish stops the view and waits for the terminal to be restored.
func (u *progressUI) Finish(items int, err error) error {
	u.program.Send(progressDoneMsg{items: items, err: err})
	<-u.done
	return u.err
}
