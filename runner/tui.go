package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// TUIFormatter implements Formatter with an animated terminal UI. The
// model keeps its own tree, folded on the bubbletea goroutine.
type TUIFormatter struct {
	program  *tea.Program
	model    *tuiModel
	out      io.Writer
	done     chan struct{}
	mu       sync.Mutex
	finished bool
}

// NewTUIFormatter creates a TUI formatter for a run in dir.
func NewTUIFormatter(w io.Writer, dir string) *TUIFormatter {
	model := newTUIModel(dir)

	opts := []tea.ProgramOption{
		tea.WithOutput(w),
		tea.WithoutSignalHandler(),
		tea.WithAltScreen(),
	}

	if !IsTerminal(w) {
		opts = append(opts, tea.WithInput(nil))
	}

	return &TUIFormatter{
		program: tea.NewProgram(model, opts...),
		model:   model,
		out:     w,
		done:    make(chan struct{}),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// Start begins the TUI event loop. Call this before running tests.
func (t *TUIFormatter) Start() error {
	go func() {
		defer close(t.done)

		_, _ = t.program.Run()
	}()

	return nil
}

// Format sends an event to the TUI.
func (t *TUIFormatter) Format(event Event, _ *ResultTree) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished {
		return nil
	}

	t.program.Send(reportEventMsg(event))

	return nil
}

// Summary stops the program and prints the final tree.
func (t *TUIFormatter) Summary(tree *ResultTree) error {
	t.mu.Lock()
	t.finished = true
	t.mu.Unlock()

	t.program.Send(doneMsg{errors: tree.Errors()})
	t.program.Quit()
	<-t.done

	// The alternate screen is gone; print a static copy to the scrollback.
	_, err := fmt.Fprintln(t.out, t.model.FinalView())

	return err
}

// -----------------------------------------------------------------------------
// Bubbletea Model
// -----------------------------------------------------------------------------

type tuiModel struct {
	styles  *Styles
	spinner spinner.Model

	width  int
	height int

	tree  *ResultTree
	total int

	startTime time.Time
	endTime   time.Time

	errors []string
	isDone bool
}

// Messages
type (
	tickMsg        time.Time
	reportEventMsg Event
	doneMsg        struct{ errors []string }
)

func newTUIModel(dir string) *tuiModel {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: SpinnerFrames(),
		FPS:    time.Second / 10,
	}
	s.Style = DefaultStyles().Running

	return &tuiModel{
		styles:    DefaultStyles(),
		spinner:   s,
		tree:      NewResultTree(dir),
		startTime: time.Now(),
		width:     80,
		height:    24,
	}
}

func (m *tuiModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.tick(),
	)
}

func (m *tuiModel) tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.QuitMsg:
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		return m, nil

	case tickMsg:
		if !m.isDone {
			cmds = append(cmds, m.tick())
		}

	case spinner.TickMsg:
		if !m.isDone {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case reportEventMsg:
		m.handleEvent(Event(msg))

	case doneMsg:
		m.isDone = true
		m.endTime = time.Now()
		m.errors = msg.errors
	}

	return m, tea.Batch(cmds...)
}

func (m *tuiModel) handleEvent(event Event) {
	m.tree.Fold(event)

	if event.Kind == KindRunStart {
		m.total = event.TestCount.Int()
	}
}

// clearEOL is the ANSI escape sequence to clear from cursor to end of line.
const clearEOL = "\033[K"

// FinalView renders the complete output for printing after the TUI exits.
func (m *tuiModel) FinalView() string {
	lines := m.body()
	lines = append(lines, "", m.renderSummary())

	for _, text := range m.errors {
		lines = append(lines, m.styles.Error.Render(text))
	}

	return strings.Join(lines, "\n")
}

func (m *tuiModel) View() string {
	lines := m.body()

	if m.isDone {
		lines = append(lines, "", m.renderSummary())
	}

	for i := range lines {
		lines[i] += clearEOL
	}

	return strings.Join(lines, "\n") + "\n"
}

func (m *tuiModel) body() []string {
	lines := []string{m.renderHeader(), m.renderProgress(), ""}

	for _, module := range m.tree.Root().Subs {
		treeLines := strings.Split(strings.TrimSuffix(m.renderModule(module), "\n"), "\n")
		lines = append(lines, treeLines...)
	}

	return lines
}

func (m *tuiModel) renderHeader() string {
	logo := m.styles.Bold.Render("elm-test")
	subtitle := m.styles.Dim.Render(" " + m.tree.Dir())

	var status string

	switch {
	case m.isDone && m.tree.Ok():
		status = m.styles.Pass.Render("PASS")
	case m.isDone:
		status = m.styles.Fail.Render("FAIL")
	case m.total > 0:
		status = m.styles.Running.Render(fmt.Sprintf("running %d", m.total-m.tree.Counts().Total))
	default:
		status = m.styles.Dim.Render("compiling")
	}

	return fmt.Sprintf("%s%s  %s", logo, subtitle, status)
}

func (m *tuiModel) renderProgress() string {
	done := m.tree.Counts().Total

	total := m.total
	if total < done {
		total = done
	}

	if total == 0 {
		total = 1
	}

	pct := float64(done) / float64(total)

	elapsed := time.Since(m.startTime)
	if !m.endTime.IsZero() {
		elapsed = m.endTime.Sub(m.startTime)
	}

	elapsedStr := m.styles.Dim.Render(fmt.Sprintf("[%s]", formatDuration(elapsed)))

	barWidth := 30
	filled := int(pct * float64(barWidth))
	filledChar, emptyChar := ProgressChars()

	bar := m.styles.ProgressFilled.Render(strings.Repeat(filledChar, filled)) +
		m.styles.ProgressEmpty.Render(strings.Repeat(emptyChar, barWidth-filled))

	counter := m.styles.Muted.Render(fmt.Sprintf("%d/%d", done, m.total))

	return fmt.Sprintf("%s %s %s", elapsedStr, bar, counter)
}

func (m *tuiModel) renderModule(module *Node) string {
	var b strings.Builder

	b.WriteString(m.renderSymbol(module))
	b.WriteString(" ")
	b.WriteString(m.styles.Path.Render(module.Name))
	b.WriteString("\n")

	for i, child := range module.Subs {
		m.renderNode(&b, child, "", i == len(module.Subs)-1)
	}

	return b.String()
}

func (m *tuiModel) renderNode(b *strings.Builder, node *Node, prefix string, isLast bool) {
	branch := "├─"
	if isLast {
		branch = "╰─"
	}

	name := m.styles.Muted.Render(node.Name)
	dur := ""

	if node.IsLeaf() {
		name = m.styles.TestName.Render(node.Name)
		dur = m.styles.Dim.Render(fmt.Sprintf("  [%s]", formatDuration(time.Duration(node.Duration())*time.Millisecond)))
	}

	b.WriteString(m.styles.Dim.Render(prefix + branch + " "))
	b.WriteString(m.renderSymbol(node))
	b.WriteString(" ")
	b.WriteString(name)
	b.WriteString(dur)
	b.WriteString("\n")

	childPrefix := prefix
	if isLast {
		childPrefix += "  "
	} else {
		childPrefix += "│ "
	}

	if node.IsLeaf() && node.Result.Status == StatusFail {
		detail := strings.Join(node.Messages(), " ")
		if diff, ok := node.Diff(); ok {
			detail = fmt.Sprintf("expected %s, got %s", diff.Expected, diff.Actual)
		}

		b.WriteString(m.styles.Dim.Render(childPrefix + " "))
		b.WriteString(m.styles.Fail.Render(detail))
		b.WriteString("\n")
	}

	for i, child := range node.Subs {
		m.renderNode(b, child, childPrefix, i == len(node.Subs)-1)
	}
}

func (m *tuiModel) renderSymbol(node *Node) string {
	if !node.IsLeaf() {
		switch {
		case node.Green():
			return m.styles.Pass.Render(m.styles.SymbolPass)
		case m.isDone:
			return m.styles.Fail.Render(m.styles.SymbolFail)
		default:
			return m.spinner.View()
		}
	}

	switch node.Result.Status {
	case StatusPass:
		return m.styles.Pass.Render(m.styles.SymbolPass)
	case StatusFail:
		return m.styles.Fail.Render(m.styles.SymbolFail)
	case StatusTodo:
		return m.styles.Todo.Render(m.styles.SymbolTodo)
	case StatusSkip:
		return m.styles.Skip.Render(m.styles.SymbolSkip)
	default:
		return " "
	}
}

func (m *tuiModel) renderSummary() string {
	c := m.tree.Counts()

	var parts []string

	if c.Passed > 0 {
		parts = append(parts, m.styles.Pass.Render(fmt.Sprintf("%d passed", c.Passed)))
	}

	if c.Failed > 0 {
		parts = append(parts, m.styles.Fail.Render(fmt.Sprintf("%d failed", c.Failed)))
	}

	if c.Todo > 0 {
		parts = append(parts, m.styles.Todo.Render(fmt.Sprintf("%d todo", c.Todo)))
	}

	if c.Skipped > 0 {
		parts = append(parts, m.styles.Skip.Render(fmt.Sprintf("%d skipped", c.Skipped)))
	}

	if len(parts) == 0 {
		return m.styles.Dim.Render("  No tests run")
	}

	total := m.styles.Muted.Render(fmt.Sprintf("(%d total)", c.Total))
	sep := m.styles.Dim.Render(" │ ")

	return "  " + strings.Join(parts, sep) + " " + total
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return "<1ms"
	}

	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}

	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

// -----------------------------------------------------------------------------
// TUIHandler - Bridges TUI to Handler interface
// -----------------------------------------------------------------------------

// TUIHandler wraps TUIFormatter to implement Handler.
type TUIHandler struct {
	formatter *TUIFormatter
}

// NewTUIHandler creates a handler drawing to w for a run in dir.
func NewTUIHandler(w io.Writer, dir string) *TUIHandler {
	return &TUIHandler{formatter: NewTUIFormatter(w, dir)}
}

// Start initializes the TUI.
func (h *TUIHandler) Start() error {
	return h.formatter.Start()
}

// Event sends an event to the TUI.
func (h *TUIHandler) Event(_ context.Context, event Event, tree *ResultTree) error {
	return h.formatter.Format(event, tree)
}

// Err is shown in the summary; the alternate screen would swallow direct
// writes.
func (h *TUIHandler) Err(_ string) error {
	return nil
}

// Summary renders the final summary.
func (h *TUIHandler) Summary(tree *ResultTree) error {
	return h.formatter.Summary(tree)
}
