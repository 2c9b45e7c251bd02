package runner

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles of the terminal UI.
type Styles struct {
	Bold           lipgloss.Style
	Dim            lipgloss.Style
	Muted          lipgloss.Style
	Path           lipgloss.Style
	TestName       lipgloss.Style
	Running        lipgloss.Style
	Pass           lipgloss.Style
	Fail           lipgloss.Style
	Todo           lipgloss.Style
	Skip           lipgloss.Style
	Error          lipgloss.Style
	ProgressFilled lipgloss.Style
	ProgressEmpty  lipgloss.Style

	SymbolPass string
	SymbolFail string
	SymbolTodo string
	SymbolSkip string
}

// DefaultStyles returns the standard palette.
func DefaultStyles() *Styles {
	return &Styles{
		Bold:           lipgloss.NewStyle().Bold(true),
		Dim:            lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		Muted:          lipgloss.NewStyle().Foreground(lipgloss.Color("#9B9B9B")),
		Path:           lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Underline(true),
		TestName:       lipgloss.NewStyle().Foreground(lipgloss.Color("#DDDDDD")),
		Running:        lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")),
		Pass:           lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		Fail:           lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4672")),
		Todo:           lipgloss.NewStyle().Foreground(lipgloss.Color("#F2C94C")),
		Skip:           lipgloss.NewStyle().Foreground(lipgloss.Color("#9B9B9B")),
		Error:          lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
		ProgressFilled: lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		ProgressEmpty:  lipgloss.NewStyle().Foreground(lipgloss.Color("#3C3C3C")),

		SymbolPass: "✓",
		SymbolFail: "✗",
		SymbolTodo: "○",
		SymbolSkip: "↷",
	}
}

// SpinnerFrames returns the frames of the running indicator.
func SpinnerFrames() []string {
	return []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
}

// ProgressChars returns the filled and empty progress bar cells.
func ProgressChars() (filled, empty string) {
	return "█", "░"
}
