package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette - single lime accent.
const (
	colorLime     = "154" // success, highlights
	colorGray     = "245" // secondary text
	colorDarkGray = "238" // separators
	colorRed      = "196" // errors
	colorYellow   = "220" // warnings
)

// Styles holds the CLI text styles.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Score   lipgloss.Style
	Label   lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorLime)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorLime)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorLime)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
	}
}

// PlainStyles returns styles with no color, for pipes and NO_COLOR.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:  plain,
		Success: plain,
		Warning: plain,
		Error:   plain,
		Dim:     plain,
		Score:   plain,
		Label:   plain,
	}
}

// IsTTY checks if the writer is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// detectNoColor checks the NO_COLOR convention.
func detectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// stylesFor picks colored or plain styles for a writer.
func stylesFor(w io.Writer) Styles {
	if detectNoColor() || !IsTTY(w) {
		return PlainStyles()
	}
	return DefaultStyles()
}
