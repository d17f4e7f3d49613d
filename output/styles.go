// Package output renders aggregate tables and styled status lines on the
// terminal.
package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Styles provides styled output helpers for the CLI. When disabled (piped
// output), every helper returns its input unchanged.
type Styles struct {
	enabled bool

	header lipgloss.Style
	dim    lipgloss.Style
}

// NewStyles creates a Styles instance. enabled is normally IsTerminal.
func NewStyles(enabled bool) *Styles {
	return &Styles{
		enabled: enabled,
		header:  lipgloss.NewStyle().Bold(true),
		dim:     lipgloss.NewStyle().Faint(true),
	}
}

// Header returns a bold table header string.
func (s *Styles) Header(text string) string {
	if !s.enabled {
		return text
	}
	return s.header.Render(text)
}

// Dim returns a de-emphasized string.
func (s *Styles) Dim(text string) string {
	if !s.enabled {
		return text
	}
	return s.dim.Render(text)
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
