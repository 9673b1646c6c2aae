package output

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	colorPrimary = lipgloss.Color("#00BFFF")
	colorAccent  = lipgloss.Color("#FFB000")
	colorSuccess = lipgloss.Color("#32CD32")
	colorWarning = lipgloss.Color("#FFA500")
	colorError   = lipgloss.Color("#FF4500")
	colorMuted   = lipgloss.Color("#808080")
)

// Styles holds the text-mode styles of a Renderer.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles builds styles bound to lr. An Ascii color profile on lr yields
// unstyled output.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: lr.NewStyle().Foreground(colorPrimary).Bold(true).Underline(true),
		Header2: lr.NewStyle().Foreground(colorAccent).Bold(true),
		Bold:    lr.NewStyle().Bold(true),
		Muted:   lr.NewStyle().Foreground(colorMuted),
		Key:     lr.NewStyle().Foreground(colorMuted),
		Value:   lr.NewStyle(),
		Success: lr.NewStyle().Foreground(colorSuccess).Bold(true),
		Warning: lr.NewStyle().Foreground(colorWarning).Bold(true),
		Error:   lr.NewStyle().Foreground(colorError).Bold(true),
	}
}
