package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ConfigureColors picks the color profile from the environment. NO_COLOR and
// a non-terminal stdout both fall back to plain text.
func ConfigureColors() {
	if os.Getenv("NO_COLOR") != "" || !IsTTY() {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}

// ColorRed colors text red
func ColorRed(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("1")).
		Render(text)
}

// ColorGreen colors text green
func ColorGreen(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("2")).
		Render(text)
}

// ColorYellow colors text yellow
func ColorYellow(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("3")).
		Render(text)
}

// ColorCyan colors text cyan
func ColorCyan(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("6")).
		Render(text)
}

// ColorDim renders text faint
func ColorDim(text string) string {
	return lipgloss.NewStyle().
		Faint(true).
		Render(text)
}

// Bold renders text bold
func Bold(text string) string {
	return lipgloss.NewStyle().
		Bold(true).
		Render(text)
}
