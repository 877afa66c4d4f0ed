package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Banner is printed at the top of interactive runs
const Banner = `
 ┬ ┬┌─┐┬ ┬┌─┐┬─┐┬  ┬┌─┐┌─┐┌┬┐
 │││├┤ ├─┤├─┤├┬┘└┐┌┘├┤ └─┐ │
 └┴┘└─┘┴ ┴┴ ┴┴└─ └┘ └─┘└─┘ ┴  WireGuard config harvester
`

var (
	cyan    = lipgloss.Color("#00D7FF")
	yellow  = lipgloss.Color("#FFD75F")
	red     = lipgloss.Color("#FF5F5F")
	green   = lipgloss.Color("#5FFF87")
	magenta = lipgloss.Color("#D787FF")
	grey    = lipgloss.Color("#8A8A8A")

	labelStyle     = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	valueStyle     = lipgloss.NewStyle().Foreground(yellow)
	errorStyle     = lipgloss.NewStyle().Foreground(red).Bold(true)
	successStyle   = lipgloss.NewStyle().Foreground(green).Bold(true)
	warningStyle   = lipgloss.NewStyle().Foreground(yellow)
	highlightStyle = lipgloss.NewStyle().Foreground(magenta)
	dimStyle       = lipgloss.NewStyle().Foreground(grey)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(magenta).
			Padding(0, 2)
)

var (
	mu      sync.Mutex
	output  io.Writer = os.Stdout
	quiet   bool
	noColor bool
)

// SetOutput redirects terminal output, mostly for tests
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetQuiet suppresses everything except errors
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// SetNoColor disables styling
func SetNoColor(disabled bool) {
	mu.Lock()
	defer mu.Unlock()
	noColor = disabled
}

func render(style lipgloss.Style, text string) string {
	if noColor {
		return text
	}
	return style.Render(text)
}

func write(force bool, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if quiet && !force {
		return
	}
	fmt.Fprintf(output, format, args...)
}

// Cyan and friends style a single string
func Cyan(s string) string    { return render(labelStyle, s) }
func Yellow(s string) string  { return render(valueStyle, s) }
func Red(s string) string     { return render(errorStyle, s) }
func Green(s string) string   { return render(successStyle, s) }
func Magenta(s string) string { return render(highlightStyle, s) }
func Dim(s string) string     { return render(dimStyle, s) }

// PrintBanner prints the banner
func PrintBanner() {
	write(false, "%s\n", Cyan(Banner))
}

// PrintError prints an error message in red, even in quiet mode
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	write(true, "%s\n", Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	write(false, "%s\n", Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	write(false, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	write(false, "%s\n", render(warningStyle, msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	write(false, "%s\n", Magenta(msg))
}

// PrintPanel prints rows of label/value pairs inside a rounded border
func PrintPanel(title string, rows [][2]string) {
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}

	lines := []string{Magenta(title)}
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s  %s", Cyan(fmt.Sprintf("%-*s", width, r[0])), Yellow(r[1])))
	}
	body := lipgloss.JoinVertical(lipgloss.Left, lines...)

	if noColor {
		write(false, "%s\n", body)
		return
	}
	write(false, "%s\n", panelStyle.Render(body))
}
