// Package console formats user-facing messages written to stderr.
//
// Styling is applied only when stderr is a terminal, so piped output and
// tests see plain text with the same prefixes.
package console

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#58A6FF"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D29922"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F85149")).Bold(true)
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#BC8CFF"))
	verboseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8B949E")).Italic(true)
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// Terminal detection is swappable so tests can pin plain output.
var (
	stderrIsTerminal = func() bool { return term.IsTerminal(int(os.Stderr.Fd())) }
	stdinIsTerminal  = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

// IsStderrTerminal reports whether stderr is attached to a terminal.
func IsStderrTerminal() bool {
	return stderrIsTerminal()
}

// IsStdinTerminal reports whether stdin is attached to a terminal.
func IsStdinTerminal() bool {
	return stdinIsTerminal()
}

func applyStyle(style lipgloss.Style, text string) string {
	if !IsStderrTerminal() {
		return text
	}
	return style.Render(text)
}

// FormatInfoMessage formats an informational line.
func FormatInfoMessage(message string) string {
	return applyStyle(infoStyle, "ℹ "+message)
}

// FormatSuccessMessage formats a success line.
func FormatSuccessMessage(message string) string {
	return applyStyle(successStyle, "✓ "+message)
}

// FormatWarningMessage formats a warning line.
func FormatWarningMessage(message string) string {
	return applyStyle(warningStyle, "⚠ "+message)
}

// FormatErrorMessage formats an error line.
func FormatErrorMessage(message string) string {
	return applyStyle(errorStyle, "✗ "+message)
}

// FormatCommandMessage formats a command that is about to run.
func FormatCommandMessage(command string) string {
	return applyStyle(commandStyle, "⚡ "+command)
}

// FormatVerboseMessage formats a line only shown with --verbose.
func FormatVerboseMessage(message string) string {
	return applyStyle(verboseStyle, "🔍 "+message)
}

// FormatSectionHeader formats a bold section header.
func FormatSectionHeader(header string) string {
	return applyStyle(headerStyle, header)
}

// FormatListItem formats a bullet item.
func FormatListItem(item string) string {
	return "  • " + item
}

// FormatErrorWithSuggestions formats an error followed by a list of hints.
func FormatErrorWithSuggestions(message string, suggestions []string) string {
	var b strings.Builder
	b.WriteString(FormatErrorMessage(message))
	if len(suggestions) == 0 {
		return b.String()
	}
	b.WriteString("\n\nSuggestions:\n")
	for _, s := range suggestions {
		b.WriteString(FormatListItem(s))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// LogVerbose prints message to stderr when verbose is set.
func LogVerbose(verbose bool, message string) {
	if verbose {
		fmt.Fprintln(os.Stderr, FormatVerboseMessage(message))
	}
}
