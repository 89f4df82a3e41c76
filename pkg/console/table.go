package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// TableConfig describes a table to render.
type TableConfig struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTable renders config as a bordered table. Without a terminal the
// border is plain ASCII so logs stay readable.
func RenderTable(config TableConfig) string {
	if len(config.Headers) == 0 && len(config.Rows) == 0 {
		return ""
	}

	border := lipgloss.NormalBorder()
	if !IsStderrTerminal() {
		border = lipgloss.ASCIIBorder()
	}

	t := table.New().
		Border(border).
		Headers(config.Headers...).
		Rows(config.Rows...)

	var b strings.Builder
	if config.Title != "" {
		b.WriteString(FormatSectionHeader(config.Title))
		b.WriteString("\n")
	}
	b.WriteString(t.String())
	return b.String()
}
