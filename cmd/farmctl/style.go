package main

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// renderTable lays rows out in padded columns under a bold header.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = cellStyle.Width(w + 2).Render(style.Render(cell))
		}
		return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, parts...), " ")
	}

	var b strings.Builder
	b.WriteString(line(headers, headerStyle))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(line(row, lipgloss.NewStyle()))
	}
	return b.String()
}

// keyValues renders label/value pairs inside a rounded panel.
func keyValues(title string, pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if w := lipgloss.Width(p[0]); w > width {
			width = w
		}
	}
	lines := []string{headerStyle.Render(title)}
	for _, p := range pairs {
		lines = append(lines, mutedStyle.Width(width+2).Render(p[0])+p[1])
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func printLine(w io.Writer, styled string) {
	io.WriteString(w, styled+"\n")
}
