package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table provides aligned table output. Cells may carry ANSI styling; widths
// are measured on the visible text.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	return &Table{headers: headers, widths: widths}
}

// AddRow adds a row to the table. Missing cells are left empty and extra
// cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	for i, cell := range row {
		t.widths[i] = max(t.widths[i], lipgloss.Width(cell))
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// String renders the table: a rounded border on terminals, a dashed header
// rule otherwise.
func (t *Table) String() string {
	if len(t.headers) == 0 {
		return ""
	}
	if EnableColors() {
		return t.renderStyled()
	}
	return t.renderPlain()
}

func (t *Table) renderPlain() string {
	var b strings.Builder
	t.writeRow(&b, t.headers, "  ", func(s string) string { return s })
	rules := make([]string, len(t.widths))
	for i, w := range t.widths {
		rules[i] = strings.Repeat("-", w)
	}
	t.writeRow(&b, rules, "  ", func(s string) string { return s })
	for _, row := range t.rows {
		t.writeRow(&b, row, "  ", func(s string) string { return s })
	}
	return b.String()
}

func (t *Table) renderStyled() string {
	border := lipgloss.NewStyle().Foreground(colorMuted)
	total := -1
	for _, w := range t.widths {
		total += w + 3
	}

	var b strings.Builder
	b.WriteString(border.Render("╭" + strings.Repeat("─", total+2) + "╮"))
	b.WriteString("\n")
	b.WriteString(border.Render("│") + " ")
	t.writeRow(&b, t.headers, border.Render(" │ "), func(s string) string { return styleHeader.Render(s) })
	b.WriteString(border.Render("├" + strings.Repeat("─", total+2) + "┤"))
	b.WriteString("\n")
	for _, row := range t.rows {
		b.WriteString(border.Render("│") + " ")
		t.writeRow(&b, row, border.Render(" │ "), func(s string) string { return s })
	}
	b.WriteString(border.Render("╰" + strings.Repeat("─", total+2) + "╯"))
	b.WriteString("\n")
	return b.String()
}

func (t *Table) writeRow(b *strings.Builder, cells []string, sep string, style func(string) string) {
	var line strings.Builder
	for i, cell := range cells {
		if i > 0 {
			line.WriteString(sep)
		}
		line.WriteString(style(padRight(cell, t.widths[i])))
	}
	out := line.String()
	if !EnableColors() {
		out = strings.TrimRight(out, " ")
	} else {
		out += " " + lipgloss.NewStyle().Foreground(colorMuted).Render("│")
	}
	b.WriteString(out)
	b.WriteString("\n")
}

// padRight pads s to width visible columns.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// Section renders a header followed by content.
func Section(title, content string) string {
	return Header(title) + "\n" + Dim(strings.Repeat("─", lipgloss.Width(title))) + "\n" + content
}

// KeyValue formats a key-value pair.
func KeyValue(key, value string) string {
	return fmt.Sprintf("%s: %s", Dim(key), value)
}

// FormatCount formats a count with singular/plural form.
func FormatCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// YesNo renders a flag as "yes" or an empty cell.
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
