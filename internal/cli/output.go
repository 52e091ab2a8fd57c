package cli

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const tablePadding = 2

// WriteOutput writes v as indented JSON.
func WriteOutput(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// palette styles human output. Styling is off unless out is a terminal.
type palette struct {
	enabled bool
	id      lipgloss.Style
	author  lipgloss.Style
	dim     lipgloss.Style
	marker  lipgloss.Style
	warn    lipgloss.Style
}

func newPalette(out io.Writer) palette {
	p := palette{
		id:     lipgloss.NewStyle().Foreground(lipgloss.Color("111")),
		author: lipgloss.NewStyle().Foreground(lipgloss.Color("157")).Bold(true),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		marker: lipgloss.NewStyle().Foreground(lipgloss.Color("216")).Bold(true),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
	if noColor || jsonOutput {
		return p
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.enabled = true
	}
	return p
}

func (p palette) render(style lipgloss.Style, value string) string {
	if !p.enabled || value == "" {
		return value
	}
	return style.Render(value)
}

// writeTable writes left-aligned columns sized by display width, so styled
// and wide-rune cells still line up.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	cols := len(headers)
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return nil
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(stripANSI(cell)))
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	w := bufio.NewWriter(out)
	line := func(row []string) {
		var b strings.Builder
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(cell)
			if i < cols-1 {
				pad := widths[i] - runewidth.StringWidth(stripANSI(cell))
				b.WriteString(strings.Repeat(" ", max(pad, 0)+tablePadding))
			}
		}
		w.WriteString(strings.TrimRight(b.String(), " "))
		w.WriteByte('\n')
	}

	if len(headers) > 0 {
		line(headers)
	}
	for _, row := range rows {
		line(row)
	}
	return w.Flush()
}

// stripANSI drops CSI escape sequences.
func stripANSI(value string) string {
	if !strings.Contains(value, "\x1b[") {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if value[i] != 0x1b || i+1 >= len(value) || value[i+1] != '[' {
			b.WriteByte(value[i])
			continue
		}
		for i += 2; i < len(value); i++ {
			if value[i] >= 0x40 && value[i] <= 0x7e {
				break
			}
		}
	}
	return b.String()
}
