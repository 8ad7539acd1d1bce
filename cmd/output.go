package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// printer writes command output, styled only when it goes to a terminal.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(cmd *cobra.Command) *printer {
	w := cmd.OutOrStdout()
	f, ok := w.(*os.File)
	return &printer{w: w, color: ok && term.IsTerminal(int(f.Fd()))}
}

func (p *printer) printf(format string, args ...any) { fmt.Fprintf(p.w, format, args...) }

func (p *printer) println(args ...any) { fmt.Fprintln(p.w, args...) }

func (p *printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *printer) heading(text string) string { return p.style(headingStyle, text) }
func (p *printer) muted(text string) string   { return p.style(mutedStyle, text) }
func (p *printer) good(text string) string    { return p.style(goodStyle, text) }
func (p *printer) bad(text string) string     { return p.style(badStyle, text) }

func (p *printer) rule() { p.println("  " + p.muted(strings.Repeat("─", 40))) }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// healthBar renders score (0..1) as a 20-cell bar.
func healthBar(score float64) string {
	barLen := int(score * 20)
	if barLen > 20 {
		barLen = 20
	}
	if barLen < 0 {
		barLen = 0
	}
	return strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
}

// truncID keeps the tail, since Neo4j element ids share a long database prefix.
func truncID(id string) string {
	if len(id) > 12 {
		return id[len(id)-12:]
	}
	return id
}

func truncTitle(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
