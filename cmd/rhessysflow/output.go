package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// styles used by command output. Plain when stdout is not a terminal so
// piped output stays free of escape codes.
type styles struct {
	header lipgloss.Style
	label  lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	err    lipgloss.Style
	muted  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return styles{
			header: plain,
			label:  plain.Width(24),
			ok:     plain,
			warn:   plain,
			err:    plain,
			muted:  plain,
		}
	}
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(24),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		err:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// warningPrinter returns a callback that prints warnings to w.
func warningPrinter(w io.Writer) func(string) {
	st := newStyles(w)
	return func(msg string) {
		fmt.Fprintln(w, st.warn.Render("WARNING: ")+msg)
	}
}

// row prints a label/value line.
func (s styles) row(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", s.label.Render(label), value)
}

// status prints a check line with OK, WARN or FAIL.
func (s styles) status(w io.Writer, label string, ok bool, msg string) {
	st := s.ok.Render("OK  ")
	if !ok {
		st = s.err.Render("FAIL")
	}
	fmt.Fprintf(w, "  %s %s %s\n", s.label.Render(label), st, msg)
}

func (s styles) warning(w io.Writer, label, msg string) {
	fmt.Fprintf(w, "  %s %s %s\n", s.label.Render(label), s.warn.Render("WARN"), msg)
}

func (s styles) section(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, s.header.Render("  "+title))
	fmt.Fprintln(w, s.header.Render("  "+strings.Repeat("-", len(title))))
}
