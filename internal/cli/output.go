package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// LineWidth is the width of section rules in human output.
const LineWidth = 80

var (
	cGreen   = lipgloss.Color("118")
	cRed     = lipgloss.Color("196")
	cMagenta = lipgloss.Color("170")
	cCyan    = lipgloss.Color("39")
	cGold    = lipgloss.Color("220")
)

// printer writes the human-facing status lines of a run.
type printer struct {
	w io.Writer

	ok     lipgloss.Style
	fail   lipgloss.Style
	option lipgloss.Style
	note   lipgloss.Style
	warn   lipgloss.Style
}

func newPrinter(w io.Writer, color bool) *printer {
	p := &printer{
		w:      w,
		ok:     lipgloss.NewStyle(),
		fail:   lipgloss.NewStyle(),
		option: lipgloss.NewStyle(),
		note:   lipgloss.NewStyle(),
		warn:   lipgloss.NewStyle(),
	}
	if color {
		p.ok = p.ok.Foreground(cGreen)
		p.fail = p.fail.Foreground(cRed)
		p.option = p.option.Foreground(cMagenta)
		p.note = p.note.Foreground(cCyan)
		p.warn = p.warn.Foreground(cGold)
	}
	return p
}

// Section prints a centered title padded with dashes.
func (p *printer) Section(title string) {
	if title == "" {
		_, _ = fmt.Fprintln(p.w, strings.Repeat("-", LineWidth))
		return
	}
	title = " " + title + " "
	left := (LineWidth - len(title)) / 2
	right := LineWidth - len(title) - left
	if left < 0 {
		left, right = 0, 0
	}
	_, _ = fmt.Fprintln(p.w, strings.Repeat("-", left)+title+strings.Repeat("-", right))
}

// Setting prints "label: value" with an optional dimmed note.
func (p *printer) Setting(label, value, note string) {
	line := fmt.Sprintf("%s: %s", label, p.ok.Render(value))
	if note != "" {
		line += " " + p.note.Render("("+note+")")
	}
	_, _ = fmt.Fprintln(p.w, line)
}

func (p *printer) Option(msg string) {
	_, _ = fmt.Fprintln(p.w, p.option.Render(msg))
}

func (p *printer) Done(step string) {
	_, _ = fmt.Fprintf(p.w, "%s %s\n", step, p.ok.Render("done"))
}

func (p *printer) Failed(step string) {
	_, _ = fmt.Fprintf(p.w, "%s %s\n", step, p.fail.Render("failed"))
}

func (p *printer) Success(msg string) {
	_, _ = fmt.Fprintln(p.w, p.ok.Render(msg))
}

func (p *printer) Error(msg string) {
	_, _ = fmt.Fprintln(p.w, p.fail.Render(msg))
}

func (p *printer) Warn(msg string) {
	_, _ = fmt.Fprintln(p.w, p.warn.Render(msg))
}

func (p *printer) Println(msg string) {
	_, _ = fmt.Fprintln(p.w, msg)
}
