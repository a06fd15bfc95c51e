package repl

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/promptree/promptree/internal/models"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// printer formats REPL output, coloring only when writing to a terminal.
type printer struct {
	out   io.Writer
	color bool
}

func newPrinter(out io.Writer) *printer {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &printer{out: out, color: color}
}

func (p *printer) wrap(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + ansiReset
}

func (p *printer) subject(s string) string      { return p.wrap(ansiYellow, s) }
func (p *printer) prompt(s string) string       { return p.wrap(ansiCyan, s) }
func (p *printer) responseText(s string) string { return p.wrap(ansiGreen, s) }

// response writes a streamed response chunk without a trailing newline.
func (p *printer) response(chunk string) {
	fmt.Fprint(p.out, p.wrap(ansiGreen, chunk))
}

func (p *printer) errorf(format string, args ...any) {
	fmt.Fprintln(p.out, p.wrap(ansiRed, fmt.Sprintf(format, args...)))
}

func (p *printer) timestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func (p *printer) listItem(c *models.Conversation) {
	fmt.Fprintf(p.out, "- %s (id: %d, created on: %s)\n", p.subject(c.Subject), c.ID, p.timestamp(c.PromptedAt))
}

func (p *printer) treeLine(node *models.Tree, prefix string, isLast bool) {
	connector := "├─ "
	if isLast {
		connector = "└─ "
	}
	fmt.Fprintf(p.out, "%s%s%s (id: %d, created on: %s)\n",
		prefix, connector, p.subject(node.Subject), node.ID, p.timestamp(node.PromptedAt))
}
