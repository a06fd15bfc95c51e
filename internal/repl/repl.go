// Package repl implements the interactive line interpreter. It owns the
// "current parent" pointer that chains follow-up exchanges; the tree layer
// itself stays stateless, receiving the parent explicitly on each call.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/promptree/promptree/internal/treeservice"
)

// REPL drives the interactive command loop.
type REPL struct {
	svc   *treeservice.Service
	in    *bufio.Scanner
	out   io.Writer
	p     *printer
	model string

	// currentParent chains follow-up asks; nil means new asks create roots.
	currentParent *int64

	// editorCmd launches the external editor on a file; overridable in tests.
	editorCmd func(path string) error
}

// New creates a REPL reading commands from in and writing to out.
func New(svc *treeservice.Service, model string, in io.Reader, out io.Writer) *REPL {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &REPL{
		svc:       svc,
		in:        scanner,
		out:       out,
		p:         newPrinter(out),
		model:     model,
		editorCmd: runEditor,
	}
}

// Run executes the command loop until quit, EOF, or context cancellation.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintf(r.out, "Welcome to Promptree! Using model: %s\n", r.model)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Fprintf(r.out, "\nPromptree|%s|Parent:%s> ", r.model, r.parentLabel())
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return r.in.Err()
		}

		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if quit := r.dispatch(ctx, line); quit {
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		}
	}
}

// dispatch runs one command line; it returns true when the loop should exit.
func (r *REPL) dispatch(ctx context.Context, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "quit", "exit":
		return true
	case "ask":
		r.cmdAsk(ctx, rest)
	case "list":
		r.cmdList()
	case "open":
		r.cmdOpen(rest)
	case "close":
		r.currentParent = nil
		fmt.Fprintln(r.out, "Current conversation context closed. New 'ask' commands will create root conversations.")
	case "edit":
		r.cmdEdit(rest)
	case "rm":
		r.cmdRemove(rest)
	case "search":
		r.cmdSearch(rest)
	case "export":
		r.cmdExport(rest)
	case "summarize":
		r.cmdSummarize(ctx, rest)
	case "help":
		r.cmdHelp()
	default:
		r.p.errorf("Unknown command: %s", line)
		fmt.Fprintln(r.out, "Type 'help' for available commands.")
	}
	return false
}

func (r *REPL) parentLabel() string {
	if r.currentParent == nil {
		return "none"
	}
	return strconv.FormatInt(*r.currentParent, 10)
}

// readLine reads one raw line from the input, for confirmations.
func (r *REPL) readLine() string {
	if !r.in.Scan() {
		return ""
	}
	return strings.TrimSpace(r.in.Text())
}

func (r *REPL) cmdHelp() {
	fmt.Fprint(r.out, `
Promptree - Help
==================================================
Available commands:
  ask [@<id>] <prompt>  - Ask a question with optional parent
  list                  - List top-level conversations
  open <id>             - Show a conversation and its subtree
  close                 - Reset context; new asks create root conversations
  edit <id> [flags]     - Modify a conversation:
                            -subject "<text>"      change the subject
                            -parent <id|none>      reparent (cycle-checked)
                            -link <id>[,<id>...]   replace all links
                            -link none             remove all links
                            -unlink <id>[,<id>...] remove specific links
                            -e                     edit in $EDITOR
  rm <id>[,<id>,...]    - Remove conversations and their subtrees
  search <text>         - Search conversations (* wildcard, case-insensitive)
  export <id> <file>    - Export a conversation tree to Markdown
  summarize <id>        - Summarize a conversation
  quit                  - Quit
`)
}
