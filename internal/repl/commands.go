package repl

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/promptree/promptree/internal/export"
	"github.com/promptree/promptree/internal/models"
	"github.com/promptree/promptree/internal/parser"
)

var askParentRe = regexp.MustCompile(`(?s)^@(\d+)\s+(.+)`)

func (r *REPL) cmdAsk(ctx context.Context, arg string) {
	if arg == "" {
		r.p.errorf("Please provide a prompt to ask.")
		return
	}

	parentID := r.currentParent
	prompt := arg
	if m := askParentRe.FindStringSubmatch(arg); m != nil {
		id, _ := strconv.ParseInt(m[1], 10, 64)
		parentID = &id
		prompt = strings.TrimSpace(m[2])
	}

	c, err := r.svc.Ask(ctx, prompt, parentID, func(chunk string) {
		r.p.response(chunk)
	})
	if err != nil {
		fmt.Fprintln(r.out)
		r.p.errorf("Error creating conversation: %v", err)
		return
	}

	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "\nSaved conversation %d: %s\n", c.ID, r.p.subject(c.Subject))
	r.currentParent = &c.ID
}

func (r *REPL) cmdList() {
	roots, err := r.svc.Roots()
	if err != nil {
		r.p.errorf("Error listing conversations: %v", err)
		return
	}
	if len(roots) == 0 {
		fmt.Fprintln(r.out, "No top-level conversations found.")
		return
	}
	fmt.Fprintln(r.out, "\nTop-level conversations:")
	for _, c := range roots {
		r.p.listItem(c)
	}
}

func (r *REPL) cmdOpen(arg string) {
	id, ok := r.parseID(arg, "Please provide a conversation ID to open.")
	if !ok {
		return
	}

	c, err := r.svc.Get(id)
	if err != nil {
		r.p.errorf("Conversation with ID %d not found.", id)
		return
	}

	// Show the parent line first so the thread is easy to walk upward.
	if c.ParentID != nil {
		if parent, err := r.svc.Get(*c.ParentID); err == nil {
			fmt.Fprintf(r.out, "%s (id: %d, created on: %s) [parent]\n",
				r.p.subject(parent.Subject), parent.ID, r.p.timestamp(parent.PromptedAt))
		}
	}

	tree, err := r.svc.BuildTree(id)
	if err != nil {
		r.p.errorf("Error opening conversation %d: %v", id, err)
		return
	}

	r.currentParent = &id
	r.printTree(tree)
}

func (r *REPL) cmdRemove(arg string) {
	if arg == "" {
		r.p.errorf("Please provide at least one conversation ID to remove.")
		return
	}
	ids, err := parser.ParseIDList(arg)
	if err != nil {
		r.p.errorf("Invalid ID format. Please provide numeric IDs separated by commas.")
		return
	}

	fmt.Fprintf(r.out, "You are about to delete conversations with IDs: %v\n", ids)
	fmt.Fprintln(r.out, "This will also delete all their descendant conversations.")
	fmt.Fprint(r.out, "Are you sure? (yes/no): ")

	switch strings.ToLower(r.readLine()) {
	case "yes", "y":
	default:
		fmt.Fprintln(r.out, "Deletion canceled.")
		return
	}

	for _, id := range ids {
		if err := r.svc.Delete(id); err != nil {
			r.p.errorf("Error deleting conversation %d: %v", id, err)
			continue
		}
		fmt.Fprintf(r.out, "Deleted conversation %d and its subtree.\n", id)
		if r.currentParent != nil && *r.currentParent == id {
			r.currentParent = nil
		}
	}
}

func (r *REPL) cmdSearch(arg string) {
	if arg == "" {
		r.p.errorf("Please provide text to search for.")
		return
	}
	results, err := r.svc.Search(arg)
	if err != nil {
		r.p.errorf("Error searching: %v", err)
		return
	}
	if len(results) == 0 {
		fmt.Fprintf(r.out, "No conversations found containing '%s'.\n", arg)
		return
	}
	fmt.Fprintf(r.out, "\nFound %d conversation(s) containing '%s':\n", len(results), arg)
	for _, c := range results {
		r.p.listItem(c)
	}
}

func (r *REPL) cmdExport(arg string) {
	fields := strings.SplitN(arg, " ", 2)
	if arg == "" || len(fields) != 2 {
		r.p.errorf("Invalid syntax. Use: export <id> <file>")
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		r.p.errorf("Invalid conversation ID. Please provide a numeric ID.")
		return
	}
	path := strings.TrimSpace(fields[1])

	tree, err := r.svc.BuildTree(id)
	if err != nil {
		r.p.errorf("Conversation with ID %d not found.", id)
		return
	}
	if err := export.WriteFile(path, export.Markdown(tree)); err != nil {
		r.p.errorf("Error exporting conversation: %v", err)
		return
	}
	fmt.Fprintf(r.out, "Exported conversation tree (ID: %d) to %s\n", id, path)
}

func (r *REPL) cmdSummarize(ctx context.Context, arg string) {
	id, ok := r.parseID(arg, "Please provide a conversation ID to summarize.")
	if !ok {
		return
	}
	summary, err := r.svc.Summarize(ctx, id, func(chunk string) {
		r.p.response(chunk)
	})
	if err != nil {
		r.p.errorf("Error generating summary: %v", err)
		return
	}
	if summary == "" {
		fmt.Fprintln(r.out, "No content to summarize in this conversation.")
		return
	}
	fmt.Fprintln(r.out)
}

func (r *REPL) parseID(arg, missingMsg string) (int64, bool) {
	if arg == "" {
		r.p.errorf("%s", missingMsg)
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		r.p.errorf("Invalid conversation ID. Please provide a numeric ID.")
		return 0, false
	}
	return id, true
}

// printTree renders the opened conversation with full content and its
// descendants as subject-only lines.
func (r *REPL) printTree(tree *models.Tree) {
	r.p.treeLine(tree, "", true)

	if tree.UserPrompt != "" {
		fmt.Fprintln(r.out, "    Prompt:")
		fmt.Fprintf(r.out, "    %s\n", r.p.prompt(tree.UserPrompt))
	}
	if tree.LLMResponse != nil {
		fmt.Fprintln(r.out, "    Response:")
		fmt.Fprintf(r.out, "    %s\n", r.p.responseText(*tree.LLMResponse))
	}

	if linked, err := r.svc.Linked(tree.ID); err == nil && len(linked) > 0 {
		fmt.Fprintln(r.out, "    Linked conversations:")
		for _, l := range linked {
			fmt.Fprintf(r.out, "      • %s (id: %d, created on: %s)\n",
				r.p.subject(l.Subject), l.ID, r.p.timestamp(l.PromptedAt))
		}
	}

	for i, child := range tree.Children {
		r.printSubtree(child, "    ", i == len(tree.Children)-1)
	}
}

func (r *REPL) printSubtree(node *models.Tree, prefix string, isLast bool) {
	r.p.treeLine(node, prefix, isLast)
	extension := "    "
	if !isLast {
		extension = "│   "
	}
	for i, child := range node.Children {
		r.printSubtree(child, prefix+extension, i == len(node.Children)-1)
	}
}
