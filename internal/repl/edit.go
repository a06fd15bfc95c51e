package repl

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/promptree/promptree/internal/parser"
)

// sentinel distinguishing "flag not given" from "given as none".
type parentArg struct {
	set bool
	id  *int64
}

func (r *REPL) cmdEdit(arg string) {
	if arg == "" {
		r.p.errorf("Please provide a conversation ID and parameter(s) to edit.")
		return
	}

	tokens, err := splitArgs(arg)
	if err != nil || len(tokens) < 2 {
		r.p.errorf("Invalid syntax. Use: edit <id> [-subject \"<text>\"] [-parent <id|none>] [-link <ids|none>] [-unlink <ids>] [-e]")
		return
	}

	id, err := strconv.ParseInt(tokens[0], 10, 64)
	if err != nil {
		r.p.errorf("Invalid conversation ID: %s", tokens[0])
		return
	}
	if _, err := r.svc.Get(id); err != nil {
		r.p.errorf("Conversation with ID %d not found.", id)
		return
	}

	var (
		subject    string
		subjectSet bool
		parent     parentArg
		linkIDs    []int64
		linkSet    bool
		unlinkIDs  []int64
		useEditor  bool
	)

	for i := 1; i < len(tokens); {
		switch tokens[i] {
		case "-e":
			useEditor = true
			i++
		case "-subject":
			if i+1 >= len(tokens) {
				r.p.errorf("Missing value for -subject.")
				return
			}
			subject, subjectSet = tokens[i+1], true
			i += 2
		case "-parent":
			if i+1 >= len(tokens) {
				r.p.errorf("Missing value for -parent.")
				return
			}
			value := tokens[i+1]
			parent.set = true
			if !strings.EqualFold(value, "none") && !strings.EqualFold(value, "null") {
				pid, err := strconv.ParseInt(value, 10, 64)
				if err != nil {
					r.p.errorf("Invalid parent ID: %s", value)
					return
				}
				parent.id = &pid
			}
			i += 2
		case "-link":
			if i+1 >= len(tokens) {
				r.p.errorf("Missing value for -link.")
				return
			}
			value := tokens[i+1]
			linkSet = true
			if !strings.EqualFold(value, "none") && !strings.EqualFold(value, "null") {
				ids, err := parser.ParseIDList(value)
				if err != nil {
					r.p.errorf("Invalid link IDs: %s. Use comma-separated numeric IDs.", value)
					return
				}
				linkIDs = ids
			}
			i += 2
		case "-unlink":
			if i+1 >= len(tokens) {
				r.p.errorf("Missing value for -unlink.")
				return
			}
			ids, err := parser.ParseIDList(tokens[i+1])
			if err != nil {
				r.p.errorf("Invalid unlink IDs: %s. Use comma-separated numeric IDs.", tokens[i+1])
				return
			}
			unlinkIDs = ids
			i += 2
		default:
			r.p.errorf("Invalid syntax near: %s", tokens[i])
			return
		}
	}

	if useEditor {
		r.editInEditor(id)
		return
	}
	if !subjectSet && !parent.set && !linkSet && len(unlinkIDs) == 0 {
		r.p.errorf("Must specify at least one field to edit: -subject, -parent, -link, -unlink, or -e")
		return
	}

	if subjectSet {
		if err := r.svc.SetSubject(id, subject); err != nil {
			r.p.errorf("Error updating subject: %v", err)
		} else {
			fmt.Fprintf(r.out, "Updated conversation %d - subject is now: %s\n", id, r.p.subject(subject))
		}
	}

	if parent.set {
		if err := r.svc.SetParent(id, parent.id); err != nil {
			r.p.errorf("Error updating parent: %v", err)
		} else if parent.id == nil {
			fmt.Fprintf(r.out, "Updated conversation %d - parent is now none (root conversation)\n", id)
		} else {
			fmt.Fprintf(r.out, "Updated conversation %d - parent is now %d\n", id, *parent.id)
		}
	}

	if linkSet {
		skipped, err := r.svc.Relink(id, linkIDs)
		if err != nil {
			r.p.errorf("Error updating links: %v", err)
		} else {
			for _, skip := range skipped {
				r.p.errorf("Skipped link target %d: %s", skip.ID, skip.Reason)
			}
			if len(linkIDs) == 0 {
				fmt.Fprintf(r.out, "Updated conversation %d - removed all links\n", id)
			} else {
				fmt.Fprintf(r.out, "Updated conversation %d - links replaced\n", id)
			}
		}
	}

	for _, unlinkID := range unlinkIDs {
		if unlinkID == id {
			r.p.errorf("Cannot unlink conversation %d from itself.", id)
			continue
		}
		if err := r.svc.Unlink(id, unlinkID); err != nil {
			r.p.errorf("Error unlinking from conversation %d: %v", unlinkID, err)
			continue
		}
		fmt.Fprintf(r.out, "Updated conversation %d - unlinked from %d\n", id, unlinkID)
	}
}

// editInEditor round-trips the conversation through $EDITOR as an editable
// text block and applies whatever fields came back changed.
func (r *REPL) editInEditor(id int64) {
	c, err := r.svc.Get(id)
	if err != nil {
		r.p.errorf("Conversation with ID %d not found.", id)
		return
	}
	linked, err := r.svc.Linked(id)
	if err != nil {
		r.p.errorf("Error reading links: %v", err)
		return
	}
	linkIDs := make([]int64, len(linked))
	for i, l := range linked {
		linkIDs[i] = l.ID
	}

	tmp, err := os.CreateTemp("", "promptree-edit-*.txt")
	if err != nil {
		r.p.errorf("Error creating temp file: %v", err)
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(parser.Marshal(c, linkIDs)); err != nil {
		tmp.Close()
		r.p.errorf("Error writing temp file: %v", err)
		return
	}
	tmp.Close()

	if err := r.editorCmd(tmp.Name()); err != nil {
		r.p.errorf("Editor failed: %v", err)
		return
	}

	edited, err := os.ReadFile(tmp.Name())
	if err != nil {
		r.p.errorf("Error reading edited file: %v", err)
		return
	}
	block, err := parser.Parse(string(edited))
	if err != nil {
		r.p.errorf("Could not parse edited block: %v", err)
		return
	}
	if block.ID != id {
		r.p.errorf("Edited block is for conversation %d, expected %d.", block.ID, id)
		return
	}

	r.applyBlock(c.ID, block)
}

func (r *REPL) applyBlock(id int64, block *parser.Block) {
	if err := r.svc.SetSubject(id, block.Subject); err != nil {
		r.p.errorf("Error updating subject: %v", err)
	}
	if err := r.svc.SetParent(id, block.ParentID); err != nil {
		r.p.errorf("Error updating parent: %v", err)
	}
	if err := r.svc.SetPrompt(id, block.Prompt); err != nil {
		r.p.errorf("Error updating prompt: %v", err)
	}
	response := block.Response
	var responsePtr *string
	if response != "" {
		responsePtr = &response
	}
	if err := r.svc.SetResponse(id, responsePtr); err != nil {
		r.p.errorf("Error updating response: %v", err)
	}
	skipped, err := r.svc.Relink(id, block.Links)
	if err != nil {
		r.p.errorf("Error updating links: %v", err)
	}
	for _, skip := range skipped {
		r.p.errorf("Skipped link target %d: %s", skip.ID, skip.Reason)
	}
	fmt.Fprintf(r.out, "Updated conversation %d from editor.\n", id)
}

func runEditor(path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// splitArgs splits a command tail into tokens, honoring double quotes.
func splitArgs(s string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("repl: unterminated quote")
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}
