// Package parser converts a conversation to and from the human-editable
// plain-text block used for external-editor round trips. The header fields
// (subject, parent, links) are line-oriented; prompt and response bodies sit
// between section markers and are carried verbatim.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/promptree/promptree/internal/models"
)

const (
	beginMarker    = "=== BEGIN CONVERSATION %d ==="
	endMarker      = "=== END CONVERSATION %d ==="
	promptMarker   = "--- PROMPT ---"
	responseMarker = "--- RESPONSE ---"
	noneWord       = "none"
)

var beginRe = regexp.MustCompile(`^=== BEGIN CONVERSATION (\d+) ===$`)

// Block is the parsed form of an editable conversation block. ParentID and
// Links use nil/none the same way the domain does: a nil parent marks a
// root, an empty Links list means no links.
type Block struct {
	ID       int64
	Subject  string
	ParentID *int64
	Links    []int64
	Prompt   string
	Response string
}

// Marshal renders a conversation and its linked ids as an editable block.
func Marshal(c *models.Conversation, linkIDs []int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, beginMarker+"\n", c.ID)
	fmt.Fprintf(&sb, "Subject: %s\n", c.Subject)
	if c.ParentID != nil {
		fmt.Fprintf(&sb, "Parent: %d\n", *c.ParentID)
	} else {
		fmt.Fprintf(&sb, "Parent: %s\n", noneWord)
	}
	if len(linkIDs) > 0 {
		strs := make([]string, len(linkIDs))
		for i, id := range linkIDs {
			strs[i] = strconv.FormatInt(id, 10)
		}
		fmt.Fprintf(&sb, "Links: %s\n", strings.Join(strs, ", "))
	} else {
		fmt.Fprintf(&sb, "Links: %s\n", noneWord)
	}
	sb.WriteString(promptMarker + "\n")
	sb.WriteString(c.UserPrompt + "\n")
	sb.WriteString(responseMarker + "\n")
	if c.LLMResponse != nil {
		sb.WriteString(*c.LLMResponse + "\n")
	}
	fmt.Fprintf(&sb, endMarker+"\n", c.ID)
	return sb.String()
}

// Parse reads an edited block back. The begin/end markers must match and
// carry the same id; header fields may appear in any order between the
// begin marker and the prompt section.
func Parse(text string) (*Block, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	// Locate markers.
	begin, end := -1, -1
	var id int64
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := beginRe.FindStringSubmatch(trimmed); m != nil && begin < 0 {
			begin = i
			id, _ = strconv.ParseInt(m[1], 10, 64)
		}
		if trimmed == fmt.Sprintf(endMarker, id) && begin >= 0 {
			end = i
		}
	}
	if begin < 0 {
		return nil, fmt.Errorf("parser: begin marker not found")
	}
	if end < 0 {
		return nil, fmt.Errorf("parser: end marker for conversation %d not found", id)
	}

	b := &Block{ID: id}

	promptAt, responseAt := -1, -1
	for i := begin + 1; i < end; i++ {
		switch strings.TrimSpace(lines[i]) {
		case promptMarker:
			if promptAt < 0 {
				promptAt = i
			}
		case responseMarker:
			if responseAt < 0 {
				responseAt = i
			}
		}
	}
	if promptAt < 0 {
		return nil, fmt.Errorf("parser: prompt marker not found")
	}
	if responseAt < 0 || responseAt < promptAt {
		return nil, fmt.Errorf("parser: response marker not found after prompt")
	}

	if err := parseHeader(b, lines[begin+1:promptAt]); err != nil {
		return nil, err
	}
	b.Prompt = strings.TrimSuffix(strings.Join(lines[promptAt+1:responseAt], "\n"), "\n")
	b.Response = strings.TrimSuffix(strings.Join(lines[responseAt+1:end], "\n"), "\n")
	return b, nil
}

func parseHeader(b *Block, lines []string) error {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		key, value, found := strings.Cut(trimmed, ":")
		if !found {
			return fmt.Errorf("parser: malformed header line %q", trimmed)
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "subject":
			b.Subject = value
		case "parent":
			if strings.EqualFold(value, noneWord) || strings.EqualFold(value, "null") {
				b.ParentID = nil
				continue
			}
			pid, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("parser: invalid parent %q", value)
			}
			b.ParentID = &pid
		case "links":
			if strings.EqualFold(value, noneWord) || strings.EqualFold(value, "null") || value == "" {
				b.Links = nil
				continue
			}
			ids, err := ParseIDList(value)
			if err != nil {
				return fmt.Errorf("parser: invalid links %q: %w", value, err)
			}
			b.Links = ids
		default:
			return fmt.Errorf("parser: unknown header field %q", key)
		}
	}
	if b.Subject == "" {
		return fmt.Errorf("parser: subject is required")
	}
	return nil
}

// ParseIDList parses a comma-separated list of positive integer ids.
func ParseIDList(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("not a positive id: %q", part)
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no ids in %q", s)
	}
	return out, nil
}
