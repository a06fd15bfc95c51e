// Package export renders a materialized conversation tree as a Markdown
// document and writes it to disk atomically.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/promptree/promptree/internal/models"
)

// Markdown renders the tree depth-first: one heading per node, nested one
// level deeper than its parent, followed by the prompt, the response, and a
// metadata block.
func Markdown(tree *models.Tree) []byte {
	var sb strings.Builder
	renderNode(&sb, tree, 0)
	return []byte(sb.String())
}

func renderNode(sb *strings.Builder, node *models.Tree, level int) {
	fmt.Fprintf(sb, "%s %s\n\n", strings.Repeat("#", level+1), node.Subject)

	if node.UserPrompt != "" {
		sb.WriteString("**Prompt:**\n")
		sb.WriteString(node.UserPrompt + "\n\n")
	}
	if node.LLMResponse != nil {
		sb.WriteString("**Response:**\n")
		sb.WriteString(*node.LLMResponse + "\n\n")
	}

	fmt.Fprintf(sb, "**ID:** %d\n", node.ID)
	fmt.Fprintf(sb, "**Model:** %s\n", node.ModelName)
	fmt.Fprintf(sb, "**Created:** %s\n", node.PromptedAt.Format(time.RFC3339))
	if node.RespondedAt != nil {
		fmt.Fprintf(sb, "**Responded:** %s\n", node.RespondedAt.Format(time.RFC3339))
	}
	sb.WriteString("\n---\n\n")

	for _, child := range node.Children {
		renderNode(sb, child, level+1)
	}
}
