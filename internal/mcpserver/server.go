// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Promptree tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/promptree/promptree/internal/export"
	"github.com/promptree/promptree/internal/treeservice"
)

// Server wraps the MCP server with Promptree tools.
type Server struct {
	mcp *server.MCPServer
	svc *treeservice.Service
}

// New creates a new MCP server with all Promptree tools registered.
func New(svc *treeservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Promptree",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Send a prompt to the configured LLM backend and record the "+
			"exchange as a conversation. Pass parent_id to continue an existing thread; "+
			"omit it to start a new root conversation."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The prompt text to send")),
		mcp.WithNumber("parent_id", mcp.Description("Optional id of the conversation to continue from")),
	), s.ask)

	s.mcp.AddTool(mcp.NewTool("list_roots",
		mcp.WithDescription("List all root conversations (threads without a parent)."),
	), s.listRoots)

	s.mcp.AddTool(mcp.NewTool("open_tree",
		mcp.WithDescription("Render a conversation and all of its descendants as a Markdown "+
			"document. Follows the export format described by the promptree://block-format resource."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Id of the conversation to open")),
	), s.openTree)

	s.mcp.AddTool(mcp.NewTool("search_conversations",
		mcp.WithDescription("Search conversation subjects, prompts and responses. "+
			"Use * as a wildcard; without wildcards the pattern matches anywhere (case-insensitive)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search pattern")),
	), s.searchConversations)

	s.mcp.AddTool(mcp.NewTool("link_conversations",
		mcp.WithDescription("Create a cross-reference link between two conversations. "+
			"Links are symmetric and independent of the parent/child tree."),
		mcp.WithNumber("a", mcp.Required(), mcp.Description("Id of the first conversation")),
		mcp.WithNumber("b", mcp.Required(), mcp.Description("Id of the second conversation")),
	), s.linkConversations)

	s.mcp.AddTool(mcp.NewTool("delete_conversation",
		mcp.WithDescription("Delete a conversation together with all of its descendants "+
			"and every link touching them. This cannot be undone."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Id of the conversation to delete")),
	), s.deleteConversation)

	s.mcp.AddTool(mcp.NewTool("get_block_contract",
		mcp.WithDescription("Returns the canonical Promptree editable block format. "+
			"Call this before hand-editing conversation blocks to ensure correct structure."),
	), s.getBlockContract)

	// Resource: editable block format contract.
	s.mcp.AddResource(
		mcp.NewResource("promptree://block-format", "Conversation Block Format",
			mcp.WithResourceDescription("Canonical editable block format for conversations."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readBlockFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) ask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var parentID *int64
	if v := req.GetInt("parent_id", 0); v > 0 {
		id := int64(v)
		parentID = &id
	}

	c, err := s.svc.Ask(ctx, prompt, parentID, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.MarshalIndent(c, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listRoots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roots, err := s.svc.Roots()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(roots) == 0 {
		return mcp.NewToolResultText("no conversations recorded"), nil
	}

	var b strings.Builder
	for _, c := range roots {
		fmt.Fprintf(&b, "[%d] %s (%s)\n", c.ID, c.Subject, c.ModelName)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) openTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tree, err := s.svc.BuildTree(int64(id))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(export.Markdown(tree))), nil
}

func (s *Server) searchConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results, err := s.svc.Search(query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) linkConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := req.RequireInt("a")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := req.RequireInt("b")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.svc.Link(int64(a), int64(b)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("linked %d and %d", a, b)), nil
}

func (s *Server) deleteConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.svc.Delete(int64(id)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted conversation %d and its descendants", id)), nil
}

func (s *Server) getBlockContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BlockFormatContract), nil
}

func (s *Server) readBlockFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "promptree://block-format",
			MIMEType: "text/markdown",
			Text:     BlockFormatContract,
		},
	}, nil
}
