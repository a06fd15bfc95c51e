// Package models defines the domain types for Promptree.
package models

import "time"

// Conversation represents one recorded prompt/response exchange.
// A nil ParentID marks a root conversation.
type Conversation struct {
	ID          int64      `json:"id"`
	Subject     string     `json:"subject"`
	ModelName   string     `json:"model_name"`
	UserPrompt  string     `json:"user_prompt"`
	LLMResponse *string    `json:"llm_response,omitempty"`
	ParentID    *int64     `json:"parent_id,omitempty"`
	PromptedAt  time.Time  `json:"prompted_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// Root reports whether the conversation has no parent.
func (c *Conversation) Root() bool {
	return c.ParentID == nil
}

// Response returns the response text, or empty string if no response
// has been recorded yet.
func (c *Conversation) Response() string {
	if c.LLMResponse == nil {
		return ""
	}
	return *c.LLMResponse
}

// Draft carries the fields of a conversation that has not been persisted yet.
// The Store assigns the id on creation.
type Draft struct {
	Subject     string
	ModelName   string
	UserPrompt  string
	LLMResponse *string
	ParentID    *int64
	PromptedAt  time.Time
	RespondedAt *time.Time
}

// Link is a symmetric association between two conversations, stored as an
// ordered pair. A link between A and B is discoverable from either side.
type Link struct {
	A int64 `json:"a"`
	B int64 `json:"b"`
}

// Tree is a conversation annotated with its children, materialized
// depth-first with each level's child ordering preserved.
type Tree struct {
	Conversation
	Children []*Tree `json:"children"`
}
