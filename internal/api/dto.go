package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/promptree/promptree/internal/models"
	"github.com/promptree/promptree/internal/treeservice"
)

// AskRequest is the request body for recording a new exchange.
type AskRequest struct {
	Prompt   string `json:"prompt"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// Validate validates the ask request.
func (r AskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Prompt, validation.Required),
		validation.Field(&r.ParentID, validation.Min(int64(1))),
	)
}

// UpdateConversationRequest is the request body for PATCH. Each pointer
// field is applied only when present; ClearParent reparents to root since
// JSON cannot distinguish "absent" from "null" with a plain pointer.
type UpdateConversationRequest struct {
	Subject     *string `json:"subject,omitempty"`
	Prompt      *string `json:"prompt,omitempty"`
	Response    *string `json:"response,omitempty"`
	ParentID    *int64  `json:"parent_id,omitempty"`
	ClearParent bool    `json:"clear_parent,omitempty"`
}

// Validate validates the update request.
func (r UpdateConversationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Subject, validation.NilOrNotEmpty),
		validation.Field(&r.Prompt, validation.NilOrNotEmpty),
		validation.Field(&r.ParentID, validation.Min(int64(1))),
	)
}

// RelinkRequest replaces all links of a conversation.
type RelinkRequest struct {
	Targets []int64 `json:"targets"`
}

// ConversationDetail is a conversation together with its graph context.
type ConversationDetail struct {
	models.Conversation
	LinkedIDs []int64 `json:"linked_ids"`
	Path      []int64 `json:"path"`
}

// RelinkResponse reports the applied relink and any skipped targets.
type RelinkResponse struct {
	Skipped []SkippedTarget `json:"skipped"`
}

// SkippedTarget mirrors treeservice.SkippedTarget for the wire.
type SkippedTarget struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

func toSkipped(in []treeservice.SkippedTarget) []SkippedTarget {
	out := make([]SkippedTarget, len(in))
	for i, s := range in {
		out[i] = SkippedTarget{ID: s.ID, Reason: s.Reason}
	}
	return out
}
