package treeservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/promptree/promptree/internal/apperr"
	"github.com/promptree/promptree/internal/llm"
	"github.com/promptree/promptree/internal/models"
)

// Ask records a new exchange: it builds the ancestor context, sends the
// prompt to the generation backend, asks for a subject line, and persists
// the finished conversation. If either backend call fails, nothing is
// persisted and the call can be retried.
func (s *Service) Ask(ctx context.Context, prompt string, parentID *int64, stream llm.StreamFunc) (*models.Conversation, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("empty prompt: %w", apperr.ErrValidation)
	}

	var history string
	if parentID != nil {
		if err := validID(*parentID); err != nil {
			return nil, err
		}
		if _, err := s.store.GetConversation(*parentID); err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
		h, err := s.ContextHistory(*parentID)
		if err != nil {
			return nil, err
		}
		history = h
	}

	promptedAt := time.Now()

	response, err := s.gen.Generate(ctx, prompt, history, stream)
	if err != nil {
		return nil, err
	}
	respondedAt := time.Now()

	subject, err := s.gen.Subject(ctx, prompt, response)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.store.CreateConversation(models.Draft{
		Subject:     subject,
		ModelName:   s.gen.ModelName(),
		UserPrompt:  prompt,
		LLMResponse: &response,
		ParentID:    parentID,
		PromptedAt:  promptedAt,
		RespondedAt: &respondedAt,
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetConversation(id)
}

// Summarize streams a bullet-point summary of one recorded exchange.
// Nothing is persisted.
func (s *Service) Summarize(ctx context.Context, id int64, stream llm.StreamFunc) (string, error) {
	c, err := s.Get(id)
	if err != nil {
		return "", err
	}

	var parts []string
	if c.UserPrompt != "" {
		parts = append(parts, "User Prompt: "+c.UserPrompt)
	}
	if c.LLMResponse != nil {
		parts = append(parts, "LLM Response: "+*c.LLMResponse)
	}
	if len(parts) == 0 {
		return "", nil
	}

	summaryPrompt := "Please summarize the following conversation in bullet points:\n\n" + strings.Join(parts, "\n\n")
	return s.gen.Generate(ctx, summaryPrompt, "", stream)
}

// ContextHistory formats the root-to-id chain as the context block handed
// to the generation backend for follow-up exchanges.
func (s *Service) ContextHistory(id int64) (string, error) {
	chain, err := s.Chain(id)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, c := range chain {
		fmt.Fprintf(&sb, "Subject: %s\n", c.Subject)
		fmt.Fprintf(&sb, "User Prompt (at %s): %s\n", c.PromptedAt.Format(time.RFC3339), c.UserPrompt)
		if c.LLMResponse != nil {
			at := ""
			if c.RespondedAt != nil {
				at = c.RespondedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(&sb, "LLM Response (at %s): %s\n", at, *c.LLMResponse)
		}
		sb.WriteString("---\n")
	}
	return strings.TrimSuffix(sb.String(), "\n"), nil
}
