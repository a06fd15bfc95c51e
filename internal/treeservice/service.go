// Package treeservice implements the invariant-preserving operations over
// the conversation store: cycle-checked reparenting, tree materialization,
// ancestor chains, cascading deletes, and link mutation. It holds no state
// of its own beyond a mutation lock; every call re-reads from the store.
package treeservice

import (
	"fmt"
	"sync"

	"github.com/promptree/promptree/internal/apperr"
	"github.com/promptree/promptree/internal/llm"
	"github.com/promptree/promptree/internal/models"
	"github.com/promptree/promptree/internal/store"
)

// Service coordinates store and generation backend operations.
type Service struct {
	store store.Store
	gen   llm.Generator

	// Invariant checks are check-then-act; one mutation at a time keeps
	// them sound when the REPL, HTTP API, and MCP server are alive together.
	mu sync.Mutex
}

// NewService creates a new tree service.
func NewService(st store.Store, gen llm.Generator) *Service {
	return &Service{store: st, gen: gen}
}

// Get returns one conversation by id.
func (s *Service) Get(id int64) (*models.Conversation, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	return s.store.GetConversation(id)
}

// Roots lists all root conversations, alphabetically by subject.
func (s *Service) Roots() ([]*models.Conversation, error) {
	return s.store.ListRoots()
}

// Search returns conversations matching the pattern, most recent first.
func (s *Service) Search(pattern string) ([]*models.Conversation, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty search pattern: %w", apperr.ErrValidation)
	}
	return s.store.Search(pattern)
}

// Linked returns all conversations linked to id, from either orientation.
func (s *Service) Linked(id int64) ([]*models.Conversation, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.store.LinkedConversations(id)
}

// SetSubject replaces a conversation's subject.
func (s *Service) SetSubject(id int64, subject string) error {
	if err := validID(id); err != nil {
		return err
	}
	if subject == "" {
		return fmt.Errorf("empty subject: %w", apperr.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.UpdateSubject(id, subject)
}

// SetPrompt replaces a conversation's prompt text.
func (s *Service) SetPrompt(id int64, prompt string) error {
	if err := validID(id); err != nil {
		return err
	}
	if prompt == "" {
		return fmt.Errorf("empty prompt: %w", apperr.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.UpdatePrompt(id, prompt)
}

// SetResponse replaces a conversation's response text; nil clears it.
func (s *Service) SetResponse(id int64, response *string) error {
	if err := validID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.UpdateResponse(id, response)
}

// WouldCycle reports whether reparenting id under candidateParent would make
// the conversation its own ancestor: true iff the candidate is the node
// itself or one of its transitive descendants.
func (s *Service) WouldCycle(id, candidateParent int64) (bool, error) {
	if id == candidateParent {
		return true, nil
	}
	descendants, err := s.store.ListDescendants(id)
	if err != nil {
		return false, err
	}
	for _, d := range descendants {
		if d.ID == candidateParent {
			return true, nil
		}
	}
	return false, nil
}

// SetParent reparents a conversation. A nil parent makes it a root and is
// always cycle-free; a non-nil parent must exist and must not be the node
// itself or any of its descendants.
func (s *Service) SetParent(id int64, parentID *int64) error {
	if err := validID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetConversation(id); err != nil {
		return err
	}
	if parentID != nil {
		if err := validID(*parentID); err != nil {
			return err
		}
		if _, err := s.store.GetConversation(*parentID); err != nil {
			return fmt.Errorf("parent: %w", err)
		}
		cycle, err := s.WouldCycle(id, *parentID)
		if err != nil {
			return err
		}
		if cycle {
			return fmt.Errorf("conversation %d cannot become a child of %d: %w", id, *parentID, apperr.ErrCycle)
		}
	}
	return s.store.UpdateParent(id, parentID)
}

// Delete removes a conversation, its entire descendant subtree, and every
// link touching any removed conversation, as one atomic unit. Deletion is
// terminal and not reversible.
func (s *Service) Delete(id int64) error {
	if err := validID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DeleteSubtree(id)
}

func validID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("id %d must be positive: %w", id, apperr.ErrValidation)
	}
	return nil
}
