package treeservice

import (
	"errors"
	"fmt"

	"github.com/promptree/promptree/internal/apperr"
)

// Link associates two conversations. Both endpoints must resolve, which
// gives a node-aware not-found error rather than the store's generic
// conflict when the real problem is a missing conversation.
func (s *Service) Link(a, b int64) error {
	if err := validID(a); err != nil {
		return err
	}
	if err := validID(b); err != nil {
		return err
	}
	if a == b {
		return fmt.Errorf("conversation %d: %w", a, apperr.ErrSelfLink)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetConversation(a); err != nil {
		return err
	}
	if _, err := s.store.GetConversation(b); err != nil {
		return err
	}
	return s.store.AddLink(a, b)
}

// Unlink removes the link between two conversations. The stored orientation
// is unknown to the caller, so both directions are cleared; a missing edge
// is a no-op.
func (s *Service) Unlink(a, b int64) error {
	if err := validID(a); err != nil {
		return err
	}
	if err := validID(b); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.RemoveLink(a, b); err != nil {
		return err
	}
	return s.store.RemoveLink(b, a)
}

// SkippedTarget reports one relink target that could not be applied.
type SkippedTarget struct {
	ID     int64
	Reason string
}

// Relink replaces all links of a conversation with a new set: every
// existing link is removed, then each target is added. Targets that equal
// the conversation itself or do not resolve are skipped with a reported
// warning; a failure on one target never aborts the rest of the batch.
func (s *Service) Relink(id int64, targets []int64) ([]SkippedTarget, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetConversation(id); err != nil {
		return nil, err
	}
	if err := s.store.RemoveAllLinks(id); err != nil {
		return nil, err
	}

	var skipped []SkippedTarget
	for _, target := range targets {
		if target == id {
			skipped = append(skipped, SkippedTarget{ID: target, Reason: "cannot link a conversation to itself"})
			continue
		}
		if _, err := s.store.GetConversation(target); err != nil {
			skipped = append(skipped, SkippedTarget{ID: target, Reason: fmt.Sprintf("conversation %d not found", target)})
			continue
		}
		if err := s.store.AddLink(id, target); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				// Duplicate target in the batch.
				skipped = append(skipped, SkippedTarget{ID: target, Reason: "already linked"})
				continue
			}
			return skipped, err
		}
	}
	return skipped, nil
}
