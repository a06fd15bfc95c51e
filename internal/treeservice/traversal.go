package treeservice

import (
	"fmt"

	"github.com/promptree/promptree/internal/models"
)

// BuildTree materializes the subtree rooted at rootID, depth-first,
// preserving each level's child ordering. It is a pure read projection.
//
// The parent relation should be a forest, but the traversal tracks visited
// ids anyway so it terminates even over data corrupted out-of-band; a
// conversation reached twice is kept only at its first position.
func (s *Service) BuildTree(rootID int64) (*models.Tree, error) {
	if err := validID(rootID); err != nil {
		return nil, err
	}
	root, err := s.store.GetConversation(rootID)
	if err != nil {
		return nil, err
	}

	visited := map[int64]struct{}{root.ID: {}}
	tree := &models.Tree{Conversation: *root, Children: []*models.Tree{}}

	// Explicit worklist instead of recursion; depth-first by pushing each
	// node's children in reverse.
	stack := []*models.Tree{tree}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := s.store.ListChildren(node.ID)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if _, seen := visited[child.ID]; seen {
				continue
			}
			visited[child.ID] = struct{}{}
			node.Children = append(node.Children, &models.Tree{
				Conversation: *child,
				Children:     []*models.Tree{},
			})
		}
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}
	return tree, nil
}

// PathToRoot returns the ancestor chain of a conversation as ids ordered
// root-first, ending with the conversation itself. Iteration is bounded by
// the total conversation count; exceeding it means the parent relation has
// a cycle the invariants should have prevented, and the call fails loudly
// instead of looping forever.
func (s *Service) PathToRoot(id int64) ([]int64, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	bound, err := s.store.CountConversations()
	if err != nil {
		return nil, err
	}

	var reversed []int64
	current := &id
	for steps := 0; current != nil; steps++ {
		if steps > bound {
			return nil, fmt.Errorf("treeservice: parent chain of %d exceeds %d conversations, store is corrupted", id, bound)
		}
		c, err := s.store.GetConversation(*current)
		if err != nil {
			return nil, err
		}
		reversed = append(reversed, c.ID)
		current = c.ParentID
	}

	path := make([]int64, len(reversed))
	for i, v := range reversed {
		path[len(reversed)-1-i] = v
	}
	return path, nil
}

// Chain returns the full conversations along PathToRoot, root-first.
func (s *Service) Chain(id int64) ([]*models.Conversation, error) {
	ids, err := s.PathToRoot(id)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Conversation, 0, len(ids))
	for _, cid := range ids {
		c, err := s.store.GetConversation(cid)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
