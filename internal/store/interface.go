package store

import "github.com/promptree/promptree/internal/models"

// Store defines the persistence operations the rest of the application
// depends on. Consumers should depend on this interface rather than the
// concrete *DB type to facilitate testing with mocks.
type Store interface {
	CreateConversation(d models.Draft) (int64, error)
	GetConversation(id int64) (*models.Conversation, error)
	UpdateSubject(id int64, subject string) error
	UpdateParent(id int64, parentID *int64) error
	UpdatePrompt(id int64, prompt string) error
	UpdateResponse(id int64, response *string) error
	DeleteSubtree(id int64) error
	ListRoots() ([]*models.Conversation, error)
	ListChildren(parentID int64) ([]*models.Conversation, error)
	ListDescendants(id int64) ([]*models.Conversation, error)
	Search(pattern string) ([]*models.Conversation, error)
	AddLink(a, b int64) error
	RemoveLink(a, b int64) error
	RemoveAllLinks(id int64) error
	LinkedConversations(id int64) ([]*models.Conversation, error)
	LinkedIDs(id int64) (map[int64]struct{}, error)
	CountConversations() (int, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
