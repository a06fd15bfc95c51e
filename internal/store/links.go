package store

import (
	"fmt"

	"github.com/promptree/promptree/internal/apperr"
	"github.com/promptree/promptree/internal/models"
)

// AddLink stores a link between two conversations. The pair is unordered:
// a second link in either orientation fails with apperr.ErrDuplicateLink,
// and a == b fails with apperr.ErrSelfLink. Endpoint existence is the
// treeservice's concern.
func (db *DB) AddLink(a, b int64) error {
	if a == b {
		return fmt.Errorf("conversation %d: %w", a, apperr.ErrSelfLink)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var n int
	err = tx.QueryRow(`
		SELECT count(*) FROM conversation_links
		WHERE (a = ? AND b = ?) OR (a = ? AND b = ?)
	`, a, b, b, a).Scan(&n)
	if err != nil {
		return fmt.Errorf("store: check link %d-%d: %w", a, b, err)
	}
	if n > 0 {
		return fmt.Errorf("conversations %d and %d: %w", a, b, apperr.ErrDuplicateLink)
	}

	if _, err := tx.Exec(`INSERT INTO conversation_links (a, b) VALUES (?, ?)`, a, b); err != nil {
		return fmt.Errorf("store: add link %d-%d: %w", a, b, err)
	}
	return tx.Commit()
}

// RemoveLink deletes the edge stored in exactly this orientation. Removing
// an edge that does not exist is a no-op, so callers unsure of the stored
// orientation simply remove both directions.
func (db *DB) RemoveLink(a, b int64) error {
	if _, err := db.conn.Exec(`DELETE FROM conversation_links WHERE a = ? AND b = ?`, a, b); err != nil {
		return fmt.Errorf("store: remove link %d-%d: %w", a, b, err)
	}
	return nil
}

// RemoveAllLinks deletes every link touching the conversation, in both
// orientations.
func (db *DB) RemoveAllLinks(id int64) error {
	if _, err := db.conn.Exec(`DELETE FROM conversation_links WHERE a = ? OR b = ?`, id, id); err != nil {
		return fmt.Errorf("store: remove links of %d: %w", id, err)
	}
	return nil
}

// LinkedConversations returns every conversation linked to id, regardless
// of stored orientation, ordered by id for stable presentation.
func (db *DB) LinkedConversations(id int64) ([]*models.Conversation, error) {
	return db.queryConversations(`
		SELECT `+conversationCols+`
		FROM conversations c
		WHERE c.id IN (
			SELECT CASE WHEN l.a = ? THEN l.b ELSE l.a END
			FROM conversation_links l
			WHERE l.a = ? OR l.b = ?
		)
		ORDER BY c.id ASC
	`, id, id, id)
}

// LinkedIDs is the cheaper variant of LinkedConversations returning only ids.
func (db *DB) LinkedIDs(id int64) (map[int64]struct{}, error) {
	rows, err := db.conn.Query(`
		SELECT CASE WHEN a = ? THEN b ELSE a END
		FROM conversation_links
		WHERE a = ? OR b = ?
	`, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("store: linked ids of %d: %w", id, err)
	}
	defer rows.Close()

	out := make(map[int64]struct{})
	for rows.Next() {
		var linked int64
		if err := rows.Scan(&linked); err != nil {
			return nil, err
		}
		out[linked] = struct{}{}
	}
	return out, rows.Err()
}
