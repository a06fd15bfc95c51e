package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/promptree/promptree/internal/apperr"
	"github.com/promptree/promptree/internal/models"
)

const conversationCols = `id, subject, model_name, user_prompt, llm_response, parent_id, prompted_at, responded_at`

// CreateConversation inserts a new conversation and returns its fresh id.
// The parent id, if set, is not validated here; the treeservice checks
// existence before calling.
func (db *DB) CreateConversation(d models.Draft) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO conversations (subject, model_name, user_prompt, llm_response, parent_id, prompted_at, responded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.Subject, d.ModelName, d.UserPrompt, d.LLMResponse, d.ParentID, d.PromptedAt, d.RespondedAt)
	if err != nil {
		return 0, fmt.Errorf("store: create conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: last insert id: %w", err)
	}
	return id, nil
}

// GetConversation returns one conversation by id, or apperr.ErrNotFound.
func (db *DB) GetConversation(id int64) (*models.Conversation, error) {
	row := db.conn.QueryRow(`SELECT `+conversationCols+` FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conversation %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get conversation %d: %w", id, err)
	}
	return c, nil
}

// UpdateSubject replaces the subject of one conversation.
// An absent id fails with apperr.ErrNotFound, as do all mutators.
func (db *DB) UpdateSubject(id int64, subject string) error {
	return db.updateField(id, `UPDATE conversations SET subject = ? WHERE id = ?`, subject)
}

// UpdateParent replaces the parent of one conversation; nil makes it a root.
// Cycle checking is the caller's responsibility.
func (db *DB) UpdateParent(id int64, parentID *int64) error {
	return db.updateField(id, `UPDATE conversations SET parent_id = ? WHERE id = ?`, parentID)
}

// UpdatePrompt replaces the user prompt text of one conversation.
func (db *DB) UpdatePrompt(id int64, prompt string) error {
	return db.updateField(id, `UPDATE conversations SET user_prompt = ? WHERE id = ?`, prompt)
}

// UpdateResponse replaces the response text of one conversation.
func (db *DB) UpdateResponse(id int64, response *string) error {
	return db.updateField(id, `UPDATE conversations SET llm_response = ? WHERE id = ?`, response)
}

func (db *DB) updateField(id int64, query string, value any) error {
	res, err := db.conn.Exec(query, value, id)
	if err != nil {
		return fmt.Errorf("store: update conversation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("conversation %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// DeleteSubtree deletes the conversation, every transitive descendant, and
// all links touching any of them, in one transaction.
func (db *DB) DeleteSubtree(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var exists int
	if err := tx.QueryRow(`SELECT count(*) FROM conversations WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("store: delete subtree %d: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("conversation %d: %w", id, apperr.ErrNotFound)
	}

	const subtree = `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM conversations WHERE id = ?
			UNION ALL
			SELECT c.id FROM conversations c JOIN subtree s ON c.parent_id = s.id
		)`

	// Links first so no dangling rows survive a partial failure.
	if _, err := tx.Exec(subtree+`
		DELETE FROM conversation_links
		WHERE a IN (SELECT id FROM subtree) OR b IN (SELECT id FROM subtree)
	`, id); err != nil {
		return fmt.Errorf("store: delete subtree links %d: %w", id, err)
	}

	if _, err := tx.Exec(subtree+`
		DELETE FROM conversations WHERE id IN (SELECT id FROM subtree)
	`, id); err != nil {
		return fmt.Errorf("store: delete subtree %d: %w", id, err)
	}

	return tx.Commit()
}

// ListRoots returns all conversations without a parent, ordered
// alphabetically by subject (case-insensitive). This is the one root
// ordering the tool uses everywhere.
func (db *DB) ListRoots() ([]*models.Conversation, error) {
	return db.queryConversations(`
		SELECT `+conversationCols+`
		FROM conversations
		WHERE parent_id IS NULL
		ORDER BY subject COLLATE NOCASE ASC, id ASC
	`)
}

// ListChildren returns the direct children of a conversation, earliest
// exchange first; equal timestamps fall back to insertion order.
func (db *DB) ListChildren(parentID int64) ([]*models.Conversation, error) {
	return db.queryConversations(`
		SELECT `+conversationCols+`
		FROM conversations
		WHERE parent_id = ?
		ORDER BY prompted_at ASC, id ASC
	`, parentID)
}

// ListDescendants returns every transitive child of a conversation.
// The result carries no ordering guarantee.
func (db *DB) ListDescendants(id int64) ([]*models.Conversation, error) {
	return db.queryConversations(`
		WITH RECURSIVE descendants(id, subject, model_name, user_prompt, llm_response, parent_id, prompted_at, responded_at) AS (
			SELECT `+conversationCols+` FROM conversations WHERE parent_id = ?
			UNION ALL
			SELECT c.id, c.subject, c.model_name, c.user_prompt, c.llm_response, c.parent_id, c.prompted_at, c.responded_at
			FROM conversations c JOIN descendants d ON c.parent_id = d.id
		)
		SELECT `+conversationCols+` FROM descendants
	`, id)
}

// Search returns conversations whose subject, prompt, or response matches
// the pattern, case-insensitively, most recent first. A '*' in the pattern
// matches any run of characters; a pattern without '*' matches as a
// substring anywhere in the field.
func (db *DB) Search(pattern string) ([]*models.Conversation, error) {
	like := likePattern(pattern)
	return db.queryConversations(`
		SELECT `+conversationCols+`
		FROM conversations
		WHERE LOWER(subject) LIKE ? ESCAPE '\'
		   OR LOWER(user_prompt) LIKE ? ESCAPE '\'
		   OR (llm_response IS NOT NULL AND LOWER(llm_response) LIKE ? ESCAPE '\')
		ORDER BY prompted_at DESC, id DESC
	`, like, like, like)
}

// likePattern translates the user-facing wildcard syntax into a SQL LIKE
// pattern: literal %, _ and \ are escaped, '*' becomes '%', and a pattern
// with no wildcard is wrapped for substring matching.
func likePattern(pattern string) string {
	p := strings.ToLower(pattern)
	p = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(p)
	if strings.Contains(p, "*") {
		return strings.ReplaceAll(p, "*", "%")
	}
	return "%" + p + "%"
}

func (db *DB) queryConversations(query string, args ...any) ([]*models.Conversation, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query conversations: %w", err)
	}
	defer rows.Close()

	var out []*models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var (
		c           models.Conversation
		response    sql.NullString
		parentID    sql.NullInt64
		respondedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.Subject, &c.ModelName, &c.UserPrompt, &response, &parentID, &c.PromptedAt, &respondedAt)
	if err != nil {
		return nil, err
	}
	if response.Valid {
		c.LLMResponse = &response.String
	}
	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	if respondedAt.Valid {
		c.RespondedAt = &respondedAt.Time
	}
	return &c, nil
}
