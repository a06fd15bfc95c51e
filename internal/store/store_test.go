package store

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/promptree/promptree/internal/apperr"
	"github.com/promptree/promptree/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "promptree-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreate(t *testing.T, db *DB, subject string, parentID *int64) int64 {
	t.Helper()
	resp := "response to " + subject
	now := time.Now().UTC()
	id, err := db.CreateConversation(models.Draft{
		Subject:     subject,
		ModelName:   "test-model",
		UserPrompt:  "prompt for " + subject,
		LLMResponse: &resp,
		ParentID:    parentID,
		PromptedAt:  now,
		RespondedAt: &now,
	})
	if err != nil {
		t.Fatalf("CreateConversation(%s): %v", subject, err)
	}
	return id
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM conversations`).Scan(&count); err != nil {
		t.Fatalf("conversations table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM conversation_links`).Scan(&count); err != nil {
		t.Fatalf("conversation_links table missing: %v", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	db := testDB(t)
	id := mustCreate(t, db, "First question", nil)

	c, err := db.GetConversation(id)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if c.ID != id {
		t.Errorf("id = %d, want %d", c.ID, id)
	}
	if c.Subject != "First question" {
		t.Errorf("subject = %q", c.Subject)
	}
	if c.ModelName != "test-model" {
		t.Errorf("model = %q", c.ModelName)
	}
	if !c.Root() {
		t.Error("expected root conversation")
	}
	if c.Response() != "response to First question" {
		t.Errorf("response = %q", c.Response())
	}
}

func TestGetMissing(t *testing.T) {
	db := testDB(t)
	_, err := db.GetConversation(999)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateWithoutResponse(t *testing.T) {
	db := testDB(t)
	id, err := db.CreateConversation(models.Draft{
		Subject:    "Pending",
		ModelName:  "test-model",
		UserPrompt: "still waiting",
		PromptedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	c, err := db.GetConversation(id)
	if err != nil {
		t.Fatal(err)
	}
	if c.LLMResponse != nil {
		t.Errorf("response = %v, want nil", *c.LLMResponse)
	}
	if c.RespondedAt != nil {
		t.Errorf("responded_at = %v, want nil", *c.RespondedAt)
	}
}

func TestUpdateFields(t *testing.T) {
	db := testDB(t)
	id := mustCreate(t, db, "Before", nil)

	if err := db.UpdateSubject(id, "After"); err != nil {
		t.Fatalf("UpdateSubject: %v", err)
	}
	if err := db.UpdatePrompt(id, "new prompt"); err != nil {
		t.Fatalf("UpdatePrompt: %v", err)
	}
	newResp := "new response"
	if err := db.UpdateResponse(id, &newResp); err != nil {
		t.Fatalf("UpdateResponse: %v", err)
	}

	c, _ := db.GetConversation(id)
	if c.Subject != "After" || c.UserPrompt != "new prompt" || c.Response() != "new response" {
		t.Errorf("after updates: %+v", c)
	}
}

func TestUpdateMissingConversation(t *testing.T) {
	db := testDB(t)
	if err := db.UpdateSubject(42, "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("UpdateSubject err = %v, want ErrNotFound", err)
	}
	if err := db.UpdateParent(42, nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("UpdateParent err = %v, want ErrNotFound", err)
	}
	if err := db.UpdatePrompt(42, "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("UpdatePrompt err = %v, want ErrNotFound", err)
	}
}

func TestUpdateParentAndClear(t *testing.T) {
	db := testDB(t)
	rootID := mustCreate(t, db, "Root", nil)
	childID := mustCreate(t, db, "Child", nil)

	if err := db.UpdateParent(childID, &rootID); err != nil {
		t.Fatalf("UpdateParent: %v", err)
	}
	c, _ := db.GetConversation(childID)
	if c.ParentID == nil || *c.ParentID != rootID {
		t.Fatalf("parent = %v, want %d", c.ParentID, rootID)
	}

	if err := db.UpdateParent(childID, nil); err != nil {
		t.Fatalf("UpdateParent(nil): %v", err)
	}
	c, _ = db.GetConversation(childID)
	if c.ParentID != nil {
		t.Errorf("parent = %d, want nil", *c.ParentID)
	}
}

func TestListRootsOrdering(t *testing.T) {
	db := testDB(t)
	mustCreate(t, db, "zebra", nil)
	mustCreate(t, db, "Apple", nil)
	rootID := mustCreate(t, db, "mango", nil)
	mustCreate(t, db, "child of mango", &rootID)

	roots, err := db.ListRoots()
	if err != nil {
		t.Fatalf("ListRoots: %v", err)
	}
	if len(roots) != 3 {
		t.Fatalf("got %d roots, want 3", len(roots))
	}
	// Case-insensitive alphabetical by subject.
	want := []string{"Apple", "mango", "zebra"}
	for i, c := range roots {
		if c.Subject != want[i] {
			t.Errorf("roots[%d] = %q, want %q", i, c.Subject, want[i])
		}
	}
}

func TestListChildrenOrdering(t *testing.T) {
	db := testDB(t)
	rootID := mustCreate(t, db, "Root", nil)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []int64
	for i, subj := range []string{"first", "second", "third"} {
		id, err := db.CreateConversation(models.Draft{
			Subject:    subj,
			ModelName:  "test-model",
			UserPrompt: "p",
			ParentID:   &rootID,
			PromptedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	children, err := db.ListChildren(rootID)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(children) != 3 {
		t.Fatalf("got %d children, want 3", len(children))
	}
	for i, c := range children {
		if c.ID != ids[i] {
			t.Errorf("children[%d].ID = %d, want %d", i, c.ID, ids[i])
		}
	}
}

func TestListDescendants(t *testing.T) {
	db := testDB(t)
	rootID := mustCreate(t, db, "Root", nil)
	childID := mustCreate(t, db, "Child", &rootID)
	grandID := mustCreate(t, db, "Grandchild", &childID)
	mustCreate(t, db, "Other root", nil)

	descs, err := db.ListDescendants(rootID)
	if err != nil {
		t.Fatalf("ListDescendants: %v", err)
	}
	got := map[int64]bool{}
	for _, d := range descs {
		got[d.ID] = true
	}
	if len(descs) != 2 || !got[childID] || !got[grandID] {
		t.Errorf("descendants = %v, want {%d, %d}", got, childID, grandID)
	}
}

func TestDeleteSubtreeCascades(t *testing.T) {
	db := testDB(t)
	rootID := mustCreate(t, db, "Root", nil)
	childID := mustCreate(t, db, "Child", &rootID)
	grandID := mustCreate(t, db, "Grandchild", &childID)
	outsideID := mustCreate(t, db, "Outside", nil)

	// Links into and out of the doomed subtree must disappear with it.
	if err := db.AddLink(grandID, outsideID); err != nil {
		t.Fatal(err)
	}
	if err := db.AddLink(outsideID, childID); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteSubtree(rootID); err != nil {
		t.Fatalf("DeleteSubtree: %v", err)
	}

	for _, id := range []int64{rootID, childID, grandID} {
		if _, err := db.GetConversation(id); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("conversation %d survived the cascade", id)
		}
	}
	if _, err := db.GetConversation(outsideID); err != nil {
		t.Errorf("outside conversation deleted: %v", err)
	}
	linked, err := db.LinkedConversations(outsideID)
	if err != nil {
		t.Fatal(err)
	}
	if len(linked) != 0 {
		t.Errorf("dangling links remain: %v", linked)
	}
}

func TestDeleteSubtreeMissing(t *testing.T) {
	db := testDB(t)
	if err := db.DeleteSubtree(7); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchSubstringDefault(t *testing.T) {
	db := testDB(t)
	mustCreate(t, db, "Docker networking", nil)
	mustCreate(t, db, "Kubernetes basics", nil)

	results, err := db.Search("docker")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Subject != "Docker networking" {
		t.Errorf("results = %v", results)
	}
}

func TestSearchWildcard(t *testing.T) {
	db := testDB(t)
	mustCreate(t, db, "Docker networking", nil)
	mustCreate(t, db, "Advanced Docker", nil)

	// Explicit wildcards anchor the pattern.
	results, err := db.Search("docker*")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Subject != "Docker networking" {
		t.Errorf("anchored results = %v", results)
	}

	results, err = db.Search("*docker*")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestSearchMatchesPromptAndResponse(t *testing.T) {
	db := testDB(t)
	resp := "try the restic tool"
	id, err := db.CreateConversation(models.Draft{
		Subject:     "Backups",
		ModelName:   "test-model",
		UserPrompt:  "how do I back up my laptop",
		LLMResponse: &resp,
		PromptedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, q := range []string{"laptop", "restic", "backups"} {
		results, err := db.Search(q)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if len(results) != 1 || results[0].ID != id {
			t.Errorf("Search(%q) = %v", q, results)
		}
	}
}

func TestSearchEscapesLikeMetachars(t *testing.T) {
	db := testDB(t)
	mustCreate(t, db, "Progress is 100% done", nil)
	mustCreate(t, db, "Progress report", nil)

	results, err := db.Search("100%")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Subject != "Progress is 100% done" {
		t.Errorf("results = %v", results)
	}
}

func TestCountConversations(t *testing.T) {
	db := testDB(t)
	if n, _ := db.CountConversations(); n != 0 {
		t.Fatalf("count = %d, want 0", n)
	}
	mustCreate(t, db, "One", nil)
	mustCreate(t, db, "Two", nil)
	if n, err := db.CountConversations(); err != nil || n != 2 {
		t.Errorf("count = %d (err %v), want 2", n, err)
	}
}
