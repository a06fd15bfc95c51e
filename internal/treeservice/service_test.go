package treeservice

import (
	"errors"
	"testing"
	"time"

	"github.com/promptree/promptree/internal/apperr"
	"github.com/promptree/promptree/internal/models"
	"github.com/promptree/promptree/internal/store"
	"github.com/promptree/promptree/internal/testutil"
)

func testService(t *testing.T) (*Service, *store.DB, *testutil.FakeGenerator) {
	t.Helper()
	db := testutil.TestDB(t)
	gen := testutil.NewFakeGenerator("a scripted response", "A scripted subject")
	return NewService(db, gen), db, gen
}

func mustCreate(t *testing.T, db *store.DB, subject string, parentID *int64) int64 {
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

func TestGetInvalidID(t *testing.T) {
	svc, _, _ := testService(t)
	for _, id := range []int64{0, -1} {
		if _, err := svc.Get(id); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Get(%d) err = %v, want ErrValidation", id, err)
		}
	}
}

func TestSearchEmptyPattern(t *testing.T) {
	svc, _, _ := testService(t)
	if _, err := svc.Search(""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestSetSubjectValidation(t *testing.T) {
	svc, db, _ := testService(t)
	id := mustCreate(t, db, "Subject", nil)

	if err := svc.SetSubject(id, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty subject err = %v, want ErrValidation", err)
	}
	if err := svc.SetSubject(id, "Renamed"); err != nil {
		t.Fatalf("SetSubject: %v", err)
	}
	c, _ := svc.Get(id)
	if c.Subject != "Renamed" {
		t.Errorf("subject = %q", c.Subject)
	}
}

func TestWouldCycle(t *testing.T) {
	svc, db, _ := testService(t)
	rootID := mustCreate(t, db, "Root", nil)
	childID := mustCreate(t, db, "Child", &rootID)
	grandID := mustCreate(t, db, "Grandchild", &childID)
	otherID := mustCreate(t, db, "Other", nil)

	cases := []struct {
		name      string
		id, cand  int64
		wantCycle bool
	}{
		{"self", rootID, rootID, true},
		{"direct child", rootID, childID, true},
		{"transitive descendant", rootID, grandID, true},
		{"unrelated", rootID, otherID, false},
		{"child under other root", childID, otherID, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.WouldCycle(tc.id, tc.cand)
			if err != nil {
				t.Fatalf("WouldCycle: %v", err)
			}
			if got != tc.wantCycle {
				t.Errorf("WouldCycle(%d, %d) = %v, want %v", tc.id, tc.cand, got, tc.wantCycle)
			}
		})
	}
}

func TestSetParentRejectsCycle(t *testing.T) {
	svc, db, _ := testService(t)
	rootID := mustCreate(t, db, "Root", nil)
	c1 := mustCreate(t, db, "C1", &rootID)
	c2 := mustCreate(t, db, "C2", &c1)

	// Moving the root under its own grandchild must fail.
	if err := svc.SetParent(rootID, &c2); !errors.Is(err, apperr.ErrCycle) {
		t.Errorf("err = %v, want ErrCycle", err)
	}
	// The tree is untouched after the rejection.
	r, _ := svc.Get(rootID)
	if r.ParentID != nil {
		t.Errorf("root gained a parent: %d", *r.ParentID)
	}

	// Flattening C2 directly under the root is legal.
	if err := svc.SetParent(c2, &rootID); err != nil {
		t.Fatalf("SetParent: %v", err)
	}
	c, _ := svc.Get(c2)
	if c.ParentID == nil || *c.ParentID != rootID {
		t.Errorf("parent = %v, want %d", c.ParentID, rootID)
	}
}

func TestSetParentNilAlwaysAllowed(t *testing.T) {
	svc, db, _ := testService(t)
	rootID := mustCreate(t, db, "Root", nil)
	childID := mustCreate(t, db, "Child", &rootID)

	if err := svc.SetParent(childID, nil); err != nil {
		t.Fatalf("SetParent(nil): %v", err)
	}
	c, _ := svc.Get(childID)
	if c.ParentID != nil {
		t.Errorf("parent = %d, want nil", *c.ParentID)
	}
}

func TestSetParentMissing(t *testing.T) {
	svc, db, _ := testService(t)
	id := mustCreate(t, db, "Root", nil)
	missing := int64(999)

	if err := svc.SetParent(missing, &id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing child err = %v, want ErrNotFound", err)
	}
	if err := svc.SetParent(id, &missing); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing parent err = %v, want ErrNotFound", err)
	}
}

func TestPathToRoot(t *testing.T) {
	svc, db, _ := testService(t)
	rootID := mustCreate(t, db, "Root", nil)
	childID := mustCreate(t, db, "Child", &rootID)
	grandID := mustCreate(t, db, "Grandchild", &childID)

	path, err := svc.PathToRoot(grandID)
	if err != nil {
		t.Fatalf("PathToRoot: %v", err)
	}
	want := []int64{rootID, childID, grandID}
	if len(path) != len(want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Errorf("path[%d] = %d, want %d", i, path[i], want[i])
		}
	}

	// A root's path is just itself.
	path, err = svc.PathToRoot(rootID)
	if err != nil {
		t.Fatal(err)
	}
	if len(path) != 1 || path[0] != rootID {
		t.Errorf("root path = %v", path)
	}
}

func TestBuildTree(t *testing.T) {
	svc, db, _ := testService(t)
	rootID := mustCreate(t, db, "Root", nil)
	c1 := mustCreate(t, db, "C1", &rootID)
	c2 := mustCreate(t, db, "C2", &rootID)
	g1 := mustCreate(t, db, "G1", &c1)

	tree, err := svc.BuildTree(rootID)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if tree.ID != rootID {
		t.Fatalf("tree root = %d, want %d", tree.ID, rootID)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(tree.Children))
	}
	if tree.Children[0].ID != c1 || tree.Children[1].ID != c2 {
		t.Errorf("children = [%d, %d], want [%d, %d]",
			tree.Children[0].ID, tree.Children[1].ID, c1, c2)
	}
	if len(tree.Children[0].Children) != 1 || tree.Children[0].Children[0].ID != g1 {
		t.Errorf("grandchildren = %v", tree.Children[0].Children)
	}
	if len(tree.Children[1].Children) != 0 {
		t.Errorf("leaf has children: %v", tree.Children[1].Children)
	}
}

func TestBuildTreeOfLeaf(t *testing.T) {
	svc, db, _ := testService(t)
	rootID := mustCreate(t, db, "Root", nil)
	childID := mustCreate(t, db, "Child", &rootID)

	tree, err := svc.BuildTree(childID)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if tree.ID != childID || len(tree.Children) != 0 {
		t.Errorf("tree = %+v", tree)
	}
}

func TestDeleteCascades(t *testing.T) {
	svc, db, _ := testService(t)
	rootID := mustCreate(t, db, "Root", nil)
	childID := mustCreate(t, db, "Child", &rootID)
	outsideID := mustCreate(t, db, "Outside", nil)
	if err := svc.Link(childID, outsideID); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(rootID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(childID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("descendant survived: %v", err)
	}
	linked, err := svc.Linked(outsideID)
	if err != nil {
		t.Fatal(err)
	}
	if len(linked) != 0 {
		t.Errorf("dangling links: %v", linked)
	}
}

func TestChain(t *testing.T) {
	svc, db, _ := testService(t)
	rootID := mustCreate(t, db, "Root", nil)
	childID := mustCreate(t, db, "Child", &rootID)

	chain, err := svc.Chain(childID)
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(chain) != 2 || chain[0].ID != rootID || chain[1].ID != childID {
		t.Errorf("chain = %v", chain)
	}
	if chain[0].Subject != "Root" {
		t.Errorf("chain[0].Subject = %q", chain[0].Subject)
	}
}

func TestCorruptedParentChain(t *testing.T) {
	svc, db, _ := testService(t)
	rootID := mustCreate(t, db, "Root", nil)
	childID := mustCreate(t, db, "Child", &rootID)

	// Corrupt the chain directly on the store, bypassing the cycle check,
	// the way an out-of-band db edit would.
	if err := db.UpdateParent(rootID, &childID); err != nil {
		t.Fatalf("UpdateParent: %v", err)
	}

	tree, err := svc.BuildTree(rootID)
	if err != nil {
		t.Fatalf("BuildTree over corrupted chain: %v", err)
	}
	if len(tree.Children) != 1 || tree.Children[0].ID != childID {
		t.Fatalf("tree children = %v", tree.Children)
	}
	if len(tree.Children[0].Children) != 0 {
		t.Errorf("revisited node kept: %v", tree.Children[0].Children)
	}

	if _, err := svc.PathToRoot(rootID); err == nil {
		t.Error("expected PathToRoot to fail on a cyclic parent chain")
	}
}
