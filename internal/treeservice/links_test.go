package treeservice

import (
	"errors"
	"testing"

	"github.com/promptree/promptree/internal/apperr"
)

func TestLinkAndLinked(t *testing.T) {
	svc, db, _ := testService(t)
	a := mustCreate(t, db, "A", nil)
	b := mustCreate(t, db, "B", nil)

	if err := svc.Link(a, b); err != nil {
		t.Fatalf("Link: %v", err)
	}

	for _, id := range []int64{a, b} {
		linked, err := svc.Linked(id)
		if err != nil {
			t.Fatalf("Linked(%d): %v", id, err)
		}
		if len(linked) != 1 {
			t.Errorf("Linked(%d) = %d entries, want 1", id, len(linked))
		}
	}
}

func TestLinkSelf(t *testing.T) {
	svc, db, _ := testService(t)
	a := mustCreate(t, db, "A", nil)
	if err := svc.Link(a, a); !errors.Is(err, apperr.ErrSelfLink) {
		t.Errorf("err = %v, want ErrSelfLink", err)
	}
}

func TestLinkMissingEndpoint(t *testing.T) {
	svc, db, _ := testService(t)
	a := mustCreate(t, db, "A", nil)
	if err := svc.Link(a, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := svc.Link(999, a); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUnlinkEitherOrientation(t *testing.T) {
	svc, db, _ := testService(t)
	a := mustCreate(t, db, "A", nil)
	b := mustCreate(t, db, "B", nil)
	if err := svc.Link(a, b); err != nil {
		t.Fatal(err)
	}

	// Unlink with the arguments reversed relative to Link.
	if err := svc.Unlink(b, a); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	linked, _ := svc.Linked(a)
	if len(linked) != 0 {
		t.Errorf("link survived: %v", linked)
	}

	// Unlinking again is a no-op.
	if err := svc.Unlink(a, b); err != nil {
		t.Errorf("second Unlink: %v", err)
	}
}

func TestRelinkReplacesAll(t *testing.T) {
	svc, db, _ := testService(t)
	a := mustCreate(t, db, "A", nil)
	b := mustCreate(t, db, "B", nil)
	c := mustCreate(t, db, "C", nil)
	d := mustCreate(t, db, "D", nil)

	if err := svc.Link(a, b); err != nil {
		t.Fatal(err)
	}

	skipped, err := svc.Relink(a, []int64{c, d})
	if err != nil {
		t.Fatalf("Relink: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v", skipped)
	}

	linked, _ := svc.Linked(a)
	got := map[int64]bool{}
	for _, l := range linked {
		got[l.ID] = true
	}
	if len(linked) != 2 || !got[c] || !got[d] || got[b] {
		t.Errorf("linked after relink = %v", got)
	}
}

func TestRelinkPartialSuccess(t *testing.T) {
	svc, db, _ := testService(t)
	a := mustCreate(t, db, "A", nil)
	b := mustCreate(t, db, "B", nil)

	skipped, err := svc.Relink(a, []int64{b, a, 999, b})
	if err != nil {
		t.Fatalf("Relink: %v", err)
	}
	// Self target, missing target, and the duplicate are skipped; the
	// valid one lands.
	if len(skipped) != 3 {
		t.Fatalf("skipped = %v, want 3 entries", skipped)
	}

	linked, _ := svc.Linked(a)
	if len(linked) != 1 || linked[0].ID != b {
		t.Errorf("linked = %v, want just %d", linked, b)
	}
}

func TestRelinkEmptyClearsLinks(t *testing.T) {
	svc, db, _ := testService(t)
	a := mustCreate(t, db, "A", nil)
	b := mustCreate(t, db, "B", nil)
	if err := svc.Link(a, b); err != nil {
		t.Fatal(err)
	}

	skipped, err := svc.Relink(a, nil)
	if err != nil {
		t.Fatalf("Relink: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v", skipped)
	}
	linked, _ := svc.Linked(a)
	if len(linked) != 0 {
		t.Errorf("links remain: %v", linked)
	}
}

func TestRelinkMissingSource(t *testing.T) {
	svc, _, _ := testService(t)
	if _, err := svc.Relink(999, []int64{1}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
