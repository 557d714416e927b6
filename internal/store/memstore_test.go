package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemStoreCRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	sess := &Session{
		ID:        "s1",
		OwnerID:   "alice",
		Title:     "standup",
		Status:    StatusActive,
		CreatedAt: time.Now(),
	}
	if err := m.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	got, err := m.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if got.Title != "standup" || got.Status != StatusActive {
		t.Errorf("GetSession() = %+v", got)
	}

	// Mutating the returned copy must not affect the stored session.
	got.Title = "mutated"
	again, _ := m.GetSession(ctx, "s1")
	if again.Title != "standup" {
		t.Error("GetSession() returned a shared pointer, want a copy")
	}

	if _, err := m.GetSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession(missing) error = %v, want ErrNotFound", err)
	}

	sess.Status = StatusCompleted
	sess.Transcript = "hello world"
	if err := m.UpdateSession(ctx, sess); err != nil {
		t.Fatalf("UpdateSession() error: %v", err)
	}
	got, _ = m.GetSession(ctx, "s1")
	if got.Status != StatusCompleted || got.Transcript != "hello world" {
		t.Errorf("after update: %+v", got)
	}

	if err := m.UpdateSession(ctx, &Session{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateSession(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemStoreAppendFragment(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	m.CreateSession(ctx, &Session{ID: "s1", OwnerID: "alice", Status: StatusActive})

	for i, text := range []string{"one", "two"} {
		err := m.AppendFragment(ctx, "s1", Fragment{Order: i, Text: text, ReceivedAt: time.Now()})
		if err != nil {
			t.Fatalf("AppendFragment() error: %v", err)
		}
	}

	got, _ := m.GetSession(ctx, "s1")
	if len(got.Fragments) != 2 || got.Fragments[1].Text != "two" {
		t.Errorf("Fragments = %+v", got.Fragments)
	}

	err := m.AppendFragment(ctx, "missing", Fragment{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendFragment(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemStoreListSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	base := time.Now()
	m.CreateSession(ctx, &Session{ID: "old", OwnerID: "alice", CreatedAt: base.Add(-time.Hour)})
	m.CreateSession(ctx, &Session{ID: "new", OwnerID: "alice", CreatedAt: base})
	m.CreateSession(ctx, &Session{ID: "other", OwnerID: "bob", CreatedAt: base})

	got, err := m.ListSessions(ctx, "alice")
	if err != nil {
		t.Fatalf("ListSessions() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "new" || got[1].ID != "old" {
		t.Errorf("order = %s, %s; want new, old", got[0].ID, got[1].ID)
	}
}

func TestMemStoreSearch(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	m.CreateSession(ctx, &Session{
		ID: "s1", OwnerID: "alice", Title: "planning",
		Status: StatusCompleted, Transcript: "we talked about the Budget at length",
	})
	m.CreateSession(ctx, &Session{
		ID: "s2", OwnerID: "alice", Status: StatusActive,
		Transcript: "budget appears here too",
	})
	m.CreateSession(ctx, &Session{
		ID: "s3", OwnerID: "bob", Status: StatusCompleted,
		Transcript: "budget for bob",
	})

	results, err := m.Search(ctx, "alice", "budget", 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	// Only alice's completed session matches.
	if len(results) != 1 || results[0].SessionID != "s1" {
		t.Fatalf("results = %+v, want one hit on s1", results)
	}
	if results[0].Snippet == "" {
		t.Error("empty snippet")
	}
}

func TestStatusHelpers(t *testing.T) {
	if !StatusDraining.IsValid() || Status("bogus").IsValid() {
		t.Error("IsValid misclassifies")
	}
	if !StatusCompleted.IsTerminal() || !StatusError.IsTerminal() {
		t.Error("completed and error are terminal")
	}
	if StatusActive.IsTerminal() || StatusDraining.IsTerminal() {
		t.Error("active and draining are not terminal")
	}
}
