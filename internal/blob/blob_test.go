package blob

import (
	"context"
	"errors"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore() error: %v", err)
	}

	key, err := s.Put(ctx, []byte("audio-bytes"))
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if key == "" {
		t.Fatal("Put() returned empty key")
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got) != "audio-bytes" {
		t.Errorf("Get() = %q, want %q", got, "audio-bytes")
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting again is fine.
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("second Delete() error: %v", err)
	}
}

func TestFSStoreRejectsTraversalKeys(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore() error: %v", err)
	}

	for _, key := range []string{"../etc/passwd", "a/b", "..", "not-a-uuid", ""} {
		if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrNotFound", key, err)
		}
	}
}
