package session

import (
	"sort"
	"strings"
	"sync"

	"github.com/armanbance/TwinMind/internal/store"
)

// assembler collects transcribed fragments and joins them into a transcript
// ordered by the fragment's order number, regardless of the order in which
// transcription finished. Whitespace-only fragments are rejected so they can
// never introduce stray separators into the transcript.
type assembler struct {
	mu        sync.Mutex
	fragments []store.Fragment
}

// newAssembler creates an assembler seeded with existing fragments.
func newAssembler(fragments []store.Fragment) *assembler {
	a := &assembler{fragments: make([]store.Fragment, len(fragments))}
	copy(a.fragments, fragments)
	a.sortLocked()
	return a
}

// add inserts a fragment, keeping the list sorted by order. It returns false
// without inserting when the fragment text is empty or whitespace-only.
func (a *assembler) add(frag store.Fragment) bool {
	if strings.TrimSpace(frag.Text) == "" {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.fragments = append(a.fragments, frag)
	a.sortLocked()
	return true
}

// assemble joins all fragment texts with a single space, trimming each
// fragment so transcription artifacts like leading spaces collapse.
func (a *assembler) assemble() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	parts := make([]string, 0, len(a.fragments))
	for _, f := range a.fragments {
		parts = append(parts, strings.TrimSpace(f.Text))
	}
	return strings.Join(parts, " ")
}

// snapshot returns a copy of the fragments in order.
func (a *assembler) snapshot() []store.Fragment {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]store.Fragment, len(a.fragments))
	copy(out, a.fragments)
	return out
}

func (a *assembler) sortLocked() {
	sort.Slice(a.fragments, func(i, j int) bool {
		return a.fragments[i].Order < a.fragments[j].Order
	})
}
