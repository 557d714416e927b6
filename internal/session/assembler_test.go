package session

import (
	"testing"

	"github.com/armanbance/TwinMind/internal/store"
)

func TestAssemblerOrdersByFragmentOrder(t *testing.T) {
	a := newAssembler(nil)
	a.add(store.Fragment{Order: 2, Text: "world"})
	a.add(store.Fragment{Order: 0, Text: "hello"})
	a.add(store.Fragment{Order: 1, Text: "big"})

	if got := a.assemble(); got != "hello big world" {
		t.Errorf("assemble() = %q, want %q", got, "hello big world")
	}
}

func TestAssemblerRejectsWhitespace(t *testing.T) {
	a := newAssembler(nil)

	tests := []struct {
		text string
		want bool
	}{
		{"hello", true},
		{"", false},
		{"   ", false},
		{"\n\t", false},
		{" trimmed ", true},
	}
	for _, tt := range tests {
		if got := a.add(store.Fragment{Text: tt.text}); got != tt.want {
			t.Errorf("add(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}

	if got := a.assemble(); got != "hello trimmed" {
		t.Errorf("assemble() = %q, want %q", got, "hello trimmed")
	}
}

func TestAssemblerSeededFragments(t *testing.T) {
	seed := []store.Fragment{
		{Order: 1, Text: "second"},
		{Order: 0, Text: "first"},
	}
	a := newAssembler(seed)

	if got := a.assemble(); got != "first second" {
		t.Errorf("assemble() = %q, want %q", got, "first second")
	}

	snap := a.snapshot()
	if len(snap) != 2 || snap[0].Order != 0 {
		t.Errorf("snapshot = %+v, want sorted by order", snap)
	}
}

func TestAssemblerEmpty(t *testing.T) {
	a := newAssembler(nil)
	if got := a.assemble(); got != "" {
		t.Errorf("assemble() = %q, want empty", got)
	}
}
