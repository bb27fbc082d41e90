package chat

import (
	"strings"
	"testing"
)

func TestDeriveTitle(t *testing.T) {
	short := deriveTitle([]IncomingMessage{
		{Role: "user", Parts: []Part{{Type: "text", Text: "hello there"}}},
	})
	if short == nil || *short != "hello there" {
		t.Fatalf("expected short title, got %v", short)
	}

	long := deriveTitle([]IncomingMessage{
		{Role: "user", Parts: []Part{{Type: "text", Text: strings.Repeat("a", 80)}}},
	})
	if long == nil {
		t.Fatalf("expected title for long text")
	}
	if want := strings.Repeat("a", 50) + "…"; *long != want {
		t.Fatalf("expected truncated title with ellipsis, got %q", *long)
	}

	if got := deriveTitle([]IncomingMessage{{Role: "assistant", Parts: []Part{{Type: "text", Text: "hi"}}}}); got != nil {
		t.Fatalf("expected nil title without a user message, got %q", *got)
	}
	if got := deriveTitle([]IncomingMessage{{Role: "user", Parts: []Part{{Type: "image"}}}}); got != nil {
		t.Fatalf("expected nil title without a text block, got %q", *got)
	}
}

func TestFlattenText(t *testing.T) {
	got := flattenText([]Part{
		{Type: "text", Text: "one"},
		{Type: "image"},
		{Type: "text", Text: "two"},
	})
	if got != "one\ntwo" {
		t.Fatalf("unexpected flattened text %q", got)
	}
}
