package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

const titleMaxRunes = 50

// Part is one structured content block of a message. Only text blocks are
// produced by this backend; unknown block types round-trip through storage
// untouched via the raw parts JSON.
type Part struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type IncomingMessage struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

func marshalParts(parts []Part) (string, error) {
	if parts == nil {
		parts = []Part{}
	}
	b, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("marshal parts: %w", err)
	}
	return string(b), nil
}

func textParts(content string) []Part {
	return []Part{{Type: "text", Text: content}}
}

// flattenText joins the text blocks of a message for the provider call.
func flattenText(parts []Part) string {
	var sb strings.Builder
	for _, p := range parts {
		if p.Type != "text" || p.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// deriveTitle takes the first user message's first text block, truncated to
// ~50 chars. Nil when there is nothing to derive from; the title is set once
// at session creation and never rewritten automatically.
func deriveTitle(messages []IncomingMessage) *string {
	for _, m := range messages {
		if m.Role != "user" {
			continue
		}
		for _, p := range m.Parts {
			text := strings.TrimSpace(p.Text)
			if p.Type != "text" || text == "" {
				continue
			}
			runes := []rune(text)
			if len(runes) > titleMaxRunes {
				text = string(runes[:titleMaxRunes]) + "…"
			}
			return &text
		}
		return nil
	}
	return nil
}
