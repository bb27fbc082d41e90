package openai_compat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pandachat/internal/providers"
)

func TestStreamChatDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"Hel", "lo"} {
			fmt.Fprintf(w, "data: {\"object\":\"chat.completion.chunk\",\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "sk-test"})
	stream, err := c.StreamChat(context.Background(), providers.ChatRequest{
		Model: "gpt-x",
		Messages: []providers.Message{
			{Role: "user", Content: "hi"},
		},
	})
	if err != nil {
		t.Fatalf("stream chat: %v", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		sb.WriteString(delta.Content)
	}
	if sb.String() != "Hello" {
		t.Fatalf("expected Hello, got %q", sb.String())
	}
}

func TestStreamChatProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "bad"})
	if _, err := c.StreamChat(context.Background(), providers.ChatRequest{
		Model:    "gpt-x",
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	}); err == nil {
		t.Fatalf("expected error from provider")
	}
}

func TestStreamChatMissingModel(t *testing.T) {
	c := New(Config{BaseURL: "http://localhost", APIKey: "k"})
	if _, err := c.StreamChat(context.Background(), providers.ChatRequest{}); err == nil {
		t.Fatalf("expected error for empty model")
	}
}
