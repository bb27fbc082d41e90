package providers

import "context"

type Message struct {
	Role    string
	Content string
}

type ChatRequest struct {
	Model    string
	Messages []Message
}

// Delta is one streamed increment of the assistant response.
type Delta struct {
	Content string
}

// Stream yields deltas until io.EOF.
type Stream interface {
	Recv() (Delta, error)
	Close() error
}

type Provider interface {
	StreamChat(ctx context.Context, req ChatRequest) (Stream, error)
}
