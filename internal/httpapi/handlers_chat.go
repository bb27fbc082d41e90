package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"pandachat/internal/apperr"
	"pandachat/internal/chat"
	"pandachat/internal/ids"
)

type chatBody struct {
	Messages    []chat.IncomingMessage `json:"messages"`
	SessionID   *string                `json:"sessionId"`
	LLMConfigID *string                `json:"llmConfigId"`
}

type sseEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Delta     string `json:"delta,omitempty"`
}

// handleChat streams the assistant reply as server-sent events. Everything
// that can fail is attempted before the first byte of the event stream, so
// pre-stream errors still travel in the plain JSON envelope.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	var body chatBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}

	req := chat.ChatRequest{Messages: body.Messages}
	if body.SessionID != nil {
		id, err := ids.Parse(*body.SessionID)
		if err != nil {
			writeError(w, s.logger, apperr.New(apperr.BadRequest, "invalid session id"))
			return
		}
		req.SessionID = &id
	}
	if body.LLMConfigID != nil {
		id, err := ids.Parse(*body.LLMConfigID)
		if err != nil {
			writeError(w, s.logger, apperr.New(apperr.BadRequest, "invalid llm config id"))
			return
		}
		req.LLMConfigID = &id
	}

	turn, err := s.chat.HandleChat(r.Context(), ident.UserID, req)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, s.logger, apperr.New(apperr.InternalError, "streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if turn.IsNewSession {
		w.Header().Set("X-Session-Id", ids.Format(turn.SessionID))
	}
	w.WriteHeader(http.StatusOK)

	writeSSE(w, sseEvent{
		Type:      "start",
		MessageID: ids.Format(turn.AssistantMessageID),
		SessionID: ids.Format(turn.SessionID),
	})
	flusher.Flush()

	err = turn.Run(r.Context(), func(delta string) error {
		if err := writeSSE(w, sseEvent{Type: "text-delta", Delta: delta}); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Headers are gone; the best we can do is surface the failure in-band.
		s.logger.Error().Err(err).Int64("session_id", turn.SessionID).Msg("chat stream failed")
		writeSSE(w, sseEvent{Type: "error"})
		flusher.Flush()
		return
	}

	writeSSE(w, sseEvent{Type: "finish"})
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeSSE(w http.ResponseWriter, ev sseEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
