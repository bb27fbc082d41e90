package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"pandachat/internal/apperr"
	"pandachat/internal/ids"
	"pandachat/internal/storage"
)

type sessionSummary struct {
	ID          string  `json:"id"`
	Title       *string `json:"title"`
	LLMConfigID *string `json:"llmConfigId"`
	UpdateTime  string  `json:"updateTime"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	list, err := s.store.ListSessions(r.Context(), ident.UserID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	out := make([]sessionSummary, 0, len(list))
	for _, sess := range list {
		item := sessionSummary{
			ID:         ids.Format(sess.ID),
			Title:      sess.Title,
			UpdateTime: sess.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if sess.LLMConfigID != nil {
			cfgID := ids.Format(*sess.LLMConfigID)
			item.LLMConfigID = &cfgID
		}
		out = append(out, item)
	}
	writeSuccess(w, out)
}

type messageView struct {
	ID         string          `json:"id"`
	Role       string          `json:"role"`
	Parts      json.RawMessage `json:"parts"`
	CreateTime string          `json:"createTime"`
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	sessionID, err := ids.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "invalid session id"))
		return
	}

	list, err := s.store.ListMessages(r.Context(), ident.UserID, sessionID)
	if err != nil {
		if err == storage.ErrNotFound {
			writeError(w, s.logger, apperr.New(apperr.NotFound, "session not found"))
			return
		}
		writeError(w, s.logger, err)
		return
	}

	out := make([]messageView, 0, len(list))
	for _, m := range list {
		out = append(out, messageView{
			ID:         ids.Format(m.ID),
			Role:       m.Role,
			Parts:      json.RawMessage(m.PartsJSON),
			CreateTime: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeSuccess(w, out)
}

type deleteSessionsBody struct {
	SessionIDs []string `json:"sessionIds"`
}

func (s *Server) handleDeleteSessions(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	var body deleteSessionsBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if len(body.SessionIDs) == 0 {
		writeError(w, s.logger, apperr.Validation("sessionIds must be a non-empty array", []apperr.Issue{
			{Path: "sessionIds", Message: "at least one session id is required"},
		}))
		return
	}

	sessionIDs := make([]int64, 0, len(body.SessionIDs))
	for _, raw := range body.SessionIDs {
		id, err := ids.Parse(raw)
		if err != nil {
			writeError(w, s.logger, apperr.New(apperr.BadRequest, "invalid session id"))
			return
		}
		sessionIDs = append(sessionIDs, id)
	}

	if err := s.store.DeleteSessions(r.Context(), ident.UserID, sessionIDs); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, map[string]bool{"deleted": true})
}
