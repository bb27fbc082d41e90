package httpapi

import (
	"net/http"
	"strings"
	"time"

	"pandachat/internal/apperr"
	"pandachat/internal/ids"
	"pandachat/internal/storage"
)

var supportedProviders = map[string]bool{
	"openai":   true,
	"deepseek": true,
	"alibaba":  true,
}

type configSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Provider   string `json:"provider"`
	BaseURL    string `json:"baseURL"`
	ModelID    string `json:"modelId"`
	IsDefault  bool   `json:"isDefault"`
	HasKey     bool   `json:"hasKey"`
	UpdateTime string `json:"updateTime"`
}

func toConfigSummary(c storage.LLMConfig) configSummary {
	return configSummary{
		ID:         ids.Format(c.ID),
		Name:       c.Name,
		Provider:   c.Provider,
		BaseURL:    c.BaseURL,
		ModelID:    c.ModelID,
		IsDefault:  c.IsDefault,
		HasKey:     c.APIKeyEnc != "",
		UpdateTime: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type createConfigBody struct {
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	BaseURL   string `json:"baseURL"`
	ModelID   string `json:"modelId"`
	APIKey    string `json:"apiKey"`
	IsDefault bool   `json:"isDefault"`
}

func (b createConfigBody) validate() error {
	var issues []apperr.Issue
	if n := strings.TrimSpace(b.Name); n == "" || len([]rune(n)) > 50 {
		issues = append(issues, apperr.Issue{Path: "name", Message: "name must be 1-50 characters"})
	}
	if !supportedProviders[b.Provider] {
		issues = append(issues, apperr.Issue{Path: "provider", Message: "unsupported provider"})
	}
	if strings.TrimSpace(b.BaseURL) == "" {
		issues = append(issues, apperr.Issue{Path: "baseURL", Message: "baseURL is required"})
	}
	if strings.TrimSpace(b.ModelID) == "" {
		issues = append(issues, apperr.Issue{Path: "modelId", Message: "modelId is required"})
	}
	if b.APIKey == "" {
		issues = append(issues, apperr.Issue{Path: "apiKey", Message: "apiKey is required"})
	}
	if len(issues) > 0 {
		return apperr.Validation("invalid llm config create body", issues)
	}
	return nil
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	list, err := s.store.ListLLMConfigs(r.Context(), ident.UserID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	out := make([]configSummary, 0, len(list))
	for _, c := range list {
		out = append(out, toConfigSummary(c))
	}
	writeSuccess(w, out)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	var body createConfigBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := body.validate(); err != nil {
		writeError(w, s.logger, err)
		return
	}

	enc, err := s.vault.EncryptString(body.APIKey)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	created, err := s.store.CreateLLMConfig(r.Context(), ident.UserID, storage.LLMConfigInput{
		Name:      strings.TrimSpace(body.Name),
		Provider:  body.Provider,
		BaseURL:   strings.TrimSpace(body.BaseURL),
		ModelID:   strings.TrimSpace(body.ModelID),
		APIKeyEnc: enc,
	}, body.IsDefault)
	if err != nil {
		if err == storage.ErrConflict {
			writeError(w, s.logger, apperr.New(apperr.Conflict, "llm config name already exists"))
			return
		}
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, toConfigSummary(created))
}

type updateConfigBody struct {
	Name     *string `json:"name"`
	Provider *string `json:"provider"`
	BaseURL  *string `json:"baseURL"`
	ModelID  *string `json:"modelId"`
	APIKey   *string `json:"apiKey"`
}

func (b updateConfigBody) validate() error {
	var issues []apperr.Issue
	if b.Name != nil {
		if n := strings.TrimSpace(*b.Name); n == "" || len([]rune(n)) > 50 {
			issues = append(issues, apperr.Issue{Path: "name", Message: "name must be 1-50 characters"})
		}
	}
	if b.Provider != nil && !supportedProviders[*b.Provider] {
		issues = append(issues, apperr.Issue{Path: "provider", Message: "unsupported provider"})
	}
	if b.BaseURL != nil && strings.TrimSpace(*b.BaseURL) == "" {
		issues = append(issues, apperr.Issue{Path: "baseURL", Message: "baseURL must not be empty"})
	}
	if b.ModelID != nil && strings.TrimSpace(*b.ModelID) == "" {
		issues = append(issues, apperr.Issue{Path: "modelId", Message: "modelId must not be empty"})
	}
	if b.APIKey != nil && *b.APIKey == "" {
		issues = append(issues, apperr.Issue{Path: "apiKey", Message: "apiKey must not be empty"})
	}
	if len(issues) > 0 {
		return apperr.Validation("invalid llm config update body", issues)
	}
	return nil
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	id, err := ids.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "invalid config id"))
		return
	}

	var body updateConfigBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := body.validate(); err != nil {
		writeError(w, s.logger, err)
		return
	}

	upd := storage.LLMConfigUpdate{
		Name:     body.Name,
		Provider: body.Provider,
		BaseURL:  body.BaseURL,
		ModelID:  body.ModelID,
	}
	// Re-encrypt only when a fresh key was supplied.
	if body.APIKey != nil {
		enc, err := s.vault.EncryptString(*body.APIKey)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		upd.APIKeyEnc = &enc
	}

	if err := s.store.UpdateLLMConfig(r.Context(), ident.UserID, id, upd); err != nil {
		switch err {
		case storage.ErrNotFound:
			writeError(w, s.logger, apperr.New(apperr.NotFound, "llm config not found"))
		case storage.ErrConflict:
			writeError(w, s.logger, apperr.New(apperr.Conflict, "llm config name already exists"))
		default:
			writeError(w, s.logger, err)
		}
		return
	}
	writeSuccess(w, map[string]bool{"updated": true})
}

func (s *Server) handleSetDefaultConfig(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	id, err := ids.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "invalid config id"))
		return
	}

	if err := s.store.SetDefaultLLMConfig(r.Context(), ident.UserID, id); err != nil {
		if err == storage.ErrNotFound {
			writeError(w, s.logger, apperr.New(apperr.NotFound, "llm config not found"))
			return
		}
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, map[string]bool{"updated": true})
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	id, err := ids.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "invalid config id"))
		return
	}

	if err := s.store.DeleteLLMConfig(r.Context(), ident.UserID, id); err != nil {
		if err == storage.ErrNotFound {
			writeError(w, s.logger, apperr.New(apperr.NotFound, "llm config not found"))
			return
		}
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, map[string]bool{"deleted": true})
}
