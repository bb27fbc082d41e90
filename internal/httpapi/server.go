package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"pandachat/internal/auth"
	"pandachat/internal/chat"
	"pandachat/internal/crypto"
	"pandachat/internal/storage"
)

type Server struct {
	store      *storage.Store
	vault      *crypto.Vault
	tokens     *auth.TokenManager
	chat       *chat.Service
	logger     zerolog.Logger
	corsOrigin string
}

type Config struct {
	Store      *storage.Store
	Vault      *crypto.Vault
	Tokens     *auth.TokenManager
	Chat       *chat.Service
	Logger     zerolog.Logger
	CORSOrigin string
}

func New(cfg Config) *Server {
	return &Server{
		store:      cfg.Store,
		vault:      cfg.Vault,
		tokens:     cfg.Tokens,
		chat:       cfg.Chat,
		logger:     cfg.Logger,
		corsOrigin: cfg.CORSOrigin,
	}
}

func (s *Server) Routes(healthPath, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+healthPath, func(w http.ResponseWriter, _ *http.Request) {
		writeSuccess(w, map[string]string{"status": "ok"})
	})
	mux.Handle("GET "+metricsPath, promhttp.Handler())

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/me", s.requireAuth(s.handleMe))

	mux.HandleFunc("GET /api/ai/sessions", s.requireAuth(s.handleListSessions))
	mux.HandleFunc("GET /api/ai/sessions/{id}/messages", s.requireAuth(s.handleListMessages))
	mux.HandleFunc("DELETE /api/ai/sessions", s.requireAuth(s.handleDeleteSessions))
	mux.HandleFunc("POST /api/ai/chat", s.requireAuth(s.handleChat))

	mux.HandleFunc("GET /api/settings/llm/configs", s.requireAuth(s.handleListConfigs))
	mux.HandleFunc("POST /api/settings/llm/configs", s.requireAuth(s.handleCreateConfig))
	mux.HandleFunc("PUT /api/settings/llm/configs/{id}", s.requireAuth(s.handleUpdateConfig))
	mux.HandleFunc("POST /api/settings/llm/configs/{id}/default", s.requireAuth(s.handleSetDefaultConfig))
	mux.HandleFunc("DELETE /api/settings/llm/configs/{id}", s.requireAuth(s.handleDeleteConfig))

	return s.withCORS(s.withAccessLog(mux))
}
