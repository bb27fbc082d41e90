package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"pandachat/internal/apperr"
	"pandachat/internal/auth"
	"pandachat/internal/ids"
	"pandachat/internal/storage"
)

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (b credentialsBody) validate() error {
	var issues []apperr.Issue
	if strings.TrimSpace(b.Username) == "" {
		issues = append(issues, apperr.Issue{Path: "username", Message: "username is required"})
	}
	if b.Password == "" {
		issues = append(issues, apperr.Issue{Path: "password", Message: "password is required"})
	}
	if len(issues) > 0 {
		return apperr.Validation("username and password are required", issues)
	}
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := body.validate(); err != nil {
		writeError(w, s.logger, err)
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	user, err := s.store.CreateUser(r.Context(), body.Username, hash)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(w, s.logger, apperr.New(apperr.Conflict, "username already exists"))
			return
		}
		writeError(w, s.logger, err)
		return
	}

	s.logger.Info().Str("username", user.Username).Msg("user registered")
	writeSuccess(w, map[string]string{"username": user.Username})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := body.validate(); err != nil {
		writeError(w, s.logger, err)
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), body.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, s.logger, apperr.New(apperr.Unauthorized, "invalid username or password"))
			return
		}
		writeError(w, s.logger, err)
		return
	}
	if !auth.VerifyPassword(body.Password, user.PasswordHash) {
		writeError(w, s.logger, apperr.New(apperr.Unauthorized, "invalid username or password"))
		return
	}

	token, err := s.tokens.Sign(user.ID, user.Username)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, map[string]string{"token": token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, s.logger, apperr.New(apperr.Unauthorized, ""))
		return
	}
	writeSuccess(w, map[string]string{
		"id":       ids.Format(ident.UserID),
		"username": ident.Username,
	})
}
