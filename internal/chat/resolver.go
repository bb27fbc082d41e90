package chat

import (
	"context"
	"errors"
	"fmt"

	"pandachat/internal/apperr"
	"pandachat/internal/crypto"
	"pandachat/internal/storage"
)

// resolved carries everything a chat turn needs after binding resolution:
// the session to write into and the provider config with its decrypted key.
type resolved struct {
	Session storage.Session
	IsNew   bool
	Config  storage.LLMConfig
	APIKey  string
}

// resolve decides which session this turn uses and which provider config
// binds to it. Precedence: explicit request override, then the session's
// existing binding, then the account default. Unbound sessions adopt the
// default permanently on first use.
func (s *Service) resolve(ctx context.Context, userID int64, req ChatRequest) (resolved, error) {
	var out resolved

	if req.SessionID != nil {
		sess, err := s.store.GetSession(ctx, userID, *req.SessionID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return resolved{}, apperr.New(apperr.NotFound, "session not found")
			}
			return resolved{}, fmt.Errorf("get session: %w", err)
		}
		out.Session = sess

		switch {
		case req.LLMConfigID != nil:
			// Explicit override rebinds the session for this and later turns.
			cfg, err := s.lookupConfig(ctx, userID, *req.LLMConfigID)
			if err != nil {
				return resolved{}, err
			}
			if err := s.store.BindSessionConfig(ctx, userID, sess.ID, cfg.ID); err != nil {
				return resolved{}, fmt.Errorf("bind session config: %w", err)
			}
			out.Session.LLMConfigID = &cfg.ID
		case sess.LLMConfigID == nil:
			// Legacy unbound session: adopt the account default going forward.
			cfg, err := s.defaultConfig(ctx, userID)
			if err != nil {
				return resolved{}, err
			}
			if err := s.store.BindSessionConfig(ctx, userID, sess.ID, cfg.ID); err != nil {
				return resolved{}, fmt.Errorf("adopt default config: %w", err)
			}
			out.Session.LLMConfigID = &cfg.ID
		}
	} else {
		var cfg storage.LLMConfig
		var err error
		if req.LLMConfigID != nil {
			cfg, err = s.lookupConfig(ctx, userID, *req.LLMConfigID)
		} else {
			cfg, err = s.defaultConfig(ctx, userID)
		}
		if err != nil {
			return resolved{}, err
		}

		sess, err := s.store.CreateSession(ctx, userID, deriveTitle(req.Messages), &cfg.ID)
		if err != nil {
			return resolved{}, fmt.Errorf("create session: %w", err)
		}
		out.Session = sess
		out.IsNew = true
	}

	// Re-fetch by id+owner so a config deleted mid-resolution surfaces as
	// not-found instead of a stale row.
	cfg, err := s.lookupConfig(ctx, userID, *out.Session.LLMConfigID)
	if err != nil {
		return resolved{}, err
	}
	out.Config = cfg

	apiKey, err := s.vault.DecryptString(cfg.APIKeyEnc)
	if err != nil {
		var de *crypto.DecryptError
		if errors.As(err, &de) {
			return resolved{}, apperr.Wrap(apperr.InternalError, de.Error(), de)
		}
		return resolved{}, fmt.Errorf("decrypt api key: %w", err)
	}
	out.APIKey = apiKey

	return out, nil
}

func (s *Service) lookupConfig(ctx context.Context, userID, id int64) (storage.LLMConfig, error) {
	cfg, err := s.store.GetLLMConfig(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.LLMConfig{}, apperr.New(apperr.NotFound, "llm config not found")
		}
		return storage.LLMConfig{}, fmt.Errorf("get llm config: %w", err)
	}
	return cfg, nil
}

func (s *Service) defaultConfig(ctx context.Context, userID int64) (storage.LLMConfig, error) {
	cfg, err := s.store.GetDefaultLLMConfig(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.LLMConfig{}, apperr.New(apperr.ServiceUnavailable, "no default model configured: configure a default model first")
		}
		return storage.LLMConfig{}, fmt.Errorf("get default llm config: %w", err)
	}
	return cfg, nil
}
