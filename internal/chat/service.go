package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"pandachat/internal/apperr"
	"pandachat/internal/crypto"
	"pandachat/internal/lock"
	"pandachat/internal/metrics"
	"pandachat/internal/providers"
	"pandachat/internal/providers/registry"
	"pandachat/internal/storage"
)

type ChatRequest struct {
	Messages    []IncomingMessage
	SessionID   *int64
	LLMConfigID *int64
}

type Service struct {
	store       *storage.Store
	vault       *crypto.Vault
	locker      *lock.SessionLocker
	newProvider func(registry.BuildOptions) (providers.Provider, error)
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

type Config struct {
	Store       *storage.Store
	Vault       *crypto.Vault
	Locker      *lock.SessionLocker
	NewProvider func(registry.BuildOptions) (providers.Provider, error)
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

func New(cfg Config) *Service {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	np := cfg.NewProvider
	if np == nil {
		np = registry.Build
	}
	return &Service{
		store:       cfg.Store,
		vault:       cfg.Vault,
		locker:      cfg.Locker,
		newProvider: np,
		metrics:     m,
		logger:      cfg.Logger,
	}
}

// Turn is one in-flight chat exchange. The transport forwards the stream via
// Run; the assistant message id exists before the first delta so clients can
// correlate streamed content with a durable row.
type Turn struct {
	SessionID          int64
	IsNewSession       bool
	AssistantMessageID int64

	svc     *Service
	stream  providers.Stream
	release func(context.Context)
}

// HandleChat resolves the session/provider binding, persists the user turn,
// creates the assistant placeholder and opens the provider stream. Order is
// fixed: user message, then placeholder, then the model call — the user's
// turn is never lost even when the provider rejects the request.
func (s *Service) HandleChat(ctx context.Context, userID int64, req ChatRequest) (*Turn, error) {
	if len(req.Messages) == 0 {
		return nil, apperr.New(apperr.BadRequest, "messages array is required and must be non-empty")
	}
	s.metrics.ChatRequests.Inc()

	res, err := s.resolve(ctx, userID, req)
	if err != nil {
		s.metrics.ChatFailures.Inc()
		return nil, err
	}

	release := func(context.Context) {}
	if s.locker != nil {
		rel, ok, err := s.locker.Acquire(ctx, res.Session.ID)
		if err != nil {
			// The lock is advisory; losing redis degrades to last-write-wins.
			s.logger.Warn().Err(err).Int64("session_id", res.Session.ID).Msg("session lock unavailable")
		} else if !ok {
			s.metrics.ChatFailures.Inc()
			return nil, apperr.New(apperr.Conflict, "another chat turn is in progress for this session")
		} else {
			release = rel
		}
	}

	turn, err := s.startTurn(ctx, userID, req, res)
	if err != nil {
		release(ctx)
		s.metrics.ChatFailures.Inc()
		return nil, err
	}
	turn.release = release
	return turn, nil
}

func (s *Service) startTurn(ctx context.Context, userID int64, req ChatRequest, res resolved) (*Turn, error) {
	last := req.Messages[len(req.Messages)-1]
	if last.Role == "user" {
		partsJSON, err := marshalParts(last.Parts)
		if err != nil {
			return nil, err
		}
		if _, err := s.store.CreateMessage(ctx, res.Session.ID, "user", partsJSON); err != nil {
			return nil, fmt.Errorf("persist user message: %w", err)
		}
		if !res.IsNew {
			if err := s.store.TouchSession(ctx, userID, res.Session.ID); err != nil {
				s.logger.Warn().Err(err).Int64("session_id", res.Session.ID).Msg("touch session failed")
			}
		}
	}

	placeholder, err := s.store.CreateMessage(ctx, res.Session.ID, "assistant", "[]")
	if err != nil {
		return nil, fmt.Errorf("create assistant placeholder: %w", err)
	}

	provider, err := s.newProvider(registry.BuildOptions{
		Kind:    res.Config.Provider,
		BaseURL: res.Config.BaseURL,
		APIKey:  res.APIKey,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ServiceUnavailable, err.Error(), err)
	}

	stream, err := provider.StreamChat(ctx, providers.ChatRequest{
		Model:    res.Config.ModelID,
		Messages: toProviderMessages(req.Messages),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.InternalError, err.Error(), err)
	}

	return &Turn{
		SessionID:          res.Session.ID,
		IsNewSession:       res.IsNew,
		AssistantMessageID: placeholder.ID,
		svc:                s,
		stream:             stream,
	}, nil
}

// Run drains the provider stream, pushing each delta into sink as it arrives,
// and finalizes the placeholder message exactly once after a full drain. When
// the transport context is cancelled or the sink fails, finalization is
// abandoned and the placeholder stays empty.
func (t *Turn) Run(ctx context.Context, sink func(delta string) error) error {
	defer t.stream.Close()
	defer t.release(context.WithoutCancel(ctx))

	var buf strings.Builder
	for {
		delta, err := t.stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.svc.metrics.StreamsAbandoned.Inc()
			return fmt.Errorf("provider stream: %w", err)
		}
		if delta.Content == "" {
			continue
		}
		if err := sink(delta.Content); err != nil {
			t.svc.metrics.StreamsAbandoned.Inc()
			t.svc.logger.Warn().Err(err).Int64("message_id", t.AssistantMessageID).Msg("stream sink failed, abandoning finalization")
			return nil
		}
		buf.WriteString(delta.Content)
	}

	if ctx.Err() != nil {
		t.svc.metrics.StreamsAbandoned.Inc()
		return nil
	}

	partsJSON, err := marshalParts(textParts(buf.String()))
	if err != nil {
		return err
	}
	if err := t.svc.store.UpdateMessageParts(ctx, t.AssistantMessageID, partsJSON); err != nil {
		return fmt.Errorf("finalize assistant message: %w", err)
	}
	t.svc.metrics.StreamsFinalized.Inc()
	return nil
}

func toProviderMessages(messages []IncomingMessage) []providers.Message {
	out := make([]providers.Message, 0, len(messages))
	for _, m := range messages {
		content := flattenText(m.Parts)
		if content == "" {
			continue
		}
		out = append(out, providers.Message{Role: m.Role, Content: content})
	}
	return out
}
