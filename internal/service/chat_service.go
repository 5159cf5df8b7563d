package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/akbargherbal/gemini-fusion/internal/ai"
	"github.com/akbargherbal/gemini-fusion/internal/model"
	"github.com/akbargherbal/gemini-fusion/internal/pkg/ctxutil"
	"github.com/akbargherbal/gemini-fusion/internal/pkg/id"
)

// Validation errors, reported synchronously before any side effect.
var (
	ErrEmptyMessage  = errors.New("message must not be empty")
	ErrMissingAPIKey = errors.New("api key is required")
)

// ConversationStore is the persistence boundary of a turn. Implemented
// by repository.ConversationRepo; faked in tests.
type ConversationStore interface {
	Create(ctx context.Context) (*model.Conversation, error)
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	SetTopic(ctx context.Context, id, topic string) error
	AppendMessage(ctx context.Context, id, role, content, failCode string) (*model.Message, error)
	List(ctx context.Context) ([]*model.Conversation, error)
	GetMessages(ctx context.Context, id string) ([]*model.Message, error)
}

// TurnSink receives the client-bound events of one turn. Fragment
// returning an error means the client can no longer be reached.
type TurnSink interface {
	StreamStart()
	Fragment(text string) error
	Terminal(ev *model.TerminalEvent)
}

// Turn is one prepared user-message-to-assistant-response exchange: the
// user message is persisted, the upstream call has not started.
type Turn struct {
	ConversationID string
	Prompt         string
	Credential     ai.Credential
}

// ChatService orchestrates a chat turn: validate, resolve or create the
// conversation, persist the user message, relay the upstream stream,
// and commit exactly one assistant message once the relay reaches a
// terminal state.
type ChatService struct {
	opener   ai.Opener
	store    ConversationStore
	sessions SessionStore
}

// NewChatService creates the orchestrator.
func NewChatService(opener ai.Opener, store ConversationStore, sessions SessionStore) *ChatService {
	return &ChatService{
		opener:   opener,
		store:    store,
		sessions: sessions,
	}
}

// Prepare runs the pre-stream half of a turn: validation, conversation
// resolution (creating one when no id is given), persisting the user
// message, and deriving the topic when that message is the first.
// Failures here have produced no client-visible stream, so they are
// returned synchronously.
func (s *ChatService) Prepare(ctx context.Context, req *model.ChatRequest) (*Turn, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var conversationID string
	if req.ConversationID != "" {
		conv, err := s.store.FindByID(ctx, req.ConversationID)
		if err != nil {
			return nil, err
		}
		conversationID = conv.ID.Hex()
	} else {
		conv, err := s.store.Create(ctx)
		if err != nil {
			return nil, err
		}
		conversationID = conv.ID.Hex()
	}

	msg, err := s.store.AppendMessage(ctx, conversationID, model.RoleUser, req.Message, "")
	if err != nil {
		return nil, err
	}

	// Seq allocation is serialized per conversation, so exactly one
	// turn ever observes position 1 and sets the topic.
	if msg.Seq == 1 {
		if err := s.store.SetTopic(ctx, conversationID, DeriveTopic(req.Message)); err != nil {
			return nil, err
		}
	}

	logger := turnLogger(ctx, conversationID)
	logger.Info().
		Int64("seq", msg.Seq).
		Msg("user message saved")

	return &Turn{
		ConversationID: conversationID,
		Prompt:         req.Message,
		Credential:     ai.Credential{APIKey: req.APIKey, Model: req.Model},
	}, nil
}

// Stream runs the streaming half of a prepared turn: opens the upstream
// token source, relays fragments to the sink, then finalizes: exactly
// one assistant message is persisted and exactly one terminal event is
// emitted, whatever the outcome. The returned event is the terminal
// event, for logging and tests; the client has already received it.
func (s *ChatService) Stream(ctx context.Context, turn *Turn, sink TurnSink) *model.TerminalEvent {
	logger := turnLogger(ctx, turn.ConversationID)

	sink.StreamStart()

	stream, err := s.opener.Open(ctx, turn.Credential, turn.Prompt)
	if err != nil {
		logger.Warn().Err(err).Msg("upstream open failed")
		return s.finalize(ctx, turn, sink, RelayOutcome{Status: RelayTotalFailure, Err: err})
	}

	outcome := Relay(ctx, stream, sink.Fragment)

	return s.finalize(ctx, turn, sink, outcome)
}

// finalize maps the relay outcome to a terminal status, persists the
// turn's single assistant message, and emits the terminal event. Failed
// turns are recorded with a failure marker rather than dropped, so
// history replay shows them.
func (s *ChatService) finalize(ctx context.Context, turn *Turn, sink TurnSink, outcome RelayOutcome) *model.TerminalEvent {
	logger := turnLogger(ctx, turn.ConversationID)

	status := model.StatusCompleted
	detail := ""
	var ue *ai.UpstreamError
	switch {
	case outcome.Err == nil:
		// completed
	case errors.As(outcome.Err, &ue):
		status = ue.Kind
		detail = ue.Err.Error()
	default:
		// client disconnect or cancellation: early termination, not a
		// system failure
		status = model.StatusPartial
	}

	// A failure marker never carries a success status: a stream that
	// completes with zero fragments is still a completed turn.
	failCode := ""
	if ue != nil || (outcome.Text == "" && status != model.StatusCompleted) {
		failCode = status
	}

	ev := &model.TerminalEvent{
		Status:         status,
		ConversationID: turn.ConversationID,
		Detail:         detail,
	}

	// The write must survive the disconnect that may have ended the
	// relay.
	persistCtx := context.WithoutCancel(ctx)
	msg, err := s.store.AppendMessage(persistCtx, turn.ConversationID, model.RoleAssistant, outcome.Text, failCode)
	if err != nil {
		logger.Error().Err(err).Msg("failed to save assistant message")
		ev.Status = model.StatusInternalError
		ev.Detail = "failed to persist assistant message"
		sink.Terminal(ev)
		return ev
	}
	ev.AssistantMessageID = msg.ID.Hex()

	logger.Info().
		Str("status", status).
		Int64("seq", msg.Seq).
		Int("chars", len(outcome.Text)).
		Msg("turn finalized")

	sink.Terminal(ev)
	return ev
}

// Initiate prepares a turn and parks it as a stream session for a
// follow-up stream call.
func (s *ChatService) Initiate(ctx context.Context, req *model.ChatRequest) (*model.InitiateResponse, error) {
	turn, err := s.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	sessionID := id.New()
	sess := &Session{
		ConversationID: turn.ConversationID,
		APIKey:         turn.Credential.APIKey,
		Model:          turn.Credential.Model,
		Message:        turn.Prompt,
		CreatedAt:      time.Now(),
	}
	if err := s.sessions.Put(ctx, sessionID, sess); err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID).
		Str("conversation_id", turn.ConversationID).
		Msg("chat session initiated")

	return &model.InitiateResponse{
		SessionID:      sessionID,
		ConversationID: turn.ConversationID,
	}, nil
}

// TakeSession consumes a parked session and rebuilds its turn. The
// session is single-use and gone after this call.
func (s *ChatService) TakeSession(ctx context.Context, sessionID string) (*Turn, error) {
	sess, err := s.sessions.Take(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &Turn{
		ConversationID: sess.ConversationID,
		Prompt:         sess.Message,
		Credential:     ai.Credential{APIKey: sess.APIKey, Model: sess.Model},
	}, nil
}

// ListConversations returns all conversations for the sidebar listing.
func (s *ChatService) ListConversations(ctx context.Context) ([]model.ConversationSummary, error) {
	convs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, model.ConversationSummary{
			ID:    conv.ID.Hex(),
			Topic: conv.Topic,
		})
	}
	return summaries, nil
}

// GetMessages returns a conversation's history in sequence order.
func (s *ChatService) GetMessages(ctx context.Context, conversationID string) ([]*model.Message, error) {
	return s.store.GetMessages(ctx, conversationID)
}

// turnLogger tags turn logs with the conversation and, when present,
// the request id carried on ctx by the request-id middleware.
func turnLogger(ctx context.Context, conversationID string) zerolog.Logger {
	logCtx := log.With().Str("conversation_id", conversationID)
	if requestID, ok := ctxutil.GetRequestID(ctx); ok {
		logCtx = logCtx.Str("request_id", requestID)
	}
	return logCtx.Logger()
}

// DeriveTopic produces the conversation topic from its first user
// message: the trimmed text cut to TopicMaxLen characters.
func DeriveTopic(message string) string {
	trimmed := strings.TrimSpace(message)
	runes := []rune(trimmed)
	if len(runes) > model.TopicMaxLen {
		return string(runes[:model.TopicMaxLen])
	}
	return trimmed
}
