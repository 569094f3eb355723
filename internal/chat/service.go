package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
	"github.com/atlasparts/backend-parts/internal/obs"
)

// Sender roles stored on chat messages.
const (
	SenderVisitor = "visitor"
	SenderAdmin   = "admin"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Querier is the subset of db.Queries the chat service needs.
type Querier interface {
	CreateChatSession(ctx context.Context, id, visitorName string) (db.ChatSession, error)
	GetChatSession(ctx context.Context, id string) (db.ChatSession, error)
	ListChatSessions(ctx context.Context, status *string, limit, offset int32) ([]db.ChatSession, error)
	CloseChatSession(ctx context.Context, id string, at time.Time) (int64, error)
	InsertChatMessage(ctx context.Context, id, sessionID, sender, body string) (db.ChatMessage, error)
	ListChatMessages(ctx context.Context, sessionID string, after *time.Time) ([]db.ChatMessage, error)
	DeleteChatMessage(ctx context.Context, id string) (int64, error)
}

// OpenInput starts a visitor session.
type OpenInput struct {
	VisitorName string `json:"visitor_name" validate:"max=80"`
}

// MessageInput is the body of a posted chat message.
type MessageInput struct {
	Body string `json:"body" validate:"required,max=2000"`
}

// Service implements storefront chat and admin moderation.
type Service struct {
	Q        Querier
	Validate *validator.Validate
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// OpenSession creates a new visitor session. An empty name falls back to
// a generic label so moderation lists stay readable.
func (s *Service) OpenSession(ctx context.Context, in OpenInput) (db.ChatSession, error) {
	if s.Q == nil {
		return db.ChatSession{}, errors.New("chat: queries not configured")
	}
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return db.ChatSession{}, common.BadRequest("visitor_name", "invalid visitor name", err)
		}
	}
	name := strings.TrimSpace(in.VisitorName)
	if name == "" {
		name = "Guest"
	}
	return s.Q.CreateChatSession(ctx, uuid.NewString(), name)
}

// PostMessage stores a message in an open session on behalf of sender.
func (s *Service) PostMessage(ctx context.Context, sessionID, sender string, in MessageInput) (db.ChatMessage, error) {
	if s.Q == nil {
		return db.ChatMessage{}, errors.New("chat: queries not configured")
	}
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return db.ChatMessage{}, common.BadRequest("body", "message body is required and at most 2000 characters", err)
		}
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return db.ChatMessage{}, common.BadRequest("body", "message body is required", nil)
	}
	if sender != SenderVisitor && sender != SenderAdmin {
		return db.ChatMessage{}, common.BadRequest("sender", "unknown sender role", nil)
	}

	session, err := s.Q.GetChatSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.ChatMessage{}, common.NotFound("chat session")
		}
		return db.ChatMessage{}, err
	}
	if session.Status != StatusOpen {
		return db.ChatMessage{}, common.NewAppError("SESSION_CLOSED", "chat session is closed", http.StatusConflict, nil)
	}

	msg, err := s.Q.InsertChatMessage(ctx, uuid.NewString(), sessionID, sender, body)
	if err != nil {
		return db.ChatMessage{}, err
	}
	if obs.ChatMessagesTotal != nil {
		obs.ChatMessagesTotal.WithLabelValues(sender).Inc()
	}
	return msg, nil
}

// Messages returns a session's messages, optionally only those created
// after the given instant. Pollers pass the timestamp of the last message
// they have seen.
func (s *Service) Messages(ctx context.Context, sessionID string, after *time.Time) ([]db.ChatMessage, error) {
	if s.Q == nil {
		return nil, errors.New("chat: queries not configured")
	}
	if _, err := s.Q.GetChatSession(ctx, sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NotFound("chat session")
		}
		return nil, err
	}
	messages, err := s.Q.ListChatMessages(ctx, sessionID, after)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []db.ChatMessage{}
	}
	return messages, nil
}

// ListSessions returns sessions for moderation, newest first.
func (s *Service) ListSessions(ctx context.Context, status string, page, limit int) ([]db.ChatSession, error) {
	if s.Q == nil {
		return nil, errors.New("chat: queries not configured")
	}
	var statusPtr *string
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "":
	case StatusOpen, StatusClosed:
		v := strings.ToLower(strings.TrimSpace(status))
		statusPtr = &v
	default:
		return nil, common.BadRequest("status", "status must be open or closed", nil)
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	sessions, err := s.Q.ListChatSessions(ctx, statusPtr, int32(limit), int32(common.Offset(page, limit)))
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []db.ChatSession{}
	}
	return sessions, nil
}

// CloseSession marks a session closed. Closing an already closed or
// unknown session reports NOT_FOUND.
func (s *Service) CloseSession(ctx context.Context, sessionID string) error {
	if s.Q == nil {
		return errors.New("chat: queries not configured")
	}
	affected, err := s.Q.CloseChatSession(ctx, sessionID, s.now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.NotFound("open chat session")
	}
	return nil
}

// DeleteMessage removes a single message.
func (s *Service) DeleteMessage(ctx context.Context, messageID string) error {
	if s.Q == nil {
		return errors.New("chat: queries not configured")
	}
	affected, err := s.Q.DeleteChatMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.NotFound("chat message")
	}
	return nil
}
