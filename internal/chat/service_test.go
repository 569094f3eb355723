package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
)

type stubQueries struct {
	sessions map[string]db.ChatSession
	messages []db.ChatMessage
	closed   []string
	deleted  []string
}

func newStubQueries() *stubQueries {
	return &stubQueries{sessions: map[string]db.ChatSession{}}
}

func (s *stubQueries) CreateChatSession(_ context.Context, id, visitorName string) (db.ChatSession, error) {
	session := db.ChatSession{ID: id, VisitorName: visitorName, Status: StatusOpen, CreatedAt: time.Now()}
	s.sessions[id] = session
	return session, nil
}

func (s *stubQueries) GetChatSession(_ context.Context, id string) (db.ChatSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return db.ChatSession{}, pgx.ErrNoRows
	}
	return session, nil
}

func (s *stubQueries) ListChatSessions(_ context.Context, status *string, _, _ int32) ([]db.ChatSession, error) {
	var out []db.ChatSession
	for _, session := range s.sessions {
		if status == nil || session.Status == *status {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s *stubQueries) CloseChatSession(_ context.Context, id string, at time.Time) (int64, error) {
	session, ok := s.sessions[id]
	if !ok || session.Status != StatusOpen {
		return 0, nil
	}
	session.Status = StatusClosed
	session.ClosedAt = &at
	s.sessions[id] = session
	s.closed = append(s.closed, id)
	return 1, nil
}

func (s *stubQueries) InsertChatMessage(_ context.Context, id, sessionID, sender, body string) (db.ChatMessage, error) {
	msg := db.ChatMessage{ID: id, SessionID: sessionID, Sender: sender, Body: body, CreatedAt: time.Now()}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *stubQueries) ListChatMessages(_ context.Context, sessionID string, after *time.Time) ([]db.ChatMessage, error) {
	var out []db.ChatMessage
	for _, m := range s.messages {
		if m.SessionID != sessionID {
			continue
		}
		if after != nil && !m.CreatedAt.After(*after) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *stubQueries) DeleteChatMessage(_ context.Context, id string) (int64, error) {
	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			s.deleted = append(s.deleted, id)
			return 1, nil
		}
	}
	return 0, nil
}

func newTestService(q Querier) *Service {
	return &Service{Q: q, Validate: validator.New()}
}

func TestOpenSessionDefaultsVisitorName(t *testing.T) {
	q := newStubQueries()
	svc := newTestService(q)

	session, err := svc.OpenSession(context.Background(), OpenInput{VisitorName: "   "})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if session.VisitorName != "Guest" {
		t.Fatalf("expected default visitor name, got %q", session.VisitorName)
	}
	if session.Status != StatusOpen {
		t.Fatalf("expected open status, got %q", session.Status)
	}
}

func TestPostMessageStoresVisitorMessage(t *testing.T) {
	q := newStubQueries()
	svc := newTestService(q)
	session, _ := svc.OpenSession(context.Background(), OpenInput{VisitorName: "Dana"})

	msg, err := svc.PostMessage(context.Background(), session.ID, SenderVisitor, MessageInput{Body: "  do you have brake pads for a 2014 Camry?  "})
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	if msg.Body != "do you have brake pads for a 2014 Camry?" {
		t.Fatalf("expected trimmed body, got %q", msg.Body)
	}
	if msg.Sender != SenderVisitor {
		t.Fatalf("unexpected sender: %q", msg.Sender)
	}
}

func TestPostMessageRejectsEmptyBody(t *testing.T) {
	q := newStubQueries()
	svc := newTestService(q)
	session, _ := svc.OpenSession(context.Background(), OpenInput{})

	_, err := svc.PostMessage(context.Background(), session.ID, SenderVisitor, MessageInput{Body: ""})
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "BAD_REQUEST" {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}
}

func TestPostMessageUnknownSessionNotFound(t *testing.T) {
	svc := newTestService(newStubQueries())

	_, err := svc.PostMessage(context.Background(), "missing", SenderVisitor, MessageInput{Body: "hello"})
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestPostMessageClosedSessionConflicts(t *testing.T) {
	q := newStubQueries()
	svc := newTestService(q)
	session, _ := svc.OpenSession(context.Background(), OpenInput{})
	if err := svc.CloseSession(context.Background(), session.ID); err != nil {
		t.Fatalf("close session: %v", err)
	}

	_, err := svc.PostMessage(context.Background(), session.ID, SenderAdmin, MessageInput{Body: "still there?"})
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "SESSION_CLOSED" {
		t.Fatalf("expected SESSION_CLOSED, got %v", err)
	}
}

func TestMessagesFiltersByAfter(t *testing.T) {
	q := newStubQueries()
	svc := newTestService(q)
	session, _ := svc.OpenSession(context.Background(), OpenInput{})

	first, err := svc.PostMessage(context.Background(), session.ID, SenderVisitor, MessageInput{Body: "first"})
	if err != nil {
		t.Fatalf("post first: %v", err)
	}
	// Backdate the first message so the poll cutoff separates the two.
	q.messages[0].CreatedAt = first.CreatedAt.Add(-time.Minute)
	if _, err := svc.PostMessage(context.Background(), session.ID, SenderAdmin, MessageInput{Body: "second"}); err != nil {
		t.Fatalf("post second: %v", err)
	}

	cutoff := q.messages[0].CreatedAt
	messages, err := svc.Messages(context.Background(), session.ID, &cutoff)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "second" {
		t.Fatalf("expected only the second message, got %+v", messages)
	}
}

func TestCloseSessionTwiceNotFound(t *testing.T) {
	q := newStubQueries()
	svc := newTestService(q)
	session, _ := svc.OpenSession(context.Background(), OpenInput{})

	if err := svc.CloseSession(context.Background(), session.ID); err != nil {
		t.Fatalf("first close: %v", err)
	}
	err := svc.CloseSession(context.Background(), session.ID)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND on second close, got %v", err)
	}
}

func TestDeleteMessageMissing(t *testing.T) {
	svc := newTestService(newStubQueries())

	err := svc.DeleteMessage(context.Background(), "nope")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestListSessionsRejectsBadStatus(t *testing.T) {
	svc := newTestService(newStubQueries())

	_, err := svc.ListSessions(context.Background(), "archived", 1, 20)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "BAD_REQUEST" {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}
}
