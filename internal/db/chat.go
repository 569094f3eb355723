package db

import (
	"context"
	"time"
)

const sessionColumns = `id, visitor_name, status, created_at, closed_at`
const messageColumns = `id, session_id, sender, body, created_at`

func scanSession(row interface{ Scan(...any) error }) (ChatSession, error) {
	var s ChatSession
	err := row.Scan(&s.ID, &s.VisitorName, &s.Status, &s.CreatedAt, &s.ClosedAt)
	return s, err
}

func scanMessage(row interface{ Scan(...any) error }) (ChatMessage, error) {
	var m ChatMessage
	err := row.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Body, &m.CreatedAt)
	return m, err
}

// CreateChatSession opens a new visitor session.
func (q *Queries) CreateChatSession(ctx context.Context, id, visitorName string) (ChatSession, error) {
	return scanSession(q.db.QueryRow(ctx,
		`INSERT INTO chat_sessions (id, visitor_name, status) VALUES ($1, $2, 'open')
		 RETURNING `+sessionColumns, id, visitorName))
}

// GetChatSession fetches a session by id.
func (q *Queries) GetChatSession(ctx context.Context, id string) (ChatSession, error) {
	return scanSession(q.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM chat_sessions WHERE id = $1`, id))
}

// ListChatSessions returns sessions, optionally filtered by status.
func (q *Queries) ListChatSessions(ctx context.Context, status *string, limit, offset int32) ([]ChatSession, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+sessionColumns+` FROM chat_sessions
		 WHERE ($1::text IS NULL OR status = $1)
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []ChatSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// CloseChatSession marks a session closed.
func (q *Queries) CloseChatSession(ctx context.Context, id string, at time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE chat_sessions SET status = 'closed', closed_at = $2 WHERE id = $1 AND status = 'open'`,
		id, at)
	return tag.RowsAffected(), err
}

// InsertChatMessage stores a message in a session.
func (q *Queries) InsertChatMessage(ctx context.Context, id, sessionID, sender, body string) (ChatMessage, error) {
	return scanMessage(q.db.QueryRow(ctx,
		`INSERT INTO chat_messages (id, session_id, sender, body) VALUES ($1,$2,$3,$4)
		 RETURNING `+messageColumns, id, sessionID, sender, body))
}

// ListChatMessages returns a session's messages oldest first, optionally
// only those after the given instant for polling.
func (q *Queries) ListChatMessages(ctx context.Context, sessionID string, after *time.Time) ([]ChatMessage, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+messageColumns+` FROM chat_messages
		 WHERE session_id = $1 AND ($2::timestamptz IS NULL OR created_at > $2)
		 ORDER BY created_at`,
		sessionID, after)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var messages []ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// DeleteChatMessage removes a single message; used by moderation.
func (q *Queries) DeleteChatMessage(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM chat_messages WHERE id = $1`, id)
	return tag.RowsAffected(), err
}
