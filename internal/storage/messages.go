package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

func (s *Store) CreateMessage(ctx context.Context, sessionID int64, role, partsJSON string) (Message, error) {
	if partsJSON == "" {
		partsJSON = "[]"
	}
	m := Message{
		ID:        s.ids.Next(),
		SessionID: sessionID,
		Role:      role,
		PartsJSON: partsJSON,
		CreatedAt: time.Now().UTC(),
	}
	q := s.sql.Insert("messages").
		Columns("id", "session_id", "role", "parts", "created_at").
		Values(m.ID, m.SessionID, m.Role, m.PartsJSON, m.CreatedAt)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Message{}, fmt.Errorf("build create message query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return Message{}, fmt.Errorf("create message: %w", err)
	}
	return m, nil
}

// UpdateMessageParts fills a placeholder message in place once streaming has
// completed. Callers hold the id of a row they created, so the update is keyed
// by id alone.
func (s *Store) UpdateMessageParts(ctx context.Context, messageID int64, partsJSON string) error {
	q := s.sql.Update("messages").
		Set("parts", partsJSON).
		Where(sq.Eq{"id": messageID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update message query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMessages returns the messages of a session the user owns, oldest first.
// A session owned by someone else yields ErrNotFound, same as a missing one.
func (s *Store) ListMessages(ctx context.Context, userID, sessionID int64) ([]Message, error) {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	q := s.sql.Select("id", "session_id", "role", "parts", "created_at").
		From("messages").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("created_at ASC", "id ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list messages query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.PartsJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return out, nil
}

// TouchSession bumps updated_at so the session list surfaces recent activity.
func (s *Store) TouchSession(ctx context.Context, userID, sessionID int64) error {
	q := s.sql.Update("sessions").
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"user_id": userID, "id": sessionID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build touch session query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}
