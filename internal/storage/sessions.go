package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

func (s *Store) CreateSession(ctx context.Context, userID int64, title *string, llmConfigID *int64) (Session, error) {
	now := time.Now().UTC()
	sess := Session{
		ID:          s.ids.Next(),
		UserID:      userID,
		Title:       title,
		LLMConfigID: llmConfigID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	q := s.sql.Insert("sessions").
		Columns("id", "user_id", "title", "llm_config_id", "created_at", "updated_at").
		Values(sess.ID, sess.UserID, sess.Title, sess.LLMConfigID, sess.CreatedAt, sess.UpdatedAt)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Session{}, fmt.Errorf("build create session query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *Store) ListSessions(ctx context.Context, userID int64) ([]Session, error) {
	q := s.sql.Select("id", "user_id", "title", "llm_config_id", "created_at", "updated_at").
		From("sessions").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("updated_at DESC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

func (s *Store) GetSession(ctx context.Context, userID, id int64) (Session, error) {
	q := s.sql.Select("id", "user_id", "title", "llm_config_id", "created_at", "updated_at").
		From("sessions").
		Where(sq.Eq{"user_id": userID, "id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Session{}, fmt.Errorf("build get session query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, sqlStr, args...)
	sess, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// BindSessionConfig rewrites the session's provider binding. Used both for
// explicit per-request overrides and for adopting the account default on
// legacy unbound sessions.
func (s *Store) BindSessionConfig(ctx context.Context, userID, sessionID, llmConfigID int64) error {
	q := s.sql.Update("sessions").
		Set("llm_config_id", llmConfigID).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"user_id": userID, "id": sessionID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build bind session query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("bind session: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSessions removes the given sessions and their messages. Only sessions
// owned by the user are touched; messages go first so a failure never leaves
// orphaned rows behind a missing session.
func (s *Store) DeleteSessions(ctx context.Context, userID int64, sessionIDs []int64) error {
	if len(sessionIDs) == 0 {
		return nil
	}

	owned, err := s.ownedSessionIDs(ctx, userID, sessionIDs)
	if err != nil {
		return err
	}
	if len(owned) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete sessions tx: %w", err)
	}
	defer tx.Rollback()

	delMsgs := s.sql.Delete("messages").Where(sq.Eq{"session_id": owned})
	sqlStr, args, err := delMsgs.ToSql()
	if err != nil {
		return fmt.Errorf("build delete messages query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}

	delSessions := s.sql.Delete("sessions").Where(sq.Eq{"user_id": userID, "id": owned})
	sqlStr, args, err = delSessions.ToSql()
	if err != nil {
		return fmt.Errorf("build delete sessions query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete sessions tx: %w", err)
	}
	return nil
}

func (s *Store) ownedSessionIDs(ctx context.Context, userID int64, sessionIDs []int64) ([]int64, error) {
	q := s.sql.Select("id").
		From("sessions").
		Where(sq.Eq{"user_id": userID, "id": sessionIDs})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build owned sessions query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("owned sessions: %w", err)
	}
	defer rows.Close()

	out := make([]int64, 0, len(sessionIDs))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan owned session id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owned session ids: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (Session, error) {
	var sess Session
	var title sql.NullString
	var cfgID sql.NullInt64
	if err := r.Scan(&sess.ID, &sess.UserID, &title, &cfgID, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return Session{}, fmt.Errorf("scan session row: %w", err)
	}
	if title.Valid {
		sess.Title = &title.String
	}
	if cfgID.Valid {
		sess.LLMConfigID = &cfgID.Int64
	}
	return sess, nil
}

func scanSessionRow(row *sql.Row) (Session, error) {
	var sess Session
	var title sql.NullString
	var cfgID sql.NullInt64
	if err := row.Scan(&sess.ID, &sess.UserID, &title, &cfgID, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return Session{}, err
	}
	if title.Valid {
		sess.Title = &title.String
	}
	if cfgID.Valid {
		sess.LLMConfigID = &cfgID.Int64
	}
	return sess, nil
}
