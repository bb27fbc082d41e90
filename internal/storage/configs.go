package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

type LLMConfigInput struct {
	Name      string
	Provider  string
	BaseURL   string
	ModelID   string
	APIKeyEnc string
}

func (s *Store) ListLLMConfigs(ctx context.Context, userID int64) ([]LLMConfig, error) {
	q := s.sql.Select("id", "user_id", "name", "provider", "base_url", "model_id", "api_key_enc", "is_default", "created_at", "updated_at").
		From("llm_configs").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("is_default DESC", "updated_at DESC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list configs query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	defer rows.Close()

	out := make([]LLMConfig, 0)
	for rows.Next() {
		var c LLMConfig
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Provider, &c.BaseURL, &c.ModelID, &c.APIKeyEnc, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan config row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config rows: %w", err)
	}
	return out, nil
}

func (s *Store) GetLLMConfig(ctx context.Context, userID, id int64) (LLMConfig, error) {
	return s.getLLMConfig(ctx, sq.Eq{"user_id": userID, "id": id})
}

func (s *Store) GetDefaultLLMConfig(ctx context.Context, userID int64) (LLMConfig, error) {
	return s.getLLMConfig(ctx, sq.Eq{"user_id": userID, "is_default": true})
}

func (s *Store) getLLMConfig(ctx context.Context, where sq.Sqlizer) (LLMConfig, error) {
	q := s.sql.Select("id", "user_id", "name", "provider", "base_url", "model_id", "api_key_enc", "is_default", "created_at", "updated_at").
		From("llm_configs").
		Where(where)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return LLMConfig{}, fmt.Errorf("build get config query: %w", err)
	}

	var c LLMConfig
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&c.ID, &c.UserID, &c.Name, &c.Provider, &c.BaseURL, &c.ModelID, &c.APIKeyEnc, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LLMConfig{}, ErrNotFound
		}
		return LLMConfig{}, fmt.Errorf("get config: %w", err)
	}
	return c, nil
}

// CreateLLMConfig inserts a new config. When isDefault is set, all other
// defaults for the user are cleared in the same transaction so the account
// never observes zero or multiple defaults.
func (s *Store) CreateLLMConfig(ctx context.Context, userID int64, in LLMConfigInput, isDefault bool) (LLMConfig, error) {
	now := time.Now().UTC()
	c := LLMConfig{
		ID:        s.ids.Next(),
		UserID:    userID,
		Name:      in.Name,
		Provider:  in.Provider,
		BaseURL:   in.BaseURL,
		ModelID:   in.ModelID,
		APIKeyEnc: in.APIKeyEnc,
		IsDefault: isDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LLMConfig{}, fmt.Errorf("begin create config tx: %w", err)
	}
	defer tx.Rollback()

	if isDefault {
		if err := s.clearDefaults(ctx, tx, userID); err != nil {
			return LLMConfig{}, err
		}
	}

	q := s.sql.Insert("llm_configs").
		Columns("id", "user_id", "name", "provider", "base_url", "model_id", "api_key_enc", "is_default", "created_at", "updated_at").
		Values(c.ID, c.UserID, c.Name, c.Provider, c.BaseURL, c.ModelID, c.APIKeyEnc, c.IsDefault, c.CreatedAt, c.UpdatedAt)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return LLMConfig{}, fmt.Errorf("build create config query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		if isUniqueViolation(err) {
			return LLMConfig{}, ErrConflict
		}
		return LLMConfig{}, fmt.Errorf("create config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return LLMConfig{}, fmt.Errorf("commit create config tx: %w", err)
	}
	return c, nil
}

// UpdateLLMConfig applies only the supplied fields. Returns ErrNotFound when
// no row matched the id+owner pair.
func (s *Store) UpdateLLMConfig(ctx context.Context, userID, id int64, upd LLMConfigUpdate) error {
	q := s.sql.Update("llm_configs").
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"user_id": userID, "id": id})
	if upd.Name != nil {
		q = q.Set("name", *upd.Name)
	}
	if upd.Provider != nil {
		q = q.Set("provider", *upd.Provider)
	}
	if upd.BaseURL != nil {
		q = q.Set("base_url", *upd.BaseURL)
	}
	if upd.ModelID != nil {
		q = q.Set("model_id", *upd.ModelID)
	}
	if upd.APIKeyEnc != nil {
		q = q.Set("api_key_enc", *upd.APIKeyEnc)
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update config query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("update config: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDefaultLLMConfig clears every default for the user and marks the given
// config, both inside one transaction.
func (s *Store) SetDefaultLLMConfig(ctx context.Context, userID, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set default tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.clearDefaults(ctx, tx, userID); err != nil {
		return err
	}

	q := s.sql.Update("llm_configs").
		Set("is_default", true).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"user_id": userID, "id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build set default query: %w", err)
	}
	res, err := tx.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set default tx: %w", err)
	}
	return nil
}

// DeleteLLMConfig nulls the binding on every session that references the
// config, then deletes the row, inside one transaction. Sessions themselves
// are never deleted here.
func (s *Store) DeleteLLMConfig(ctx context.Context, userID, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete config tx: %w", err)
	}
	defer tx.Rollback()

	unbind := s.sql.Update("sessions").
		Set("llm_config_id", nil).
		Where(sq.Eq{"user_id": userID, "llm_config_id": id})
	sqlStr, args, err := unbind.ToSql()
	if err != nil {
		return fmt.Errorf("build unbind sessions query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("unbind sessions: %w", err)
	}

	del := s.sql.Delete("llm_configs").Where(sq.Eq{"user_id": userID, "id": id})
	sqlStr, args, err = del.ToSql()
	if err != nil {
		return fmt.Errorf("build delete config query: %w", err)
	}
	res, err := tx.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete config tx: %w", err)
	}
	return nil
}

func (s *Store) clearDefaults(ctx context.Context, tx *sql.Tx, userID int64) error {
	q := s.sql.Update("llm_configs").
		Set("is_default", false).
		Where(sq.Eq{"user_id": userID, "is_default": true})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build clear defaults query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("clear defaults: %w", err)
	}
	return nil
}
