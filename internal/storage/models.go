package storage

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type LLMConfig struct {
	ID        int64
	UserID    int64
	Name      string
	Provider  string
	BaseURL   string
	ModelID   string
	APIKeyEnc string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LLMConfigUpdate carries the fields of a partial update. Nil means "leave
// unchanged". APIKeyEnc is already encrypted by the caller.
type LLMConfigUpdate struct {
	Name      *string
	Provider  *string
	BaseURL   *string
	ModelID   *string
	APIKeyEnc *string
}

type Session struct {
	ID          int64
	UserID      int64
	Title       *string
	LLMConfigID *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Message struct {
	ID        int64
	SessionID int64
	Role      string
	PartsJSON string
	CreatedAt time.Time
}
