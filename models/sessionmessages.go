package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type SessionMessage struct {
	ID        int64     `json:"id" db:"id"`
	SessionID int64     `json:"-" db:"session_id"`
	Role      string    `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewMessage is a message that has not been stored yet.
type NewMessage struct {
	Role    string
	Content string
}
