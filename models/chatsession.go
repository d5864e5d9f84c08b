package models

import "time"

type ChatSession struct {
	ID        int64     `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type SessionWithMessages struct {
	ChatSession
	Messages []SessionMessage `json:"messages"`
}
