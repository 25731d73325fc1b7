package store

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableRecord is one stored table. Data and Columns are stored exactly as
// written; readers validate them.
type TableRecord struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	Columns   json.RawMessage `json:"columns"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
