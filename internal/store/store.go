package store

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the persistence surface sheetd needs. PostgresStore and
// MemoryStore both satisfy it.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, userID string) (User, error)
	LatestTable(ctx context.Context) (TableRecord, error)
	GetTable(ctx context.Context, id string) (TableRecord, error)
	InsertTable(ctx context.Context, data, columns json.RawMessage) (TableRecord, error)
	UpdateTable(ctx context.Context, id string, data, columns json.RawMessage, updatedAt time.Time) (TableRecord, error)
	Ping(ctx context.Context) error
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
