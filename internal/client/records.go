// Package client is the sync engine a sheetsync front end runs: it owns the
// local grid, persists every change and applies remote change events.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"sheetsync/api/internal/grid"
)

// ErrNoRecord is returned by Records.Latest when nothing has been stored yet.
var ErrNoRecord = errors.New("no table record")

// Record is a stored table as the server returns it. Data and Columns are
// kept raw; they are validated on receipt.
type Record struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	Columns   json.RawMessage `json:"columns"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Records is the remote record store.
type Records interface {
	Latest(ctx context.Context) (Record, error)
	Insert(ctx context.Context, t grid.Table) (Record, error)
	Update(ctx context.Context, id string, t grid.Table, updatedAt time.Time) (Record, error)
}

// Write is the request body for inserts and updates.
type Write struct {
	Data      grid.Grid     `json:"data"`
	Columns   []grid.Column `json:"columns"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
}

// recordFields pulls the three fields the engine cares about out of a raw
// record, tolerating anything malformed.
func recordFields(raw json.RawMessage) (id string, data, columns json.RawMessage, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return "", nil, nil, false
	}
	_ = json.Unmarshal(fields["id"], &id)
	return id, fields["data"], fields["columns"], true
}
