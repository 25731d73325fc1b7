package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sheetsync/api/internal/grid"
)

// Gateway upserts the table record by identity. Before any record is known
// it inserts; afterwards it updates the known record.
type Gateway struct {
	records Records
	now     func() time.Time

	mu       sync.Mutex
	recordID string
}

// NewGateway creates a gateway with no known record.
func NewGateway(records Records) *Gateway {
	return &Gateway{records: records, now: time.Now}
}

// RecordID returns the known record id, or "".
func (g *Gateway) RecordID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.recordID
}

// Adopt makes id the record all later saves update. Empty ids are ignored.
func (g *Gateway) Adopt(id string) {
	if id == "" {
		return
	}
	g.mu.Lock()
	g.recordID = id
	g.mu.Unlock()
}

// Load fetches the most recent record and adopts its id.
func (g *Gateway) Load(ctx context.Context) (Record, error) {
	rec, err := g.records.Latest(ctx)
	if err != nil {
		return Record{}, err
	}
	g.Adopt(rec.ID)
	return rec, nil
}

// Save writes a deep copy of t. Columns without an id are dropped.
func (g *Gateway) Save(ctx context.Context, t grid.Table) (Record, error) {
	payload := grid.Table{Data: t.Data.Clone(), Columns: grid.ValidColumns(t.Columns)}

	id := g.RecordID()
	if id == "" {
		rec, err := g.records.Insert(ctx, payload)
		if err != nil {
			return Record{}, fmt.Errorf("insert table: %w", err)
		}
		g.Adopt(rec.ID)
		return rec, nil
	}

	rec, err := g.records.Update(ctx, id, payload, g.now().UTC())
	if err != nil {
		return Record{}, fmt.Errorf("update table %s: %w", id, err)
	}
	return rec, nil
}
