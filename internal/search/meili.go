package search

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"sheetsync/api/internal/grid"
)

const (
	idxRows     = "sheetsync_rows"
	searchLimit = 1000
)

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	indexed map[string]int
}

// NewMeili creates a Meilisearch client and configures the row index.
// An unreachable server is not an error: the client reports unhealthy
// until the background health check sees it come up.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client:  client,
		done:    make(chan struct{}),
		indexed: map[string]int{},
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: idxRows, PrimaryKey: "id"}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxRows, err)
	}

	index := m.client.Index(idxRows)
	filterable := []interface{}{"recordId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxRows, err)
	}
	searchable := []string{"text"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxRows, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	m.once.Do(func() { close(m.done) })
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) SearchRows(recordID, text string) ([]int, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID: idxRows,
			Query:    text,
			Limit:    searchLimit,
			Filter:   []string{fmt.Sprintf("recordId = %q", recordID)},
		}},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	rows := make([]int, 0)
	for _, sr := range resp.Results {
		for _, hit := range sr.Hits {
			if row, ok := decodeRow(hit); ok {
				rows = append(rows, row)
			}
		}
	}
	sort.Ints(rows)
	return rows, nil
}

func decodeRow(hit meili.Hit) (int, bool) {
	raw, ok := hit["row"]
	if !ok {
		return 0, false
	}
	var row int
	if err := json.Unmarshal(raw, &row); err != nil || row <= grid.HeaderRow {
		return 0, false
	}
	return row, true
}

// IndexTable replaces the indexed rows of recordID with the rows of data.
// Rows beyond the new length that this process indexed earlier are removed.
func (m *Meili) IndexTable(recordID string, data grid.Grid) error {
	docs := RowDocuments(recordID, data)
	index := m.client.Index(idxRows)
	if len(docs) > 0 {
		if _, err := index.AddDocuments(docs, nil); err != nil {
			return fmt.Errorf("index rows: %w", err)
		}
	}

	m.mu.Lock()
	previous := m.indexed[recordID]
	m.indexed[recordID] = len(data)
	m.mu.Unlock()

	for row := max(len(data), grid.HeaderRow+1); row < previous; row++ {
		if _, err := index.DeleteDocument(rowDocumentID(recordID, row), nil); err != nil {
			return fmt.Errorf("delete row %d: %w", row, err)
		}
	}
	return nil
}
