package search

import (
	"log"

	"sheetsync/api/internal/grid"
)

// Service is the facade that tries Meilisearch first and falls back to
// scanning the grid in memory.
type Service struct {
	searcher Searcher
	indexer  Indexer
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili) *Service {
	if meili == nil {
		return &Service{}
	}
	return &Service{searcher: meili, indexer: meili}
}

// Search returns the data rows of data matching text. An empty text
// matches every data row.
func (s *Service) Search(recordID string, data grid.Grid, text string) Result {
	if text != "" && s.searcher != nil && s.searcher.Healthy() {
		rows, err := s.searcher.SearchRows(recordID, text)
		if err == nil {
			return Result{Query: text, Rows: verified(data, rows, text), Source: SourceMeili}
		}
		log.Printf("search: meilisearch error, falling back to memory: %v", err)
	}
	return Result{Query: text, Rows: grid.MatchingRows(data, text), Source: SourceMemory}
}

// Healthy reports whether the external index is in use.
func (s *Service) Healthy() bool {
	return s.searcher != nil && s.searcher.Healthy()
}

// IndexTable indexes a record's rows (fire-and-forget to Meilisearch).
func (s *Service) IndexTable(recordID string, data grid.Grid) {
	if s.indexer == nil || !s.Healthy() {
		return
	}
	snapshot := data.Clone()
	go func() {
		if err := s.indexer.IndexTable(recordID, snapshot); err != nil {
			log.Printf("search: index table %s: %v", recordID, err)
		}
	}()
}

// verified keeps the index hits that still exist in data and contain text
// the way the client filter matches it. Hits the index found through typo
// tolerance, or for rows a pending reindex has not caught up with, are
// dropped.
func verified(data grid.Grid, rows []int, text string) []int {
	out := make([]int, 0, len(rows))
	for _, row := range rows {
		if row > grid.HeaderRow && row < len(data) && grid.RowMatches(data[row], text) {
			out = append(out, row)
		}
	}
	return out
}
