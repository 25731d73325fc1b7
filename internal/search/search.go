// Package search answers row-filter queries for a stored table, through
// Meilisearch when it is reachable and in memory otherwise.
package search

import (
	"strconv"

	"sheetsync/api/internal/grid"
)

const (
	SourceMeili  = "meilisearch"
	SourceMemory = "memory"
)

// Result is the response of the row search endpoint. Rows are grid row
// indexes in ascending order; the header row is never included.
type Result struct {
	Query  string `json:"query"`
	Rows   []int  `json:"rows"`
	Source string `json:"source"`
}

// Searcher finds the data rows of a record that match text.
type Searcher interface {
	SearchRows(recordID, text string) ([]int, error)
	Healthy() bool
}

// Indexer pushes a record's rows into a search index.
type Indexer interface {
	IndexTable(recordID string, data grid.Grid) error
}

// RowDocument is the data we index for one grid row.
type RowDocument struct {
	ID       string `json:"id"`
	RecordID string `json:"recordId"`
	Row      int    `json:"row"`
	Text     string `json:"text"`
}

// RowDocuments flattens every data row of g into an index document.
func RowDocuments(recordID string, g grid.Grid) []RowDocument {
	docs := make([]RowDocument, 0, len(g))
	for i, row := range g {
		if i == grid.HeaderRow {
			continue
		}
		docs = append(docs, RowDocument{
			ID:       rowDocumentID(recordID, i),
			RecordID: recordID,
			Row:      i,
			Text:     rowText(row),
		})
	}
	return docs
}

func rowDocumentID(recordID string, row int) string {
	return recordID + "_" + strconv.Itoa(row)
}

func rowText(row []grid.Cell) string {
	var text []byte
	for i, cell := range row {
		if i > 0 {
			text = append(text, ' ')
		}
		text = append(text, cell.String()...)
	}
	return string(text)
}
