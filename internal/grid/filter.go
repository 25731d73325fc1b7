package grid

import "strings"

// Filter keeps the header row plus every row with a cell containing term,
// case-insensitively. An empty term returns the grid unchanged.
func Filter(g Grid, term string) Grid {
	if term == "" {
		return g.Clone()
	}
	needle := strings.ToLower(term)
	out := make(Grid, 0, len(g))
	for i, row := range g {
		if i == HeaderRow || rowMatches(row, needle) {
			out = append(out, append([]Cell(nil), row...))
		}
	}
	return out
}

// MatchingRows returns the indexes of non-header rows matching term.
func MatchingRows(g Grid, term string) []int {
	needle := strings.ToLower(term)
	out := make([]int, 0)
	for i, row := range g {
		if i == HeaderRow {
			continue
		}
		if needle == "" || rowMatches(row, needle) {
			out = append(out, i)
		}
	}
	return out
}

// RowMatches reports whether any cell of row contains term, case-insensitively.
func RowMatches(row []Cell, term string) bool {
	return rowMatches(row, strings.ToLower(term))
}

func rowMatches(row []Cell, needle string) bool {
	for _, cell := range row {
		if strings.Contains(strings.ToLower(cell.String()), needle) {
			return true
		}
	}
	return false
}

// Stats summarises what a view shows: data rows (header excluded) and
// visible columns.
type Stats struct {
	Rows           int `json:"rows"`
	VisibleColumns int `json:"visibleColumns"`
}

// Summarize computes Stats for an already filtered grid.
func Summarize(g Grid, cols []Column) Stats {
	stats := Stats{}
	if len(g) > 0 {
		stats.Rows = len(g) - 1
	}
	for _, col := range cols {
		if col.Visible {
			stats.VisibleColumns++
		}
	}
	return stats
}
