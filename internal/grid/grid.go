package grid

import (
	"strconv"
)

const (
	// DefaultColumnWidth is used for new, imported and repaired columns.
	DefaultColumnWidth = 120
	// MinColumnWidth is the hard floor for a resized column.
	MinColumnWidth = 60
	// HeaderRow is the index of the row holding the column titles.
	HeaderRow = 0
)

// Grid is a row-major matrix of cells. Row 0 is the header row.
type Grid [][]Cell

// Column describes one grid column. Cells are still joined to columns by
// position; ID is stable and never reassigned.
type Column struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Width   int    `json:"width"`
	Visible bool   `json:"visible"`
}

// Table is the pair of grid data and column descriptors that gets persisted.
type Table struct {
	Data    Grid     `json:"data"`
	Columns []Column `json:"columns"`
}

// Clone deep-copies the grid.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = append([]Cell(nil), row...)
	}
	return out
}

// Width returns the widest row length.
func (g Grid) Width() int {
	width := 0
	for _, row := range g {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// At returns the cell at (row, col) and whether it exists.
func (g Grid) At(row, col int) (Cell, bool) {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return Cell{}, false
	}
	return g[row][col], true
}

// Strings renders every cell as text.
func (g Grid) Strings() [][]string {
	out := make([][]string, len(g))
	for i, row := range g {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = cell.String()
		}
	}
	return out
}

// FromStrings builds a text-only grid.
func FromStrings(rows [][]string) Grid {
	out := make(Grid, len(rows))
	for i, row := range rows {
		out[i] = make([]Cell, len(row))
		for j, value := range row {
			out[i][j] = Text(value)
		}
	}
	return out
}

// CloneColumns copies a descriptor list.
func CloneColumns(cols []Column) []Column {
	if cols == nil {
		return nil
	}
	return append([]Column(nil), cols...)
}

// ValidColumns drops descriptors without an id.
func ValidColumns(cols []Column) []Column {
	out := make([]Column, 0, len(cols))
	for _, col := range cols {
		if col.ID == "" {
			continue
		}
		out = append(out, col)
	}
	return out
}

// Clone deep-copies the table.
func (t Table) Clone() Table {
	return Table{Data: t.Data.Clone(), Columns: CloneColumns(t.Columns)}
}

// Normalize pads or truncates every row to the column count.
func (t Table) Normalize() Table {
	out := t.Clone()
	width := len(out.Columns)
	for i, row := range out.Data {
		switch {
		case len(row) < width:
			for len(row) < width {
				row = append(row, Text(""))
			}
		case len(row) > width:
			row = row[:width]
		}
		out.Data[i] = row
	}
	return out
}

// HeaderColumns builds fresh descriptors from the header row: sequential ids,
// default width, all visible. Missing header cells get a positional name.
func HeaderColumns(g Grid) []Column {
	width := g.Width()
	cols := make([]Column, width)
	for i := range cols {
		name := ""
		if len(g) > 0 && i < len(g[HeaderRow]) {
			name = g[HeaderRow][i].String()
		}
		if name == "" {
			name = "Column " + strconv.Itoa(i+1)
		}
		cols[i] = Column{
			ID:      strconv.Itoa(i),
			Name:    name,
			Width:   DefaultColumnWidth,
			Visible: true,
		}
	}
	return cols
}

// NextColumnID returns the next creation-order id, one past the largest
// numeric id in use, so removed ids are never handed out again.
func NextColumnID(cols []Column) string {
	next := len(cols)
	for _, col := range cols {
		if n, err := strconv.Atoi(col.ID); err == nil && n+1 > next {
			next = n + 1
		}
	}
	return strconv.Itoa(next)
}

// DefaultTable is the demo table shown before anything has been stored.
func DefaultTable() Table {
	return Table{
		Data: FromStrings([][]string{
			{"Name", "Role", "Department", "Status", "Priority"},
			{"Ahmed Cohen", "Developer", "Technology", "Active", "High"},
			{"Sarah Levi", "Designer", "Design", "Active", "Medium"},
			{"Yosef Avidan", "Manager", "Management", "On leave", "Low"},
		}),
		Columns: []Column{
			{ID: "0", Name: "Name", Width: 150, Visible: true},
			{ID: "1", Name: "Role", Width: 120, Visible: true},
			{ID: "2", Name: "Department", Width: 100, Visible: true},
			{ID: "3", Name: "Status", Width: 100, Visible: true},
			{ID: "4", Name: "Priority", Width: 100, Visible: true},
		},
	}
}
