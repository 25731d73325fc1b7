package grid

// Persister receives every table snapshot that should be written remotely.
type Persister interface {
	Persist(Table)
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(Table)

func (f PersisterFunc) Persist(t Table) { f(t) }

type resizeState struct {
	col        int
	startWidth int
	active     bool
}

// Store holds the current grid and columns for one client session. It is
// not safe for concurrent use; the sync engine owns it from a single goroutine.
type Store struct {
	data    Grid
	columns []Column
	persist Persister
	resize  resizeState
}

// NewStore seeds a store. A nil persister discards writes.
func NewStore(initial Table, persist Persister) *Store {
	if persist == nil {
		persist = PersisterFunc(func(Table) {})
	}
	return &Store{
		data:    initial.Data.Clone(),
		columns: ValidColumns(initial.Columns),
		persist: persist,
	}
}

// Snapshot returns a deep copy of the current table.
func (s *Store) Snapshot() Table {
	return Table{Data: s.data.Clone(), Columns: CloneColumns(s.columns)}
}

// Data returns a copy of the grid.
func (s *Store) Data() Grid {
	return s.data.Clone()
}

// Columns returns a copy of the column descriptors.
func (s *Store) Columns() []Column {
	return CloneColumns(s.columns)
}

// UpdateData replaces the grid, keeps columns and persists.
func (s *Store) UpdateData(g Grid) {
	s.data = g.Clone()
	s.persist.Persist(s.Snapshot())
}

// UpdateColumns replaces the descriptors (dropping any without an id) and persists.
func (s *Store) UpdateColumns(cols []Column) {
	s.columns = ValidColumns(cols)
	s.persist.Persist(s.Snapshot())
}

// UpdateBoth replaces grid and descriptors together and persists once.
func (s *Store) UpdateBoth(g Grid, cols []Column) {
	s.data = g.Clone()
	s.columns = ValidColumns(cols)
	s.persist.Persist(s.Snapshot())
}

// SetColumnsLocal replaces descriptors without persisting.
func (s *Store) SetColumnsLocal(cols []Column) {
	s.columns = ValidColumns(cols)
}

// ReplaceData swaps in remote data without persisting.
func (s *Store) ReplaceData(g Grid) {
	s.data = g.Clone()
}

// NormalizeLocal fits every row to the column count without persisting.
// With no descriptors the grid is left as is.
func (s *Store) NormalizeLocal() {
	if len(s.columns) == 0 {
		return
	}
	s.data = Table{Data: s.data, Columns: s.columns}.Normalize().Data
}

// Cell returns the cell at (row, col).
func (s *Store) Cell(row, col int) (Cell, bool) {
	return s.data.At(row, col)
}

// SetCell writes text into (row, col) and persists. A row that no longer
// exists is ignored; a short row is padded out to col.
func (s *Store) SetCell(row, col int, value string) bool {
	if row < 0 || row >= len(s.data) || col < 0 {
		return false
	}
	next := s.data.Clone()
	for len(next[row]) <= col {
		next[row] = append(next[row], Text(""))
	}
	next[row][col] = Text(value)
	s.UpdateData(next)
	return true
}

// AddRow appends an empty row sized to the current column count.
func (s *Store) AddRow() {
	row := make([]Cell, len(s.columns))
	for i := range row {
		row[i] = Text("")
	}
	next := s.data.Clone()
	next = append(next, row)
	s.UpdateData(next)
}

// AddColumn appends a descriptor and one empty cell to every row.
func (s *Store) AddColumn(name string) Column {
	if name == "" {
		name = "New column"
	}
	col := Column{
		ID:      NextColumnID(s.columns),
		Name:    name,
		Width:   DefaultColumnWidth,
		Visible: true,
	}
	cols := append(CloneColumns(s.columns), col)
	next := s.data.Clone()
	for i := range next {
		next[i] = append(next[i], Text(""))
	}
	s.UpdateBoth(next, cols)
	return col
}

// DeleteRow removes a row. The header row cannot be deleted.
func (s *Store) DeleteRow(index int) bool {
	if index == HeaderRow || index < 0 || index >= len(s.data) {
		return false
	}
	next := make(Grid, 0, len(s.data)-1)
	for i, row := range s.data {
		if i == index {
			continue
		}
		next = append(next, append([]Cell(nil), row...))
	}
	s.UpdateData(next)
	return true
}

// RemoveColumn drops a descriptor and the matching cell from every row.
func (s *Store) RemoveColumn(index int) bool {
	if index < 0 || index >= len(s.columns) {
		return false
	}
	cols := make([]Column, 0, len(s.columns)-1)
	cols = append(cols, s.columns[:index]...)
	cols = append(cols, s.columns[index+1:]...)
	next := s.data.Clone()
	for i, row := range next {
		if index < len(row) {
			next[i] = append(row[:index], row[index+1:]...)
		}
	}
	s.UpdateBoth(next, cols)
	return true
}

// MoveColumn moves a column and its cells from one position to another.
func (s *Store) MoveColumn(from, to int) bool {
	n := len(s.columns)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return false
	}
	cols := moveItem(CloneColumns(s.columns), from, to)
	next := s.data.Clone()
	for i, row := range next {
		if from < len(row) && to < len(row) {
			next[i] = moveItem(row, from, to)
		}
	}
	s.UpdateBoth(next, cols)
	return true
}

// SetColumnVisible toggles a column's visibility.
func (s *Store) SetColumnVisible(index int, visible bool) bool {
	if index < 0 || index >= len(s.columns) {
		return false
	}
	cols := CloneColumns(s.columns)
	cols[index].Visible = visible
	s.UpdateColumns(cols)
	return true
}

// RenameColumn changes a column's display name.
func (s *Store) RenameColumn(index int, name string) bool {
	if index < 0 || index >= len(s.columns) || name == "" {
		return false
	}
	cols := CloneColumns(s.columns)
	cols[index].Name = name
	s.UpdateColumns(cols)
	return true
}

// BeginResize starts a drag gesture on a column.
func (s *Store) BeginResize(index int) bool {
	if index < 0 || index >= len(s.columns) {
		return false
	}
	s.resize = resizeState{col: index, startWidth: s.columns[index].Width, active: true}
	return true
}

// DragResize applies a pointer offset to the column being resized. The new
// width is kept locally only.
func (s *Store) DragResize(dx int) int {
	if !s.resize.active || s.resize.col >= len(s.columns) {
		return 0
	}
	width := ClampWidth(s.resize.startWidth + dx)
	cols := CloneColumns(s.columns)
	cols[s.resize.col].Width = width
	s.SetColumnsLocal(cols)
	return width
}

// EndResize finishes the gesture and persists the columns once.
func (s *Store) EndResize() {
	if !s.resize.active {
		return
	}
	s.resize = resizeState{}
	s.UpdateColumns(s.columns)
}

// Resizing reports whether a drag gesture is in progress.
func (s *Store) Resizing() bool {
	return s.resize.active
}

// ClampWidth applies the minimum column width.
func ClampWidth(width int) int {
	if width < MinColumnWidth {
		return MinColumnWidth
	}
	return width
}

func moveItem[T any](items []T, from, to int) []T {
	item := items[from]
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	out = append(out[:to], append([]T{item}, out[to:]...)...)
	return out
}
