package grid

import (
	"reflect"
	"testing"
)

type recordingPersister struct {
	tables []Table
}

func (r *recordingPersister) Persist(t Table) {
	r.tables = append(r.tables, t)
}

func newTestStore() (*Store, *recordingPersister) {
	p := &recordingPersister{}
	return NewStore(Table{
		Data: FromStrings([][]string{
			{"A", "B"},
			{"a1", "b1"},
			{"a2", "b2"},
		}),
		Columns: []Column{
			{ID: "0", Name: "A", Width: 120, Visible: true},
			{ID: "1", Name: "B", Width: 120, Visible: true},
		},
	}, p), p
}

func TestUpdateBothRoundTrip(t *testing.T) {
	s, p := newTestStore()
	g := Grid{{Text("x"), Number(2)}, {Text("y"), Number(3.5)}}
	cols := []Column{
		{ID: "7", Name: "x", Width: 90, Visible: false},
		{ID: "8", Name: "n", Width: 200, Visible: true},
	}

	s.UpdateBoth(g, cols)

	got := s.Snapshot()
	if !reflect.DeepEqual(got.Data, g) {
		t.Fatalf("data = %+v, want %+v", got.Data, g)
	}
	if !reflect.DeepEqual(got.Columns, cols) {
		t.Fatalf("columns = %+v, want %+v", got.Columns, cols)
	}
	if len(p.tables) != 1 {
		t.Fatalf("expected one persisted snapshot, got %d", len(p.tables))
	}
}

func TestUpdateColumnsDropsMissingIDs(t *testing.T) {
	s, p := newTestStore()
	s.UpdateColumns([]Column{{ID: "", Name: "ghost"}, {ID: "3", Name: "kept", Width: 80, Visible: true}})

	cols := s.Columns()
	if len(cols) != 1 || cols[0].ID != "3" {
		t.Fatalf("unexpected columns: %+v", cols)
	}
	if len(p.tables[0].Columns) != 1 {
		t.Fatalf("persisted columns should be filtered too: %+v", p.tables[0].Columns)
	}
}

func TestStoreCopiesInput(t *testing.T) {
	s, _ := newTestStore()
	g := FromStrings([][]string{{"h"}, {"v"}})
	s.UpdateData(g)
	g[1][0] = Text("mutated")

	if cell, _ := s.Cell(1, 0); cell.String() != "v" {
		t.Fatalf("store shares caller memory: got %q", cell.String())
	}
}

func TestDeleteHeaderRowIsNoop(t *testing.T) {
	s, p := newTestStore()
	before := s.Data()

	if s.DeleteRow(0) {
		t.Fatal("DeleteRow(0) should refuse")
	}
	if !reflect.DeepEqual(s.Data(), before) {
		t.Fatal("grid changed after deleting header row")
	}
	if len(p.tables) != 0 {
		t.Fatal("no write expected for a rejected delete")
	}
}

func TestDeleteRowKeepsOrder(t *testing.T) {
	s, _ := newTestStore()
	if !s.DeleteRow(1) {
		t.Fatal("DeleteRow(1) failed")
	}
	want := FromStrings([][]string{{"A", "B"}, {"a2", "b2"}})
	if !reflect.DeepEqual(s.Data(), want) {
		t.Fatalf("data = %v, want %v", s.Data().Strings(), want.Strings())
	}
}

func TestAddColumnAppendsCellToEveryRow(t *testing.T) {
	s, p := newTestStore()
	col := s.AddColumn("")

	if col.ID != "2" || col.Name != "New column" || col.Width != DefaultColumnWidth || !col.Visible {
		t.Fatalf("unexpected column: %+v", col)
	}
	want := FromStrings([][]string{
		{"A", "B", ""},
		{"a1", "b1", ""},
		{"a2", "b2", ""},
	})
	if !reflect.DeepEqual(s.Data(), want) {
		t.Fatalf("data = %v", s.Data().Strings())
	}
	if len(s.Columns()) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(s.Columns()))
	}
	if len(p.tables) != 1 {
		t.Fatalf("expected a single combined write, got %d", len(p.tables))
	}
}

func TestAddColumnNeverReusesRemovedID(t *testing.T) {
	s, _ := newTestStore()
	s.AddColumn("C")
	s.RemoveColumn(1)
	col := s.AddColumn("D")
	if col.ID != "3" {
		t.Fatalf("expected id 3, got %q", col.ID)
	}
}

func TestAddRowUsesColumnCount(t *testing.T) {
	s, _ := newTestStore()
	s.AddRow()
	data := s.Data()
	last := data[len(data)-1]
	if len(last) != 2 || !last[0].IsEmpty() || !last[1].IsEmpty() {
		t.Fatalf("unexpected new row: %+v", last)
	}
}

func TestRemoveColumnKeepsCellsAligned(t *testing.T) {
	s, _ := newTestStore()
	s.RemoveColumn(0)

	want := FromStrings([][]string{{"B"}, {"b1"}, {"b2"}})
	if !reflect.DeepEqual(s.Data(), want) {
		t.Fatalf("data = %v", s.Data().Strings())
	}
	if cols := s.Columns(); len(cols) != 1 || cols[0].ID != "1" {
		t.Fatalf("columns = %+v", cols)
	}
}

func TestMoveColumnMovesCells(t *testing.T) {
	s, _ := newTestStore()
	s.AddColumn("C")
	if !s.MoveColumn(2, 0) {
		t.Fatal("MoveColumn failed")
	}
	cols := s.Columns()
	if cols[0].Name != "C" || cols[1].Name != "A" || cols[2].Name != "B" {
		t.Fatalf("unexpected column order: %+v", cols)
	}
	if got := s.Data()[1]; got[1].String() != "a1" || got[2].String() != "b1" {
		t.Fatalf("cells did not follow columns: %v", s.Data().Strings())
	}
}

func TestResizeClampsAndPersistsOnRelease(t *testing.T) {
	s, p := newTestStore()
	if !s.BeginResize(0) {
		t.Fatal("BeginResize failed")
	}
	if w := s.DragResize(-500); w != MinColumnWidth {
		t.Fatalf("width = %d, want %d", w, MinColumnWidth)
	}
	s.DragResize(-20)
	s.DragResize(-110)
	if len(p.tables) != 0 {
		t.Fatalf("drag should not persist, got %d writes", len(p.tables))
	}
	s.EndResize()
	if len(p.tables) != 1 {
		t.Fatalf("release should persist once, got %d writes", len(p.tables))
	}
	if got := p.tables[0].Columns[0].Width; got != MinColumnWidth {
		t.Fatalf("persisted width = %d", got)
	}
	if s.Resizing() {
		t.Fatal("gesture should be over")
	}
}

func TestClampWidth(t *testing.T) {
	if got := ClampWidth(10); got != 60 {
		t.Fatalf("ClampWidth(10) = %d, want 60", got)
	}
	if got := ClampWidth(200); got != 200 {
		t.Fatalf("ClampWidth(200) = %d", got)
	}
}

func TestSetCellOutOfRange(t *testing.T) {
	s, p := newTestStore()
	if s.SetCell(9, 0, "x") {
		t.Fatal("expected missing row to be ignored")
	}
	if !s.SetCell(1, 3, "x") {
		t.Fatal("expected short row to be padded")
	}
	if got := s.Data()[1]; len(got) != 4 || got[3].String() != "x" {
		t.Fatalf("row = %+v", got)
	}
	if len(p.tables) != 1 {
		t.Fatalf("expected one write, got %d", len(p.tables))
	}
}

func TestNormalizePadsAndTruncates(t *testing.T) {
	table := Table{
		Data:    Grid{{Text("a")}, {Text("b"), Text("c"), Text("d")}},
		Columns: []Column{{ID: "0", Name: "a"}, {ID: "1", Name: "b"}},
	}
	got := table.Normalize()
	for i, row := range got.Data {
		if len(row) != 2 {
			t.Fatalf("row %d has %d cells", i, len(row))
		}
	}
	if !got.Data[0][1].IsEmpty() {
		t.Fatal("expected padding with empty text")
	}
}

func TestNormalizeLocalFitsRowsWithoutPersisting(t *testing.T) {
	s, p := newTestStore()
	s.ReplaceData(FromStrings([][]string{{"A", "B", "C"}, {"a1"}}))
	s.NormalizeLocal()

	want := [][]string{{"A", "B"}, {"a1", ""}}
	if got := s.Data().Strings(); !reflect.DeepEqual(got, want) {
		t.Fatalf("data = %q, want %q", got, want)
	}
	if len(p.tables) != 0 {
		t.Fatalf("persisted %d times, want 0", len(p.tables))
	}
}

func TestNormalizeLocalWithoutColumnsKeepsData(t *testing.T) {
	s := NewStore(Table{Data: FromStrings([][]string{{"A"}, {"a1", "b1"}})}, nil)
	s.NormalizeLocal()
	if got := s.Data().Strings(); len(got[1]) != 2 {
		t.Fatalf("data = %q, rows must not be truncated to zero", got)
	}
}
