package edit

import (
	"testing"

	"sheetsync/api/internal/grid"
)

func newTarget() (*grid.Store, *int) {
	writes := 0
	store := grid.NewStore(grid.Table{
		Data: grid.FromStrings([][]string{
			{"h0", "h1", "h2"},
			{"a", "b", "old"},
			{"c", "d", "e"},
		}),
		Columns: []grid.Column{{ID: "0", Name: "h0"}, {ID: "1", Name: "h1"}, {ID: "2", Name: "h2"}},
	}, grid.PersisterFunc(func(grid.Table) { writes++ }))
	return store, &writes
}

func cellText(t *testing.T, store *grid.Store, row, col int) string {
	t.Helper()
	cell, ok := store.Cell(row, col)
	if !ok {
		t.Fatalf("cell (%d,%d) missing", row, col)
	}
	return cell.String()
}

func TestCommitWritesBuffer(t *testing.T) {
	store, writes := newTarget()
	var s Session

	if st := s.Handle(SelectCell(1, 2), store); st != Editing {
		t.Fatalf("state = %v, want editing", st)
	}
	if s.Buffer() != "old" {
		t.Fatalf("buffer = %q, want old", s.Buffer())
	}
	s.Handle(Type("new"), store)
	if st := s.Handle(Event{Kind: Commit}, store); st != Idle {
		t.Fatalf("state = %v, want idle", st)
	}
	if got := cellText(t, store, 1, 2); got != "new" {
		t.Fatalf("cell = %q, want new", got)
	}
	if *writes != 1 {
		t.Fatalf("writes = %d, want 1", *writes)
	}
}

func TestCancelLeavesGrid(t *testing.T) {
	store, writes := newTarget()
	var s Session

	s.Handle(SelectCell(1, 2), store)
	s.Handle(Type("new"), store)
	s.Handle(Event{Kind: Cancel}, store)

	if s.State() != Idle {
		t.Fatalf("state = %v, want idle", s.State())
	}
	if got := cellText(t, store, 1, 2); got != "old" {
		t.Fatalf("cell = %q, want old", got)
	}
	if *writes != 0 {
		t.Fatalf("cancel should not write, got %d", *writes)
	}
}

func TestBlurCommits(t *testing.T) {
	store, _ := newTarget()
	var s Session

	s.Handle(SelectCell(2, 0), store)
	s.Handle(Type("blurred"), store)
	s.Handle(Event{Kind: Blur}, store)

	if got := cellText(t, store, 2, 0); got != "blurred" {
		t.Fatalf("cell = %q", got)
	}
}

func TestSelectWhileEditingCommitsFirst(t *testing.T) {
	store, writes := newTarget()
	var s Session

	s.Handle(SelectCell(1, 0), store)
	s.Handle(Type("first"), store)
	s.Handle(SelectCell(2, 1), store)

	if got := cellText(t, store, 1, 0); got != "first" {
		t.Fatalf("previous edit lost: %q", got)
	}
	row, col, ok := s.Active()
	if !ok || row != 2 || col != 1 {
		t.Fatalf("active = (%d,%d,%v)", row, col, ok)
	}
	if s.Buffer() != "d" {
		t.Fatalf("buffer = %q, want d", s.Buffer())
	}
	if *writes != 1 {
		t.Fatalf("writes = %d", *writes)
	}
}

func TestReselectSameCellSeesCommittedValue(t *testing.T) {
	store, _ := newTarget()
	var s Session

	s.Handle(SelectCell(1, 1), store)
	s.Handle(Type("typed"), store)
	s.Handle(SelectCell(1, 1), store)

	if s.Buffer() != "typed" {
		t.Fatalf("buffer = %q, want typed", s.Buffer())
	}
}

func TestIdleIgnoresCommitAndInput(t *testing.T) {
	store, writes := newTarget()
	var s Session

	s.Handle(Type("x"), store)
	s.Handle(Event{Kind: Commit}, store)
	s.Handle(Event{Kind: Cancel}, store)

	if s.State() != Idle || s.Buffer() != "" {
		t.Fatalf("unexpected session: %v %q", s.State(), s.Buffer())
	}
	if *writes != 0 {
		t.Fatalf("writes = %d", *writes)
	}
}

func TestSelectMissingCellStartsEmpty(t *testing.T) {
	store, _ := newTarget()
	var s Session
	s.Handle(SelectCell(1, 9), store)
	if s.Buffer() != "" {
		t.Fatalf("buffer = %q", s.Buffer())
	}
}
