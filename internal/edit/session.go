// Package edit implements the single-cell edit session as an explicit state
// machine: Idle or Editing(row, col, buffer).
package edit

import (
	"fmt"

	"sheetsync/api/internal/grid"
)

// State is the session state.
type State int

const (
	Idle State = iota
	Editing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Kind identifies a user event.
type Kind int

const (
	// Select opens an editor on a cell.
	Select Kind = iota
	// Input replaces the pending text.
	Input
	// Commit is the confirm key.
	Commit
	// Blur is loss of focus; it commits.
	Blur
	// Cancel is the cancel key; it discards the buffer.
	Cancel
)

// Event is one user action.
type Event struct {
	Kind Kind
	Row  int
	Col  int
	Text string
}

// SelectCell builds a Select event.
func SelectCell(row, col int) Event { return Event{Kind: Select, Row: row, Col: col} }

// Type builds an Input event.
func Type(text string) Event { return Event{Kind: Input, Text: text} }

// Target is the grid the session reads from and commits into.
type Target interface {
	Cell(row, col int) (grid.Cell, bool)
	SetCell(row, col int, value string) bool
}

// Session tracks the one cell being edited.
type Session struct {
	state  State
	row    int
	col    int
	buffer string
}

type handler func(s *Session, ev Event, target Target)

// transitions is the full (state, event) table. Missing entries are ignored.
var transitions = map[State]map[Kind]handler{
	Idle: {
		Select: (*Session).open,
	},
	Editing: {
		Select: func(s *Session, ev Event, target Target) {
			// The previous cell is committed before the new one is read.
			s.commit(target)
			s.open(ev, target)
		},
		Input:  (*Session).input,
		Commit: func(s *Session, _ Event, target Target) { s.commit(target) },
		Blur:   func(s *Session, _ Event, target Target) { s.commit(target) },
		Cancel: func(s *Session, _ Event, _ Target) { s.reset() },
	},
}

// Handle applies an event and returns the resulting state.
func (s *Session) Handle(ev Event, target Target) State {
	if h, ok := transitions[s.state][ev.Kind]; ok {
		h(s, ev, target)
	}
	return s.state
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Active returns the cell being edited, if any.
func (s *Session) Active() (row, col int, ok bool) {
	if s.state != Editing {
		return 0, 0, false
	}
	return s.row, s.col, true
}

// Buffer returns the pending text.
func (s *Session) Buffer() string {
	return s.buffer
}

func (s *Session) open(ev Event, target Target) {
	s.state = Editing
	s.row = ev.Row
	s.col = ev.Col
	s.buffer = ""
	if cell, ok := target.Cell(ev.Row, ev.Col); ok {
		s.buffer = cell.String()
	}
}

func (s *Session) input(ev Event, _ Target) {
	s.buffer = ev.Text
}

func (s *Session) commit(target Target) {
	target.SetCell(s.row, s.col, s.buffer)
	s.reset()
}

func (s *Session) reset() {
	s.state = Idle
	s.row = 0
	s.col = 0
	s.buffer = ""
}
