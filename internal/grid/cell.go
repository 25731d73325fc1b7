// Package grid holds the in-memory table model: cells, rows, column
// descriptors and the store that owns them for one client session.
package grid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Cell is a scalar cell value: either text or a number.
type Cell struct {
	text  string
	num   float64
	isNum bool
}

// Text returns a text cell.
func Text(s string) Cell {
	return Cell{text: s}
}

// Number returns a numeric cell.
func Number(f float64) Cell {
	return Cell{num: f, isNum: true}
}

// IsNumber reports whether the cell holds a number.
func (c Cell) IsNumber() bool {
	return c.isNum
}

// Float returns the numeric value and whether the cell is numeric.
func (c Cell) Float() (float64, bool) {
	return c.num, c.isNum
}

// String renders the cell the way an editor shows it.
func (c Cell) String() string {
	if c.isNum {
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	}
	return c.text
}

// IsEmpty reports whether the cell is the empty string.
func (c Cell) IsEmpty() bool {
	return !c.isNum && c.text == ""
}

func (c Cell) MarshalJSON() ([]byte, error) {
	if c.isNum {
		return json.Marshal(c.num)
	}
	return json.Marshal(c.text)
}

// UnmarshalJSON accepts strings and numbers. null decodes to the empty string
// and booleans to their text form; objects and arrays are rejected.
func (c *Cell) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return fmt.Errorf("empty cell value")
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decode text cell: %w", err)
		}
		*c = Text(s)
	case 'n':
		*c = Text("")
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("decode bool cell: %w", err)
		}
		*c = Text(strconv.FormatBool(b))
	case '{', '[':
		return fmt.Errorf("cell must be a scalar")
	default:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return fmt.Errorf("decode numeric cell: %w", err)
		}
		*c = Number(f)
	}
	return nil
}
