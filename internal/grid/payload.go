package grid

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseData decodes a stored or broadcast data field. ok is false unless the
// value is an array of arrays of scalars; callers keep their current grid then.
func ParseData(raw json.RawMessage) (Grid, bool) {
	if !isJSONArray(raw) {
		return nil, false
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false
	}
	out := make(Grid, 0, len(rows))
	for _, rawRow := range rows {
		if !isJSONArray(rawRow) {
			return nil, false
		}
		var row []Cell
		if err := json.Unmarshal(rawRow, &row); err != nil {
			return nil, false
		}
		if row == nil {
			row = []Cell{}
		}
		out = append(out, row)
	}
	return out, true
}

// ParseColumns decodes a columns field. ok is false when the value is not an
// array. Entries without a non-empty id and name are dropped, width falls back
// to DefaultColumnWidth when missing, non-numeric or not positive, and a
// column is visible unless it says visible:false.
func ParseColumns(raw json.RawMessage) ([]Column, bool) {
	if !isJSONArray(raw) {
		return nil, false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	out := make([]Column, 0, len(entries))
	for _, entry := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
			continue
		}
		id := scalarText(fields["id"])
		name := scalarText(fields["name"])
		if id == "" || name == "" {
			continue
		}
		out = append(out, Column{
			ID:      id,
			Name:    name,
			Width:   coerceWidth(fields["width"]),
			Visible: !isJSONFalse(fields["visible"]),
		})
	}
	return out, true
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isJSONFalse(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "false"
}

// scalarText renders a string or non-zero number; anything else is "".
func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f != 0 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func coerceWidth(raw json.RawMessage) int {
	if len(raw) == 0 {
		return DefaultColumnWidth
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return DefaultColumnWidth
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return DefaultColumnWidth
		}
		f = parsed
	}
	if math.IsNaN(f) || f <= 0 {
		return DefaultColumnWidth
	}
	return int(math.Round(f))
}
