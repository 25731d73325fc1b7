package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"sheetsync/api/internal/client"
	"sheetsync/api/internal/grid"
	"sheetsync/api/internal/theme"
)

// Output formats accepted by --output.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

const (
	maxColumnWidth = 40
	minColumnWidth = 3
)

func validFormat(f string) bool {
	switch f {
	case FormatTable, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// printer renders command results in the selected format.
type printer struct {
	w      io.Writer
	format string
	theme  theme.Theme
}

// value writes v as JSON or YAML. In table format it falls back to JSON.
func (p *printer) value(v any) error {
	if p.format == FormatYAML {
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// tableView is the structured form of a grid view for json/yaml output.
type tableView struct {
	RecordID string       `json:"recordId,omitempty" yaml:"recordId,omitempty"`
	Columns  []columnView `json:"columns" yaml:"columns"`
	Rows     []rowView    `json:"rows" yaml:"rows"`
	Stats    grid.Stats   `json:"stats" yaml:"stats"`
	Filter   string       `json:"filter,omitempty" yaml:"filter,omitempty"`
}

type columnView struct {
	Index   int    `json:"index" yaml:"index"`
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Width   int    `json:"width" yaml:"width"`
	Visible bool   `json:"visible" yaml:"visible"`
}

type rowView struct {
	Row   int      `json:"row" yaml:"row"`
	Cells []string `json:"cells" yaml:"cells"`
}

func columnViews(cols []grid.Column) []columnView {
	out := make([]columnView, 0, len(cols))
	for i, c := range cols {
		out = append(out, columnView{Index: i, ID: c.ID, Name: c.Name, Width: c.Width, Visible: c.Visible})
	}
	return out
}

// gridRows lists the data rows below the header. rows[k] is the index in
// the full grid of data[k+1]; nil means data is the full grid.
func gridRows(data grid.Grid, rows []int) []rowView {
	out := make([]rowView, 0, len(data))
	for i := 1; i < len(data); i++ {
		index := i
		if rows != nil && i-1 < len(rows) {
			index = rows[i-1]
		}
		cells := make([]string, len(data[i]))
		for j, c := range data[i] {
			cells[j] = c.String()
		}
		out = append(out, rowView{Row: index, Cells: cells})
	}
	return out
}

func newTableView(recordID, filter string, view client.View, rows []int) tableView {
	return tableView{
		RecordID: recordID,
		Columns:  columnViews(view.Columns),
		Rows:     gridRows(view.Data, rows),
		Stats:    view.Stats,
		Filter:   filter,
	}
}

// grid renders a view: visible columns only, with the row index first.
func (p *printer) grid(tv tableView) error {
	if p.format != FormatTable {
		return p.value(tv)
	}

	headers := []string{"#"}
	var visible []int
	for _, c := range tv.Columns {
		if c.Visible {
			headers = append(headers, c.Name)
			visible = append(visible, c.Index)
		}
	}
	rows := make([][]string, 0, len(tv.Rows))
	for _, r := range tv.Rows {
		line := []string{strconv.Itoa(r.Row)}
		for _, idx := range visible {
			cell := ""
			if idx < len(r.Cells) {
				cell = r.Cells[idx]
			}
			line = append(line, cell)
		}
		rows = append(rows, line)
	}

	p.table(headers, rows)
	p.theme.Border().Fprintf(p.w, "%d rows, %d visible columns\n", tv.Stats.Rows, tv.Stats.VisibleColumns)
	return nil
}

func (p *printer) columns(cols []columnView) error {
	if p.format != FormatTable {
		return p.value(cols)
	}
	rows := make([][]string, 0, len(cols))
	for _, c := range cols {
		rows = append(rows, []string{
			strconv.Itoa(c.Index), c.ID, c.Name, strconv.Itoa(c.Width), strconv.FormatBool(c.Visible),
		})
	}
	p.table([]string{"index", "id", "name", "width", "visible"}, rows)
	return nil
}

// table prints headers and rows as aligned text columns.
func (p *printer) table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}
	for i := range widths {
		if widths[i] > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
		if widths[i] < minColumnWidth {
			widths[i] = minColumnWidth
		}
	}

	header := p.theme.Header()
	dim := p.theme.Border()
	sep := dim.Sprint("| ")

	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(p.w, sep)
		}
		header.Fprint(p.w, pad(h, widths[i]))
	}
	fmt.Fprintln(p.w)

	for i, w := range widths {
		if i > 0 {
			dim.Fprint(p.w, "+-")
		}
		dim.Fprint(p.w, strings.Repeat("-", w+1))
	}
	fmt.Fprintln(p.w)

	for _, row := range rows {
		for i := range widths {
			if i > 0 {
				fmt.Fprint(p.w, sep)
			}
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			fmt.Fprint(p.w, pad(cell, widths[i]))
		}
		fmt.Fprintln(p.w)
	}
}

func pad(s string, width int) string {
	if len(s) > width {
		if width <= 3 {
			return s[:width] + " "
		}
		return s[:width-3] + "... "
	}
	return s + strings.Repeat(" ", width-len(s)+1)
}

// notice prints a client notice. Destructive notices are red.
func (p *printer) notice(n client.Notice) {
	c := p.theme.Accent()
	if n.Level == client.Destructive {
		c = color.New(color.FgRed)
	}
	c.Fprintf(p.w, "%s", n.Title)
	fmt.Fprintf(p.w, ": %s\n", n.Description)
}
