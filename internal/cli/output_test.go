package cli

import (
	"bytes"
	"strings"
	"testing"

	"sheetsync/api/internal/client"
	"sheetsync/api/internal/grid"
	"sheetsync/api/internal/theme"
)

func TestPrinterTable(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf, format: FormatTable, theme: theme.Default()}
	p.table([]string{"id", "name"}, [][]string{
		{"1", "Ada"},
		{"2", strings.Repeat("x", 60)},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "id  | name"+strings.Repeat(" ", 37) {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "----+-") {
		t.Fatalf("separator = %q", lines[1])
	}
	if !strings.HasSuffix(lines[3], "x... ") {
		t.Fatalf("long cell not truncated: %q", lines[3])
	}
}

func TestPrinterGridHidesColumns(t *testing.T) {
	table := grid.DefaultTable()
	table.Columns[1].Visible = false
	view := client.View{
		Data:    table.Data,
		Columns: table.Columns,
		Stats:   grid.Summarize(table.Data, table.Columns),
	}

	var buf bytes.Buffer
	p := &printer{w: &buf, format: FormatTable, theme: theme.Default()}
	if err := p.grid(newTableView("rec-1", "", view, nil)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "Developer") || !strings.Contains(out, "Ahmed Cohen") {
		t.Fatalf("hidden column rendered:\n%s", out)
	}
	if !strings.Contains(out, "3 rows, 4 visible columns") {
		t.Fatalf("stats missing:\n%s", out)
	}
}

func TestPrinterStructuredFormats(t *testing.T) {
	cols := columnViews([]grid.Column{{ID: "0", Name: "Name", Width: 150, Visible: true}})

	var js bytes.Buffer
	if err := (&printer{w: &js, format: FormatJSON}).columns(cols); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(js.String(), `"name": "Name"`) {
		t.Fatalf("json = %s", js.String())
	}

	var ym bytes.Buffer
	if err := (&printer{w: &ym, format: FormatYAML}).columns(cols); err != nil {
		t.Fatal(err)
	}
	want := "- index: 0\n  id: \"0\"\n  name: Name\n  width: 150\n  visible: true\n"
	if ym.String() != want {
		t.Fatalf("yaml = %q, want %q", ym.String(), want)
	}
}

func TestGridRowsMapsFilteredIndexes(t *testing.T) {
	data := grid.FromStrings([][]string{{"H"}, {"a"}, {"b"}})
	rows := gridRows(data, []int{4, 9})
	if len(rows) != 2 || rows[0].Row != 4 || rows[1].Row != 9 || rows[1].Cells[0] != "b" {
		t.Fatalf("rows = %+v", rows)
	}
	if rows := gridRows(data, nil); rows[0].Row != 1 {
		t.Fatalf("identity rows = %+v", rows)
	}
}

func TestNoticeLevels(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf, theme: theme.Default()}
	p.notice(client.NoticeSaveFailed)
	if buf.String() != "Error saving: Could not save the changes\n" {
		t.Fatalf("notice = %q", buf.String())
	}
}
