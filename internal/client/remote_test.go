package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sheetsync/api/internal/grid"
)

func TestRemoteLatestNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "NOT_FOUND", "error": "Not found"})
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, "tok").Latest(context.Background())
	if !errors.Is(err, ErrNoRecord) {
		t.Fatalf("Latest() error = %v, want ErrNoRecord", err)
	}
}

func TestRemoteInsertAndUpdate(t *testing.T) {
	var gotAuth, gotMethod, gotPath string
	var gotBody map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "abc", "data": [][]string{{"A"}}, "columns": []any{}})
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL+"/", "secret")
	table := grid.Table{Data: grid.FromStrings([][]string{{"A"}}), Columns: []grid.Column{{ID: "0", Name: "A", Width: 120, Visible: true}}}

	rec, err := remote.Insert(context.Background(), table)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if rec.ID != "abc" || gotMethod != http.MethodPost || gotPath != "/api/table" || gotAuth != "Bearer secret" {
		t.Fatalf("insert went to %s %s (%s), rec=%+v", gotMethod, gotPath, gotAuth, rec)
	}
	if _, ok := gotBody["updated_at"]; ok {
		t.Fatal("insert must not send updated_at")
	}

	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := remote.Update(context.Background(), "abc", table, stamp); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/api/table/abc" {
		t.Fatalf("update went to %s %s", gotMethod, gotPath)
	}
	if string(gotBody["updated_at"]) != `"2024-03-01T12:00:00Z"` {
		t.Fatalf("updated_at = %s", gotBody["updated_at"])
	}
	if string(gotBody["data"]) != `[["A"]]` {
		t.Fatalf("data = %s", gotBody["data"])
	}
}

func TestRemoteErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "UNAUTHORIZED", "error": "Unauthorized"})
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, "").Insert(context.Background(), grid.Table{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Code != "UNAUTHORIZED" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestRemoteExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/table/r1/export" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("xlsx-bytes"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	if err := NewRemote(srv.URL, "t").Export(context.Background(), "r1", &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if buf.String() != "xlsx-bytes" {
		t.Fatalf("body = %q", buf.String())
	}
}

func TestRealtimeURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":   "ws://localhost:8080/api/realtime",
		"https://sheets.example/": "wss://sheets.example/api/realtime",
	}
	for in, want := range cases {
		if got := RealtimeURL(in); got != want {
			t.Fatalf("RealtimeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGatewaySaveDropsColumnsWithoutID(t *testing.T) {
	records := &fakeRecords{}
	g := NewGateway(records)

	table := grid.Table{
		Data:    grid.FromStrings([][]string{{"A", "B"}}),
		Columns: []grid.Column{{ID: "0", Name: "A"}, {ID: "", Name: "ghost"}},
	}
	if _, err := g.Save(context.Background(), table); err != nil {
		t.Fatalf("Save: %v", err)
	}
	table.Data[0][0] = grid.Text("mutated")

	_, _, _, stored := records.counts()
	if len(stored.Columns) != 1 || stored.Columns[0].ID != "0" {
		t.Fatalf("columns = %+v", stored.Columns)
	}
	if stored.Data[0][0].String() != "A" {
		t.Fatal("payload must be a deep copy")
	}
	if g.RecordID() != "rec-1" {
		t.Fatalf("record id = %q", g.RecordID())
	}

	g.Adopt("")
	if g.RecordID() != "rec-1" {
		t.Fatal("empty id must not clear the record")
	}
}
