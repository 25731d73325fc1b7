package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"sheetsync/api/internal/app"
	"sheetsync/api/internal/config"
	"sheetsync/api/internal/realtime"
	"sheetsync/api/internal/session"
	"sheetsync/api/internal/store"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// newSheetd starts an in-memory sheetd with realtime enabled.
func newSheetd(t *testing.T) string {
	t.Helper()
	broker := realtime.NewLocalBroker()
	hub := realtime.NewHub(broker)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()
	<-hub.Ready()

	cfg := config.Config{JWTSecret: "cli-test-secret", AccessTTL: time.Hour}
	svc := app.New(cfg, store.NewMemoryStore(), session.NewMemoryStore(), broker, nil)
	ts := httptest.NewServer(app.NewHTTPServer(svc, hub, "*").Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts.URL
}

// isolateHome points ~/.sheetctl at a fresh directory.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SHEETCTL_SERVER", "")
	t.Setenv("SHEETCTL_TOKEN", "")
	return home
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(io.NopCloser(strings.NewReader("")), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, err := run(t, args...)
	if err != nil {
		t.Fatalf("sheetctl %s: %v\nstderr: %s", strings.Join(args, " "), err, errOut)
	}
	return out
}

func login(t *testing.T, server string) {
	t.Helper()
	out := mustRun(t, "login", "--signup", "--server", server, "--email", "dana@example.com", "--password", "secret1")
	if !strings.Contains(out, "Logged in as dana@example.com") {
		t.Fatalf("login output = %q", out)
	}
}

func showJSON(t *testing.T, args ...string) tableView {
	t.Helper()
	out := mustRun(t, append([]string{"show", "-o", "json"}, args...)...)
	var tv tableView
	if err := json.Unmarshal([]byte(out), &tv); err != nil {
		t.Fatalf("decode show output: %v\n%s", err, out)
	}
	return tv
}

func TestLoginWritesConfig(t *testing.T) {
	isolateHome(t)
	server := newSheetd(t)
	login(t, server)

	cfg, err := LoadConfig(newViper())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server != server || cfg.Email != "dana@example.com" || cfg.Token == "" {
		t.Fatalf("config = %+v", cfg)
	}
	info, err := os.Stat(ConfigPath())
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		t.Fatalf("config mode = %v, want owner only", info.Mode().Perm())
	}

	out := mustRun(t, "whoami", "-o", "json")
	var who whoAmIView
	if err := json.Unmarshal([]byte(out), &who); err != nil {
		t.Fatalf("decode whoami: %v", err)
	}
	if !who.Authenticated || who.Email != "dana@example.com" {
		t.Fatalf("whoami = %+v", who)
	}
}

func TestLoginBadPassword(t *testing.T) {
	isolateHome(t)
	server := newSheetd(t)
	login(t, server)

	_, _, err := run(t, "login", "--server", server, "--email", "dana@example.com", "--password", "wrong-pass")
	if err == nil || !strings.Contains(err.Error(), "INVALID_CREDENTIALS") {
		t.Fatalf("err = %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	isolateHome(t)
	server := newSheetd(t)
	login(t, server)

	cfg, _ := LoadConfig(newViper())
	mustRun(t, "logout")

	after, _ := LoadConfig(newViper())
	if after.Token != "" {
		t.Fatalf("token still stored: %q", after.Token)
	}
	if out := mustRun(t, "whoami"); !strings.Contains(out, "Not logged in") {
		t.Fatalf("whoami = %q", out)
	}

	// The old token no longer works either.
	_, _, err := run(t, "show", "--token", cfg.Token)
	if err == nil {
		t.Fatal("revoked token must be rejected")
	}
}

func TestCommandsRequireLogin(t *testing.T) {
	isolateHome(t)
	for _, args := range [][]string{{"show"}, {"set", "1", "1", "x"}, {"search", "x"}, {"logout"}} {
		_, _, err := run(t, args...)
		if !errors.Is(err, errNotLoggedIn) {
			t.Fatalf("%v: err = %v, want errNotLoggedIn", args, err)
		}
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	isolateHome(t)
	_, _, err := run(t, "whoami", "-o", "xml")
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Fatalf("err = %v", err)
	}
}

func TestEditCommandsPersist(t *testing.T) {
	isolateHome(t)
	server := newSheetd(t)
	login(t, server)

	mustRun(t, "set", "1", "0", "Dana", "Ross")
	tv := showJSON(t)
	if tv.RecordID == "" {
		t.Fatal("first save must create a record")
	}
	if got := tv.Rows[0].Cells[0]; got != "Dana Ross" {
		t.Fatalf("cell = %q", got)
	}

	mustRun(t, "add-row")
	mustRun(t, "add-column", "Notes")
	mustRun(t, "rename-column", "1", "Title")
	mustRun(t, "hide", "2")
	mustRun(t, "move-column", "0", "1")
	if out := mustRun(t, "resize", "1", "--", "-500"); !strings.Contains(out, "60px") {
		t.Fatalf("resize output = %q", out)
	}

	tv = showJSON(t)
	if tv.Stats.Rows != 4 {
		t.Fatalf("rows = %d, want 4", tv.Stats.Rows)
	}
	names := make([]string, len(tv.Columns))
	for i, c := range tv.Columns {
		names[i] = c.Name
	}
	if strings.Join(names, ",") != "Title,Name,Department,Status,Priority,Notes" {
		t.Fatalf("columns = %v", names)
	}
	if tv.Columns[2].Visible {
		t.Fatal("Department must be hidden")
	}
	if tv.Columns[1].Width != 60 {
		t.Fatalf("Name width = %d", tv.Columns[1].Width)
	}

	mustRun(t, "unhide", "2")
	mustRun(t, "delete-row", "4")
	mustRun(t, "remove-column", "5")
	tv = showJSON(t)
	if tv.Stats.Rows != 3 || len(tv.Columns) != 5 || !tv.Columns[2].Visible {
		t.Fatalf("after cleanup: rows=%d cols=%d", tv.Stats.Rows, len(tv.Columns))
	}
}

func TestEditCommandErrors(t *testing.T) {
	isolateHome(t)
	server := newSheetd(t)
	login(t, server)

	cases := map[string][]string{
		"outside the table": {"set", "99", "0", "x"},
		"no row at index 0": {"delete-row", "0"},
		"invalid column":    {"hide", "abc"},
		"no column at":      {"resize", "42", "10"},
	}
	for want, args := range cases {
		_, _, err := run(t, args...)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("%v: err = %v, want %q", args, err, want)
		}
	}
}

func TestShowFilterKeepsRowNumbers(t *testing.T) {
	isolateHome(t)
	server := newSheetd(t)
	login(t, server)
	mustRun(t, "add-row")

	tv := showJSON(t, "--filter", "manager")
	if len(tv.Rows) != 1 || tv.Rows[0].Row != 3 || tv.Filter != "manager" {
		t.Fatalf("rows = %+v", tv.Rows)
	}

	out := mustRun(t, "show", "-f", "manager")
	if !strings.Contains(out, "Yosef Avidan") || strings.Contains(out, "Sarah Levi") {
		t.Fatalf("table output:\n%s", out)
	}
	if !strings.Contains(out, "1 rows, 5 visible columns") {
		t.Fatalf("missing stats line:\n%s", out)
	}
}

func TestSearchCommand(t *testing.T) {
	isolateHome(t)
	server := newSheetd(t)
	login(t, server)

	if _, _, err := run(t, "search", "levi"); err == nil || !strings.Contains(err.Error(), "no table saved") {
		t.Fatalf("search before save: %v", err)
	}

	mustRun(t, "set", "2", "3", "Away")
	out := mustRun(t, "search", "away", "-o", "json")
	var res searchView
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Source != "memory" || len(res.Rows) != 1 || res.Rows[0].Row != 2 {
		t.Fatalf("search = %+v", res)
	}
	if res.Rows[0].Cells[0] != "Sarah Levi" {
		t.Fatalf("cells = %v", res.Rows[0].Cells)
	}
}

func TestImportAndExport(t *testing.T) {
	isolateHome(t)
	server := newSheetd(t)
	login(t, server)

	dir := t.TempDir()
	src := filepath.Join(dir, "people.txt")
	if err := os.WriteFile(src, []byte("City\tCountry\nLisbon\tPortugal\nOslo\tNorway\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	mustRun(t, "import", src)

	tv := showJSON(t)
	if len(tv.Columns) != 2 || tv.Columns[0].Name != "City" || tv.Stats.Rows != 2 {
		t.Fatalf("imported view = %+v", tv)
	}

	for _, args := range [][]string{{"export"}, {"export", "--remote"}} {
		dst := filepath.Join(dir, strings.Join(args, "")+".xlsx")
		_, errOut, err := run(t, append(args, dst)...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		if !strings.Contains(errOut, "Wrote "+dst) {
			t.Fatalf("stderr = %q", errOut)
		}
		raw, err := os.ReadFile(dst)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.HasPrefix(raw, []byte("PK")) {
			t.Fatalf("%v did not write a zip container", args)
		}
	}
}

func TestImportRejectsUnknownFile(t *testing.T) {
	isolateHome(t)
	server := newSheetd(t)
	login(t, server)

	bad := filepath.Join(t.TempDir(), "broken.xlsx")
	if err := os.WriteFile(bad, []byte("not a workbook"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, errOut, err := run(t, "import", bad)
	if err == nil {
		t.Fatal("expected import error")
	}
	if !strings.Contains(errOut, "Import failed") {
		t.Fatalf("stderr = %q", errOut)
	}
}

func TestThemesCommand(t *testing.T) {
	isolateHome(t)
	server := newSheetd(t)

	out := mustRun(t, "themes", "--server", server, "-o", "yaml")
	if !strings.Contains(out, "slug: classic-blue") || !strings.Contains(out, "current: true") {
		t.Fatalf("yaml output:\n%s", out)
	}

	mustRun(t, "themes", "--set", "Luxury Purple")
	cfg, _ := LoadConfig(newViper())
	if cfg.Theme != "luxury-purple" {
		t.Fatalf("theme = %q", cfg.Theme)
	}
	out = mustRun(t, "themes", "--server", server)
	if !strings.Contains(out, "* luxury-purple") {
		t.Fatalf("current marker missing:\n%s", out)
	}

	if _, _, err := run(t, "themes", "--set", "neon"); err == nil {
		t.Fatal("unknown theme must fail")
	}
}
