package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// run executes one duetctl invocation against dir and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--data-dir", dir}, args...))
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	if err != nil {
		t.Fatalf("duetctl %s: %v", strings.Join(args, " "), err)
	}
	return out
}

// createdID pulls the id out of "<Thing> created: <id> - <title>".
func createdID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	if len(fields) < 3 {
		t.Fatalf("unexpected output %q", out)
	}
	return fields[2]
}

func TestCLI_WorkspaceTodoLifecycle(t *testing.T) {
	dir := t.TempDir()

	wsID := createdID(t, mustRun(t, dir, "workspace", "create", "--name", "Us", "--start-date", "2023-02-14"))

	list := mustRun(t, dir, "workspace", "list")
	if !strings.Contains(list, "* "+wsID) {
		t.Fatalf("first workspace should be current, got %q", list)
	}

	out := mustRun(t, dir, "todo", "add", "--title", "Book dinner", "--due", "2024-05-01")
	todoID := strings.Fields(out)[2]

	list = mustRun(t, dir, "todo", "list")
	if !strings.Contains(list, "[ ] "+todoID) || !strings.Contains(list, "due 2024-05-01") {
		t.Fatalf("todo list missing item: %q", list)
	}

	mustRun(t, dir, "todo", "done", todoID)
	if pending := mustRun(t, dir, "todo", "list", "--pending"); strings.Contains(pending, todoID) {
		t.Fatalf("completed todo listed as pending: %q", pending)
	}

	mustRun(t, dir, "todo", "rm", todoID)
	if _, err := run(t, dir, "todo", "rm", todoID); err == nil {
		t.Fatalf("expected error removing missing todo")
	}
}

func TestCLI_InviteAndRespond(t *testing.T) {
	dir := t.TempDir()
	createdID(t, mustRun(t, dir, "workspace", "create", "--name", "Us"))

	if _, err := run(t, dir, "workspace", "invite", "--from", "a@example.com", "--to", "not-an-email"); err == nil {
		t.Fatalf("expected validation error for bad invitee")
	}

	out := mustRun(t, dir, "workspace", "invite", "--from", "a@example.com", "--to", "b@example.com")
	invID := strings.Fields(out)[1]

	mustRun(t, dir, "workspace", "respond", invID, "decline")
	if _, err := run(t, dir, "workspace", "respond", invID, "accept"); err == nil {
		t.Fatalf("declined invitation accepted a second response")
	}
}

func TestCLI_EventsAndMarks(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "workspace", "create", "--name", "Us")

	evID := createdID(t, mustRun(t, dir, "event", "add", "--title", "Trip",
		"--start", "2024-06-10", "--end", "2024-06-12", "--color", "#4A90E2"))

	list := mustRun(t, dir, "event", "list", "--date", "2024-06-11")
	if !strings.Contains(list, evID) {
		t.Fatalf("event not listed on covered day: %q", list)
	}

	marks := mustRun(t, dir, "event", "marks", "--from", "2024-06-01", "--to", "2024-06-30")
	lines := strings.Split(strings.TrimSpace(marks), "\n")
	if len(lines) != 3 {
		t.Fatalf("want 3 marked days, got %d: %q", len(lines), marks)
	}
	if !strings.HasPrefix(lines[0], "2024-06-10") || !strings.Contains(lines[0], "#4A90E2[") {
		t.Fatalf("first day should open the band: %q", lines[0])
	}

	mustRun(t, dir, "event", "rm", evID)
	if list := mustRun(t, dir, "event", "list"); strings.Contains(list, evID) {
		t.Fatalf("removed event still listed: %q", list)
	}
}

func TestCLI_StateDumpAndReset(t *testing.T) {
	dir := t.TempDir()
	wsID := createdID(t, mustRun(t, dir, "workspace", "create", "--name", "Us"))

	var st struct {
		Workspaces []struct {
			ID string `json:"id"`
		} `json:"workspaces"`
	}
	if err := json.Unmarshal([]byte(mustRun(t, dir, "state", "dump", "workspace")), &st); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if len(st.Workspaces) != 1 || st.Workspaces[0].ID != wsID {
		t.Fatalf("unexpected dump: %+v", st)
	}

	if _, err := run(t, dir, "state", "dump", "bogus"); err == nil {
		t.Fatalf("expected error for unknown key")
	}

	mustRun(t, dir, "state", "reset")
	if list := mustRun(t, dir, "workspace", "list"); list != "" {
		t.Fatalf("reset left workspaces: %q", list)
	}
}

func TestCLI_SQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "--backend", "sqlite", "workspace", "create", "--name", "Us")
	if list := mustRun(t, dir, "--backend", "sqlite", "workspace", "list"); !strings.Contains(list, "Us") {
		t.Fatalf("sqlite state not persisted: %q", list)
	}
	// the bbolt file is a separate store
	if list := mustRun(t, dir, "workspace", "list"); list != "" {
		t.Fatalf("bbolt should be empty, got %q", list)
	}
}

func TestCLI_LoginLogout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  "access-1",
			"refreshToken": "refresh-1",
			"user":         map[string]string{"id": "u1", "name": "Sam", "email": "sam@example.com"},
		})
	})
	mux.HandleFunc("/workspaces", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"workspaces": []map[string]string{{"id": "w1", "name": "Us", "type": "couple"}},
		})
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	if _, err := run(t, dir, "login", "--email", "sam@example.com", "--password", "hunter22"); err == nil {
		t.Fatalf("login without a backend should fail")
	}

	out := mustRun(t, dir, "--api-url", srv.URL, "login", "--email", "sam@example.com", "--password", "hunter22")
	if !strings.Contains(out, "Signed in as Sam (1 workspace(s))") {
		t.Fatalf("unexpected login output %q", out)
	}
	if list := mustRun(t, dir, "workspace", "list"); !strings.Contains(list, "* w1") {
		t.Fatalf("synced workspace missing: %q", list)
	}

	mustRun(t, dir, "--api-url", srv.URL, "logout")
	if list := mustRun(t, dir, "workspace", "list"); list != "" {
		t.Fatalf("logout left workspaces: %q", list)
	}
}
