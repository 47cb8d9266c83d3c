package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// recv waits for the next emission of sub.
func recv(t *testing.T, sub *Subscription) []Task {
	t.Helper()
	select {
	case tasks, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return tasks
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emission")
	}
	return nil
}

func mustInsert(t *testing.T, s *Store, title string) Task {
	t.Helper()
	task, err := s.InsertTask(context.Background(), Task{
		Title:        title,
		Description:  title + " description",
		CreationDate: 1000,
	})
	if err != nil {
		t.Fatalf("insert %q: %v", title, err)
	}
	return task
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "tasklist.db")
	s, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	mustInsert(t, s, "kept")
	s.Close()

	// Reopen: same version, data survives.
	s2, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	tasks, err := s2.ListTasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Title != "kept" {
		t.Fatalf("expected task to survive reopen, got %+v", tasks)
	}
}

func TestIncompatibleVersionIsRecreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasklist.db")
	s, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	mustInsert(t, s, "lost")
	if _, err := s.db.Exec("PRAGMA user_version = 1"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	tasks, _ := s2.ListTasks(context.Background())
	if len(tasks) != 0 {
		t.Fatalf("destructive migration should drop rows, got %d", len(tasks))
	}
	var version int
	s2.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d after recreate, got %d", currentVersion, version)
	}
}

func TestIncompatibleVersionKeepsPreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasklist.db")
	ctx := context.Background()
	s, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Prefs("auth_data").Put(ctx, map[string]string{"login": "alice"}); err != nil {
		t.Fatal(err)
	}
	mustInsert(t, s, "lost")
	if _, err := s.db.Exec("PRAGMA user_version = 1"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	login, err := s2.Prefs("auth_data").String(ctx, "login", "<unset>")
	if err != nil {
		t.Fatal(err)
	}
	if login != "alice" {
		t.Fatalf("preferences should survive a schema recreate, got %q", login)
	}
	if tasks, _ := s2.ListTasks(ctx); len(tasks) != 0 {
		t.Fatalf("tasks should be dropped, got %d", len(tasks))
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "tasklist.db" {
		t.Fatalf("unexpected path %q", path)
	}
}

// ============================================================
// Status
// ============================================================

func TestParseStatus(t *testing.T) {
	for _, st := range Statuses {
		got, err := ParseStatus(st.String())
		if err != nil {
			t.Fatalf("parse %q: %v", st, err)
		}
		if got != st {
			t.Fatalf("parse %q: got %v", st, got)
		}
	}
	if _, err := ParseStatus("blocked"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestStatusNames(t *testing.T) {
	tests := map[Status]string{
		StatusNew:        "new",
		StatusTodo:       "todo",
		StatusInProgress: "in progress",
		StatusDone:       "done",
	}
	for st, want := range tests {
		if st.String() != want {
			t.Errorf("String() = %q, want %q", st.String(), want)
		}
		if st.Label() == "" {
			t.Errorf("empty label for %q", want)
		}
	}
	var zero Status
	if zero != StatusNew {
		t.Fatal("zero status should be new")
	}
}

func TestUnknownPersistedStatusIsAnError(t *testing.T) {
	s := newTestStore(t)
	_, err := s.db.Exec(`INSERT INTO tasks (title, description, status, creationDate) VALUES ('x', '', 'blocked', 1)`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ListTasks(context.Background()); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

// ============================================================
// Tasks
// ============================================================

func TestInsertAndGetTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task, err := s.InsertTask(ctx, Task{Title: "Buy milk", Description: "2%", CreationDate: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if task.ID == 0 {
		t.Fatal("expected store-assigned ID")
	}
	if task.Status != StatusNew {
		t.Fatalf("default status should be new, got %v", task.Status)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != task {
		t.Fatalf("got %+v, want %+v", got, task)
	}
	if got.CreatedAt().UnixMilli() != 1000 {
		t.Fatalf("CreatedAt mismatch: %v", got.CreatedAt())
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetTask(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertTaskReplacesOnConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task := mustInsert(t, s, "old")

	task.Title = "new"
	task.Status = StatusDone
	if _, err := s.InsertTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	tasks, _ := s.ListTasks(ctx)
	if len(tasks) != 1 {
		t.Fatalf("replace should not add a row, got %d", len(tasks))
	}
	if tasks[0].Title != "new" || tasks[0].Status != StatusDone {
		t.Fatalf("row not replaced: %+v", tasks[0])
	}
}

func TestInsertTasksBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	existing := mustInsert(t, s, "a")
	existing.Title = "a2"

	err := s.InsertTasks(ctx, []Task{
		existing,
		{Title: "b", CreationDate: 2},
		{Title: "c", CreationDate: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	tasks, _ := s.ListTasks(ctx)
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	if tasks[0].Title != "a2" {
		t.Fatalf("expected replaced title a2, got %q", tasks[0].Title)
	}

	if err := s.InsertTasks(ctx, nil); err != nil {
		t.Fatalf("empty batch should be a no-op: %v", err)
	}
}

func TestListTasksEmpty(t *testing.T) {
	s := newTestStore(t)
	tasks, err := s.ListTasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tasks != nil {
		t.Fatalf("expected nil slice, got %d items", len(tasks))
	}
}

func TestUpdateTaskPreservesOtherFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task := mustInsert(t, s, "write report")

	task.Status = StatusInProgress
	if err := s.UpdateTask(ctx, task); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetTask(ctx, task.ID)
	if got != task {
		t.Fatalf("got %+v, want %+v", got, task)
	}
}

func TestUpdateTaskRequiresExistingID(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateTask(context.Background(), Task{ID: 42, Title: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	tasks, _ := s.ListTasks(context.Background())
	if len(tasks) != 0 {
		t.Fatal("update must not insert")
	}
}

func TestDeleteTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustInsert(t, s, "a")
	b := mustInsert(t, s, "b")

	if err := s.DeleteTask(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	tasks, _ := s.ListTasks(ctx)
	if len(tasks) != 1 || tasks[0] != b {
		t.Fatalf("expected only b untouched, got %+v", tasks)
	}
	if err := s.DeleteTask(ctx, a.ID); err != nil {
		t.Fatalf("deleting a missing row should not fail: %v", err)
	}
}

func TestDeleteAllTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustInsert(t, s, "a")
	mustInsert(t, s, "b")

	if err := s.DeleteAllTasks(ctx); err != nil {
		t.Fatal(err)
	}
	tasks, _ := s.ListTasks(ctx)
	if len(tasks) != 0 {
		t.Fatalf("expected empty table, got %d", len(tasks))
	}
}

// ============================================================
// Live query
// ============================================================

func TestWatchInitialEmission(t *testing.T) {
	s := newTestStore(t)
	mustInsert(t, s, "a")

	sub, err := s.Watch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	tasks := recv(t, sub)
	if len(tasks) != 1 || tasks[0].Title != "a" {
		t.Fatalf("unexpected initial emission: %+v", tasks)
	}
}

func TestWatchReEmitsOnWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub, err := s.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	if tasks := recv(t, sub); len(tasks) != 0 {
		t.Fatalf("expected empty initial emission, got %d", len(tasks))
	}

	a := mustInsert(t, s, "a")
	if tasks := recv(t, sub); len(tasks) != 1 {
		t.Fatalf("insert: expected 1 task, got %d", len(tasks))
	}

	a.Status = StatusDone
	if err := s.UpdateTask(ctx, a); err != nil {
		t.Fatal(err)
	}
	if tasks := recv(t, sub); tasks[0].Status != StatusDone {
		t.Fatalf("update: expected done, got %v", tasks[0].Status)
	}

	if err := s.DeleteTask(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if tasks := recv(t, sub); len(tasks) != 0 {
		t.Fatalf("delete: expected empty emission, got %d", len(tasks))
	}
}

func TestWatchCoalescesPendingWrites(t *testing.T) {
	s := newTestStore(t)
	sub, err := s.Watch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	recv(t, sub)

	for _, title := range []string{"a", "b", "c"} {
		mustInsert(t, s, title)
	}

	// Keep reading until the latest state shows up; there must never be
	// more emissions than writes.
	for i := 0; i < 3; i++ {
		if tasks := recv(t, sub); len(tasks) == 3 {
			return
		}
	}
	t.Fatal("latest state never delivered")
}

func TestWatchEndsOnCancel(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := s.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	recv(t, sub)
	cancel()

	select {
	case _, ok := <-sub.C:
		if ok {
			// A delivery may race with cancellation; the next read must close.
			if _, ok := <-sub.C; ok {
				t.Fatal("expected channel to close after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end after cancel")
	}
}

func TestWatchEndsOnClose(t *testing.T) {
	s := newTestStore(t)
	sub, err := s.Watch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	recv(t, sub)
	sub.Close()
	sub.Close()

	select {
	case _, ok := <-sub.C:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end after Close")
	}
}

func TestWatchCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Watch(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestStoreCloseEndsSubscriptions(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	sub, err := s.Watch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	recv(t, sub)
	s.Close()

	select {
	case _, ok := <-sub.C:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("store close did not end subscription")
	}
}

// ============================================================
// Preferences
// ============================================================

func TestPrefsFallbacks(t *testing.T) {
	s := newTestStore(t)
	p := s.Prefs("auth_data")
	ctx := context.Background()

	v, err := p.String(ctx, "login", "none")
	if err != nil || v != "none" {
		t.Fatalf("expected fallback, got %q (%v)", v, err)
	}
	b, err := p.Bool(ctx, "remember_me", true)
	if err != nil || !b {
		t.Fatalf("expected fallback true, got %v (%v)", b, err)
	}
}

func TestPrefsPutAndRead(t *testing.T) {
	s := newTestStore(t)
	p := s.Prefs("auth_data")
	ctx := context.Background()

	err := p.Put(ctx, map[string]string{"login": "alice", "remember_me": "true"})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := p.String(ctx, "login", ""); v != "alice" {
		t.Fatalf("login = %q", v)
	}
	if b, _ := p.Bool(ctx, "remember_me", false); !b {
		t.Fatal("remember_me should be true")
	}

	// Overwrite.
	p.Put(ctx, map[string]string{"login": ""})
	if v, _ := p.String(ctx, "login", "fallback"); v != "" {
		t.Fatalf("empty string must be stored, not treated as unset: %q", v)
	}

	all, err := p.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 keys, got %v", all)
	}
}

func TestPrefsNamespacesAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.Prefs("a").Put(ctx, map[string]string{"k": "1"})

	if v, _ := s.Prefs("b").String(ctx, "k", "unset"); v != "unset" {
		t.Fatalf("namespace leak: %q", v)
	}
}

func TestPrefsBadBool(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := s.Prefs("x")
	p.Put(ctx, map[string]string{"flag": "maybe"})
	if _, err := p.Bool(ctx, "flag", false); err == nil {
		t.Fatal("expected parse error")
	}
}
