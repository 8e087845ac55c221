package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"nretrack/internal/domain"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	file, err := OpenFile(t.TempDir())
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	sqlite, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		file.Close()
		sqlite.Close()
	})
	return map[string]Store{"file": file, "sqlite": sqlite}
}

func task(id string, createdAt int64) domain.Task {
	return domain.Task{
		ID:        id,
		Name:      "task " + id,
		Owner:     "alice",
		Status:    domain.StatusPending,
		CreatedAt: createdAt,
	}
}

func TestCRUDAndOrdering(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, tk := range []domain.Task{task("a", 100), task("c", 300), task("b", 200)} {
				if err := st.InsertTask(ctx, tk); err != nil {
					t.Fatalf("insert %s: %v", tk.ID, err)
				}
			}

			tasks, err := st.ListTasks(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(tasks) != 3 {
				t.Fatalf("expected 3 tasks, got %d", len(tasks))
			}
			for i, want := range []string{"c", "b", "a"} {
				if tasks[i].ID != want {
					t.Fatalf("expected createdAt-descending order, got %s at %d", tasks[i].ID, i)
				}
			}

			got, err := st.GetTask(ctx, "b")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Name != "task b" || got.CreatedAt != 200 {
				t.Fatalf("unexpected task: %+v", got)
			}

			got.Status = domain.StatusCompleted
			got.WorkHours = 6
			got.Content = "done"
			if err := st.UpdateTask(ctx, got); err != nil {
				t.Fatalf("update: %v", err)
			}
			updated, err := st.GetTask(ctx, "b")
			if err != nil {
				t.Fatalf("get after update: %v", err)
			}
			if updated.Status != domain.StatusCompleted || updated.WorkHours != 6 || updated.Content != "done" {
				t.Fatalf("update not persisted: %+v", updated)
			}

			if err := st.DeleteTask(ctx, "a"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			tasks, _ = st.ListTasks(ctx)
			if len(tasks) != 2 {
				t.Fatalf("expected 2 tasks after delete, got %d", len(tasks))
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := st.GetTask(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("get: expected ErrNotFound, got %v", err)
			}
			if err := st.UpdateTask(ctx, task("missing", 1)); !errors.Is(err, ErrNotFound) {
				t.Fatalf("update: expected ErrNotFound, got %v", err)
			}
			if err := st.DeleteTask(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("delete: expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestTieBreakOnEqualCreatedAt(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"x", "z", "y"} {
				if err := st.InsertTask(ctx, task(id, 500)); err != nil {
					t.Fatalf("insert %s: %v", id, err)
				}
			}
			tasks, err := st.ListTasks(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			for i, want := range []string{"z", "y", "x"} {
				if tasks[i].ID != want {
					t.Fatalf("expected id-descending tie break, got %s at %d", tasks[i].ID, i)
				}
			}
		})
	}
}

func TestFilePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := OpenFile(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.InsertTask(ctx, task("persisted", 42)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	st.Close()

	reopened, err := OpenFile(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.GetTask(ctx, "persisted")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CreatedAt != 42 {
		t.Fatalf("unexpected task after reopen: %+v", got)
	}
}

func TestFileWritesValidJSONArray(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := OpenFile(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	if err := st.InsertTask(ctx, task("one", 1)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "tasks.json"))
	if err != nil {
		t.Fatalf("read tasks.json: %v", err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("tasks.json is not a JSON array: %v", err)
	}
	if len(raw) != 1 || raw[0]["id"] != "one" {
		t.Fatalf("unexpected file contents: %s", data)
	}
	if _, ok := raw[0]["createdAt"]; !ok {
		t.Fatal("expected camelCase createdAt key")
	}
}

func TestSQLiteEmptyContentStoredAsNull(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()

	if err := st.InsertTask(ctx, task("nc", 1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var content any
	if err := st.DB.QueryRow(`SELECT content FROM tasks WHERE id='nc'`).Scan(&content); err != nil {
		t.Fatalf("query content: %v", err)
	}
	if content != nil {
		t.Fatalf("expected NULL content, got %v", content)
	}
	got, err := st.GetTask(ctx, "nc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "" {
		t.Fatalf("NULL content should read back empty, got %q", got.Content)
	}
}
