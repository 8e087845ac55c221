package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"nretrack/internal/domain"
)

const tasksFileName = "tasks.json"

// File is the flat-file record store: the whole task collection lives in
// tasks.json and every mutation rewrites the file. A process-wide RWMutex
// serializes writers; the on-disk replace goes through a temp file +
// rename so readers never observe a truncated collection. Concurrent
// writers from multiple processes remain unsafe, which is why the SQLite
// backend is the default.
type File struct {
	mu    sync.RWMutex
	path  string
	tasks []domain.Task
}

// OpenFile loads (creating if needed) the tasks.json collection in dataDir.
func OpenFile(dataDir string) (*File, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	f := &File{path: filepath.Join(dataDir, tasksFileName)}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.tasks = []domain.Task{}
			return nil
		}
		return err
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	f.tasks = tasks
	return nil
}

func (f *File) saveLocked() error {
	data, err := json.MarshalIndent(f.tasks, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *File) Close() error { return nil }

func (f *File) ListTasks(ctx context.Context) ([]domain.Task, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	res := make([]domain.Task, len(f.tasks))
	copy(res, f.tasks)
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].CreatedAt != res[j].CreatedAt {
			return res[i].CreatedAt > res[j].CreatedAt
		}
		return res[i].ID > res[j].ID
	})
	return res, nil
}

func (f *File) GetTask(ctx context.Context, id string) (domain.Task, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Task{}, ErrNotFound
}

func (f *File) InsertTask(ctx context.Context, t domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, t)
	return f.saveLocked()
}

func (f *File) UpdateTask(ctx context.Context, t domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == t.ID {
			f.tasks[i] = t
			return f.saveLocked()
		}
	}
	return ErrNotFound
}

func (f *File) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return f.saveLocked()
		}
	}
	return ErrNotFound
}
