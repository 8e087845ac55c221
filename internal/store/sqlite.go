package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"nretrack/internal/domain"
	"nretrack/internal/migrate"
)

const defaultDBName = "nretrack.db"

// SQLite is the embedded-SQL record store: one file, one tasks table,
// WAL journaling. WAL gives file-level write serialization, so this
// backend has no concurrent-writer hazard.
type SQLite struct {
	DB *sql.DB
}

// DBPath returns the database path for a data directory.
func DBPath(dataDir string) string {
	if dataDir == "" {
		dataDir = "."
	}
	return filepath.Join(dataDir, defaultDBName)
}

// OpenSQLite opens (creating if needed) the task database and applies
// pending migrations.
func OpenSQLite(dataDir string) (*SQLite, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", DBPath(dataDir))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{DB: conn}, nil
}

func (s *SQLite) Close() error { return s.DB.Close() }

const taskColumns = `id,name,owner,device_type,platform,android_version,nre_number,status,task_type,start_date,end_date,work_hours,content,created_at`

func scanTask(scan func(...any) error) (domain.Task, error) {
	var t domain.Task
	var content sql.NullString
	err := scan(&t.ID, &t.Name, &t.Owner, &t.DeviceType, &t.Platform, &t.AndroidVersion,
		&t.NRENumber, &t.Status, &t.TaskType, &t.StartDate, &t.EndDate, &t.WorkHours, &content, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if content.Valid {
		t.Content = content.String
	}
	return t, err
}

func (s *SQLite) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (s *SQLite) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	return scanTask(row.Scan)
}

func (s *SQLite) InsertTask(ctx context.Context, t domain.Task) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Name, t.Owner, t.DeviceType, t.Platform, t.AndroidVersion,
		t.NRENumber, t.Status, t.TaskType, t.StartDate, t.EndDate, t.WorkHours, nullable(t.Content), t.CreatedAt)
	return err
}

func (s *SQLite) UpdateTask(ctx context.Context, t domain.Task) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE tasks SET name=?, owner=?, device_type=?, platform=?, android_version=?, nre_number=?, status=?, task_type=?, start_date=?, end_date=?, work_hours=?, content=? WHERE id=?`,
		t.Name, t.Owner, t.DeviceType, t.Platform, t.AndroidVersion, t.NRENumber,
		t.Status, t.TaskType, t.StartDate, t.EndDate, t.WorkHours, nullable(t.Content), t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) DeleteTask(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
