package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const taskColumns = `id, title, description, status, creationDate`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (Task, error) {
	var t Task
	err := r.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.CreationDate)
	return t, err
}

func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) GetTask(ctx context.Context, id int64) (Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, fmt.Errorf("get task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertTask leaves id assignment to SQLite when t.ID is zero and replaces
// the existing row otherwise.
func insertTask(ctx context.Context, e execer, t Task) (int64, error) {
	status, err := t.Status.Value()
	if err != nil {
		return 0, err
	}
	var res sql.Result
	if t.ID == 0 {
		res, err = e.ExecContext(ctx,
			`INSERT OR REPLACE INTO tasks (title, description, status, creationDate) VALUES (?, ?, ?, ?)`,
			t.Title, t.Description, status, t.CreationDate,
		)
	} else {
		res, err = e.ExecContext(ctx,
			`INSERT OR REPLACE INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.Title, t.Description, status, t.CreationDate,
		)
	}
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertTask stores t and returns it with its assigned id.
func (s *Store) InsertTask(ctx context.Context, t Task) (Task, error) {
	id, err := insertTask(ctx, s.db, t)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	t.ID = id
	s.changed()
	return t, nil
}

// InsertTasks stores all of tasks in one transaction.
func (s *Store) InsertTasks(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tasks: %w", err)
	}
	for _, t := range tasks {
		if _, err := insertTask(ctx, tx, t); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert tasks: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert tasks: %w", err)
	}
	s.changed()
	return nil
}

// UpdateTask overwrites every field of an existing task.
func (s *Store) UpdateTask(ctx context.Context, t Task) error {
	status, err := t.Status.Value()
	if err != nil {
		return fmt.Errorf("update task %d: %w", t.ID, err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, status = ?, creationDate = ? WHERE id = ?`,
		t.Title, t.Description, status, t.CreationDate, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task %d: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task %d: %w", t.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update task %d: %w", t.ID, ErrNotFound)
	}
	s.changed()
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	s.changed()
	return nil
}

func (s *Store) DeleteAllTasks(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("delete all tasks: %w", err)
	}
	s.changed()
	return nil
}
