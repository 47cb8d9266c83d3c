// Package tasksync keeps a presentation copy of the task table in step with
// the store's live query and promotes freshly inserted tasks from new to todo.
//
// Promotion writes back to the store, which triggers another emission; that
// emission holds no new tasks, so the loop settles after one extra round.
package tasksync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sadopc/tasklist/internal/store"
)

// Updater is the part of the store the loop writes through.
type Updater interface {
	UpdateTask(ctx context.Context, t store.Task) error
}

// Item is the presentation form of a persisted task.
type Item struct {
	ID          int64
	Title       string
	Description string
	Status      store.Status
	CreatedAt   time.Time
}

func (i Item) StatusLabel() string { return i.Status.Label() }

// Task converts the item back into a store record.
func (i Item) Task() store.Task {
	return store.Task{
		ID:           i.ID,
		Title:        i.Title,
		Description:  i.Description,
		Status:       i.Status,
		CreationDate: i.CreatedAt.UnixMilli(),
	}
}

// Project maps an emission one-to-one, in order, without diffing.
func Project(tasks []store.Task) []Item {
	items := make([]Item, len(tasks))
	for i, t := range tasks {
		items[i] = Item{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			CreatedAt:   t.CreatedAt(),
		}
	}
	return items
}

type Loop struct {
	store Updater
	log   *zap.SugaredLogger
}

func New(u Updater, log *zap.SugaredLogger) *Loop {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Loop{store: u, log: log}
}

// Promote moves every task still in new to todo, keeping all other fields.
// It returns how many updates succeeded; failures are joined into err.
func (l *Loop) Promote(ctx context.Context, tasks []store.Task) (int, error) {
	var (
		promoted int
		errs     []error
	)
	for _, t := range tasks {
		if t.Status != store.StatusNew {
			continue
		}
		t.Status = store.StatusTodo
		if err := l.store.UpdateTask(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("promote task %d: %w", t.ID, err))
			continue
		}
		promoted++
	}
	if promoted > 0 {
		l.log.Debugw("promoted new tasks", "count", promoted)
	}
	return promoted, errors.Join(errs...)
}

// Run consumes emissions until the channel closes or ctx ends. Each emission
// is handed to sink before promotion starts.
func (l *Loop) Run(ctx context.Context, emissions <-chan []store.Task, sink func([]Item)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tasks, ok := <-emissions:
			if !ok {
				return nil
			}
			sink(Project(tasks))
			if _, err := l.Promote(ctx, tasks); err != nil {
				l.log.Errorw("promotion failed", "error", err)
			}
		}
	}
}
