package notify

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/sadopc/tasklist/internal/store"
)

// ErrPermissionDenied is returned when notifications are not allowed.
var ErrPermissionDenied = errors.New("no notification permission")

const (
	TaskCreatedTitle = "Congratulations, you created a task!"
	TaskCreatedBody  = "Why not create another one?"
)

type Notification struct {
	TaskID int64
	Title  string
	Body   string
}

// Sender delivers a notification somewhere the user can see it.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

type Notifier struct {
	permitted bool
	senders   []Sender
	log       *zap.SugaredLogger
}

func New(permitted bool, log *zap.SugaredLogger, senders ...Sender) *Notifier {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Notifier{permitted: permitted, senders: senders, log: log}
}

func (n *Notifier) Permitted() bool { return n.permitted }

// TaskCreated announces t. Missing permission is a soft failure: it is
// logged and reported, nothing is retried.
func (n *Notifier) TaskCreated(ctx context.Context, t store.Task) (Notification, error) {
	if !n.permitted {
		n.log.Warnw("notification skipped", "task_id", t.ID, "reason", ErrPermissionDenied)
		return Notification{}, ErrPermissionDenied
	}
	note := Notification{TaskID: t.ID, Title: TaskCreatedTitle, Body: TaskCreatedBody}
	for _, s := range n.senders {
		if err := s.Send(ctx, note); err != nil {
			n.log.Warnw("notification failed", "task_id", t.ID, "error", err)
			return note, fmt.Errorf("send notification: %w", err)
		}
	}
	return note, nil
}

// LogSender records notifications in the log.
type LogSender struct {
	Log *zap.SugaredLogger
}

func (s LogSender) Send(_ context.Context, n Notification) error {
	s.Log.Infow("notification", "task_id", n.TaskID, "title", n.Title)
	return nil
}

// BellSender rings the terminal bell.
type BellSender struct {
	W io.Writer
}

func (s BellSender) Send(_ context.Context, _ Notification) error {
	_, err := io.WriteString(s.W, "\a")
	return err
}
