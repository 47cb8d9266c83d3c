package tui

import (
	"time"

	"github.com/sadopc/tasklist/internal/auth"
	"github.com/sadopc/tasklist/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewLogin viewState = iota
	viewTasks
)

var viewNames = []string{"Login", "Tasks"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type credentialsMsg struct {
	creds auth.Credentials
	err   error
}

type loginResultMsg struct {
	err error
}

type loggedInMsg struct{}

type subscribedMsg struct {
	sub *store.Subscription
}

// tasksMsg is one emission of the live query.
type tasksMsg struct {
	sub   *store.Subscription
	tasks []store.Task
}

type subClosedMsg struct {
	sub *store.Subscription
	err error
}

type promotedMsg struct {
	count int
}

type taskCreatedMsg struct {
	task store.Task
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatCreated(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
