package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tasklist/internal/auth"
)

type loginModel struct {
	ctx    context.Context
	gate   *auth.Gate
	width  int
	height int

	form       *huh.Form
	submitting bool

	// Form field pointers (survive value copies)
	login    *string
	password *string
	remember *bool
}

func newLoginModel(ctx context.Context, g *auth.Gate) loginModel {
	login, password, remember := "", "", false
	return loginModel{
		ctx:      ctx,
		gate:     g,
		login:    &login,
		password: &password,
		remember: &remember,
	}
}

func (l *loginModel) setSize(w, h int) {
	l.width = w
	l.height = h
}

func (l loginModel) load() tea.Cmd {
	return func() tea.Msg {
		c, err := l.gate.Load(l.ctx)
		return credentialsMsg{creds: c, err: err}
	}
}

func (l loginModel) submit() tea.Cmd {
	c := auth.Credentials{Login: *l.login, Password: *l.password, Remember: *l.remember}
	return func() tea.Msg {
		return loginResultMsg{err: l.gate.Login(l.ctx, c)}
	}
}

func (l loginModel) buildForm() (loginModel, tea.Cmd) {
	l.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Login").Value(l.login),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(l.password),
			huh.NewConfirm().Title("Remember me").Affirmative("Yes").Negative("No").Value(l.remember),
		),
	).WithShowHelp(true).WithShowErrors(true)
	if l.width > 0 {
		l.form = l.form.WithWidth(l.width - 8)
	}
	return l, l.form.Init()
}

// aborted reports whether the user left the form with ctrl+c.
func (l loginModel) aborted() bool {
	return l.form != nil && l.form.State == huh.StateAborted
}

func (l loginModel) update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case credentialsMsg:
		if msg.err == nil {
			*l.login = msg.creds.Login
			*l.password = msg.creds.Password
			*l.remember = msg.creds.Remember
		}
		return l.buildForm()

	case loginResultMsg:
		l.submitting = false
		if msg.err == nil {
			return l, func() tea.Msg { return loggedInMsg{} }
		}
		return l.buildForm()
	}

	if l.form == nil || l.submitting {
		return l, nil
	}

	form, cmd := l.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		l.form = f
	}
	if l.form.State == huh.StateCompleted {
		l.submitting = true
		return l, l.submit()
	}
	return l, cmd
}

func (l loginModel) view() string {
	w := l.width - 4
	title := titleStyle.Render("Sign in")
	if l.form == nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", mutedStyle.Render("Loading...")))
	}
	hint := subtitleStyle.Render("Credentials stay on this machine.")
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, hint, "", l.form.View()))
}

// declineText is the status line shown for a failed login.
func declineText(err error) string {
	if errors.Is(err, auth.ErrEmptyCredentials) {
		return "Login and password must not be empty"
	}
	return fmt.Sprintf("Login error: %v", err)
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: isError} }
}
