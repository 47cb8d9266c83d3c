package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/sadopc/tasklist/internal/auth"
	"github.com/sadopc/tasklist/internal/export"
	"github.com/sadopc/tasklist/internal/notify"
	"github.com/sadopc/tasklist/internal/store"
	"github.com/sadopc/tasklist/internal/tasksync"
)

// Deps are the services the screens run on.
type Deps struct {
	Store    *store.Store
	Gate     *auth.Gate
	Sync     *tasksync.Loop
	Notifier *notify.Notifier
	Log      *zap.SugaredLogger

	PromoteOnInsert bool
}

// App is the root Bubble Tea model.
type App struct {
	ctx    context.Context
	store  *store.Store
	log    *zap.SugaredLogger
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	login loginModel
	tasks tasksModel

	help        help.Model
	status      string
	statusError bool
}

func NewApp(ctx context.Context, d Deps) App {
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	h := help.New()
	h.ShowAll = false

	return App{
		ctx:        ctx,
		store:      d.Store,
		log:        d.Log,
		activeView: viewLogin,
		login:      newLoginModel(ctx, d.Gate),
		tasks:      newTasksModel(ctx, d),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return a.login.load()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.login.setSize(a.width, contentHeight)
		a.tasks.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.activeView == viewLogin {
			if msg.Type == tea.KeyCtrlC && a.login.form == nil {
				return a, tea.Quit
			}
			return a.updateLogin(msg)
		}

		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a form is capturing input, delegate first.
		if a.tasks.formActive {
			return a.updateTasks(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			a.tasks.close()
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		}

	case statusMsg:
		a.status = msg.text
		a.statusError = msg.isError
		if msg.isError {
			a.log.Debugw("status", "text", msg.text)
		}
		return a, nil

	case loggedInMsg:
		// One-way: there is no route back to the login view.
		a.activeView = viewTasks
		a.status = ""
		a.statusError = false
		return a, a.tasks.subscribe()

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusError = false
		a.exportPicking = false
		return a, nil

	case credentialsMsg:
		if msg.err != nil {
			a.log.Errorw("load credentials failed", "error", msg.err)
			a.status, a.statusError = fmt.Sprintf("Load error: %v", msg.err), true
		}
		return a.updateLogin(msg)

	case loginResultMsg:
		if msg.err != nil {
			a.status, a.statusError = declineText(msg.err), true
		}
		return a.updateLogin(msg)
	}

	if a.activeView == viewLogin {
		return a.updateLogin(msg)
	}
	return a.updateTasks(msg)
}

func (a App) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.login, cmd = a.login.update(msg)
	if a.login.aborted() {
		return a, tea.Quit
	}
	return a, cmd
}

func (a App) updateTasks(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.tasks, cmd = a.tasks.update(msg)
	return a, cmd
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewLogin:
		content = a.login.view()
	case viewTasks:
		content = a.tasks.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	// Show export picker overlay
	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("tasklist")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	var left string
	if a.activeView == viewTasks {
		left = footerStyle.Render(a.help.View(keys))
	} else {
		left = footerStyle.Render("enter: next  ctrl+c: quit")
	}

	right := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusError {
			style = errorStyle
		}
		right = style.Render(" " + a.status)
	}
	if a.activeView == viewTasks && a.tasks.sub != nil {
		right = successStyle.Render(" ●") + right
	}

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

const (
	formatCSV = iota
	formatJSON
	formatYAML
)

var exportFormats = []string{"CSV", "JSON", "YAML"}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func exportPath(dir string, format int, now time.Time) string {
	ext := "csv"
	switch format {
	case formatJSON:
		ext = "json"
	case formatYAML:
		ext = "yaml"
	}
	return filepath.Join(dir, fmt.Sprintf("tasklist-export-%s.%s", now.Format("2006-01-02"), ext))
}

func (a App) doExport(format int) tea.Cmd {
	return func() tea.Msg {
		tasks, err := a.store.ListTasks(a.ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		path := exportPath(home, format, time.Now())

		write := export.ToCSV
		switch format {
		case formatJSON:
			write = export.ToJSON
		case formatYAML:
			write = export.ToYAML
		}
		if err := write(tasks, path); err != nil {
			return statusMsg{text: fmt.Sprintf("%s error: %v", exportFormats[format], err), isError: true}
		}

		a.log.Infow("exported tasks", "path", path, "count", len(tasks))
		return exportDoneMsg{path: path}
	}
}
