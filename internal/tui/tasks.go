package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/sadopc/tasklist/internal/notify"
	"github.com/sadopc/tasklist/internal/store"
	"github.com/sadopc/tasklist/internal/tasksync"
)

type formKind int

const (
	formNone formKind = iota
	formAdd
	formEdit
	formStatus
)

type tasksModel struct {
	ctx      context.Context
	store    *store.Store
	sync     *tasksync.Loop
	notifier *notify.Notifier
	log      *zap.SugaredLogger

	// promoteOnInsert stores new tasks as todo directly.
	promoteOnInsert bool

	width  int
	height int

	sub    *store.Subscription
	items  []tasksync.Item
	cursor int

	showDetails bool
	showSummary bool
	summary     summaryModel

	formActive bool
	form       *huh.Form
	formType   formKind
	editing    tasksync.Item

	// Form field pointers (survive value copies)
	formTitle  *string
	formDesc   *string
	formStatus *store.Status
}

func newTasksModel(ctx context.Context, d Deps) tasksModel {
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	title, desc, status := "", "", store.StatusTodo
	return tasksModel{
		ctx:             ctx,
		store:           d.Store,
		sync:            d.Sync,
		notifier:        d.Notifier,
		log:             d.Log,
		promoteOnInsert: d.PromoteOnInsert,
		summary:         newSummaryModel(),
		formTitle:       &title,
		formDesc:        &desc,
		formStatus:      &status,
	}
}

func (m *tasksModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.summary.setSize(w, h)
}

func (m tasksModel) selected() (tasksync.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return tasksync.Item{}, false
	}
	return m.items[m.cursor], true
}

// --- Live query ---

func (m tasksModel) subscribe() tea.Cmd {
	return func() tea.Msg {
		sub, err := m.store.Watch(m.ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Watch error: %v", err), isError: true}
		}
		return subscribedMsg{sub: sub}
	}
}

func waitForTasks(sub *store.Subscription) tea.Cmd {
	return func() tea.Msg {
		tasks, ok := <-sub.C
		if !ok {
			return subClosedMsg{sub: sub, err: sub.Err()}
		}
		return tasksMsg{sub: sub, tasks: tasks}
	}
}

func (m tasksModel) promote(tasks []store.Task) tea.Cmd {
	return func() tea.Msg {
		n, err := m.sync.Promote(m.ctx, tasks)
		if err != nil {
			m.log.Errorw("promotion failed", "error", err)
			return statusMsg{text: fmt.Sprintf("Sync error: %v", err), isError: true}
		}
		return promotedMsg{count: n}
	}
}

func (m *tasksModel) close() {
	if m.sub != nil {
		m.sub.Close()
		m.sub = nil
	}
}

// --- Writes ---

func (m tasksModel) insert(title, desc string) tea.Cmd {
	t := store.Task{
		Title:        title,
		Description:  desc,
		Status:       store.StatusNew,
		CreationDate: store.NowMillis(),
	}
	if m.promoteOnInsert {
		t.Status = store.StatusTodo
	}
	return func() tea.Msg {
		created, err := m.store.InsertTask(m.ctx, t)
		if err != nil {
			m.log.Errorw("insert task failed", "error", err)
			return statusMsg{text: fmt.Sprintf("Add error: %v", err), isError: true}
		}
		m.log.Infow("task created", "task_id", created.ID)
		return taskCreatedMsg{task: created}
	}
}

func (m tasksModel) save(t store.Task, verb string) tea.Cmd {
	return func() tea.Msg {
		if err := m.store.UpdateTask(m.ctx, t); err != nil {
			m.log.Errorw("update task failed", "task_id", t.ID, "error", err)
			return statusMsg{text: fmt.Sprintf("%s error: %v", verb, err), isError: true}
		}
		return statusMsg{text: fmt.Sprintf("Task %d updated", t.ID)}
	}
}

func (m tasksModel) remove(id int64) tea.Cmd {
	return func() tea.Msg {
		if err := m.store.DeleteTask(m.ctx, id); err != nil {
			m.log.Errorw("delete task failed", "task_id", id, "error", err)
			return statusMsg{text: fmt.Sprintf("Delete error: %v", err), isError: true}
		}
		return statusMsg{text: fmt.Sprintf("Task %d deleted", id)}
	}
}

func (m tasksModel) announce(t store.Task) tea.Cmd {
	return func() tea.Msg {
		note, err := m.notifier.TaskCreated(m.ctx, t)
		switch {
		case errors.Is(err, notify.ErrPermissionDenied):
			return statusMsg{text: "No notification permission", isError: true}
		case err != nil:
			return statusMsg{text: fmt.Sprintf("Notification error: %v", err), isError: true}
		}
		return statusMsg{text: note.Title + " " + note.Body}
	}
}

// --- Update ---

func (m tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	switch msg := msg.(type) {
	case subscribedMsg:
		m.close()
		m.sub = msg.sub
		return m, waitForTasks(msg.sub)

	case tasksMsg:
		if msg.sub != m.sub {
			return m, nil
		}
		m.items = tasksync.Project(msg.tasks)
		if m.cursor >= len(m.items) {
			m.cursor = max(0, len(m.items)-1)
		}
		if m.showSummary {
			m.summary.build(m.items)
		}
		return m, tea.Batch(waitForTasks(msg.sub), m.promote(msg.tasks))

	case subClosedMsg:
		if msg.sub != m.sub {
			return m, nil
		}
		m.sub = nil
		if msg.err != nil {
			return m, statusCmd(fmt.Sprintf("Live query stopped: %v", msg.err), true)
		}
		return m, nil

	case promotedMsg:
		return m, nil

	case taskCreatedMsg:
		return m, m.announce(msg.task)
	}

	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		return m.updateList(msg)
	}
	return m, nil
}

func (m tasksModel) updateList(msg tea.KeyMsg) (tasksModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Enter):
		if len(m.items) > 0 {
			m.showDetails = !m.showDetails
		}
	case key.Matches(msg, keys.Back):
		m.showDetails = false
		m.showSummary = false
	case key.Matches(msg, keys.Chart):
		m.showSummary = !m.showSummary
		if m.showSummary {
			m.summary.build(m.items)
		}
	case key.Matches(msg, keys.New):
		return m.showAddForm()
	case key.Matches(msg, keys.Edit):
		if it, ok := m.selected(); ok {
			return m.showEditForm(it)
		}
	case key.Matches(msg, keys.Status):
		if it, ok := m.selected(); ok {
			return m.showStatusForm(it)
		}
	case key.Matches(msg, keys.Delete):
		if it, ok := m.selected(); ok {
			m.showDetails = false
			return m, m.remove(it.ID)
		}
	}
	return m, nil
}

// --- Forms ---

func (m tasksModel) showAddForm() (tasksModel, tea.Cmd) {
	*m.formTitle = ""
	*m.formDesc = ""
	m.formType = formAdd

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(m.formTitle),
			huh.NewText().Title("Description").Value(m.formDesc),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m tasksModel) showEditForm(it tasksync.Item) (tasksModel, tea.Cmd) {
	*m.formTitle = it.Title
	*m.formDesc = it.Description
	m.formType = formEdit
	m.editing = it

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(m.formTitle),
			huh.NewText().Title("Description").Value(m.formDesc),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

// statusChoices are the statuses a user can pick. New is only ever set on
// creation.
var statusChoices = []store.Status{store.StatusTodo, store.StatusInProgress, store.StatusDone}

func (m tasksModel) showStatusForm(it tasksync.Item) (tasksModel, tea.Cmd) {
	*m.formStatus = it.Status
	if it.Status == store.StatusNew {
		*m.formStatus = store.StatusTodo
	}
	m.formType = formStatus
	m.editing = it

	options := make([]huh.Option[store.Status], len(statusChoices))
	for i, s := range statusChoices {
		options[i] = huh.NewOption(s.Label(), s)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[store.Status]().Title("Status").Options(options...).Value(m.formStatus),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateAborted:
		m.formActive = false
		m.form = nil
		return m, nil
	case huh.StateCompleted:
		m.formActive = false
		m.form = nil
		return m, m.submitForm()
	}
	return m, cmd
}

func (m tasksModel) submitForm() tea.Cmd {
	title := strings.TrimSpace(*m.formTitle)
	switch m.formType {
	case formAdd:
		if title == "" {
			return statusCmd("Title must not be empty", true)
		}
		return m.insert(title, *m.formDesc)
	case formEdit:
		if title == "" {
			return statusCmd("Title must not be empty", true)
		}
		t := m.editing.Task()
		t.Title = title
		t.Description = *m.formDesc
		return m.save(t, "Edit")
	case formStatus:
		t := m.editing.Task()
		t.Status = *m.formStatus
		return m.save(t, "Status")
	}
	return nil
}

// --- View ---

func (m tasksModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		var title string
		switch m.formType {
		case formAdd:
			title = "New Task"
		case formEdit:
			title = fmt.Sprintf("Edit Task %d", m.editing.ID)
		case formStatus:
			title = fmt.Sprintf("Status of %q", truncate(m.editing.Title, 40))
		}
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", m.form.View())
		return panelStyle.Width(w).Render(content)
	}

	list := m.renderList()
	switch {
	case m.showSummary:
		return lipgloss.JoinVertical(lipgloss.Left, list, panelStyle.Width(w).Render(m.summary.view()))
	case m.showDetails:
		return lipgloss.JoinVertical(lipgloss.Left, list, m.renderDetails())
	}
	return list
}

func (m tasksModel) renderList() string {
	w := m.width - 4
	title := titleStyle.Render("Tasks")

	if len(m.items) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No tasks yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	titleWidth := max(12, w-48)

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	header := mutedStyle.Render(fmt.Sprintf("  %-5s %-*s %-12s %-16s", "ID", titleWidth, "Title", "Status", "Created"))
	rows = append(rows, header)

	for i, it := range m.items {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		left := style.Render(fmt.Sprintf("%s%-5d %-*s ", cursor, it.ID, titleWidth, truncate(it.Title, titleWidth)))
		status := statusStyle(it.Status).Render(fmt.Sprintf("%-12s", it.StatusLabel()))
		created := mutedStyle.Render(" " + formatCreated(it.CreatedAt))
		rows = append(rows, left+status+created)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  s: status  d: delete  enter: details  r: summary"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m tasksModel) renderDetails() string {
	it, ok := m.selected()
	if !ok {
		return ""
	}
	desc := it.Description
	if desc == "" {
		desc = mutedStyle.Render("No description")
	}
	rows := []string{
		titleStyle.Render(it.Title),
		statusStyle(it.Status).Render(it.StatusLabel()) + mutedStyle.Render("  created "+formatCreated(it.CreatedAt)),
		"",
		desc,
	}
	return activePanelStyle.Width(m.width - 4).Render(strings.Join(rows, "\n"))
}
