// Package tui provides the interactive reminder board for leadflow using
// Bubble Tea. Alerts and badge counts from a notify.Dispatcher are pushed into
// the running program.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/baiirun/leadflow/internal/clock"
	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/notify"
)

// ViewMode represents the current view state.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// Status icons
const (
	iconPending   = "○"
	iconDueNow    = "◐"
	iconOverdue   = "⊘"
	iconCompleted = "●"
)

const (
	minSplitWidth  = 80 // Minimum terminal width for split view
	contentPadding = 2
	maxAlerts      = 3

	DefaultRefresh = 30 * time.Second
)

// ReminderStore is what the board reads and mutates.
type ReminderStore interface {
	ListForAssignee(ctx context.Context, userID string, statuses ...model.ReminderStatus) ([]model.Reminder, error)
	Complete(ctx context.Context, id, by string) (*model.Reminder, error)
	Reopen(ctx context.Context, id string) (*model.Reminder, error)
}

// DocumentResolver supplies the document checklist shown for a reminder's lead.
type DocumentResolver interface {
	ResolveForLead(ctx context.Context, leadID string) ([]model.ResolvedDocument, error)
}

// UserDirectory names reminder assignees.
type UserDirectory interface {
	DisplayName(ctx context.Context, id string) (string, error)
}

// Model is the Bubble Tea model for the reminder board.
type Model struct {
	reminders ReminderStore
	documents DocumentResolver
	users     UserDirectory
	clock     clock.Clock
	userID    string
	refresh   time.Duration

	items    []model.Reminder // everything assigned to the user
	filtered []model.Reminder // after the completed/search filters
	cursor   int
	viewMode ViewMode

	showCompleted bool
	search        string
	searching     bool
	input         textinput.Model

	keys keyMap
	help help.Model

	width   int
	height  int
	err     error
	message string

	detailLead     string
	detailDocs     []model.ResolvedDocument
	detailAssignee string // user id the name below belongs to
	assigneeName   string

	badge    notify.Badge
	hasBadge bool
	alerts   []model.Reminder // newest first
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Open     key.Binding
	Back     key.Binding
	Search   key.Binding
	ShowDone key.Binding
	Refresh  key.Binding
	Complete key.Binding
	Reopen   key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Top:      key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "top")),
		Bottom:   key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "bottom")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		ShowDone: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "show done")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		Reopen:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "reopen")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Complete, k.Reopen, k.ShowDone, k.Search, k.Refresh, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.Open, k.Back},
		{k.Complete, k.Reopen, k.ShowDone, k.Search, k.Refresh, k.Quit},
	}
}

func (k keyMap) detailHelp() []key.Binding {
	return []key.Binding{k.Back, k.Complete, k.Reopen}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	statusColors = map[model.ReminderStatus]lipgloss.Color{
		model.ReminderPending:   lipgloss.Color("252"),
		model.ReminderOverdue:   lipgloss.Color("196"),
		model.ReminderCompleted: lipgloss.Color("42"),
	}
	dueNowColor = lipgloss.Color("214")

	priorityColors = map[model.Priority]lipgloss.Color{
		model.PriorityHigh:   lipgloss.Color("196"),
		model.PriorityMedium: lipgloss.Color("214"),
		model.PriorityLow:    lipgloss.Color("245"),
	}

	docColors = map[model.DocumentStatus]lipgloss.Color{
		model.DocNotSubmitted: lipgloss.Color("245"),
		model.DocPending:      lipgloss.Color("214"),
		model.DocApproved:     lipgloss.Color("42"),
		model.DocRejected:     lipgloss.Color("196"),
	}

	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	filterStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	messageStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	alertStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("214"))
	detailLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// New creates a board for userID. documents may be nil to hide checklists.
func New(reminders ReminderStore, documents DocumentResolver, userID string, clk clock.Clock) Model {
	if clk == nil {
		clk = clock.Real{}
	}
	input := textinput.New()
	input.Prompt = "Search: "
	input.CharLimit = 64
	h := help.New()
	h.Styles.ShortDesc = helpStyle
	h.Styles.ShortSeparator = helpStyle
	return Model{
		reminders: reminders,
		documents: documents,
		clock:     clk,
		userID:    userID,
		refresh:   DefaultRefresh,
		viewMode:  ViewList,
		input:     input,
		keys:      defaultKeys(),
		help:      h,
	}
}

// WithUsers shows assignee names in the detail pane.
func (m Model) WithUsers(u UserDirectory) Model {
	m.users = u
	return m
}

// WithRefresh sets how often the list reloads on its own.
func (m Model) WithRefresh(d time.Duration) Model {
	if d > 0 {
		m.refresh = d
	}
	return m
}

// Messages
type remindersMsg struct {
	items []model.Reminder
	err   error
}

type docsMsg struct {
	leadID string // ignore results for a lead that is no longer selected
	docs   []model.ResolvedDocument
	err    error
}

type assigneeMsg struct {
	userID string
	name   string
}

type actionMsg struct {
	message string
	err     error
}

type refreshMsg time.Time

// AlertMsg is sent when the dispatcher alerts a reminder.
type AlertMsg struct{ Reminder model.Reminder }

// BadgeMsg is sent on every badge recount.
type BadgeMsg struct{ Badge notify.Badge }

func (m Model) loadReminders() tea.Cmd {
	return func() tea.Msg {
		items, err := m.reminders.ListForAssignee(context.Background(), m.userID)
		return remindersMsg{items: items, err: err}
	}
}

// loadDetail fetches what the detail pane shows for the selected reminder.
func (m Model) loadDetail() tea.Cmd {
	r, ok := m.selected()
	if !ok {
		return nil
	}
	var cmds []tea.Cmd
	if m.documents != nil {
		leadID := r.LeadID
		cmds = append(cmds, func() tea.Msg {
			docs, err := m.documents.ResolveForLead(context.Background(), leadID)
			return docsMsg{leadID: leadID, docs: docs, err: err}
		})
	}
	if m.users != nil {
		userID := r.AssignedTo
		cmds = append(cmds, func() tea.Msg {
			name, err := m.users.DisplayName(context.Background(), userID)
			if err != nil {
				name = userID
			}
			return assigneeMsg{userID: userID, name: name}
		})
	}
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return cmds[0]
	}
	return tea.Batch(cmds...)
}

func (m Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) selected() (model.Reminder, bool) {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return model.Reminder{}, false
	}
	return m.filtered[m.cursor], true
}

// applyFilters hides completed reminders unless toggled on, then applies the
// search text to title, lead and id.
func (m *Model) applyFilters() {
	m.filtered = nil
	search := strings.ToLower(m.search)
	for _, r := range m.items {
		if !m.showCompleted && r.Status == model.ReminderCompleted {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Title), search) &&
			!strings.Contains(strings.ToLower(r.LeadID), search) &&
			!strings.Contains(strings.ToLower(r.ID), search) {
			continue
		}
		m.filtered = append(m.filtered, r)
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadReminders(), m.scheduleRefresh())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.message = ""
		m.err = nil
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.viewMode == ViewDetail && m.width >= minSplitWidth {
			m.viewMode = ViewList
		}
		return m, nil

	case remindersMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.items = msg.items
		m.applyFilters()
		return m, m.loadDetail()

	case docsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if r, ok := m.selected(); ok && r.LeadID == msg.leadID {
			m.detailLead = msg.leadID
			m.detailDocs = msg.docs
		}
		return m, nil

	case assigneeMsg:
		m.detailAssignee = msg.userID
		m.assigneeName = msg.name
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.message = msg.message
		}
		return m, m.loadReminders()

	case refreshMsg:
		return m, tea.Batch(m.loadReminders(), m.scheduleRefresh())

	case AlertMsg:
		m.alerts = append([]model.Reminder{msg.Reminder}, m.alerts...)
		if len(m.alerts) > maxAlerts {
			m.alerts = m.alerts[:maxAlerts]
		}
		return m, m.loadReminders()

	case BadgeMsg:
		m.badge = msg.Badge
		m.hasBadge = true
		return m, nil
	}

	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		m.input.SetValue("")
		m.search = ""
		m.applyFilters()
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.input.Blur()
		return m, m.loadDetail()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.search = m.input.Value()
	m.applyFilters()
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		if m.viewMode == ViewDetail {
			m.viewMode = ViewList
			return m, nil
		}
		if len(m.alerts) > 0 {
			m.alerts = nil
			return m, nil
		}
		if m.search != "" {
			m.search = ""
			m.input.SetValue("")
			m.applyFilters()
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			return m, m.loadDetail()
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			return m, m.loadDetail()
		}
	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
		return m, m.loadDetail()
	case key.Matches(msg, m.keys.Bottom):
		m.cursor = max(0, len(m.filtered)-1)
		return m, m.loadDetail()

	case key.Matches(msg, m.keys.Open):
		if m.width < minSplitWidth && len(m.filtered) > 0 {
			m.viewMode = ViewDetail
		}
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.input.SetValue(m.search)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.ShowDone):
		m.showCompleted = !m.showCompleted
		m.applyFilters()
		return m, m.loadDetail()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadReminders()
	case key.Matches(msg, m.keys.Complete):
		return m.doComplete()
	case key.Matches(msg, m.keys.Reopen):
		return m.doReopen()
	}
	return m, nil
}

func (m Model) doComplete() (Model, tea.Cmd) {
	r, ok := m.selected()
	if !ok {
		return m, nil
	}
	if r.Status == model.ReminderCompleted {
		m.message = "Already completed"
		return m, nil
	}
	return m, func() tea.Msg {
		if _, err := m.reminders.Complete(context.Background(), r.ID, m.userID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: fmt.Sprintf("Completed %s", r.ID)}
	}
}

func (m Model) doReopen() (Model, tea.Cmd) {
	r, ok := m.selected()
	if !ok {
		return m, nil
	}
	if r.Status != model.ReminderCompleted {
		m.message = "Can only reopen completed reminders"
		return m, nil
	}
	return m, func() tea.Msg {
		if _, err := m.reminders.Reopen(context.Background(), r.ID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: fmt.Sprintf("Reopened %s", r.ID)}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	for _, a := range m.alerts {
		b.WriteString(alertStyle.Render(fmt.Sprintf(" 🔔 %s  due %s ", a.Title, a.DueDate.Local().Format("15:04"))))
		b.WriteString("\n")
	}
	if len(m.alerts) > 0 {
		b.WriteString("\n")
	}

	switch m.viewMode {
	case ViewList:
		if m.width >= minSplitWidth {
			b.WriteString(m.splitView())
		} else {
			b.WriteString(m.listPane(m.width-contentPadding*2, m.paneHeight()))
		}
	case ViewDetail:
		b.WriteString(m.detailPane(m.width - contentPadding*2))
	}

	if m.searching {
		b.WriteString("\n")
		b.WriteString(m.input.View())
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	} else if m.message != "" {
		b.WriteString("\n")
		b.WriteString(messageStyle.Render(m.message))
	}

	padStyle := lipgloss.NewStyle().
		PaddingLeft(contentPadding).
		PaddingRight(contentPadding).
		PaddingTop(1)

	return padStyle.Render(b.String())
}

func (m Model) paneHeight() int {
	h := m.height - 4 - len(m.alerts)
	if h < 10 {
		h = 10
	}
	return h
}

// splitView renders the list on the left and the selected reminder on the right.
func (m Model) splitView() string {
	gap := 1
	borderChars := 4
	available := m.width - borderChars - gap - contentPadding*2
	leftWidth := available / 2
	rightWidth := available - leftWidth
	height := m.paneHeight()

	left := normalizeLines(strings.Split(m.listPane(leftWidth, height), "\n"), height, leftWidth)
	right := normalizeLines(strings.Split(m.detailPane(rightWidth), "\n"), height, rightWidth)

	return lipgloss.JoinHorizontal(lipgloss.Top,
		buildBorderedBox(left, leftWidth, lipgloss.Color("39")),
		strings.Repeat(" ", gap),
		buildBorderedBox(right, rightWidth, lipgloss.Color("241")),
	)
}

// normalizeLines ensures the slice has exactly `height` lines, each padded to `width`.
func normalizeLines(lines []string, height, width int) []string {
	result := make([]string, height)
	for i := 0; i < height; i++ {
		if i < len(lines) {
			result[i] = padToWidth(lines[i], width)
		} else {
			result[i] = strings.Repeat(" ", width)
		}
	}
	return result
}

// buildBorderedBox draws a rounded border around content lines.
func buildBorderedBox(lines []string, contentWidth int, borderColor lipgloss.Color) string {
	style := lipgloss.NewStyle().Foreground(borderColor)
	horizontal := strings.Repeat(style.Render("─"), contentWidth)
	vertical := style.Render("│")

	var b strings.Builder
	b.WriteString(style.Render("╭") + horizontal + style.Render("╮") + "\n")
	for _, line := range lines {
		b.WriteString(vertical + line + vertical + "\n")
	}
	b.WriteString(style.Render("╰") + horizontal + style.Render("╯"))
	return b.String()
}

// padToWidth pads to the visible width, ignoring ANSI escapes.
func padToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncate(s string, width int) string {
	if width <= 3 || len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

// reminderIcon distinguishes due-now and overdue reminders from plain pending ones.
func (m Model) reminderIcon(r model.Reminder) (string, lipgloss.Color) {
	now := m.clock.Now()
	switch {
	case r.Status == model.ReminderCompleted:
		return iconCompleted, statusColors[model.ReminderCompleted]
	case r.IsOverdue(now):
		return iconOverdue, statusColors[model.ReminderOverdue]
	case r.InWindow(now):
		return iconDueNow, dueNowColor
	default:
		return iconPending, statusColors[model.ReminderPending]
	}
}

func (m Model) listPane(width, height int) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("leadflow"))
	b.WriteString(fmt.Sprintf("  %d/%d reminders", len(m.filtered), len(m.items)))
	if m.hasBadge {
		b.WriteString("  ")
		b.WriteString(filterStyle.Render(fmt.Sprintf("%d pending · %d due · %d overdue", m.badge.Pending, m.badge.DueNow, m.badge.Overdue)))
	}
	if m.search != "" {
		b.WriteString("  ")
		b.WriteString(filterStyle.Render("search:\"" + m.search + "\""))
	}
	b.WriteString("\n\n")

	rows := height - 5
	if rows < 3 {
		rows = 3
	}

	if len(m.filtered) == 0 {
		b.WriteString("No reminders\n")
	} else {
		start := 0
		if m.cursor >= rows {
			start = m.cursor - rows + 1
		}
		end := min(start+rows, len(m.filtered))
		for i := start; i < end; i++ {
			r := m.filtered[i]
			if i == m.cursor {
				b.WriteString(selectedRowStyle.Render(padToWidth(m.plainRow(r, width), width)))
			} else {
				b.WriteString(m.styledRow(r, width))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

// rowTitle pads the title so priorities line up.
func (m Model) rowTitle(r model.Reminder, width int) string {
	titleWidth := width - 24
	if titleWidth < 20 {
		titleWidth = 20
	}
	return fmt.Sprintf("%-*s", titleWidth, truncate(r.Title, titleWidth))
}

func (m Model) plainRow(r model.Reminder, width int) string {
	icon, _ := m.reminderIcon(r)
	return fmt.Sprintf("%s %s  %s [%s]", icon, r.DueDate.Local().Format("Jan 02 15:04"), m.rowTitle(r, width), r.Priority)
}

func (m Model) styledRow(r model.Reminder, width int) string {
	icon, color := m.reminderIcon(r)
	return fmt.Sprintf("%s %s  %s %s",
		lipgloss.NewStyle().Foreground(color).Render(icon),
		dimStyle.Render(r.DueDate.Local().Format("Jan 02 15:04")),
		m.rowTitle(r, width),
		lipgloss.NewStyle().Foreground(priorityColors[r.Priority]).Render("["+string(r.Priority)+"]"),
	)
}

func (m Model) detailPane(width int) string {
	r, ok := m.selected()
	if !ok {
		return "No reminder selected"
	}
	now := m.clock.Now()

	var lines []string
	add := func(label, value string) {
		lines = append(lines, detailLabelStyle.Render(label+": ")+value)
	}

	lines = append(lines, titleStyle.Render(truncate(r.Title, width)), "")
	add("ID", r.ID)
	add("Lead", r.LeadID)
	add("Status", string(r.DisplayStatus(now)))
	add("Priority", string(r.Priority))
	add("Due", r.DueDate.Local().Format("Mon Jan 2 15:04"))
	if m.detailAssignee == r.AssignedTo && m.assigneeName != "" {
		add("Assigned", m.assigneeName)
	} else {
		add("Assigned", r.AssignedTo)
	}
	if r.NotifyBefore > 0 {
		add("Alert from", r.NotificationTime().Local().Format("Mon Jan 2 15:04"))
	}
	if r.CompletedAt != nil {
		add("Completed", r.CompletedAt.Local().Format("Mon Jan 2 15:04"))
	}
	if r.Description != "" {
		lines = append(lines, "")
		for _, line := range strings.Split(r.Description, "\n") {
			lines = append(lines, truncate(line, width))
		}
	}

	if m.detailLead == r.LeadID && len(m.detailDocs) > 0 {
		lines = append(lines, "", detailLabelStyle.Render("Documents"))
		for _, d := range m.detailDocs {
			mark := " "
			if d.Required {
				mark = "*"
			}
			status := lipgloss.NewStyle().Foreground(docColors[d.Status]).Render(string(d.Status))
			lines = append(lines, fmt.Sprintf("%s %s  %s", mark, truncate(d.Name, width-20), status))
		}
	}

	if m.viewMode == ViewDetail {
		lines = append(lines, "", m.help.ShortHelpView(m.keys.detailHelp()))
	}
	return strings.Join(lines, "\n")
}

// programSink forwards dispatcher output into a running program.
type programSink struct{ p *tea.Program }

func (s programSink) Notify(_ context.Context, r model.Reminder) error {
	s.p.Send(AlertMsg{Reminder: r})
	return nil
}

func (s programSink) Badge(_ context.Context, b notify.Badge) error {
	s.p.Send(BadgeMsg{Badge: b})
	return nil
}

// Run starts the board. newDispatcher builds the session's dispatcher around
// the board's sinks; it is stopped before Run returns.
func Run(ctx context.Context, m Model, newDispatcher func(notify.Sink, notify.BadgeSink) *notify.Dispatcher) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if newDispatcher != nil {
		sink := programSink{p: p}
		d := newDispatcher(sink, sink)
		if err := d.Start(ctx); err != nil {
			return err
		}
		defer d.Stop()
	}

	_, err := p.Run()
	return err
}
