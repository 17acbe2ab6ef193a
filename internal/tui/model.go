// Package tui is the interactive terminal browser over a grid view.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mesh-intelligence/backoffice/pkg/grid"
	"github.com/mesh-intelligence/backoffice/pkg/types"
)

const (
	maxColWidth     = 32
	defaultHeight   = 24
	chromeHeight    = 8
	selectionMarker = "●"
)

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeConfirm
	modeDetail
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	infoStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	detailStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Messages delivered by commands.
type (
	reloadedMsg struct{ err error }
	deletedMsg  struct {
		id  string
		err error
	}
	bulkDeletedMsg struct{ err error }
	orderSavedMsg  struct{ err error }
	changedMsg     struct{}
)

// Model is the bubbletea model of the browser.
type Model struct {
	ctx     context.Context
	view    *grid.View
	title   string
	changes <-chan struct{}

	snap    grid.Snapshot
	table   table.Model
	search  textinput.Model
	help    help.Model
	mode    mode
	confirm string
	onYes   tea.Cmd
	detail  types.Row
	status  string
	failed  bool
	width   int
	height  int
}

// Options configures a Model.
type Options struct {
	Title string
	// Changes, when set, triggers a reload for every value received.
	Changes <-chan struct{}
}

// New returns a browser over view. The view is reloaded when the program
// starts.
func New(ctx context.Context, view *grid.View, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "search..."
	ti.Prompt = "/ "
	ti.CharLimit = 100
	ti.Width = 30

	title := opts.Title
	if title == "" {
		title = view.Collection()
	}

	m := Model{
		ctx:     ctx,
		view:    view,
		title:   title,
		changes: opts.Changes,
		search:  ti,
		help:    help.New(),
		height:  defaultHeight,
	}
	m.table = table.New(
		table.WithColumns(m.tableColumns(nil)),
		table.WithFocused(true),
		table.WithHeight(defaultHeight-chromeHeight),
	)
	m.refresh()
	return m
}

// Run starts the browser and blocks until the user quits.
func Run(ctx context.Context, view *grid.View, opts Options) error {
	_, err := tea.NewProgram(New(ctx, view, opts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.reload(), m.waitForChange())
}

func (m Model) reload() tea.Cmd {
	ctx, view := m.ctx, m.view
	return func() tea.Msg {
		_, err := view.Reload(ctx)
		return reloadedMsg{err: err}
	}
}

func (m Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := msg.Height - chromeHeight
		if h < 3 {
			h = 3
		}
		m.table.SetHeight(h)
		m.help.Width = msg.Width
		return m, nil

	case reloadedMsg:
		m.setResult("reloaded", msg.err)
		m.refresh()
		return m, nil

	case changedMsg:
		return m, tea.Batch(m.reload(), m.waitForChange())

	case deletedMsg:
		m.setResult("deleted "+msg.id, msg.err)
		m.refresh()
		return m, nil

	case bulkDeletedMsg:
		m.setResult("deleted selection", msg.err)
		m.refresh()
		return m, nil

	case orderSavedMsg:
		if errors.Is(msg.err, types.ErrUnsupported) {
			msg.err = nil
		}
		m.setResult("order saved", msg.err)
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeDetail:
			m.mode = modeNormal
			return m, nil
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status, m.failed = "", false
	switch {
	case key.Matches(msg, keys.Quit):
		m.view.Close()
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, keys.Search):
		m.mode = modeSearch
		m.search.SetValue(m.snap.State.SearchText)
		m.search.CursorEnd()
		return m, m.search.Focus()

	case key.Matches(msg, keys.NextPage):
		m.view.NextPage()

	case key.Matches(msg, keys.PrevPage):
		m.view.PreviousPage()

	case key.Matches(msg, keys.Sort):
		m.cycleSort()

	case key.Matches(msg, keys.SortDir):
		if s := m.snap.State.Sort; s != nil {
			_, _ = m.view.SetSort(s.Column, !s.Desc)
		}

	case key.Matches(msg, keys.Type):
		m.cycleType()

	case key.Matches(msg, keys.ClearType):
		m.view.SetTypeFilter(nil)

	case key.Matches(msg, keys.Select):
		if row, ok := m.cursorRow(); ok {
			m.view.ToggleRowSelection(row.ID)
		}

	case key.Matches(msg, keys.SelectPage):
		m.view.ToggleSelectAllOnPage(nil)

	case key.Matches(msg, keys.Delete):
		if row, ok := m.cursorRow(); ok {
			m.ask(fmt.Sprintf("delete %s? (y/n)", rowLabel(m.view.Columns(), row)), m.deleteRow(row))
		}
		return m, nil

	case key.Matches(msg, keys.DeleteSel):
		if n := len(m.snap.State.Selected); n > 0 {
			m.ask(fmt.Sprintf("delete %d selected rows? (y/n)", n), m.deleteSelected())
		}
		return m, nil

	case key.Matches(msg, keys.Copy):
		if row, ok := m.cursorRow(); ok {
			res, err := m.view.DispatchRowAction(m.ctx, grid.ActionCopy, row)
			m.setResult(fmt.Sprintf("copied %q", res.Copied), err)
		}

	case key.Matches(msg, keys.Edit):
		if row, ok := m.cursorRow(); ok {
			res, err := m.view.DispatchRowAction(m.ctx, grid.ActionEdit, row)
			if err != nil {
				m.setResult("", err)
				break
			}
			m.detail = res.Row
			m.mode = modeDetail
		}

	case key.Matches(msg, keys.MoveUp):
		return m.move(-1)

	case key.Matches(msg, keys.MoveDown):
		return m.move(1)

	case key.Matches(msg, keys.Reload):
		return m, m.reload()

	case key.Matches(msg, keys.Reset):
		m.view.Reset()

	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	m.refresh()
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNormal
		m.search.Blur()
		m.search.SetValue("")
		m.view.SetSearchText("")
		m.refresh()
		return m, nil
	case tea.KeyEnter:
		m.mode = modeNormal
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.view.SetSearchText(m.search.Value())
	m.refresh()
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeNormal
	cmd := m.onYes
	m.onYes, m.confirm = nil, ""
	if key.Matches(msg, keys.Confirm) {
		return m, cmd
	}
	m.status = "cancelled"
	return m, nil
}

func (m *Model) ask(question string, onYes tea.Cmd) {
	m.mode = modeConfirm
	m.confirm = question
	m.onYes = onYes
}

func (m Model) deleteRow(row types.Row) tea.Cmd {
	ctx, view := m.ctx, m.view
	return func() tea.Msg {
		_, err := view.DispatchRowAction(ctx, grid.ActionDelete, row)
		return deletedMsg{id: row.ID, err: err}
	}
}

func (m Model) deleteSelected() tea.Cmd {
	ctx, view := m.ctx, m.view
	return func() tea.Msg {
		_, err := view.DeleteSelected(ctx)
		return bulkDeletedMsg{err: err}
	}
}

// move swaps the cursor row with its neighbour on the page and persists the
// new order. Manual order only applies while no sort is active.
func (m Model) move(delta int) (tea.Model, tea.Cmd) {
	if m.snap.State.Sort != nil {
		m.setResult("", errors.New("clear the sort (s) before reordering"))
		return m, nil
	}
	i := m.table.Cursor()
	j := i + delta
	if i < 0 || i >= len(m.snap.Rows) || j < 0 || j >= len(m.snap.Rows) {
		return m, nil
	}
	if _, moved := m.view.Reorder(m.snap.Rows[i].ID, m.snap.Rows[j].ID); !moved {
		return m, nil
	}
	m.refresh()
	m.table.SetCursor(j)
	ctx, view := m.ctx, m.view
	return m, func() tea.Msg {
		return orderSavedMsg{err: view.PersistOrder(ctx)}
	}
}

// cycleSort steps through the sortable columns ascending, then clears.
func (m *Model) cycleSort() {
	var names []string
	for _, c := range m.view.Columns() {
		if c.Sortable {
			names = append(names, c.Name)
		}
	}
	if len(names) == 0 {
		return
	}
	cur := m.snap.State.Sort
	if cur == nil {
		_, _ = m.view.SetSort(names[0], false)
		return
	}
	for i, n := range names {
		if n == cur.Column && i+1 < len(names) {
			_, _ = m.view.SetSort(names[i+1], cur.Desc)
			return
		}
	}
	m.view.ClearSort()
}

// cycleType steps the type filter through each single value, then clears.
func (m *Model) cycleType() {
	values := m.view.TypeValues()
	if len(values) == 0 {
		return
	}
	cur := m.snap.State.TypeFilter
	if len(cur) != 1 {
		m.view.SetTypeFilter(values[:1])
		return
	}
	i := sort.SearchStrings(values, cur[0])
	if i+1 < len(values) {
		m.view.SetTypeFilter(values[i+1 : i+2])
		return
	}
	m.view.SetTypeFilter(nil)
}

func (m *Model) setResult(ok string, err error) {
	if err != nil {
		m.status, m.failed = err.Error(), true
		return
	}
	m.status, m.failed = ok, false
}

func (m Model) cursorRow() (types.Row, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.snap.Rows) {
		return types.Row{}, false
	}
	return m.snap.Rows[i], true
}

// refresh copies the view's snapshot into the table.
func (m *Model) refresh() {
	m.snap = m.view.Snapshot()
	cols := m.view.Columns()
	rows := make([]table.Row, len(m.snap.Rows))
	for i, r := range m.snap.Rows {
		cells := make(table.Row, 0, len(cols)+1)
		mark := ""
		if m.snap.IsSelected(r.ID) {
			mark = selectionMarker
		}
		cells = append(cells, mark)
		for _, c := range cols {
			cells = append(cells, c.Text(r))
		}
		rows[i] = cells
	}
	m.table.SetColumns(m.tableColumns(rows))
	m.table.SetRows(rows)
	if n := len(rows); m.table.Cursor() >= n {
		m.table.SetCursor(max(n-1, 0))
	}
}

func (m Model) tableColumns(rows []table.Row) []table.Column {
	cols := m.view.Columns()
	out := make([]table.Column, 0, len(cols)+1)
	out = append(out, table.Column{Title: " ", Width: 1})
	var sortKey *grid.SortKey
	if m.snap.State.Sort != nil {
		sortKey = m.snap.State.Sort
	}
	for i, c := range cols {
		title := c.Title()
		if sortKey != nil && sortKey.Column == c.Name {
			if sortKey.Desc {
				title += " ↓"
			} else {
				title += " ↑"
			}
		}
		w := lipgloss.Width(title)
		for _, r := range rows {
			if cw := lipgloss.Width(r[i+1]); cw > w {
				w = cw
			}
		}
		out = append(out, table.Column{Title: title, Width: min(w, maxColWidth)})
	}
	return out
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	if m.mode == modeSearch {
		b.WriteString(m.search.View())
	} else if m.snap.State.SearchText != "" {
		b.WriteString(infoStyle.Render("search: " + m.snap.State.SearchText))
	}
	b.WriteString("\n")

	if m.mode == modeDetail {
		b.WriteString(detailStyle.Render(detailText(m.view.Columns(), m.detail)))
	} else {
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(pageLine(m.snap)))
	b.WriteString("\n")

	switch {
	case m.mode == modeConfirm:
		b.WriteString(errorStyle.Render(m.confirm))
	case m.failed:
		b.WriteString(errorStyle.Render(m.status))
	case m.status != "":
		b.WriteString(okStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func pageLine(s grid.Snapshot) string {
	pages := max(s.PageCount, 1)
	parts := []string{fmt.Sprintf("page %d/%d", s.State.PageIndex+1, pages)}
	if s.Filtered != s.Total {
		parts = append(parts, fmt.Sprintf("%d of %d rows", s.Filtered, s.Total))
	} else {
		parts = append(parts, fmt.Sprintf("%d rows", s.Total))
	}
	if n := len(s.State.Selected); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	if len(s.State.TypeFilter) > 0 {
		parts = append(parts, "type: "+strings.Join(s.State.TypeFilter, ","))
	}
	return strings.Join(parts, " · ")
}

func detailText(cols []grid.Column, row types.Row) string {
	lines := []string{"id: " + row.ID}
	for _, c := range cols {
		lines = append(lines, c.Title()+": "+c.Text(row))
	}
	return strings.Join(lines, "\n")
}

func rowLabel(cols []grid.Column, row types.Row) string {
	if len(cols) > 0 {
		if s := cols[0].Text(row); s != "" {
			return s
		}
	}
	return row.ID
}
