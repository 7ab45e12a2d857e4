package panel

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kokistudios/tagtree/internal/tagtree"
)

// maxResults limits how many matching notes are listed under the tree.
const maxResults = 8

type openedMsg struct{ err error }

type searchedMsg struct {
	query   string
	results []string
	err     error
}

type mutatedMsg struct {
	status string
	err    error
}

// Model is the bubbletea front end of a Controller.
type Model struct {
	ctrl     *Controller
	ctx      context.Context
	rows     []Row
	cursor   int
	dragging string
	query    string
	results  []string
	status   string
	errText  string
	loading  bool
	width    int
	height   int
}

// NewModel creates a model driving ctrl. ctx bounds every gesture.
func NewModel(ctx context.Context, ctrl *Controller) Model {
	return Model{ctrl: ctrl, ctx: ctx, loading: true}
}

func (m Model) Init() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return openedMsg{err: ctrl.Open(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case openedMsg:
		m.loading = false
		m.setErr(msg.err)
		m.sync()
		return m, nil
	case searchedMsg:
		m.query, m.results = msg.query, msg.results
		m.setErr(msg.err)
		m.sync()
		return m, nil
	case mutatedMsg:
		m.loading = false
		m.status = msg.status
		m.setErr(msg.err)
		m.sync()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m, nil
	case "s":
		mode := m.ctrl.CycleSort()
		m.status = "sort: " + mode.String()
		m.sync()
		return m, nil
	case "c":
		m.ctrl.ClearSelection()
		m.query, m.results = "", nil
		m.sync()
		return m, nil
	case "esc":
		if m.dragging != "" {
			m.dragging = ""
			m.status = "drag cancelled"
			return m, nil
		}
		m.ctrl.ClearSelection()
		m.query, m.results = "", nil
		m.sync()
		return m, nil
	case "r":
		m.loading = true
		m.dragging = ""
		m.query, m.results = "", nil
		return m, m.refresh()
	}

	row, ok := m.current()
	if !ok {
		return m, nil
	}
	switch msg.String() {
	case "enter", " ":
		return m, m.click(row.Name)
	case "right", "l", "tab":
		if row.HasChildren && !row.Expanded {
			return m, m.toggle(row.Name)
		}
	case "left", "h":
		if row.Expanded {
			return m, m.toggle(row.Name)
		}
	case "m":
		if m.dragging == row.Name {
			m.dragging = ""
			m.status = "drag cancelled"
		} else {
			m.dragging = row.Name
			m.status = fmt.Sprintf("dragging #%s: p to drop on a tag, u to drop at top level", row.Name)
		}
	case "p":
		if m.dragging != "" {
			dragged := m.dragging
			m.dragging = ""
			return m, m.drop(dragged, row.Name)
		}
	case "u":
		name := row.Name
		if m.dragging != "" {
			name = m.dragging
			m.dragging = ""
		}
		return m, m.dropOutside(name)
	}
	return m, nil
}

func (m Model) click(name string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		query, err := ctrl.Click(ctx, name)
		var results []string
		if s := ctrl.Surface(); s != nil {
			results = s.Results()
		}
		return searchedMsg{query: query, results: results, err: err}
	}
}

func (m Model) toggle(name string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return mutatedMsg{err: ctrl.Toggle(ctx, name)}
	}
}

func (m Model) drop(dragged, target string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		res, err := ctrl.Drop(ctx, dragged, target)
		status := fmt.Sprintf("moved #%s under #%s", dragged, target)
		if res != tagtree.MoveApplied {
			status = fmt.Sprintf("#%s not moved: %s", dragged, res)
		}
		return mutatedMsg{status: status, err: err}
	}
}

func (m Model) dropOutside(name string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		ok, err := ctrl.DropOutside(ctx, name)
		status := fmt.Sprintf("moved #%s to top level", name)
		if !ok {
			status = fmt.Sprintf("#%s not found", name)
		}
		return mutatedMsg{status: status, err: err}
	}
}

func (m Model) refresh() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return mutatedMsg{status: "refreshed", err: ctrl.Refresh(ctx)}
	}
}

func (m *Model) setErr(err error) {
	m.errText = ""
	if err != nil {
		m.errText = err.Error()
	}
}

// sync re-reads the rows and keeps the cursor on the same tag when it is
// still visible.
func (m *Model) sync() {
	var name string
	if row, ok := m.current(); ok {
		name = row.Name
	}
	m.rows = m.ctrl.Rows()
	for i, r := range m.rows {
		if r.Name == name {
			m.cursor = i
			return
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

func (m Model) current() (Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return Row{}, false
	}
	return m.rows[m.cursor], true
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tags"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  sort: %s", m.ctrl.Sort())))
	b.WriteString("\n\n")

	switch {
	case m.loading && len(m.rows) == 0:
		b.WriteString(mutedStyle.Render("Loading tags..."))
		b.WriteString("\n")
	case len(m.rows) == 0:
		b.WriteString(mutedStyle.Render("No tags found in this vault."))
		b.WriteString("\n")
	}

	for i, r := range m.rows {
		b.WriteString(m.renderRow(i, r))
		b.WriteString("\n")
	}

	if m.query != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render("search: " + m.query))
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  (%d notes)", len(m.results))))
		b.WriteString("\n")
		for i, r := range m.results {
			if i == maxResults {
				b.WriteString(mutedStyle.Render(fmt.Sprintf("  … %d more", len(m.results)-maxResults)))
				b.WriteString("\n")
				break
			}
			b.WriteString("  " + r + "\n")
		}
	}

	b.WriteString("\n")
	if m.errText != "" {
		b.WriteString(errorStyle.Render("error: " + m.errText))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("enter select · l/h expand · m drag · p drop · u top level · s sort · r refresh · c clear · q quit"))
	return b.String()
}

func (m Model) renderRow(i int, r Row) string {
	glyph := "  "
	if r.HasChildren {
		glyph = "▸ "
		if r.Expanded {
			glyph = "▾ "
		}
	}
	line := strings.Repeat("  ", r.Depth) + glyph + "#" + r.Name
	if r.Selected {
		line += " ●"
	}

	switch {
	case i == m.cursor:
		return cursorStyle.Render(line)
	case r.Name == m.dragging:
		return draggingStyle.Render(line)
	case r.Selected:
		return selectedStyle.Render(line)
	}
	return line
}

// Run opens the panel full screen and blocks until it is closed.
func Run(ctx context.Context, ctrl *Controller) error {
	p := tea.NewProgram(NewModel(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
