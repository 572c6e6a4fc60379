// Package tui is the terminal renderer of the board. It reads the published
// view, redraws on every publish and turns key presses into intents.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/okian/recap/internal/domain/model"
)

// Dependencies is what the terminal renderer needs from the service.
type Dependencies interface {
	Add(ctx context.Context, intentID string) (model.Outcome, error)
	Delete(ctx context.Context, intentID string, t model.Target) (model.Outcome, error)
	Commit(ctx context.Context, intentID string, t model.Target, f model.Field, raw string) (model.Outcome, error)

	View() model.View
	Period() (startDate, endDate string)
	Subscribe() chan struct{}
	Unsubscribe(ch chan struct{})
}

// publishedMsg signals that the board published a new view.
type publishedMsg struct{}

// outcomeMsg carries the result of an intent sent from the UI.
type outcomeMsg struct {
	kind model.IntentKind
	out  model.Outcome
	err  error
}

// Model is the bubbletea model of the board.
type Model struct {
	deps    Dependencies
	updates chan struct{}

	view   model.View
	cursor int

	editing   bool
	editID    string
	editField model.Field
	input     textinput.Model

	keys   keyMap
	help   help.Model
	styles Styles
	status string
}

// New creates the model and subscribes it to publishes. Call Close when the
// program exits.
func New(deps Dependencies) Model {
	in := textinput.New()
	in.CharLimit = 64
	return Model{
		deps:    deps,
		updates: deps.Subscribe(),
		view:    deps.View(),
		input:   in,
		keys:    defaultKeys(),
		help:    help.New(),
		styles:  DefaultStyles(),
	}
}

// Close releases the publish subscription.
func (m Model) Close() {
	m.deps.Unsubscribe(m.updates)
}

// Init starts listening for publishes.
func (m Model) Init() tea.Cmd {
	return waitForPublish(m.updates)
}

func waitForPublish(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return publishedMsg{}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case publishedMsg:
		m.refresh(m.deps.View())
		return m, waitForPublish(m.updates)

	case outcomeMsg:
		return m.handleOutcome(msg)

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.view.Rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Add):
		return m, m.send(model.IntentAdd, func(ctx context.Context) (model.Outcome, error) {
			return m.deps.Add(ctx, "")
		})
	case key.Matches(msg, m.keys.Delete):
		row, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.send(model.IntentDelete, func(ctx context.Context) (model.Outcome, error) {
			return m.deps.Delete(ctx, "", model.ByID(row.ID))
		})
	case key.Matches(msg, m.keys.EditName):
		return m.startEdit(model.FieldName)
	case key.Matches(msg, m.keys.EditRole):
		return m.startEdit(model.FieldRole)
	case key.Matches(msg, m.keys.EditUnit):
		return m.startEdit(model.FieldUnits)
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.stopEdit()
		return m, nil
	case tea.KeyEnter:
		id, field, raw := m.editID, m.editField, m.input.Value()
		m.stopEdit()
		return m, m.send(model.IntentCommit, func(ctx context.Context) (model.Outcome, error) {
			return m.deps.Commit(ctx, "", model.ByID(id), field, raw)
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleOutcome(msg outcomeMsg) (tea.Model, tea.Cmd) { //nolint:gocritic // hugeParam
	m.refresh(msg.out.View)
	if msg.err != nil {
		m.status = msg.err.Error()
		return m, nil
	}
	m.status = ""
	if msg.kind == model.IntentAdd && msg.out.Entry.ID != "" {
		// A new entry goes straight into editing its name.
		for i, r := range m.view.Rows {
			if r.ID == msg.out.Entry.ID {
				m.cursor = i
			}
		}
		return m.startEdit(model.FieldName)
	}
	return m, nil
}

// send runs an intent off the UI goroutine; the reply comes back as an
// outcomeMsg.
func (m Model) send(kind model.IntentKind, fn func(context.Context) (model.Outcome, error)) tea.Cmd {
	return func() tea.Msg {
		out, err := fn(context.Background())
		return outcomeMsg{kind: kind, out: out, err: err}
	}
}

func (m Model) startEdit(field model.Field) (tea.Model, tea.Cmd) {
	row, ok := m.selected()
	if !ok || row.PendingRemoval {
		return m, nil
	}
	m.editing = true
	m.editID = row.ID
	m.editField = field
	m.input.Prompt = string(field) + ": "
	switch field {
	case model.FieldName:
		m.input.SetValue(row.Name)
	case model.FieldRole:
		m.input.SetValue(row.Role)
	case model.FieldUnits:
		m.input.SetValue(row.UnitsDisplay)
	}
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m *Model) stopEdit() {
	m.editing = false
	m.editID = ""
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) refresh(v model.View) { //nolint:gocritic // hugeParam
	if v.Version < m.view.Version {
		return
	}
	m.view = v
	if m.cursor >= len(v.Rows) {
		m.cursor = len(v.Rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (model.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Rows) {
		return model.Row{}, false
	}
	return m.view.Rows[m.cursor], true
}

// View renders the board.
func (m Model) View() string {
	var sb strings.Builder
	start, end := m.deps.Period()
	sb.WriteString(m.styles.Title.Render("Weekly Recap"))
	sb.WriteString("  ")
	sb.WriteString(m.styles.Period.Render(fmt.Sprintf("%s - %s", start, end)))
	sb.WriteString("\n\n")

	if m.view.State() == model.StateEmpty {
		sb.WriteString(m.styles.Empty.Render(`No cappers added yet. Press "a" to add one.`))
		sb.WriteString("\n")
	}
	for i, r := range m.view.Rows {
		sb.WriteString(m.renderRow(i, r))
		sb.WriteString("\n")
	}

	total := m.styles.Positive
	if m.view.TotalNegative {
		total = m.styles.Negative
	}
	sb.WriteString(m.styles.Total.Render("TOTAL " + total.Render(m.view.TotalDisplay) + " UNITS"))
	sb.WriteString("\n")

	if m.editing {
		sb.WriteString("\n")
		sb.WriteString(m.input.View())
		sb.WriteString("\n")
	}
	if m.status != "" {
		sb.WriteString(m.styles.Status.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m Model) renderRow(i int, r model.Row) string { //nolint:gocritic // hugeParam
	rank := m.styles.Rank
	if r.TopTier {
		rank = m.styles.TopRank
	}
	units := m.styles.Negative
	if r.Nonnegative {
		units = m.styles.Positive
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top,
		rank.Render(r.Rank),
		m.styles.Name.Render(r.Name),
		m.styles.Role.Render(r.Role),
		units.Render(r.UnitsDisplay),
	)
	if r.PendingRemoval {
		line = m.styles.Leaving.Render(line)
	}
	if i == m.cursor {
		line = m.styles.Selected.Render(line)
	}
	return line
}
