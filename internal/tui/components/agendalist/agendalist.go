package agendalist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
)

type SetStatusMsg struct {
	Session models.Session
	Status  models.SessionStatus
}

type TogglePaymentMsg struct {
	Payment models.PaymentEvent
}

type AddSessionMsg struct{}

type RescheduleMsg struct {
	Session models.Session
}

type NoteMsg struct {
	Session models.Session
}

type Item struct {
	Event models.Event
}

func (i Item) Title() string {
	day := i.Event.EventDate().Format("02/01") + " " + utils.WeekdayLabel(i.Event.EventDate().Weekday())
	switch ev := i.Event.(type) {
	case models.SessionEvent:
		name := ev.PatientName
		if ev.IsExtra {
			name += " (extra)"
		}
		return fmt.Sprintf("%s %s  %s", day, ev.Time, name)
	case models.PaymentEvent:
		return fmt.Sprintf("%s %s  💰 %s", day, ev.Time, ev.PatientName)
	}
	return day
}

func (i Item) Description() string {
	switch ev := i.Event.(type) {
	case models.SessionEvent:
		desc := fmt.Sprintf("%d min | R$ %s | %s", ev.Duration, ev.Rate.StringFixed(2), ev.EffectiveStatus())
		if ev.NotesDone {
			desc += " | 📝"
		}
		return desc
	case models.PaymentEvent:
		return fmt.Sprintf("R$ %s | %d sessões | %s", ev.Rate.StringFixed(2), ev.SessionsCount, ev.Status)
	}
	return ""
}

func (i Item) FilterValue() string {
	switch ev := i.Event.(type) {
	case models.SessionEvent:
		return ev.PatientName
	case models.PaymentEvent:
		return ev.PatientName
	}
	return ""
}

type KeyMap struct {
	Occurred   key.Binding
	Cancel     key.Binding
	MissedPaid key.Binding
	Reopen     key.Binding
	Paid       key.Binding
	Add        key.Binding
	Reschedule key.Binding
	Notes      key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Occurred: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "occurred"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel"),
		),
		MissedPaid: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "missed, paid"),
		),
		Reopen: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reopen"),
		),
		Paid: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "toggle paid"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "extra session"),
		),
		Reschedule: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "reschedule"),
		),
		Notes: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "notes"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(events []models.Event, width, height int) Model {
	l := list.New(toItems(events), list.NewDefaultDelegate(), width, height)
	l.Title = "Agenda"
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Occurred, keys.Cancel, keys.Paid, keys.Add}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Occurred, keys.Cancel, keys.MissedPaid, keys.Reopen, keys.Paid, keys.Add, keys.Reschedule, keys.Notes}
	}

	return Model{list: l, keys: keys}
}

func toItems(events []models.Event) []list.Item {
	items := make([]list.Item, len(events))
	for i, e := range events {
		items[i] = Item{Event: e}
	}
	return items
}

// SetEvents replaces the listed events, keeping the cursor where it was.
func (m *Model) SetEvents(events []models.Event) tea.Cmd {
	idx := m.list.Index()
	cmd := m.list.SetItems(toItems(events))
	if idx < len(events) {
		m.list.Select(idx)
	}
	return cmd
}

// Selected returns the highlighted event.
func (m Model) Selected() (models.Event, bool) {
	i, ok := m.list.SelectedItem().(Item)
	if !ok {
		return nil, false
	}
	return i.Event, true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		if key.Matches(msg, m.keys.Add) {
			return m, func() tea.Msg { return AddSessionMsg{} }
		}
		ev, ok := m.Selected()
		if !ok {
			break
		}
		switch e := ev.(type) {
		case models.SessionEvent:
			if c := m.sessionCmd(msg, e.Session); c != nil {
				return m, c
			}
		case models.PaymentEvent:
			if key.Matches(msg, m.keys.Paid) {
				return m, func() tea.Msg { return TogglePaymentMsg{Payment: e} }
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) sessionCmd(msg tea.KeyMsg, s models.Session) tea.Cmd {
	status := func(st models.SessionStatus) tea.Cmd {
		return func() tea.Msg { return SetStatusMsg{Session: s, Status: st} }
	}
	switch {
	case key.Matches(msg, m.keys.Occurred):
		return status(models.StatusOccurred)
	case key.Matches(msg, m.keys.Cancel):
		return status(models.StatusCancelled)
	case key.Matches(msg, m.keys.MissedPaid):
		return status(models.StatusMissedPaid)
	case key.Matches(msg, m.keys.Reopen):
		return status(models.StatusScheduled)
	case key.Matches(msg, m.keys.Reschedule):
		return func() tea.Msg { return RescheduleMsg{Session: s} }
	case key.Matches(msg, m.keys.Notes):
		return func() tea.Msg { return NoteMsg{Session: s} }
	}
	return nil
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  Nothing scheduled this month.\n  Press 'a' to book an extra session."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
