// Package tui is the terminal month agenda.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/tui/components/agendalist"
	"github.com/seicologia/agenda/internal/tui/components/roster"
	"github.com/seicologia/agenda/internal/validation"
	"github.com/seicologia/agenda/internal/workspace"
)

type SessionState int

const (
	StateAgenda SessionState = iota
	StatePatients
	StateSummary
	StateTasks
	StateAddSession
	StateReschedule
	StateNote
)

const tabCount = 4

var tabTitles = []string{"Agenda", "Pacientes", "Resumo", "Tarefas"}

type ExtraFormModel struct {
	PatientID string
	Date      string
	Time      string
	Rate      string
}

type RescheduleFormModel struct {
	Date string
	Time string
}

type NoteFormModel struct {
	Content string
}

type Model struct {
	ws            *workspace.Workspace
	state         SessionState
	previousState SessionState
	keys          KeyMap
	help          help.Model
	month         time.Time
	agenda        agendalist.Model
	roster        roster.Model
	form          *huh.Form
	extraForm     *ExtraFormModel
	moveForm      *RescheduleFormModel
	noteForm      *NoteFormModel
	moving        models.Session
	statusLine    string
	formError     string
	quitting      bool
	width         int
	height        int
}

func NewModel(ws *workspace.Workspace) Model {
	month := ws.Today()
	m := Model{
		ws:     ws,
		state:  StateAgenda,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		month:  time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location()),
		agenda: agendalist.New(nil, 80, 20),
		roster: roster.New(80, 20),
	}
	m.refresh()
	return m
}

// refresh reloads the month and the roster from the workspace.
func (m *Model) refresh() tea.Cmd {
	patients := m.ws.Patients()
	m.roster.SetPatients(patients, validation.Roster(patients))
	return m.agenda.SetEvents(m.ws.Agenda(m.month))
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	if m.state == StateAgenda || m.state == StateTasks {
		keys = append(keys, m.keys.PrevMonth, m.keys.NextMonth)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.PrevMonth, m.keys.NextMonth, m.keys.Today}
	return [][]key.Binding{global, navigation}
}

func (m Model) Init() tea.Cmd {
	return nil
}
