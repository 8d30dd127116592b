package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/tui/components/agendalist"
	"github.com/seicologia/agenda/internal/workspace"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == StateAddSession || m.state == StateReschedule || m.state == StateNote {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h, v := docStyle.GetFrameSize()
		m.agenda.SetSize(msg.Width-h, msg.Height-v-4)
		m.roster.SetSize(msg.Width-h, msg.Height-v-4)
		return m, nil

	case agendalist.SetStatusMsg:
		if _, err := m.ws.SetSessionStatus(workspace.Ref(msg.Session), msg.Status); err != nil {
			m.statusLine = "Error: " + err.Error()
			return m, nil
		}
		m.statusLine = ""
		return m, m.refresh()

	case agendalist.TogglePaymentMsg:
		next := models.PaymentPaid
		if msg.Payment.Status == models.PaymentPaid {
			next = models.PaymentPending
		}
		date := msg.Payment.Date.Format(constants.DateFormat)
		if err := m.ws.SetPaymentStatus(msg.Payment.PatientID, date, next); err != nil {
			m.statusLine = "Error: " + err.Error()
			return m, nil
		}
		m.statusLine = ""
		return m, m.refresh()

	case agendalist.AddSessionMsg:
		patients := m.ws.Patients()
		if len(patients) == 0 {
			m.statusLine = "Add a patient first"
			return m, nil
		}
		m.extraForm = &ExtraFormModel{
			PatientID: patients[0].ID,
			Date:      m.defaultDate(),
			Time:      constants.DefaultSessionTime,
		}
		m.form = NewExtraForm(m.extraForm, patients)
		m.previousState = m.state
		m.state = StateAddSession
		return m, m.form.Init()

	case agendalist.RescheduleMsg:
		m.moving = msg.Session
		m.moveForm = &RescheduleFormModel{
			Date: msg.Session.Date.Format(constants.DateFormat),
			Time: msg.Session.Time,
		}
		m.form = NewRescheduleForm(m.moveForm)
		m.previousState = m.state
		m.state = StateReschedule
		return m, m.form.Init()

	case agendalist.NoteMsg:
		if st := msg.Session.EffectiveStatus(); st != models.StatusOccurred && st != models.StatusPaid {
			m.statusLine = "Mark the session as occurred before writing notes"
			return m, nil
		}
		m.moving = msg.Session
		m.noteForm = &NoteFormModel{}
		if n, err := m.ws.Note(workspace.Ref(msg.Session)); err == nil {
			m.noteForm.Content = n.Content
		}
		m.form = NewNoteForm(m.noteForm, "Notes")
		m.previousState = m.state
		m.state = StateNote
		return m, m.form.Init()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + tabCount) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.PrevMonth):
			m.month = m.month.AddDate(0, -1, 0)
			return m, m.refresh()
		case key.Matches(msg, m.keys.NextMonth):
			m.month = m.month.AddDate(0, 1, 0)
			return m, m.refresh()
		case key.Matches(msg, m.keys.Today):
			today := m.ws.Today()
			m.month = today.AddDate(0, 0, 1-today.Day())
			return m, m.refresh()
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateAgenda:
		m.agenda, cmd = m.agenda.Update(msg)
	case StatePatients:
		m.roster, cmd = m.roster.Update(msg)
	}
	return m, cmd
}

// defaultDate proposes today when browsing the current month, otherwise the
// first day of the month on screen.
func (m Model) defaultDate() string {
	today := m.ws.Today()
	if today.Year() == m.month.Year() && today.Month() == m.month.Month() {
		return today.Format(constants.DateFormat)
	}
	return m.month.Format(constants.DateFormat)
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.formError = ""
		m.state = m.previousState
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds := []tea.Cmd{cmd}

	switch m.form.State {
	case huh.StateCompleted:
		var err error
		switch m.state {
		case StateAddSession:
			_, err = m.ws.AddSession(workspace.ExtraInput{
				PatientID: m.extraForm.PatientID,
				Date:      m.extraForm.Date,
				Time:      m.extraForm.Time,
				Rate:      m.extraForm.Rate,
			})
		case StateReschedule:
			_, err = m.ws.Reschedule(workspace.Ref(m.moving), m.moveForm.Date, m.moveForm.Time)
		case StateNote:
			_, err = m.ws.SaveNote(workspace.Ref(m.moving), m.noteForm.Content)
		}
		if err != nil {
			// Stay in the form so the user can correct it.
			m.formError = err.Error()
			m.form.State = huh.StateNormal
			return m, tea.Batch(cmds...)
		}
		m.formError = ""
		m.state = m.previousState
		cmds = append(cmds, m.refresh())
	case huh.StateAborted:
		m.formError = ""
		m.state = m.previousState
	}
	return m, tea.Batch(cmds...)
}
