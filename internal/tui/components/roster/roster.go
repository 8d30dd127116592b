package roster

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/validation"
)

var (
	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(24)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	issueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

type Model struct {
	viewport viewport.Model
	Patients []models.Patient
	Issues   validation.Result
	width    int
	height   int
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.Patients) == 0 {
		return "No patients yet. Use 'agenda patient add' or 'agenda import'."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

func (m *Model) SetPatients(patients []models.Patient, issues validation.Result) {
	m.Patients = patients
	m.Issues = issues
	m.Render()
}

func (m *Model) Render() {
	var b strings.Builder
	for _, p := range m.Patients {
		slot := fmt.Sprintf("%s %s", p.DayOfWeek, p.Time)
		status := p.Frequency
		if !p.IsActive() {
			status += " | inativo"
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			timeStyle.Render(slot),
			nameStyle.Render(p.Name),
			statusStyle.Render(status),
		)
	}
	if m.Issues.HasIssues() {
		b.WriteString("\n")
		for _, issue := range m.Issues.Issues {
			b.WriteString(issueStyle.Render("⚠ "+issue.Description) + "\n")
		}
	}
	m.viewport.SetContent(b.String())
}
