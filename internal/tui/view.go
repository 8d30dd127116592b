package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/seicologia/agenda/internal/appointments"
)

var monthNames = []string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateAgenda:
		content = docStyle.Render(m.agenda.View())
	case StatePatients:
		content = docStyle.Render(m.roster.View())
	case StateSummary:
		content = docStyle.Render(m.viewSummary())
	case StateTasks:
		content = docStyle.Render(RenderTasks(m.ws.Tasks(m.month)))
	case StateAddSession, StateReschedule, StateNote:
		content = m.viewForm()
	}

	parts := []string{m.viewTabs(), content}
	if m.statusLine != "" {
		parts = append(parts, warningStyle.Render(m.statusLine))
	}
	parts = append(parts, m.help.View(m))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range tabTitles {
		if m.state == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	tabs = append(tabs, monthStyle.Render(MonthLabel(m.month)))
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewForm() string {
	title := "Extra session"
	switch m.state {
	case StateReschedule:
		title = fmt.Sprintf("Reschedule %s %s", m.moving.Date.Format("02/01"), m.moving.Time)
	case StateNote:
		title = fmt.Sprintf("Notes %s %s", m.moving.Date.Format("02/01"), m.moving.Time)
	}
	parts := []string{monthStyle.Render(title), m.form.View()}
	if m.formError != "" {
		parts = append(parts, dangerStyle.Render(m.formError))
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) viewSummary() string {
	return RenderSummary(m.ws.Summary(m.month))
}

// RenderSummary lays out the month totals as label/value rows.
func RenderSummary(s appointments.Summary) string {
	rows := [][2]string{
		{"Sessões", fmt.Sprint(s.Sessions)},
		{"Previsto", "R$ " + s.Expected.StringFixed(2)},
		{"Recebido", "R$ " + s.Received.StringFixed(2)},
		{"Em atraso", "R$ " + s.Overdue.StringFixed(2)},
		{"A receber", "R$ " + s.Outstanding.StringFixed(2)},
		{"Pagamentos", fmt.Sprintf("%d pagos, %d pendentes, %d atrasados", s.PaidCount, s.PendingCount, s.OverdueCount)},
		{"Pacientes ativos", fmt.Sprint(s.ActivePatients)},
		{"Entradas / saídas", fmt.Sprintf("%d / %d", s.NewPatients, s.ExitedPatients)},
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(labelStyle.Render(r[0]) + r[1] + "\n")
	}
	if s.Overdue.IsPositive() {
		b.WriteString("\n" + dangerStyle.Render("Há pagamentos em atraso"))
	}
	return b.String()
}

// RenderTasks lists the pending follow-ups, then the done ones.
func RenderTasks(l appointments.TaskList) string {
	var b strings.Builder
	b.WriteString(monthStyle.Render(fmt.Sprintf("Pendentes (%d)", len(l.Open))) + "\n")
	if len(l.Open) == 0 {
		b.WriteString("  Nada pendente neste mês\n")
	}
	for _, t := range l.Open {
		line := fmt.Sprintf("  ☐ %s %-5s %s", t.Due.Format("02/01"), t.Time, t.Title)
		if t.Kind == appointments.TaskPayment {
			line = warningStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + monthStyle.Render(fmt.Sprintf("Concluídas (%d)", len(l.Done))) + "\n")
	for _, t := range l.Done {
		b.WriteString(inactiveTabStyle.Render(fmt.Sprintf("☑ %s %-5s %s", t.Due.Format("02/01"), t.Time, t.Title)) + "\n")
	}
	return b.String()
}

// MonthLabel renders "Julho 2024".
func MonthLabel(month time.Time) string {
	return fmt.Sprintf("%s %d", monthNames[month.Month()-1], month.Year())
}
