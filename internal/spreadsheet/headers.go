// Package spreadsheet imports patient rosters from xlsx files and exports
// month agendas to xlsx.
package spreadsheet

import "github.com/seicologia/agenda/internal/utils"

type field int

const (
	fieldName field = iota
	fieldRate
	fieldDuration
	fieldFrequency
	fieldDayOfWeek
	fieldTime
	fieldStartDate
	fieldActive
	fieldPayDay
	fieldPayRecurrence
	fieldEndDate
	fieldIsSocial
	fieldLastAdjustment
	fieldMode
)

// rosterHeaders is the column layout of the practice's patient spreadsheet,
// in export order.
var rosterHeaders = []struct {
	title string
	field field
}{
	{"Pacientes", fieldName},
	{"Receita Sessão(R$)", fieldRate},
	{"Tempo de Sessão(m)", fieldDuration},
	{"Semanal/Quinzenal", fieldFrequency},
	{"Dia da Semana", fieldDayOfWeek},
	{"Horario", fieldTime},
	{"Data de ingresso", fieldStartDate},
	{"Paciente Ativo", fieldActive},
	{"Dia de pagamento", fieldPayDay},
	{"Recorrencia de pagamento", fieldPayRecurrence},
	{"Data de Saida", fieldEndDate},
	{"Paciente Social", fieldIsSocial},
	{"Data Ultimo Reajuste", fieldLastAdjustment},
	{"Presencial/Online", fieldMode},
}

var headerIndex = func() map[string]field {
	m := make(map[string]field, len(rosterHeaders))
	for _, h := range rosterHeaders {
		m[utils.NormalizeText(h.title)] = h.field
	}
	return m
}()

// lookupHeader matches a header cell ignoring case, accents and padding, so
// "Horário" and "HORARIO " both map to the time column.
func lookupHeader(title string) (field, bool) {
	f, ok := headerIndex[utils.NormalizeText(title)]
	return f, ok
}
