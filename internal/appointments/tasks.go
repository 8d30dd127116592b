package appointments

import (
	"fmt"
	"sort"
	"time"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
)

type TaskKind string

const (
	TaskConfirm TaskKind = "confirm"
	TaskNote    TaskKind = "note"
	TaskPayment TaskKind = "payment"
)

// Task is a follow-up derived from an agenda event: a past session to
// confirm, an occurred session without notes, or a payment to collect.
type Task struct {
	ID          string       `json:"id"`
	Kind        TaskKind     `json:"kind"`
	Title       string       `json:"title"`
	PatientID   string       `json:"patientId"`
	PatientName string       `json:"patientName"`
	Due         time.Time    `json:"due"`
	Time        string       `json:"time,omitempty"`
	Event       models.Event `json:"event"`
}

type TaskList struct {
	Open []Task `json:"open"`
	Done []Task `json:"done"`
}

// Tasks derives the open and done follow-ups of events as of today. Sessions
// after today produce no task; unpaid payments are open whatever their date.
// Both lists are sorted by due date.
func Tasks(events []models.Event, today time.Time) TaskList {
	var list TaskList
	today = utils.Civil(today)

	for _, e := range events {
		switch ev := e.(type) {
		case models.SessionEvent:
			list.addSession(ev, today)
		case models.PaymentEvent:
			list.addPayment(ev)
		}
	}

	byDue := func(tasks []Task) {
		sort.SliceStable(tasks, func(i, j int) bool {
			if !tasks[i].Due.Equal(tasks[j].Due) {
				return tasks[i].Due.Before(tasks[j].Due)
			}
			return tasks[i].Time < tasks[j].Time
		})
	}
	byDue(list.Open)
	byDue(list.Done)
	return list
}

func (l *TaskList) addSession(ev models.SessionEvent, today time.Time) {
	if utils.Civil(ev.Date).After(today) {
		return
	}
	status := ev.EffectiveStatus()
	if status.Hidden() {
		return
	}
	occurred := status == models.StatusOccurred || status == models.StatusPaid
	suffix := fmt.Sprintf("%s_%s_%s", ev.PatientID, ev.Date.UTC().Format(constants.DateFormat), ev.Time)
	task := func(kind TaskKind, title string) Task {
		return Task{
			ID:          "task_" + string(kind) + "_" + suffix,
			Kind:        kind,
			Title:       fmt.Sprintf(title, ev.PatientName),
			PatientID:   ev.PatientID,
			PatientName: ev.PatientName,
			Due:         ev.Date,
			Time:        ev.Time,
			Event:       ev,
		}
	}

	if status.Confirmed() {
		l.Done = append(l.Done, task(TaskConfirm, "Sessão registrada: %s"))
	} else {
		l.Open = append(l.Open, task(TaskConfirm, "Confirmar sessão de %s"))
	}

	if !occurred {
		return
	}
	if ev.NotesDone {
		l.Done = append(l.Done, task(TaskNote, "Prontuário registrado: %s"))
	} else {
		l.Open = append(l.Open, task(TaskNote, "Escrever prontuário de %s"))
	}
}

func (l *TaskList) addPayment(ev models.PaymentEvent) {
	t := Task{
		ID:          "task_pay_" + ev.PatientID + "_" + ev.Date.UTC().Format(constants.DateFormat),
		Kind:        TaskPayment,
		PatientID:   ev.PatientID,
		PatientName: ev.PatientName,
		Due:         ev.Date,
		Event:       ev,
	}
	if ev.Status == models.PaymentPaid {
		t.Title = "Pagamento confirmado: " + ev.PatientName
		l.Done = append(l.Done, t)
		return
	}
	t.Title = "Cobrar pagamento de " + ev.PatientName
	l.Open = append(l.Open, t)
}
