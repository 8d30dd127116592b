package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/seicologia/agenda/internal/appointments"
	"github.com/seicologia/agenda/internal/conflict"
	"github.com/seicologia/agenda/internal/logger"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/spreadsheet"
	"github.com/seicologia/agenda/internal/storage"
	"github.com/seicologia/agenda/internal/workspace"
)

type agendaResponse struct {
	Month    string                `json:"month"`
	Sessions []models.SessionEvent `json:"sessions"`
	Payments []models.PaymentEvent `json:"payments"`
	Summary  appointments.Summary  `json:"summary"`
}

type errorResponse struct {
	Error    string           `json:"error"`
	Conflict *conflict.Result `json:"conflict,omitempty"`
}

type sessionPatchRequest struct {
	Ref    workspace.SessionRef  `json:"ref"`
	Status *models.SessionStatus `json:"status,omitempty"`
	Patch  *models.SessionPatch  `json:"patch,omitempty"`
}

type rescheduleRequest struct {
	Ref  workspace.SessionRef `json:"ref"`
	Date string               `json:"date"`
	Time string               `json:"time"`
}

type noteRequest struct {
	Ref     workspace.SessionRef `json:"ref"`
	Content string               `json:"content"`
}

type paymentPatchRequest struct {
	Status models.PaymentStatus `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	var ce *workspace.ConflictError
	switch {
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "schedule conflict", Conflict: &ce.Result})
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, workspace.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, workspace.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, workspace.ErrNoteLimit):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		logger.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", workspace.ErrInvalid, err)
	}
	return nil
}

func forceParam(r *http.Request) bool {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	return force
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/agenda?month=YYYY-MM
func (s *Server) getAgenda(w http.ResponseWriter, r *http.Request) {
	month, err := s.ws.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, err)
		return
	}
	events := s.ws.Agenda(month)
	resp := agendaResponse{
		Month:    month.Format("2006-01"),
		Sessions: appointments.Sessions(events),
		Payments: appointments.Payments(events),
		Summary:  appointments.Summarize(events, s.ws.Patients(), month, s.ws.Location()),
	}
	if resp.Sessions == nil {
		resp.Sessions = []models.SessionEvent{}
	}
	if resp.Payments == nil {
		resp.Payments = []models.PaymentEvent{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/summary?month=YYYY-MM
func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	month, err := s.ws.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.Summary(month))
}

// GET /api/export.xlsx?month=YYYY-MM
func (s *Server) exportMonth(w http.ResponseWriter, r *http.Request) {
	month, err := s.ws.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, err)
		return
	}
	events := s.ws.Agenda(month)
	patients := s.ws.Patients()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="agenda-%s.xlsx"`, month.Format("2006-01")))
	err = spreadsheet.ExportMonth(w, spreadsheet.MonthReport{
		Month:    month,
		Events:   events,
		Summary:  appointments.Summarize(events, patients, month, s.ws.Location()),
		Patients: patients,
	})
	if err != nil {
		logger.Error("Failed to export month", "month", month.Format("2006-01"), "error", err)
	}
}

func (s *Server) listPatients(w http.ResponseWriter, r *http.Request) {
	patients := s.ws.Patients()
	if patients == nil {
		patients = []models.Patient{}
	}
	writeJSON(w, http.StatusOK, patients)
}

func (s *Server) getPatient(w http.ResponseWriter, r *http.Request) {
	p, err := s.ws.Patient(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// POST /api/patients[?force=true]
func (s *Server) createPatient(w http.ResponseWriter, r *http.Request) {
	var p models.Patient
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	p.ID = ""
	res, err := s.ws.SavePatient(p, forceParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// PUT /api/patients/{id}[?force=true]
func (s *Server) updatePatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.ws.Patient(id); err != nil {
		writeError(w, err)
		return
	}
	var p models.Patient
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	p.ID = id
	res, err := s.ws.SavePatient(p, forceParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/patients/check reports conflicts without saving.
func (s *Server) checkPatient(w http.ResponseWriter, r *http.Request) {
	var p models.Patient
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.CheckPatient(p))
}

func (s *Server) deletePatient(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.RemovePatient(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) restorePatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ws.RestorePatient(id); err != nil {
		writeError(w, err)
		return
	}
	s.getPatient(w, r)
}

// POST /api/sessions books an extra session.
func (s *Server) addSession(w http.ResponseWriter, r *http.Request) {
	var in workspace.ExtraInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.ws.AddSession(in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// PATCH /api/sessions sets a status or merges a raw patch.
func (s *Server) patchSession(w http.ResponseWriter, r *http.Request) {
	var req sessionPatchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var (
		sess models.Session
		err  error
	)
	switch {
	case req.Status != nil:
		sess, err = s.ws.SetSessionStatus(req.Ref, *req.Status)
	case req.Patch != nil:
		sess, err = s.ws.PatchSession(req.Ref, *req.Patch)
	default:
		err = fmt.Errorf("%w: status or patch required", workspace.ErrInvalid)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// POST /api/sessions/reschedule
func (s *Server) reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	moved, err := s.ws.Reschedule(req.Ref, req.Date, req.Time)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	pay, err := s.ws.Payment(chi.URLParam(r, "patientID"), chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pay)
}

// PATCH /api/payments/{patientID}/{date}
func (s *Server) patchPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentPatchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	patientID, date := chi.URLParam(r, "patientID"), chi.URLParam(r, "date")
	if err := s.ws.SetPaymentStatus(patientID, date, req.Status); err != nil {
		writeError(w, err)
		return
	}
	s.getPayment(w, r)
}

// GET /api/tasks?month=YYYY-MM
func (s *Server) getTasks(w http.ResponseWriter, r *http.Request) {
	month, err := s.ws.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, err)
		return
	}
	list := s.ws.Tasks(month)
	if list.Open == nil {
		list.Open = []appointments.Task{}
	}
	if list.Done == nil {
		list.Done = []appointments.Task{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Notes())
}

// GET /api/notes/session?patientId=&date= or ?extraId=
func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := workspace.SessionRef{PatientID: q.Get("patientId"), Date: q.Get("date"), ExtraID: q.Get("extraId")}
	n, err := s.ws.Note(ref)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// PUT /api/notes
func (s *Server) saveNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, fmt.Errorf("%w: content required", workspace.ErrInvalid))
		return
	}
	n, err := s.ws.SaveNote(req.Ref, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.DeleteNote(chi.URLParam(r, "key")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteAllNotes(w http.ResponseWriter, r *http.Request) {
	n, err := s.ws.DeleteAllNotes()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}
