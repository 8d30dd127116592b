package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seicologia/agenda/internal/conflict"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/persist"
	"github.com/seicologia/agenda/internal/storage"
	"github.com/seicologia/agenda/internal/workspace"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store := storage.NewJSONStore(filepath.Join(t.TempDir(), "agenda.json"))
	require.NoError(t, store.Init())
	settings, err := store.GetSettings()
	require.NoError(t, err)
	settings.Timezone = "UTC"
	require.NoError(t, store.SaveSettings(settings))

	reg := prometheus.NewRegistry()
	now := time.Date(2024, time.July, 10, 12, 0, 0, 0, time.UTC)
	ws, err := workspace.Open(store, workspace.Options{
		Metrics: persist.NewMetrics(reg),
		Now:     func() time.Time { return now },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close(context.Background()) })

	return New(Config{Workspace: ws, Registry: reg}).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var anaBody = map[string]any{
	"name":      "Ana",
	"rate":      100,
	"frequency": "Semanal",
	"dayOfWeek": "segunda-feira",
	"time":      "09:00",
	"startDate": "2024-07-01",
	"active":    "Sim",
	"payDay":    "5",
}

func createAna(t *testing.T, h http.Handler) models.Patient {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/patients", anaBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[workspace.SaveResult](t, rec).Patient
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreatePatientConflict(t *testing.T) {
	h := newTestServer(t)
	ana := createAna(t, h)
	assert.NotEmpty(t, ana.ID)

	bruno := map[string]any{}
	for k, v := range anaBody {
		bruno[k] = v
	}
	bruno["name"] = "Bruno"

	rec := do(t, h, http.MethodPost, "/api/patients", bruno)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody[struct {
		Error    string          `json:"error"`
		Conflict conflict.Result `json:"conflict"`
	}](t, rec)
	assert.True(t, body.Conflict.Conflict)
	assert.Equal(t, "Ana", body.Conflict.PatientName)
	assert.NotEmpty(t, body.Conflict.Suggestions)

	rec = do(t, h, http.MethodPost, "/api/patients?force=true", bruno)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decodeBody[workspace.SaveResult](t, rec).Conflict.Conflict)

	rec = do(t, h, http.MethodGet, "/api/patients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Patient](t, rec), 2)
}

func TestUpdateAndDeletePatient(t *testing.T) {
	h := newTestServer(t)
	ana := createAna(t, h)

	updated := map[string]any{}
	for k, v := range anaBody {
		updated[k] = v
	}
	updated["time"] = "10:00"
	rec := do(t, h, http.MethodPut, "/api/patients/"+ana.ID, updated)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "10:00", decodeBody[workspace.SaveResult](t, rec).Patient.Time)

	rec = do(t, h, http.MethodPut, "/api/patients/missing", updated)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/patients/"+ana.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/patients/"+ana.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/patients/"+ana.ID+"/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ana.ID, decodeBody[models.Patient](t, rec).ID)
}

func TestAgendaAndSessionPatch(t *testing.T) {
	h := newTestServer(t)
	ana := createAna(t, h)

	rec := do(t, h, http.MethodGet, "/api/agenda?month=2024-07", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	agenda := decodeBody[agendaResponse](t, rec)
	assert.Equal(t, "2024-07", agenda.Month)
	assert.Len(t, agenda.Sessions, 5)
	require.Len(t, agenda.Payments, 1)
	// Cycle (Jun 5, Jul 5] only holds the Jul 1 session.
	assert.Equal(t, "100", agenda.Payments[0].Rate.String())

	rec = do(t, h, http.MethodPatch, "/api/sessions", map[string]any{
		"ref":    map[string]string{"patientId": ana.ID, "date": "2024-07-01"},
		"status": "cancelled",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess := decodeBody[models.Session](t, rec)
	assert.Equal(t, models.StatusCancelled, sess.Status)
	assert.NotNil(t, sess.CancelledAt)

	rec = do(t, h, http.MethodGet, "/api/agenda?month=2024-07", nil)
	agenda = decodeBody[agendaResponse](t, rec)
	assert.Len(t, agenda.Sessions, 4)
	assert.Equal(t, "0", agenda.Payments[0].Rate.String())

	rec = do(t, h, http.MethodPatch, "/api/sessions", map[string]any{
		"ref": map[string]string{"patientId": ana.ID, "date": "2024-07-01"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPatch, "/api/sessions", map[string]any{
		"ref":    map[string]string{"patientId": ana.ID, "date": "2024-07-09"},
		"status": "occurred",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRescheduleAndExtraSession(t *testing.T) {
	h := newTestServer(t)
	ana := createAna(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/reschedule", map[string]any{
		"ref":  map[string]string{"patientId": ana.ID, "date": "2024-07-15"},
		"date": "2024-07-17",
		"time": "14:00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decodeBody[models.Session](t, rec)
	assert.True(t, moved.IsExtra)
	assert.Equal(t, 17, moved.Date.Day())
	require.NotNil(t, moved.RescheduledFrom)
	assert.Equal(t, "2024-07-15", moved.RescheduledFrom.Date)

	rec = do(t, h, http.MethodPost, "/api/sessions", workspace.ExtraInput{
		PatientID: ana.ID, Date: "2024-07-20", Time: "11:00", Rate: "80,50",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	extra := decodeBody[models.Session](t, rec)
	assert.Equal(t, "80.5", extra.Rate.String())

	rec = do(t, h, http.MethodGet, "/api/agenda?month=2024-07", nil)
	agenda := decodeBody[agendaResponse](t, rec)
	var days []int
	for _, s := range agenda.Sessions {
		days = append(days, s.Date.Day())
	}
	assert.Equal(t, []int{1, 8, 17, 20, 22, 29}, days)
}

func TestPaymentPatch(t *testing.T) {
	h := newTestServer(t)
	ana := createAna(t, h)
	path := "/api/payments/" + ana.ID + "/2024-07-05"

	rec := do(t, h, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.PaymentOverdue, decodeBody[models.PaymentEvent](t, rec).Status)

	rec = do(t, h, http.MethodPatch, path, map[string]string{"status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pay := decodeBody[models.PaymentEvent](t, rec)
	assert.Equal(t, models.PaymentPaid, pay.Status)
	assert.NotNil(t, pay.PaidAt)

	rec = do(t, h, http.MethodPatch, path, map[string]string{"status": "refunded"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBadRequests(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/agenda?month=julho", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid JSON body")

	rec = do(t, h, http.MethodPost, "/api/patients", map[string]any{"name": "", "time": "09:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportAndMetrics(t *testing.T) {
	h := newTestServer(t)
	createAna(t, h)

	rec := do(t, h, http.MethodGet, "/api/export.xlsx?month=2024-07", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "agenda-2024-07.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `agenda_http_requests_total{code="201",method="POST"`)
	assert.Contains(t, rec.Body.String(), "agenda_persist_coalesced_total")
}

func TestNotesAndTasks(t *testing.T) {
	h := newTestServer(t)
	ana := createAna(t, h)
	ref := map[string]string{"patientId": ana.ID, "date": "2024-07-01"}

	rec := do(t, h, http.MethodPut, "/api/notes", map[string]any{"ref": ref, "content": "primeira sessão"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "scheduled sessions take no notes")

	rec = do(t, h, http.MethodPatch, "/api/sessions", map[string]any{"ref": ref, "status": "occurred"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	type task struct {
		Kind  string `json:"kind"`
		Title string `json:"title"`
	}
	type taskList struct {
		Open []task `json:"open"`
		Done []task `json:"done"`
	}
	rec = do(t, h, http.MethodGet, "/api/tasks?month=2024-07", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := decodeBody[taskList](t, rec)
	require.Len(t, tasks.Open, 3)
	assert.Equal(t, "Escrever prontuário de Ana", tasks.Open[0].Title)

	rec = do(t, h, http.MethodPut, "/api/notes", map[string]any{"ref": ref, "content": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/notes", map[string]any{"ref": ref, "content": "primeira sessão"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	note := decodeBody[models.Note](t, rec)
	assert.Equal(t, ana.ID+"_2024-07-01_09:00", note.Key)

	rec = do(t, h, http.MethodGet, "/api/notes/session?patientId="+ana.ID+"&date=2024-07-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "primeira sessão", decodeBody[models.Note](t, rec).Content)

	rec = do(t, h, http.MethodGet, "/api/agenda?month=2024-07", nil)
	sessions := decodeBody[agendaResponse](t, rec).Sessions
	require.NotEmpty(t, sessions)
	assert.True(t, sessions[0].NotesDone)

	rec = do(t, h, http.MethodGet, "/api/tasks?month=2024-07", nil)
	tasks = decodeBody[taskList](t, rec)
	assert.Len(t, tasks.Open, 2)
	assert.Len(t, tasks.Done, 2)

	rec = do(t, h, http.MethodGet, "/api/notes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Note](t, rec), 1)

	rec = do(t, h, http.MethodDelete, "/api/notes/"+note.Key, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/notes/"+note.Key, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/notes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":0}`, rec.Body.String())
}
