package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seicologia/agenda/internal/appointments"
	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/storage"
)

func TestSaveNoteRequiresOccurredSession(t *testing.T) {
	ws := openTestWorkspace(t, filepath.Join(t.TempDir(), "ws.json"))
	_, err := ws.SavePatient(monday("a", "Ana"), false)
	require.NoError(t, err)
	ref := SessionRef{PatientID: "a", Date: "2024-07-08"}

	_, err = ws.SaveNote(ref, "primeira sessão")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = ws.SetSessionStatus(ref, models.StatusOccurred)
	require.NoError(t, err)
	n, err := ws.SaveNote(ref, "primeira sessão")
	require.NoError(t, err)
	assert.Equal(t, "a_2024-07-08_09:00", n.Key)
	assert.Equal(t, "Ana", n.PatientName)
	assert.Equal(t, "2024-07-08", n.SessionDate)
	assert.Equal(t, "09:00", n.SessionTime)
	assert.Equal(t, fixedNow, n.CreatedAt)

	got, err := ws.Note(ref)
	require.NoError(t, err)
	assert.Equal(t, "primeira sessão", got.Content)

	_, err = ws.Note(SessionRef{PatientID: "a", Date: "2024-07-01"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNotesMarkAgendaAndPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ws.json")
	ws := openTestWorkspace(t, path)
	_, err := ws.SavePatient(monday("a", "Ana"), false)
	require.NoError(t, err)
	ref := SessionRef{PatientID: "a", Date: "2024-07-01"}
	_, err = ws.SetSessionStatus(ref, models.StatusOccurred)
	require.NoError(t, err)
	_, err = ws.SaveNote(ref, "ok")
	require.NoError(t, err)

	july := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range appointments.Sessions(ws.Agenda(july)) {
		assert.Equal(t, s.Date.Day() == 1, s.NotesDone, "day %d", s.Date.Day())
	}
	require.NoError(t, ws.Close(context.Background()))

	reopened := openTestWorkspace(t, path)
	defer reopened.Close(context.Background())
	notes := reopened.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "a_2024-07-01_09:00", notes[0].Key)

	require.NoError(t, reopened.DeleteNote(notes[0].Key))
	assert.Empty(t, reopened.Notes())
	assert.ErrorIs(t, reopened.DeleteNote(notes[0].Key), storage.ErrNotFound)
}

func TestSaveNoteLimit(t *testing.T) {
	ws := openTestWorkspace(t, filepath.Join(t.TempDir(), "ws.json"))
	_, err := ws.SavePatient(monday("a", "Ana"), false)
	require.NoError(t, err)

	var refs []SessionRef
	for i := 0; i <= constants.MaxNotes; i++ {
		day := 1 + i%28
		extra, err := ws.AddSession(ExtraInput{PatientID: "a", Date: fmt.Sprintf("2024-06-%02d", day), Time: fmt.Sprintf("%02d:00", 7+i/28)})
		require.NoError(t, err)
		ref := Ref(extra)
		_, err = ws.SetSessionStatus(ref, models.StatusOccurred)
		require.NoError(t, err)
		refs = append(refs, ref)
	}

	for _, ref := range refs[:constants.MaxNotes] {
		_, err := ws.SaveNote(ref, "nota")
		require.NoError(t, err)
	}
	_, err = ws.SaveNote(refs[constants.MaxNotes], "nota")
	assert.ErrorIs(t, err, ErrNoteLimit)

	// Editing an existing note is still allowed at the limit.
	_, err = ws.SaveNote(refs[0], "nota revisada")
	require.NoError(t, err)

	n, err := ws.DeleteAllNotes()
	require.NoError(t, err)
	assert.Equal(t, constants.MaxNotes, n)
	assert.Empty(t, ws.Notes())
}

func TestWorkspaceTasks(t *testing.T) {
	ws := openTestWorkspace(t, filepath.Join(t.TempDir(), "ws.json"))
	_, err := ws.SavePatient(monday("a", "Ana"), false)
	require.NoError(t, err)
	ref := SessionRef{PatientID: "a", Date: "2024-07-01"}
	_, err = ws.SetSessionStatus(ref, models.StatusOccurred)
	require.NoError(t, err)

	july := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	kinds := func(tasks []appointments.Task) []appointments.TaskKind {
		var out []appointments.TaskKind
		for _, task := range tasks {
			out = append(out, task.Kind)
		}
		return out
	}

	list := ws.Tasks(july)
	assert.Equal(t, []appointments.TaskKind{appointments.TaskNote, appointments.TaskPayment, appointments.TaskConfirm}, kinds(list.Open))
	assert.Equal(t, []appointments.TaskKind{appointments.TaskConfirm}, kinds(list.Done))

	_, err = ws.SaveNote(ref, "ok")
	require.NoError(t, err)
	list = ws.Tasks(july)
	assert.Equal(t, []appointments.TaskKind{appointments.TaskPayment, appointments.TaskConfirm}, kinds(list.Open))
	assert.Equal(t, []appointments.TaskKind{appointments.TaskConfirm, appointments.TaskNote}, kinds(list.Done))
}
