package models

import (
	"strings"
	"time"
)

// Note is the clinical record written for one session. Key identifies the
// session it belongs to; the patient and slot fields are kept so a note stays
// readable after the patient is removed.
type Note struct {
	Key         string    `json:"appointmentKey"`
	PatientID   string    `json:"patientId"`
	PatientName string    `json:"patientName"`
	SessionDate string    `json:"sessionDate"` // YYYY-MM-DD format
	SessionTime string    `json:"sessionTime"` // HH:MM format
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Done reports whether the note has any content.
func (n Note) Done() bool {
	return strings.TrimSpace(n.Content) != ""
}
