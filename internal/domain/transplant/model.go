package transplant

import (
	"time"

	"github.com/google/uuid"
)

// TransplantCase maps to the transplant_case table. One row is one procedure
// occurrence; a patient holds at most one correct case per calendar day.
// The reconciliation engine never deletes a case, even when reassignment
// leaves it empty — an empty case is evidence of a filing error, not garbage.
type TransplantCase struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	StartAt         *time.Time `db:"start_at" json:"start_at,omitempty"`
	EndAt           *time.Time `db:"end_at" json:"end_at,omitempty"`
	DurationMinutes *int       `db:"duration_minutes" json:"duration_minutes,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// ContainsTime reports whether t falls within the case's [start_at, end_at]
// window. Cases missing either bound contain nothing.
func (c *TransplantCase) ContainsTime(t time.Time) bool {
	if c.StartAt == nil || c.EndAt == nil {
		return false
	}
	return !t.Before(*c.StartAt) && !t.After(*c.EndAt)
}

// IntraopSample maps to the intraop_sample table. A timestamped measurement
// taken during a case. Suspicious marks samples whose timestamp falls outside
// the owning case's window; they are flagged, never silently moved.
type IntraopSample struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	CaseID     uuid.UUID  `db:"case_id" json:"case_id"`
	SampledAt  time.Time  `db:"sampled_at" json:"sampled_at"`
	Lactate    *float64   `db:"lactate" json:"lactate,omitempty"`
	PH         *float64   `db:"ph" json:"ph,omitempty"`
	Glucose    *float64   `db:"glucose" json:"glucose,omitempty"`
	Suspicious bool       `db:"suspicious" json:"suspicious"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// SampleWithCase joins a sample to its owning case for window checks.
type SampleWithCase struct {
	Sample IntraopSample
	Case   TransplantCase
}

// Outcome maps to the outcome table. Post-transplant follow-up status for a
// patient, optionally linked to the case it concludes.
type Outcome struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	CaseID     *uuid.UUID `db:"case_id" json:"case_id,omitempty"`
	RecordedAt time.Time  `db:"recorded_at" json:"recorded_at"`
	Status     string     `db:"status" json:"status"`
	Note       *string    `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
