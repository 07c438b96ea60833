package evaluation

import (
	"time"

	"github.com/google/uuid"
)

// Evaluation maps to the evaluation table. One row is a pre-transplant
// evaluation for a patient; repeated evaluations over time are legitimate,
// near-identical rows created seconds apart are not.
type Evaluation struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	EvaluationDate *time.Time `db:"evaluation_date" json:"evaluation_date,omitempty"`
	MELDScore      *int       `db:"meld_score" json:"meld_score,omitempty"`
	ChildPughClass *string    `db:"child_pugh_class" json:"child_pugh_class,omitempty"`
	BloodType      *string    `db:"blood_type" json:"blood_type,omitempty"`
	HeightCm       *float64   `db:"height_cm" json:"height_cm,omitempty"`
	WeightKg       *float64   `db:"weight_kg" json:"weight_kg,omitempty"`
	Bilirubin      *float64   `db:"bilirubin" json:"bilirubin,omitempty"`
	INR            *float64   `db:"inr" json:"inr,omitempty"`
	Creatinine     *float64   `db:"creatinine" json:"creatinine,omitempty"`
	Diagnosis      *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	ClinicianID    *uuid.UUID `db:"clinician_id" json:"clinician_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// HasClinician reports whether a clinician has claimed this evaluation.
// Clinician-owned rows win duplicate resolution over imports.
func (e *Evaluation) HasClinician() bool {
	return e.ClinicianID != nil
}
