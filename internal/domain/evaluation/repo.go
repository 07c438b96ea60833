package evaluation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Evaluation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Evaluation, error)
	Update(ctx context.Context, e *Evaluation) error
	// ListByPatient returns a patient's evaluations ordered by created_at
	// ascending.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Evaluation, error)
	// ListAll returns every evaluation ordered by patient_id, then created_at
	// ascending, so callers can group by patient in a single pass.
	ListAll(ctx context.Context) ([]*Evaluation, error)
	// PatientsWithMultiple returns the ids of patients holding more than one
	// evaluation.
	PatientsWithMultiple(ctx context.Context) ([]uuid.UUID, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	Count(ctx context.Context) (int, error)
	CountPatients(ctx context.Context) (int, error)
	// CountOnOrBefore returns how many evaluations a patient has dated on or
	// before the given day. Rows without an evaluation_date never count.
	CountOnOrBefore(ctx context.Context, patientID uuid.UUID, day time.Time) (int, error)
}
