package transplant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CaseRepository interface {
	Create(ctx context.Context, c *TransplantCase) error
	GetByID(ctx context.Context, id uuid.UUID) (*TransplantCase, error)
	// FindByPatientOnDay returns the patient's case whose start_at falls on
	// the given calendar day (inclusive bounds), or (nil, nil) when the
	// patient has no such case.
	FindByPatientOnDay(ctx context.Context, patientID uuid.UUID, day time.Time) (*TransplantCase, error)
	ListAll(ctx context.Context) ([]*TransplantCase, error)
	UpdateDuration(ctx context.Context, id uuid.UUID, minutes int) error
}

type SampleRepository interface {
	Create(ctx context.Context, s *IntraopSample) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*IntraopSample, error)
	// ListByPatientOnDay returns samples taken on the given calendar day whose
	// owning case belongs to the given patient.
	ListByPatientOnDay(ctx context.Context, patientID uuid.UUID, day time.Time) ([]*IntraopSample, error)
	// ReassignCase moves the given samples to the target case in one bulk
	// update and returns the number of rows moved.
	ReassignCase(ctx context.Context, ids []uuid.UUID, targetCaseID uuid.UUID) (int64, error)
	MarkSuspicious(ctx context.Context, ids []uuid.UUID) (int64, error)
	// ListAllWithCase returns every sample joined to its owning case, for
	// window-plausibility checks.
	ListAllWithCase(ctx context.Context) ([]*SampleWithCase, error)
	Count(ctx context.Context) (int, error)
}

type OutcomeRepository interface {
	Create(ctx context.Context, o *Outcome) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Outcome, error)
}
