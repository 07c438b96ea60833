package transplant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Case Repository ===========

type caseRepoPG struct{ pool *pgxpool.Pool }

func NewCaseRepoPG(pool *pgxpool.Pool) CaseRepository { return &caseRepoPG{pool: pool} }

const caseCols = `id, patient_id, start_at, end_at, duration_minutes, created_at, updated_at`

func scanCase(row pgx.Row) (*TransplantCase, error) {
	var c TransplantCase
	err := row.Scan(&c.ID, &c.PatientID, &c.StartAt, &c.EndAt, &c.DurationMinutes,
		&c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *caseRepoPG) Create(ctx context.Context, c *TransplantCase) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO transplant_case (id, patient_id, start_at, end_at, duration_minutes)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.PatientID, c.StartAt, c.EndAt, c.DurationMinutes)
	return err
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TransplantCase, error) {
	return scanCase(r.pool.QueryRow(ctx, `SELECT `+caseCols+` FROM transplant_case WHERE id = $1`, id))
}

func (r *caseRepoPG) FindByPatientOnDay(ctx context.Context, patientID uuid.UUID, day time.Time) (*TransplantCase, error) {
	c, err := scanCase(r.pool.QueryRow(ctx, `
		SELECT `+caseCols+` FROM transplant_case
		WHERE patient_id = $1 AND start_at IS NOT NULL AND start_at::date = $2::date
		ORDER BY start_at ASC LIMIT 1`,
		patientID, day))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *caseRepoPG) ListAll(ctx context.Context) ([]*TransplantCase, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+caseCols+` FROM transplant_case ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TransplantCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *caseRepoPG) UpdateDuration(ctx context.Context, id uuid.UUID, minutes int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE transplant_case SET duration_minutes = $2, updated_at = NOW() WHERE id = $1`,
		id, minutes)
	return err
}

// =========== Sample Repository ===========

type sampleRepoPG struct{ pool *pgxpool.Pool }

func NewSampleRepoPG(pool *pgxpool.Pool) SampleRepository { return &sampleRepoPG{pool: pool} }

const sampleCols = `id, case_id, sampled_at, lactate, ph, glucose, suspicious, created_at`

func scanSample(row pgx.Row) (*IntraopSample, error) {
	var s IntraopSample
	err := row.Scan(&s.ID, &s.CaseID, &s.SampledAt, &s.Lactate, &s.PH, &s.Glucose,
		&s.Suspicious, &s.CreatedAt)
	return &s, err
}

func collectSamples(rows pgx.Rows) ([]*IntraopSample, error) {
	defer rows.Close()
	var items []*IntraopSample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *sampleRepoPG) Create(ctx context.Context, s *IntraopSample) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO intraop_sample (id, case_id, sampled_at, lactate, ph, glucose, suspicious)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.CaseID, s.SampledAt, s.Lactate, s.PH, s.Glucose, s.Suspicious)
	return err
}

func (r *sampleRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*IntraopSample, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sampleCols+` FROM intraop_sample WHERE case_id = $1 ORDER BY sampled_at ASC`, caseID)
	if err != nil {
		return nil, err
	}
	return collectSamples(rows)
}

func (r *sampleRepoPG) ListByPatientOnDay(ctx context.Context, patientID uuid.UUID, day time.Time) ([]*IntraopSample, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.case_id, s.sampled_at, s.lactate, s.ph, s.glucose, s.suspicious, s.created_at
		FROM intraop_sample s
		JOIN transplant_case c ON c.id = s.case_id
		WHERE c.patient_id = $1 AND s.sampled_at::date = $2::date
		ORDER BY s.sampled_at ASC`,
		patientID, day)
	if err != nil {
		return nil, err
	}
	return collectSamples(rows)
}

func (r *sampleRepoPG) ReassignCase(ctx context.Context, ids []uuid.UUID, targetCaseID uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE intraop_sample SET case_id = $2 WHERE id = ANY($1)`, ids, targetCaseID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *sampleRepoPG) MarkSuspicious(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE intraop_sample SET suspicious = TRUE WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *sampleRepoPG) ListAllWithCase(ctx context.Context) ([]*SampleWithCase, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.case_id, s.sampled_at, s.lactate, s.ph, s.glucose, s.suspicious, s.created_at,
			c.id, c.patient_id, c.start_at, c.end_at, c.duration_minutes, c.created_at, c.updated_at
		FROM intraop_sample s
		JOIN transplant_case c ON c.id = s.case_id
		ORDER BY s.sampled_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*SampleWithCase
	for rows.Next() {
		var sc SampleWithCase
		err := rows.Scan(&sc.Sample.ID, &sc.Sample.CaseID, &sc.Sample.SampledAt,
			&sc.Sample.Lactate, &sc.Sample.PH, &sc.Sample.Glucose, &sc.Sample.Suspicious,
			&sc.Sample.CreatedAt,
			&sc.Case.ID, &sc.Case.PatientID, &sc.Case.StartAt, &sc.Case.EndAt,
			&sc.Case.DurationMinutes, &sc.Case.CreatedAt, &sc.Case.UpdatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, &sc)
	}
	return items, rows.Err()
}

func (r *sampleRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM intraop_sample`).Scan(&n)
	return n, err
}

// =========== Outcome Repository ===========

type outcomeRepoPG struct{ pool *pgxpool.Pool }

func NewOutcomeRepoPG(pool *pgxpool.Pool) OutcomeRepository { return &outcomeRepoPG{pool: pool} }

func (r *outcomeRepoPG) Create(ctx context.Context, o *Outcome) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO outcome (id, patient_id, case_id, recorded_at, status, note)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.PatientID, o.CaseID, o.RecordedAt, o.Status, o.Note)
	return err
}

func (r *outcomeRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Outcome, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, case_id, recorded_at, status, note, created_at
		FROM outcome WHERE case_id = $1 ORDER BY recorded_at ASC`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.ID, &o.PatientID, &o.CaseID, &o.RecordedAt, &o.Status, &o.Note, &o.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &o)
	}
	return items, rows.Err()
}
