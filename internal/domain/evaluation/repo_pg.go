package evaluation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const evalCols = `id, patient_id, evaluation_date, meld_score, child_pugh_class, blood_type,
	height_cm, weight_kg, bilirubin, inr, creatinine, diagnosis, clinician_id,
	created_at, updated_at`

func scanEvaluation(row pgx.Row) (*Evaluation, error) {
	var e Evaluation
	err := row.Scan(&e.ID, &e.PatientID, &e.EvaluationDate, &e.MELDScore, &e.ChildPughClass,
		&e.BloodType, &e.HeightCm, &e.WeightKg, &e.Bilirubin, &e.INR, &e.Creatinine,
		&e.Diagnosis, &e.ClinicianID, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func collectEvaluations(rows pgx.Rows) ([]*Evaluation, error) {
	defer rows.Close()
	var items []*Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, e *Evaluation) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO evaluation (id, patient_id, evaluation_date, meld_score, child_pugh_class,
			blood_type, height_cm, weight_kg, bilirubin, inr, creatinine, diagnosis, clinician_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		e.ID, e.PatientID, e.EvaluationDate, e.MELDScore, e.ChildPughClass,
		e.BloodType, e.HeightCm, e.WeightKg, e.Bilirubin, e.INR, e.Creatinine,
		e.Diagnosis, e.ClinicianID)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Evaluation, error) {
	return scanEvaluation(r.pool.QueryRow(ctx, `SELECT `+evalCols+` FROM evaluation WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, e *Evaluation) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE evaluation SET evaluation_date=$2, meld_score=$3, child_pugh_class=$4,
			blood_type=$5, height_cm=$6, weight_kg=$7, bilirubin=$8, inr=$9,
			creatinine=$10, diagnosis=$11, clinician_id=$12, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.EvaluationDate, e.MELDScore, e.ChildPughClass,
		e.BloodType, e.HeightCm, e.WeightKg, e.Bilirubin, e.INR,
		e.Creatinine, e.Diagnosis, e.ClinicianID)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Evaluation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+evalCols+` FROM evaluation WHERE patient_id = $1 ORDER BY created_at ASC`, patientID)
	if err != nil {
		return nil, err
	}
	return collectEvaluations(rows)
}

func (r *repoPG) ListAll(ctx context.Context) ([]*Evaluation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+evalCols+` FROM evaluation ORDER BY patient_id, created_at ASC`)
	if err != nil {
		return nil, err
	}
	return collectEvaluations(rows)
}

func (r *repoPG) PatientsWithMultiple(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT patient_id FROM evaluation GROUP BY patient_id HAVING COUNT(*) > 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM evaluation WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM evaluation`).Scan(&n)
	return n, err
}

func (r *repoPG) CountPatients(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT patient_id) FROM evaluation`).Scan(&n)
	return n, err
}

func (r *repoPG) CountOnOrBefore(ctx context.Context, patientID uuid.UUID, day time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM evaluation
		WHERE patient_id = $1 AND evaluation_date IS NOT NULL AND evaluation_date::date <= $2::date`,
		patientID, day).Scan(&n)
	return n, err
}
