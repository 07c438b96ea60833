package recon

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// statsRepoPG implements StatsRepository with aggregate SQL over the live
// schema.
type statsRepoPG struct{ pool *pgxpool.Pool }

func NewStatsRepoPG(pool *pgxpool.Pool) StatsRepository { return &statsRepoPG{pool: pool} }

func (r *statsRepoPG) countQuery(ctx context.Context, sql string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, sql).Scan(&n)
	return n, err
}

func (r *statsRepoPG) CountPatients(ctx context.Context) (int, error) {
	return r.countQuery(ctx, `
		SELECT COUNT(*) FROM (
			SELECT patient_id FROM evaluation
			UNION
			SELECT patient_id FROM transplant_case
		) p`)
}

func (r *statsRepoPG) CountCases(ctx context.Context) (int, error) {
	return r.countQuery(ctx, `SELECT COUNT(*) FROM transplant_case`)
}

func (r *statsRepoPG) CountCasesWithStart(ctx context.Context) (int, error) {
	return r.countQuery(ctx, `SELECT COUNT(*) FROM transplant_case WHERE start_at IS NOT NULL`)
}

func (r *statsRepoPG) CountEvaluations(ctx context.Context) (int, error) {
	return r.countQuery(ctx, `SELECT COUNT(*) FROM evaluation`)
}

func (r *statsRepoPG) CountSamples(ctx context.Context) (int, error) {
	return r.countQuery(ctx, `SELECT COUNT(*) FROM intraop_sample`)
}

func (r *statsRepoPG) CountSuspiciousSamples(ctx context.Context) (int, error) {
	return r.countQuery(ctx, `SELECT COUNT(*) FROM intraop_sample WHERE suspicious`)
}

func (r *statsRepoPG) ListCaseDurations(ctx context.Context) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT duration_minutes FROM transplant_case WHERE duration_minutes IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var durations []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		durations = append(durations, d)
	}
	return durations, rows.Err()
}

func (r *statsRepoPG) CountCasesWithVerifiedSample(ctx context.Context) (int, error) {
	return r.countQuery(ctx, `
		SELECT COUNT(*) FROM transplant_case c
		WHERE EXISTS (
			SELECT 1 FROM intraop_sample s
			WHERE s.case_id = c.id AND NOT s.suspicious
		)`)
}

func (r *statsRepoPG) CountCasesWithEvaluation(ctx context.Context) (int, error) {
	return r.countQuery(ctx, `
		SELECT COUNT(*) FROM transplant_case c
		WHERE c.start_at IS NOT NULL AND EXISTS (
			SELECT 1 FROM evaluation e
			WHERE e.patient_id = c.patient_id
			  AND e.evaluation_date IS NOT NULL
			  AND e.evaluation_date::date <= c.start_at::date
		)`)
}

func (r *statsRepoPG) CountCasesWithOutcome(ctx context.Context) (int, error) {
	return r.countQuery(ctx, `
		SELECT COUNT(*) FROM transplant_case c
		WHERE EXISTS (SELECT 1 FROM outcome o WHERE o.case_id = c.id)`)
}
