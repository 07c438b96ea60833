package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/registry/registry/internal/domain/transplant"
)

// ReassignmentFix records one applied correction: which samples moved, and
// where.
type ReassignmentFix struct {
	WrongPatientID   uuid.UUID   `json:"wrong_patient_id"`
	CorrectPatientID uuid.UUID   `json:"correct_patient_id"`
	Date             string      `json:"date"`
	TargetCaseID     uuid.UUID   `json:"target_case_id"`
	SampleIDs        []uuid.UUID `json:"sample_ids"`
	Rationale        string      `json:"rationale,omitempty"`
}

// ReassignResult reports one identity-reassignment pass.
type ReassignResult struct {
	Timestamp      time.Time         `json:"timestamp"`
	EntriesTotal   int               `json:"entries_total"`
	EntriesApplied int               `json:"entries_applied"`
	EntriesEmpty   int               `json:"entries_empty"`
	SamplesMoved   int               `json:"samples_moved"`
	Fixes          []ReassignmentFix `json:"fixes"`
	Errors         []string          `json:"errors"`
	ReportPath     string            `json:"report_path,omitempty"`
}

// ReassignService moves intraop samples filed under a wrong patient identity
// to the correct patient's case, driven by the vetted correction mapping.
type ReassignService struct {
	cases   transplant.CaseRepository
	samples transplant.SampleRepository
	backups *BackupWriter
	logger  zerolog.Logger
}

func NewReassignService(cases transplant.CaseRepository, samples transplant.SampleRepository, backups *BackupWriter, logger zerolog.Logger) *ReassignService {
	return &ReassignService{cases: cases, samples: samples, backups: backups, logger: logger}
}

// Run applies every mapping entry. Per entry: resolve the correct patient's
// case on the entry's day (missing -> TARGET_CASE_NOT_FOUND error, skip);
// find samples filed under the wrong patient on that day (none -> silent
// skip, which is what makes a second run a no-op); move them in one bulk
// update. The emptied wrong case is left in place. A pre-state backup of the
// affected samples is written before any move; backup failure aborts.
func (s *ReassignService) Run(ctx context.Context, entries []CorrectionEntry) (*ReassignResult, error) {
	result := &ReassignResult{
		Timestamp:    time.Now().UTC(),
		EntriesTotal: len(entries),
	}

	type plannedMove struct {
		entry   CorrectionEntry
		target  *transplant.TransplantCase
		samples []*transplant.IntraopSample
	}
	var moves []plannedMove

	for _, entry := range entries {
		day := entry.Date.Format("2006-01-02")

		target, err := s.cases.FindByPatientOnDay(ctx, entry.CorrectPatientID, entry.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve target case: %v", ErrStoreUnavailable, err)
		}
		if target == nil {
			nf := &NotFoundError{
				Kind: "TARGET_CASE_NOT_FOUND",
				Key:  fmt.Sprintf("patient %s on %s", entry.CorrectPatientID, day),
			}
			result.Errors = append(result.Errors, nf.Error())
			s.logger.Warn().
				Str("correct_patient", entry.CorrectPatientID.String()).
				Str("date", day).
				Msg("target case not found, entry skipped")
			continue
		}

		samples, err := s.samples.ListByPatientOnDay(ctx, entry.WrongPatientID, entry.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: list misfiled samples: %v", ErrStoreUnavailable, err)
		}
		if len(samples) == 0 {
			// Already corrected, or nothing ever misfiled. Idempotence
			// lives here.
			result.EntriesEmpty++
			continue
		}

		moves = append(moves, plannedMove{entry: entry, target: target, samples: samples})
	}

	if len(moves) > 0 {
		var preState []*transplant.IntraopSample
		for _, m := range moves {
			preState = append(preState, m.samples...)
		}
		if _, err := s.backups.Write("reassign-backup", preState); err != nil {
			return nil, err
		}
	}

	for _, m := range moves {
		ids := make([]uuid.UUID, len(m.samples))
		for i, sample := range m.samples {
			ids[i] = sample.ID
		}
		moved, err := s.samples.ReassignCase(ctx, ids, m.target.ID)
		if err != nil {
			wc := &WriteConflictError{RecordID: m.target.ID.String(), Err: err}
			result.Errors = append(result.Errors, wc.Error())
			s.logger.Error().Err(err).
				Str("target_case", m.target.ID.String()).
				Msg("reassignment update failed")
			continue
		}
		result.EntriesApplied++
		result.SamplesMoved += int(moved)
		result.Fixes = append(result.Fixes, ReassignmentFix{
			WrongPatientID:   m.entry.WrongPatientID,
			CorrectPatientID: m.entry.CorrectPatientID,
			Date:             m.entry.Date.Format("2006-01-02"),
			TargetCaseID:     m.target.ID,
			SampleIDs:        ids,
			Rationale:        m.entry.Rationale,
		})
		s.logger.Info().
			Str("wrong_patient", m.entry.WrongPatientID.String()).
			Str("correct_patient", m.entry.CorrectPatientID.String()).
			Int64("samples", moved).
			Msg("samples reassigned")
	}

	if path, err := s.backups.Write("reassign-report", result); err == nil {
		result.ReportPath = path
	} else {
		result.Errors = append(result.Errors, err.Error())
	}

	s.logger.Info().
		Int("entries", result.EntriesTotal).
		Int("applied", result.EntriesApplied).
		Int("moved", result.SamplesMoved).
		Int("errors", len(result.Errors)).
		Msg("identity reassignment finished")
	return result, nil
}
