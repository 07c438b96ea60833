package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/registry/registry/internal/domain/transplant"
)

// FixReport is the migration/fix artifact emitted by an integrity-fix pass.
type FixReport struct {
	Timestamp      time.Time   `json:"timestamp"`
	CasesFixed     []uuid.UUID `json:"cases_fixed"`
	SamplesFlagged []uuid.UUID `json:"samples_flagged"`
	Errors         []string    `json:"errors"`
	ReportPath     string      `json:"report_path,omitempty"`
}

// FixService repairs what can be repaired without guessing: it recomputes
// missing or inconsistent case durations from the recorded window, and flags
// samples whose timestamp falls outside their case's window as suspicious.
// Flagged samples are never moved or deleted.
type FixService struct {
	cases     transplant.CaseRepository
	samples   transplant.SampleRepository
	backups   *BackupWriter
	batchSize int
	logger    zerolog.Logger
}

func NewFixService(cases transplant.CaseRepository, samples transplant.SampleRepository, backups *BackupWriter, batchSize int, logger zerolog.Logger) *FixService {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &FixService{cases: cases, samples: samples, backups: backups, batchSize: batchSize, logger: logger}
}

// durationFromWindow returns the window length in whole minutes.
func durationFromWindow(c *transplant.TransplantCase) (int, bool) {
	if c.StartAt == nil || c.EndAt == nil {
		return 0, false
	}
	return int(c.EndAt.Sub(*c.StartAt) / time.Minute), true
}

// Run executes one integrity-fix pass. Per-record failures are recorded and
// the pass continues; the report artifact is written at the end either way.
func (s *FixService) Run(ctx context.Context) (*FixReport, error) {
	report := &FixReport{
		Timestamp:      time.Now().UTC(),
		CasesFixed:     []uuid.UUID{},
		SamplesFlagged: []uuid.UUID{},
	}

	cases, err := s.cases.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list cases: %v", ErrStoreUnavailable, err)
	}
	for _, c := range cases {
		want, ok := durationFromWindow(c)
		if !ok {
			continue
		}
		if c.DurationMinutes != nil && *c.DurationMinutes == want {
			continue
		}
		if err := s.cases.UpdateDuration(ctx, c.ID, want); err != nil {
			wc := &WriteConflictError{RecordID: c.ID.String(), Err: err}
			report.Errors = append(report.Errors, wc.Error())
			continue
		}
		report.CasesFixed = append(report.CasesFixed, c.ID)
	}

	withCase, err := s.samples.ListAllWithCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list samples: %v", ErrStoreUnavailable, err)
	}
	var toFlag []uuid.UUID
	for _, sc := range withCase {
		if sc.Sample.Suspicious {
			continue
		}
		if sc.Case.StartAt == nil || sc.Case.EndAt == nil {
			continue
		}
		if !sc.Case.ContainsTime(sc.Sample.SampledAt) {
			toFlag = append(toFlag, sc.Sample.ID)
		}
	}

	for start := 0; start < len(toFlag); start += s.batchSize {
		end := start + s.batchSize
		if end > len(toFlag) {
			end = len(toFlag)
		}
		batch := toFlag[start:end]
		if _, err := s.samples.MarkSuspicious(ctx, batch); err != nil {
			wc := &WriteConflictError{RecordID: fmt.Sprintf("batch of %d samples", len(batch)), Err: err}
			report.Errors = append(report.Errors, wc.Error())
			continue
		}
		report.SamplesFlagged = append(report.SamplesFlagged, batch...)
	}

	if path, err := s.backups.Write("fix-report", report); err == nil {
		report.ReportPath = path
	} else {
		report.Errors = append(report.Errors, err.Error())
	}

	s.logger.Info().
		Int("cases_fixed", len(report.CasesFixed)).
		Int("samples_flagged", len(report.SamplesFlagged)).
		Int("errors", len(report.Errors)).
		Msg("integrity fix finished")
	return report, nil
}
