package recon

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/registry/registry/internal/domain/evaluation"
)

// ActionType labels one reconciliation decision.
type ActionType string

const (
	ActionKeep     ActionType = "KEEP"
	ActionDelete   ActionType = "DELETE"
	ActionReassign ActionType = "REASSIGN"
)

// Action is one entry in the engine's decision log.
type Action struct {
	Type         ActionType `json:"type"`
	RecordID     uuid.UUID  `json:"record_id"`
	TargetCaseID *uuid.UUID `json:"target_case_id,omitempty"`
	Rationale    string     `json:"rationale"`
}

// DeleteDecision pairs a doomed evaluation with its similarity to the keeper
// for the audit trail.
type DeleteDecision struct {
	Evaluation         *evaluation.Evaluation `json:"evaluation"`
	SimilarityToKeeper float64                `json:"similarity_to_keeper"`
}

// Resolution is the keep/delete outcome for one patient's record set.
type Resolution struct {
	PatientID uuid.UUID              `json:"patient_id"`
	Keeper    *evaluation.Evaluation `json:"keeper"`
	Deletes   []DeleteDecision       `json:"deletes"`
	Actions   []Action               `json:"actions"`
}

// keeperRanksBefore reports whether a outranks b in the survival order:
// clinician-assigned beats unassigned, then later updated_at, then later
// created_at, then id as the final tie-break so the order is total even on
// colliding timestamps.
func keeperRanksBefore(a, b *evaluation.Evaluation) bool {
	if a.HasClinician() != b.HasClinician() {
		return a.HasClinician()
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func keeperRationale(keeper *evaluation.Evaluation) string {
	if keeper.HasClinician() {
		return "clinician assigned"
	}
	return "most recently updated"
}

// Resolve picks the surviving evaluation for one patient and marks the rest
// for deletion. The result is independent of the input iteration order.
func Resolve(patientID uuid.UUID, evals []*evaluation.Evaluation) *Resolution {
	ranked := make([]*evaluation.Evaluation, len(evals))
	copy(ranked, evals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return keeperRanksBefore(ranked[i], ranked[j])
	})

	res := &Resolution{PatientID: patientID}
	if len(ranked) == 0 {
		return res
	}

	res.Keeper = ranked[0]
	res.Actions = append(res.Actions, Action{
		Type:      ActionKeep,
		RecordID:  res.Keeper.ID,
		Rationale: keeperRationale(res.Keeper),
	})
	for _, e := range ranked[1:] {
		score := Similarity(res.Keeper, e)
		res.Deletes = append(res.Deletes, DeleteDecision{
			Evaluation:         e,
			SimilarityToKeeper: score,
		})
		res.Actions = append(res.Actions, Action{
			Type:      ActionDelete,
			RecordID:  e.ID,
			Rationale: fmt.Sprintf("duplicate of %s (similarity %.1f%%)", res.Keeper.ID, score),
		})
	}
	return res
}

// MergeSummary is the aggregate view written to the backup artifact.
type MergeSummary struct {
	PatientsProcessed int `json:"patients_processed"`
	RecordsKept       int `json:"records_kept"`
	RecordsToDelete   int `json:"records_to_delete"`
}

// MergeBackup is the JSON safety net written before any deletion.
type MergeBackup struct {
	Timestamp time.Time                `json:"timestamp"`
	Summary   MergeSummary             `json:"summary"`
	ToKeep    []*evaluation.Evaluation `json:"to_keep"`
	ToDelete  []DeleteDecision         `json:"to_delete"`
}

// MergeRunResult reports one merge-resolution pass.
type MergeRunResult struct {
	Timestamp         time.Time     `json:"timestamp"`
	DryRun            bool          `json:"dry_run"`
	Summary           MergeSummary  `json:"summary"`
	Resolutions       []*Resolution `json:"resolutions"`
	BackupPath        string        `json:"backup_path"`
	RecordsDeleted    int           `json:"records_deleted"`
	Errors            []string      `json:"errors"`
	PatientsRemaining int           `json:"patients_remaining"`
}

// MergeService runs the keep/delete resolution pass over the whole dataset.
type MergeService struct {
	evals     evaluation.Repository
	backups   *BackupWriter
	batchSize int
	logger    zerolog.Logger
}

func NewMergeService(evals evaluation.Repository, backups *BackupWriter, batchSize int, logger zerolog.Logger) *MergeService {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &MergeService{evals: evals, backups: backups, batchSize: batchSize, logger: logger}
}

// Run reads a snapshot, resolves every patient holding more than one
// evaluation, and writes the backup artifact. Deletion happens only when
// execute is true; the backup is written either way, and a backup failure
// aborts the run before any mutation. Individual delete failures are recorded
// and the batch continues.
func (s *MergeService) Run(ctx context.Context, execute bool) (*MergeRunResult, error) {
	all, err := s.evals.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list evaluations: %v", ErrStoreUnavailable, err)
	}

	result := &MergeRunResult{
		Timestamp: time.Now().UTC(),
		DryRun:    !execute,
	}

	backup := MergeBackup{Timestamp: result.Timestamp}
	for patientID, evals := range GroupByPatient(all) {
		if len(evals) < 2 {
			continue
		}
		res := Resolve(patientID, evals)
		result.Resolutions = append(result.Resolutions, res)
		result.Summary.PatientsProcessed++
		result.Summary.RecordsKept++
		result.Summary.RecordsToDelete += len(res.Deletes)
		backup.ToKeep = append(backup.ToKeep, res.Keeper)
		backup.ToDelete = append(backup.ToDelete, res.Deletes...)
	}
	backup.Summary = result.Summary

	path, err := s.backups.Write("merge-backup", backup)
	if err != nil {
		return nil, err
	}
	result.BackupPath = path
	s.logger.Info().
		Str("backup", path).
		Int("patients", result.Summary.PatientsProcessed).
		Int("to_delete", result.Summary.RecordsToDelete).
		Bool("execute", execute).
		Msg("merge resolution planned")

	if execute {
		s.applyDeletes(ctx, result)
	}

	remaining, err := s.evals.PatientsWithMultiple(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("post-run count: %v", err))
	} else {
		result.PatientsRemaining = len(remaining)
	}

	s.logger.Info().
		Int("deleted", result.RecordsDeleted).
		Int("errors", len(result.Errors)).
		Int("patients_remaining", result.PatientsRemaining).
		Msg("merge resolution finished")
	return result, nil
}

// applyDeletes removes doomed records in fixed-size batches. A failed batch
// falls back to record-by-record deletion so one bad row cannot sink its
// batchmates; failures land in result.Errors and the pass moves on.
func (s *MergeService) applyDeletes(ctx context.Context, result *MergeRunResult) {
	var ids []uuid.UUID
	for _, res := range result.Resolutions {
		for _, d := range res.Deletes {
			ids = append(ids, d.Evaluation.ID)
		}
	}

	for start := 0; start < len(ids); start += s.batchSize {
		end := start + s.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		n, err := s.evals.DeleteByIDs(ctx, batch)
		if err == nil {
			result.RecordsDeleted += int(n)
			continue
		}

		for _, id := range batch {
			n, err := s.evals.DeleteByIDs(ctx, []uuid.UUID{id})
			if err != nil {
				wc := &WriteConflictError{RecordID: id.String(), Err: err}
				result.Errors = append(result.Errors, wc.Error())
				s.logger.Error().Err(err).Str("record_id", id.String()).Msg("delete failed")
				continue
			}
			result.RecordsDeleted += int(n)
		}
	}
}
