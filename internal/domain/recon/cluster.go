package recon

import (
	"time"

	"github.com/google/uuid"

	"github.com/registry/registry/internal/domain/evaluation"
)

// TimeGapClass buckets the creation-time delta between two near-duplicate
// evaluations. The bucket tells the story: sub-5s gaps are double imports,
// sub-minute gaps a double click, same-day gaps a repeated manual entry.
type TimeGapClass string

const (
	GapImportError TimeGapClass = "IMPORT_ERROR" // < 5s
	GapSameMinute  TimeGapClass = "SAME_MINUTE"  // < 60s
	GapSameDay     TimeGapClass = "SAME_DAY"     // < 24h
	GapNone        TimeGapClass = "NONE"         // wider apart; not clustered
)

// ClassifyGap buckets an absolute created_at delta.
func ClassifyGap(d time.Duration) TimeGapClass {
	if d < 0 {
		d = -d
	}
	switch {
	case d < 5*time.Second:
		return GapImportError
	case d < time.Minute:
		return GapSameMinute
	case d < 24*time.Hour:
		return GapSameDay
	default:
		return GapNone
	}
}

// PairFinding is one scored pair of a patient's evaluations.
type PairFinding struct {
	PatientID      uuid.UUID    `json:"patient_id"`
	FirstID        uuid.UUID    `json:"first_id"`
	SecondID       uuid.UUID    `json:"second_id"`
	Similarity     float64      `json:"similarity"`
	GapClass       TimeGapClass `json:"gap_class"`
	ExactDuplicate bool         `json:"exact_duplicate"`
}

// PatientSummary is the single row a patient contributes to the duplicate
// report: the first qualifying pair found. One row per patient keeps the
// global tally free of double counting.
type PatientSummary struct {
	PatientID      uuid.UUID    `json:"patient_id"`
	RecordCount    int          `json:"record_count"`
	Similarity     float64      `json:"similarity"`
	GapClass       TimeGapClass `json:"gap_class"`
	ExactDuplicate bool         `json:"exact_duplicate"`
}

// ClusterReport is the detector's output over a whole dataset.
type ClusterReport struct {
	GeneratedAt     time.Time            `json:"generated_at"`
	PatientsScanned int                  `json:"patients_scanned"`
	Summaries       []PatientSummary     `json:"summaries"`
	Pairs           []PairFinding        `json:"pairs"`
	TallyByClass    map[TimeGapClass]int `json:"tally_by_class"`
	ExactDuplicates int                  `json:"exact_duplicates"`
}

// Detector finds near-duplicate evaluation pairs within each patient.
type Detector struct {
	SimilarityThreshold float64
	ExactThreshold      float64
}

func NewDetector(similarityThreshold, exactThreshold float64) *Detector {
	return &Detector{
		SimilarityThreshold: similarityThreshold,
		ExactThreshold:      exactThreshold,
	}
}

// Qualifies reports whether a finding counts as a cluster: either created
// close enough together, or an exact copy regardless of gap.
func (f PairFinding) Qualifies() bool {
	return f.GapClass != GapNone || f.ExactDuplicate
}

// DetectPatient scores every unordered pair of one patient's evaluations,
// assumed sorted by created_at ascending. Every pair at or above the
// similarity threshold appears in the result with its time-gap class; pairs
// at the exact threshold are flagged exact regardless of gap. Pairwise only —
// a chain of three mutually similar records is the merge policy's problem,
// not the detector's.
func (d *Detector) DetectPatient(evals []*evaluation.Evaluation) []PairFinding {
	var findings []PairFinding
	for i := 0; i < len(evals); i++ {
		for j := i + 1; j < len(evals); j++ {
			score := Similarity(evals[i], evals[j])
			if score < d.SimilarityThreshold {
				continue
			}
			findings = append(findings, PairFinding{
				PatientID:      evals[i].PatientID,
				FirstID:        evals[i].ID,
				SecondID:       evals[j].ID,
				Similarity:     score,
				GapClass:       ClassifyGap(evals[j].CreatedAt.Sub(evals[i].CreatedAt)),
				ExactDuplicate: score >= d.ExactThreshold,
			})
		}
	}
	return findings
}

// Detect runs the detector across evaluations grouped by patient and folds
// the per-patient findings into one report. Each patient contributes at most
// one summary row — the first qualifying pair wins.
func (d *Detector) Detect(byPatient map[uuid.UUID][]*evaluation.Evaluation) *ClusterReport {
	report := &ClusterReport{
		GeneratedAt:  time.Now().UTC(),
		TallyByClass: make(map[TimeGapClass]int),
	}
	for patientID, evals := range byPatient {
		report.PatientsScanned++
		findings := d.DetectPatient(evals)
		if len(findings) == 0 {
			continue
		}
		report.Pairs = append(report.Pairs, findings...)
		summarized := false
		for _, f := range findings {
			report.TallyByClass[f.GapClass]++
			if f.ExactDuplicate {
				report.ExactDuplicates++
			}
			if !f.Qualifies() || summarized {
				continue
			}
			summarized = true
			report.Summaries = append(report.Summaries, PatientSummary{
				PatientID:      patientID,
				RecordCount:    len(evals),
				Similarity:     f.Similarity,
				GapClass:       f.GapClass,
				ExactDuplicate: f.ExactDuplicate,
			})
		}
	}
	return report
}

// GroupByPatient buckets evaluations by patient, preserving input order
// within each bucket.
func GroupByPatient(evals []*evaluation.Evaluation) map[uuid.UUID][]*evaluation.Evaluation {
	byPatient := make(map[uuid.UUID][]*evaluation.Evaluation)
	for _, e := range evals {
		byPatient[e.PatientID] = append(byPatient[e.PatientID], e)
	}
	return byPatient
}
