package recon

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/registry/registry/internal/domain/evaluation"
)

func TestClassifyGap(t *testing.T) {
	tests := []struct {
		gap  time.Duration
		want TimeGapClass
	}{
		{2 * time.Second, GapImportError},
		{4*time.Second + 999*time.Millisecond, GapImportError},
		{5 * time.Second, GapSameMinute},
		{59 * time.Second, GapSameMinute},
		{time.Minute, GapSameDay},
		{23 * time.Hour, GapSameDay},
		{24 * time.Hour, GapNone},
		{72 * time.Hour, GapNone},
		{-2 * time.Second, GapImportError},
	}
	for _, tt := range tests {
		if got := ClassifyGap(tt.gap); got != tt.want {
			t.Errorf("ClassifyGap(%v) = %v, want %v", tt.gap, got, tt.want)
		}
	}
}

func evalAt(patientID uuid.UUID, createdAt time.Time) *evaluation.Evaluation {
	e := fullEvaluation()
	e.PatientID = patientID
	e.CreatedAt = createdAt
	e.UpdatedAt = createdAt
	return e
}

func TestDetectPatientImportError(t *testing.T) {
	// Scenario: identical on all nine comparable fields, created 2s apart.
	patientID := uuid.New()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	a := evalAt(patientID, base)
	b := evalAt(patientID, base.Add(2*time.Second))

	d := NewDetector(DefaultSimilarityThreshold, DefaultExactThreshold)
	findings := d.DetectPatient([]*evaluation.Evaluation{a, b})
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Similarity != 100 {
		t.Errorf("similarity = %v, want 100", f.Similarity)
	}
	if f.GapClass != GapImportError {
		t.Errorf("gap class = %v, want %v", f.GapClass, GapImportError)
	}
	if !f.ExactDuplicate {
		t.Error("expected exact duplicate flag")
	}
}

func TestDetectPatientBelowThresholdIgnored(t *testing.T) {
	patientID := uuid.New()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	a := evalAt(patientID, base)
	b := evalAt(patientID, base.Add(time.Second))
	// Diverge 2 of 9 fields: 7/9 ≈ 77.8 < 90.
	b.MELDScore = intPtr(30)
	b.Diagnosis = strPtr("HCC")

	d := NewDetector(DefaultSimilarityThreshold, DefaultExactThreshold)
	if findings := d.DetectPatient([]*evaluation.Evaluation{a, b}); len(findings) != 0 {
		t.Fatalf("expected no findings, got %d", len(findings))
	}
}

func TestDetectPatientExactFlaggedDespiteWideGap(t *testing.T) {
	patientID := uuid.New()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	a := evalAt(patientID, base)
	b := evalAt(patientID, base.Add(40*24*time.Hour))

	d := NewDetector(DefaultSimilarityThreshold, DefaultExactThreshold)
	findings := d.DetectPatient([]*evaluation.Evaluation{a, b})
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].GapClass != GapNone {
		t.Errorf("gap class = %v, want %v", findings[0].GapClass, GapNone)
	}
	if !findings[0].ExactDuplicate {
		t.Error("exact copy must be flagged regardless of gap")
	}
	if !findings[0].Qualifies() {
		t.Error("exact duplicate qualifies as a cluster")
	}
}

func TestDetectOneSummaryRowPerPatient(t *testing.T) {
	patientID := uuid.New()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	// Three mutually identical records: three pairs, one summary row.
	evals := []*evaluation.Evaluation{
		evalAt(patientID, base),
		evalAt(patientID, base.Add(time.Second)),
		evalAt(patientID, base.Add(30*time.Second)),
	}

	d := NewDetector(DefaultSimilarityThreshold, DefaultExactThreshold)
	report := d.Detect(map[uuid.UUID][]*evaluation.Evaluation{patientID: evals})

	if len(report.Pairs) != 3 {
		t.Errorf("expected 3 pairs, got %d", len(report.Pairs))
	}
	if len(report.Summaries) != 1 {
		t.Fatalf("expected 1 summary row, got %d", len(report.Summaries))
	}
	if report.Summaries[0].RecordCount != 3 {
		t.Errorf("record count = %d, want 3", report.Summaries[0].RecordCount)
	}
	if report.ExactDuplicates != 3 {
		t.Errorf("exact duplicates = %d, want 3", report.ExactDuplicates)
	}
	if report.TallyByClass[GapImportError] != 1 {
		t.Errorf("IMPORT_ERROR tally = %d, want 1", report.TallyByClass[GapImportError])
	}
	if report.TallyByClass[GapSameMinute] != 2 {
		t.Errorf("SAME_MINUTE tally = %d, want 2", report.TallyByClass[GapSameMinute])
	}
}

func TestDetectSkipsCleanPatients(t *testing.T) {
	clean := uuid.New()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	a := evalAt(clean, base)
	b := evalAt(clean, base.Add(time.Hour))
	b.MELDScore = intPtr(28)
	b.Bilirubin = floatPtr(5.4)
	b.INR = floatPtr(2.4)

	d := NewDetector(DefaultSimilarityThreshold, DefaultExactThreshold)
	report := d.Detect(map[uuid.UUID][]*evaluation.Evaluation{clean: {a, b}})
	if len(report.Summaries) != 0 {
		t.Errorf("expected no summaries, got %d", len(report.Summaries))
	}
	if report.PatientsScanned != 1 {
		t.Errorf("patients scanned = %d, want 1", report.PatientsScanned)
	}
}

func TestGroupByPatient(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	evals := []*evaluation.Evaluation{
		evalAt(p1, base),
		evalAt(p2, base),
		evalAt(p1, base.Add(time.Minute)),
	}
	grouped := GroupByPatient(evals)
	if len(grouped) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(grouped))
	}
	if len(grouped[p1]) != 2 || len(grouped[p2]) != 1 {
		t.Errorf("wrong group sizes: p1=%d p2=%d", len(grouped[p1]), len(grouped[p2]))
	}
	if !grouped[p1][0].CreatedAt.Before(grouped[p1][1].CreatedAt) {
		t.Error("input order not preserved within group")
	}
}
