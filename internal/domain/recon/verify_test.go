package recon

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// =========== Mock Stats Repository ===========

type mockStatsRepo struct {
	patients            int
	cases               int
	casesWithStart      int
	evaluations         int
	samples             int
	suspicious          int
	verifiedSampleCases int
	evaluationCases     int
	outcomeCases        int
	durations           []int
	err                 error
}

func (m *mockStatsRepo) maybeErr(n int) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return n, nil
}

func (m *mockStatsRepo) CountPatients(context.Context) (int, error) { return m.maybeErr(m.patients) }
func (m *mockStatsRepo) CountCases(context.Context) (int, error)    { return m.maybeErr(m.cases) }
func (m *mockStatsRepo) CountCasesWithStart(context.Context) (int, error) {
	return m.maybeErr(m.casesWithStart)
}
func (m *mockStatsRepo) CountEvaluations(context.Context) (int, error) {
	return m.maybeErr(m.evaluations)
}
func (m *mockStatsRepo) CountSamples(context.Context) (int, error) { return m.maybeErr(m.samples) }
func (m *mockStatsRepo) CountSuspiciousSamples(context.Context) (int, error) {
	return m.maybeErr(m.suspicious)
}
func (m *mockStatsRepo) ListCaseDurations(context.Context) ([]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.durations, nil
}
func (m *mockStatsRepo) CountCasesWithVerifiedSample(context.Context) (int, error) {
	return m.maybeErr(m.verifiedSampleCases)
}
func (m *mockStatsRepo) CountCasesWithEvaluation(context.Context) (int, error) {
	return m.maybeErr(m.evaluationCases)
}
func (m *mockStatsRepo) CountCasesWithOutcome(context.Context) (int, error) {
	return m.maybeErr(m.outcomeCases)
}

// =========== Tests ===========

func TestBucketDurations(t *testing.T) {
	b := BucketDurations([]int{-10, 0, 30, 60, 61, 400, 1439, 1440, 3000})
	if b.WithDuration != 9 {
		t.Errorf("with duration = %d, want 9", b.WithDuration)
	}
	if b.Negative != 1 {
		t.Errorf("negative = %d, want 1", b.Negative)
	}
	// Scenario: duration = 30 minutes buckets as too short, not plausible.
	// The 60-minute bound is exclusive on the plausible side.
	if b.TooShort != 3 {
		t.Errorf("too short = %d, want 3", b.TooShort)
	}
	if b.Plausible != 3 {
		t.Errorf("plausible = %d, want 3", b.Plausible)
	}
	if b.TooLong != 2 {
		t.Errorf("too long = %d, want 2", b.TooLong)
	}
}

func TestVerifierReport(t *testing.T) {
	stats := &mockStatsRepo{
		patients:            120,
		cases:               100,
		casesWithStart:      90,
		evaluations:         300,
		samples:             400,
		suspicious:          40,
		verifiedSampleCases: 80,
		evaluationCases:     75,
		outcomeCases:        60,
		durations:           []int{30, 300, 600, 2000},
	}
	v := NewVerifier(stats, zerolog.Nop())
	r, err := v.Report(context.Background())
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	if r.CasesWithoutStart != 10 {
		t.Errorf("cases without start = %d, want 10", r.CasesWithoutStart)
	}
	if r.VerifiedSamples != 360 {
		t.Errorf("verified samples = %d, want 360", r.VerifiedSamples)
	}
	if r.PctSuspicious != 10 {
		t.Errorf("pct suspicious = %v, want 10", r.PctSuspicious)
	}
	if r.Durations.Plausible != 2 || r.PctPlausible != 50 {
		t.Errorf("plausible = %d (%.1f%%), want 2 (50%%)", r.Durations.Plausible, r.PctPlausible)
	}
	if r.PctCasesWithVerifiedSample != 80 {
		t.Errorf("pct verified-sample coverage = %v, want 80", r.PctCasesWithVerifiedSample)
	}
	if r.PctCasesWithEvaluation != 75 {
		t.Errorf("pct evaluation coverage = %v, want 75", r.PctCasesWithEvaluation)
	}
	if r.PctCasesWithOutcome != 60 {
		t.Errorf("pct outcome coverage = %v, want 60", r.PctCasesWithOutcome)
	}
}

func TestVerifierEmptyStore(t *testing.T) {
	v := NewVerifier(&mockStatsRepo{}, zerolog.Nop())
	r, err := v.Report(context.Background())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if r.PctSuspicious != 0 || r.PctPlausible != 0 || r.PctCasesWithOutcome != 0 {
		t.Error("empty store must report zero percentages, not NaN")
	}
}

func TestVerifierStoreUnavailable(t *testing.T) {
	v := NewVerifier(&mockStatsRepo{err: fmt.Errorf("connection refused")}, zerolog.Nop())
	if _, err := v.Report(context.Background()); err == nil {
		t.Fatal("expected error when the store is unavailable")
	}
}

func TestRenderTabulatedSummary(t *testing.T) {
	stats := &mockStatsRepo{patients: 5, cases: 4, samples: 10, suspicious: 1, durations: []int{90}}
	v := NewVerifier(stats, zerolog.Nop())
	r, err := v.Report(context.Background())
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	var buf bytes.Buffer
	r.Render(&buf)
	out := buf.String()
	for _, want := range []string{"Patients", "Intraop samples", "suspicious", "plausible"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered summary missing %q:\n%s", want, out)
		}
	}
}
