package recon

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
)

// StatsRepository provides the read-side aggregates the verifier needs. The
// verifier never mutates anything.
type StatsRepository interface {
	CountPatients(ctx context.Context) (int, error)
	CountCases(ctx context.Context) (int, error)
	CountCasesWithStart(ctx context.Context) (int, error)
	CountEvaluations(ctx context.Context) (int, error)
	CountSamples(ctx context.Context) (int, error)
	CountSuspiciousSamples(ctx context.Context) (int, error)
	ListCaseDurations(ctx context.Context) ([]int, error)
	CountCasesWithVerifiedSample(ctx context.Context) (int, error)
	CountCasesWithEvaluation(ctx context.Context) (int, error)
	CountCasesWithOutcome(ctx context.Context) (int, error)
}

// Plausible case durations sit strictly between one hour and one day.
const (
	MinPlausibleDurationMinutes = 60
	MaxPlausibleDurationMinutes = 1440
)

// DurationBuckets splits recorded case durations by plausibility.
type DurationBuckets struct {
	WithDuration int `json:"with_duration"`
	Plausible    int `json:"plausible"`
	Negative     int `json:"negative"`
	TooShort     int `json:"too_short"`
	TooLong      int `json:"too_long"`
}

// VerificationReport is the machine-readable output of one verification pass.
type VerificationReport struct {
	GeneratedAt time.Time `json:"generated_at"`

	TotalPatients     int `json:"total_patients"`
	TotalCases        int `json:"total_cases"`
	CasesWithStart    int `json:"cases_with_start"`
	CasesWithoutStart int `json:"cases_without_start"`
	TotalEvaluations  int `json:"total_evaluations"`

	TotalSamples      int     `json:"total_samples"`
	SuspiciousSamples int     `json:"suspicious_samples"`
	VerifiedSamples   int     `json:"verified_samples"`
	PctSuspicious     float64 `json:"pct_suspicious"`

	Durations    DurationBuckets `json:"durations"`
	PctPlausible float64         `json:"pct_plausible_duration"`

	CasesWithVerifiedSample    int     `json:"cases_with_verified_sample"`
	PctCasesWithVerifiedSample float64 `json:"pct_cases_with_verified_sample"`
	CasesWithEvaluation        int     `json:"cases_with_evaluation"`
	PctCasesWithEvaluation     float64 `json:"pct_cases_with_evaluation"`
	CasesWithOutcome           int     `json:"cases_with_outcome"`
	PctCasesWithOutcome        float64 `json:"pct_cases_with_outcome"`
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// BucketDurations classifies recorded durations in minutes.
func BucketDurations(durations []int) DurationBuckets {
	var b DurationBuckets
	b.WithDuration = len(durations)
	for _, d := range durations {
		switch {
		case d < 0:
			b.Negative++
		case d <= MinPlausibleDurationMinutes:
			b.TooShort++
		case d >= MaxPlausibleDurationMinutes:
			b.TooLong++
		default:
			b.Plausible++
		}
	}
	return b
}

// Verifier computes aggregate coverage and plausibility statistics over the
// current store state.
type Verifier struct {
	stats  StatsRepository
	logger zerolog.Logger
}

func NewVerifier(stats StatsRepository, logger zerolog.Logger) *Verifier {
	return &Verifier{stats: stats, logger: logger}
}

// Report assembles the verification report from the store aggregates.
func (v *Verifier) Report(ctx context.Context) (*VerificationReport, error) {
	r := &VerificationReport{GeneratedAt: time.Now().UTC()}

	counts := []struct {
		dst  *int
		load func(context.Context) (int, error)
	}{
		{&r.TotalPatients, v.stats.CountPatients},
		{&r.TotalCases, v.stats.CountCases},
		{&r.CasesWithStart, v.stats.CountCasesWithStart},
		{&r.TotalEvaluations, v.stats.CountEvaluations},
		{&r.TotalSamples, v.stats.CountSamples},
		{&r.SuspiciousSamples, v.stats.CountSuspiciousSamples},
		{&r.CasesWithVerifiedSample, v.stats.CountCasesWithVerifiedSample},
		{&r.CasesWithEvaluation, v.stats.CountCasesWithEvaluation},
		{&r.CasesWithOutcome, v.stats.CountCasesWithOutcome},
	}
	for _, c := range counts {
		n, err := c.load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		*c.dst = n
	}

	durations, err := v.stats.ListCaseDurations(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	r.Durations = BucketDurations(durations)

	r.CasesWithoutStart = r.TotalCases - r.CasesWithStart
	r.VerifiedSamples = r.TotalSamples - r.SuspiciousSamples
	r.PctSuspicious = pct(r.SuspiciousSamples, r.TotalSamples)
	r.PctPlausible = pct(r.Durations.Plausible, r.Durations.WithDuration)
	r.PctCasesWithVerifiedSample = pct(r.CasesWithVerifiedSample, r.TotalCases)
	r.PctCasesWithEvaluation = pct(r.CasesWithEvaluation, r.TotalCases)
	r.PctCasesWithOutcome = pct(r.CasesWithOutcome, r.TotalCases)

	v.logger.Info().
		Int("patients", r.TotalPatients).
		Int("cases", r.TotalCases).
		Int("samples", r.TotalSamples).
		Float64("pct_suspicious", r.PctSuspicious).
		Msg("verification report assembled")
	return r, nil
}

// Render writes the human-readable tabulated summary.
func (r *VerificationReport) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoWrapText(false)

	row := func(metric string, format string, args ...interface{}) {
		table.Append([]string{metric, fmt.Sprintf(format, args...)})
	}

	row("Patients", "%d", r.TotalPatients)
	row("Cases", "%d", r.TotalCases)
	row("Cases with start date", "%d", r.CasesWithStart)
	row("Cases without start date", "%d", r.CasesWithoutStart)
	row("Evaluations", "%d", r.TotalEvaluations)
	row("Intraop samples", "%d", r.TotalSamples)
	row("  verified", "%d", r.VerifiedSamples)
	row("  suspicious", "%d (%.1f%%)", r.SuspiciousSamples, r.PctSuspicious)
	row("Durations recorded", "%d", r.Durations.WithDuration)
	row("  plausible (60-1440 min)", "%d (%.1f%%)", r.Durations.Plausible, r.PctPlausible)
	row("  too short", "%d", r.Durations.TooShort)
	row("  too long", "%d", r.Durations.TooLong)
	row("  negative", "%d", r.Durations.Negative)
	row("Cases with verified sample", "%d (%.1f%%)", r.CasesWithVerifiedSample, r.PctCasesWithVerifiedSample)
	row("Cases with evaluation", "%d (%.1f%%)", r.CasesWithEvaluation, r.PctCasesWithEvaluation)
	row("Cases with outcome", "%d (%.1f%%)", r.CasesWithOutcome, r.PctCasesWithOutcome)

	table.Render()
}
