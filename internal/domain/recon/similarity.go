package recon

import (
	"github.com/registry/registry/internal/domain/evaluation"
)

// DefaultSimilarityThreshold and DefaultExactThreshold are the clustering
// cutoffs used when no configuration overrides them. They are policy
// constants, not derived values.
const (
	DefaultSimilarityThreshold = 90.0
	DefaultExactThreshold      = 100.0
)

func intEqual(a, b *int) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func floatEqual(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func stringEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// comparableField is one comparison slot in the similarity score. present
// reports whether either side carries a value; equal is only meaningful when
// present is true.
type comparableField struct {
	present bool
	equal   bool
}

// comparableFields returns the fixed ordered list of field comparisons used
// for duplicate detection. The set covers the clinically meaningful fields an
// accidental re-import would copy verbatim; it is deliberately not the whole
// row (timestamps and ownership differ between duplicates by construction).
func comparableFields(a, b *evaluation.Evaluation) []comparableField {
	return []comparableField{
		{a.MELDScore != nil || b.MELDScore != nil, intEqual(a.MELDScore, b.MELDScore)},
		{a.ChildPughClass != nil || b.ChildPughClass != nil, stringEqual(a.ChildPughClass, b.ChildPughClass)},
		{a.BloodType != nil || b.BloodType != nil, stringEqual(a.BloodType, b.BloodType)},
		{a.HeightCm != nil || b.HeightCm != nil, floatEqual(a.HeightCm, b.HeightCm)},
		{a.WeightKg != nil || b.WeightKg != nil, floatEqual(a.WeightKg, b.WeightKg)},
		{a.Bilirubin != nil || b.Bilirubin != nil, floatEqual(a.Bilirubin, b.Bilirubin)},
		{a.INR != nil || b.INR != nil, floatEqual(a.INR, b.INR)},
		{a.Creatinine != nil || b.Creatinine != nil, floatEqual(a.Creatinine, b.Creatinine)},
		{a.Diagnosis != nil || b.Diagnosis != nil, stringEqual(a.Diagnosis, b.Diagnosis)},
	}
}

// Similarity scores two evaluations of the same patient as a percentage over
// the fixed comparable field set. A field counts toward the denominator when
// at least one side carries a value; two entirely empty records score 0, not
// 100, so missing data never manufactures a duplicate. Pure and commutative.
func Similarity(a, b *evaluation.Evaluation) float64 {
	totalFields := 0
	matchFields := 0
	for _, f := range comparableFields(a, b) {
		if !f.present {
			continue
		}
		totalFields++
		if f.equal {
			matchFields++
		}
	}
	if totalFields == 0 {
		return 0
	}
	return float64(matchFields) / float64(totalFields) * 100
}
