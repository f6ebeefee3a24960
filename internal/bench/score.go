// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bench scores memo artifacts against references and each other, and
// aggregates accuracy, cost, latency, and cross-backend agreement.
// Implements: prd006-benchmark (R1-R4);
//
//	docs/ARCHITECTURE § Benchmarking.
package bench

import (
	"math"
	"strings"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// defaultTolerance is the relative tolerance for amount and percentage
// matching: within rounding of stated units.
const defaultTolerance = 0.005

// Equivalent reports semantic equality of two field values: missing equals
// missing, numeric kinds match within relative tolerance, dates match on the
// day after layout normalization, free text matches case-insensitively with
// collapsed whitespace. Values of different kinds are never equivalent.
func Equivalent(a, b types.FieldValue, tolerance float64) bool {
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case types.KindMissing:
		return true
	case types.KindAmount:
		x, okA := types.ParseAmount(a.Value)
		y, okB := types.ParseAmount(b.Value)
		return okA && okB && withinTolerance(x, y, tolerance)
	case types.KindPercentage:
		x, okA := types.ParsePercent(a.Value)
		y, okB := types.ParsePercent(b.Value)
		return okA && okB && withinTolerance(x, y, tolerance)
	case types.KindDate:
		x, okA := types.ParseDate(a.Value)
		y, okB := types.ParseDate(b.Value)
		return okA && okB && x.Equal(y)
	default:
		return normalizeText(a.Value) == normalizeText(b.Value)
	}
}

// withinTolerance compares two numbers with relative tolerance; exact zero
// only matches zero.
func withinTolerance(x, y, tolerance float64) bool {
	if x == y {
		return true
	}
	denom := math.Max(math.Abs(x), math.Abs(y))
	if denom == 0 {
		return false
	}
	return math.Abs(x-y)/denom <= tolerance
}

// normalizeText lowercases and collapses interior whitespace for free-text
// comparison.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// scoreField grades one extracted value against an annotated reference.
// Missing-vs-missing is a match; missing on either side alone is a miss
// (the backend missed a stated value, or hallucinated an absent one).
// Free text that strictly contains, or is contained by, the reference is a
// partial (R1.2-R1.4).
func scoreField(got, ref types.FieldValue, tolerance float64) types.Outcome {
	if got.IsMissing() && ref.IsMissing() {
		return types.OutcomeMatch
	}
	if got.IsMissing() || ref.IsMissing() {
		return types.OutcomeMiss
	}
	if Equivalent(got, ref, tolerance) {
		return types.OutcomeMatch
	}

	if got.Kind == types.KindFreeText && ref.Kind == types.KindFreeText {
		g, r := normalizeText(got.Value), normalizeText(ref.Value)
		if g != r && (strings.Contains(g, r) || strings.Contains(r, g)) {
			return types.OutcomePartial
		}
	}

	return types.OutcomeMiss
}

// Score computes the benchmark result for one artifact. With a reference,
// every annotated field is graded; without one, FieldScores stays empty and
// the artifact contributes only to cross-backend agreement. Reference fields
// left unannotated (zero kind) are excluded from accuracy (R1.5).
func Score(artifact types.MemoArtifact, reference *types.MemoSchema, cfg types.BenchmarkConfig) types.BenchmarkResult {
	status := types.StatusScored
	if artifact.Degraded {
		status = types.StatusDegraded
	}

	result := types.BenchmarkResult{
		RecordID:    artifact.RecordID,
		BackendID:   artifact.BackendID,
		FieldScores: make(map[string]types.Outcome),
		Cost:        artifact.Cost,
		Latency:     artifact.Latency,
		Status:      status,
	}

	if reference == nil {
		return result
	}

	for _, name := range types.FieldNames() {
		ref, _ := reference.Field(name)
		if ref.Kind == "" {
			continue
		}
		got, _ := artifact.Schema.Field(name)
		result.FieldScores[name] = scoreField(got, ref, cfg.NumericTolerance)
	}

	return result
}

// FailedResult records a (record, backend) pair whose extraction or
// composition failed outright, so the report's failure tally stays complete.
func FailedResult(recordID, backendID string) types.BenchmarkResult {
	return types.BenchmarkResult{
		RecordID:    recordID,
		BackendID:   backendID,
		FieldScores: make(map[string]types.Outcome),
		Status:      types.StatusFailed,
	}
}
