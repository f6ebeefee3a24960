// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Outcome grades one extracted field against a reference value.
// Per prd006-benchmark R1.1.
type Outcome string

const (
	OutcomeMatch   Outcome = "match"
	OutcomePartial Outcome = "partial"
	OutcomeMiss    Outcome = "miss"
)

// ResultStatus classifies a scored (record, backend) pair so report
// consumers can judge benchmark validity under partial failure.
// Per prd006-benchmark R4.2.
type ResultStatus string

const (
	StatusScored   ResultStatus = "scored"
	StatusDegraded ResultStatus = "degraded"
	StatusFailed   ResultStatus = "failed"
)

// BenchmarkResult scores one memo artifact. Computed once per
// (record, backend) pair; immutable; aggregated across the eval partition.
type BenchmarkResult struct {
	RecordID  string `json:"record_id" yaml:"record_id"`
	BackendID string `json:"backend_id" yaml:"backend_id"`

	// FieldScores maps canonical field names to outcomes. Fields without a
	// reference value are omitted here and contribute only to agreement.
	FieldScores map[string]Outcome `json:"field_scores" yaml:"field_scores"`

	Cost    Usage         `json:"cost" yaml:"cost"`
	Latency time.Duration `json:"latency" yaml:"latency"`
	Status  ResultStatus  `json:"status" yaml:"status"`
}

// FieldTally accumulates per-field outcomes for one backend. All counts are
// additive so partial benchmark runs can be merged (R3.4).
type FieldTally struct {
	Evaluated int `json:"evaluated" yaml:"evaluated"`
	Match     int `json:"match" yaml:"match"`
	Partial   int `json:"partial" yaml:"partial"`
	Miss      int `json:"miss" yaml:"miss"`
}

// Accuracy is the match rate over evaluated fields, zero when nothing was
// evaluated.
func (t FieldTally) Accuracy() float64 {
	if t.Evaluated == 0 {
		return 0
	}
	return float64(t.Match) / float64(t.Evaluated)
}

// Add returns the element-wise sum of two tallies.
func (t FieldTally) Add(o FieldTally) FieldTally {
	return FieldTally{
		Evaluated: t.Evaluated + o.Evaluated,
		Match:     t.Match + o.Match,
		Partial:   t.Partial + o.Partial,
		Miss:      t.Miss + o.Miss,
	}
}

// BackendReport aggregates one backend's results over the eval partition.
type BackendReport struct {
	// Fields maps canonical field names to outcome tallies.
	Fields map[string]FieldTally `json:"fields" yaml:"fields"`

	// Scored, Degraded, and Failed count records by result status.
	Scored   int `json:"scored" yaml:"scored"`
	Degraded int `json:"degraded" yaml:"degraded"`
	Failed   int `json:"failed" yaml:"failed"`

	// TotalTokens and TotalLatency accumulate over Calls so means stay
	// mergeable.
	TotalTokens  int           `json:"total_tokens" yaml:"total_tokens"`
	TotalLatency time.Duration `json:"total_latency" yaml:"total_latency"`
	Calls        int           `json:"calls" yaml:"calls"`
}

// MeanLatency is the average extraction latency per call.
func (b *BackendReport) MeanLatency() time.Duration {
	if b.Calls == 0 {
		return 0
	}
	return b.TotalLatency / time.Duration(b.Calls)
}

// MeanTokens is the average token cost per call.
func (b *BackendReport) MeanTokens() float64 {
	if b.Calls == 0 {
		return 0
	}
	return float64(b.TotalTokens) / float64(b.Calls)
}

// AgreementTally counts cross-backend field comparisons. A pair is two
// backends' values for the same field on the same record; a disagreement is
// a pair whose values are not semantically equal. Per prd006-benchmark R2.
type AgreementTally struct {
	Pairs         int `json:"pairs" yaml:"pairs"`
	Disagreements int `json:"disagreements" yaml:"disagreements"`
}

// Rate is the disagreement fraction, zero when no pairs were compared.
// This is the reliability proxy when no ground truth exists.
func (a AgreementTally) Rate() float64 {
	if a.Pairs == 0 {
		return 0
	}
	return float64(a.Disagreements) / float64(a.Pairs)
}

// Add returns the element-wise sum of two agreement tallies.
func (a AgreementTally) Add(o AgreementTally) AgreementTally {
	return AgreementTally{
		Pairs:         a.Pairs + o.Pairs,
		Disagreements: a.Disagreements + o.Disagreements,
	}
}

// Report is the aggregate benchmark output: per-backend accuracy/cost/latency
// plus per-field cross-backend disagreement. All members are additive counts,
// so Merge is order-independent. Per prd006-benchmark R3, R4.
type Report struct {
	// Backends maps backend identity to its aggregated report.
	Backends map[string]*BackendReport `json:"backends" yaml:"backends"`

	// Agreement maps canonical field names to cross-backend tallies.
	Agreement map[string]AgreementTally `json:"agreement" yaml:"agreement"`
}
