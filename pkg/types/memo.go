// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// FieldKind tags the value type of a structured memo field.
// The set is closed: backends returning anything else are rejected at the
// adapter boundary rather than coerced. Per prd003-schema R1.1.
type FieldKind string

const (
	KindAmount     FieldKind = "amount"
	KindPercentage FieldKind = "percentage"
	KindDate       FieldKind = "date"
	KindFreeText   FieldKind = "freetext"

	// KindMissing means the backend explicitly asserted the source does not
	// state the field ("N/A"). It is never a silent default (R1.3).
	KindMissing FieldKind = "missing"
)

// ValidFieldKinds is the closed set of accepted FieldKind values.
var ValidFieldKinds = map[FieldKind]bool{
	KindAmount:     true,
	KindPercentage: true,
	KindDate:       true,
	KindFreeText:   true,
	KindMissing:    true,
}

// FieldValue is one structured field with provenance: which backend produced
// it and from which record. Per prd003-schema R1.2, R1.4.
type FieldValue struct {
	// Kind is one of amount, percentage, date, freetext, missing.
	Kind FieldKind `json:"kind" yaml:"kind"`

	// Value is the extracted text. Empty when Kind is missing.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	// BackendID identifies the backend that produced the value.
	BackendID string `json:"backend_id" yaml:"backend_id"`

	// RecordID identifies the source record the value was extracted from.
	RecordID string `json:"record_id" yaml:"record_id"`
}

// IsMissing reports whether the backend asserted the field is absent.
func (f FieldValue) IsMissing() bool {
	return f.Kind == KindMissing
}

// MissingField returns an explicit-absence FieldValue with provenance.
func MissingField(backendID, recordID string) FieldValue {
	return FieldValue{Kind: KindMissing, BackendID: backendID, RecordID: recordID}
}

// Canonical field names in template order. Per prd003-schema R2.1.
const (
	FieldDealSize         = "deal_size"
	FieldDealPrice        = "deal_price"
	FieldInterestRate     = "interest_rate"
	FieldKeyCovenants     = "key_covenants"
	FieldMaturityDate     = "maturity_date"
	FieldPaymentFrequency = "payment_frequency"
)

// FieldNames returns the six canonical field names in fixed output order.
func FieldNames() []string {
	return []string{
		FieldDealSize,
		FieldDealPrice,
		FieldInterestRate,
		FieldKeyCovenants,
		FieldMaturityDate,
		FieldPaymentFrequency,
	}
}

// MemoSchema is the structured-output contract shared by every backend and
// the evaluator. All six fields are always present, possibly as missing;
// the schema is never partially populated (R2.2).
type MemoSchema struct {
	DealSize         FieldValue `json:"deal_size" yaml:"deal_size"`
	DealPrice        FieldValue `json:"deal_price" yaml:"deal_price"`
	InterestRate     FieldValue `json:"interest_rate" yaml:"interest_rate"`
	KeyCovenants     FieldValue `json:"key_covenants" yaml:"key_covenants"`
	MaturityDate     FieldValue `json:"maturity_date" yaml:"maturity_date"`
	PaymentFrequency FieldValue `json:"payment_frequency" yaml:"payment_frequency"`
}

// Field returns the FieldValue for a canonical field name.
func (m MemoSchema) Field(name string) (FieldValue, bool) {
	switch name {
	case FieldDealSize:
		return m.DealSize, true
	case FieldDealPrice:
		return m.DealPrice, true
	case FieldInterestRate:
		return m.InterestRate, true
	case FieldKeyCovenants:
		return m.KeyCovenants, true
	case FieldMaturityDate:
		return m.MaturityDate, true
	case FieldPaymentFrequency:
		return m.PaymentFrequency, true
	}
	return FieldValue{}, false
}

// SetField assigns the FieldValue for a canonical field name.
func (m *MemoSchema) SetField(name string, v FieldValue) bool {
	switch name {
	case FieldDealSize:
		m.DealSize = v
	case FieldDealPrice:
		m.DealPrice = v
	case FieldInterestRate:
		m.InterestRate = v
	case FieldKeyCovenants:
		m.KeyCovenants = v
	case FieldMaturityDate:
		m.MaturityDate = v
	case FieldPaymentFrequency:
		m.PaymentFrequency = v
	default:
		return false
	}
	return true
}

// AllMissing returns a schema with every field explicitly missing, used for
// degraded artifacts after retry exhaustion. Per prd004-extraction R4.3.
func AllMissing(backendID, recordID string) MemoSchema {
	var m MemoSchema
	for _, name := range FieldNames() {
		m.SetField(name, MissingField(backendID, recordID))
	}
	return m
}

// Narrative holds the free-text memo sections alongside the structured fields.
// Per prd005-memo R1.1.
type Narrative struct {
	// ExecutiveSummary covers date, company, deal overview, background, and
	// purpose of the transaction.
	ExecutiveSummary string `json:"executive_summary" yaml:"executive_summary"`

	// Highlights are bullets on the transaction's strengths from an
	// investor's point of view.
	Highlights []string `json:"highlights" yaml:"highlights"`

	// Risks are bullets on the transaction's risks.
	Risks []string `json:"risks" yaml:"risks"`
}

// Usage records the token cost of one backend call, when the backend
// reports it. Per prd004-extraction R3.3.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`
}

// Total returns the combined token count.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// MemoArtifact is one backend's memo for one record. Multiple artifacts per
// record (one per backend) are intentional; the evaluator consumes the
// plurality for cross-backend comparison. Per prd005-memo R2.1-R2.3.
type MemoArtifact struct {
	RecordID  string     `json:"record_id" yaml:"record_id"`
	BackendID string     `json:"backend_id" yaml:"backend_id"`
	Schema    MemoSchema `json:"schema" yaml:"schema"`
	Narrative Narrative  `json:"narrative" yaml:"narrative"`

	// Degraded marks an artifact produced after exhausting retries: every
	// structured field forced to missing. The record stays in the report's
	// failure tally rather than being dropped.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`

	// Cost is the backend-reported token usage for the extraction call.
	Cost Usage `json:"cost" yaml:"cost"`

	// Latency is the wall-clock duration of the extraction call, retries
	// included.
	Latency time.Duration `json:"latency" yaml:"latency"`

	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}
