// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backend drives extraction engines behind the shared memo schema
// contract. Each engine is a Backend variant; the adapter boundary is the
// single place heterogeneous model behavior is forced into the canonical
// schema. Implements: prd004-extraction (R1-R5);
//
//	docs/ARCHITECTURE § Extraction Backends.
package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// Backend abstracts one extraction engine, model-based or rule-based.
// Implementations are stateless between calls; any caching belongs to a
// dedicated collaborator keyed on (record identity, backend identity).
// Per Strategy pattern (prd004-extraction R1.1).
type Backend interface {
	// ID reports the backend's own identity, used for provenance and
	// cross-backend comparison.
	ID() string

	// Extract populates the raw schema fields and narrative for one record.
	Extract(ctx context.Context, rec types.CanonicalRecord) (Extraction, error)
}

// RawField is one field as returned by a backend, before validation.
type RawField struct {
	Kind  string `json:"kind" yaml:"kind"`
	Value string `json:"value" yaml:"value"`
}

// Extraction is a backend's unvalidated response for one record.
type Extraction struct {
	// Fields is keyed by canonical field name. Every key must be present;
	// absence is a schema violation, not a missing value.
	Fields map[string]RawField `json:"fields" yaml:"fields"`

	ExecutiveSummary string   `json:"executive_summary" yaml:"executive_summary"`
	Highlights       []string `json:"highlights" yaml:"highlights"`
	Risks            []string `json:"risks" yaml:"risks"`

	// Usage is the backend-reported token cost, zero for rule-based engines.
	Usage types.Usage `json:"usage" yaml:"usage"`
}

// ExtractionTimeoutError marks an extraction call that exhausted its retry
// budget on timeouts. Recoverable at the pipeline level: the record degrades
// to all-fields-missing instead of aborting siblings (R4.1, R4.3).
type ExtractionTimeoutError struct {
	BackendID string
	RecordID  string
	Attempts  int
	Err       error
}

func (e *ExtractionTimeoutError) Error() string {
	return fmt.Sprintf("backend %s timed out on record %s after %d attempts: %v",
		e.BackendID, e.RecordID, e.Attempts, e.Err)
}

func (e *ExtractionTimeoutError) Unwrap() error { return e.Err }

// SchemaViolationError marks a backend response outside the closed schema
// contract: an omitted field key, an unknown kind, or a value that does not
// parse for its declared kind. Rejected and recorded, never coerced (R4.2).
type SchemaViolationError struct {
	BackendID string
	RecordID  string
	Field     string
	Reason    string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("backend %s violated schema on record %s, field %s: %s",
		e.BackendID, e.RecordID, e.Field, e.Reason)
}

// apiStatusError is a non-2xx provider response with its status code
// preserved, so the adapter can tell hard rejections from load shedding.
type apiStatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *apiStatusError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.Status, e.Body)
}

// retryable reports whether another attempt could change the outcome. Call
// timeouts and transport errors qualify; a 4xx API rejection (bad key,
// malformed request) is permanent and retrying only burns the budget.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var statusErr *apiStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == http.StatusTooManyRequests || statusErr.Status >= 500
	}
	return true
}

// Result is one validated (record, backend) extraction: the canonical schema
// with provenance, the narrative, and the call's cost and latency.
type Result struct {
	Schema    types.MemoSchema
	Narrative types.Narrative
	Degraded  bool
	Cost      types.Usage
	Latency   time.Duration
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// Run executes one extraction call through the adapter boundary: per-call
// timeout, retry with exponential backoff, then validation into the
// canonical schema. Timeout exhaustion returns a degraded Result (all fields
// missing) rather than an error, so the record stays in the report's tally.
// Permanent API rejections and other hard failures return a plain error —
// the pair is failed, not degraded. Schema violations are returned as errors
// and never coerced (R4.1-R4.3).
func Run(ctx context.Context, b Backend, rec types.CanonicalRecord, cfg types.ExtractionConfig) (Result, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 120 * time.Second
	}

	start := time.Now()
	attempts := 0
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		ext, err := b.Extract(callCtx, rec)
		cancel()
		attempts++

		if err == nil {
			schema, narrative, verr := validate(ext, b.ID(), rec.ID)
			if verr != nil {
				return Result{}, verr
			}
			return Result{
				Schema:    schema,
				Narrative: narrative,
				Cost:      ext.Usage,
				Latency:   time.Since(start),
			}, nil
		}

		// Cancellation of the parent context is not retryable.
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}

	// Retry budget exhausted on timeouts: degrade this record, leave
	// siblings alone.
	if errors.Is(lastErr, context.DeadlineExceeded) {
		timeoutErr := &ExtractionTimeoutError{
			BackendID: b.ID(),
			RecordID:  rec.ID,
			Attempts:  attempts,
			Err:       lastErr,
		}
		return Result{
			Schema:   types.AllMissing(b.ID(), rec.ID),
			Degraded: true,
			Latency:  time.Since(start),
		}, timeoutErr
	}

	// A hard backend failure (auth rejection, unparseable response) is not a
	// timeout; it files under failed so the report stays honest.
	return Result{}, fmt.Errorf("backend %s failed on record %s after %d attempts: %w",
		b.ID(), rec.ID, attempts, lastErr)
}

// IsDegraded reports whether err marks a degraded (timeout-exhausted)
// extraction whose Result is still usable.
func IsDegraded(err error) bool {
	var te *ExtractionTimeoutError
	return errors.As(err, &te)
}

// missingSentinels are value spellings backends use to assert absence.
var missingSentinels = map[string]bool{
	"":           true,
	"n/a":        true,
	"na":         true,
	"none":       true,
	"not stated": true,
}

// validate forces a raw extraction into the canonical schema. Every field
// key must be present with a kind from the closed set and a value that
// parses for that kind; "N/A" spellings become explicit missing. Provenance
// is stamped on every field (R2.1-R2.4).
func validate(ext Extraction, backendID, recordID string) (types.MemoSchema, types.Narrative, error) {
	var schema types.MemoSchema

	for _, name := range types.FieldNames() {
		raw, ok := ext.Fields[name]
		if !ok {
			return types.MemoSchema{}, types.Narrative{}, &SchemaViolationError{
				BackendID: backendID,
				RecordID:  recordID,
				Field:     name,
				Reason:    "field key omitted from response",
			}
		}

		kind := types.FieldKind(strings.ToLower(strings.TrimSpace(raw.Kind)))
		value := strings.TrimSpace(raw.Value)

		if kind == types.KindMissing || missingSentinels[strings.ToLower(value)] {
			schema.SetField(name, types.MissingField(backendID, recordID))
			continue
		}

		if !types.ValidFieldKinds[kind] {
			return types.MemoSchema{}, types.Narrative{}, &SchemaViolationError{
				BackendID: backendID,
				RecordID:  recordID,
				Field:     name,
				Reason:    fmt.Sprintf("kind %q outside the closed value types", raw.Kind),
			}
		}
		if !types.ValidValue(kind, value) {
			return types.MemoSchema{}, types.Narrative{}, &SchemaViolationError{
				BackendID: backendID,
				RecordID:  recordID,
				Field:     name,
				Reason:    fmt.Sprintf("value %q does not parse as %s", value, kind),
			}
		}

		schema.SetField(name, types.FieldValue{
			Kind:      kind,
			Value:     value,
			BackendID: backendID,
			RecordID:  recordID,
		})
	}

	narrative := types.Narrative{
		ExecutiveSummary: strings.TrimSpace(ext.ExecutiveSummary),
		Highlights:       compactStrings(ext.Highlights),
		Risks:            compactStrings(ext.Risks),
	}

	return schema, narrative, nil
}

// compactStrings trims entries and drops empty ones.
func compactStrings(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
