// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

func testRecord() types.CanonicalRecord {
	return types.CanonicalRecord{
		ID:        "0123456789ab",
		SourceURI: "https://www.sec.gov/agreement.htm",
		RawText:   "CREDIT AGREEMENT dated as of March 15, 2021.",
	}
}

func goodExtraction() Extraction {
	return Extraction{
		Fields: map[string]RawField{
			types.FieldDealSize:         {Kind: "amount", Value: "$500 million"},
			types.FieldDealPrice:        {Kind: "missing", Value: ""},
			types.FieldInterestRate:     {Kind: "percentage", Value: "SOFR + 2.50%"},
			types.FieldKeyCovenants:     {Kind: "freetext", Value: "Maximum Leverage Ratio of 4.75x"},
			types.FieldMaturityDate:     {Kind: "date", Value: "March 15, 2026"},
			types.FieldPaymentFrequency: {Kind: "freetext", Value: "quarterly"},
		},
		ExecutiveSummary: "Five-year $500 million revolving facility for ACME Corp.",
		Highlights:       []string{"Strong covenant package"},
		Risks:            []string{"Floating-rate exposure"},
		Usage:            types.Usage{PromptTokens: 1000, CompletionTokens: 200},
	}
}

// --- mock backends ---

type mockBackend struct {
	id    string
	ext   Extraction
	err   error
	calls int
}

func (m *mockBackend) ID() string { return m.id }

func (m *mockBackend) Extract(_ context.Context, _ types.CanonicalRecord) (Extraction, error) {
	m.calls++
	if m.err != nil {
		return Extraction{}, m.err
	}
	return m.ext, nil
}

// failNTimesBackend fails the first N calls, then succeeds.
type failNTimesBackend struct {
	failures  int
	callCount int
	ext       Extraction
}

func (f *failNTimesBackend) ID() string { return "flaky" }

func (f *failNTimesBackend) Extract(_ context.Context, _ types.CanonicalRecord) (Extraction, error) {
	f.callCount++
	if f.callCount <= f.failures {
		return Extraction{}, fmt.Errorf("transient error (call %d)", f.callCount)
	}
	return f.ext, nil
}

// --- Run ---

func TestRunSuccess(t *testing.T) {
	b := &mockBackend{id: "mock", ext: goodExtraction()}
	cfg := types.ExtractionConfig{MaxRetries: 2, CallTimeout: time.Second}

	res, err := Run(context.Background(), b, testRecord(), cfg)
	require.NoError(t, err)

	assert.False(t, res.Degraded)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1200, res.Cost.Total())
	assert.Greater(t, res.Latency, time.Duration(0))

	assert.Equal(t, types.KindAmount, res.Schema.DealSize.Kind)
	assert.Equal(t, "$500 million", res.Schema.DealSize.Value)
	assert.Equal(t, "mock", res.Schema.DealSize.BackendID)
	assert.Equal(t, "0123456789ab", res.Schema.DealSize.RecordID)
	assert.True(t, res.Schema.DealPrice.IsMissing())

	assert.Equal(t, "Five-year $500 million revolving facility for ACME Corp.", res.Narrative.ExecutiveSummary)
	assert.Equal(t, []string{"Strong covenant package"}, res.Narrative.Highlights)
}

func TestRunRetriesTransientFailure(t *testing.T) {
	b := &failNTimesBackend{failures: 2, ext: goodExtraction()}
	cfg := types.ExtractionConfig{MaxRetries: 3, CallTimeout: time.Second}

	res, err := Run(context.Background(), b, testRecord(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, b.callCount)
	assert.False(t, res.Degraded)
}

func TestRunDegradesOnTimeoutExhaustion(t *testing.T) {
	b := &mockBackend{id: "mock", err: fmt.Errorf("calling API: %w", context.DeadlineExceeded)}
	cfg := types.ExtractionConfig{MaxRetries: 2, CallTimeout: time.Second}

	res, err := Run(context.Background(), b, testRecord(), cfg)
	require.Error(t, err)
	assert.True(t, IsDegraded(err))

	var te *ExtractionTimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "mock", te.BackendID)
	assert.Equal(t, "0123456789ab", te.RecordID)
	assert.Equal(t, 3, te.Attempts)
	assert.Equal(t, 3, b.calls)

	// The degraded result is still usable: all fields explicitly missing.
	assert.True(t, res.Degraded)
	for _, name := range types.FieldNames() {
		v, ok := res.Schema.Field(name)
		require.True(t, ok)
		assert.True(t, v.IsMissing(), name)
	}
}

func TestRunHardAPIErrorFailsFast(t *testing.T) {
	// A 4xx rejection is permanent: no retries, and the pair fails instead
	// of degrading.
	b := &mockBackend{id: "mock", err: &apiStatusError{Provider: "Claude", Status: 401, Body: "invalid api key"}}
	cfg := types.ExtractionConfig{MaxRetries: 3, CallTimeout: time.Second}

	_, err := Run(context.Background(), b, testRecord(), cfg)
	require.Error(t, err)
	assert.False(t, IsDegraded(err))
	assert.Equal(t, 1, b.calls)
	assert.Contains(t, err.Error(), "401")
}

func TestRunServerErrorRetriedThenFails(t *testing.T) {
	// Load shedding is worth retrying, but exhausting the budget on it is a
	// hard failure, not a timeout degradation.
	b := &mockBackend{id: "mock", err: &apiStatusError{Provider: "Gemini", Status: 503, Body: "overloaded"}}
	cfg := types.ExtractionConfig{MaxRetries: 2, CallTimeout: time.Second}

	_, err := Run(context.Background(), b, testRecord(), cfg)
	require.Error(t, err)
	assert.False(t, IsDegraded(err))
	assert.Equal(t, 3, b.calls)
}

func TestRunNonTimeoutExhaustionIsFailure(t *testing.T) {
	b := &mockBackend{id: "mock", err: fmt.Errorf("malformed response body")}
	cfg := types.ExtractionConfig{MaxRetries: 2, CallTimeout: time.Second}

	res, err := Run(context.Background(), b, testRecord(), cfg)
	require.Error(t, err)
	assert.False(t, IsDegraded(err))
	assert.False(t, res.Degraded)
	assert.Equal(t, 3, b.calls)
	assert.Contains(t, err.Error(), "malformed response body")
}

func TestRunContextCancelledNotRetried(t *testing.T) {
	b := &mockBackend{id: "mock", err: fmt.Errorf("provider unavailable")}
	cfg := types.ExtractionConfig{MaxRetries: 5, CallTimeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, b, testRecord(), cfg)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsDegraded(err))
	assert.LessOrEqual(t, b.calls, 1)
}

func TestRunSchemaViolationNotRetried(t *testing.T) {
	ext := goodExtraction()
	ext.Fields[types.FieldDealSize] = RawField{Kind: "currency", Value: "$500 million"}
	b := &mockBackend{id: "mock", ext: ext}
	cfg := types.ExtractionConfig{MaxRetries: 3, CallTimeout: time.Second}

	_, err := Run(context.Background(), b, testRecord(), cfg)
	require.Error(t, err)
	assert.False(t, IsDegraded(err))

	var sv *SchemaViolationError
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, types.FieldDealSize, sv.Field)
	assert.Equal(t, 1, b.calls)
}

// --- validate ---

func TestValidateMissingFieldKey(t *testing.T) {
	ext := goodExtraction()
	delete(ext.Fields, types.FieldMaturityDate)

	_, _, err := validate(ext, "mock", "0123456789ab")
	require.Error(t, err)

	var sv *SchemaViolationError
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, types.FieldMaturityDate, sv.Field)
	assert.Contains(t, sv.Reason, "omitted")
}

func TestValidateValueMustParseForKind(t *testing.T) {
	ext := goodExtraction()
	ext.Fields[types.FieldMaturityDate] = RawField{Kind: "date", Value: "sometime in 2026"}

	_, _, err := validate(ext, "mock", "0123456789ab")
	require.Error(t, err)

	var sv *SchemaViolationError
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, types.FieldMaturityDate, sv.Field)
}

func TestValidateMissingSentinels(t *testing.T) {
	for _, sentinel := range []string{"N/A", "n/a", "None", "not stated", ""} {
		ext := goodExtraction()
		ext.Fields[types.FieldDealPrice] = RawField{Kind: "amount", Value: sentinel}

		schema, _, err := validate(ext, "mock", "0123456789ab")
		require.NoError(t, err, sentinel)
		assert.True(t, schema.DealPrice.IsMissing(), sentinel)
	}
}

func TestValidateNormalizesKindCase(t *testing.T) {
	ext := goodExtraction()
	ext.Fields[types.FieldDealSize] = RawField{Kind: " Amount ", Value: "$500 million"}

	schema, _, err := validate(ext, "mock", "0123456789ab")
	require.NoError(t, err)
	assert.Equal(t, types.KindAmount, schema.DealSize.Kind)
}

func TestValidateCompactsNarrativeBullets(t *testing.T) {
	ext := goodExtraction()
	ext.Highlights = []string{"  first  ", "", "second"}
	ext.Risks = []string{"\t"}

	_, narrative, err := validate(ext, "mock", "0123456789ab")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, narrative.Highlights)
	assert.Empty(t, narrative.Risks)
}

// --- prompt ---

func TestRenderPromptEmbedsAgreement(t *testing.T) {
	prompt, err := renderPrompt("CREDIT AGREEMENT dated as of March 15, 2021.")
	require.NoError(t, err)

	assert.Contains(t, prompt, "BEGIN_AGREEMENT")
	assert.Contains(t, prompt, "CREDIT AGREEMENT dated as of March 15, 2021.")
	assert.Contains(t, prompt, "END_AGREEMENT")
	for _, name := range types.FieldNames() {
		assert.Contains(t, prompt, name)
	}
	assert.Contains(t, prompt, "do not make up")
}

func TestParseExtraction(t *testing.T) {
	body := `{"fields": {"deal_size": {"kind": "amount", "value": "$500 million"}}, "executive_summary": "Summary.", "highlights": ["h"], "risks": ["r"]}`

	tests := []struct {
		name string
		text string
	}{
		{name: "bare JSON", text: body},
		{name: "fenced JSON", text: "```json\n" + body + "\n```"},
		{name: "plain fence", text: "```\n" + body + "\n```"},
		{name: "surrounding whitespace", text: "\n\n  " + body + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := parseExtraction(tt.text)
			require.NoError(t, err)
			assert.Equal(t, "amount", ext.Fields[types.FieldDealSize].Kind)
			assert.Equal(t, "Summary.", ext.ExecutiveSummary)
		})
	}
}

func TestParseExtractionInvalidJSON(t *testing.T) {
	_, err := parseExtraction("I could not find the requested fields.")
	require.Error(t, err)
}
