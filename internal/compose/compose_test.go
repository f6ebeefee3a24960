// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compose

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dianesarkis1/memo-engine/internal/backend"
	"github.com/dianesarkis1/memo-engine/pkg/types"
)

func testRecord() types.CanonicalRecord {
	return types.CanonicalRecord{
		ID:        "0123456789ab",
		SourceURI: "https://www.sec.gov/agreement.htm",
		RawText:   "CREDIT AGREEMENT",
	}
}

func testResult() backend.Result {
	schema := types.AllMissing("claude", "0123456789ab")
	schema.DealSize = types.FieldValue{
		Kind: types.KindAmount, Value: "$500 million",
		BackendID: "claude", RecordID: "0123456789ab",
	}
	schema.MaturityDate = types.FieldValue{
		Kind: types.KindDate, Value: "2026-03-15",
		BackendID: "claude", RecordID: "0123456789ab",
	}
	return backend.Result{
		Schema: schema,
		Narrative: types.Narrative{
			ExecutiveSummary: "Five-year $500 million facility for ACME Corp.",
			Highlights:       []string{"Sizable facility"},
			Risks:            []string{"Unstated pricing"},
		},
		Cost:    types.Usage{PromptTokens: 1000, CompletionTokens: 200},
		Latency: 3 * time.Second,
	}
}

func TestCompose(t *testing.T) {
	artifact, err := Compose(testRecord(), "claude", testResult(), types.ComposeConfig{})
	require.NoError(t, err)

	assert.Equal(t, "0123456789ab", artifact.RecordID)
	assert.Equal(t, "claude", artifact.BackendID)
	assert.False(t, artifact.Degraded)
	assert.Equal(t, 1200, artifact.Cost.Total())
	assert.Equal(t, 3*time.Second, artifact.Latency)
	assert.False(t, artifact.GeneratedAt.IsZero())

	// Pure merge: field values pass through untouched.
	assert.Equal(t, "$500 million", artifact.Schema.DealSize.Value)
	assert.True(t, artifact.Schema.DealPrice.IsMissing())
}

func TestComposeNarrativeMinimums(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*backend.Result)
		reason string
	}{
		{
			name:   "empty summary",
			mutate: func(r *backend.Result) { r.Narrative.ExecutiveSummary = "" },
			reason: "executive summary",
		},
		{
			name:   "no highlights",
			mutate: func(r *backend.Result) { r.Narrative.Highlights = nil },
			reason: "highlight",
		},
		{
			name:   "no risks",
			mutate: func(r *backend.Result) { r.Narrative.Risks = nil },
			reason: "risk",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := testResult()
			tt.mutate(&res)

			_, err := Compose(testRecord(), "claude", res, types.ComposeConfig{})
			require.Error(t, err)

			var tme *TemplateMismatchError
			require.ErrorAs(t, err, &tme)
			assert.Equal(t, "0123456789ab", tme.RecordID)
			assert.Contains(t, tme.Reason, tt.reason)
		})
	}
}

func TestComposeConfiguredMinimums(t *testing.T) {
	res := testResult()
	res.Narrative.Highlights = []string{"only one"}

	_, err := Compose(testRecord(), "claude", res, types.ComposeConfig{MinHighlights: 2})
	require.Error(t, err)

	var tme *TemplateMismatchError
	require.ErrorAs(t, err, &tme)
	assert.Contains(t, tme.Reason, "need at least 2")
}

func TestComposeDegradedExemptFromMinimums(t *testing.T) {
	res := backend.Result{
		Schema:   types.AllMissing("claude", "0123456789ab"),
		Degraded: true,
		Latency:  time.Minute,
	}

	artifact, err := Compose(testRecord(), "claude", res, types.ComposeConfig{})
	require.NoError(t, err)
	assert.True(t, artifact.Degraded)
}

func TestRenderSectionOrder(t *testing.T) {
	artifact, err := Compose(testRecord(), "claude", testResult(), types.ComposeConfig{})
	require.NoError(t, err)

	out, err := Render(artifact)
	require.NoError(t, err)

	// Sections appear in fixed order.
	summaryIdx := strings.Index(out, "## Executive Summary")
	highlightsIdx := strings.Index(out, "## Investment Highlights & Risks")
	dealInfoIdx := strings.Index(out, "## Key Deal Information")
	require.NotEqual(t, -1, summaryIdx)
	require.NotEqual(t, -1, highlightsIdx)
	require.NotEqual(t, -1, dealInfoIdx)
	assert.Less(t, summaryIdx, highlightsIdx)
	assert.Less(t, highlightsIdx, dealInfoIdx)

	assert.Contains(t, out, "### Highlights")
	assert.Contains(t, out, "### Risks")
	assert.Contains(t, out, "- Sizable facility")
	assert.Contains(t, out, "| Deal Size | $500 million |")
	assert.Contains(t, out, "| Maturity Date | 2026-03-15 |")
}

func TestRenderMissingFieldsAsNA(t *testing.T) {
	artifact, err := Compose(testRecord(), "claude", testResult(), types.ComposeConfig{})
	require.NoError(t, err)

	out, err := Render(artifact)
	require.NoError(t, err)

	assert.Contains(t, out, "| Deal Price | N/A |")
	assert.Contains(t, out, "| Interest Rate | N/A |")
	assert.Contains(t, out, "| Payment Frequency | N/A |")
}

func TestRenderDegradedMarked(t *testing.T) {
	res := backend.Result{Schema: types.AllMissing("gemini", "0123456789ab"), Degraded: true}
	artifact, err := Compose(testRecord(), "gemini", res, types.ComposeConfig{})
	require.NoError(t, err)

	out, err := Render(artifact)
	require.NoError(t, err)

	assert.Contains(t, out, "DEGRADED")
	for _, label := range []string{"Deal Size", "Deal Price", "Interest Rate", "Key Covenants", "Maturity Date", "Payment Frequency"} {
		assert.Contains(t, out, "| "+label+" | N/A |")
	}
}

func TestMemoFilename(t *testing.T) {
	artifact := types.MemoArtifact{RecordID: "0123456789ab", BackendID: "gemini"}
	assert.Equal(t, "record_0123456789ab_gemini_memo.md", MemoFilename(artifact))
}
