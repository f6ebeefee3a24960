// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecords() []types.CanonicalRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return []types.CanonicalRecord{
		{ID: "aaaaaaaaaaaa", SourceURI: "https://www.sec.gov/a.htm", RawText: "CREDIT AGREEMENT A", ExtractedAt: now},
		{ID: "bbbbbbbbbbbb", SourceURI: "https://www.sec.gov/b.htm", RawText: "CREDIT AGREEMENT B", ExtractedAt: now},
	}
}

func TestSaveAndLoadRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRecords(ctx, testRecords()))

	got, err := s.Records(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "aaaaaaaaaaaa", got[0].ID)
	assert.Equal(t, "https://www.sec.gov/a.htm", got[0].SourceURI)
	assert.Equal(t, "CREDIT AGREEMENT A", got[0].RawText)
	assert.False(t, got[0].ExtractedAt.IsZero())
}

func TestSaveRecordsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := testRecords()
	require.NoError(t, s.SaveRecords(ctx, records))

	// Same content re-ingested under a new URL rewrites the row.
	records[0].SourceURI = "https://mirror.example/a.htm"
	require.NoError(t, s.SaveRecords(ctx, records[:1]))

	got, err := s.Records(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://mirror.example/a.htm", got[0].SourceURI)
}

func TestRecordsByPartition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRecords(ctx, testRecords()))
	require.NoError(t, s.SaveAssignments(ctx, []types.SplitAssignment{
		{RecordID: "aaaaaaaaaaaa", Partition: types.PartitionTrain},
		{RecordID: "bbbbbbbbbbbb", Partition: types.PartitionEval},
	}))

	eval, err := s.Records(ctx, types.PartitionEval)
	require.NoError(t, err)
	require.Len(t, eval, 1)
	assert.Equal(t, "bbbbbbbbbbbb", eval[0].ID)

	train, err := s.Records(ctx, types.PartitionTrain)
	require.NoError(t, err)
	require.Len(t, train, 1)
	assert.Equal(t, "aaaaaaaaaaaa", train[0].ID)
}

func testArtifact(recordID, backendID string) types.MemoArtifact {
	schema := types.AllMissing(backendID, recordID)
	schema.DealSize = types.FieldValue{
		Kind: types.KindAmount, Value: "$500 million",
		BackendID: backendID, RecordID: recordID,
	}
	return types.MemoArtifact{
		RecordID:  recordID,
		BackendID: backendID,
		Schema:    schema,
		Narrative: types.Narrative{
			ExecutiveSummary: "Five-year facility.",
			Highlights:       []string{"h"},
			Risks:            []string{"r"},
		},
		Cost:        types.Usage{PromptTokens: 1000, CompletionTokens: 200},
		Latency:     2 * time.Second,
		GeneratedAt: time.Now().UTC(),
	}
}

func TestSaveAndLoadArtifact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRecords(ctx, testRecords()))
	artifact := testArtifact("aaaaaaaaaaaa", "claude")
	require.NoError(t, s.SaveArtifact(ctx, artifact))

	got, err := s.Artifact(ctx, "aaaaaaaaaaaa", "claude")
	require.NoError(t, err)

	assert.Equal(t, artifact.RecordID, got.RecordID)
	assert.Equal(t, artifact.BackendID, got.BackendID)
	assert.Equal(t, "$500 million", got.Schema.DealSize.Value)
	assert.True(t, got.Schema.DealPrice.IsMissing())
	assert.Equal(t, artifact.Narrative, got.Narrative)
	assert.Equal(t, 1200, got.Cost.Total())
	assert.Equal(t, 2*time.Second, got.Latency)
}

func TestArtifactNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Artifact(context.Background(), "aaaaaaaaaaaa", "claude")
	require.Error(t, err)
}

func TestArtifactUpsertByKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRecords(ctx, testRecords()))

	first := testArtifact("aaaaaaaaaaaa", "claude")
	first.Degraded = true
	require.NoError(t, s.SaveArtifact(ctx, first))

	// A re-run for the same (record, backend) key replaces the artifact.
	second := testArtifact("aaaaaaaaaaaa", "claude")
	require.NoError(t, s.SaveArtifact(ctx, second))

	got, err := s.Artifact(ctx, "aaaaaaaaaaaa", "claude")
	require.NoError(t, err)
	assert.False(t, got.Degraded)

	all, err := s.Artifacts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestArtifactsPerBackendPlurality(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRecords(ctx, testRecords()))
	require.NoError(t, s.SaveArtifact(ctx, testArtifact("aaaaaaaaaaaa", "claude")))
	require.NoError(t, s.SaveArtifact(ctx, testArtifact("aaaaaaaaaaaa", "gemini")))
	require.NoError(t, s.SaveArtifact(ctx, testArtifact("bbbbbbbbbbbb", "claude")))

	all, err := s.Artifacts(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Ordered by record then backend.
	assert.Equal(t, "claude", all[0].BackendID)
	assert.Equal(t, "gemini", all[1].BackendID)
	assert.Equal(t, "bbbbbbbbbbbb", all[2].RecordID)
}

func TestArtifactsByPartition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRecords(ctx, testRecords()))
	require.NoError(t, s.SaveAssignments(ctx, []types.SplitAssignment{
		{RecordID: "aaaaaaaaaaaa", Partition: types.PartitionTrain},
		{RecordID: "bbbbbbbbbbbb", Partition: types.PartitionEval},
	}))
	require.NoError(t, s.SaveArtifact(ctx, testArtifact("aaaaaaaaaaaa", "claude")))
	require.NoError(t, s.SaveArtifact(ctx, testArtifact("bbbbbbbbbbbb", "claude")))

	eval, err := s.Artifacts(ctx, types.PartitionEval)
	require.NoError(t, err)
	require.Len(t, eval, 1)
	assert.Equal(t, "bbbbbbbbbbbb", eval[0].RecordID)
}

func TestSaveAndLoadResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result := types.BenchmarkResult{
		RecordID:  "aaaaaaaaaaaa",
		BackendID: "claude",
		FieldScores: map[string]types.Outcome{
			types.FieldDealSize: types.OutcomeMatch,
		},
		Cost:    types.Usage{PromptTokens: 1000},
		Latency: time.Second,
		Status:  types.StatusScored,
	}
	require.NoError(t, s.SaveResult(ctx, result))

	// Scoring again for the same key overwrites the earlier row.
	result.Status = types.StatusDegraded
	require.NoError(t, s.SaveResult(ctx, result))

	got, err := s.Results(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.StatusDegraded, got[0].Status)
	assert.Equal(t, types.OutcomeMatch, got[0].FieldScores[types.FieldDealSize])
}

func TestResultsByPartition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRecords(ctx, testRecords()))
	require.NoError(t, s.SaveAssignments(ctx, []types.SplitAssignment{
		{RecordID: "aaaaaaaaaaaa", Partition: types.PartitionTrain},
		{RecordID: "bbbbbbbbbbbb", Partition: types.PartitionEval},
	}))

	// A failed train row, persisted the way extract records failures, must
	// never surface in the eval partition's results.
	require.NoError(t, s.SaveResult(ctx, types.BenchmarkResult{
		RecordID: "aaaaaaaaaaaa", BackendID: "claude",
		FieldScores: map[string]types.Outcome{},
		Status:      types.StatusFailed,
	}))
	require.NoError(t, s.SaveResult(ctx, types.BenchmarkResult{
		RecordID: "bbbbbbbbbbbb", BackendID: "claude",
		FieldScores: map[string]types.Outcome{
			types.FieldDealSize: types.OutcomeMatch,
		},
		Status: types.StatusScored,
	}))

	eval, err := s.Results(ctx, types.PartitionEval)
	require.NoError(t, err)
	require.Len(t, eval, 1)
	assert.Equal(t, "bbbbbbbbbbbb", eval[0].RecordID)
	assert.Equal(t, types.StatusScored, eval[0].Status)

	train, err := s.Results(ctx, types.PartitionTrain)
	require.NoError(t, err)
	require.Len(t, train, 1)
	assert.Equal(t, types.StatusFailed, train[0].Status)

	all, err := s.Results(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStoreReopenPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveRecords(ctx, testRecords()))
	require.NoError(t, s.Close())

	reopened, err := New(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Records(ctx, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
