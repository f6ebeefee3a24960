// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package canonical

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCorpus(t *testing.T) {
	input := strings.Join([]string{
		`{"source_url": "https://www.sec.gov/a.htm", "text": "CREDIT AGREEMENT dated as of March 15, 2021, among ACME CORP."}`,
		`{"source_url": "https://www.sec.gov/b.htm", "text": "CREDIT AGREEMENT dated as of June 1, 2020, among WIDGET INC."}`,
	}, "\n")

	var log bytes.Buffer
	records, summary, err := ReadCorpus(strings.NewReader(input), &log)
	require.NoError(t, err)

	assert.Len(t, records, 2)
	assert.Equal(t, 2, summary.Ingested)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.False(t, summary.HasFailures())
	assert.Contains(t, log.String(), "ingested")
}

func TestReadCorpusSkipsDuplicateContent(t *testing.T) {
	// Same text under two URLs canonicalizes to the same record ID.
	input := strings.Join([]string{
		`{"source_url": "https://www.sec.gov/a.htm", "text": "CREDIT AGREEMENT dated as of March 15, 2021."}`,
		`{"source_url": "https://mirror.example/a.htm", "text": "CREDIT AGREEMENT dated as of March 15, 2021."}`,
	}, "\n")

	var log bytes.Buffer
	records, summary, err := ReadCorpus(strings.NewReader(input), &log)
	require.NoError(t, err)

	assert.Len(t, records, 1)
	assert.Equal(t, 1, summary.Ingested)
	assert.Equal(t, 1, summary.Skipped)
	assert.Contains(t, log.String(), "skipped")
}

func TestReadCorpusMalformedLinesNotFatal(t *testing.T) {
	input := strings.Join([]string{
		`not json at all`,
		`{"source_url": "https://www.sec.gov/empty.htm", "text": ""}`,
		`{"source_url": "https://www.sec.gov/ok.htm", "text": "CREDIT AGREEMENT dated as of June 1, 2020."}`,
	}, "\n")

	var log bytes.Buffer
	records, summary, err := ReadCorpus(strings.NewReader(input), &log)
	require.NoError(t, err)

	assert.Len(t, records, 1)
	assert.Equal(t, 1, summary.Ingested)
	assert.Equal(t, 2, summary.Failed)
	assert.True(t, summary.HasFailures())
	assert.Equal(t, 3, summary.Total())
	assert.Contains(t, log.String(), "invalid JSON")
	assert.Contains(t, log.String(), "empty content")
}

func TestReadCorpusSkipsBlankLines(t *testing.T) {
	input := "\n\n" + `{"source_url": "https://www.sec.gov/a.htm", "text": "CREDIT AGREEMENT dated as of March 15, 2021."}` + "\n\n"

	var log bytes.Buffer
	records, summary, err := ReadCorpus(strings.NewReader(input), &log)
	require.NoError(t, err)

	assert.Len(t, records, 1)
	assert.Equal(t, 1, summary.Total())
}

func TestReadCorpusEmptyStream(t *testing.T) {
	var log bytes.Buffer
	records, summary, err := ReadCorpus(strings.NewReader(""), &log)
	require.NoError(t, err)

	assert.Empty(t, records)
	assert.Equal(t, 0, summary.Total())
}
