// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package canonical

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// corpusLine is one JSONL line of the ingestion stream: a (source_url, text)
// pair produced by the external retrieval layer.
type corpusLine struct {
	SourceURL string `json:"source_url"`
	Text      string `json:"text"`
}

// maxLineBytes bounds one corpus line. Full credit agreements run to several
// hundred KB of text; 64 MB leaves ample headroom.
const maxLineBytes = 64 << 20

// IngestSummary holds counts from a corpus ingestion run (R3.3).
type IngestSummary struct {
	Ingested int
	Skipped  int
	Failed   int
}

// Total returns the number of corpus lines processed.
func (s IngestSummary) Total() int {
	return s.Ingested + s.Skipped + s.Failed
}

// HasFailures reports whether any lines failed canonicalization.
func (s IngestSummary) HasFailures() bool {
	return s.Failed > 0
}

// ReadCorpus consumes a JSONL stream of (source_url, text) pairs and
// canonicalizes each line. Malformed lines are counted and logged, never
// fatal for the stream; duplicate content (same record ID) is skipped so
// re-ingestion is idempotent (R2.2, R3.1-R3.3).
func ReadCorpus(r io.Reader, w io.Writer) ([]types.CanonicalRecord, IngestSummary, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		records []types.CanonicalRecord
		summary IngestSummary
		seen    = make(map[string]bool)
		lineNo  int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var cl corpusLine
		if err := json.Unmarshal([]byte(line), &cl); err != nil {
			fmt.Fprintf(w, "failed  line %d: invalid JSON: %v\n", lineNo, err)
			summary.Failed++
			continue
		}

		rec, err := Canonicalize(cl.SourceURL, cl.Text)
		if err != nil {
			var malformed *MalformedSourceError
			if errors.As(err, &malformed) {
				fmt.Fprintf(w, "failed  line %d: %v\n", lineNo, err)
				summary.Failed++
				continue
			}
			return records, summary, err
		}

		if seen[rec.ID] {
			fmt.Fprintf(w, "skipped %s (duplicate of %s)\n", rec.SourceURI, rec.ID)
			summary.Skipped++
			continue
		}
		seen[rec.ID] = true

		fmt.Fprintf(w, "ingested %s (%s, %d chars)\n", rec.ID, rec.SourceURI, len(rec.RawText))
		records = append(records, rec)
		summary.Ingested++
	}

	if err := scanner.Err(); err != nil {
		return records, summary, fmt.Errorf("reading corpus stream: %w", err)
	}

	return records, summary, nil
}
