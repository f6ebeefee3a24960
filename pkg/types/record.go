// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CanonicalRecord is the normalized, deduplicated representation of one
// source document. Per prd001-ingestion R2.1-R2.3.
type CanonicalRecord struct {
	// ID is derived from RawText alone (truncated SHA-256), so re-ingesting
	// identical content always yields the same record (R2.2).
	ID string `json:"id" yaml:"id"`

	// SourceURI is the origin of the document (e.g. an SEC EDGAR exhibit URL).
	SourceURI string `json:"source_uri" yaml:"source_uri"`

	// RawText is the cleaned document text. Immutable after canonicalization.
	RawText string `json:"raw_text" yaml:"raw_text"`

	// ExtractedAt records when the document was canonicalized.
	ExtractedAt time.Time `json:"extracted_at" yaml:"extracted_at"`
}

// Partition labels a record as belonging to the train or eval corpus.
// Per prd002-split R1.1.
type Partition string

const (
	PartitionTrain Partition = "train"
	PartitionEval  Partition = "eval"
)

// SplitAssignment records which partition a canonical record belongs to.
// Per prd002-split R1.2.
type SplitAssignment struct {
	// RecordID is the CanonicalRecord ID.
	RecordID string `json:"record_id" yaml:"record_id"`

	// Partition is train or eval.
	Partition Partition `json:"partition" yaml:"partition"`
}
