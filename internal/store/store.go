// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists canonical records, split assignments, memo
// artifacts, and benchmark results between pipeline stages. Artifacts are
// keyed strictly on (record identity, backend identity), which is the only
// cache key the pipeline permits.
// Implements: prd001-ingestion R4, prd005-memo R4, prd006-benchmark R5;
//
//	docs/ARCHITECTURE § Run Store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "memo.db"
)

// Store manages the run database.
type Store struct {
	db *sql.DB
}

// New opens or creates the run database at benchDir/index/memo.db and
// creates the schema if it does not exist.
func New(benchDir string) (*Store, error) {
	dbDir := filepath.Join(benchDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			source_uri TEXT NOT NULL,
			raw_text TEXT NOT NULL,
			extracted_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS assignments (
			record_id TEXT PRIMARY KEY REFERENCES records(id),
			partition TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			record_id TEXT NOT NULL REFERENCES records(id),
			backend_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			degraded INTEGER NOT NULL DEFAULT 0,
			generated_at TEXT NOT NULL,
			PRIMARY KEY (record_id, backend_id)
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			record_id TEXT NOT NULL,
			backend_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			status TEXT NOT NULL,
			PRIMARY KEY (record_id, backend_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_partition ON assignments(partition)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_record ON artifacts(record_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRecords upserts canonical records. Re-ingesting identical content
// rewrites the same row — record IDs are content-derived, so no duplicates
// can appear.
func (s *Store) SaveRecords(ctx context.Context, records []types.CanonicalRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, source_uri, raw_text, extracted_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source_uri=excluded.source_uri, extracted_at=excluded.extracted_at`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ID, rec.SourceURI, rec.RawText,
			rec.ExtractedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// SaveAssignments upserts split assignments.
func (s *Store) SaveAssignments(ctx context.Context, assignments []types.SplitAssignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO assignments (record_id, partition) VALUES (?, ?)
		 ON CONFLICT(record_id) DO UPDATE SET partition=excluded.partition`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range assignments {
		if _, err := stmt.ExecContext(ctx, a.RecordID, string(a.Partition)); err != nil {
			return fmt.Errorf("inserting assignment %s: %w", a.RecordID, err)
		}
	}

	return tx.Commit()
}

// Records returns canonical records, optionally filtered to one partition.
// An empty partition returns everything, ordered by record ID for
// reproducible iteration.
func (s *Store) Records(ctx context.Context, partition types.Partition) ([]types.CanonicalRecord, error) {
	query := `SELECT r.id, r.source_uri, r.raw_text, r.extracted_at FROM records r`
	var args []any
	if partition != "" {
		query += ` JOIN assignments a ON a.record_id = r.id WHERE a.partition = ?`
		args = append(args, string(partition))
	}
	query += ` ORDER BY r.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []types.CanonicalRecord
	for rows.Next() {
		var rec types.CanonicalRecord
		var extractedAt string
		if err := rows.Scan(&rec.ID, &rec.SourceURI, &rec.RawText, &extractedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, extractedAt); err == nil {
			rec.ExtractedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveArtifact upserts one memo artifact under its (record, backend) key.
func (s *Store) SaveArtifact(ctx context.Context, artifact types.MemoArtifact) error {
	payload, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshaling artifact: %w", err)
	}

	degraded := 0
	if artifact.Degraded {
		degraded = 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO artifacts (record_id, backend_id, payload, degraded, generated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(record_id, backend_id) DO UPDATE SET
			payload=excluded.payload, degraded=excluded.degraded,
			generated_at=excluded.generated_at`,
		artifact.RecordID, artifact.BackendID, string(payload), degraded,
		artifact.GeneratedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upserting artifact %s/%s: %w", artifact.RecordID, artifact.BackendID, err)
	}
	return nil
}

// Artifact loads one memo artifact by its (record, backend) key.
func (s *Store) Artifact(ctx context.Context, recordID, backendID string) (types.MemoArtifact, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM artifacts WHERE record_id = ? AND backend_id = ?`,
		recordID, backendID).Scan(&payload)
	if err != nil {
		return types.MemoArtifact{}, fmt.Errorf("loading artifact %s/%s: %w", recordID, backendID, err)
	}

	var artifact types.MemoArtifact
	if err := json.Unmarshal([]byte(payload), &artifact); err != nil {
		return types.MemoArtifact{}, fmt.Errorf("parsing artifact %s/%s: %w", recordID, backendID, err)
	}
	return artifact, nil
}

// Artifacts returns all memo artifacts, optionally restricted to one
// partition. The per-record plurality (one artifact per backend) is what the
// evaluator consumes for cross-backend comparison.
func (s *Store) Artifacts(ctx context.Context, partition types.Partition) ([]types.MemoArtifact, error) {
	query := `SELECT ar.payload FROM artifacts ar`
	var args []any
	if partition != "" {
		query += ` JOIN assignments a ON a.record_id = ar.record_id WHERE a.partition = ?`
		args = append(args, string(partition))
	}
	query += ` ORDER BY ar.record_id, ar.backend_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []types.MemoArtifact
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		var artifact types.MemoArtifact
		if err := json.Unmarshal([]byte(payload), &artifact); err != nil {
			return nil, fmt.Errorf("parsing artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}

// SaveResult upserts one benchmark result under its (record, backend) key.
func (s *Store) SaveResult(ctx context.Context, result types.BenchmarkResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (record_id, backend_id, payload, status)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(record_id, backend_id) DO UPDATE SET
			payload=excluded.payload, status=excluded.status`,
		result.RecordID, result.BackendID, string(payload), string(result.Status))
	if err != nil {
		return fmt.Errorf("upserting result %s/%s: %w", result.RecordID, result.BackendID, err)
	}
	return nil
}

// Results returns stored benchmark results, optionally restricted to one
// partition, ordered by record and backend. The partition filter mirrors
// Artifacts so an eval report never absorbs rows persisted for train records.
func (s *Store) Results(ctx context.Context, partition types.Partition) ([]types.BenchmarkResult, error) {
	query := `SELECT re.payload FROM results re`
	var args []any
	if partition != "" {
		query += ` JOIN assignments a ON a.record_id = re.record_id WHERE a.partition = ?`
		args = append(args, string(partition))
	}
	query += ` ORDER BY re.record_id, re.backend_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var results []types.BenchmarkResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		var result types.BenchmarkResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("parsing result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
