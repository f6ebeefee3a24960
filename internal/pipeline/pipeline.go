// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline fans extraction calls out over a bounded worker pool and
// joins them before anything downstream aggregates.
// Implements: prd004-extraction R6; docs/ARCHITECTURE § Concurrency Model.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dianesarkis1/memo-engine/internal/backend"
	"github.com/dianesarkis1/memo-engine/internal/compose"
	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// defaultWorkers bounds concurrent extraction calls when the config leaves
// Workers unset. Backend calls are network-bound, not CPU-bound.
const defaultWorkers = 4

// Failure records one (record, backend) pair that produced no usable
// artifact: a schema violation or a composition failure.
type Failure struct {
	RecordID  string
	BackendID string
	Err       error
}

// Outcome is the joined result of an extraction run. Artifacts includes
// degraded ones; Failures lists pairs that yielded nothing.
type Outcome struct {
	Artifacts []types.MemoArtifact
	Failures  []Failure
	Degraded  int
}

// Extract runs every (record, backend) pair through the adapter, composes
// artifacts, and returns only after all in-flight calls have completed or
// definitively failed — the join point the evaluator's aggregation depends
// on. Records share no mutable state; a timed-out or failed pair never
// blocks or cancels its siblings (R6.1-R6.4).
func Extract(ctx context.Context, records []types.CanonicalRecord, backends []backend.Backend, extractionCfg types.ExtractionConfig, composeCfg types.ComposeConfig, w io.Writer) (Outcome, error) {
	workers := extractionCfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	var (
		mu      sync.Mutex
		outcome Outcome
	)

	for _, rec := range records {
		for _, b := range backends {
			rec, b := rec, b
			eg.Go(func() error {
				res, err := backend.Run(gctx, b, rec, extractionCfg)

				switch {
				case err == nil:
					// Fully extracted.
				case backend.IsDegraded(err):
					// Retry budget exhausted: keep the degraded result,
					// count it, move on.
					mu.Lock()
					outcome.Degraded++
					mu.Unlock()
					fmt.Fprintf(w, "degraded %s/%s: %v\n", rec.ID, b.ID(), err)
				case gctx.Err() != nil:
					// The whole run was cancelled; stop the group.
					return gctx.Err()
				default:
					mu.Lock()
					outcome.Failures = append(outcome.Failures, Failure{RecordID: rec.ID, BackendID: b.ID(), Err: err})
					mu.Unlock()
					fmt.Fprintf(w, "failed  %s/%s: %v\n", rec.ID, b.ID(), err)
					return nil
				}

				artifact, err := compose.Compose(rec, b.ID(), res, composeCfg)
				if err != nil {
					mu.Lock()
					outcome.Failures = append(outcome.Failures, Failure{RecordID: rec.ID, BackendID: b.ID(), Err: err})
					mu.Unlock()
					fmt.Fprintf(w, "failed  %s/%s: %v\n", rec.ID, b.ID(), err)
					return nil
				}

				mu.Lock()
				outcome.Artifacts = append(outcome.Artifacts, artifact)
				mu.Unlock()
				if !artifact.Degraded {
					fmt.Fprintf(w, "extracted %s/%s\n", rec.ID, b.ID())
				}
				return nil
			})
		}
	}

	// Barrier: no aggregation may happen before this returns.
	if err := eg.Wait(); err != nil {
		return outcome, err
	}
	return outcome, nil
}
