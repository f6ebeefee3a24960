// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compose merges structured fields and narrative sections into memo
// artifacts and renders them in the fixed template order.
// Implements: prd005-memo (R1-R3);
//
//	docs/ARCHITECTURE § Memo Composition.
package compose

import (
	"fmt"
	"time"

	"github.com/dianesarkis1/memo-engine/internal/backend"
	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// TemplateMismatchError marks a composition-time structural failure: the
// narrative falls short of the configured section minimums. Fatal for that
// artifact only (R3.2).
type TemplateMismatchError struct {
	RecordID  string
	BackendID string
	Reason    string
}

func (e *TemplateMismatchError) Error() string {
	return fmt.Sprintf("template mismatch for record %s, backend %s: %s",
		e.RecordID, e.BackendID, e.Reason)
}

// Compose merges one validated extraction result into a MemoArtifact. A pure
// merge: no field value is invented or adjusted (R1.2). Degraded results are
// exempt from the narrative minimums; their emptiness is what the flag
// records.
func Compose(rec types.CanonicalRecord, backendID string, res backend.Result, cfg types.ComposeConfig) (types.MemoArtifact, error) {
	minHighlights := cfg.MinHighlights
	if minHighlights <= 0 {
		minHighlights = 1
	}
	minRisks := cfg.MinRisks
	if minRisks <= 0 {
		minRisks = 1
	}

	if !res.Degraded {
		if res.Narrative.ExecutiveSummary == "" {
			return types.MemoArtifact{}, &TemplateMismatchError{
				RecordID:  rec.ID,
				BackendID: backendID,
				Reason:    "empty executive summary",
			}
		}
		if len(res.Narrative.Highlights) < minHighlights {
			return types.MemoArtifact{}, &TemplateMismatchError{
				RecordID:  rec.ID,
				BackendID: backendID,
				Reason:    fmt.Sprintf("%d highlight(s), need at least %d", len(res.Narrative.Highlights), minHighlights),
			}
		}
		if len(res.Narrative.Risks) < minRisks {
			return types.MemoArtifact{}, &TemplateMismatchError{
				RecordID:  rec.ID,
				BackendID: backendID,
				Reason:    fmt.Sprintf("%d risk(s), need at least %d", len(res.Narrative.Risks), minRisks),
			}
		}
	}

	return types.MemoArtifact{
		RecordID:    rec.ID,
		BackendID:   backendID,
		Schema:      res.Schema,
		Narrative:   res.Narrative,
		Degraded:    res.Degraded,
		Cost:        res.Cost,
		Latency:     res.Latency,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
