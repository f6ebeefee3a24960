// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bench

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// LoadReferences reads curated reference schemas keyed by record ID from a
// YAML file. References may annotate only a subset of eval records and a
// subset of fields; unannotated fields are excluded from accuracy and fall
// back to agreement-only metrics (R1.5).
//
// An empty path is not an error: it restricts the evaluator to agreement
// metrics.
func LoadReferences(path string) (map[string]types.MemoSchema, error) {
	if path == "" {
		return map[string]types.MemoSchema{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading references %s: %w", path, err)
	}

	var refs map[string]types.MemoSchema
	if err := yaml.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("parsing references %s: %w", path, err)
	}
	if refs == nil {
		refs = map[string]types.MemoSchema{}
	}
	return refs, nil
}
