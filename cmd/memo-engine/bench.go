// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dianesarkis1/memo-engine/internal/bench"
	"github.com/dianesarkis1/memo-engine/internal/store"
	"github.com/dianesarkis1/memo-engine/pkg/types"
)

const defaultNumericTolerance = 0.005

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Score stored memos against references and each other",
	Long: `Bench scores every stored memo artifact field by field against
reference schemas (when provided) and accumulates per-backend accuracy,
cost, latency, and cross-backend disagreement rates.

Without references the evaluator is restricted to agreement-only metrics:
each record's memos are compared pairwise across backends. The aggregated
report is summarized on stdout and optionally exported to YAML or JSON.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().String("references", "", "YAML file of reference schemas keyed by record ID")
	benchCmd.Flags().String("partition", "eval", "artifact partition to score: train or eval")
	benchCmd.Flags().Float64("tolerance", defaultNumericTolerance, "relative tolerance for numeric field matching")
	benchCmd.Flags().String("out", "", "write the aggregated report to this file under bench-dir/reports/")
	benchCmd.Flags().String("format", "yaml", "report export format: yaml or json")
	benchCmd.Flags().String("bench-dir", "bench", "base directory for benchmark state (contains index/, reports/)")

	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	partition, err := parsePartition(cmd)
	if err != nil {
		return err
	}
	referencesPath, _ := cmd.Flags().GetString("references")
	tolerance, _ := cmd.Flags().GetFloat64("tolerance")
	out, _ := cmd.Flags().GetString("out")
	format, _ := cmd.Flags().GetString("format")
	benchDir, _ := cmd.Flags().GetString("bench-dir")

	cfg := types.BenchmarkConfig{
		BenchDir:         benchDir,
		ReferencesPath:   referencesPath,
		NumericTolerance: tolerance,
	}

	references, err := bench.LoadReferences(referencesPath)
	if err != nil {
		return err
	}

	st, err := store.New(benchDir)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	artifacts, err := st.Artifacts(ctx, partition)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		return fmt.Errorf("no artifacts in %s partition: run extract first", partition)
	}

	for _, artifact := range artifacts {
		var reference *types.MemoSchema
		if ref, ok := references[artifact.RecordID]; ok {
			reference = &ref
		}
		result := bench.Score(artifact, reference, cfg)
		if err := st.SaveResult(ctx, result); err != nil {
			return err
		}
	}

	// Results include failed pairs persisted at extract time, scoped to the
	// scored partition so other partitions' rows stay out of the tallies.
	results, err := st.Results(ctx, partition)
	if err != nil {
		return err
	}

	report := bench.Aggregate(results, artifacts, cfg)
	bench.Summarize(os.Stdout, report)

	if out != "" {
		reportsDir := filepath.Join(benchDir, "reports")
		if err := os.MkdirAll(reportsDir, 0o755); err != nil {
			return fmt.Errorf("creating reports directory: %w", err)
		}
		path := filepath.Join(reportsDir, out)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()

		if err := bench.Export(f, report, format); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Exported report to", path)
	}

	return nil
}
