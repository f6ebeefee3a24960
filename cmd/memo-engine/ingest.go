// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dianesarkis1/memo-engine/internal/canonical"
	"github.com/dianesarkis1/memo-engine/internal/split"
	"github.com/dianesarkis1/memo-engine/internal/store"
)

const defaultMaxAmbiguousRate = 0.05

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Canonicalize a document corpus and assign train/eval partitions",
	Long: `Ingest reads a JSONL corpus of raw documents, canonicalizes each one
(normalized whitespace, boilerplate stripped, duplicated sections removed),
derives a stable content-hash record ID, and assigns every record to the
train or eval partition against an externally maintained eval list.

Records whose pinned identity disagrees with their content hash are counted
as ambiguous and excluded; the run halts if the ambiguous rate exceeds the
configured threshold.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("input", "", "JSONL corpus file (one document per line)")
	ingestCmd.Flags().String("eval-list", "", "eval membership list, one source identity per line")
	ingestCmd.Flags().Float64("max-ambiguous-rate", defaultMaxAmbiguousRate, "ambiguous assignment rate that halts the run")
	ingestCmd.Flags().String("bench-dir", "bench", "base directory for benchmark state (contains index/)")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	if input == "" {
		return fmt.Errorf("provide a corpus file with --input")
	}
	evalList, _ := cmd.Flags().GetString("eval-list")
	if evalList == "" {
		return fmt.Errorf("provide an eval membership list with --eval-list")
	}
	maxRate, _ := cmd.Flags().GetFloat64("max-ambiguous-rate")
	benchDir, _ := cmd.Flags().GetString("bench-dir")

	corpus, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening corpus: %w", err)
	}
	defer corpus.Close()

	records, ingestSummary, err := canonical.ReadCorpus(corpus, os.Stdout)
	if err != nil {
		return err
	}

	evalFile, err := os.Open(evalList)
	if err != nil {
		return fmt.Errorf("opening eval list: %w", err)
	}
	defer evalFile.Close()

	membership, err := split.LoadMembership(evalFile)
	if err != nil {
		return err
	}

	assignments, splitSummary, err := split.AssignAll(records, membership, maxRate, os.Stdout)
	if err != nil {
		return err
	}

	st, err := store.New(benchDir)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.SaveRecords(ctx, records); err != nil {
		return err
	}
	if err := st.SaveAssignments(ctx, assignments); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "\nIngested %d record(s) (%d skipped, %d failed); %d train, %d eval, %d ambiguous\n",
		ingestSummary.Ingested, ingestSummary.Skipped, ingestSummary.Failed,
		splitSummary.Train, splitSummary.Eval, splitSummary.Ambiguous)

	if ingestSummary.HasFailures() {
		return fmt.Errorf("%d document(s) failed ingestion", ingestSummary.Failed)
	}
	return nil
}
