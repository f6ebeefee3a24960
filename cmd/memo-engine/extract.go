// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dianesarkis1/memo-engine/internal/backend"
	"github.com/dianesarkis1/memo-engine/internal/bench"
	"github.com/dianesarkis1/memo-engine/internal/compose"
	"github.com/dianesarkis1/memo-engine/internal/pipeline"
	"github.com/dianesarkis1/memo-engine/internal/store"
	"github.com/dianesarkis1/memo-engine/pkg/types"
)

const (
	defaultCallTimeout     = 120 * time.Second
	defaultMaxRetries      = 2
	defaultWorkers         = 4
	defaultMaxOutputTokens = 2000
	defaultUserAgent       = "memo-engine/0.1"

	defaultOpenAIModel = "gpt-4-turbo"
	defaultClaudeModel = "claude-sonnet-4-20250514"
	defaultGeminiModel = "gemini-2.5-pro"
	defaultGroqModel   = "llama-3.3-70b-versatile"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run extraction backends over stored records and compose memos",
	Long: `Extract loads canonical records for a partition, runs every configured
backend over each one, and composes the results into memo artifacts: a
six-field deal schema plus an executive summary, highlights, and risks.

A backend that exhausts its retry budget degrades that single record (all
fields Missing) without affecting sibling records or other backends.
Artifacts are persisted and rendered memos are written to the memos
directory.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringSlice("backends", []string{"pattern"}, "backends to run: openai, claude, gemini, groq, pattern")
	extractCmd.Flags().String("partition", "eval", "record partition to extract: train or eval")
	extractCmd.Flags().Int("workers", defaultWorkers, "maximum concurrent extraction calls")
	extractCmd.Flags().Int("max-retries", defaultMaxRetries, "retry budget per extraction call")
	extractCmd.Flags().Duration("call-timeout", defaultCallTimeout, "timeout for a single extraction call")
	extractCmd.Flags().Int("max-output-tokens", defaultMaxOutputTokens, "generated token cap per call")
	extractCmd.Flags().String("bench-dir", "bench", "base directory for benchmark state (contains index/)")
	extractCmd.Flags().String("memos-dir", "memos", "directory for rendered memo Markdown files")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	partition, err := parsePartition(cmd)
	if err != nil {
		return err
	}
	benchDir, _ := cmd.Flags().GetString("bench-dir")
	memosDir, _ := cmd.Flags().GetString("memos-dir")

	extractionCfg := extractionConfigFromFlags(cmd)
	composeCfg := types.ComposeConfig{MemosDir: memosDir}

	backends, err := backend.FromConfig(extractionCfg, loadedSecrets)
	if err != nil {
		return err
	}

	st, err := store.New(benchDir)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	records, err := st.Records(ctx, partition)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no records in %s partition: run ingest first", partition)
	}

	outcome, err := pipeline.Extract(ctx, records, backends, extractionCfg, composeCfg, os.Stdout)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(memosDir, 0o755); err != nil {
		return fmt.Errorf("creating memos directory: %w", err)
	}
	for _, artifact := range outcome.Artifacts {
		if err := st.SaveArtifact(ctx, artifact); err != nil {
			return err
		}
		rendered, err := compose.Render(artifact)
		if err != nil {
			return err
		}
		path := filepath.Join(memosDir, compose.MemoFilename(artifact))
		if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("writing memo %s: %w", path, err)
		}
	}

	// Persist failed pairs so benchmark tallies stay complete.
	for _, failure := range outcome.Failures {
		if err := st.SaveResult(ctx, bench.FailedResult(failure.RecordID, failure.BackendID)); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stdout, "\nExtracted %d memo(s) (%d degraded, %d failed) across %d backend(s)\n",
		len(outcome.Artifacts), outcome.Degraded, len(outcome.Failures), len(backends))

	if len(outcome.Failures) > 0 {
		return fmt.Errorf("%d extraction(s) failed", len(outcome.Failures))
	}
	return nil
}

func extractionConfigFromFlags(cmd *cobra.Command) types.ExtractionConfig {
	backendNames, _ := cmd.Flags().GetStringSlice("backends")
	workers, _ := cmd.Flags().GetInt("workers")
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	callTimeout, _ := cmd.Flags().GetDuration("call-timeout")
	maxOutputTokens, _ := cmd.Flags().GetInt("max-output-tokens")

	return types.ExtractionConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   callTimeout,
			UserAgent: defaultUserAgent,
		},
		Backends:        backendNames,
		Workers:         workers,
		MaxRetries:      maxRetries,
		CallTimeout:     callTimeout,
		MaxOutputTokens: maxOutputTokens,
		OpenAI:          types.BackendConfig{Model: configuredModel("extraction.openai.model", defaultOpenAIModel)},
		Claude:          types.BackendConfig{Model: configuredModel("extraction.claude.model", defaultClaudeModel)},
		Gemini:          types.BackendConfig{Model: configuredModel("extraction.gemini.model", defaultGeminiModel)},
		Groq:            types.BackendConfig{Model: configuredModel("extraction.groq.model", defaultGroqModel)},
	}
}

// configuredModel resolves a provider model from the config file, falling
// back to the built-in default.
func configuredModel(key, fallback string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}

func parsePartition(cmd *cobra.Command) (types.Partition, error) {
	name, _ := cmd.Flags().GetString("partition")
	switch name {
	case "train":
		return types.PartitionTrain, nil
	case "eval":
		return types.PartitionEval, nil
	default:
		return "", fmt.Errorf("unknown partition %q: use train or eval", name)
	}
}
