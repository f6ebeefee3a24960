//go:build mage

package main

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// runBinary executes the built CLI with the given arguments.
func runBinary(args ...string) error {
	cmd := exec.Command(filepath.Join(binDir, binName), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Ingest canonicalizes data/corpus/corpus.jsonl and assigns partitions.
// See prd001-ingestion and prd002-split for full requirements.
func Ingest() error {
	mg.Deps(Build)
	return runBinary("ingest",
		"--input", "data/corpus/corpus.jsonl",
		"--eval-list", "data/eval/eval_urls.txt")
}

// Extract runs the configured backends over the eval partition.
// See prd004-extraction and prd005-memo for full requirements.
func Extract() error {
	mg.Deps(Build)
	return runBinary("extract", "--partition", "eval")
}

// Bench scores stored memos and exports the aggregated report.
// See prd006-benchmark for full requirements.
func Bench() error {
	mg.Deps(Build)
	return runBinary("bench", "--out", "report.yaml")
}
