package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "memo-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// IngestConfig holds settings for corpus ingestion.
// Per prd001-ingestion R3.1-R3.3.
type IngestConfig struct {
	// DataDir is the base directory for corpus data (contains corpus/, eval/).
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// SplitConfig holds settings for train/eval partitioning.
// Per prd002-split R2.1-R2.3.
type SplitConfig struct {
	// EvalListPath is the externally maintained list of eval source
	// identities, one per line. The whole list is passed to the splitter on
	// every run; it is never regenerated here.
	EvalListPath string `json:"eval_list_path" yaml:"eval_list_path"`

	// MaxAmbiguousRate is the fraction of ambiguous membership assignments
	// tolerated before the run halts (default 0.05).
	MaxAmbiguousRate float64 `json:"max_ambiguous_rate" yaml:"max_ambiguous_rate"`
}

// BackendConfig holds per-provider model settings.
type BackendConfig struct {
	// Model is the provider's model identifier
	// (e.g. "gpt-4-turbo", "claude-sonnet-4-20250514", "gemini-2.5-pro").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the provider. Usually loaded from
	// .secrets/ rather than config.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// ExtractionConfig holds settings for the extraction stage.
// Per prd004-extraction R5.1-R5.6.
type ExtractionConfig struct {
	HTTPConfig `yaml:",inline"`

	// Backends lists the backend identities to run (openai, claude, gemini,
	// groq, pattern).
	Backends []string `json:"backends" yaml:"backends"`

	// Workers bounds the number of concurrent extraction calls (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// MaxRetries is the retry budget per extraction call (default 2).
	// Exhaustion degrades the single record; siblings are unaffected.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// CallTimeout bounds one extraction call, not the batch (default 120s).
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`

	// MaxOutputTokens caps generated tokens per call (default 2000).
	MaxOutputTokens int `json:"max_output_tokens" yaml:"max_output_tokens"`

	// Per-provider model settings.
	OpenAI BackendConfig `json:"openai" yaml:"openai"`
	Claude BackendConfig `json:"claude" yaml:"claude"`
	Gemini BackendConfig `json:"gemini" yaml:"gemini"`
	Groq   BackendConfig `json:"groq" yaml:"groq"`
}

// ComposeConfig holds settings for memo composition.
// Per prd005-memo R3.1-R3.2.
type ComposeConfig struct {
	// MemosDir is the directory for rendered memo Markdown files.
	MemosDir string `json:"memos_dir" yaml:"memos_dir"`

	// MinHighlights is the minimum highlight bullets a non-degraded memo
	// must carry (default 1).
	MinHighlights int `json:"min_highlights" yaml:"min_highlights"`

	// MinRisks is the minimum risk bullets a non-degraded memo must carry
	// (default 1).
	MinRisks int `json:"min_risks" yaml:"min_risks"`
}

// BenchmarkConfig holds settings for scoring and reporting.
// Per prd006-benchmark R5.1-R5.3.
type BenchmarkConfig struct {
	// BenchDir is the base directory for benchmark output (contains index/,
	// reports/).
	BenchDir string `json:"bench_dir" yaml:"bench_dir"`

	// ReferencesPath is an optional YAML file of reference MemoSchema
	// instances keyed by record ID. Absent references restrict the evaluator
	// to agreement-only metrics.
	ReferencesPath string `json:"references_path,omitempty" yaml:"references_path,omitempty"`

	// NumericTolerance is the relative tolerance for amount and percentage
	// matching (default 0.005).
	NumericTolerance float64 `json:"numeric_tolerance" yaml:"numeric_tolerance"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Ingest     IngestConfig     `json:"ingest" yaml:"ingest"`
	Split      SplitConfig      `json:"split" yaml:"split"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Compose    ComposeConfig    `json:"compose" yaml:"compose"`
	Benchmark  BenchmarkConfig  `json:"benchmark" yaml:"benchmark"`
}
