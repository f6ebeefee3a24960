// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// NewReport returns an empty report ready for accumulation.
func NewReport() types.Report {
	return types.Report{
		Backends:  make(map[string]*types.BackendReport),
		Agreement: make(map[string]types.AgreementTally),
	}
}

// Aggregate reduces results and artifacts into a report. Every member is an
// additive count, so aggregation is order-independent and partial runs merge
// losslessly: Merge(Aggregate(A), Aggregate(B)) equals Aggregate(A++B) for
// any split that keeps a record's artifacts together (R3.4).
//
// Callers must aggregate only after every in-flight extraction for the eval
// partition has completed or definitively failed; the pipeline's join point
// guarantees that.
func Aggregate(results []types.BenchmarkResult, artifacts []types.MemoArtifact, cfg types.BenchmarkConfig) types.Report {
	report := NewReport()

	for _, res := range results {
		br := report.Backends[res.BackendID]
		if br == nil {
			br = &types.BackendReport{Fields: make(map[string]types.FieldTally)}
			report.Backends[res.BackendID] = br
		}

		switch res.Status {
		case types.StatusScored:
			br.Scored++
		case types.StatusDegraded:
			br.Degraded++
		case types.StatusFailed:
			br.Failed++
		}

		if res.Status != types.StatusFailed {
			br.Calls++
			br.TotalTokens += res.Cost.Total()
			br.TotalLatency += res.Latency
		}

		for field, outcome := range res.FieldScores {
			tally := br.Fields[field]
			tally.Evaluated++
			switch outcome {
			case types.OutcomeMatch:
				tally.Match++
			case types.OutcomePartial:
				tally.Partial++
			case types.OutcomeMiss:
				tally.Miss++
			}
			br.Fields[field] = tally
		}
	}

	accumulateAgreement(&report, artifacts, cfg)
	return report
}

// accumulateAgreement compares every backend pair per record per field.
// Independently run backends converging on the same FieldValue is the
// reliability signal when no ground truth exists (R2.1-R2.3). Degraded
// artifacts carry forced-missing fields that say nothing about extraction,
// so they form no pairs; backend-asserted Missing still counts.
func accumulateAgreement(report *types.Report, artifacts []types.MemoArtifact, cfg types.BenchmarkConfig) {
	byRecord := make(map[string][]types.MemoArtifact)
	for _, a := range artifacts {
		if a.Degraded {
			continue
		}
		byRecord[a.RecordID] = append(byRecord[a.RecordID], a)
	}

	for _, group := range byRecord {
		// Deterministic pair order regardless of arrival order.
		sort.Slice(group, func(i, j int) bool { return group[i].BackendID < group[j].BackendID })

		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				for _, name := range types.FieldNames() {
					x, _ := group[i].Schema.Field(name)
					y, _ := group[j].Schema.Field(name)

					tally := report.Agreement[name]
					tally.Pairs++
					if !Equivalent(x, y, cfg.NumericTolerance) {
						tally.Disagreements++
					}
					report.Agreement[name] = tally
				}
			}
		}
	}
}

// Merge combines two reports by summing every count. Commutative and
// associative, so partial benchmark runs can be merged in any order (R3.4).
func Merge(a, b types.Report) types.Report {
	out := NewReport()

	for _, src := range []types.Report{a, b} {
		for id, br := range src.Backends {
			dst := out.Backends[id]
			if dst == nil {
				dst = &types.BackendReport{Fields: make(map[string]types.FieldTally)}
				out.Backends[id] = dst
			}
			dst.Scored += br.Scored
			dst.Degraded += br.Degraded
			dst.Failed += br.Failed
			dst.Calls += br.Calls
			dst.TotalTokens += br.TotalTokens
			dst.TotalLatency += br.TotalLatency
			for field, tally := range br.Fields {
				dst.Fields[field] = dst.Fields[field].Add(tally)
			}
		}
		for field, tally := range src.Agreement {
			out.Agreement[field] = out.Agreement[field].Add(tally)
		}
	}

	return out
}

// Export writes the report as yaml or json for external rendering (R5.2).
func Export(w io.Writer, report types.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml", "":
		data, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown report format %q (use yaml or json)", format)
	}
}

// Summarize prints a human-readable report table: per-backend accuracy and
// cost, then per-field disagreement.
func Summarize(w io.Writer, report types.Report) {
	backendIDs := make([]string, 0, len(report.Backends))
	for id := range report.Backends {
		backendIDs = append(backendIDs, id)
	}
	sort.Strings(backendIDs)

	for _, id := range backendIDs {
		br := report.Backends[id]
		fmt.Fprintf(w, "%s: scored %d, degraded %d, failed %d, mean latency %s, mean tokens %.0f\n",
			id, br.Scored, br.Degraded, br.Failed,
			br.MeanLatency().Round(time.Millisecond), br.MeanTokens())

		for _, field := range types.FieldNames() {
			tally, ok := br.Fields[field]
			if !ok || tally.Evaluated == 0 {
				continue
			}
			fmt.Fprintf(w, "  %-18s accuracy %.2f (%d/%d match, %d partial, %d miss)\n",
				field, tally.Accuracy(), tally.Match, tally.Evaluated, tally.Partial, tally.Miss)
		}
	}

	if len(report.Agreement) > 0 {
		fmt.Fprintln(w, "cross-backend disagreement:")
		for _, field := range types.FieldNames() {
			tally, ok := report.Agreement[field]
			if !ok || tally.Pairs == 0 {
				continue
			}
			fmt.Fprintf(w, "  %-18s %.2f (%d/%d pairs)\n", field, tally.Rate(), tally.Disagreements, tally.Pairs)
		}
	}
}
