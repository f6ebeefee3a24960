// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package split deterministically partitions canonical records into train and
// eval sets from an externally supplied membership list.
// Implements: prd002-split (R1, R2);
//
//	docs/ARCHITECTURE § Partitioning.
package split

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// AmbiguousMembershipError marks a record whose identity signals disagree:
// its source URL appears in the membership list pinned to a different content
// hash. The record's eval status cannot be decided deterministically, so it
// is excluded from eval and counted (R2.3).
type AmbiguousMembershipError struct {
	RecordID  string
	SourceURI string
	Reason    string
}

func (e *AmbiguousMembershipError) Error() string {
	return fmt.Sprintf("ambiguous membership for %s (%s): %s", e.RecordID, e.SourceURI, e.Reason)
}

// recordIDPattern matches a bare content-hash identity (truncated SHA-256).
var recordIDPattern = regexp.MustCompile(`^[0-9a-f]{12}$`)

// Membership is the locked eval-partition identity set. Entries identify
// documents by source URI, by content hash, or by both; the list is
// maintained externally and passed in whole on every run — never ambient
// state (R1.3).
type Membership struct {
	// uris maps source URI to its pinned record ID, or "" when the list
	// carries the URI alone.
	uris map[string]string
	ids  map[string]bool
}

// NewMembership builds a Membership from ordered identity lines. Each line
// is one of: a source URI, a bare record ID, or "URI ID" pinning both
// signals. Duplicates collapse; a later pin for the same URI must agree with
// the earlier one.
func NewMembership(lines []string) (*Membership, error) {
	m := &Membership{
		uris: make(map[string]string),
		ids:  make(map[string]bool),
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch {
		case len(fields) == 1 && recordIDPattern.MatchString(fields[0]):
			m.ids[fields[0]] = true
		case len(fields) == 1:
			if _, exists := m.uris[fields[0]]; !exists {
				m.uris[fields[0]] = ""
			}
		case len(fields) == 2 && recordIDPattern.MatchString(fields[1]):
			if prev, exists := m.uris[fields[0]]; exists && prev != "" && prev != fields[1] {
				return nil, fmt.Errorf("membership list pins %s to both %s and %s", fields[0], prev, fields[1])
			}
			m.uris[fields[0]] = fields[1]
			m.ids[fields[1]] = true
		default:
			return nil, fmt.Errorf("unrecognized membership line: %q", line)
		}
	}

	return m, nil
}

// LoadMembership reads a membership list from r, one identity per line.
// Comment lines (#) and blank lines are ignored.
func LoadMembership(r io.Reader) (*Membership, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading membership list: %w", err)
	}
	return NewMembership(lines)
}

// Len returns the number of distinct identities in the membership set.
func (m *Membership) Len() int {
	n := len(m.ids)
	for _, pinned := range m.uris {
		if pinned == "" {
			n++
		}
	}
	return n
}

// Assign decides a record's partition: eval iff the record's identity is
// present in the membership set, train otherwise. Purely a set lookup — no
// randomization — so adding new documents never perturbs the existing eval
// split (R1.1, R1.2).
//
// When the record's URI is pinned to a different content hash than the
// record carries, the two identity signals disagree and Assign fails with
// AmbiguousMembershipError.
func (m *Membership) Assign(rec types.CanonicalRecord) (types.SplitAssignment, error) {
	pinned, uriListed := m.uris[rec.SourceURI]
	idListed := m.ids[rec.ID]

	if uriListed && pinned != "" && pinned != rec.ID {
		return types.SplitAssignment{}, &AmbiguousMembershipError{
			RecordID:  rec.ID,
			SourceURI: rec.SourceURI,
			Reason:    fmt.Sprintf("list pins content hash %s, record has %s", pinned, rec.ID),
		}
	}

	partition := types.PartitionTrain
	if uriListed || idListed {
		partition = types.PartitionEval
	}

	return types.SplitAssignment{RecordID: rec.ID, Partition: partition}, nil
}

// SplitSummary holds counts from a partitioning run (R2.2).
type SplitSummary struct {
	Train     int
	Eval      int
	Ambiguous int
}

// Total returns the number of records considered.
func (s SplitSummary) Total() int {
	return s.Train + s.Eval + s.Ambiguous
}

// AssignAll partitions every record. Ambiguous records receive no assignment
// and are counted; the run fails only when the ambiguous rate exceeds
// maxAmbiguousRate (R2.1, R2.3). Output depends only on the membership set
// and each record individually, so it is identical across runs and insertion
// orders.
func AssignAll(records []types.CanonicalRecord, m *Membership, maxAmbiguousRate float64, w io.Writer) ([]types.SplitAssignment, SplitSummary, error) {
	var (
		assignments []types.SplitAssignment
		summary     SplitSummary
	)

	for _, rec := range records {
		assignment, err := m.Assign(rec)
		if err != nil {
			fmt.Fprintf(w, "ambiguous %s: %v\n", rec.ID, err)
			summary.Ambiguous++
			continue
		}
		if assignment.Partition == types.PartitionEval {
			summary.Eval++
		} else {
			summary.Train++
		}
		assignments = append(assignments, assignment)
	}

	if summary.Total() > 0 {
		rate := float64(summary.Ambiguous) / float64(summary.Total())
		if rate > maxAmbiguousRate {
			return assignments, summary, fmt.Errorf(
				"ambiguous membership rate %.2f exceeds threshold %.2f (%d of %d records)",
				rate, maxAmbiguousRate, summary.Ambiguous, summary.Total())
		}
	}

	return assignments, summary, nil
}
