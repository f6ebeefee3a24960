// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package canonical normalizes raw credit-agreement text into canonical
// records with stable content-derived identity.
// Implements: prd001-ingestion (R1, R2);
//
//	docs/ARCHITECTURE § Canonicalization.
package canonical

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// MalformedSourceError marks a source document that cannot be canonicalized:
// empty content or content that is not text. Fatal for that record only;
// sibling records are unaffected (R1.4).
type MalformedSourceError struct {
	SourceURI string
	Reason    string
}

func (e *MalformedSourceError) Error() string {
	return fmt.Sprintf("malformed source %s: %s", e.SourceURI, e.Reason)
}

// Filing boilerplate stripped during cleaning. These carry no facts relevant
// to field extraction (R1.2).
var (
	exhibitHeaderRe   = regexp.MustCompile(`(?i)Exhibit 10\.\d+\s+`)
	executionStampRe  = regexp.MustCompile(`EXECUTION\s+VERSION\s+`)
	bracketedPageRe   = regexp.MustCompile(`\[\d+\]`)
	blankPageNoticeRe = regexp.MustCompile(`(?i)\[Remainder\s+of\s+Page\s+Intentionally\s+Left\s+Blank\]`)
	multiSpaceRe      = regexp.MustCompile(`[ \t]{2,}`)
	multiNewlineRe    = regexp.MustCompile(`\n{3,}`)
)

// sectionMarkerRe splits agreement text at the structural markers legal
// drafters repeat verbatim, which is where SEC exhibit conversions duplicate
// content.
var sectionMarkerRe = regexp.MustCompile(`(Section \d+\.|WHEREAS|NOW,? THEREFORE|IN WITNESS WHEREOF|ANNEX I)`)

// dedupeKeyLen is the prefix length used to detect duplicated sections.
const dedupeKeyLen = 50

// idLen is the hex length of a record ID (truncated SHA-256).
const idLen = 12

// RecordID returns the stable identity for a document's cleaned text: the
// first 12 hex characters of SHA-256(text). A pure function of the text, so
// identical content never creates a duplicate record (R2.2).
func RecordID(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)[:idLen]
}

// Canonicalize normalizes raw document text into a CanonicalRecord. Cleaning
// is lossy over formatting and lossless over facts: boilerplate headers,
// repeated disclaimers, and duplicated sections are removed; sentence-level
// content is preserved. Pure except for timestamping (R1.1-R1.3).
func Canonicalize(sourceURI, rawText string) (types.CanonicalRecord, error) {
	if strings.TrimSpace(rawText) == "" {
		return types.CanonicalRecord{}, &MalformedSourceError{SourceURI: sourceURI, Reason: "empty content"}
	}
	if !isText(rawText) {
		return types.CanonicalRecord{}, &MalformedSourceError{SourceURI: sourceURI, Reason: "content is not text"}
	}

	cleaned := Clean(rawText)
	if cleaned == "" {
		return types.CanonicalRecord{}, &MalformedSourceError{SourceURI: sourceURI, Reason: "no content after cleaning"}
	}

	return types.CanonicalRecord{
		ID:          RecordID(cleaned),
		SourceURI:   sourceURI,
		RawText:     cleaned,
		ExtractedAt: time.Now().UTC(),
	}, nil
}

// Clean normalizes whitespace, strips filing boilerplate, and collapses
// duplicated sections. Deterministic: identical input yields identical
// output, which keeps record IDs stable across runs.
func Clean(text string) string {
	text = normalizeWhitespace(text)
	text = exhibitHeaderRe.ReplaceAllString(text, "")
	text = executionStampRe.ReplaceAllString(text, "")
	text = bracketedPageRe.ReplaceAllString(text, "")
	text = blankPageNoticeRe.ReplaceAllString(text, "")
	text = dedupeSections(text)
	text = multiNewlineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// normalizeWhitespace converts line endings, replaces non-breaking spaces,
// and collapses tab/space runs without touching newline structure.
func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, " ", " ")
	text = multiSpaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// dedupeSections splits the text at structural markers and drops sections
// whose opening matches one already seen. SEC exhibit conversions commonly
// repeat whole recital blocks (R1.2).
func dedupeSections(text string) string {
	indexes := sectionMarkerRe.FindAllStringIndex(text, -1)
	if len(indexes) == 0 {
		return text
	}

	var sections []string
	prev := 0
	for _, idx := range indexes {
		if idx[0] > prev {
			sections = append(sections, text[prev:idx[0]])
		}
		prev = idx[0]
	}
	sections = append(sections, text[prev:])

	seen := make(map[string]bool)
	var unique []string
	for _, sec := range sections {
		trimmed := strings.TrimSpace(sec)
		if trimmed == "" {
			continue
		}
		key := trimmed
		if len(key) > dedupeKeyLen {
			key = key[:dedupeKeyLen]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, trimmed)
	}

	return strings.Join(unique, "\n\n")
}

// isText reports whether content is usable text. Documents containing NUL
// bytes or a high fraction of non-printable runes are treated as binary.
func isText(content string) bool {
	if strings.ContainsRune(content, 0) {
		return false
	}
	total, bad := 0, 0
	for _, r := range content {
		total++
		if r == unicode.ReplacementChar {
			bad++
			continue
		}
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			bad++
		}
	}
	if total == 0 {
		return false
	}
	return float64(bad)/float64(total) < 0.05
}
