// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"regexp"
	"strings"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// PatternBackend is the rule-based extraction engine: regular expressions
// over the agreement text, no model call. It serves as an offline baseline
// and keeps the harness testable without API keys. Every value it emits is a
// literal substring of the source, so it can never fabricate
// (prd004-extraction R2.3).
type PatternBackend struct{}

// ID implements Backend.
func (p *PatternBackend) ID() string { return "pattern" }

var (
	dealSizeRe  = regexp.MustCompile(`(?i)(?:aggregate principal amount|commitments?|facility|term loans?) (?:of|in an amount (?:of|up to)|equal to)[^$]{0,40}(\$[\d,]+(?:\.\d+)?(?:\s*(?:million|billion))?)`)
	anyDollarRe = regexp.MustCompile(`\$[\d,]{7,}(?:\.\d+)?`)

	interestRateRe = regexp.MustCompile(`(?i)(?:interest rate of|rate per annum (?:equal to|of)|applicable margin of|plus)\s*([\d.]+%)`)
	anyPercentRe   = regexp.MustCompile(`[\d.]+%\s*per annum`)

	maturityRe = regexp.MustCompile(`(?i)(?:maturity date|matures? on|maturing on)(?:\s+(?:is|means|shall be|will be))?[^A-Za-z0-9]{0,10}((?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}|\d{4}-\d{2}-\d{2})`)

	covenantRe = regexp.MustCompile(`(?i)((?:Total |Consolidated |First Lien |Net )?Leverage Ratio[^.;]{0,120}|(?:Interest|Fixed Charge) Coverage Ratio[^.;]{0,120})`)

	paymentFreqRe = regexp.MustCompile(`(?i)payable\s+(?:in arrears\s+)?(quarterly|monthly|semi-?annually|annually)`)

	dealPriceRe = regexp.MustCompile(`(?i)(?:issue price|purchase price|original issue discount) (?:of|equal to)\s*([\d.]+%|\$[\d,]+(?:\.\d+)?)`)
)

// Extract scans the agreement text with the field patterns. Fields without a
// confident match are reported missing, never guessed.
func (p *PatternBackend) Extract(_ context.Context, rec types.CanonicalRecord) (Extraction, error) {
	text := rec.RawText

	fields := map[string]RawField{
		types.FieldDealSize:         p.dealSize(text),
		types.FieldDealPrice:        p.dealPrice(text),
		types.FieldInterestRate:     p.interestRate(text),
		types.FieldKeyCovenants:     p.keyCovenants(text),
		types.FieldMaturityDate:     p.maturityDate(text),
		types.FieldPaymentFrequency: p.paymentFrequency(text),
	}

	return Extraction{
		Fields:           fields,
		ExecutiveSummary: p.summary(rec),
		Highlights:       []string{"Rule-based extraction; see key deal information for stated terms."},
		Risks:            []string{"Pattern matching covers stated terms only; unstated terms are reported as missing."},
	}, nil
}

func missingRaw() RawField {
	return RawField{Kind: string(types.KindMissing)}
}

func (p *PatternBackend) dealSize(text string) RawField {
	if m := dealSizeRe.FindStringSubmatch(text); m != nil {
		return RawField{Kind: string(types.KindAmount), Value: m[1]}
	}
	// Fall back to the largest bare dollar figure stated in the text.
	if matches := anyDollarRe.FindAllString(text, -1); len(matches) > 0 {
		best := matches[0]
		bestVal, _ := types.ParseAmount(best)
		for _, m := range matches[1:] {
			if v, ok := types.ParseAmount(m); ok && v > bestVal {
				best, bestVal = m, v
			}
		}
		return RawField{Kind: string(types.KindAmount), Value: best}
	}
	return missingRaw()
}

func (p *PatternBackend) dealPrice(text string) RawField {
	if m := dealPriceRe.FindStringSubmatch(text); m != nil {
		kind := types.KindAmount
		if strings.HasSuffix(m[1], "%") {
			kind = types.KindPercentage
		}
		return RawField{Kind: string(kind), Value: m[1]}
	}
	return missingRaw()
}

func (p *PatternBackend) interestRate(text string) RawField {
	if m := interestRateRe.FindStringSubmatch(text); m != nil {
		return RawField{Kind: string(types.KindPercentage), Value: m[1]}
	}
	if m := anyPercentRe.FindString(text); m != "" {
		return RawField{Kind: string(types.KindPercentage), Value: m}
	}
	return missingRaw()
}

func (p *PatternBackend) keyCovenants(text string) RawField {
	matches := covenantRe.FindAllString(text, 3)
	if len(matches) == 0 {
		return missingRaw()
	}
	seen := make(map[string]bool)
	var unique []string
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if !seen[m] {
			seen[m] = true
			unique = append(unique, m)
		}
	}
	return RawField{Kind: string(types.KindFreeText), Value: strings.Join(unique, "; ")}
}

func (p *PatternBackend) maturityDate(text string) RawField {
	if m := maturityRe.FindStringSubmatch(text); m != nil {
		return RawField{Kind: string(types.KindDate), Value: strings.TrimSpace(m[1])}
	}
	return missingRaw()
}

func (p *PatternBackend) paymentFrequency(text string) RawField {
	if m := paymentFreqRe.FindStringSubmatch(text); m != nil {
		return RawField{Kind: string(types.KindFreeText), Value: strings.ToLower(m[1])}
	}
	return missingRaw()
}

// summary produces a minimal factual overview line; the pattern engine does
// not attempt narrative prose.
func (p *PatternBackend) summary(rec types.CanonicalRecord) string {
	return "Automated term extraction for " + rec.SourceURI + "."
}
