// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compose

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// fieldLabels are the display names for the key-deal-information table, in
// canonical order.
var fieldLabels = map[string]string{
	types.FieldDealSize:         "Deal Size",
	types.FieldDealPrice:        "Deal Price",
	types.FieldInterestRate:     "Interest Rate",
	types.FieldKeyCovenants:     "Key Covenants",
	types.FieldMaturityDate:     "Maturity Date",
	types.FieldPaymentFrequency: "Payment Frequency",
}

// memoTmpl fixes the memo section order: executive summary, investment
// highlights & risks, key deal information. Downstream renderers rely on
// this positional structure verbatim (R2.2).
var memoTmpl = template.Must(template.New("memo").Parse(`# Investment Memo

Record: {{.RecordID}} | Backend: {{.BackendID}} | Generated: {{.Generated}}{{if .Degraded}} | DEGRADED{{end}}

## Executive Summary

{{.ExecutiveSummary}}

## Investment Highlights & Risks

### Highlights
{{range .Highlights}}
- {{.}}{{end}}

### Risks
{{range .Risks}}
- {{.}}{{end}}

## Key Deal Information

| Term | Value |
|------|-------|{{range .Rows}}
| {{.Label}} | {{.Value}} |{{end}}
`))

// tableRow is one key-deal-information line.
type tableRow struct {
	Label string
	Value string
}

// Render produces the memo artifact as Markdown in the fixed section order.
// Missing fields render as "N/A"; nothing else is altered.
func Render(artifact types.MemoArtifact) (string, error) {
	var rows []tableRow
	for _, name := range types.FieldNames() {
		fv, _ := artifact.Schema.Field(name)
		value := fv.Value
		if fv.IsMissing() {
			value = "N/A"
		}
		rows = append(rows, tableRow{Label: fieldLabels[name], Value: value})
	}

	summary := artifact.Narrative.ExecutiveSummary
	if summary == "" {
		summary = "N/A"
	}

	data := struct {
		RecordID         string
		BackendID        string
		Generated        string
		Degraded         bool
		ExecutiveSummary string
		Highlights       []string
		Risks            []string
		Rows             []tableRow
	}{
		RecordID:         artifact.RecordID,
		BackendID:        artifact.BackendID,
		Generated:        artifact.GeneratedAt.Format("2006-01-02"),
		Degraded:         artifact.Degraded,
		ExecutiveSummary: summary,
		Highlights:       artifact.Narrative.Highlights,
		Risks:            artifact.Narrative.Risks,
		Rows:             rows,
	}

	var buf bytes.Buffer
	if err := memoTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering memo: %w", err)
	}
	return buf.String(), nil
}

// MemoFilename is the on-disk name for one rendered memo, following the
// record_<id>_<backend>_memo.md convention.
func MemoFilename(artifact types.MemoArtifact) string {
	return fmt.Sprintf("record_%s_%s_memo.md", artifact.RecordID, artifact.BackendID)
}
