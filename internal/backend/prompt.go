// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// systemPreamble frames every model-backed extraction call.
const systemPreamble = "You are an investment analyst. Using the provided credit agreement, " +
	"produce a concise, structured investment memo."

// memoPromptTmpl is the prompt sent to model backends for one record. It
// demands the full memo structure — executive summary, highlights and risks,
// and the six key-deal-information fields — and forbids fabricated values:
// anything not stated in the agreement must be reported as missing.
// Per prd004-extraction R2.2, R2.3.
var memoPromptTmpl = template.Must(template.New("memo").Parse(`Draft an investment memo from the credit agreement below. The memo has three parts:

1. An executive summary with key info such as date, overview of the company, what the deal is, a brief background on the company, and the purpose of the transaction.
2. Investment highlights & risks: bullets on the key highlights and risks of the transaction from the point of view of an investor.
3. Key deal information: deal size, deal price, interest rate, key covenants, maturity date, and payment frequency.

Use only facts from the attached credit agreement. If you cannot find a data point, report it as missing — do not make up numbers, terms, or facts.

Respond with a single JSON object and no other text:
{
  "fields": {
    "deal_size": {"kind": "amount", "value": "..."},
    "deal_price": {"kind": "amount", "value": "..."},
    "interest_rate": {"kind": "percentage", "value": "..."},
    "key_covenants": {"kind": "freetext", "value": "..."},
    "maturity_date": {"kind": "date", "value": "..."},
    "payment_frequency": {"kind": "freetext", "value": "..."}
  },
  "executive_summary": "...",
  "highlights": ["..."],
  "risks": ["..."]
}

Rules for "fields":
- Every one of the six keys must be present.
- "kind" is one of: amount, percentage, date, freetext, missing.
- A field the agreement does not state gets {"kind": "missing", "value": ""}.
- "value" must quote or closely track the agreement's own wording; dates may be normalized to YYYY-MM-DD.

BEGIN_AGREEMENT
{{.Text}}
END_AGREEMENT
`))

// renderPrompt executes the memo prompt template for one record's text.
func renderPrompt(text string) (string, error) {
	var buf bytes.Buffer
	if err := memoPromptTmpl.Execute(&buf, struct{ Text string }{Text: text}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseExtraction decodes a model's response text into an Extraction. Models
// occasionally wrap the JSON object in a Markdown fence; the fence is
// stripped before decoding.
func parseExtraction(text string) (Extraction, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var ext Extraction
	if err := json.Unmarshal([]byte(text), &ext); err != nil {
		return Extraction{}, fmt.Errorf("parsing extraction response JSON: %w", err)
	}
	return ext, nil
}
