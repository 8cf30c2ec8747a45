// internal/intent/prompt.go
package intent

import (
	"fmt"
	"strings"
)

const promptHeader = `You are an Intent Normalizer for a finance/invoicing UI. Map user text to EXACTLY ONE of the intents below and extract params.
Return STRICT JSON only, no prose.`

const promptRules = `Rules:
- If multiple intents seem possible, pick the most task-ready one.
- Normalize wording (e.g., "last quarter" -> 90 days if unspecified; "three items" -> 3).
- businessId must preserve prefix like "INV-1047".
- If you cannot map confidently, output intent "none" with confidence 0 and empty params.`

const promptOutputShape = `Output JSON shape:
{
"intent": "show_invoices" | "open_invoice" | "top_debtors" | "create_invoice" | "none",
"normalizedUtterance": string,
"confidence": number, // 0..1 model confidence of the mapping
"params": object // matches the selected intent's params
}`

const promptExamples = `Few-shot examples:

User: "show me invoices for 90 days"
JSON: {"intent":"show_invoices","normalizedUtterance":"show invoices for the last 90 days","confidence":0.88,"params":{"periodDays":90}}

User: "open inv-1047. who did we send it to?"
JSON: {"intent":"open_invoice","normalizedUtterance":"open invoice INV-1047","confidence":0.86,"params":{"businessId":"INV-1047"}}

User: "who owes us the most?"
JSON: {"intent":"top_debtors","normalizedUtterance":"top debtors by amount","confidence":0.8,"params":{"limit":10}}

User: "create invoice for Acme, 3 items, net 30"
JSON: {"intent":"create_invoice","normalizedUtterance":"create draft invoice for Acme with 3 items, Net 30 terms","confidence":0.84,"params":{"clientName":"Acme","items":[{"qty":3}],"terms":"Net 30"}}`

// SystemPrompt renders the deterministic instruction document sent ahead of
// every utterance: task description, the catalog's intents, the fixed
// normalization rules, the literal output shape and the worked examples.
// Identical catalog contents always produce identical bytes.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nIntents:\n")
	for _, def := range Catalog() {
		b.WriteString(fmt.Sprintf("- %s: %s | params: %s\n", def.Name, def.Description, renderParamHints(def.Params)))
	}
	b.WriteString("\n")
	b.WriteString(promptRules)
	b.WriteString("\n\n")
	b.WriteString(promptOutputShape)
	b.WriteString("\n\n")
	b.WriteString(promptExamples)
	return b.String()
}

// UserPrompt appends the utterance to the instruction document.
func UserPrompt(utterance string) string {
	return fmt.Sprintf("%s\n\nUser: %s\nJSON:", SystemPrompt(), utterance)
}

// renderParamHints serializes hints as a JSON object in declaration order.
func renderParamHints(params []Param) string {
	var b strings.Builder
	b.WriteString("{")
	for i, p := range params {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("%q:%q", p.Name, p.Hint))
	}
	b.WriteString("}")
	return b.String()
}
