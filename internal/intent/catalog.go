// internal/intent/catalog.go
package intent

// Name is the closed enum of supported intents.
type Name string

const (
	ShowInvoices  Name = "show_invoices"
	OpenInvoice   Name = "open_invoice"
	TopDebtors    Name = "top_debtors"
	CreateInvoice Name = "create_invoice"

	// None is the sentinel for an unmapped or rejected utterance.
	None Name = "none"
)

// Param is a named parameter with a human-readable type hint. Hints are
// prompt-authoring material; runtime enforcement happens against Schema.
type Param struct {
	Name string
	Hint string
}

// Definition describes one catalog entry. Params keeps declaration order
// so the rendered instruction prompt stays byte-for-byte deterministic.
type Definition struct {
	Name        Name
	Description string
	Params      []Param
	// Schema is the JSON schema the classifier's raw params are checked
	// against before any value reaches the dispatcher.
	Schema string
}

var catalog = []Definition{
	{
		Name:        ShowInvoices,
		Description: "List invoices for a recent period.",
		Params: []Param{
			{Name: "periodDays", Hint: "number (e.g., 30|90|180)"},
		},
		Schema: `{
			"type": "object",
			"properties": {
				"periodDays": {"type": ["number", "string"]}
			},
			"additionalProperties": true
		}`,
	},
	{
		Name:        OpenInvoice,
		Description: "Open invoice details by business id.",
		Params: []Param{
			{Name: "businessId", Hint: "string like INV-#### (case-insensitive)"},
		},
		Schema: `{
			"type": "object",
			"properties": {
				"businessId": {"type": "string"}
			},
			"required": ["businessId"],
			"additionalProperties": true
		}`,
	},
	{
		Name:        TopDebtors,
		Description: "Rank customers by total balance due.",
		Params: []Param{
			{Name: "limit", Hint: "optional number, default 10"},
		},
		Schema: `{
			"type": "object",
			"properties": {
				"limit": {"type": ["number", "string"]}
			},
			"additionalProperties": true
		}`,
	},
	{
		Name:        CreateInvoice,
		Description: "Create a draft invoice.",
		Params: []Param{
			{Name: "clientName", Hint: "string"},
			{Name: "items", Hint: "array of { description?: string, productName?: string, qty: number, unitPrice?: number }"},
			{Name: "terms", Hint: "string enum: Net 30|Net 15|Due on receipt"},
		},
		Schema: `{
			"type": "object",
			"properties": {
				"clientName": {"type": "string"},
				"items": {"type": "array"},
				"terms": {"type": "string"}
			},
			"additionalProperties": true
		}`,
	},
}

// Catalog returns the ordered sequence of intent definitions. The slice is
// shared; callers must not mutate it.
func Catalog() []Definition {
	return catalog
}

// Lookup returns the definition for a name, or false for unknown names
// (including the sentinel None, which carries no definition).
func Lookup(name Name) (Definition, bool) {
	for _, def := range catalog {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// IsValid reports whether name is a real catalog intent.
func IsValid(name Name) bool {
	_, ok := Lookup(name)
	return ok
}
