// internal/intent/resolver/resolved.go
package resolver

import (
	"invoicing-dashboard/internal/intent"
)

// Resolved is the validated, normalized output of the pipeline. It is the
// only classification shape the dispatcher ever sees.
type Resolved struct {
	Intent              intent.Name `json:"intent"`
	NormalizedUtterance string      `json:"normalizedUtterance"`
	Confidence          float64     `json:"confidence"`
	Params              Params      `json:"params"`
}

// Params is a tagged variant keyed by intent name. Each real intent has its
// own struct; partially-typed classifier data never crosses this boundary.
type Params interface {
	isParams()
}

// NoneParams marshals to an empty object.
type NoneParams struct{}

type ShowInvoicesParams struct {
	PeriodDays float64 `json:"periodDays,omitempty"`
}

type OpenInvoiceParams struct {
	BusinessID string `json:"businessId"`
}

type TopDebtorsParams struct {
	Limit int `json:"limit"`
}

type CreateInvoiceParams struct {
	ClientName string      `json:"clientName,omitempty"`
	Items      []ItemDraft `json:"items,omitempty"`
	Terms      string      `json:"terms,omitempty"`
}

type ItemDraft struct {
	Description string  `json:"description,omitempty"`
	ProductName string  `json:"productName,omitempty"`
	Qty         float64 `json:"qty,omitempty"`
	UnitPrice   float64 `json:"unitPrice,omitempty"`
}

func (NoneParams) isParams()          {}
func (ShowInvoicesParams) isParams()  {}
func (OpenInvoiceParams) isParams()   {}
func (TopDebtorsParams) isParams()    {}
func (CreateInvoiceParams) isParams() {}
