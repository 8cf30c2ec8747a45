// internal/view/router.go
package view

import (
	"invoicing-dashboard/internal/intent"
)

// View names one of the renderable dashboard surfaces.
type View string

const (
	ViewNone           View = "none"
	ViewInvoices       View = "invoices"
	ViewInvoiceDetails View = "invoiceDetails"
	ViewDebtors        View = "debtors"
	ViewWizard         View = "wizard"
)

// RouteFor maps a real intent to its view. Total over the four catalog
// intents; "none" is filtered by the dispatcher and never arrives here.
// Unknown names land on the invoices default so the map can never strand
// a caller without a view.
func RouteFor(name intent.Name) View {
	switch name {
	case intent.ShowInvoices:
		return ViewInvoices
	case intent.OpenInvoice:
		return ViewInvoiceDetails
	case intent.TopDebtors:
		return ViewDebtors
	case intent.CreateInvoice:
		return ViewWizard
	default:
		return ViewInvoices
	}
}
