// internal/models/invoice.go
package models

// InvoiceStatus enumerates the lifecycle states of an invoice.
type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "Draft"
	StatusSent          InvoiceStatus = "Sent"
	StatusPaid          InvoiceStatus = "Paid"
	StatusOverdue       InvoiceStatus = "Overdue"
	StatusPartiallyPaid InvoiceStatus = "PartiallyPaid"
)

// Invoice is the list-view projection of an invoice record.
type Invoice struct {
	ID         string        `json:"id"`
	BusinessID string        `json:"businessId"`
	Client     string        `json:"client"`
	IssueDate  string        `json:"issueDate"` // YYYY-MM-DD
	DueDate    string        `json:"dueDate"`   // YYYY-MM-DD
	Status     InvoiceStatus `json:"status"`
	Currency   string        `json:"currency"`
	Total      float64       `json:"total"`
	BalanceDue float64       `json:"balanceDue"`
}

// InvoiceDetail is the full invoice with line items and payment history.
type InvoiceDetail struct {
	Invoice
	Contact   string     `json:"contact"`
	LineItems []LineItem `json:"lineItems"`
	Payments  []Payment  `json:"payments"`
}

type LineItem struct {
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

type Payment struct {
	Date     string  `json:"date"`
	Method   string  `json:"method"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Debtor is one row of the customers-by-balance-due ranking.
type Debtor struct {
	Client          string  `json:"client"`
	OverdueInvoices int     `json:"overdueInvoices"`
	BalanceDue      float64 `json:"balanceDue"`
	Currency        string  `json:"currency"`
}

// CreateInvoiceInput carries the wizard's draft invoice fields.
type CreateInvoiceInput struct {
	ClientID    string  `json:"clientId"`
	Terms       string  `json:"terms"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// CreateInvoiceResult identifies the freshly inserted draft.
type CreateInvoiceResult struct {
	ID         string `json:"id"`
	BusinessID string `json:"businessId"`
}
