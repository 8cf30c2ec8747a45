// internal/view/fallback.go
package view

import (
	"regexp"
	"strings"
)

var digitPattern = regexp.MustCompile(`\d+`)

// Fallback pattern-matches the lowercased utterance to a view. It is the
// deliberately crude backstop used when classification fails outright: it
// always succeeds, defaulting to the invoices list, so a backend outage
// degrades the experience instead of blocking it.
func Fallback(utterance string) View {
	command := strings.ToLower(utterance)

	switch {
	case strings.Contains(command, "invoices") && strings.Contains(command, "90"):
		return ViewInvoices
	case strings.Contains(command, "inv-") && digitPattern.MatchString(command):
		return ViewInvoiceDetails
	case strings.Contains(command, "debtors") || strings.Contains(command, "top"):
		return ViewDebtors
	case strings.Contains(command, "create") && strings.Contains(command, "invoice"):
		return ViewWizard
	default:
		return ViewInvoices
	}
}
