// internal/store/debtors.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	stderrors "invoicing-dashboard/internal/common/errors"
	"invoicing-dashboard/internal/common/metrics"
	"invoicing-dashboard/internal/models"
)

// ListTopDebtors ranks clients by outstanding balance across unpaid
// invoices, highest first, truncated to limit rows.
func (s *Store) ListTopDebtors(ctx context.Context, limit int) ([]models.Debtor, error) {
	start := time.Now()
	defer func() {
		metrics.StoreQueryDuration.WithLabelValues("top_debtors").Observe(time.Since(start).Seconds())
	}()

	cacheKey := fmt.Sprintf("debtors:top:%d", limit)
	if cached, ok := s.cacheGet(ctx, cacheKey); ok {
		var debtors []models.Debtor
		if err := json.Unmarshal([]byte(cached), &debtors); err == nil {
			return debtors, nil
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name,
		       COUNT(*) FILTER (WHERE i.status = 'Overdue') AS overdue_invoices,
		       SUM(i.balance_due) AS balance_due,
		       MIN(i.currency) AS currency
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		WHERE i.balance_due > 0
		GROUP BY c.name
		ORDER BY balance_due DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("top_debtors", err)
	}
	defer rows.Close()

	var debtors []models.Debtor
	for rows.Next() {
		var d models.Debtor
		if err := rows.Scan(&d.Client, &d.OverdueInvoices, &d.BalanceDue, &d.Currency); err != nil {
			return nil, stderrors.NewQueryExecutionFailedError("top_debtors", err)
		}
		debtors = append(debtors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("top_debtors", err)
	}

	s.cacheSet(ctx, cacheKey, debtors)

	return debtors, nil
}
