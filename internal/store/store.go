// internal/store/store.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	stderrors "invoicing-dashboard/internal/common/errors"
	"invoicing-dashboard/internal/common/logger"
	"invoicing-dashboard/internal/common/metrics"
	"invoicing-dashboard/internal/models"
)

// Store is the data-access collaborator behind the dashboard views. Reads
// for invoice detail and debtor rankings go through a Redis read-through
// cache; a Redis outage silently degrades to the database.
type Store struct {
	db       *sql.DB
	cache    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

// New creates a store. cache may be nil to run without caching.
func New(db *sql.DB, cache *redis.Client, cacheTTL time.Duration, log logger.Logger) *Store {
	return &Store{
		db:       db,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger: log.WithFields(map[string]interface{}{
			"component": "store",
		}),
	}
}

// ListInvoices returns invoices issued within the last periodDays days,
// newest first.
func (s *Store) ListInvoices(ctx context.Context, periodDays int) ([]models.Invoice, error) {
	start := time.Now()
	defer func() {
		metrics.StoreQueryDuration.WithLabelValues("list_invoices").Observe(time.Since(start).Seconds())
	}()

	cutoff := time.Now().AddDate(0, 0, -periodDays).Format("2006-01-02")

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.business_id, c.name, i.issue_date, i.due_date,
		       i.status, i.currency, i.total, i.balance_due
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		WHERE i.issue_date >= $1
		ORDER BY i.issue_date DESC`, cutoff)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("list_invoices", err)
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(
			&inv.ID, &inv.BusinessID, &inv.Client, &inv.IssueDate, &inv.DueDate,
			&inv.Status, &inv.Currency, &inv.Total, &inv.BalanceDue,
		); err != nil {
			return nil, stderrors.NewQueryExecutionFailedError("list_invoices", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("list_invoices", err)
	}

	return invoices, nil
}

// GetInvoice returns the full detail for one invoice by business id.
func (s *Store) GetInvoice(ctx context.Context, businessID string) (*models.InvoiceDetail, error) {
	start := time.Now()
	defer func() {
		metrics.StoreQueryDuration.WithLabelValues("get_invoice").Observe(time.Since(start).Seconds())
	}()

	cacheKey := "invoice:" + businessID
	if cached, ok := s.cacheGet(ctx, cacheKey); ok {
		var detail models.InvoiceDetail
		if err := json.Unmarshal([]byte(cached), &detail); err == nil {
			return &detail, nil
		}
	}

	var detail models.InvoiceDetail
	err := s.db.QueryRowContext(ctx, `
		SELECT i.id, i.business_id, c.name, c.email, i.issue_date, i.due_date,
		       i.status, i.currency, i.total, i.balance_due
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		WHERE UPPER(i.business_id) = UPPER($1)`, businessID).Scan(
		&detail.ID, &detail.BusinessID, &detail.Client, &detail.Contact,
		&detail.IssueDate, &detail.DueDate, &detail.Status, &detail.Currency,
		&detail.Total, &detail.BalanceDue,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, stderrors.NewInvoiceNotFoundError(businessID)
	}
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("get_invoice", err)
	}

	if detail.LineItems, err = s.lineItems(ctx, detail.ID); err != nil {
		return nil, err
	}
	if detail.Payments, err = s.payments(ctx, detail.ID); err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, &detail)

	return &detail, nil
}

func (s *Store) lineItems(ctx context.Context, invoiceID string) ([]models.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT description, qty, unit_price, total
		FROM line_items
		WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("line_items", err)
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var it models.LineItem
		if err := rows.Scan(&it.Description, &it.Qty, &it.UnitPrice, &it.Total); err != nil {
			return nil, stderrors.NewQueryExecutionFailedError("line_items", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) payments(ctx context.Context, invoiceID string) ([]models.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT paid_at, method, amount, currency
		FROM payments
		WHERE invoice_id = $1
		ORDER BY paid_at`, invoiceID)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("payments", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.Date, &p.Method, &p.Amount, &p.Currency); err != nil {
			return nil, stderrors.NewQueryExecutionFailedError("payments", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// CreateInvoice inserts a draft invoice with a single line item. Due date
// derives from the payment terms: Net 15/30/60, defaulting to 30 days.
func (s *Store) CreateInvoice(ctx context.Context, input models.CreateInvoiceInput) (*models.CreateInvoiceResult, error) {
	start := time.Now()
	defer func() {
		metrics.StoreQueryDuration.WithLabelValues("create_invoice").Observe(time.Since(start).Seconds())
	}()

	id := uuid.NewString()
	businessID := fmt.Sprintf("INV-%d", time.Now().UnixMilli())
	issueDate := time.Now().Format("2006-01-02")
	dueDate := time.Now().AddDate(0, 0, termsDays(input.Terms)).Format("2006-01-02")
	total := input.Quantity * input.UnitPrice

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, stderrors.NewInvoiceCreateFailedError(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO invoices (id, business_id, client_id, status, issue_date, due_date, currency, total, balance_due)
		VALUES ($1, $2, $3, 'Draft', $4, $5, 'USD', $6, $6)`,
		id, businessID, input.ClientID, issueDate, dueDate, total,
	); err != nil {
		return nil, stderrors.NewInvoiceCreateFailedError(err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO line_items (invoice_id, description, qty, unit_price, total)
		VALUES ($1, $2, $3, $4, $5)`,
		id, input.Description, input.Quantity, input.UnitPrice, total,
	); err != nil {
		return nil, stderrors.NewInvoiceCreateFailedError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, stderrors.NewInvoiceCreateFailedError(err)
	}

	s.logger.Info("draft invoice created", map[string]interface{}{
		"businessId": businessID,
	})

	return &models.CreateInvoiceResult{ID: id, BusinessID: businessID}, nil
}

func termsDays(terms string) int {
	switch terms {
	case "Net 15":
		return 15
	case "Net 60":
		return 60
	case "Due on receipt":
		return 0
	default:
		return 30
	}
}

func (s *Store) cacheGet(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	val, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WithError(err).Debug("cache read failed", map[string]interface{}{"key": key})
		}
		return "", false
	}
	return val, true
}

func (s *Store) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, encoded, s.cacheTTL).Err(); err != nil {
		s.logger.WithError(err).Debug("cache write failed", map[string]interface{}{"key": key})
	}
}
