// internal/server/server_test.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "invoicing-dashboard/internal/common/errors"
	"invoicing-dashboard/internal/common/logger"
	"invoicing-dashboard/internal/dispatch"
	"invoicing-dashboard/internal/intent"
	"invoicing-dashboard/internal/intent/classifier"
	"invoicing-dashboard/internal/intent/resolver"
	"invoicing-dashboard/internal/models"
)

// ==========================
// Test Helpers
// ==========================

type stubResolver struct {
	resolved *resolver.Resolved
	err      error
}

func (s *stubResolver) Resolve(ctx context.Context, utterance string) (*resolver.Resolved, error) {
	return s.resolved, s.err
}

type stubStore struct {
	invoices      []models.Invoice
	detail        *models.InvoiceDetail
	debtors       []models.Debtor
	createResult  *models.CreateInvoiceResult
	err           error
	gotPeriodDays int
	gotBusinessID string
	gotLimit      int
	gotInput      models.CreateInvoiceInput
}

func (s *stubStore) ListInvoices(ctx context.Context, periodDays int) ([]models.Invoice, error) {
	s.gotPeriodDays = periodDays
	return s.invoices, s.err
}

func (s *stubStore) GetInvoice(ctx context.Context, businessID string) (*models.InvoiceDetail, error) {
	s.gotBusinessID = businessID
	return s.detail, s.err
}

func (s *stubStore) ListTopDebtors(ctx context.Context, limit int) ([]models.Debtor, error) {
	s.gotLimit = limit
	return s.debtors, s.err
}

func (s *stubStore) CreateInvoice(ctx context.Context, input models.CreateInvoiceInput) (*models.CreateInvoiceResult, error) {
	s.gotInput = input
	return s.createResult, s.err
}

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(ctx context.Context) error {
	return p.err
}

func newTestServer(t *testing.T, res Resolver, store Store, db, cache Pinger) http.Handler {
	t.Helper()

	if res == nil {
		res = &stubResolver{}
	}
	if store == nil {
		store = &stubStore{}
	}
	if db == nil {
		db = &stubPinger{}
	}
	if cache == nil {
		cache = &stubPinger{}
	}

	log := logger.NewTestLogger(t)
	machine := dispatch.NewMachine(dispatch.Config{}, dispatch.NewSession(), res, log)

	return New(res, machine, store, db, cache, log).Routes()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// ==========================
// POST /intent Tests
// ==========================

func TestServer_Intent(t *testing.T) {
	t.Run("resolved utterance returns the full shape", func(t *testing.T) {
		res := &stubResolver{
			resolved: &resolver.Resolved{
				Intent:              intent.ShowInvoices,
				NormalizedUtterance: "show invoices for the last 90 days",
				Confidence:          0.88,
				Params:              resolver.ShowInvoicesParams{PeriodDays: 90},
			},
		}
		handler := newTestServer(t, res, nil, nil, nil)

		rec := doJSON(t, handler, http.MethodPost, "/intent", map[string]string{"text": "show me invoices for 90 days"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{
			"intent": "show_invoices",
			"normalizedUtterance": "show invoices for the last 90 days",
			"confidence": 0.88,
			"params": {"periodDays": 90}
		}`, rec.Body.String())
	})

	t.Run("missing text returns 400", func(t *testing.T) {
		handler := newTestServer(t, nil, nil, nil, nil)

		for _, body := range []interface{}{
			map[string]string{},
			map[string]string{"text": "   "},
			nil,
		} {
			rec := doJSON(t, handler, http.MethodPost, "/intent", body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error": "text is required"}`, rec.Body.String())
		}
	})

	t.Run("malformed model output returns 502 with raw text", func(t *testing.T) {
		res := &stubResolver{err: &classifier.MalformedError{Raw: "Sure! Here are your invoices."}}
		handler := newTestServer(t, res, nil, nil, nil)

		rec := doJSON(t, handler, http.MethodPost, "/intent", map[string]string{"text": "show invoices"})

		require.Equal(t, http.StatusBadGateway, rec.Code)
		assert.JSONEq(t, `{
			"error": "Bad JSON from model",
			"raw": "Sure! Here are your invoices."
		}`, rec.Body.String())
	})

	t.Run("other classifier failures return 500", func(t *testing.T) {
		res := &stubResolver{err: errors.New("boom")}
		handler := newTestServer(t, res, nil, nil, nil)

		rec := doJSON(t, handler, http.MethodPost, "/intent", map[string]string{"text": "show invoices"})

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error": "boom"}`, rec.Body.String())
	})
}

// ==========================
// Session Endpoint Tests
// ==========================

func TestServer_Commands(t *testing.T) {
	t.Run("submit settles the session and returns it", func(t *testing.T) {
		res := &stubResolver{
			resolved: &resolver.Resolved{
				Intent:              intent.TopDebtors,
				NormalizedUtterance: "top debtors",
				Confidence:          0.9,
				Params:              resolver.TopDebtorsParams{Limit: 10},
			},
		}
		handler := newTestServer(t, res, nil, nil, nil)

		rec := doJSON(t, handler, http.MethodPost, "/api/commands", map[string]string{"text": "who owes us the most"})

		require.Equal(t, http.StatusOK, rec.Code)

		var state dispatch.State
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
		assert.Equal(t, dispatch.ModeDashboard, state.Mode)
		assert.Equal(t, dispatch.StatusSuccess, state.AgentStatus)
		assert.Equal(t, "debtors", string(state.ActiveView))
	})

	t.Run("blank command returns 400", func(t *testing.T) {
		handler := newTestServer(t, nil, nil, nil, nil)

		rec := doJSON(t, handler, http.MethodPost, "/api/commands", map[string]string{"text": "  "})

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_SessionLifecycle(t *testing.T) {
	res := &stubResolver{
		resolved: &resolver.Resolved{
			Intent:              intent.ShowInvoices,
			NormalizedUtterance: "show invoices",
			Confidence:          0.9,
			Params:              resolver.ShowInvoicesParams{},
		},
	}
	handler := newTestServer(t, res, nil, nil, nil)

	rec := doJSON(t, handler, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state dispatch.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, dispatch.ModeEmpty, state.Mode)

	rec = doJSON(t, handler, http.MethodPost, "/api/commands", map[string]string{"text": "show invoices"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/session/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, dispatch.ModeEmpty, state.Mode)
	assert.Equal(t, dispatch.StatusIdle, state.AgentStatus)
}

// ==========================
// Data Endpoint Tests
// ==========================

func TestServer_ListInvoices(t *testing.T) {
	t.Run("defaults periodDays to 90", func(t *testing.T) {
		store := &stubStore{invoices: []models.Invoice{{BusinessID: "INV-1"}}}
		handler := newTestServer(t, nil, store, nil, nil)

		rec := doJSON(t, handler, http.MethodGet, "/api/invoices", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 90, store.gotPeriodDays)
	})

	t.Run("honors explicit periodDays", func(t *testing.T) {
		store := &stubStore{}
		handler := newTestServer(t, nil, store, nil, nil)

		rec := doJSON(t, handler, http.MethodGet, "/api/invoices?periodDays=30", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 30, store.gotPeriodDays)
	})

	t.Run("empty result is an empty array, not null", func(t *testing.T) {
		handler := newTestServer(t, nil, &stubStore{}, nil, nil)

		rec := doJSON(t, handler, http.MethodGet, "/api/invoices", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("rejects non-numeric periodDays", func(t *testing.T) {
		handler := newTestServer(t, nil, &stubStore{}, nil, nil)

		rec := doJSON(t, handler, http.MethodGet, "/api/invoices?periodDays=ninety", nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_GetInvoice(t *testing.T) {
	t.Run("returns detail", func(t *testing.T) {
		store := &stubStore{detail: &models.InvoiceDetail{
			Invoice: models.Invoice{BusinessID: "INV-1047", Client: "Globex"},
		}}
		handler := newTestServer(t, nil, store, nil, nil)

		rec := doJSON(t, handler, http.MethodGet, "/api/invoices/INV-1047", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "INV-1047", store.gotBusinessID)

		var detail models.InvoiceDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
		assert.Equal(t, "Globex", detail.Client)
	})

	t.Run("unknown invoice returns 404", func(t *testing.T) {
		store := &stubStore{err: stderrors.NewInvoiceNotFoundError("INV-9999")}
		handler := newTestServer(t, nil, store, nil, nil)

		rec := doJSON(t, handler, http.MethodGet, "/api/invoices/INV-9999", nil)

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_ListDebtors(t *testing.T) {
	t.Run("defaults limit to 10", func(t *testing.T) {
		store := &stubStore{debtors: []models.Debtor{{Client: "Globex"}}}
		handler := newTestServer(t, nil, store, nil, nil)

		rec := doJSON(t, handler, http.MethodGet, "/api/debtors", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 10, store.gotLimit)
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		handler := newTestServer(t, nil, &stubStore{}, nil, nil)

		rec := doJSON(t, handler, http.MethodGet, "/api/debtors?limit=0", nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_CreateInvoice(t *testing.T) {
	t.Run("creates a draft", func(t *testing.T) {
		store := &stubStore{createResult: &models.CreateInvoiceResult{ID: "u-1", BusinessID: "INV-1756600000000"}}
		handler := newTestServer(t, nil, store, nil, nil)

		rec := doJSON(t, handler, http.MethodPost, "/api/invoices", models.CreateInvoiceInput{
			ClientID:    "c-1",
			Terms:       "Net 30",
			Description: "Consulting",
			Quantity:    8,
			UnitPrice:   150,
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "c-1", store.gotInput.ClientID)

		var result models.CreateInvoiceResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "INV-1756600000000", result.BusinessID)
	})

	t.Run("rejects missing client", func(t *testing.T) {
		handler := newTestServer(t, nil, &stubStore{}, nil, nil)

		rec := doJSON(t, handler, http.MethodPost, "/api/invoices", models.CreateInvoiceInput{Quantity: 1})

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// ==========================
// Health Tests
// ==========================

func TestServer_Health(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		handler := newTestServer(t, nil, nil, &stubPinger{}, &stubPinger{})

		rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{
			"healthy": true,
			"checks": {"postgres": "ok", "redis": "ok"}
		}`, rec.Body.String())
	})

	t.Run("database down returns 503", func(t *testing.T) {
		handler := newTestServer(t, nil, nil, &stubPinger{err: errors.New("dial refused")}, &stubPinger{})

		rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body struct {
			Healthy bool              `json:"healthy"`
			Checks  map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Healthy)
		assert.Equal(t, "ok", body.Checks["redis"])
	})
}

func TestServer_Metrics(t *testing.T) {
	handler := newTestServer(t, nil, nil, nil, nil)

	rec := doJSON(t, handler, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
