// internal/server/handlers.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	stderrors "invoicing-dashboard/internal/common/errors"
	"invoicing-dashboard/internal/intent/classifier"
	"invoicing-dashboard/internal/models"
)

type intentRequest struct {
	Text string `json:"text"`
}

// handleIntent is the stateless resolve endpoint: classify + validate one
// utterance and return the resolved shape, without touching the session.
func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "text is required"})
		return
	}

	resolved, err := s.resolver.Resolve(r.Context(), req.Text)
	if err != nil {
		var malformed *classifier.MalformedError
		if errors.As(err, &malformed) {
			writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error": "Bad JSON from model",
				"raw":   malformed.Raw,
			})
			return
		}
		s.logger.WithError(err).Error("intent resolution failed", nil)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, resolved)
}

// handleCommand submits an utterance to the dispatch machine and returns
// the session state it settled on.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "text is required"})
		return
	}

	if err := s.machine.Submit(r.Context(), req.Text); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.machine.Session().Snapshot())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.machine.Session().Snapshot())
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	s.machine.Reset()
	writeJSON(w, http.StatusOK, s.machine.Session().Snapshot())
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	periodDays := 90
	if raw := r.URL.Query().Get("periodDays"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "periodDays must be a positive number"})
			return
		}
		periodDays = n
	}

	invoices, err := s.store.ListInvoices(r.Context(), periodDays)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}

	writeJSON(w, http.StatusOK, invoices)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessId")

	detail, err := s.store.GetInvoice(r.Context(), businessID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleListDebtors(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "limit must be a positive number"})
			return
		}
		limit = n
	}

	debtors, err := s.store.ListTopDebtors(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if debtors == nil {
		debtors = []models.Debtor{}
	}

	writeJSON(w, http.StatusOK, debtors)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var input models.CreateInvoiceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
		return
	}
	if input.ClientID == "" || input.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "clientId and a positive quantity are required"})
		return
	}

	result, err := s.store.CreateInvoice(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"postgres": "ok", "redis": "ok"}
	healthy := true

	if err := s.db.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	}
	if err := s.cache.Ping(ctx); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{"healthy": healthy, "checks": checks})
}

// writeError maps structured errors to their HTTP status; anything else
// is an opaque 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var stdErr *stderrors.StandardError
	if errors.As(err, &stdErr) {
		writeJSON(w, stderrors.HTTPStatus(stdErr.Code), map[string]interface{}{"error": stdErr.Message})
		return
	}
	s.logger.WithError(err).Error("request failed", nil)
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
