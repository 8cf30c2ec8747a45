// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"invoicing-dashboard/internal/common/logger"
	"invoicing-dashboard/internal/dispatch"
	"invoicing-dashboard/internal/intent/resolver"
	"invoicing-dashboard/internal/models"
)

// Resolver is the resolve step behind POST /intent.
type Resolver interface {
	Resolve(ctx context.Context, utterance string) (*resolver.Resolved, error)
}

// Store is the data access the view endpoints need.
type Store interface {
	ListInvoices(ctx context.Context, periodDays int) ([]models.Invoice, error)
	GetInvoice(ctx context.Context, businessID string) (*models.InvoiceDetail, error)
	ListTopDebtors(ctx context.Context, limit int) ([]models.Debtor, error)
	CreateInvoice(ctx context.Context, input models.CreateInvoiceInput) (*models.CreateInvoiceResult, error)
}

// Pinger is a dependency the health endpoint probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the HTTP surface: the intent endpoint, the session command
// endpoints driving the dispatch machine, and the view data endpoints.
type Server struct {
	resolver Resolver
	machine  *dispatch.Machine
	store    Store
	db       Pinger
	cache    Pinger
	logger   logger.Logger
}

func New(res Resolver, machine *dispatch.Machine, store Store, db, cache Pinger, log logger.Logger) *Server {
	return &Server{
		resolver: res,
		machine:  machine,
		store:    store,
		db:       db,
		cache:    cache,
		logger: log.WithFields(map[string]interface{}{
			"component": "server",
		}),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/intent", s.handleIntent)

	r.Route("/api", func(r chi.Router) {
		r.Post("/commands", s.handleCommand)
		r.Get("/session", s.handleSession)
		r.Post("/session/reset", s.handleSessionReset)

		r.Get("/invoices", s.handleListInvoices)
		r.Post("/invoices", s.handleCreateInvoice)
		r.Get("/invoices/{businessId}", s.handleGetInvoice)
		r.Get("/debtors", s.handleListDebtors)
	})

	return r
}
