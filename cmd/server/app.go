package main

import (
	"net/http"

	"github.com/rbelarbi/fatoora/internal/auth"
	"github.com/rbelarbi/fatoora/internal/catalog"
	"github.com/rbelarbi/fatoora/internal/config"
	"github.com/rbelarbi/fatoora/internal/credit"
	"github.com/rbelarbi/fatoora/internal/handlers"
	"github.com/rbelarbi/fatoora/internal/ledger"
	"github.com/rbelarbi/fatoora/internal/sequence"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux *http.ServeMux
	db  *gorm.DB
}

// NewApp creates a new application with all routes configured.
func NewApp(db *gorm.DB, cfg *config.Config) *App {
	app := &App{
		mux: http.NewServeMux(),
		db:  db,
	}

	seq := sequence.NewGenerator()
	led := ledger.New(db, seq, ledger.WithInvoicePrefix(cfg.App.InvoicePrefix))
	cat := catalog.New(db, seq)
	pol := credit.NewPolicy(led)

	app.setupRoutes(
		handlers.NewAuthHandler(db),
		handlers.NewProductHandler(cat),
		handlers.NewClientHandler(cat, pol, led),
		handlers.NewInvoiceHandler(led),
		handlers.NewTransactionHandler(led),
	)
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	auth.Middleware(a.mux).ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes(
	ah *handlers.AuthHandler,
	ph *handlers.ProductHandler,
	ch *handlers.ClientHandler,
	ih *handlers.InvoiceHandler,
	th *handlers.TransactionHandler,
) {
	// Public routes (no auth required)
	a.mux.HandleFunc("POST /signup", ah.Signup)
	a.mux.HandleFunc("POST /login", ah.Login)
	a.mux.HandleFunc("POST /logout", ah.Logout)

	// Products
	a.mux.Handle("GET /products", a.requireAuth(http.HandlerFunc(ph.List)))
	a.mux.Handle("POST /products", a.requireAuth(http.HandlerFunc(ph.Create)))
	a.mux.Handle("GET /products/{id}", a.requireAuth(http.HandlerFunc(ph.View)))
	a.mux.Handle("PUT /products/{id}", a.requireAuth(http.HandlerFunc(ph.Update)))
	a.mux.Handle("POST /products/{id}/stock", a.requireAuth(http.HandlerFunc(ph.AdjustStock)))
	a.mux.Handle("POST /products/{id}/deactivate", a.requireAuth(http.HandlerFunc(ph.Deactivate)))

	// Clients
	a.mux.Handle("GET /clients", a.requireAuth(http.HandlerFunc(ch.List)))
	a.mux.Handle("POST /clients", a.requireAuth(http.HandlerFunc(ch.Create)))
	a.mux.Handle("GET /clients/{id}", a.requireAuth(http.HandlerFunc(ch.View)))
	a.mux.Handle("PUT /clients/{id}", a.requireAuth(http.HandlerFunc(ch.Update)))
	a.mux.Handle("GET /clients/{id}/credit", a.requireAuth(http.HandlerFunc(ch.Credit)))
	a.mux.Handle("GET /clients/{id}/overdue-invoices", a.requireAuth(http.HandlerFunc(ch.OverdueInvoices)))
	a.mux.Handle("POST /clients/{id}/deactivate", a.requireAuth(http.HandlerFunc(ch.Deactivate)))

	// Invoices
	a.mux.Handle("GET /invoices", a.requireAuth(http.HandlerFunc(ih.List)))
	a.mux.Handle("POST /invoices", a.requireAuth(http.HandlerFunc(ih.Create)))
	a.mux.Handle("GET /invoices/{id}", a.requireAuth(http.HandlerFunc(ih.View)))
	a.mux.Handle("POST /invoices/{id}/items", a.requireAuth(http.HandlerFunc(ih.AddItem)))
	a.mux.Handle("DELETE /invoices/{id}/items/{item_id}", a.requireAuth(http.HandlerFunc(ih.RemoveItem)))
	a.mux.Handle("POST /invoices/{id}/validate", a.requireAuth(http.HandlerFunc(ih.Validate)))
	a.mux.Handle("POST /invoices/{id}/cancel", a.requireAuth(http.HandlerFunc(ih.Cancel)))

	// Transactions
	a.mux.Handle("POST /invoices/{id}/transactions", a.requireAuth(http.HandlerFunc(th.Record)))
	a.mux.Handle("POST /transactions/{id}/complete", a.requireAuth(http.HandlerFunc(th.Complete)))
	a.mux.Handle("POST /transactions/{id}/reject", a.requireAuth(http.HandlerFunc(th.Reject)))
}

func (a *App) requireAuth(next http.Handler) http.Handler {
	return auth.RequireAuth(next)
}
