// Package httpapi is the HTTP ingress: authenticated instruction submission
// and read-only queries.
package httpapi

import (
	"context"
	"net/http"

	"squadvault/ledger"
	"squadvault/models"
	"squadvault/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// InstructionDispatcher executes instructions for an authenticated actor
type InstructionDispatcher interface {
	Dispatch(ctx context.Context, actor ledger.Identity, ins models.Instruction) (*service.Receipt, error)
}

// Queries serves the read-only views
type Queries interface {
	GetSquad(ctx context.Context, id uuid.UUID) (*models.Squad, error)
	ListSquadProposals(ctx context.Context, squadID uuid.UUID, limit int) ([]*models.Proposal, error)
	GetStream(ctx context.Context, id int64, at int64) (*service.StreamView, error)
	ListStreams(ctx context.Context, participant ledger.Identity, limit int) ([]*models.PaymentStream, error)
	GetProposal(ctx context.Context, id int64) (*models.Proposal, error)
	GetWallet(ctx context.Context, owner ledger.Identity) (*models.Wallet, error)
	GetLedgerEntries(ctx context.Context, accountType models.AccountType, accountID string, limit int) ([]*models.LedgerEntry, error)
	GetInstruction(ctx context.Context, sequence int64) (*models.InstructionRecord, error)
}

// Middleware wraps a handler; metrics instrumentation is passed in this form
type Middleware = mux.MiddlewareFunc

// RouterConfig carries everything the router needs
type RouterConfig struct {
	Dispatcher     InstructionDispatcher
	Queries        Queries
	Authenticator  *Authenticator
	RateLimiter    *RateLimiter
	Instrument     Middleware
	MetricsHandler http.Handler
	Health         func(ctx context.Context) error
}

// NewRouter builds the HTTP routes
func NewRouter(cfg RouterConfig) *mux.Router {
	h := &handlers{dispatcher: cfg.Dispatcher, queries: cfg.Queries}

	r := mux.NewRouter()
	if cfg.Instrument != nil {
		r.Use(cfg.Instrument)
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", healthHandler(cfg.Health)).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()

	authenticated := func(fn http.HandlerFunc) http.Handler {
		return cfg.Authenticator.Middleware(cfg.RateLimiter.Middleware(fn))
	}
	v1.Handle("/instructions", authenticated(h.submitInstruction)).Methods(http.MethodPost)

	read := func(path string, fn http.HandlerFunc) {
		v1.Handle(path, cfg.RateLimiter.Middleware(fn)).Methods(http.MethodGet)
	}
	read("/squads/{id}", h.getSquad)
	read("/squads/{id}/proposals", h.listSquadProposals)
	read("/streams/{id:[0-9]+}", h.getStream)
	read("/proposals/{id:[0-9]+}", h.getProposal)
	read("/wallets/{identity}", h.getWallet)
	read("/wallets/{identity}/streams", h.listStreams)
	read("/ledger/{accountType}/{accountID}", h.getLedgerEntries)
	read("/instructions/{sequence:[0-9]+}", h.getInstruction)

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
