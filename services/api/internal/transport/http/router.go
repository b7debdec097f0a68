package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Reservations Reserver
	Payments     PaymentDecider
	Raffles      interface {
		RaffleReader
		RaffleAdmin
		PendingLister
	}
	Events      http.Handler
	Metrics     http.Handler
	Logger      zerolog.Logger
	AuthSecret  []byte
	CORSOrigins []string
}

// NewRouter assembles the public and admin routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(CORS(cfg.CORSOrigins))

	r.Get("/health", HealthHandler)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.Events != nil {
		r.Method(http.MethodGet, "/events/ws", cfg.Events)
	}

	r.Get("/raffles/active", HandleActiveRaffle(cfg.Raffles))
	r.Get("/raffles/{raffleID}/tickets", HandleListTickets(cfg.Raffles))

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.AuthSecret))
		r.Post("/raffles/{raffleID}/reservations", HandleReserve(cfg.Reservations))
	})

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.AuthSecret), RequireAdmin)
		r.Get("/admin/payments/pending", HandlePendingPayments(cfg.Raffles))
		r.Post("/admin/payments/{paymentID}/confirm", HandleConfirmPayment(cfg.Payments))
		r.Post("/admin/payments/{paymentID}/reject", HandleRejectPayment(cfg.Payments))
		r.Post("/admin/raffles", HandleCreateRaffle(cfg.Raffles))
		r.Post("/admin/raffles/{raffleID}/activate", HandleActivateRaffle(cfg.Raffles))
	})

	r.NotFound(NotFoundHandler())
	return r
}
