package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fretehub/credit-ledger/internal/api/handlers"
	"github.com/fretehub/credit-ledger/internal/auth"
	"github.com/fretehub/credit-ledger/internal/config"
	"github.com/fretehub/credit-ledger/internal/middleware"
	"github.com/fretehub/credit-ledger/internal/services"
)

type RouterDeps struct {
	Cfg          config.Config
	Log          *slog.Logger
	Tokens       *auth.TokenManager
	Balance      *services.BalanceService
	Recharge     *services.RechargeService
	Reservations *services.ReservationService
	Webhook      *services.WebhookService
	Sweep        *services.SweepService
	Backfill     *services.BackfillService
}

func NewRouter(d RouterDeps) http.Handler {
	credits := &handlers.CreditHandler{Balance: d.Balance, Recharge: d.Recharge, Reservations: d.Reservations}
	hooks := &handlers.WebhookHandler{Settlement: d.Webhook}
	admin := &handlers.AdminHandler{Sweep: d.Sweep, Backfill: d.Backfill}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover(d.Log), middleware.Logger(d.Log), middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.WebhookToken(d.Cfg.WebhookToken)).
			Post("/webhooks/pagamento", hooks.PaymentConfirmed)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(d.Tokens))

			r.Route("/creditos", func(r chi.Router) {
				r.Use(middleware.RequireRole(auth.RolePartner, auth.RoleAdmin))
				r.Post("/recarga", credits.AddCredit)
				r.Get("/saldo", credits.GetBalance)
				r.Post("/reservas", credits.Reserve)
				r.Get("/transacoes", credits.ListTransactions)
				r.Get("/transacoes/{id}", credits.GetTransaction)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(auth.RoleAdmin))
				r.Post("/reconciliacao", admin.RunSweep)
				r.Post("/correcao", admin.RunBackfill)
			})
		})
	})

	return r
}
