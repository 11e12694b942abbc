package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nasidaunjeruk/pos/internal/config"
	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/handler"
	mw "github.com/nasidaunjeruk/pos/internal/middleware"
	"github.com/nasidaunjeruk/pos/internal/payment"
	"github.com/nasidaunjeruk/pos/internal/receipt"
	"github.com/nasidaunjeruk/pos/internal/service"
	"github.com/nasidaunjeruk/pos/internal/settings"
	"github.com/nasidaunjeruk/pos/internal/ws"
	"github.com/sirupsen/logrus"
)

// New creates a Chi router with all application routes wired up.
// Cart, checkout and reads need any valid session; destructive ledger
// operations and settings changes need the OWNER role.
func New(cfg *config.Config, pos *service.POS, st *settings.Service, hub *ws.Hub, loc *time.Location) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler := handler.NewAuthHandler(st, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	handler.NewMenuHandler(pos).RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	receiptHeader := func() receipt.Header {
		s := st.Get()
		return receipt.Header{StoreName: s.StoreName, Address: s.Address, Phone: s.Phone, Footer: s.FooterText}
	}
	txHandler := handler.NewTransactionHandler(pos, receiptHeader, loc)
	settingsHandler := handler.NewSettingsHandler(st)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/cart", handler.NewCartHandler(pos).RegisterRoutes)
		handler.NewPaymentHandler(pos, payment.DefaultMerchant).RegisterRoutes(r)
		r.Route("/reports", handler.NewReportsHandler(pos, loc).RegisterRoutes)
		r.Route("/sync", handler.NewSyncHandler(pos).RegisterRoutes)

		r.Route("/transactions", func(r chi.Router) {
			txHandler.RegisterRoutes(r)

			// Owner-only ledger edits
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner))
				txHandler.RegisterOwnerRoutes(r)
			})
		})

		r.Route("/settings", func(r chi.Router) {
			settingsHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner))
				settingsHandler.RegisterOwnerRoutes(r)
			})
		})
	})

	logrus.Info("router initialized with all handlers")
	return r
}
