package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"valutahub/internal/config"
	"valutahub/internal/middleware"
	"valutahub/internal/websocket"
)

type Handler struct {
	cfg     config.Config
	users   UserService
	service TransactionService
	history RateHistoryLister
	hub     *websocket.Hub
}

func New(cfg config.Config, users UserService, service TransactionService, history RateHistoryLister, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:     cfg,
		users:   users,
		service: service,
		history: history,
		hub:     hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Get("/portfolio", h.GetPortfolio)
		r.Get("/wallets/{code}", h.GetWallet)
		r.Post("/transactions/buy", h.Buy)
		r.Post("/transactions/sell", h.Sell)
		r.Post("/rates/refresh", h.RefreshRates)
	})

	router.Get("/rates/history", h.RateHistory)
	router.Get("/rates/{from}/{to}", h.GetRate)
	router.Get("/ws/updates", h.WSUpdates)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
