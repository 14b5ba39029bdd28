package handlers

import (
	"net/http"

	"wallet/internal/config"
	"wallet/internal/middleware"
	"wallet/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	cfg          config.Config
	users        UserStore
	orders       OrderStore
	transactions TransactionStore
	events       EventStore
	ledger       LedgerService
	orderSvc     OrderService
	userSvc      UserService
	hub          *websocket.Hub
}

func New(cfg config.Config, users UserStore, orders OrderStore, transactions TransactionStore, events EventStore, ledger LedgerService, orderSvc OrderService, userSvc UserService, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:          cfg,
		users:        users,
		orders:       orders,
		transactions: transactions,
		events:       events,
		ledger:       ledger,
		orderSvc:     orderSvc,
		userSvc:      userSvc,
		hub:          hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authed := middleware.Auth(h.cfg.JWTSecret)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authed).Get("/me", h.Me)
	})

	router.Route("/wallet", func(r chi.Router) {
		r.Use(authed)
		r.Get("/balance", h.GetBalance)
		r.Get("/reconcile", h.Reconcile)
	})

	router.Route("/transactions", func(r chi.Router) {
		r.Use(authed)
		r.Get("/", h.ListTransactions)
		r.Get("/stats", h.TransactionStats)
		r.Post("/transfer", h.Transfer)
		r.Get("/{id}", h.GetTransaction)
	})

	router.Route("/orders", func(r chi.Router) {
		r.Use(authed)
		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/cancel", h.CancelOrder)
	})

	router.Get("/ws/balance", h.WSBalance)

	router.Route("/admin", func(r chi.Router) {
		r.Use(authed)
		r.Use(middleware.RequireAdmin(h.users))
		r.Get("/users", h.AdminListUsers)
		r.Put("/users/{id}", h.AdminUpdateUser)
		r.Delete("/users/{id}", h.AdminDeleteUser)
		r.Get("/orders", h.AdminListOrders)
		r.Get("/orders/stats", h.AdminOrderStats)
		r.Post("/orders/{id}/process", h.AdminProcessOrder)
		r.Post("/orders/{id}/cancel", h.AdminCancelOrder)
		r.Post("/orders/{id}/refund", h.AdminRefundOrder)
		r.Post("/wallet/add", h.AdminAddMoney)
		r.Post("/wallet/remove", h.AdminRemoveMoney)
		r.Get("/wallet/{id}/reconcile", h.AdminReconcile)
		r.Get("/transactions", h.AdminListTransactions)
		r.Get("/events", h.AdminListEvents)
		r.Get("/events/{aggregateType}/{aggregateID}", h.AdminEventHistory)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
