package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet/internal/config"
	"wallet/internal/db"
	"wallet/internal/handlers"
	"wallet/internal/services"
	"wallet/internal/store"
	"wallet/internal/websocket"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	orders := store.NewOrderStore(database)
	transactions := store.NewTransactionStore(database)
	events := store.NewEventStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	ledger := services.NewLedgerService(txRunner, database, users, transactions, events, hub)
	orderSvc := services.NewOrderService(txRunner, orders, users, ledger, events)
	userSvc := services.NewUserService(txRunner, users, orders, events)

	handler := handlers.New(cfg, users, orders, transactions, events, ledger, orderSvc, userSvc, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("wallet API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
