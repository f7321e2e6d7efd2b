package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/config"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/database"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/handlers"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/logger"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/middleware"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/monitoring"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/repository"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/services/trade"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()

	sqlDB, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		logg.Fatalw("Failed to open database", "error", err)
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := sqlDB.PingContext(ctx); err != nil {
		cancel()
		logg.Fatalw("Failed to reach database", "error", err)
	}
	cancel()

	db := database.New(sqlDB)
	metrics := monitoring.NewMetrics("besttrade")
	health := monitoring.NewHealthChecker(sqlDB)

	ledger := repository.NewLedgerStore(db)
	investors := repository.NewInvestorRepository(db)
	accounts := repository.NewAccountRepository(db)
	engine := trade.NewEngine(ledger, logg)

	tradeHandler := handlers.NewTradeHandler(engine, metrics)
	portfolioHandler := handlers.NewPortfolioHandler(ledger)
	investorHandler := handlers.NewInvestorHandler(investors)
	accountHandler := handlers.NewAccountHandler(accounts)

	router := mux.NewRouter()

	router.Use(middleware.Recovery(logg))
	router.Use(middleware.RequestLogger(logg))
	router.Use(middleware.APIRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	router.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	router.Handle("/health", health.Handler()).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	api.Handle("/accounts/{account_number}/trades",
		metrics.InstrumentHandler("trade", http.HandlerFunc(tradeHandler.ExecuteTrade))).Methods("POST")
	api.Handle("/accounts/{account_number}/portfolio",
		metrics.InstrumentHandler("portfolio", http.HandlerFunc(portfolioHandler.GetByAccount))).Methods("GET")
	api.Handle("/investors/{id}/portfolio",
		metrics.InstrumentHandler("portfolio", http.HandlerFunc(portfolioHandler.GetByInvestor))).Methods("GET")

	api.HandleFunc("/investors", investorHandler.Create).Methods("POST")
	api.HandleFunc("/investors/{id}/name", investorHandler.UpdateName).Methods("PUT")
	api.HandleFunc("/investors/{id}/status", investorHandler.UpdateStatus).Methods("PUT")
	api.HandleFunc("/investors/{id}", investorHandler.Delete).Methods("DELETE")

	api.HandleFunc("/accounts", accountHandler.Create).Methods("POST")
	api.HandleFunc("/accounts/{account_number}/balance", accountHandler.UpdateBalance).Methods("PUT")
	api.HandleFunc("/accounts/{account_number}", accountHandler.Delete).Methods("DELETE")

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logg.Infow("Server starting", "port", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatalw("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Fatalw("Server forced to shutdown", "error", err)
	}

	logg.Info("Server stopped")
}

func envOr(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
