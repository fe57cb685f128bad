package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/propvest/backend/docs"
	"github.com/propvest/backend/internal/audit"
	"github.com/propvest/backend/internal/config"
	"github.com/propvest/backend/internal/database"
	mW "github.com/propvest/backend/internal/middleware"
	"github.com/propvest/backend/internal/services"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Propvest Ledger API
// @version 1.0
// @description Double-entry ledger core for the Propvest crowd-investment platform
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Propvest Ledger API"
	docs.SwaggerInfo.Description = "Double-entry ledger core for the Propvest crowd-investment platform"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize storage and services
	db := database.MustConnect()
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	ledgerCfg := config.LoadLedgerConfig()
	auditLogger := audit.NewLogger(redisClient)

	accountService := services.NewAccountService(db, ledgerCfg)
	ledgerService := services.NewLedgerService(db, ledgerCfg, auditLogger)
	operationsService := services.NewOperationsService(db, accountService, ledgerService, ledgerCfg)
	reconciliationService := services.NewReconciliationService(db, accountService, ledgerCfg, auditLogger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Post("/ledger/deposit", operationsService.HandleDeposit)
			r.Post("/ledger/withdraw", operationsService.HandleWithdraw)
			r.Post("/ledger/invest", operationsService.HandleInvest)
			r.Get("/ledger/transaction/{id}", operationsService.HandleGetTransaction)
			r.Get("/ledger/transaction/reference/{reference}", operationsService.HandleGetTransactionByReference)
			r.Get("/ledger/user-transactions/{userId}", operationsService.HandleUserTransactions)
			r.Get("/ledger/accounts", accountService.ListAccounts)
			r.Get("/ledger/financial-statement/{type}", reconciliationService.HandleFinancialStatement)

			// Admin-only endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireAdmin)

				r.Post("/ledger/distribute-roi", operationsService.HandleDistributeROI)
				r.Patch("/ledger/transaction/{id}/status", operationsService.HandleUpdateStatus)
				r.Post("/ledger/reconcile/{accountId}", reconciliationService.HandleReconcileAccount)
				r.Get("/ledger/accounts/{accountId}/balance-history", accountService.GetBalanceHistory)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
