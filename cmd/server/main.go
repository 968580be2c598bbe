package main

import (
	"database/sql"
	"net/http"

	"cafeteria-pos/internal/config"
	"cafeteria-pos/internal/db"
	"cafeteria-pos/internal/handler"
	"cafeteria-pos/internal/logger"
	"cafeteria-pos/internal/metrics"
	"cafeteria-pos/internal/middleware"
	"cafeteria-pos/internal/order"
	"cafeteria-pos/internal/product"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Seams for tests.
var (
	initDBFunc      = db.InitDB
	startServerFunc = http.ListenAndServe
)

func setupRouter(productHandler *handler.ProductHandler, orderHandler *handler.OrderHandler) chi.Router {
	router := chi.NewRouter()

	router.Use(logger.RequestIDMiddleware)
	router.Use(logger.LoggingMiddleware)
	router.Use(middleware.RateLimitMiddleware)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	productHandler.RegisterRoutes(router)
	orderHandler.RegisterRoutes(router)

	return router
}

func newServer(cfg *config.Config, database *sql.DB) chi.Router {
	productRepo := product.NewRepository(database)
	productSvc := product.NewService(productRepo)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, productRepo, &metrics.OrderStats{})

	productHandler := handler.NewProductHandler(productSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)

	return setupRouter(productHandler, orderHandler)
}

func run() error {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	router := newServer(cfg, database)

	logger.L().Info("server running",
		zap.String("port", cfg.AppPort),
		zap.String("env", cfg.AppEnv),
	)

	return startServerFunc(":"+cfg.AppPort, router)
}

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}
