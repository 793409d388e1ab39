package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/marketbay/storefront-api/internal/config"
	"github.com/marketbay/storefront-api/internal/handler"
	"github.com/marketbay/storefront-api/internal/middleware"
	"github.com/marketbay/storefront-api/internal/repository"
	"github.com/marketbay/storefront-api/internal/service"
	"github.com/marketbay/storefront-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	reviewRepo := repository.NewReviewRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool, cfg.Orders.AllowBackorder)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	catalogSvc := service.NewCatalogService(productRepo, reviewRepo, redisClient)
	reviewSvc := service.NewReviewService(reviewRepo, productRepo, redisClient)
	orderSvc := service.NewOrderService(orderRepo, redisClient, amqpCh, cfg.Orders.EnforcePayAccess)

	// Handlers
	userH := handler.NewUserHandler(authSvc)
	productH := handler.NewProductHandler(catalogSvc, reviewSvc, cfg.Compat.LegacyStatusCodes)
	orderH := handler.NewOrderHandler(orderSvc, cfg.Compat.LegacyStatusCodes)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	paymentWorker := worker.NewPaymentWorker(amqpCh, orderSvc, redisClient, log)

	// Router
	router := gin.Default()
	router.Use(middleware.Metrics())

	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	users := router.Group("/users")
	users.POST("/register", userH.Register)
	users.POST("/login", userH.Login)
	users.GET("/profile", middleware.Auth(cfg.JWT.Secret, userRepo), userH.Profile)

	products := router.Group("/products")
	products.GET("", productH.List)
	products.GET("/top", productH.Top)
	products.GET("/:id", productH.GetByID)
	products.POST("/:id/reviews", middleware.Auth(cfg.JWT.Secret, userRepo), productH.SubmitReview)

	adminProducts := products.Group("", middleware.Auth(cfg.JWT.Secret, userRepo), middleware.AdminOnly())
	adminProducts.POST("", productH.Create)
	adminProducts.PUT("/:id", productH.Update)
	adminProducts.DELETE("/:id", productH.Delete)

	orders := router.Group("/orders", middleware.Auth(cfg.JWT.Secret, userRepo))
	orders.POST("", orderH.PlaceOrder)
	orders.GET("", middleware.AdminOnly(), orderH.ListAllOrders)
	orders.GET("/myorders", orderH.ListMyOrders)
	orders.GET("/:id", orderH.GetOrder)
	orders.PUT("/:id/pay", orderH.MarkPaid)
	orders.PUT("/:id/deliver", middleware.AdminOnly(), orderH.MarkDelivered)

	if err := paymentWorker.Start(ctx); err != nil {
		log.Error("start payment worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	paymentWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
