package main

import (
	"context"
	"coursecart/internal/cache"
	"coursecart/internal/client"
	"coursecart/internal/config"
	"coursecart/internal/handler"
	"coursecart/internal/logger"
	"coursecart/internal/metrics"
	"coursecart/internal/repository"
	"coursecart/internal/server"
	"coursecart/internal/service"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&cfg.Log)
	ctx := context.Background()

	db, err := client.OpenDatabase(cfg.Database.Driver, cfg.Database.URL, log)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	if err := client.Migrate(db); err != nil {
		log.Error("migrate database", "error", err)
		os.Exit(1)
	}

	readDB := db
	if cfg.Database.ReadURL != "" {
		readDB, err = client.OpenDatabase(cfg.Database.Driver, cfg.Database.ReadURL, log)
		if err != nil {
			log.Error("open read database", "error", err)
			os.Exit(1)
		}
	}

	var courseCache cache.CourseCache = cache.NopCache{}
	rdb, err := client.InitRedisClient(ctx, &cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, catalog cache disabled", "error", err)
	} else if rdb != nil {
		courseCache = cache.NewRedisCache(rdb, cfg.Redis.TTL)
		defer rdb.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	stripeClient := client.NewStripeClient(&cfg.Stripe)
	mailClient := client.NewResendClient(&cfg.Resend)

	courseRepo := repository.NewCourseRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	if cfg.Environment.Name == "development" {
		if err := courseRepo.Seed(ctx); err != nil {
			log.Warn("seed courses", "error", err)
		}
	}

	cartService := service.NewCartService(db, cartRepo, courseRepo)
	accessService := service.NewAccessService(courseRepo, orderRepo)
	orderService := service.NewOrderService(orderRepo)
	catalogService := service.NewCatalogService(courseRepo, courseCache, log, m)
	receiptService := service.NewReceiptService(mailClient, cfg.SupportEmail, cfg.ReceiptMessage, m)
	checkoutService := service.NewCheckoutService(stripeClient, cartRepo, cfg.AppURL, log, m)
	fulfillmentService := service.NewFulfillmentService(
		db,
		stripeClient,
		receiptService,
		cartRepo,
		orderRepo,
		webhookEventRepo,
		cfg.AppURL,
		log,
		m,
	)
	accountService := service.NewAccountService(
		repository.NewProfileRepository(readDB),
		repository.NewProfileRepository(db),
		cfg.AdminInviteCode,
		log,
	)

	srv := server.NewServer(server.Handlers{
		Cart:     handler.NewCartHandler(cartService),
		Checkout: handler.NewCheckoutHandler(checkoutService, fulfillmentService),
		Course:   handler.NewCourseHandler(catalogService, accessService),
		Order:    handler.NewOrderHandler(orderService),
		Account:  handler.NewAccountHandler(accountService),
	}, &cfg.Auth, log, m, registry)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	log.Info("starting HTTP server", "addr", serverAddr, "environment", cfg.Environment.Name)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}
}
