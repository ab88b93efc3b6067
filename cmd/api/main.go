package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/avidal-labs/brewshop-backend/api/routes"
	cartsvc "github.com/avidal-labs/brewshop-backend/internal/cart"
	catalogsvc "github.com/avidal-labs/brewshop-backend/internal/catalog"
	checkoutsvc "github.com/avidal-labs/brewshop-backend/internal/checkout"
	identitysvc "github.com/avidal-labs/brewshop-backend/internal/identity"
	ordersvc "github.com/avidal-labs/brewshop-backend/internal/orders"
	"github.com/avidal-labs/brewshop-backend/pkg/cache"
	"github.com/avidal-labs/brewshop-backend/pkg/config"
	"github.com/avidal-labs/brewshop-backend/pkg/erpnext"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
	"github.com/avidal-labs/brewshop-backend/pkg/redis"
	"github.com/avidal-labs/brewshop-backend/pkg/session"
	"github.com/avidal-labs/brewshop-backend/pkg/sumup"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	erpClient, err := erpnext.NewClient(cfg.ERPNext, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build erp client", err)
		os.Exit(1)
	}
	if err := erpClient.Login(context.Background()); err != nil {
		logg.Error(context.Background(), "initial erp login failed", err)
		os.Exit(1)
	}

	sumupClient, err := sumup.NewClient(cfg.SumUp, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build payment gateway client", err)
		os.Exit(1)
	}

	stockCache, err := cache.New(redisClient, cfg.Stock.CacheTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to build stock cache", err)
		os.Exit(1)
	}

	sessions, err := session.NewStore(redisClient, cfg.Session)
	if err != nil {
		logg.Error(context.Background(), "failed to build session store", err)
		os.Exit(1)
	}

	catalogService := catalogsvc.NewService(erpClient, stockCache, logg, cfg.ERPNext)
	cartService := cartsvc.NewService(catalogService, sessions, logg, cfg.ERPNext)
	orderService := ordersvc.NewService(erpClient, cartService, logg, cfg.ERPNext, cfg.Shipping)
	checkoutService := checkoutsvc.NewService(sumupClient, orderService, erpClient, cartService,
		logg, cfg.ERPNext, cfg.SumUp)
	identityService := identitysvc.NewService(erpClient,
		identitysvc.NewVerifier(cfg.Identity, logg), sessions, logg)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, redisClient,
			catalogService, cartService, orderService, checkoutService, identityService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
