package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"gacha-summon/internal/auth"
	"gacha-summon/internal/cache"
	"gacha-summon/internal/catalog"
	"gacha-summon/internal/config"
	"gacha-summon/internal/database"
	"gacha-summon/internal/handlers"
	"gacha-summon/internal/inventory"
	"gacha-summon/internal/middleware"
	"gacha-summon/internal/scheduler"
	"gacha-summon/internal/services/summon"
	"gacha-summon/internal/shopify"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("catalog load failed", "error", err, "path", cfg.CatalogPath)
		os.Exit(1)
	}
	logger.Info("catalog loaded", "products", len(cat.Products), "tickets", len(cat.Tickets))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	jwtMgr := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer)
	shopifyClient := shopify.NewClient(cfg.ShopifyShop, cfg.ShopifyToken)
	orderCache := cache.NewOrderCache(cfg.OrderCacheTTL, shopifyClient.GetOrder)
	inventoryClient := inventory.NewClient(cfg.InventoryURL, cfg.InventoryLogging, logger)
	summonSvc := summon.NewService(cat, store, orderCache, inventoryClient, logger)

	stockWatcher := scheduler.NewStockWatcher(inventoryClient, cat.Products, cfg.StockCheckTick, logger)
	stockWatcher.Start(ctx)
	defer stockWatcher.Stop()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	handler := handlers.NewHandler(cfg, summonSvc, store, cat, stockWatcher, jwtMgr, logger)
	handlers.RegisterRoutes(r, handler, jwtMgr, cfg.AdminAllowedIPs)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	go func() {
		logger.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
