package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/minhngo/voucher-sale/internal/adapter/handler"
	"github.com/minhngo/voucher-sale/internal/adapter/storage"
	"github.com/minhngo/voucher-sale/internal/cache"
	"github.com/minhngo/voucher-sale/internal/config"
	"github.com/minhngo/voucher-sale/internal/core/service"
	"github.com/minhngo/voucher-sale/internal/idgen"
	"github.com/minhngo/voucher-sale/internal/lock"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.MySQLMaxOpen)
	db.SetMaxIdleConns(cfg.MySQLMaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: cfg.RedisPoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("ping redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Adapters
	redisAdapter := storage.NewRedisAdapter(rdb, cfg.OrderStream, cfg.OrderGroup, cfg.OrderConsumer)
	mysqlAdapter := storage.NewMySQLAdapter(db)
	lockFactory := lock.NewFactory(rdb)

	if err := redisAdapter.EnsureGroup(ctx); err != nil {
		logger.Fatal("ensure consumer group", zap.Error(err))
	}

	cacheClient := cache.New(rdb, lockFactory, logger, cfg.CacheWorkers, cfg.CacheQueueLen)
	catalog := service.NewCatalogService(cacheClient, mysqlAdapter, logger)

	// Seed per-voucher stock counters and pre-warm their shops.
	vouchers, err := mysqlAdapter.ListVouchers(ctx)
	if err != nil {
		logger.Fatal("list vouchers", zap.Error(err))
	}
	for _, v := range vouchers {
		if err := redisAdapter.InitStock(ctx, v.ID, v.Stock); err != nil {
			logger.Fatal("seed voucher stock", zap.Int64("voucherId", v.ID), zap.Error(err))
		}
		if err := catalog.WarmShop(ctx, v.ShopID, cfg.ShopWarmTTL); err != nil {
			logger.Warn("warm shop", zap.Int64("shopId", v.ShopID), zap.Error(err))
		}
	}
	logger.Info("seeded voucher stock", zap.Int("vouchers", len(vouchers)))

	// Services
	ids := idgen.NewWorker(rdb)
	seckill := service.NewSeckillService(redisAdapter, catalog, ids, logger)
	intake := service.NewIntakeService(redisAdapter, mysqlAdapter, lockFactory, logger, cfg.QueueReadBlock)

	// Single intake worker by design: materialization stays serialized.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		intake.Run(workerCtx)
	}()

	// HTTP server
	httpHandler := handler.NewHTTPHandler(seckill, catalog)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/voucher/seckill", httpHandler.Seckill)
	mux.HandleFunc("/api/shop", httpHandler.Shop)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("http server stopped")

	stopWorker()
	wg.Wait()
	logger.Info("intake worker stopped")

	cacheClient.Close()
	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}
