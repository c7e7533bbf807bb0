package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamepay/config"
	"gamepay/internal/fulfillment"
	"gamepay/internal/gateway"
	"gamepay/internal/handler"
	"gamepay/internal/logger"
	"gamepay/internal/middleware"
	"gamepay/internal/model"
	"gamepay/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zl, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	if cfg.Gateway.DecodeKey == "" || cfg.Gateway.ChecksumKey == "" {
		zl.Warn("gateway keys are not configured, payment callbacks will be rejected")
	}

	// 初始化数据库（使用配置的连接池参数）
	dbConfig := model.DBConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
		LogLevel:        cfg.Log.DBLogLevel,
	}
	db, err := model.OpenMySQL(cfg.Database.DSN(), dbConfig)
	if err != nil {
		zl.Fatal("failed to init database", zap.Error(err))
	}

	// 回调分布式锁
	opts := []service.Option{service.WithDevMode(cfg.IsDevelopment())}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			zl.Fatal("failed to connect redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		defer rdb.Close()
		opts = append(opts, service.WithLocker(
			service.NewRedisLocker(rdb, time.Duration(cfg.Redis.LockExpirySeconds)*time.Second),
		))
		zl.Info("callback lock enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// 发货
	gs := fulfillment.NewGameServer(
		cfg.GameServer.BaseURL,
		cfg.GameServer.Token,
		time.Duration(cfg.GameServer.TimeoutSeconds)*time.Second,
	)
	registry, err := fulfillment.Default(gs)
	if err != nil {
		zl.Fatal("failed to build fulfillment registry", zap.Error(err))
	}

	orderService := service.NewOrderService(
		model.NewOrderRepo(db),
		gateway.NewCodec(cfg.Gateway.DecodeKey, cfg.Gateway.ChecksumKey),
		registry,
		opts...,
	)

	stop := make(chan struct{})
	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		go limiter.RunCleanup(5*time.Minute, stop)
	}

	// 设置Gin模式
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 注册路由
	r := handler.NewRouter(handler.RouterConfig{
		Logger:            zl,
		Orders:            orderService,
		Callbacks:         orderService,
		DB:                db,
		JWTSecret:         cfg.JWT.Secret,
		CORSAllowOrigins:  cfg.Server.CORSAllowOrigins,
		CallbackWhitelist: cfg.Gateway.IPWhitelist,
		Limiter:           limiter,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("gamepay server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")
	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	zl.Info("server exited")
}
