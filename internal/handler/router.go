package handler

import (
	"gamepay/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterConfig 路由依赖
type RouterConfig struct {
	Logger            *zap.Logger
	Orders            OrderService
	Callbacks         CallbackService
	DB                *gorm.DB // 为空时不注册 /health
	JWTSecret         string
	CORSAllowOrigins  []string
	CallbackWhitelist []string
	Limiter           *middleware.RateLimiter // 为空时不限流
}

// NewRouter 注册全部路由
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.CORSWithConfig(cfg.CORSAllowOrigins))

	if cfg.DB != nil {
		r.GET("/health", NewHealthHandler(cfg.DB).Health)
	}

	// 网关回调不走用户认证, 靠签名校验
	callbackHandler := NewCallbackHandler(cfg.Callbacks)
	r.POST("/api/pay/callback", middleware.CallbackIPWhitelist(cfg.CallbackWhitelist), callbackHandler.Notify)

	orderHandler := NewOrderHandler(cfg.Orders)
	r.GET("/api/products", orderHandler.Products)

	orders := r.Group("/api/orders")
	orders.Use(middleware.UserAuth(cfg.JWTSecret))
	if cfg.Limiter != nil {
		orders.Use(middleware.RateLimit(cfg.Limiter))
	}
	{
		orders.POST("", orderHandler.Create)
		orders.POST("/:orderNo/confirm", orderHandler.Confirm)
		orders.GET("/:orderNo/payment-status", orderHandler.PaymentStatus)
		orders.GET("/:orderNo/poll", orderHandler.Poll)
		orders.POST("/:orderNo/mock-pay", orderHandler.MockPay)
	}
	return r
}
