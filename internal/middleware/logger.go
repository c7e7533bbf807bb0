package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"gamepay/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

// RequestLogger 为每个请求生成 request_id 并把请求级日志放入 context
func RequestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		l := base.With(
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), l))

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.Duration("cost", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", maskSensitiveData(q)))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			l.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			l.Warn("request", fields...)
		default:
			l.Info("request", fields...)
		}
	}
}

// maskSensitiveData 隐藏签名类参数的值
func maskSensitiveData(data string) string {
	for _, key := range []string{"md5Sign", "sign", "nt_data", "token"} {
		if idx := strings.Index(data, key+"="); idx >= 0 {
			endIdx := strings.Index(data[idx:], "&")
			if endIdx == -1 {
				endIdx = len(data) - idx
			}
			data = data[:idx] + key + "=***" + data[idx+endIdx:]
		}
	}
	return data
}

// CallbackIPWhitelist 回调来源IP白名单, 白名单为空时不限制
func CallbackIPWhitelist(whitelist []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CheckIPWhitelist(c.ClientIP(), whitelist) {
			logger.FromContext(c.Request.Context()).Warn("callback from ip not in whitelist", zap.String("client_ip", c.ClientIP()))
			c.String(http.StatusForbidden, "FAILED")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CheckIPWhitelist 支持单个IP和CIDR
func CheckIPWhitelist(clientIP string, whitelist []string) bool {
	if len(whitelist) == 0 {
		return true
	}

	clientNetIP := net.ParseIP(clientIP)
	if clientNetIP == nil {
		return false
	}

	for _, ip := range whitelist {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			continue
		}
		if strings.Contains(ip, "/") {
			_, network, err := net.ParseCIDR(ip)
			if err == nil && network.Contains(clientNetIP) {
				return true
			}
			continue
		}
		if allowed := net.ParseIP(ip); allowed != nil && allowed.Equal(clientNetIP) {
			return true
		}
	}
	return false
}
