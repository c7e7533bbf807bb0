package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"gamepay/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ContextUID 认证通过后 gin.Context 中的用户ID
	ContextUID = "uid"
)

// UserAuth 玩家认证中间件, 从 JWT 的 uid 声明中取出用户ID
func UserAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			util.Unauthorized(c, "未登录")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			util.Unauthorized(c, "Token格式错误")
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			util.Unauthorized(c, "Token无效或已过期")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			util.Unauthorized(c, "Token无效或已过期")
			c.Abort()
			return
		}
		uid := claimString(claims["uid"])
		if uid == "" {
			util.Unauthorized(c, "Token缺少uid")
			c.Abort()
			return
		}

		c.Set(ContextUID, uid)
		c.Next()
	}
}

// claimString uid 可能是字符串或数字
func claimString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// GetUID 读取当前用户ID
func GetUID(c *gin.Context) string {
	return c.GetString(ContextUID)
}

// CORSWithConfig 带域名白名单的CORS中间件, 白名单为空时允许所有来源
func CORSWithConfig(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if len(allowedOrigins) > 0 {
			allowed := false
			for _, ao := range allowedOrigins {
				if ao == "*" || ao == origin {
					allowed = true
					break
				}
				// *.example.com
				if strings.HasPrefix(ao, "*.") && strings.HasSuffix(origin, ao[1:]) {
					allowed = true
					break
				}
			}
			if allowed {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		} else {
			c.Header("Access-Control-Allow-Origin", "*")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
