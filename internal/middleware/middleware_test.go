package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gamepay/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Now()

	if !rl.allowAt("a", now) || !rl.allowAt("a", now) {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.allowAt("a", now) {
		t.Fatal("third request in the same instant should be limited")
	}
	if !rl.allowAt("b", now) {
		t.Fatal("buckets are per key")
	}
	if !rl.allowAt("a", now.Add(1100*time.Millisecond)) {
		t.Fatal("token should refill after a second")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.allowAt("old", time.Now().Add(-time.Hour))
	rl.Allow("new")
	rl.Cleanup()
	if _, ok := rl.buckets["old"]; ok {
		t.Error("idle bucket should be removed")
	}
	if _, ok := rl.buckets["new"]; !ok {
		t.Error("active bucket should be kept")
	}
}

func TestCheckIPWhitelist(t *testing.T) {
	cases := []struct {
		ip        string
		whitelist []string
		want      bool
	}{
		{"1.2.3.4", nil, true},
		{"1.2.3.4", []string{"1.2.3.4"}, true},
		{"1.2.3.5", []string{"1.2.3.4"}, false},
		{"10.9.8.7", []string{" 10.0.0.0/8 "}, true},
		{"not-an-ip", []string{"10.0.0.0/8"}, false},
		{"::1", []string{"::1"}, true},
	}
	for _, tc := range cases {
		if got := CheckIPWhitelist(tc.ip, tc.whitelist); got != tc.want {
			t.Errorf("CheckIPWhitelist(%q, %v) = %v, want %v", tc.ip, tc.whitelist, got, tc.want)
		}
	}
}

func TestMaskSensitiveData(t *testing.T) {
	got := maskSensitiveData("a=1&md5Sign=abc&sign=def&token=xyz")
	want := "a=1&md5Sign=***&sign=***&token=***"
	if got != want {
		t.Errorf("maskSensitiveData = %q, want %q", got, want)
	}
}

func TestClaimString(t *testing.T) {
	if claimString(float64(1000010086)) != "1000010086" {
		t.Error("numeric uid must be formatted without exponent")
	}
	if claimString("u1") != "u1" || claimString(nil) != "" {
		t.Error("unexpected claim conversion")
	}
}

func TestRequestLoggerInjectsLogger(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	var injected bool
	r.GET("/x", func(c *gin.Context) {
		injected = logger.FromContext(c.Request.Context()) != zap.L()
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if !injected {
		t.Error("request logger not found in context")
	}
	if w.Header().Get(HeaderRequestID) != "rid-1" {
		t.Errorf("request id not echoed: %q", w.Header().Get(HeaderRequestID))
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSWithConfig([]string{"*.example.com"}))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://shop.example.com" {
		t.Errorf("origin not allowed: %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}
