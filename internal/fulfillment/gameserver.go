package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gamepay/internal/logger"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// GameServer 游戏服发货接口
type GameServer interface {
	CreateGuild(ctx context.Context, req GuildRequest) (string, error)
	CreateRole(ctx context.Context, req RoleRequest) (string, error)
	GrantGift(ctx context.Context, req GiftRequest) error
}

type GuildRequest struct {
	OrderNo    string `json:"orderNo"`
	UID        string `json:"uid"`
	ServerName string `json:"serverName"`
	GuildName  string `json:"guildName"`
}

type RoleRequest struct {
	OrderNo  string `json:"orderNo"`
	UID      string `json:"uid"`
	Region   string `json:"region"`
	RoleName string `json:"roleName"`
}

type GiftRequest struct {
	OrderNo    string `json:"orderNo"`
	UID        string `json:"uid"`
	PackID     string `json:"packId"`
	ServerName string `json:"serverName,omitempty"`
	RoleName   string `json:"roleName,omitempty"`
}

// apiResponse 游戏服统一返回格式
type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// HTTPGameServer 通过 HTTP 调用游戏服 GM 接口
type HTTPGameServer struct {
	baseURL    string
	token      string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration // 重试基础延迟, 指数退避
	client     *fasthttp.Client
}

func NewHTTPGameServer(baseURL, token string, timeout time.Duration) *HTTPGameServer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGameServer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		timeout:    timeout,
		maxRetries: 2,
		retryDelay: 200 * time.Millisecond,
		client: &fasthttp.Client{
			Name:                "gamepay",
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
}

func (s *HTTPGameServer) CreateGuild(ctx context.Context, req GuildRequest) (string, error) {
	var data struct {
		GuildID string `json:"guildId"`
	}
	if err := s.post(ctx, "/gm/guild/create", req, &data); err != nil {
		return "", err
	}
	return data.GuildID, nil
}

func (s *HTTPGameServer) CreateRole(ctx context.Context, req RoleRequest) (string, error) {
	var data struct {
		RoleID string `json:"roleId"`
	}
	if err := s.post(ctx, "/gm/role/create", req, &data); err != nil {
		return "", err
	}
	return data.RoleID, nil
}

func (s *HTTPGameServer) GrantGift(ctx context.Context, req GiftRequest) error {
	return s.post(ctx, "/gm/gift/grant", req, nil)
}

func (s *HTTPGameServer) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	// 游戏服按 orderNo 去重, 网络错误和 5xx 可以安全重试
	var lastErr error
	for retry := 0; retry <= s.maxRetries; retry++ {
		if retry > 0 {
			delay := s.retryDelay * time.Duration(1<<uint(retry-1))
			logger.FromContext(ctx).Warn("game server call failed, retrying",
				zap.String("path", path),
				zap.Int("attempt", retry),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("game server %s: %w", path, ctx.Err())
			case <-time.After(delay):
			}
		}

		var retryable bool
		retryable, lastErr = s.do(ctx, path, payload, out)
		if lastErr == nil || !retryable {
			return lastErr
		}
	}
	return lastErr
}

// do 发送一次请求, 返回错误是否可重试
func (s *HTTPGameServer) do(ctx context.Context, path string, payload []byte, out interface{}) (bool, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if s.token != "" {
		req.Header.Set("X-GM-Token", s.token)
	}
	req.SetBody(payload)

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	err := s.client.DoDeadline(req, resp, deadline)
	logger.FromContext(ctx).Debug("game server call",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("cost", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		return true, fmt.Errorf("game server %s: %w", path, err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return code >= fasthttp.StatusInternalServerError, fmt.Errorf("game server %s: status code %d", path, code)
	}

	var ar apiResponse
	if err := json.Unmarshal(resp.Body(), &ar); err != nil {
		return false, fmt.Errorf("game server %s: invalid response: %w", path, err)
	}
	if ar.Code != 0 {
		return false, fmt.Errorf("game server %s: code %d: %s", path, ar.Code, ar.Msg)
	}
	if out != nil && len(ar.Data) > 0 {
		if err := json.Unmarshal(ar.Data, out); err != nil {
			return false, fmt.Errorf("game server %s: invalid data: %w", path, err)
		}
	}
	return false, nil
}

// LogGameServer 未配置游戏服地址时使用, 只记录日志
type LogGameServer struct{}

func (LogGameServer) CreateGuild(ctx context.Context, req GuildRequest) (string, error) {
	logger.FromContext(ctx).Info("create guild (log only)",
		zap.String("uid", req.UID),
		zap.String("server_name", req.ServerName),
		zap.String("guild_name", req.GuildName),
	)
	return "guild_" + req.OrderNo, nil
}

func (LogGameServer) CreateRole(ctx context.Context, req RoleRequest) (string, error) {
	logger.FromContext(ctx).Info("create role (log only)",
		zap.String("uid", req.UID),
		zap.String("region", req.Region),
		zap.String("role_name", req.RoleName),
	)
	return "role_" + req.Region + "_" + req.OrderNo, nil
}

func (LogGameServer) GrantGift(ctx context.Context, req GiftRequest) error {
	logger.FromContext(ctx).Info("grant gift (log only)",
		zap.String("uid", req.UID),
		zap.String("pack_id", req.PackID),
	)
	return nil
}

// NewGameServer baseURL 为空时返回只记日志的实现
func NewGameServer(baseURL, token string, timeout time.Duration) GameServer {
	if baseURL == "" {
		return LogGameServer{}
	}
	return NewHTTPGameServer(baseURL, token, timeout)
}
