package handler

import (
	"context"
	"net/http"

	"gamepay/internal/logger"
	"gamepay/internal/service"
	"gamepay/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const callbackFailed = "FAILED"

// CallbackService 回调依赖的服务
type CallbackService interface {
	ApplyCallback(ctx context.Context, p service.CallbackParams) (string, error)
}

// CallbackHandler 支付网关异步通知
type CallbackHandler struct {
	svc CallbackService
}

func NewCallbackHandler(svc CallbackService) *CallbackHandler {
	return &CallbackHandler{svc: svc}
}

// Notify 支付回调, 只返回纯文本 SUCCESS / FAILED
// POST /api/pay/callback
func (h *CallbackHandler) Notify(c *gin.Context) {
	params := service.CallbackParams{
		NtData:  c.PostForm("nt_data"),
		Sign:    c.PostForm("sign"),
		Md5Sign: c.PostForm("md5Sign"),
	}

	ack, err := h.svc.ApplyCallback(c.Request.Context(), params)
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("callback rejected",
			zap.Error(err),
			zap.String("nt_data", util.TruncateString(params.NtData, 64)),
		)
		c.String(statusOf(err), callbackFailed)
		return
	}
	c.String(http.StatusOK, ack)
}
