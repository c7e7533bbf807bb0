package handler

import (
	"errors"
	"net/http"

	"gamepay/internal/errno"
	"gamepay/internal/logger"
	"gamepay/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusOf 业务错误 -> HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, errno.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, errno.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, errno.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, errno.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errno.ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, errno.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errno.ErrMockDisabled):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError 统一错误响应
func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	log := logger.FromContext(c.Request.Context())

	switch status {
	case http.StatusUnprocessableEntity:
		var verr *errno.ValidationError
		if errors.As(err, &verr) {
			util.ValidationError(c, "参数错误", verr.Errors)
			return
		}
		util.ValidationError(c, err.Error(), nil)
	case http.StatusNotFound:
		util.NotFound(c, "")
	case http.StatusConflict:
		util.Fail(c, status, util.CodeStateConflict, err.Error(), nil)
	case http.StatusForbidden:
		util.Forbidden(c, err.Error())
	case http.StatusUnauthorized:
		util.Fail(c, status, util.CodeInvalidSign, err.Error(), nil)
	case http.StatusBadRequest:
		util.BadRequest(c, err.Error())
	default:
		log.Error("request failed", zap.Error(err))
		util.ServerError(c, "")
	}
}
