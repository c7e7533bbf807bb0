package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 统一错误码定义
const (
	CodeSuccess       = 1    // 成功
	CodeError         = -1   // 通用错误
	CodeBadRequest    = -400 // 请求格式错误
	CodeUnauthorized  = -401 // 未授权
	CodeForbidden     = -403 // 禁止访问
	CodeNotFound      = -404 // 订单不存在
	CodeStateConflict = -409 // 订单状态不允许该操作
	CodeValidation    = -422 // 参数验证失败
	CodeRateLimit     = -429 // 请求过于频繁
	CodeServerError   = -500 // 服务器内部错误
	CodeInvalidSign   = -602 // 回调签名错误
)

// Response 统一响应结构
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: CodeSuccess,
		Msg:  "success",
		Data: data,
	})
}

// SuccessWithMsg 成功响应（自定义消息）
func SuccessWithMsg(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: CodeSuccess,
		Msg:  msg,
		Data: data,
	})
}

// Fail 带HTTP状态码的错误响应
func Fail(c *gin.Context, status, code int, msg string, data interface{}) {
	c.JSON(status, Response{
		Code: code,
		Msg:  msg,
		Data: data,
	})
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, msg string) {
	if msg == "" {
		msg = "未登录或登录已过期"
	}
	Fail(c, http.StatusUnauthorized, CodeUnauthorized, msg, nil)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, msg string) {
	if msg == "" {
		msg = "没有访问权限"
	}
	Fail(c, http.StatusForbidden, CodeForbidden, msg, nil)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, msg string) {
	if msg == "" {
		msg = "订单不存在"
	}
	Fail(c, http.StatusNotFound, CodeNotFound, msg, nil)
}

// ValidationError 参数验证失败响应, errors 为完整的错误列表
func ValidationError(c *gin.Context, msg string, errors []string) {
	if msg == "" {
		msg = "参数错误"
	}
	var data interface{}
	if len(errors) > 0 {
		data = gin.H{"errors": errors}
	}
	Fail(c, http.StatusUnprocessableEntity, CodeValidation, msg, data)
}

// BadRequest 请求格式错误
func BadRequest(c *gin.Context, msg string) {
	if msg == "" {
		msg = "请求格式错误"
	}
	Fail(c, http.StatusBadRequest, CodeBadRequest, msg, nil)
}

// RateLimitError 请求过于频繁响应
func RateLimitError(c *gin.Context) {
	Fail(c, http.StatusTooManyRequests, CodeRateLimit, "请求过于频繁，请稍后再试", nil)
}

// ServerError 服务器内部错误响应
func ServerError(c *gin.Context, msg string) {
	if msg == "" {
		msg = "服务器内部错误"
	}
	Fail(c, http.StatusInternalServerError, CodeServerError, msg, nil)
}
