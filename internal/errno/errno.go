package errno

import (
	"errors"
	"strings"
)

var (
	// ErrConfiguration 网关密钥缺失, 回调链路不可用
	ErrConfiguration = errors.New("gateway configuration missing")
	// ErrAuthentication 回调签名校验失败
	ErrAuthentication = errors.New("callback signature mismatch")
	// ErrMalformedPayload 回调报文解码或解析失败
	ErrMalformedPayload = errors.New("malformed callback payload")

	ErrNotFound      = errors.New("order not found")
	ErrStateConflict = errors.New("order state conflict")
	ErrValidation    = errors.New("invalid order request")

	// ErrMockDisabled 非开发环境禁止模拟支付
	ErrMockDisabled = errors.New("mock payment is only available in development")
)

// ValidationError 携带完整的校验错误列表
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError 构建校验错误, 列表为空时返回 nil
func NewValidationError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}
