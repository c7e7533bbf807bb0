package fulfillment

import (
	"context"
	"fmt"

	"gamepay/internal/logger"
	"gamepay/internal/model"

	"go.uber.org/zap"
)

// ValidationResult 下单参数校验结果, Errors 收集全部错误
type ValidationResult struct {
	Valid  bool
	Errors []string
}

func valid() ValidationResult {
	return ValidationResult{Valid: true}
}

func invalid(errs []string) ValidationResult {
	if len(errs) == 0 {
		return valid()
	}
	return ValidationResult{Valid: false, Errors: errs}
}

// Result 发货结果, 只记录日志, 不影响回调应答
type Result struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Validator 商品下单参数校验
type Validator interface {
	ProductID() string
	Validate(req *model.CreateOrderRequest) ValidationResult
}

// Handler 商品发货
// Validate 是发货前对已落库订单的检查, 不通过时不调用 Handle
type Handler interface {
	ProductID() string
	Validate(order *model.Order) error
	Handle(ctx context.Context, order *model.Order) (Result, error)
}

// Registry 商品 -> 校验器/发货处理器
// 启动时构建, 之后只读, 并发使用不需要加锁
type Registry struct {
	validators map[string]Validator
	handlers   map[string]Handler
}

// NewRegistry 从显式列表构建, 同一商品重复注册返回错误
func NewRegistry(validators []Validator, handlers []Handler) (*Registry, error) {
	r := &Registry{
		validators: make(map[string]Validator, len(validators)),
		handlers:   make(map[string]Handler, len(handlers)),
	}
	for _, v := range validators {
		if _, dup := r.validators[v.ProductID()]; dup {
			return nil, fmt.Errorf("duplicate validator for product %s", v.ProductID())
		}
		r.validators[v.ProductID()] = v
	}
	for _, h := range handlers {
		if _, dup := r.handlers[h.ProductID()]; dup {
			return nil, fmt.Errorf("duplicate handler for product %s", h.ProductID())
		}
		r.handlers[h.ProductID()] = h
	}
	return r, nil
}

// ValidateRequest 没有注册校验器的商品视为通过
func (r *Registry) ValidateRequest(req *model.CreateOrderRequest) ValidationResult {
	v, ok := r.validators[req.ProductID]
	if !ok {
		return valid()
	}
	return v.Validate(req)
}

// Dispatch 执行发货
// 处理器返回的错误和 panic 都转成失败结果, 不会向上抛出
func (r *Registry) Dispatch(ctx context.Context, order *model.Order) (res Result) {
	log := logger.FromContext(ctx).With(
		zap.String("order_no", order.OrderNo),
		zap.String("product_id", order.ProductID),
	)

	h, ok := r.handlers[order.ProductID]
	if !ok {
		log.Warn("no fulfillment handler registered")
		return Result{Success: true, Message: "no fulfillment handler"}
	}

	if err := checkPrice(order); err != nil {
		log.Warn("paid amount below catalog price", zap.String("amount", order.Amount.String()), zap.Error(err))
		return Result{Success: false, Message: err.Error()}
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("fulfillment handler panicked", zap.Any("panic", p))
			res = Result{Success: false, Message: fmt.Sprintf("fulfillment panic: %v", p)}
		}
	}()

	if err := h.Validate(order); err != nil {
		log.Warn("fulfillment pre-check failed", zap.Error(err))
		return Result{Success: false, Message: err.Error()}
	}

	out, err := h.Handle(ctx, order)
	if err != nil {
		log.Error("fulfillment failed", zap.Error(err))
		return Result{Success: false, Message: err.Error(), Data: out.Data}
	}

	if out.Success {
		log.Info("fulfillment done", zap.String("message", out.Message), zap.Any("data", out.Data))
	} else {
		log.Warn("fulfillment incomplete", zap.String("message", out.Message), zap.Any("data", out.Data))
	}
	return out
}

// checkPrice 发货时以商品目录价格为准, 实付不足不发货
func checkPrice(order *model.Order) error {
	product, ok := model.GetProduct(order.ProductID)
	if !ok {
		return nil
	}
	if order.Amount.LessThan(product.Price) {
		return fmt.Errorf("paid amount %s is below price %s", order.Amount, product.Price)
	}
	return nil
}

// Default 默认注册表
func Default(gs GameServer) (*Registry, error) {
	return NewRegistry(
		[]Validator{
			GuildValidator{},
			RoleValidator{},
		},
		[]Handler{
			NewGuildHandler(gs),
			NewRoleHandler(gs),
			NewGiftHandler(gs),
		},
	)
}
