package service

import (
	"context"
	"fmt"
	"time"

	"gamepay/internal/errno"
	"gamepay/internal/fulfillment"
	"gamepay/internal/gateway"
	"gamepay/internal/logger"
	"gamepay/internal/model"
	"gamepay/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// OrderStore 订单存取
// MarkPaid / MarkConfirmed 是带状态条件的更新, 返回 false 表示条件不满足
type OrderStore interface {
	Create(ctx context.Context, order *model.Order) error
	FindByOrderNo(ctx context.Context, orderNo string) (*model.Order, error)
	FindByCorrelationID(ctx context.Context, id string) (*model.Order, error)
	MarkPaid(ctx context.Context, orderNo string, u model.PaidUpdate) (bool, error)
	MarkConfirmed(ctx context.Context, orderNo, uid string, at time.Time) (bool, error)
}

// OrderService 订单生命周期: 下单 -> 支付回调 -> 发货 -> 确认收货
type OrderService struct {
	store    OrderStore
	codec    *gateway.Codec
	registry *fulfillment.Registry
	locker   Locker
	devMode  bool
	now      func() time.Time
}

type Option func(*OrderService)

// WithLocker 回调分布式锁
func WithLocker(l Locker) Option {
	return func(s *OrderService) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithDevMode 开发环境允许模拟支付
func WithDevMode(dev bool) Option {
	return func(s *OrderService) { s.devMode = dev }
}

func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

func NewOrderService(store OrderStore, codec *gateway.Codec, registry *fulfillment.Registry, opts ...Option) *OrderService {
	s := &OrderService{
		store:    store,
		codec:    codec,
		registry: registry,
		locker:   NopLocker{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create 创建订单
// 免费商品直接置为已支付并同步发货
func (s *OrderService) Create(ctx context.Context, req *model.CreateOrderRequest, uid string) (*model.Order, error) {
	log := logger.FromContext(ctx).With(zap.String("uid", uid), zap.String("product_id", req.ProductID))

	product, ok := model.GetProduct(req.ProductID)
	if !ok {
		return nil, errno.NewValidationError([]string{fmt.Sprintf("unknown product %q", req.ProductID)})
	}

	var errs []string
	if uid == "" {
		errs = append(errs, "uid is required")
	}
	if res := s.registry.ValidateRequest(req); !res.Valid {
		errs = append(errs, res.Errors...)
	}

	amount := product.Price
	if req.Amount != nil {
		amount = *req.Amount
		if amount.IsNegative() {
			errs = append(errs, "amount must not be negative")
		} else if !amount.Equal(product.Price) {
			log.Warn("order amount differs from catalog price",
				zap.String("amount", amount.String()),
				zap.String("price", product.Price.String()),
			)
		}
	}
	if err := errno.NewValidationError(errs); err != nil {
		return nil, err
	}

	now := s.now()
	order := &model.Order{
		OrderNo:      util.GenerateOrderNo(uid, now),
		UID:          uid,
		ProductID:    product.ID,
		Amount:       amount,
		Status:       model.OrderStatusPending,
		CpOrderNo:    req.CpOrderNo,
		RoleName:     req.RoleName,
		ServerName:   req.ServerName,
		ExtrasParams: datatypes.JSONMap(req.ExtrasParams),
	}
	// 只有目录价格为0的商品走免费路径, 客户端传0不能跳过支付
	if amount.IsZero() && product.Price.IsZero() {
		order.Status = model.OrderStatusPaid
		order.PayTime = &now
	}

	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	log.Info("order created",
		zap.String("order_no", order.OrderNo),
		zap.String("amount", order.Amount.String()),
		zap.String("status", string(order.Status)),
	)

	if order.Status == model.OrderStatusPaid {
		s.fulfill(ctx, order)
	}
	return order, nil
}

// ConfirmReceipt 用户确认收货, 只有 PAID 可以确认
func (s *OrderService) ConfirmReceipt(ctx context.Context, orderNo, uid string) (*model.Order, error) {
	order, err := s.ownedOrder(ctx, orderNo, uid)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusPaid {
		return nil, fmt.Errorf("%w: order %s is %s", errno.ErrStateConflict, orderNo, order.Status)
	}

	at := s.now()
	applied, err := s.store.MarkConfirmed(ctx, orderNo, uid, at)
	if err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}
	if !applied {
		// 读和写之间状态被其他请求改掉了
		return nil, fmt.Errorf("%w: order %s changed concurrently", errno.ErrStateConflict, orderNo)
	}

	order.Status = model.OrderStatusConfirmed
	order.ConfirmTime = &at
	logger.FromContext(ctx).Info("order confirmed", zap.String("order_no", orderNo), zap.String("uid", uid))
	return order, nil
}

// StatusView 轮询结果, 未支付时只返回最少字段
type StatusView struct {
	OrderNo     string            `json:"orderNo"`
	Status      model.OrderStatus `json:"status"`
	Paid        bool              `json:"paid"`
	Amount      *decimal.Decimal  `json:"amount,omitempty"`
	PayType     string            `json:"payType,omitempty"`
	PayTime     *time.Time        `json:"payTime,omitempty"`
	ConfirmTime *time.Time        `json:"confirmTime,omitempty"`
}

// PollStatus 客户端轮询支付结果
func (s *OrderService) PollStatus(ctx context.Context, orderNo, uid string) (*StatusView, error) {
	order, err := s.ownedOrder(ctx, orderNo, uid)
	if err != nil {
		return nil, err
	}
	view := &StatusView{
		OrderNo: order.OrderNo,
		Status:  order.Status,
		Paid:    order.Status.IsPaid(),
	}
	if view.Paid {
		amount := order.Amount
		view.Amount = &amount
		view.PayType = order.PayType
		view.PayTime = order.PayTime
		view.ConfirmTime = order.ConfirmTime
	}
	return view, nil
}

// PaymentView 订单支付详情
type PaymentView struct {
	OrderID        uint                   `json:"orderId"`
	OrderNo        string                 `json:"orderNo"`
	ProductID      string                 `json:"productId"`
	Amount         decimal.Decimal        `json:"amount"`
	Status         model.OrderStatus      `json:"status"`
	CpOrderNo      string                 `json:"cpOrderNo,omitempty"`
	ChannelOrderNo string                 `json:"channelOrderNo,omitempty"`
	PayType        string                 `json:"payType,omitempty"`
	PayTime        *time.Time             `json:"payTime,omitempty"`
	ConfirmTime    *time.Time             `json:"confirmTime,omitempty"`
	ExtrasParams   map[string]interface{} `json:"extrasParams,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
}

// PaymentStatus 订单支付详情
func (s *OrderService) PaymentStatus(ctx context.Context, orderNo, uid string) (*PaymentView, error) {
	order, err := s.ownedOrder(ctx, orderNo, uid)
	if err != nil {
		return nil, err
	}
	return &PaymentView{
		OrderID:        order.ID,
		OrderNo:        order.OrderNo,
		ProductID:      order.ProductID,
		Amount:         order.Amount,
		Status:         order.Status,
		CpOrderNo:      order.CpOrderNo,
		ChannelOrderNo: order.ChannelOrderNo,
		PayType:        order.PayType,
		PayTime:        order.PayTime,
		ConfirmTime:    order.ConfirmTime,
		ExtrasParams:   order.ExtrasParams,
		CreatedAt:      order.CreatedAt,
	}, nil
}

// MockPayment 开发环境模拟支付成功, 金额保持订单金额
func (s *OrderService) MockPayment(ctx context.Context, orderNo, uid string) (*model.Order, error) {
	if !s.devMode {
		return nil, errno.ErrMockDisabled
	}
	order, err := s.ownedOrder(ctx, orderNo, uid)
	if err != nil {
		return nil, err
	}
	if order.Status.IsPaid() {
		return order, nil
	}
	if order.Status != model.OrderStatusPending {
		return nil, fmt.Errorf("%w: order %s is %s", errno.ErrStateConflict, orderNo, order.Status)
	}

	update := model.PaidUpdate{
		Amount:         order.Amount,
		PayTime:        s.now(),
		PayType:        "mock",
		ChannelOrderNo: "mock_" + order.OrderNo,
		ExtrasParams:   order.ExtrasParams,
	}
	paid, err := s.markPaid(ctx, order, update)
	if err != nil || paid == nil {
		return order, err
	}
	logger.FromContext(ctx).Info("mock payment applied", zap.String("order_no", orderNo))
	s.fulfill(ctx, paid)
	return paid, nil
}

// markPaid PENDING -> PAID
// 条件更新没有生效时重新读取订单并返回 nil, 表示已被其他请求处理
func (s *OrderService) markPaid(ctx context.Context, order *model.Order, u model.PaidUpdate) (*model.Order, error) {
	applied, err := s.store.MarkPaid(ctx, order.OrderNo, u)
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	if !applied {
		current, err := s.store.FindByOrderNo(ctx, order.OrderNo)
		if err != nil {
			return nil, err
		}
		if !current.Status.IsPaid() {
			return nil, fmt.Errorf("%w: order %s is %s", errno.ErrStateConflict, order.OrderNo, current.Status)
		}
		*order = *current
		logger.FromContext(ctx).Info("order already paid by a concurrent request", zap.String("order_no", order.OrderNo))
		return nil, nil
	}

	paid := *order
	payTime := u.PayTime
	paid.Status = model.OrderStatusPaid
	paid.Amount = u.Amount
	paid.PayTime = &payTime
	if u.PayType != "" {
		paid.PayType = u.PayType
	}
	if u.ChannelOrderNo != "" {
		paid.ChannelOrderNo = u.ChannelOrderNo
	}
	paid.ExtrasParams = datatypes.JSONMap(u.ExtrasParams)
	return &paid, nil
}

// fulfill 发货失败只记录日志
func (s *OrderService) fulfill(ctx context.Context, order *model.Order) {
	res := s.registry.Dispatch(ctx, order)
	if !res.Success {
		logger.FromContext(ctx).Error("order paid but fulfillment failed",
			zap.String("order_no", order.OrderNo),
			zap.String("message", res.Message),
		)
	}
}

// ownedOrder 查询用户自己的订单, 他人订单按不存在处理
func (s *OrderService) ownedOrder(ctx context.Context, orderNo, uid string) (*model.Order, error) {
	order, err := s.store.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order.UID != uid {
		return nil, fmt.Errorf("%w: %s", errno.ErrNotFound, orderNo)
	}
	return order, nil
}
