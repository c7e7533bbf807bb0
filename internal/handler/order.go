package handler

import (
	"context"
	"time"

	"gamepay/internal/middleware"
	"gamepay/internal/model"
	"gamepay/internal/service"
	"gamepay/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OrderService 订单接口依赖的服务
type OrderService interface {
	Create(ctx context.Context, req *model.CreateOrderRequest, uid string) (*model.Order, error)
	ConfirmReceipt(ctx context.Context, orderNo, uid string) (*model.Order, error)
	PollStatus(ctx context.Context, orderNo, uid string) (*service.StatusView, error)
	PaymentStatus(ctx context.Context, orderNo, uid string) (*service.PaymentView, error)
	MockPayment(ctx context.Context, orderNo, uid string) (*model.Order, error)
}

// OrderHandler 玩家订单接口
type OrderHandler struct {
	svc OrderService
}

func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// OrderResponse 订单返回
type OrderResponse struct {
	OrderID     uint              `json:"orderId"`
	OrderNo     string            `json:"orderNo"`
	UID         string            `json:"uid"`
	ProductID   string            `json:"productId"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      model.OrderStatus `json:"status"`
	PayTime     *time.Time        `json:"payTime,omitempty"`
	ConfirmTime *time.Time        `json:"confirmTime,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

func toOrderResponse(o *model.Order) OrderResponse {
	return OrderResponse{
		OrderID:     o.ID,
		OrderNo:     o.OrderNo,
		UID:         o.UID,
		ProductID:   o.ProductID,
		Amount:      o.Amount,
		Status:      o.Status,
		PayTime:     o.PayTime,
		ConfirmTime: o.ConfirmTime,
		CreatedAt:   o.CreatedAt,
	}
}

// Create 创建订单
// POST /api/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req model.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.ValidationError(c, "参数错误", []string{err.Error()})
		return
	}

	order, err := h.svc.Create(c.Request.Context(), &req, middleware.GetUID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	util.Success(c, toOrderResponse(order))
}

// Confirm 确认收货
// POST /api/orders/:orderNo/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	order, err := h.svc.ConfirmReceipt(c.Request.Context(), c.Param("orderNo"), middleware.GetUID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	util.Success(c, toOrderResponse(order))
}

// Poll 轮询支付状态
// GET /api/orders/:orderNo/poll
func (h *OrderHandler) Poll(c *gin.Context) {
	view, err := h.svc.PollStatus(c.Request.Context(), c.Param("orderNo"), middleware.GetUID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	util.Success(c, view)
}

// PaymentStatus 支付详情
// GET /api/orders/:orderNo/payment-status
func (h *OrderHandler) PaymentStatus(c *gin.Context) {
	view, err := h.svc.PaymentStatus(c.Request.Context(), c.Param("orderNo"), middleware.GetUID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	util.Success(c, view)
}

// MockPay 模拟支付, 仅开发环境
// POST /api/orders/:orderNo/mock-pay
func (h *OrderHandler) MockPay(c *gin.Context) {
	order, err := h.svc.MockPayment(c.Request.Context(), c.Param("orderNo"), middleware.GetUID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	util.SuccessWithMsg(c, "模拟支付成功", toOrderResponse(order))
}

// Products 商品列表
// GET /api/products
func (h *OrderHandler) Products(c *gin.Context) {
	util.Success(c, model.Products())
}
