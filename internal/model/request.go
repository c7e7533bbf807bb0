package model

import "github.com/shopspring/decimal"

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	ProductID    string                 `json:"productId" binding:"required"`
	Amount       *decimal.Decimal       `json:"amount"` // 为空时取商品价格
	CpOrderNo    string                 `json:"cpOrderNo"`
	RoleName     string                 `json:"roleName"`
	ServerName   string                 `json:"serverName"`
	ExtrasParams map[string]interface{} `json:"extrasParams"`
}
