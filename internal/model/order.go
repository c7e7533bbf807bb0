package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderStatus 订单状态, 只能前进: PENDING -> PAID -> CONFIRMED
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"   // 待支付
	OrderStatusPaid      OrderStatus = "PAID"      // 已支付
	OrderStatusConfirmed OrderStatus = "CONFIRMED" // 已确认收货
)

// IsPaid 已支付或之后的状态
func (s OrderStatus) IsPaid() bool {
	return s == OrderStatusPaid || s == OrderStatusConfirmed
}

// Order 游戏商品订单表
type Order struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	OrderNo        string            `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	UID            string            `gorm:"column:uid;type:varchar(64);index;not null" json:"uid"`
	ProductID      string            `gorm:"type:varchar(64);not null" json:"product_id"`
	Amount         decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status         OrderStatus       `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`
	CpOrderNo      string            `gorm:"type:varchar(64);index" json:"cp_order_no,omitempty"`      // 调用方透传订单号
	ChannelOrderNo string            `gorm:"type:varchar(100)" json:"channel_order_no,omitempty"`      // 网关订单号
	PayType        string            `gorm:"type:varchar(32)" json:"pay_type,omitempty"`
	PayTime        *time.Time        `json:"pay_time,omitempty"`
	ConfirmTime    *time.Time        `json:"confirm_time,omitempty"`
	RoleName       string            `gorm:"type:varchar(64)" json:"role_name,omitempty"`
	ServerName     string            `gorm:"type:varchar(64)" json:"server_name,omitempty"`
	ExtrasParams   datatypes.JSONMap `json:"extras_params,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (Order) TableName() string {
	return "game_orders"
}

// Extra 读取附加参数
func (o *Order) Extra(key string) (interface{}, bool) {
	if o.ExtrasParams == nil {
		return nil, false
	}
	v, ok := o.ExtrasParams[key]
	return v, ok
}

// MergeExtras 合并附加参数, 新值覆盖同名旧值, 其余保留
func MergeExtras(current map[string]interface{}, incoming map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(current)+len(incoming))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return merged
}
