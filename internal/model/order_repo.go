package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamepay/internal/errno"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaidUpdate PENDING -> PAID 时写入的字段
type PaidUpdate struct {
	Amount         decimal.Decimal
	PayTime        time.Time
	PayType        string
	ChannelOrderNo string
	ExtrasParams   map[string]interface{} // 已合并后的完整附加参数
}

// OrderRepo 订单表存取
// 状态流转都是带条件的更新, 并发回调时只有一个请求能完成 PENDING -> PAID
type OrderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// Create 新建订单
func (r *OrderRepo) Create(ctx context.Context, order *Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByOrderNo 按订单号查询
func (r *OrderRepo) FindByOrderNo(ctx context.Context, orderNo string) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", errno.ErrNotFound, orderNo)
		}
		return nil, err
	}
	return &order, nil
}

// FindByCorrelationID 按回调透传ID查询: 先匹配本地订单号, 再匹配调用方订单号
// 调用方订单号不唯一, 命中多条时无法确定归属, 返回状态冲突
func (r *OrderRepo) FindByCorrelationID(ctx context.Context, id string) (*Order, error) {
	order, err := r.FindByOrderNo(ctx, id)
	if err == nil || !errors.Is(err, errno.ErrNotFound) {
		return order, err
	}
	if id == "" {
		return nil, err
	}

	var matches []Order
	err = r.db.WithContext(ctx).Where("cp_order_no = ?", id).Limit(2).Find(&matches).Error
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", errno.ErrNotFound, id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: cp order no %s matches more than one order", errno.ErrStateConflict, id)
	}
}

// MarkPaid 条件更新 PENDING -> PAID, 返回是否由本次调用完成
func (r *OrderRepo) MarkPaid(ctx context.Context, orderNo string, u PaidUpdate) (bool, error) {
	updates := map[string]interface{}{
		"status":        OrderStatusPaid,
		"amount":        u.Amount,
		"pay_time":      u.PayTime,
		"extras_params": datatypes.JSONMap(u.ExtrasParams),
	}
	if u.PayType != "" {
		updates["pay_type"] = u.PayType
	}
	if u.ChannelOrderNo != "" {
		updates["channel_order_no"] = u.ChannelOrderNo
	}

	result := r.db.WithContext(ctx).
		Model(&Order{}).
		Where("order_no = ? AND status = ?", orderNo, OrderStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("update order failed: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkConfirmed 条件更新 PAID -> CONFIRMED
func (r *OrderRepo) MarkConfirmed(ctx context.Context, orderNo, uid string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Order{}).
		Where("order_no = ? AND uid = ? AND status = ?", orderNo, uid, OrderStatusPaid).
		Updates(map[string]interface{}{
			"status":       OrderStatusConfirmed,
			"confirm_time": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("update order failed: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}
