package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gamepay/internal/errno"
	"gamepay/internal/model"

	"gorm.io/datatypes"
)

// memStore 内存版订单表, 条件更新语义与数据库实现一致
type memStore struct {
	mu     sync.Mutex
	nextID uint
	orders map[string]*model.Order
}

func newMemStore() *memStore {
	return &memStore{orders: make(map[string]*model.Order)}
}

func (m *memStore) Create(_ context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.OrderNo]; ok {
		return fmt.Errorf("duplicate order_no %s", order.OrderNo)
	}
	m.nextID++
	order.ID = m.nextID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	cp := *order
	m.orders[order.OrderNo] = &cp
	return nil
}

func (m *memStore) FindByOrderNo(_ context.Context, orderNo string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderNo]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errno.ErrNotFound, orderNo)
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) FindByCorrelationID(ctx context.Context, id string) (*model.Order, error) {
	if o, err := m.FindByOrderNo(ctx, id); err == nil {
		return o, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *model.Order
	for _, o := range m.orders {
		if o.CpOrderNo == "" || o.CpOrderNo != id {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: cp order no %s matches more than one order", errno.ErrStateConflict, id)
		}
		cp := *o
		found = &cp
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", errno.ErrNotFound, id)
	}
	return found, nil
}

func (m *memStore) MarkPaid(_ context.Context, orderNo string, u model.PaidUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderNo]
	if !ok || o.Status != model.OrderStatusPending {
		return false, nil
	}
	payTime := u.PayTime
	o.Status = model.OrderStatusPaid
	o.Amount = u.Amount
	o.PayTime = &payTime
	o.ExtrasParams = datatypes.JSONMap(u.ExtrasParams)
	if u.PayType != "" {
		o.PayType = u.PayType
	}
	if u.ChannelOrderNo != "" {
		o.ChannelOrderNo = u.ChannelOrderNo
	}
	return true, nil
}

func (m *memStore) MarkConfirmed(_ context.Context, orderNo, uid string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderNo]
	if !ok || o.UID != uid || o.Status != model.OrderStatusPaid {
		return false, nil
	}
	o.Status = model.OrderStatusConfirmed
	o.ConfirmTime = &at
	return true, nil
}

// setStatus 测试用, 直接改状态
func (m *memStore) setStatus(orderNo string, status model.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[orderNo].Status = status
}
