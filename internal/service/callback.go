package service

import (
	"context"
	"fmt"
	"time"

	"gamepay/internal/errno"
	"gamepay/internal/gateway"
	"gamepay/internal/logger"
	"gamepay/internal/model"
	"gamepay/internal/util"

	"go.uber.org/zap"
)

// CallbackSuccess 网关要求的成功应答, 其他内容都会触发重试
const CallbackSuccess = "SUCCESS"

const payTimeLayout = "2006-01-02 15:04:05"

// CallbackParams 网关回调表单
type CallbackParams struct {
	NtData  string
	Sign    string
	Md5Sign string
}

// ApplyCallback 处理支付回调
// 重复回调和已支付订单都直接应答成功, 不重复发货
func (s *OrderService) ApplyCallback(ctx context.Context, p CallbackParams) (string, error) {
	log := logger.FromContext(ctx)

	ok, err := s.codec.Verify(p.NtData, p.Sign, p.Md5Sign)
	if err != nil {
		return "", err
	}
	if !ok {
		log.Warn("callback signature mismatch", zap.Int("nt_data_len", len(p.NtData)))
		return "", errno.ErrAuthentication
	}

	plain, err := s.codec.Decode(p.NtData)
	if err != nil {
		return "", err
	}
	n, err := gateway.ParseNotification(plain)
	if err != nil {
		return "", err
	}

	log = log.With(
		zap.String("gateway_order_no", n.OrderNo),
		zap.String("gateway_uid", util.MaskUID(n.UID)),
		zap.String("amount", n.Amount.String()),
	)
	if n.IsTest {
		log.Info("test payment notification")
	}

	ref := n.CorrelationID()
	if ref == "" {
		return "", fmt.Errorf("%w: notification carries no order reference", errno.ErrNotFound)
	}

	unlock, err := s.locker.Lock(ctx, "callback:"+ref)
	if err != nil {
		return "", fmt.Errorf("acquire callback lock: %w", err)
	}
	defer unlock()

	order, err := s.store.FindByCorrelationID(ctx, ref)
	if err != nil {
		return "", err
	}
	log = log.With(zap.String("order_no", order.OrderNo))
	ctx = logger.WithContext(ctx, log)

	switch {
	case order.Status.IsPaid():
		log.Info("duplicate callback ignored", zap.String("status", string(order.Status)))
		return CallbackSuccess, nil
	case order.Status != model.OrderStatusPending:
		return "", fmt.Errorf("%w: order %s is %s", errno.ErrStateConflict, order.OrderNo, order.Status)
	}

	if !n.Succeeded() {
		log.Warn("gateway reported failed payment", zap.String("gateway_status", n.Status))
		return CallbackSuccess, nil
	}

	if !n.Amount.Equal(order.Amount) {
		log.Warn("paid amount differs from order amount", zap.String("order_amount", order.Amount.String()))
	}

	update := model.PaidUpdate{
		Amount:         n.Amount,
		PayTime:        s.payTime(n.PayTime),
		PayType:        n.PayType,
		ChannelOrderNo: n.OrderNo,
		ExtrasParams:   model.MergeExtras(order.ExtrasParams, n.Extras()),
	}
	paid, err := s.markPaid(ctx, order, update)
	if err != nil {
		return "", err
	}
	if paid == nil {
		return CallbackSuccess, nil
	}
	log.Info("order paid", zap.String("pay_type", paid.PayType))

	if n.IsSubscriptionCancel() {
		log.Info("subscription cancel notification, fulfillment skipped", zap.String("sub_reason", n.SubReason))
		return CallbackSuccess, nil
	}

	s.fulfill(ctx, paid)
	return CallbackSuccess, nil
}

// payTime 网关时间解析失败时用当前时间
func (s *OrderService) payTime(raw string) time.Time {
	if raw != "" {
		if t, err := time.ParseInLocation(payTimeLayout, raw, time.Local); err == nil {
			return t
		}
	}
	return s.now()
}
