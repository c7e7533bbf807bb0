package fulfillment

import (
	"context"
	"fmt"

	"gamepay/internal/model"
)

const newbiePackID = "newbie_pack_v1"

// GiftHandler 免费礼包, 下单即发
type GiftHandler struct {
	gs GameServer
}

func NewGiftHandler(gs GameServer) *GiftHandler {
	return &GiftHandler{gs: gs}
}

func (h *GiftHandler) ProductID() string { return model.ProductNewbieGift }

func (h *GiftHandler) Validate(order *model.Order) error {
	if order.UID == "" {
		return fmt.Errorf("order has no uid")
	}
	return nil
}

func (h *GiftHandler) Handle(ctx context.Context, order *model.Order) (Result, error) {
	err := h.gs.GrantGift(ctx, GiftRequest{
		OrderNo:    order.OrderNo,
		UID:        order.UID,
		PackID:     newbiePackID,
		ServerName: order.ServerName,
		RoleName:   order.RoleName,
	})
	if err != nil {
		return Result{}, fmt.Errorf("grant gift: %w", err)
	}
	return Result{
		Success: true,
		Message: "gift granted",
		Data:    map[string]interface{}{"packId": newbiePackID},
	}, nil
}
