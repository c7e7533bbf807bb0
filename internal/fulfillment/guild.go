package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gamepay/internal/model"

	"github.com/spf13/cast"
)

const (
	guildNameMin = 2
	guildNameMax = 16
)

// GuildValidator 创建公会下单校验
type GuildValidator struct{}

func (GuildValidator) ProductID() string { return model.ProductCreateGuild }

func (GuildValidator) Validate(req *model.CreateOrderRequest) ValidationResult {
	var errs []string
	if strings.TrimSpace(req.ServerName) == "" {
		errs = append(errs, "serverName is required")
	}
	name := strings.TrimSpace(cast.ToString(req.ExtrasParams["guildName"]))
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		errs = append(errs, "extrasParams.guildName is required")
	case n < guildNameMin || n > guildNameMax:
		errs = append(errs, fmt.Sprintf("extrasParams.guildName must be %d-%d characters", guildNameMin, guildNameMax))
	}
	return invalid(errs)
}

// GuildHandler 支付成功后在游戏服创建公会
type GuildHandler struct {
	gs GameServer
}

func NewGuildHandler(gs GameServer) *GuildHandler {
	return &GuildHandler{gs: gs}
}

func (h *GuildHandler) ProductID() string { return model.ProductCreateGuild }

func (h *GuildHandler) Validate(order *model.Order) error {
	if order.ServerName == "" {
		return errors.New("order has no serverName")
	}
	if guildName(order) == "" {
		return errors.New("order has no guildName")
	}
	return nil
}

func (h *GuildHandler) Handle(ctx context.Context, order *model.Order) (Result, error) {
	name := guildName(order)
	guildID, err := h.gs.CreateGuild(ctx, GuildRequest{
		OrderNo:    order.OrderNo,
		UID:        order.UID,
		ServerName: order.ServerName,
		GuildName:  name,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create guild: %w", err)
	}
	return Result{
		Success: true,
		Message: "guild created",
		Data: map[string]interface{}{
			"guildId":    guildID,
			"guildName":  name,
			"serverName": order.ServerName,
		},
	}, nil
}

func guildName(order *model.Order) string {
	v, _ := order.Extra("guildName")
	return strings.TrimSpace(cast.ToString(v))
}
