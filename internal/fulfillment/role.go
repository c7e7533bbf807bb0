package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"gamepay/internal/model"

	"github.com/spf13/cast"
)

const (
	roleNameMin = 2
	roleNameMax = 12
)

// Regions 可建角的大区
var Regions = map[string]string{
	"cn-north": "北方大区",
	"cn-south": "南方大区",
	"cn-east":  "华东大区",
	"cn-west":  "西部大区",
	"hmt":      "港澳台",
	"sea":      "东南亚",
}

// IsKnownRegion 大区是否存在
func IsKnownRegion(id string) bool {
	_, ok := Regions[id]
	return ok
}

// parseRegions extrasParams.regions 支持 JSON 数组或逗号分隔字符串
func parseRegions(v interface{}) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	list, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = strings.TrimSpace(list[i])
	}
	return list, nil
}

// RoleValidator 多区服建角下单校验
type RoleValidator struct{}

func (RoleValidator) ProductID() string { return model.ProductCreateRoleRegion }

func (RoleValidator) Validate(req *model.CreateOrderRequest) ValidationResult {
	var errs []string

	name := strings.TrimSpace(req.RoleName)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		errs = append(errs, "roleName is required")
	case n < roleNameMin || n > roleNameMax:
		errs = append(errs, fmt.Sprintf("roleName must be %d-%d characters", roleNameMin, roleNameMax))
	}

	regions, err := parseRegions(req.ExtrasParams["regions"])
	switch {
	case err != nil:
		errs = append(errs, "extrasParams.regions must be a list of region ids")
	case len(regions) == 0:
		errs = append(errs, "extrasParams.regions is required")
	default:
		seen := make(map[string]bool, len(regions))
		for _, r := range regions {
			if !IsKnownRegion(r) {
				errs = append(errs, fmt.Sprintf("unknown region %q", r))
				continue
			}
			if seen[r] {
				errs = append(errs, fmt.Sprintf("duplicate region %q", r))
			}
			seen[r] = true
		}
	}
	return invalid(errs)
}

// RoleHandler 在每个大区创建同名角色, 部分失败记录在结果里
type RoleHandler struct {
	gs GameServer
}

func NewRoleHandler(gs GameServer) *RoleHandler {
	return &RoleHandler{gs: gs}
}

func (h *RoleHandler) ProductID() string { return model.ProductCreateRoleRegion }

func (h *RoleHandler) Validate(order *model.Order) error {
	if order.RoleName == "" {
		return errors.New("order has no roleName")
	}
	v, _ := order.Extra("regions")
	regions, err := parseRegions(v)
	if err != nil || len(regions) == 0 {
		return errors.New("order has no regions")
	}
	return nil
}

func (h *RoleHandler) Handle(ctx context.Context, order *model.Order) (Result, error) {
	v, _ := order.Extra("regions")
	regions, _ := parseRegions(v)

	created := make(map[string]string, len(regions))
	failed := make(map[string]string)
	for _, region := range regions {
		roleID, err := h.gs.CreateRole(ctx, RoleRequest{
			OrderNo:  order.OrderNo,
			UID:      order.UID,
			Region:   region,
			RoleName: order.RoleName,
		})
		if err != nil {
			failed[region] = err.Error()
			continue
		}
		created[region] = roleID
	}

	res := Result{
		Success: len(failed) == 0,
		Data: map[string]interface{}{
			"roleName": order.RoleName,
			"created":  created,
			"failed":   failed,
		},
	}
	switch {
	case len(failed) == 0:
		res.Message = fmt.Sprintf("role created in %d regions", len(created))
	case len(created) == 0:
		res.Message = "role creation failed in all regions"
	default:
		names := make([]string, 0, len(failed))
		for r := range failed {
			names = append(names, r)
		}
		sort.Strings(names)
		res.Message = "role creation failed in " + strings.Join(names, ",")
	}
	return res, nil
}
