package gateway

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"gamepay/internal/errno"

	"github.com/shopspring/decimal"
)

// Notification 解码后的支付通知, 只在一次回调处理内有效
type Notification struct {
	UID                string
	LoginName          string
	OrderNo            string // 网关自己的订单号, 不用于匹配本地订单
	GameOrder          string // 透传的本地订单号, 可选
	PayTime            string
	Amount             decimal.Decimal
	Status             string // "0" 或空表示成功
	PayType            string
	Channel            string
	IsTest             bool
	SubscriptionStatus string
	SubReason          string
	ExtrasParams       string
}

// xmlNode 通用节点, 兼容两种根结构
type xmlNode struct {
	XMLName xml.Name
	Content string    `xml:",chardata"`
	Nodes   []xmlNode `xml:",any"`
}

// fieldAliases 字段名 -> 可接受的元素名
var fieldAliases = map[string][]string{
	"uid":                {"uid"},
	"loginName":          {"loginName", "login_name"},
	"orderNo":            {"orderNo", "order_no"},
	"gameOrder":          {"gameOrder", "game_order", "cpOrderNo", "cp_order_no"},
	"payTime":            {"payTime", "pay_time"},
	"amount":             {"amount"},
	"status":             {"status"},
	"payType":            {"payType", "pay_type"},
	"channel":            {"channel"},
	"isTest":             {"isTest", "is_test"},
	"subscriptionStatus": {"subscriptionStatus", "subscription_status"},
	"subReason":          {"subReason", "sub_reason"},
	"extrasParams":       {"extrasParams", "extras_params"},
}

// ParseNotification 解析解码后的 XML 报文
// 支持 <quicksdk_message><message>...</message></quicksdk_message> 两层结构和单层结构
func ParseNotification(data string) (*Notification, error) {
	var root xmlNode
	if err := xml.Unmarshal([]byte(strings.TrimSpace(data)), &root); err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrMalformedPayload, err)
	}

	msg := &root
	for i := range root.Nodes {
		if root.Nodes[i].XMLName.Local == "message" && len(root.Nodes[i].Nodes) > 0 {
			msg = &root.Nodes[i]
			break
		}
	}

	values := make(map[string]string, len(msg.Nodes))
	for _, n := range msg.Nodes {
		values[n.XMLName.Local] = strings.TrimSpace(n.Content)
	}
	get := func(field string) string {
		for _, name := range fieldAliases[field] {
			if v, ok := values[name]; ok && v != "" {
				return v
			}
		}
		return ""
	}

	n := &Notification{
		UID:                get("uid"),
		LoginName:          get("loginName"),
		OrderNo:            get("orderNo"),
		GameOrder:          get("gameOrder"),
		PayTime:            get("payTime"),
		Status:             get("status"),
		PayType:            get("payType"),
		Channel:            get("channel"),
		IsTest:             get("isTest") == "1",
		SubscriptionStatus: get("subscriptionStatus"),
		SubReason:          get("subReason"),
		ExtrasParams:       get("extrasParams"),
	}

	var missing []string
	if n.UID == "" {
		missing = append(missing, "uid")
	}
	if n.OrderNo == "" {
		missing = append(missing, "orderNo")
	}
	amount := get("amount")
	if amount == "" {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", errno.ErrMalformedPayload, strings.Join(missing, ", "))
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount %q", errno.ErrMalformedPayload, amount)
	}
	n.Amount = d
	return n, nil
}

// Succeeded 网关是否报告支付成功
func (n *Notification) Succeeded() bool {
	return n.Status == "" || n.Status == "0"
}

// IsSubscriptionCancel 是否为订阅取消通知, 取消通知不发货
func (n *Notification) IsSubscriptionCancel() bool {
	switch strings.ToLower(n.SubscriptionStatus) {
	case "cancel", "canceled", "cancelled", "unsubscribe":
		return true
	}
	return false
}

// Extras 透传参数为 JSON 对象时解析为 map, 否则放在 passthrough 键下
func (n *Notification) Extras() map[string]interface{} {
	if n.ExtrasParams == "" {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(n.ExtrasParams), &m); err == nil && m != nil {
		return m
	}
	return map[string]interface{}{"passthrough": n.ExtrasParams}
}

// CorrelationID 关联本地订单的透传ID
// 优先 gameOrder, 其次 extrasParams 中的 orderNo/cpOrderNo, 最后是 extrasParams 原文
func (n *Notification) CorrelationID() string {
	if n.GameOrder != "" {
		return n.GameOrder
	}
	if n.ExtrasParams == "" {
		return ""
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(n.ExtrasParams), &m); err == nil && m != nil {
		for _, key := range []string{"orderNo", "cpOrderNo"} {
			if v, ok := m[key].(string); ok && v != "" {
				return v
			}
		}
		return ""
	}
	return n.ExtrasParams
}
