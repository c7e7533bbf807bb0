package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// 商品ID
const (
	ProductCreateGuild      = "CREATE_GUILD"             // 创建公会
	ProductCreateRoleRegion = "CREATE_ROLE_MULTI_REGION" // 多区服建角
	ProductNewbieGift       = "NEWBIE_GIFT"              // 新手礼包(免费)
	ProductMonthlyCard      = "MONTHLY_CARD"             // 月卡
)

// Product 商品配置, 启动时固定, 不走数据库
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
}

var catalog = map[string]Product{
	ProductCreateGuild: {
		ID:          ProductCreateGuild,
		Name:        "创建公会",
		Price:       decimal.NewFromInt(18),
		Description: "在指定区服创建公会",
	},
	ProductCreateRoleRegion: {
		ID:          ProductCreateRoleRegion,
		Name:        "多区服建角",
		Price:       decimal.NewFromInt(6),
		Description: "在多个大区同时创建同名角色",
	},
	ProductNewbieGift: {
		ID:    ProductNewbieGift,
		Name:  "新手礼包",
		Price: decimal.Zero,
	},
	ProductMonthlyCard: {
		ID:    ProductMonthlyCard,
		Name:  "月卡",
		Price: decimal.NewFromInt(30),
	},
}

// GetProduct 查询商品
func GetProduct(id string) (Product, bool) {
	p, ok := catalog[id]
	return p, ok
}

// Products 全部商品, 按ID排序
func Products() []Product {
	list := make([]Product, 0, len(catalog))
	for _, p := range catalog {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
