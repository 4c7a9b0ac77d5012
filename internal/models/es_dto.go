package models

import (
	"time"
)

// PropertyTokenSeparator 是属性复合 token 中属性名与属性值之间的分隔符。
// 这是与搜索引擎字段 schema 约定的线上编码：一个扁平的 keyword 多值字段
// 通过 "<属性名>||<属性值>" 的拼接来模拟两级 AND/OR 的属性过滤，
// 编译器（查询侧）和事件服务（索引侧）都必须使用同一套编码。
const PropertyTokenSeparator = "||"

// PropertyToken 将属性名与属性值编码为存储在 properties 字段中的复合 token。
func PropertyToken(name, value string) string {
	return name + PropertyTokenSeparator + value
}

// EsProductDocument 表示存储在 Elasticsearch 中的商品文档结构。
// 字段名即查询编译器假定存在的索引字段契约，双方只通过字段名耦合。
type EsProductDocument struct {
	ID            uint64     `json:"id"`                       // 商品唯一标识符。使用 uint64 以兼容 ES 的 unsigned_long 类型。
	Name          string     `json:"name"`                     // 商品名称，分词后参与全文检索（搜索时加权）。
	UntouchedName string     `json:"untouched_name"`           // 商品名称的未分词副本（keyword），仅用于排序，保证稳定的字典序。
	Description   string     `json:"description"`              // 商品描述，参与全文检索。
	SKU           string     `json:"sku"`                      // 商品编码，参与全文检索（精确编码查找场景）。
	Price         float64    `json:"price"`                    // 商品价格。
	AvailableOn   time.Time  `json:"available_on"`             // 商品上架时间；晚于当前时间的商品不可见。
	DiscontinueOn *time.Time `json:"discontinue_on,omitempty"` // 商品下架时间；缺失表示永不下架。
	TaxonIDs      []uint64   `json:"taxon_ids"`                // 商品所属分类及其全部祖先分类的 ID 集合（闭包由上游生成）。
	Properties    []string   `json:"properties"`               // 属性复合 token 集合，形如 "color||red"。
	UpdatedAt     time.Time  `json:"updated_at"`               // 文档在 Elasticsearch 中最后更新的时间戳。
}
