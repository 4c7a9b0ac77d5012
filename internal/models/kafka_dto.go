package models

import "time"

// KafkaProductUpsertEvent 镜像了商品服务发送的商品创建/更新事件的结构。
// Properties 仍是结构化的属性名到属性值集合的映射；
// 复合 token 的编码由本服务的事件处理层完成，以保证查询侧与索引侧使用同一套编码。
type KafkaProductUpsertEvent struct {
	EventID       string              `json:"event_id"`                 // 事件唯一标识，用于日志关联。
	ID            uint64              `json:"id"`                       // 商品的唯一标识符。
	Name          string              `json:"name"`                     // 商品名称。
	Description   string              `json:"description"`              // 商品描述。
	SKU           string              `json:"sku"`                      // 商品编码。
	Price         float64             `json:"price"`                    // 商品价格。
	AvailableOn   time.Time           `json:"available_on"`             // 上架时间。
	DiscontinueOn *time.Time          `json:"discontinue_on,omitempty"` // 下架时间，可缺失。
	TaxonIDs      []uint64            `json:"taxon_ids"`                // 分类 ID 集合（上游已展开为含祖先的闭包）。
	Properties    map[string][]string `json:"properties"`               // 结构化商品属性。
}

// KafkaProductDeleteEvent 镜像了商品服务发送的商品删除事件的结构。
type KafkaProductDeleteEvent struct {
	EventID   string `json:"event_id"`   // 事件唯一标识。
	Operation string `json:"operation"`  // 操作类型，期望值为 "delete"。
	ProductID uint64 `json:"product_id"` // 需要删除的商品的唯一标识符。
}
