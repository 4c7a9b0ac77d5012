package models

// PriceStats 是价格字段的统计型聚合结果。
// 当过滤后的结果集为空时，ES 返回的 min/max/avg 为 null，因此这里使用指针。
type PriceStats struct {
	Count int64    `json:"count"`         // 参与统计的文档数
	Min   *float64 `json:"min,omitempty"` // 最低价
	Max   *float64 `json:"max,omitempty"` // 最高价
	Avg   *float64 `json:"avg,omitempty"` // 平均价
	Sum   float64  `json:"sum"`           // 价格总和
}

// PropertyFacetBucket 是属性 token 的词条聚合桶。
// Token 即 "<属性名>||<属性值>" 形式的复合 token，由前端按分隔符拆分展示。
type PropertyFacetBucket struct {
	Token string `json:"token"` // 复合属性 token
	Count int64  `json:"count"` // 命中该 token 的文档数
}

// TaxonFacetBucket 是分类 ID 的词条聚合桶。
type TaxonFacetBucket struct {
	TaxonID uint64 `json:"taxon_id"` // 分类 ID
	Count   int64  `json:"count"`    // 命中该分类的文档数
}

// SearchFacets 汇总一次搜索响应中的全部分面统计。
// 注意：这些计数反映的是“分面可见”的过滤链（属性、分类、上架、下架），
// 价格区间过滤被刻意排除在外，不会缩小这些计数。
type SearchFacets struct {
	Price      PriceStats            `json:"price"`      // 价格统计
	Properties []PropertyFacetBucket `json:"properties"` // 属性 token 计数，按计数升序
	TaxonIDs   []TaxonFacetBucket    `json:"taxon_ids"`  // 分类计数
}
