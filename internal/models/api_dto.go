package models

// SortMode 枚举了商品搜索支持的排序模式。
// 无法识别的取值不会报错，编译阶段会回退到 SortDefault 对应的排序。
type SortMode string

const (
	SortNameAsc   SortMode = "name_asc"   // 名称升序
	SortNameDesc  SortMode = "name_desc"  // 名称降序
	SortPriceAsc  SortMode = "price_asc"  // 价格升序
	SortPriceDesc SortMode = "price_desc" // 价格降序
	SortScore     SortMode = "score"      // 相关性评分
	SortDefault   SortMode = "default"    // 默认（等价于 score）
)

// ProductSearchRequest 定义商品搜索 API 的请求参数及验证规则。
// 该结构体是查询编译器的只读输入：编译器不会修改它，所有容错（空白关键词、
// 空过滤集合、倒置的价格区间等）都由编译器的各个阶段以“降级而非报错”的方式处理。
type ProductSearchRequest struct {
	Query string `form:"q"`                                                // 搜索关键词，非必需；空白等价于“浏览全部”
	From  int    `form:"from,default=0" binding:"omitempty,min=0"`         // 分页偏移量，可选，默认为0
	Size  int    `form:"size,default=10" binding:"omitempty,min=1,max=100"` // 每页大小，可选，默认10，范围1-100

	// --- 过滤器字段 ---
	// PriceMin 和 PriceMax 必须同时提供且 PriceMin < PriceMax 才会生效；
	// 价格过滤不参与分面（facet）计数的计算，详见编译器的 post_filter 阶段。
	PriceMin *float64 `form:"price_min" binding:"omitempty,min=0"` // 可选，价格下限（含）
	PriceMax *float64 `form:"price_max" binding:"omitempty,min=0"` // 可选，价格上限（含）

	// Properties 是属性名到属性值集合的映射，例如 {"color": ["red","blue"], "size": ["M"]}。
	// 它来自形如 properties[color]=red 的查询参数，由 Handler 解析填充（gin 的 form
	// 绑定不支持“一键多值”的 map），同一属性内任一值命中即可（OR），不同属性之间取交集（AND）。
	Properties map[string][]string `form:"-"`

	// TaxonIDs 按分类筛选。文档侧的 taxon_ids 字段包含自身及全部祖先分类，
	// 因此请求任一分类即可命中其整棵子树。空集合表示不做分类过滤。
	TaxonIDs []uint64 `form:"taxon_ids" binding:"omitempty,dive,min=1"`

	// BrowseMode 为预留字段：当前行为下分类过滤在两种模式中都参与分面计数，
	// 编译结果不因该标志而改变。
	BrowseMode bool `form:"browse_mode"`

	// Sorting 排序模式，可选，默认 default。
	Sorting SortMode `form:"sort,default=default"`
}

// SearchResult 定义商品搜索 API 的响应数据结构。
type SearchResult struct {
	Hits   []EsProductDocument `json:"hits"`                           // 命中的商品列表
	Total  int64               `json:"total"`                          // 总命中数
	From   int                 `json:"from"`                           // 当前分页偏移量
	Size   int                 `json:"size"`                           // 当前页大小
	Took   int64               `json:"took_ms,omitempty" example:"50"` // 查询耗时（毫秒）
	Facets *SearchFacets       `json:"facets,omitempty"`               // 分面统计结果（价格统计、属性计数、分类计数）
}
