// FileName: repositories/search_request_builder.go
package repositories

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Xushengqwer/product_search/internal/models"
)

const (
	// minScore 是固定的相关性下限：评分低于该值的命中会被引擎直接丢弃。
	minScore = 0.1

	// aggregationSizeCap 是词条聚合的桶数量上限。对任何现实规模的商品目录
	// 而言它等价于“不设上限”，显式写出只是为了覆盖 ES 默认的 10 个桶。
	aggregationSizeCap = 1000000
)

// buildProductSearchQuery 根据商品搜索请求构建 Elasticsearch 查询的 JSON 体。
//
// 编译分为四个相互独立的阶段：文本查询、过滤器、排序解析、聚合定义，
// 各阶段只产出自己的不可变子文档，最后一次性组装，阶段之间不共享可变状态。
// 整个函数是无副作用的纯转换：now 由调用方注入（取当前整点），
// 任何形状的输入都不会导致错误——空白关键词、空过滤集合、倒置的价格区间
// 一律降级为省略对应子句。
//
// 参数:
//   - req: 只读的商品搜索请求参数。
//   - now: 编译时刻，调用方传入 time.Now()；内部会截断到整点。
//
// 返回值:
//   - []byte: 构建好的 Elasticsearch 查询 DSL (JSON格式的字节切片)。
//   - error: 仅在 JSON 序列化失败时返回（理论上不会发生）。
func buildProductSearchQuery(req models.ProductSearchRequest, now time.Time) ([]byte, error) {
	body := assembleSearchBody(req, now)

	queryJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("序列化 Elasticsearch 查询对象为 JSON 失败: %w", err)
	}
	return queryJSON, nil
}

// assembleSearchBody 组装最终的请求体。各阶段的输出只通过共享的字段名契约耦合。
func assembleSearchBody(req models.ProductSearchRequest, now time.Time) map[string]interface{} {
	from := req.From
	if from < 0 {
		// 防御非法偏移量；参数校验是调用方的职责，这里仅保证不向 ES 发送负值。
		from = 0
	}

	// --- 1. 主查询与分面可见的过滤链 ---
	// 属性/分类/上架/下架过滤放在 bool 查询的 filter 容器内：
	// 聚合计算看到的是同一份过滤后的结果集，因此分面计数反映“其余可选的收窄项”。
	boolQuery := map[string]interface{}{
		"must": buildMainQuery(req.Query),
	}
	if filters := buildFacetFilters(req, now); len(filters) > 0 {
		boolQuery["filter"] = map[string]interface{}{
			"bool": map[string]interface{}{
				"must": filters,
			},
		}
	}

	body := map[string]interface{}{
		"min_score":    minScore,
		"from":         from,
		"query":        map[string]interface{}{"bool": boolQuery},
		"sort":         resolveSortClause(req.Sorting),
		"aggregations": buildAggregations(),
	}

	// --- 2. 分面中立的价格过滤 ---
	// 价格是连续滑块而非离散分面，刻意不让它影响聚合计数：
	// post_filter 在聚合计算完成之后才收窄命中集。
	if priceFilter := buildPriceFilter(req.PriceMin, req.PriceMax); priceFilter != nil {
		body["post_filter"] = priceFilter
	}

	return body
}

// buildMainQuery 构建 bool 查询的 must 子句。
//   - 关键词为空或仅含空白时返回 match_all，即不施加任何文本约束；
//   - 否则返回跨 name/description/sku 的 query_string 查询：
//     name 加权 5 倍；词项之间默认 AND（所有词都必须命中）；
//     best_fields 让“命中最高权重字段”的评分胜出，而不是把各字段评分求和，
//     避免一个词命中多个低价值字段反而压过命中 name 的文档。
func buildMainQuery(query string) map[string]interface{} {
	if strings.TrimSpace(query) == "" {
		return map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	return map[string]interface{}{
		"query_string": map[string]interface{}{
			"fields":           []string{"name^5", "description", "sku"},
			"query":            escapeQueryString(query),
			"default_operator": "AND",
			"type":             "best_fields",
		},
	}
}

// escapeQueryString 对原始关键词中的双引号做一层（且仅一层）转义。
// query_string 的迷你语法自身会解一层转义：少转义会破坏解析，
// 多转义则会让反斜杠变成字面匹配内容。
func escapeQueryString(query string) string {
	return strings.ReplaceAll(query, `"`, `\"`)
}

// buildFacetFilters 构建分面可见的过滤子句列表（逻辑 AND）。
// 属性与分类过滤按输入可选；上架与下架过滤无条件存在，
// 因此该列表在实践中永远非空。
func buildFacetFilters(req models.ProductSearchRequest, now time.Time) []map[string]interface{} {
	// 时间截断到整点：粗粒度的时间桶让引擎侧的 filter 缓存得以复用。
	hour := now.UTC().Truncate(time.Hour)

	var filters []map[string]interface{}

	filters = append(filters, buildPropertyFilters(req.Properties)...)

	// 分类过滤：文档侧 taxon_ids 含祖先闭包，任一请求分类命中即可。
	// 空集合时整个子句省略——空的 terms 过滤会被 ES 解释为“全不匹配”。
	if len(req.TaxonIDs) > 0 {
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"taxon_ids": req.TaxonIDs},
		})
	}

	// 上架过滤：上架时间必须不晚于当前整点。
	filters = append(filters, map[string]interface{}{
		"range": map[string]interface{}{
			"available_on": map[string]interface{}{"lte": hour.Format(time.RFC3339)},
		},
	})

	// 下架过滤：没有下架时间，或下架时间不早于当前整点。
	filters = append(filters, map[string]interface{}{
		"bool": map[string]interface{}{
			"should": []map[string]interface{}{
				{
					"bool": map[string]interface{}{
						"must_not": map[string]interface{}{
							"exists": map[string]interface{}{"field": "discontinue_on"},
						},
					},
				},
				{
					"range": map[string]interface{}{
						"discontinue_on": map[string]interface{}{"gte": hour.Format(time.RFC3339)},
					},
				},
			},
		},
	})

	return filters
}

// buildPropertyFilters 把属性名到属性值集合的映射重编码为复合 token 过滤子句：
// 每个属性名产出一条 terms 子句，子句内列出该属性下所有值的 "<名>||<值>" token。
// 由此得到：同一属性内任一值命中即可（OR），不同属性之间取交集（AND，由外层列表保证）。
// 没有值的属性名不产出子句；属性名按字典序排列，保证编译结果可复现。
func buildPropertyFilters(properties map[string][]string) []map[string]interface{} {
	if len(properties) == 0 {
		return nil
	}

	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	filters := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		values := properties[name]
		if len(values) == 0 {
			continue
		}
		tokens := make([]string, 0, len(values))
		for _, value := range values {
			tokens = append(tokens, models.PropertyToken(name, value))
		}
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"properties": tokens},
		})
	}
	return filters
}

// buildPriceFilter 构建分面中立的价格区间过滤。
// 仅当上下限都提供且下限严格小于上限时生效；部分提供或区间倒置
// 都不是错误，直接返回 nil 表示省略该过滤。
func buildPriceFilter(priceMin, priceMax *float64) map[string]interface{} {
	if priceMin == nil || priceMax == nil {
		return nil
	}
	if *priceMin >= *priceMax {
		return nil
	}
	return map[string]interface{}{
		"range": map[string]interface{}{
			"price": map[string]interface{}{
				"gte": *priceMin,
				"lte": *priceMax,
			},
		},
	}
}

// resolveSortClause 把排序模式解析为确定性的多级排序键序列。
// 每个分支都追加相关性评分作为最终的平局裁决；名称排序一律使用
// 未分词的 untouched_name 字段，保证字典序不受分词产物干扰。
// 无法识别的模式回退到默认排序。
func resolveSortClause(mode models.SortMode) []interface{} {
	nameAsc := map[string]interface{}{"untouched_name": map[string]string{"order": "asc"}}
	nameDesc := map[string]interface{}{"untouched_name": map[string]string{"order": "desc"}}
	priceAsc := map[string]interface{}{"price": map[string]string{"order": "asc"}}
	priceDesc := map[string]interface{}{"price": map[string]string{"order": "desc"}}

	switch mode {
	case models.SortNameAsc:
		return []interface{}{nameAsc, priceAsc, "_score"}
	case models.SortNameDesc:
		return []interface{}{nameDesc, priceAsc, "_score"}
	case models.SortPriceAsc:
		return []interface{}{priceAsc, nameAsc, "_score"}
	case models.SortPriceDesc:
		return []interface{}{priceDesc, nameAsc, "_score"}
	default:
		// score、default 以及任何无法识别的取值。
		return []interface{}{"_score", nameAsc, priceAsc}
	}
}

// buildAggregations 构建固定的三组聚合定义，与输入无关：
//   - price: 价格的统计摘要 (min/max/avg/sum/count)，驱动价格滑块的量程；
//   - properties: 属性复合 token 的词条计数，按计数升序；
//   - taxon_ids: 分类 ID 的词条计数。
//
// 两组词条聚合都使用“实际无上限”的桶数量，避免默认的 10 桶截断分面列表。
func buildAggregations() map[string]interface{} {
	return map[string]interface{}{
		"price": map[string]interface{}{
			"stats": map[string]interface{}{"field": "price"},
		},
		"properties": map[string]interface{}{
			"terms": map[string]interface{}{
				"field": "properties",
				"order": map[string]interface{}{"_count": "asc"},
				"size":  aggregationSizeCap,
			},
		},
		"taxon_ids": map[string]interface{}{
			"terms": map[string]interface{}{
				"field": "taxon_ids",
				"size":  aggregationSizeCap,
			},
		},
	}
}
