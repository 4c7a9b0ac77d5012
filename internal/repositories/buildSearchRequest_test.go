package repositories

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/Xushengqwer/product_search/internal/models"
)

// fixedNow 是测试用的固定编译时刻；注意它不在整点上，
// 用于验证时间被截断到整点而不是原样透传。
var fixedNow = time.Date(2025, 6, 15, 14, 37, 52, 0, time.UTC)

// compile 编译请求并把 JSON 解回通用 map，便于断言各子文档的形状。
func compile(t *testing.T, req models.ProductSearchRequest) map[string]interface{} {
	t.Helper()
	raw, err := buildProductSearchQuery(req, fixedNow)
	if err != nil {
		t.Fatalf("buildProductSearchQuery() 返回错误: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("编译结果不是合法 JSON: %v", err)
	}
	return body
}

// dig 按 key 路径逐层下钻 map，任何一层缺失都会让测试失败。
func dig(t *testing.T, m map[string]interface{}, keys ...string) interface{} {
	t.Helper()
	var current interface{} = m
	for _, key := range keys {
		asMap, ok := current.(map[string]interface{})
		if !ok {
			t.Fatalf("路径 %v 中途不是对象: %T", keys, current)
		}
		current, ok = asMap[key]
		if !ok {
			t.Fatalf("路径 %v 缺失键 %q", keys, key)
		}
	}
	return current
}

// facetFilters 取出分面可见过滤链 (query.bool.filter.bool.must)。
func facetFilters(t *testing.T, body map[string]interface{}) []interface{} {
	t.Helper()
	raw := dig(t, body, "query", "bool", "filter", "bool", "must")
	filters, ok := raw.([]interface{})
	if !ok {
		t.Fatalf("过滤链不是数组: %T", raw)
	}
	return filters
}

func TestBuildMainQuery_BlankFallsBackToMatchAll(t *testing.T) {
	for _, query := range []string{"", "   ", "\t\n"} {
		body := compile(t, models.ProductSearchRequest{Query: query})
		must := dig(t, body, "query", "bool", "must").(map[string]interface{})
		if _, ok := must["match_all"]; !ok {
			t.Errorf("关键词 %q 应产出 match_all，实际为 %v", query, must)
		}
	}
}

func TestBuildMainQuery_QueryString(t *testing.T) {
	body := compile(t, models.ProductSearchRequest{Query: "red shirt"})
	qs := dig(t, body, "query", "bool", "must", "query_string").(map[string]interface{})

	if got := qs["query"]; got != "red shirt" {
		t.Errorf("query = %v, 期望 red shirt", got)
	}
	if got := qs["default_operator"]; got != "AND" {
		t.Errorf("default_operator = %v, 期望 AND", got)
	}
	if got := qs["type"]; got != "best_fields" {
		t.Errorf("type = %v, 期望 best_fields", got)
	}
	wantFields := []interface{}{"name^5", "description", "sku"}
	if got := qs["fields"]; !reflect.DeepEqual(got, wantFields) {
		t.Errorf("fields = %v, 期望 %v", got, wantFields)
	}
}

func TestEscapeQueryString_ExactlyOneLayer(t *testing.T) {
	body := compile(t, models.ProductSearchRequest{Query: `15" monitor`})
	qs := dig(t, body, "query", "bool", "must", "query_string").(map[string]interface{})
	// JSON 解码已解掉一层转义，解码后的值应是 反斜杠+引号，
	// 即 ES 的 query_string 解析器再解一层后得到字面引号。
	if got := qs["query"]; got != `15\" monitor` {
		t.Errorf("转义后的关键词 = %q, 期望 %q", got, `15\" monitor`)
	}
}

func TestBuildPropertyFilters_GroupedByName(t *testing.T) {
	body := compile(t, models.ProductSearchRequest{
		Properties: map[string][]string{
			"color": {"red", "blue"},
			"size":  {"M"},
		},
	})

	var propertyClauses [][]interface{}
	for _, f := range facetFilters(t, body) {
		clause := f.(map[string]interface{})
		terms, ok := clause["terms"].(map[string]interface{})
		if !ok {
			continue
		}
		if tokens, ok := terms["properties"]; ok {
			propertyClauses = append(propertyClauses, tokens.([]interface{}))
		}
	}

	if len(propertyClauses) != 2 {
		t.Fatalf("属性过滤子句数 = %d, 期望 2（每个属性名一条）", len(propertyClauses))
	}
	// 属性名按字典序排列：color 在 size 前。
	wantColor := []interface{}{"color||red", "color||blue"}
	wantSize := []interface{}{"size||M"}
	if !reflect.DeepEqual(propertyClauses[0], wantColor) {
		t.Errorf("color 子句 token = %v, 期望 %v", propertyClauses[0], wantColor)
	}
	if !reflect.DeepEqual(propertyClauses[1], wantSize) {
		t.Errorf("size 子句 token = %v, 期望 %v", propertyClauses[1], wantSize)
	}
}

func TestBuildFacetFilters_TaxonClause(t *testing.T) {
	// 空集合：不应出现 taxon_ids 的 terms 子句。
	body := compile(t, models.ProductSearchRequest{})
	for _, f := range facetFilters(t, body) {
		if terms, ok := f.(map[string]interface{})["terms"].(map[string]interface{}); ok {
			if _, present := terms["taxon_ids"]; present {
				t.Fatal("taxon_ids 为空时不应产出分类过滤子句")
			}
		}
	}

	// 非空集合：恰好一条 terms 子句，包含全部 ID。
	body = compile(t, models.ProductSearchRequest{TaxonIDs: []uint64{5, 9}})
	var taxonClauses []interface{}
	for _, f := range facetFilters(t, body) {
		if terms, ok := f.(map[string]interface{})["terms"].(map[string]interface{}); ok {
			if ids, present := terms["taxon_ids"]; present {
				taxonClauses = append(taxonClauses, ids)
			}
		}
	}
	if len(taxonClauses) != 1 {
		t.Fatalf("分类过滤子句数 = %d, 期望 1", len(taxonClauses))
	}
	want := []interface{}{float64(5), float64(9)}
	if !reflect.DeepEqual(taxonClauses[0], want) {
		t.Errorf("分类 ID = %v, 期望 %v", taxonClauses[0], want)
	}
}

func TestBuildFacetFilters_LifecycleAlwaysPresent(t *testing.T) {
	body := compile(t, models.ProductSearchRequest{})
	filters := facetFilters(t, body)

	wantHour := "2025-06-15T14:00:00Z"
	var sawAvailable, sawDiscontinue bool
	for _, f := range filters {
		clause := f.(map[string]interface{})
		if rng, ok := clause["range"].(map[string]interface{}); ok {
			if avail, ok := rng["available_on"].(map[string]interface{}); ok {
				sawAvailable = true
				if got := avail["lte"]; got != wantHour {
					t.Errorf("available_on.lte = %v, 期望 %v（截断到整点）", got, wantHour)
				}
			}
		}
		if b, ok := clause["bool"].(map[string]interface{}); ok {
			should, ok := b["should"].([]interface{})
			if !ok || len(should) != 2 {
				continue
			}
			sawDiscontinue = true
			rng := dig(t, should[1].(map[string]interface{}), "range", "discontinue_on").(map[string]interface{})
			if got := rng["gte"]; got != wantHour {
				t.Errorf("discontinue_on.gte = %v, 期望 %v", got, wantHour)
			}
		}
	}
	if !sawAvailable {
		t.Error("过滤链缺少上架时间过滤")
	}
	if !sawDiscontinue {
		t.Error("过滤链缺少下架时间过滤")
	}
}

func TestBuildPriceFilter(t *testing.T) {
	ptr := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		min, max *float64
		want     bool
	}{
		{"双端缺失", nil, nil, false},
		{"仅有下限", ptr(5), nil, false},
		{"仅有上限", nil, ptr(10), false},
		{"区间倒置", ptr(10), ptr(5), false},
		{"区间为空点", ptr(5), ptr(5), false},
		{"合法区间", ptr(5), ptr(10), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := compile(t, models.ProductSearchRequest{PriceMin: tt.min, PriceMax: tt.max})
			_, present := body["post_filter"]
			if present != tt.want {
				t.Fatalf("post_filter 存在 = %v, 期望 %v", present, tt.want)
			}
			if !tt.want {
				return
			}
			rng := dig(t, body, "post_filter", "range", "price").(map[string]interface{})
			if rng["gte"] != float64(5) || rng["lte"] != float64(10) {
				t.Errorf("价格区间 = %v, 期望 gte=5 lte=10", rng)
			}
		})
	}
}

func TestPriceFilter_DoesNotTouchFacetChain(t *testing.T) {
	ptr := func(v float64) *float64 { return &v }
	without := compile(t, models.ProductSearchRequest{TaxonIDs: []uint64{3}})
	with := compile(t, models.ProductSearchRequest{TaxonIDs: []uint64{3}, PriceMin: ptr(5), PriceMax: ptr(10)})

	if !reflect.DeepEqual(facetFilters(t, without), facetFilters(t, with)) {
		t.Error("价格过滤改变了分面可见的过滤链，应保持分面中立")
	}
	if !reflect.DeepEqual(without["aggregations"], with["aggregations"]) {
		t.Error("价格过滤改变了聚合定义")
	}
}

func TestResolveSortClause(t *testing.T) {
	nameAsc := map[string]interface{}{"untouched_name": map[string]interface{}{"order": "asc"}}
	nameDesc := map[string]interface{}{"untouched_name": map[string]interface{}{"order": "desc"}}
	priceAsc := map[string]interface{}{"price": map[string]interface{}{"order": "asc"}}
	priceDesc := map[string]interface{}{"price": map[string]interface{}{"order": "desc"}}

	tests := []struct {
		mode models.SortMode
		want []interface{}
	}{
		{models.SortNameAsc, []interface{}{nameAsc, priceAsc, "_score"}},
		{models.SortNameDesc, []interface{}{nameDesc, priceAsc, "_score"}},
		{models.SortPriceAsc, []interface{}{priceAsc, nameAsc, "_score"}},
		{models.SortPriceDesc, []interface{}{priceDesc, nameAsc, "_score"}},
		{models.SortScore, []interface{}{"_score", nameAsc, priceAsc}},
		{models.SortDefault, []interface{}{"_score", nameAsc, priceAsc}},
		{models.SortMode("xyz"), []interface{}{"_score", nameAsc, priceAsc}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			body := compile(t, models.ProductSearchRequest{Sorting: tt.mode})
			if got := body["sort"]; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("sort = %v, 期望 %v", got, tt.want)
			}
		})
	}
}

func TestBuildAggregations_FixedShape(t *testing.T) {
	// 聚合定义与输入无关，两种差异很大的请求应产出完全相同的聚合。
	ptr := func(v float64) *float64 { return &v }
	a := compile(t, models.ProductSearchRequest{})
	b := compile(t, models.ProductSearchRequest{
		Query:      "shoes",
		Properties: map[string][]string{"brand": {"acme"}},
		TaxonIDs:   []uint64{1},
		PriceMin:   ptr(1),
		PriceMax:   ptr(2),
	})
	if !reflect.DeepEqual(a["aggregations"], b["aggregations"]) {
		t.Fatal("聚合定义应与输入无关")
	}

	aggs := a["aggregations"].(map[string]interface{})
	if _, ok := dig(t, aggs, "price", "stats").(map[string]interface{}); !ok {
		t.Error("缺少价格 stats 聚合")
	}
	props := dig(t, aggs, "properties", "terms").(map[string]interface{})
	if props["field"] != "properties" || props["size"] != float64(aggregationSizeCap) {
		t.Errorf("properties 聚合定义不符: %v", props)
	}
	if order := dig(t, aggs, "properties", "terms", "order").(map[string]interface{}); order["_count"] != "asc" {
		t.Errorf("properties 聚合排序 = %v, 期望 _count asc", order)
	}
	taxons := dig(t, aggs, "taxon_ids", "terms").(map[string]interface{})
	if taxons["field"] != "taxon_ids" || taxons["size"] != float64(aggregationSizeCap) {
		t.Errorf("taxon_ids 聚合定义不符: %v", taxons)
	}
}

func TestAssembleSearchBody_EmptyRequest(t *testing.T) {
	body := compile(t, models.ProductSearchRequest{})

	if got := body["min_score"]; got != 0.1 {
		t.Errorf("min_score = %v, 期望 0.1", got)
	}
	if got := body["from"]; got != float64(0) {
		t.Errorf("from = %v, 期望 0", got)
	}
	if _, present := body["post_filter"]; present {
		t.Error("空请求不应产出 post_filter")
	}
	// 即使请求为空，上架/下架两条生命周期过滤也应让过滤链非空。
	if got := len(facetFilters(t, body)); got != 2 {
		t.Errorf("空请求的过滤链长度 = %d, 期望 2", got)
	}
}

func TestAssembleSearchBody_NegativeFromClamped(t *testing.T) {
	body := compile(t, models.ProductSearchRequest{From: -7})
	if got := body["from"]; got != float64(0) {
		t.Errorf("from = %v, 期望钳制为 0", got)
	}
}

func TestBuildProductSearchQuery_Deterministic(t *testing.T) {
	req := models.ProductSearchRequest{
		Query: "shirt",
		Properties: map[string][]string{
			"color": {"red"},
			"size":  {"M", "L"},
			"brand": {"acme"},
		},
		TaxonIDs: []uint64{2, 7},
	}
	first, err := buildProductSearchQuery(req, fixedNow)
	if err != nil {
		t.Fatalf("首次编译失败: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := buildProductSearchQuery(req, fixedNow)
		if err != nil {
			t.Fatalf("第 %d 次编译失败: %v", i, err)
		}
		if string(first) != string(again) {
			t.Fatal("同一请求多次编译产出了不同的字节序列")
		}
	}
}
