package api

import (
	"net/url"
	"reflect"
	"sort"
	"testing"
)

func TestParsePropertyFilters(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  map[string][]string
	}{
		{
			"单个属性单个值",
			"properties[color]=red",
			map[string][]string{"color": {"red"}},
		},
		{
			"同一属性多个值",
			"properties[color]=red&properties[color]=blue",
			map[string][]string{"color": {"red", "blue"}},
		},
		{
			"多个属性",
			"q=shirt&properties[color]=red&properties[size]=M",
			map[string][]string{"color": {"red"}, "size": {"M"}},
		},
		{
			"无属性参数",
			"q=shirt&taxon_ids=5",
			nil,
		},
		{
			"空属性名被忽略",
			"properties[]=red",
			nil,
		},
		{
			"空属性值被忽略",
			"properties[color]=",
			nil,
		},
		{
			"格式不完整被忽略",
			"properties[color=red&propertiescolor]=red",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("解析测试查询串失败: %v", err)
			}
			got := parsePropertyFilters(values)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parsePropertyFilters(%q) = %v, 期望 %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestParsePropertyFilters_ValueOrderPreserved(t *testing.T) {
	values, err := url.ParseQuery("properties[size]=S&properties[size]=M&properties[size]=L")
	if err != nil {
		t.Fatalf("解析测试查询串失败: %v", err)
	}
	got := parsePropertyFilters(values)

	want := []string{"S", "M", "L"}
	if !reflect.DeepEqual(got["size"], want) {
		t.Errorf("同一属性的值顺序 = %v, 期望保持请求顺序 %v", got["size"], want)
	}

	var names []string
	for name := range got {
		names = append(names, name)
	}
	sort.Strings(names)
	if !reflect.DeepEqual(names, []string{"size"}) {
		t.Errorf("属性名集合 = %v, 期望 [size]", names)
	}
}
