package models

// SwaggerSearchResultResponse 是一个专门为 Swagger 文档生成的辅助结构体。
// 它解决了 swag 工具无法正确解析泛型类型 response.APIResponse[models.SearchResult] 的问题。
// 实际的 API 响应仍然使用泛型的 response.APIResponse[models.SearchResult]。
type SwaggerSearchResultResponse struct {
	Code    int          `json:"code"`           // 业务自定义状态码，0 代表成功。
	Message string       `json:"message"`        // 操作结果的文字描述。
	Data    SearchResult `json:"data,omitempty"` // 具体的搜索结果数据负载。
}

// SwaggerProductResponse 是单个商品查询响应的 Swagger 辅助结构体。
type SwaggerProductResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    EsProductDocument `json:"data,omitempty"`
}

// SwaggerErrorResponse 是错误响应的 Swagger 辅助结构体。
type SwaggerErrorResponse struct {
	Code    int         `json:"code"`           // 业务自定义错误码。
	Message string      `json:"message"`        // 错误的文字描述。
	Data    interface{} `json:"data,omitempty"` // 错误响应中 data 字段通常为 null。
}

// SwaggerHealthCheckResponse 是健康检查响应的 Swagger 辅助结构体。
type SwaggerHealthCheckResponse struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// SwaggerHotSearchTermsResponse 是热门搜索词响应的 Swagger 辅助结构体。
type SwaggerHotSearchTermsResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    []HotSearchTerm `json:"data,omitempty"`
}
