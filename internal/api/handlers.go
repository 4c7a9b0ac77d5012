package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Xushengqwer/gateway/pkg/response"
	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/product_search/internal/models"
	"github.com/Xushengqwer/product_search/internal/repositories"
	"github.com/Xushengqwer/product_search/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SearchHandler 封装商品搜索相关的 API 请求处理逻辑.
type SearchHandler struct {
	searchService *service.SearchService
	logger        *core.ZapLogger
}

// NewSearchHandler 创建 SearchHandler 实例.
func NewSearchHandler(searchSvc *service.SearchService, logger *core.ZapLogger) *SearchHandler {
	if logger == nil {
		panic("NewSearchHandler: logger cannot be nil")
	}
	if searchSvc == nil {
		logger.Fatal("NewSearchHandler: SearchService 不能为 nil")
	}

	return &SearchHandler{
		searchService: searchSvc,
		logger:        logger,
	}
}

// SearchProducts 处理商品的分面搜索请求
// @Summary      搜索商品
// @Description  根据关键词、价格区间、商品属性、分类与排序条件执行分面搜索。属性过滤使用 properties[<属性名>]=<属性值> 形式的查询参数，可重复出现。
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        q          query     string  false  "搜索关键词"
// @Param        from       query     int     false  "结果集起始偏移" default(0) minimum(0)
// @Param        size       query     int     false  "返回数量" default(10) minimum(1) maximum(100)
// @Param        price_min  query     number  false  "价格下限（须与 price_max 同时提供）"
// @Param        price_max  query     number  false  "价格上限（须与 price_min 同时提供）"
// @Param        taxon_ids  query     []int   false  "分类 ID，可重复出现"
// @Param        sort       query     string  false  "排序模式" default(default) Enums(name_asc, name_desc, price_asc, price_desc, score, default)
// @Success      200        {object}  models.SwaggerSearchResultResponse "搜索成功，返回匹配的商品列表、分面统计及分页信息。"
// @Failure      400        {object}  models.SwaggerErrorResponse "请求参数无效，例如偏移量为负或返回数量超出范围。"
// @Failure      500        {object}  models.SwaggerErrorResponse "服务器内部错误，搜索服务遇到未预期的问题。"
// @Router       /api/v1/products [get]
func (h *SearchHandler) SearchProducts(c *gin.Context) {
	var req models.ProductSearchRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("请求参数绑定或验证失败", zap.Error(err))
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "请求参数无效")
		return
	}

	// gin 的查询绑定无法表达 map[string][]string，属性过滤参数单独解析。
	req.Properties = parsePropertyFilters(c.Request.URL.Query())
	h.logger.Debug("绑定后的商品搜索请求", zap.Any("request", req))

	// --- 异步记录搜索关键词 ---
	if strings.TrimSpace(req.Query) != "" {
		// goroutine 异步执行，避免阻塞主搜索流程。
		queryToLog := req.Query
		go func(query string) {
			// c.Request.Context() 在 HTTP 请求结束后会被取消，
			// 后台任务需要独立的带超时上下文。
			logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := h.searchService.LogSearchQuery(logCtx, query); err != nil {
				// 记录热门词失败不影响主搜索请求的成功状态，只记录错误。
				h.logger.Error("异步记录搜索关键词失败",
					zap.String("query", query),
					zap.Error(err),
				)
			} else {
				h.logger.Debug("搜索关键词已异步提交记录", zap.String("query", query))
			}
		}(queryToLog)
	}

	results, err := h.searchService.Search(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("服务层搜索失败", zap.Error(err))
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "搜索服务内部错误")
		return
	}

	h.logger.Info("商品搜索成功", zap.Int("结果数量", len(results.Hits)))
	response.RespondSuccess(c, results, "搜索成功")
}

// parsePropertyFilters 从原始查询参数中提取 properties[<属性名>]=<属性值> 形式的属性过滤条件。
// 同一属性名可出现多次（属性值之间是 OR 关系）；没有合法属性参数时返回 nil。
func parsePropertyFilters(query map[string][]string) map[string][]string {
	const prefix = "properties["
	var properties map[string][]string

	for key, values := range query {
		if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, "]") {
			continue
		}
		name := key[len(prefix) : len(key)-1]
		if name == "" {
			continue
		}
		for _, value := range values {
			if value == "" {
				continue
			}
			if properties == nil {
				properties = make(map[string][]string)
			}
			properties[name] = append(properties[name], value)
		}
	}
	return properties
}

// GetProductByID 处理按 ID 获取单个商品的请求
// @Summary      获取单个商品
// @Description  按商品 ID 返回索引中的商品文档。
// @Tags         Search
// @Produce      json
// @Param        id   path      int  true  "商品 ID"
// @Success      200  {object}  models.SwaggerProductResponse "成功，返回商品文档。"
// @Failure      400  {object}  models.SwaggerErrorResponse "商品 ID 无效。"
// @Failure      404  {object}  models.SwaggerErrorResponse "商品不存在。"
// @Failure      500  {object}  models.SwaggerErrorResponse "服务器内部错误。"
// @Router       /api/v1/products/{id} [get]
func (h *SearchHandler) GetProductByID(c *gin.Context) {
	idStr := c.Param("id")
	productID, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || productID == 0 {
		h.logger.Warn("无效的商品 ID 路径参数", zap.String("raw_id", idStr))
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "商品 ID 无效")
		return
	}

	doc, err := h.searchService.GetProduct(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			response.RespondError(c, http.StatusNotFound, response.ErrCodeClientInvalidInput, "商品不存在")
			return
		}
		h.logger.Error("服务层获取商品失败", zap.Uint64("product_id", productID), zap.Error(err))
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "获取商品失败")
		return
	}

	response.RespondSuccess(c, doc, "获取商品成功")
}

// GetHotSearchTerms 处理获取热门搜索词的请求
// @Summary      获取热门搜索词
// @Description  返回最流行搜索词的列表。
// @Tags         Search
// @Produce      json
// @Param        limit    query     int     false  "返回的热门搜索词数量" default(10) minimum(1) maximum(50)
// @Success      200      {object}  models.SwaggerHotSearchTermsResponse "成功，返回热门搜索词列表。"
// @Failure      500      {object}  models.SwaggerErrorResponse "服务器内部错误，无法获取热门搜索词。"
// @Router       /api/v1/hot-terms [get]
func (h *SearchHandler) GetHotSearchTerms(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 10
	} else if limit > 50 {
		// 最大上限，防止请求过多数据。
		limit = 50
	}

	h.logger.Info("收到获取热门搜索词请求", zap.Int("limit", limit))

	terms, err := h.searchService.GetHotSearchTerms(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("服务层获取热门搜索词失败", zap.Int("limit", limit), zap.Error(err))
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "获取热门搜索词失败")
		return
	}

	// 列表为 nil 时（还没有任何统计数据）返回空数组而不是 null。
	if terms == nil {
		terms = make([]models.HotSearchTerm, 0)
	}

	h.logger.Info("成功获取热门搜索词列表", zap.Int("count", len(terms)), zap.Int("requested_limit", limit))
	response.RespondSuccess(c, terms, "热门搜索词获取成功")
}

// HealthCheck 健康检查处理函数
// @Summary      存活度健康检查
// @Tags         Health
// @Produce      json
// @Success      200  {object}  models.SwaggerHealthCheckResponse "服务存活。"
// @Router       /api/v1/_health [get]
func (h *SearchHandler) HealthCheck(c *gin.Context) {
	h.logger.Debug("执行存活度健康检查")
	response.RespondSuccess(c, gin.H{"status": "ok"}, "服务存活")
}

// RegisterRoutes 将商品搜索相关的路由注册到提供的 Gin 路由组 (RouterGroup) 上。
func (h *SearchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	h.logger.Info("开始注册 SearchHandler 的路由...")

	rg.GET("/products", h.SearchProducts)
	h.logger.Info("路由 GET /products 已注册到 SearchHandler.SearchProducts")

	rg.GET("/products/:id", h.GetProductByID)
	h.logger.Info("路由 GET /products/:id 已注册到 SearchHandler.GetProductByID")

	rg.GET("/hot-terms", h.GetHotSearchTerms)
	h.logger.Info("路由 GET /hot-terms 已注册到 SearchHandler.GetHotSearchTerms")

	rg.GET("/_health", h.HealthCheck)
	h.logger.Info("路由 GET /_health 已注册到 SearchHandler.HealthCheck")

	h.logger.Info("SearchHandler 的所有路由已注册完成。")
}
