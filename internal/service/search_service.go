package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Xushengqwer/go-common/core"

	"github.com/Xushengqwer/product_search/internal/models"
	"github.com/Xushengqwer/product_search/internal/repositories"

	"go.uber.org/zap"
)

// SearchService 封装了与商品搜索相关的业务逻辑。
// 它作为 API 处理层（HTTP Handler）和数据仓库层 (Repository) 之间的中介，
// 负责协调搜索请求的处理、调用数据访问操作，并执行必要的数据转换。
type SearchService struct {
	productRepo       repositories.ProductRepository       // 与 Elasticsearch 交互商品数据。
	hotSearchTermRepo repositories.HotSearchTermRepository // 热门搜索词统计。
	logger            *core.ZapLogger                      // 结构化日志记录。
}

// NewSearchService 创建 SearchService 的一个新实例。
// 参数:
//   - productRepo: 一个已经初始化并准备好的 ProductRepository 实例。
//   - hotSearchTermRepo: 一个已经初始化并准备好的 HotSearchTermRepository 实例。
//   - logger: 一个注入的 Logger 实例，用于服务内部的日志记录。
func NewSearchService(
	productRepo repositories.ProductRepository,
	hotSearchTermRepo repositories.HotSearchTermRepository,
	logger *core.ZapLogger,
) *SearchService {
	if logger == nil {
		panic("创建 SearchService 失败：Logger 实例不能为 nil。")
	}
	if productRepo == nil {
		logger.Fatal("创建 SearchService 失败：ProductRepository 实例不能为 nil。服务将无法执行商品搜索操作。")
	}
	if hotSearchTermRepo == nil {
		logger.Fatal("创建 SearchService 失败：HotSearchTermRepository 实例不能为 nil。服务将无法处理热门搜索词功能。")
	}

	logger.Info("SearchService 初始化成功 (包含热门搜索词支持)。")
	return &SearchService{
		productRepo:       productRepo,
		hotSearchTermRepo: hotSearchTermRepo,
		logger:            logger,
	}
}

// Search 根据提供的请求条件执行商品的分面搜索操作。
func (s *SearchService) Search(ctx context.Context, req models.ProductSearchRequest) (*models.SearchResult, error) {
	logFields := []zap.Field{
		zap.String("搜索关键词", req.Query),
		zap.Int("起始偏移", req.From),
		zap.Int("返回数量", req.Size),
		zap.String("排序模式", string(req.Sorting)),
	}
	if len(req.Properties) > 0 {
		logFields = append(logFields, zap.Any("筛选_属性", req.Properties))
	}
	if len(req.TaxonIDs) > 0 {
		logFields = append(logFields, zap.Any("筛选_分类", req.TaxonIDs))
	}
	if req.PriceMin != nil && req.PriceMax != nil {
		logFields = append(logFields,
			zap.Float64("筛选_最低价", *req.PriceMin),
			zap.Float64("筛选_最高价", *req.PriceMax),
		)
	}
	s.logger.Info("正在处理商品搜索请求", logFields...)

	searchResult, err := s.productRepo.SearchProducts(ctx, req)
	if err != nil {
		s.logger.Error("调用 ProductRepository 执行搜索操作时发生错误",
			zap.Error(err),
			zap.String("搜索关键词_OnError", req.Query),
			zap.Int("起始偏移_OnError", req.From),
		)
		return nil, fmt.Errorf("执行搜索操作失败: %w", err)
	}

	s.logger.Info("商品搜索成功完成",
		zap.Int64("总命中数", searchResult.Total),
		zap.Int("返回结果数", len(searchResult.Hits)),
		zap.Int("起始偏移", searchResult.From),
		zap.Int("返回数量", searchResult.Size),
		zap.Int64("查询耗时_ms", searchResult.Took),
	)

	return searchResult, nil
}

// GetProduct 按 ID 获取单个商品文档。
// 文档不存在时透传 repositories.ErrProductNotFound，由 API 层映射为 404。
func (s *SearchService) GetProduct(ctx context.Context, productID uint64) (*models.EsProductDocument, error) {
	s.logger.Debug("服务层：正在请求获取单个商品", zap.Uint64("product_id", productID))

	doc, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		// ErrProductNotFound 是预期内的结果，不按错误级别记录。
		s.logger.Debug("获取商品失败", zap.Uint64("product_id", productID), zap.Error(err))
		return nil, err
	}
	return doc, nil
}

// LogSearchQuery 记录一个搜索查询，用于热门搜索词分析。
// 它会规范化查询字符串，然后调用 HotSearchTermRepository 来递增该词的计数。
func (s *SearchService) LogSearchQuery(ctx context.Context, query string) error {
	// 规范化：转换为小写（"Tote" 和 "tote" 视为同一个词），去除首尾空格。
	normalizedQuery := strings.TrimSpace(strings.ToLower(query))

	// 空查询不记录，也不报错。
	if normalizedQuery == "" {
		s.logger.Debug("接收到空查询字符串，跳过热门搜索词记录。")
		return nil
	}

	s.logger.Debug("准备记录并递增搜索词计数",
		zap.String("original_query", query),
		zap.String("normalized_query_to_log", normalizedQuery),
	)

	err := s.hotSearchTermRepo.IncrementSearchTermCount(ctx, normalizedQuery)
	if err != nil {
		s.logger.Error("调用 HotSearchTermRepository 递增搜索词计数失败",
			zap.String("normalized_query", normalizedQuery),
			zap.Error(err),
		)
		// 包装错误并返回。记录热门词失败不应阻塞主搜索流程，
		// 上层（API Handler）在独立的 goroutine 中调用并只记录日志。
		return fmt.Errorf("记录搜索词 '%s' 失败: %w", normalizedQuery, err)
	}

	s.logger.Debug("搜索词计数已成功请求递增", zap.String("normalized_query", normalizedQuery))
	return nil
}

// GetHotSearchTerms 从 HotSearchTermRepository 检索热门搜索词列表。
func (s *SearchService) GetHotSearchTerms(ctx context.Context, limit int) ([]models.HotSearchTerm, error) {
	s.logger.Info("服务层：正在请求获取热门搜索词列表", zap.Int("limit", limit))

	terms, err := s.hotSearchTermRepo.GetHotSearchTerms(ctx, limit)
	if err != nil {
		s.logger.Error("调用 HotSearchTermRepository 获取热门搜索词列表失败",
			zap.Int("limit", limit),
			zap.Error(err),
		)
		return nil, fmt.Errorf("获取热门搜索词列表失败 (limit: %d): %w", limit, err)
	}

	s.logger.Info("服务层：成功获取热门搜索词列表",
		zap.Int("retrieved_count", len(terms)),
		zap.Int("requested_limit", limit),
	)
	return terms, nil
}
