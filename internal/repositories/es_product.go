// FileName: repositories/product_repository.go
package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/product_search/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// ErrProductNotFound 表示请求的商品文档在索引中不存在。
// 上层据此区分“正常的未找到”与真正的基础设施错误。
var ErrProductNotFound = errors.New("商品文档不存在")

// ProductRepository 定义了与商品数据在 Elasticsearch 中持久化和检索相关的操作接口。
// 这种接口化设计使得业务逻辑层可以解耦具体的存储实现。
type ProductRepository interface {
	// IndexProduct 索引（创建或更新）一个商品文档到 Elasticsearch。
	// 如果具有相同 ID 的文档已存在，则会更新它；否则，创建新文档。
	IndexProduct(ctx context.Context, doc models.EsProductDocument) error

	// DeleteProduct 根据商品 ID 从 Elasticsearch 中删除一个商品文档。
	// 如果文档不存在，此操作应被视为幂等成功。
	DeleteProduct(ctx context.Context, productID uint64) error

	// GetProductByID 按 ID 取回单个商品文档。
	// 文档不存在时返回 ErrProductNotFound。
	GetProductByID(ctx context.Context, productID uint64) (*models.EsProductDocument, error)

	// SearchProducts 根据提供的搜索请求在 Elasticsearch 中执行分面搜索。
	SearchProducts(ctx context.Context, req models.ProductSearchRequest) (*models.SearchResult, error)
}

// esProductRepository 是 ProductRepository 接口针对 Elasticsearch 的具体实现。
type esProductRepository struct {
	client    *elasticsearch.Client // 注入的 Elasticsearch Go 客户端实例。
	indexName string                // 此仓库操作的目标 Elasticsearch 索引名称。
	logger    *core.ZapLogger       // 注入的 Logger 实例，用于结构化日志记录。
}

// NewESProductRepository 创建一个新的 esProductRepository 实例。
// 参数:
//   - client: 一个初始化完成且可用的 *elasticsearch.Client 实例。
//   - indexName: 将要操作的 Elasticsearch 索引的名称。不能为空。
//   - logger: 一个 *core.ZapLogger 实例，用于日志记录。
//
// 注意：此构造函数在关键依赖缺失时会 panic 或 Fatal，这是快速失败的策略，
// 确保服务不会以不完整状态启动。
func NewESProductRepository(client *elasticsearch.Client, indexName string, logger *core.ZapLogger) ProductRepository {
	if logger == nil {
		panic("创建 esProductRepository 失败：Logger 实例不能为 nil")
	}
	if client == nil {
		logger.Fatal("创建 esProductRepository 失败：Elasticsearch 客户端实例 (client) 不能为 nil。服务将无法执行任何数据库操作。")
	}
	if indexName == "" {
		logger.Fatal("创建 esProductRepository 失败：Elasticsearch 索引名称 (indexName) 不能为空。无法确定操作的目标索引。")
	}

	logger.Info("Elasticsearch ProductRepository 初始化成功",
		zap.String("index_name", indexName),
	)
	return &esProductRepository{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}
}

// logAndWrapESError 是一个辅助函数，用于处理和记录 Elasticsearch API 响应中的错误。
// 它会尝试读取响应体，记录详细的错误信息（包括状态码和响应体），并返回一个包装后的、统一格式的错误。
func (repo *esProductRepository) logAndWrapESError(res *esapi.Response, operationDesc string, contextIdentifier interface{}) error {
	var errBody strings.Builder
	var readErr error
	if res.Body != nil {
		_, readErr = io.Copy(&errBody, res.Body)
	}

	logFields := []zap.Field{
		zap.Any("context_identifier", contextIdentifier),
		zap.String("es_status", res.Status()),
	}

	responseBodyStr := errBody.String()
	if readErr != nil {
		logFields = append(logFields, zap.Error(fmt.Errorf("读取 Elasticsearch 错误响应体失败: %w", readErr)))
	} else if responseBodyStr != "" {
		logFields = append(logFields, zap.String("es_error_response_body", responseBodyStr))
	}

	repo.logger.Error(fmt.Sprintf("Elasticsearch 操作 '%s' 失败", operationDesc), logFields...)

	if responseBodyStr != "" {
		return fmt.Errorf("Elasticsearch 操作 '%s' 失败，状态码: %s，响应: %s", operationDesc, res.Status(), responseBodyStr)
	}
	return fmt.Errorf("Elasticsearch 操作 '%s' 失败，状态码: %s", operationDesc, res.Status())
}

// IndexProduct 在 Elasticsearch 中索引（创建或更新）一个商品文档。
// 它使用商品的 ID 作为 Elasticsearch 文档的 _id，从而实现幂等性：
// 如果具有相同 ID 的文档已存在，则会更新它；否则，会创建新文档。
func (repo *esProductRepository) IndexProduct(ctx context.Context, doc models.EsProductDocument) error {
	// 每次索引操作（无论创建还是更新）都刷新文档的最后更新时间戳，
	// 便于追踪文档的最新状态。统一使用 UTC 时间以避免时区问题。
	doc.UpdatedAt = time.Now().UTC()
	docID := strconv.FormatUint(doc.ID, 10)

	payload, err := json.Marshal(doc)
	if err != nil {
		repo.logger.Error("序列化 EsProductDocument 为 JSON 失败，无法发送给 Elasticsearch",
			zap.Uint64("product_id", doc.ID),
			zap.Error(err),
		)
		return fmt.Errorf("序列化商品文档 (ID: %d) 失败: %w", doc.ID, err)
	}
	repo.logger.Debug("准备索引的文档JSON体", zap.String("document_id", docID), zap.ByteString("payload", payload))

	req := esapi.IndexRequest{
		Index:      repo.indexName,
		DocumentID: docID,
		Body:       bytes.NewReader(payload),
		Refresh:    "false", // 异步刷新。Kafka 消费这种高吞吐写入场景下，写入性能优先于即时可见性。
	}

	res, err := req.Do(ctx, repo.client)
	if err != nil {
		// 此处的错误通常表示网络问题、Elasticsearch 服务不可达或客户端配置错误。
		repo.logger.Error("执行 Elasticsearch 索引请求时发生连接或客户端错误",
			zap.Uint64("product_id", doc.ID),
			zap.Error(err),
		)
		return fmt.Errorf("Elasticsearch 索引请求 (ID: %d) 失败: %w", doc.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return repo.logAndWrapESError(res, "索引商品文档", docID)
	}

	repo.logger.Info("成功发送商品索引/更新请求到 Elasticsearch",
		zap.Uint64("product_id", doc.ID),
		zap.String("es_status", res.Status()),
	)

	// 解析成功响应以获取更细的操作结果 (created / updated / noop)，仅用于调试。
	// 解码失败不视为整体操作失败，HTTP 状态码已表明成功。
	var resultDetails map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&resultDetails); err == nil {
		if esResult, ok := resultDetails["result"].(string); ok {
			repo.logger.Debug("Elasticsearch 商品索引/更新操作的详细结果",
				zap.Uint64("product_id", doc.ID),
				zap.String("es_operation_result", esResult),
			)
		}
	}
	return nil
}

// DeleteProduct 根据文档 ID 从 Elasticsearch 中删除一个商品文档。
// 此操作是幂等的：如果目标文档本就不存在 (Elasticsearch 返回 404 Not Found)，
// 则视为操作成功，因为“文档不存在”这个目标状态已经达成。
func (repo *esProductRepository) DeleteProduct(ctx context.Context, productID uint64) error {
	docID := strconv.FormatUint(productID, 10)
	repo.logger.Info("准备从 Elasticsearch 删除商品文档", zap.String("document_id", docID))

	req := esapi.DeleteRequest{
		Index:      repo.indexName,
		DocumentID: docID,
		Refresh:    "false",
	}

	res, err := req.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行 Elasticsearch 删除请求时发生连接或客户端错误",
			zap.Uint64("product_id", productID),
			zap.Error(err),
		)
		return fmt.Errorf("Elasticsearch 删除请求 (ID: %d) 失败: %w", productID, err)
	}
	defer res.Body.Close()

	// 404 视为成功：删除的目标（确保文档不存在）已经达成，
	// 多次删除同一个不存在的 ID 不会产生错误，也不会阻塞消费流程。
	if res.StatusCode == 404 {
		repo.logger.Warn("尝试删除的商品文档在 Elasticsearch 中未找到，视为操作成功 (幂等性)",
			zap.Uint64("product_id", productID),
			zap.String("es_status", res.Status()),
		)
		return nil
	}

	if res.IsError() {
		return repo.logAndWrapESError(res, "删除商品文档", docID)
	}

	repo.logger.Info("成功发送商品删除请求到 Elasticsearch",
		zap.Uint64("product_id", productID),
		zap.String("es_status", res.Status()),
	)
	return nil
}

// GetProductByID 按 ID 取回单个商品文档的 _source。
func (repo *esProductRepository) GetProductByID(ctx context.Context, productID uint64) (*models.EsProductDocument, error) {
	docID := strconv.FormatUint(productID, 10)

	req := esapi.GetRequest{
		Index:      repo.indexName,
		DocumentID: docID,
	}

	res, err := req.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行 Elasticsearch Get 请求时发生连接或客户端错误",
			zap.Uint64("product_id", productID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("Elasticsearch Get 请求 (ID: %d) 失败: %w", productID, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		repo.logger.Debug("请求的商品文档不存在", zap.Uint64("product_id", productID))
		return nil, ErrProductNotFound
	}

	if res.IsError() {
		return nil, repo.logAndWrapESError(res, "获取商品文档", docID)
	}

	var esResponse struct {
		Found  bool                     `json:"found"`
		Source models.EsProductDocument `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		repo.logger.Error("解码 Elasticsearch Get 响应体失败", zap.Uint64("product_id", productID), zap.Error(err))
		return nil, fmt.Errorf("解码 Elasticsearch Get 响应 (ID: %d) 失败: %w", productID, err)
	}
	if !esResponse.Found {
		return nil, ErrProductNotFound
	}

	return &esResponse.Source, nil
}

// SearchProducts 根据提供的搜索请求在 Elasticsearch 索引中执行分面搜索。
// 除命中列表外，还会解析三组聚合结果（价格统计、属性计数、分类计数）。
func (repo *esProductRepository) SearchProducts(ctx context.Context, req models.ProductSearchRequest) (*models.SearchResult, error) {
	repo.logger.Info("开始执行 Elasticsearch 商品搜索",
		zap.String("query_keywords", req.Query),
		zap.Int("from", req.From),
		zap.Int("size", req.Size),
		zap.String("sorting", string(req.Sorting)),
		zap.Any("filter_properties", req.Properties),
		zap.Any("filter_taxon_ids", req.TaxonIDs),
	)

	queryJSON, err := buildProductSearchQuery(req, time.Now())
	if err != nil {
		repo.logger.Error("构建 Elasticsearch 搜索查询 DSL 失败", zap.Any("search_request_params", req), zap.Error(err))
		return nil, fmt.Errorf("构建搜索查询失败: %w", err)
	}
	repo.logger.Debug("构建的 Elasticsearch 查询 DSL", zap.String("dsl_query", string(queryJSON)))

	// 返回条数属于传输层分页关切，通过请求参数传递而不是编译进查询体。
	searchReq := esapi.SearchRequest{
		Index:          []string{repo.indexName},
		Body:           bytes.NewReader(queryJSON),
		Size:           &req.Size,
		TrackTotalHits: true,
	}

	res, err := searchReq.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行 Elasticsearch 搜索请求时发生连接或客户端错误", zap.String("query_keywords", req.Query), zap.Error(err))
		return nil, fmt.Errorf("Elasticsearch 搜索请求失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, repo.logAndWrapESError(res, "搜索商品文档", req.Query)
	}

	var esResponse struct {
		Took int `json:"took"`
		Hits struct {
			Total struct {
				Value    int64  `json:"value"`
				Relation string `json:"relation"`
			} `json:"total"`
			Hits []struct {
				Source models.EsProductDocument `json:"_source"`
				Score  float64                  `json:"_score,omitempty"`
			} `json:"hits"`
		} `json:"hits"`
		Aggregations struct {
			Price models.PriceStats `json:"price"`
			Properties struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"properties"`
			TaxonIDs struct {
				Buckets []struct {
					Key      uint64 `json:"key"`
					DocCount int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"taxon_ids"`
		} `json:"aggregations"`
	}

	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		repo.logger.Error("解码 Elasticsearch 搜索响应体失败", zap.String("query_keywords", req.Query), zap.Error(err))
		return nil, fmt.Errorf("解码 Elasticsearch 搜索响应失败: %w", err)
	}

	searchResult := &models.SearchResult{
		Hits:  make([]models.EsProductDocument, 0, len(esResponse.Hits.Hits)),
		Total: esResponse.Hits.Total.Value,
		From:  req.From,
		Size:  req.Size,
		Took:  int64(esResponse.Took),
	}
	for _, hit := range esResponse.Hits.Hits {
		searchResult.Hits = append(searchResult.Hits, hit.Source)
	}

	facets := &models.SearchFacets{
		Price:      esResponse.Aggregations.Price,
		Properties: make([]models.PropertyFacetBucket, 0, len(esResponse.Aggregations.Properties.Buckets)),
		TaxonIDs:   make([]models.TaxonFacetBucket, 0, len(esResponse.Aggregations.TaxonIDs.Buckets)),
	}
	for _, bucket := range esResponse.Aggregations.Properties.Buckets {
		facets.Properties = append(facets.Properties, models.PropertyFacetBucket{
			Token: bucket.Key,
			Count: bucket.DocCount,
		})
	}
	for _, bucket := range esResponse.Aggregations.TaxonIDs.Buckets {
		facets.TaxonIDs = append(facets.TaxonIDs, models.TaxonFacetBucket{
			TaxonID: bucket.Key,
			Count:   bucket.DocCount,
		})
	}
	searchResult.Facets = facets

	repo.logger.Info("Elasticsearch 商品搜索成功完成",
		zap.Int64("query_took_ms", searchResult.Took),
		zap.Int64("total_hits_found", searchResult.Total),
		zap.Int("returned_hits_count", len(searchResult.Hits)),
		zap.String("total_hits_relation", esResponse.Hits.Total.Relation),
		zap.Int("requested_from", req.From),
		zap.Int("requested_size", req.Size),
		zap.String("query_keywords", req.Query),
	)

	return searchResult, nil
}
