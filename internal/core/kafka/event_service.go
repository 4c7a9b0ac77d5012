package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/product_search/internal/models"
	"github.com/Xushengqwer/product_search/internal/repositories"

	"go.uber.org/zap"
)

// 包级别定义的哨兵错误 (sentinel errors)，用于表示特定的、可预期的错误条件。
// 上层调用者（Kafka 消息处理器）使用 errors.Is() 检查这些错误类型，
// 并据此决定后续行为（例如，对于永久性错误，发送到死信队列而不是重试）。
var (
	ErrInvalidProductID   = errors.New("无效的商品ID")
	ErrEmptyName          = errors.New("商品名称不能为空")
	ErrNegativePrice      = errors.New("商品价格不能为负数")
	ErrInvalidEventFormat = errors.New("无效的事件格式或缺少关键数据")
)

// EventService 封装了处理与商品相关的 Kafka 事件的业务逻辑。
// 它依赖于 ProductRepository 与 Elasticsearch 进行交互。
type EventService struct {
	productRepo repositories.ProductRepository // 与商品数据持久化相关的操作接口。
	logger      *core.ZapLogger                // 结构化日志记录器。
}

// NewEventService 创建 EventService 的新实例。
// 注意：如果关键依赖项为 nil，此函数会 panic，防止服务以损坏状态启动。
func NewEventService(productRepo repositories.ProductRepository, logger *core.ZapLogger) *EventService {
	if productRepo == nil {
		panic("致命错误 [事件服务]: ProductRepository 依赖注入失败，实例不能为 nil")
	}
	if logger == nil {
		panic("致命错误 [事件服务]: ZapLogger 依赖注入失败，实例不能为 nil")
	}
	return &EventService{
		productRepo: productRepo,
		logger:      logger,
	}
}

// HandleProductUpsertEvent 处理商品创建/更新的 Kafka 事件。
// 它会验证事件数据，将其转换为 Elasticsearch 文档模型（包括属性复合 token 的编码），
// 然后调用仓库层进行索引。
// 返回的错误可能包装了预定义的哨兵错误（如 ErrInvalidProductID, ErrEmptyName），
// 以便上层调用者可以进行类型检查。
func (s *EventService) HandleProductUpsertEvent(ctx context.Context, event models.KafkaProductUpsertEvent) error {
	s.logger.Info("开始处理商品创建/更新事件 (ProductUpsertEvent)",
		zap.String("event_id", event.EventID),
		zap.Uint64("product_id", event.ID))

	// --- 输入数据验证 ---
	// 对来自外部系统（Kafka）的数据进行严格验证，避免无效数据污染索引。
	if event.ID <= 0 {
		s.logger.Error("处理 ProductUpsertEvent 失败：事件中包含无效的商品 ID",
			zap.String("event_id", event.EventID),
			zap.Uint64("product_id", event.ID),
			zap.String("校验规则", "ID 必须大于 0"),
		)
		return fmt.Errorf("处理商品创建/更新事件失败，商品 ID '%d' 无效: %w", event.ID, ErrInvalidProductID)
	}
	if event.Name == "" {
		s.logger.Error("处理 ProductUpsertEvent 失败：事件中的商品名称为空",
			zap.String("event_id", event.EventID),
			zap.Uint64("product_id", event.ID),
		)
		return fmt.Errorf("处理商品创建/更新事件失败，商品 ID '%d' 的名称为空: %w", event.ID, ErrEmptyName)
	}
	if event.Price < 0 {
		s.logger.Error("处理 ProductUpsertEvent 失败：事件中的商品价格为负数",
			zap.String("event_id", event.EventID),
			zap.Uint64("product_id", event.ID),
			zap.Float64("price", event.Price),
		)
		return fmt.Errorf("处理商品创建/更新事件失败，商品 ID '%d' 的价格 %f 无效: %w", event.ID, event.Price, ErrNegativePrice)
	}

	// --- 数据转换/映射 ---
	// 将 Kafka 事件模型转换为 Elasticsearch 文档模型，解耦事件格式和存储格式。
	// UntouchedName 是名称的未分词副本，供名称排序使用；
	// Properties 在此处从结构化映射编码为复合 token 列表，
	// 保证索引侧与查询侧使用同一套编码（models.PropertyToken）。
	productDoc := models.EsProductDocument{
		ID:            event.ID,
		Name:          event.Name,
		UntouchedName: event.Name,
		Description:   event.Description,
		SKU:           event.SKU,
		Price:         event.Price,
		AvailableOn:   event.AvailableOn,
		DiscontinueOn: event.DiscontinueOn,
		TaxonIDs:      event.TaxonIDs,
		Properties:    encodePropertyTokens(event.Properties),
	}
	s.logger.Debug("已将 Kafka 事件数据映射到 EsProductDocument 模型",
		zap.String("event_id", event.EventID),
		zap.Uint64("product_id", event.ID),
		zap.Int("property_token_count", len(productDoc.Properties)))

	// --- 调用 Elasticsearch 仓库操作 ---
	err := s.productRepo.IndexProduct(ctx, productDoc)
	if err != nil {
		s.logger.Error("调用 ProductRepository 的 IndexProduct 操作失败",
			zap.String("event_id", event.EventID),
			zap.Uint64("product_id", event.ID),
			zap.Error(err),
		)
		// 将底层错误包装后向上传递，上层调用者据此决定是否重试或发送到 DLQ。
		return fmt.Errorf("索引商品 ID '%d' 到 Elasticsearch 失败: %w", event.ID, err)
	}

	s.logger.Info("成功处理并索引商品创建/更新事件",
		zap.String("event_id", event.EventID),
		zap.Uint64("product_id", event.ID))
	return nil
}

// HandleProductDeleteEvent 处理商品删除的 Kafka 事件。
// 它会验证事件数据，然后调用仓库层从 Elasticsearch 中删除相应的文档。
func (s *EventService) HandleProductDeleteEvent(ctx context.Context, event models.KafkaProductDeleteEvent) error {
	s.logger.Info("开始处理商品删除事件 (ProductDeleteEvent)",
		zap.String("event_id", event.EventID),
		zap.Uint64("product_id", event.ProductID))

	if event.ProductID <= 0 {
		s.logger.Error("处理 ProductDeleteEvent 失败：事件中包含无效的商品 ID",
			zap.String("event_id", event.EventID),
			zap.Uint64("product_id", event.ProductID),
			zap.String("校验规则", "ID 必须大于 0"),
		)
		return fmt.Errorf("处理商品删除事件失败，商品 ID '%d' 无效: %w", event.ProductID, ErrInvalidProductID)
	}

	// productRepo.DeleteProduct 已将 "文档未找到" (404) 处理为幂等成功，
	// 此处收到的任何错误都是真正的基础设施错误。
	err := s.productRepo.DeleteProduct(ctx, event.ProductID)
	if err != nil {
		s.logger.Error("调用 ProductRepository 的 DeleteProduct 操作失败",
			zap.String("event_id", event.EventID),
			zap.Uint64("product_id", event.ProductID),
			zap.Error(err),
		)
		return fmt.Errorf("从 Elasticsearch 删除商品 ID '%d' 失败: %w", event.ProductID, err)
	}

	s.logger.Info("成功处理并删除商品事件",
		zap.String("event_id", event.EventID),
		zap.Uint64("product_id", event.ProductID))
	return nil
}

// encodePropertyTokens 把结构化的属性映射编码为 "<属性名>||<属性值>" 复合 token 列表。
// 属性名与同名属性下的属性值都按字典序排列，保证同一事件多次处理产出相同的文档。
func encodePropertyTokens(properties map[string][]string) []string {
	if len(properties) == 0 {
		return nil
	}

	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var tokens []string
	for _, name := range names {
		values := append([]string(nil), properties[name]...)
		sort.Strings(values)
		for _, value := range values {
			tokens = append(tokens, models.PropertyToken(name, value))
		}
	}
	return tokens
}
