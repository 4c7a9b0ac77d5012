package main

import (
	"encoding/json"
	"flag"
	"log" // 标准日志库，用于早期错误输出
	"path/filepath"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/product_search/config"
	internalKafka "github.com/Xushengqwer/product_search/internal/core/kafka" // 为内部 kafka 包使用别名
	"github.com/Xushengqwer/product_search/internal/models"
	"go.uber.org/zap"
)

func main() {
	// --- 0. 配置和基础设置 ---
	var configFile string
	defaultConfigPath := filepath.Join("..", "..", "config", "config.development.yaml")

	flag.StringVar(&configFile, "config", defaultConfigPath, "指定配置文件的路径 (相对于当前工作目录或绝对路径)")
	flag.Parse()

	if !filepath.IsAbs(configFile) {
		absPath, err := filepath.Abs(configFile)
		if err != nil {
			log.Fatalf("无法将配置文件路径 '%s' 转换为绝对路径: %v", configFile, err)
		}
		configFile = absPath
	}
	log.Printf("使用的配置文件: %s", configFile)

	// --- 1. 加载配置 ---
	var cfg config.ProductSearchConfig
	if err := core.LoadConfig(configFile, &cfg); err != nil {
		log.Fatalf("致命错误: 加载配置文件 '%s' 失败: %v", configFile, err)
	}
	log.Println("配置文件加载成功。")

	// --- 2. 初始化 Logger ---
	logger, loggerErr := core.NewZapLogger(cfg.ZapConfig)
	if loggerErr != nil {
		log.Fatalf("致命错误: 初始化 ZapLogger 失败: %v", loggerErr)
	}
	defer func() {
		logger.Info("正在同步所有日志条目...")
		if err := logger.Logger().Sync(); err != nil {
			log.Printf("警告: ZapLogger Sync 操作失败: %v\n", err)
		}
	}()
	logger.Info("Kafka Seeder 的 Zap Logger 初始化成功。")

	// --- 3. 准备 Kafka 生产者 ---
	kafkaCfg := cfg.KafkaConfig
	if len(kafkaCfg.SubscribedTopics) < 2 {
		logger.Fatal("Kafka 配置错误：subscribedTopics 至少需要包含两个主题 (一个用于商品创建/更新，一个用于删除)。")
	}

	upsertTopic := kafkaCfg.SubscribedTopics[0] // 第一个主题用于商品创建/更新事件
	deleteTopic := kafkaCfg.SubscribedTopics[1] // 第二个主题用于商品删除事件

	logger.Info("Kafka Seeder 将使用以下主题",
		zap.String("创建/更新事件主题", upsertTopic),
		zap.String("删除事件主题", deleteTopic),
	)

	saramaConfig, err := internalKafka.ConfigureSarama(kafkaCfg, logger)
	if err != nil {
		logger.Fatal("配置 Sarama (Kafka 客户端库) 失败", zap.Error(err))
	}

	producer, err := sarama.NewSyncProducer(kafkaCfg.Brokers, saramaConfig)
	if err != nil {
		logger.Fatal("创建 Kafka 同步生产者 (SyncProducer) 失败", zap.Error(err))
	}
	defer func() {
		logger.Info("正在关闭 Kafka 同步生产者...")
		if err := producer.Close(); err != nil {
			logger.Error("关闭 Kafka 同步生产者时发生错误", zap.Error(err))
		} else {
			logger.Info("Kafka 同步生产者已成功关闭。")
		}
	}()
	logger.Info("Kafka 同步生产者 (SyncProducer) 初始化成功并已连接。", zap.Strings("Brokers地址", kafkaCfg.Brokers))

	now := time.Now().UTC()
	nextMonth := now.AddDate(0, 1, 0)

	// --- 4. 定义商品创建/更新的测试数据 ---
	testUpsertEvents := []models.KafkaProductUpsertEvent{
		{
			EventID:     "seed-upsert-501",
			ID:          501,
			Name:        "Ruby on Rails 托特包",
			Description: "经典款帆布托特包，印有 Ruby on Rails 标志，适合日常通勤。",
			SKU:         "ROR-TOTE-001",
			Price:       15.99,
			AvailableOn: now.AddDate(0, -1, 0),
			TaxonIDs:    []uint64{1, 2, 5},
			Properties: map[string][]string{
				"material": {"canvas"},
				"color":    {"red", "white"},
			},
		},
		{
			EventID:     "seed-upsert-502",
			ID:          502,
			Name:        "Spree 棒球夹克",
			Description: "复古风格的棒球夹克，袖口与下摆采用罗纹设计。",
			SKU:         "SPR-JKT-002",
			Price:       39.99,
			AvailableOn: now.AddDate(0, -2, 0),
			TaxonIDs:    []uint64{1, 3},
			Properties: map[string][]string{
				"material": {"polyester"},
				"color":    {"blue"},
				"size":     {"M", "L"},
			},
		},
		{
			EventID:     "seed-upsert-503",
			ID:          503,
			Name:        "15\" 笔记本电脑包",
			Description: "带加厚内衬的 15 英寸笔记本电脑包，名称中包含引号用于验证查询转义。",
			SKU:         "LAP-BAG-015",
			Price:       22.50,
			AvailableOn: now,
			TaxonIDs:    []uint64{2, 5},
			Properties: map[string][]string{
				"color": {"black"},
			},
		},
		{
			// 尚未上架的商品，用于验证 available_on 过滤。
			EventID:     "seed-upsert-504",
			ID:          504,
			Name:        "限量版帆布鞋",
			Description: "下个月才开售的限量款帆布鞋。",
			SKU:         "LTD-SHOE-004",
			Price:       89.00,
			AvailableOn: nextMonth,
			TaxonIDs:    []uint64{1, 4},
			Properties: map[string][]string{
				"material": {"canvas"},
				"size":     {"42", "43"},
			},
		},
		{
			// 已停售的商品，用于验证 discontinue_on 过滤。
			EventID:       "seed-upsert-505",
			ID:            505,
			Name:          "旧款法兰绒衬衫",
			Description:   "上个季度已停售的法兰绒衬衫。",
			SKU:           "OLD-FLN-005",
			Price:         12.00,
			AvailableOn:   now.AddDate(-1, 0, 0),
			DiscontinueOn: func() *time.Time { t := now.AddDate(0, -1, 0); return &t }(),
			TaxonIDs:      []uint64{1, 3},
			Properties: map[string][]string{
				"material": {"flannel"},
				"color":    {"red"},
			},
		},
	}

	// --- 5. 发送商品创建/更新事件到 Kafka ---
	logger.Info("开始发送商品创建/更新事件到 Kafka...", zap.Int("消息数量", len(testUpsertEvents)))
	for _, productEvent := range testUpsertEvents {
		payloadBytes, err := json.Marshal(productEvent)
		if err != nil {
			logger.Error("序列化 KafkaProductUpsertEvent 为 JSON 时发生错误",
				zap.Uint64("商品ID", productEvent.ID),
				zap.Error(err))
			continue
		}
		eventKey := strconv.FormatUint(productEvent.ID, 10)
		msg := &sarama.ProducerMessage{
			Topic: upsertTopic,
			Key:   sarama.StringEncoder(eventKey),
			Value: sarama.ByteEncoder(payloadBytes),
		}
		logger.Debug("准备发送的消息详情 (ProductUpsert)",
			zap.String("消息键(Key)", eventKey),
			zap.ByteString("消息体片段(Value snippet)", payloadBytes[:min(100, len(payloadBytes))]))
		partition, offset, err := producer.SendMessage(msg)
		if err != nil {
			logger.Error("发送 ProductUpsert 事件到 Kafka 失败",
				zap.String("目标主题", upsertTopic),
				zap.Uint64("商品ID", productEvent.ID),
				zap.Error(err),
			)
		} else {
			logger.Info("ProductUpsert 事件成功发送到 Kafka",
				zap.String("目标主题", upsertTopic),
				zap.Uint64("商品ID", productEvent.ID),
				zap.Int32("分区(Partition)", partition),
				zap.Int64("偏移量(Offset)", offset),
				zap.Time("发送时间戳", time.Now()),
			)
		}
		time.Sleep(100 * time.Millisecond)
	}
	logger.Info("所有 ProductUpsert 事件已发送（或已尝试发送）到 Kafka。")

	// --- 6. 定义商品删除的测试数据 ---
	// 删除刚创建的 505，以及一个可能不存在的旧商品 (ID: 105)，用于验证删除的幂等性。
	testDeleteEvents := []models.KafkaProductDeleteEvent{
		{
			EventID:   "seed-delete-505",
			Operation: "delete",
			ProductID: 505,
		},
		{
			EventID:   "seed-delete-105",
			Operation: "delete",
			ProductID: 105,
		},
	}

	// --- 7. 发送商品删除事件到 Kafka ---
	logger.Info("开始发送商品删除事件到 Kafka...", zap.Int("消息数量", len(testDeleteEvents)))
	for _, deleteEvent := range testDeleteEvents {
		payloadBytes, err := json.Marshal(deleteEvent)
		if err != nil {
			logger.Error("序列化 KafkaProductDeleteEvent 为 JSON 时发生错误",
				zap.Uint64("商品ID", deleteEvent.ProductID),
				zap.Error(err))
			continue
		}
		eventKey := strconv.FormatUint(deleteEvent.ProductID, 10) // 删除事件同样使用商品 ID 作为 Key
		msg := &sarama.ProducerMessage{
			Topic: deleteTopic,
			Key:   sarama.StringEncoder(eventKey),
			Value: sarama.ByteEncoder(payloadBytes),
		}
		logger.Debug("准备发送的消息详情 (ProductDelete)",
			zap.String("消息键(Key)", eventKey),
			zap.ByteString("消息体片段(Value snippet)", payloadBytes[:min(100, len(payloadBytes))]))
		partition, offset, err := producer.SendMessage(msg)
		if err != nil {
			logger.Error("发送 ProductDelete 事件到 Kafka 失败",
				zap.String("目标主题", deleteTopic),
				zap.Uint64("商品ID", deleteEvent.ProductID),
				zap.Error(err),
			)
		} else {
			logger.Info("ProductDelete 事件成功发送到 Kafka",
				zap.String("目标主题", deleteTopic),
				zap.Uint64("商品ID", deleteEvent.ProductID),
				zap.Int32("分区(Partition)", partition),
				zap.Int64("偏移量(Offset)", offset),
				zap.Time("发送时间戳", time.Now()),
			)
		}
		time.Sleep(100 * time.Millisecond)
	}
	logger.Info("所有 ProductDelete 事件已发送（或已尝试发送）到 Kafka。")

	logger.Info("所有测试数据均已处理完毕。")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
