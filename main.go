package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/Xushengqwer/product_search/docs"

	"github.com/Xushengqwer/go-common/core"
	sharedTracing "github.com/Xushengqwer/go-common/core/tracing"
	"github.com/Xushengqwer/product_search/config"
	"github.com/Xushengqwer/product_search/constants"
	"github.com/Xushengqwer/product_search/internal/api"
	coreES "github.com/Xushengqwer/product_search/internal/core/es"
	coreKafka "github.com/Xushengqwer/product_search/internal/core/kafka"
	repoES "github.com/Xushengqwer/product_search/internal/repositories"
	"github.com/Xushengqwer/product_search/internal/service"
	"github.com/Xushengqwer/product_search/router"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// @title 商品搜索服务 API
// @version 1.0.0
// @description 这是商品搜索服务的 API 文档。它提供从 Kafka 事件中索引的商品的分面搜索能力。
// @termsOfService http://swagger.io/terms/

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8084 // 请根据您的实际配置修改
// @schemes http https  // 根据您的服务支持情况调整
func main() {
	// --- 0. 配置和基础设置 ---
	var configFile string
	flag.StringVar(&configFile, "config", "config/config.development.yaml", "指定配置文件的路径")
	flag.Parse()

	var cfg config.ProductSearchConfig
	if err := core.LoadConfig(configFile, &cfg); err != nil {
		log.Fatalf("致命错误: 加载配置文件 '%s' 失败: %v", configFile, err)
	}

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
	logger.Info("Logger 初始化成功。")

	// --- HTTP Transport 和 Tracer 初始化 ---
	baseHttpTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	var esHttpClientTransport http.RoundTripper = baseHttpTransport

	var tracerShutdown func(context.Context) error = func(ctx context.Context) error { return nil }
	if cfg.TracerConfig.Enabled {
		var err error
		tracerShutdown, err = sharedTracing.InitTracerProvider(
			constants.ServiceName,
			constants.ServiceVersion,
			cfg.TracerConfig,
		)
		if err != nil {
			logger.Fatal("初始化分布式追踪 TracerProvider 失败", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("正在关闭分布式追踪 TracerProvider...")
			if err := tracerShutdown(ctx); err != nil {
				logger.Error("关闭分布式追踪 TracerProvider 时发生错误", zap.Error(err))
			} else {
				logger.Info("分布式追踪 TracerProvider 已成功关闭。")
			}
		}()
		logger.Info("分布式追踪功能已初始化。")
		http.DefaultTransport = otelhttp.NewTransport(http.DefaultTransport)
		logger.Debug("OpenTelemetry HTTP Transport 已初始化并设置为默认值 (用于出站请求追踪)。")
	} else {
		logger.Info("分布式追踪功能已禁用 (根据配置)。")
	}

	// --- 核心组件初始化 ---

	// 初始化 Elasticsearch 客户端。
	// NewESClient 会处理商品索引与热门搜索词索引的创建（如果它们不存在）。
	esClientCore, err := coreES.NewESClient(cfg.ElasticsearchConfig, logger, esHttpClientTransport)
	if err != nil {
		logger.Fatal("创建 Elasticsearch 客户端失败", zap.Error(err))
	}
	logger.Info("Elasticsearch 客户端初始化成功。")

	// 初始化商品仓库 (ProductRepository)
	productIndexName := cfg.ElasticsearchConfig.ProductIndex.Name
	if productIndexName == "" {
		logger.Fatal("商品索引名称 (elasticsearchConfig.productIndex.name) 未在配置中指定。")
	}
	productRepo := repoES.NewESProductRepository(esClientCore.Client, productIndexName, logger)
	logger.Info("商品 Elasticsearch Repository (ProductRepository) 初始化成功。", zap.String("index_name", productIndexName))

	// 初始化热门搜索词仓库 (HotSearchTermRepository)
	hotTermsIndexName := cfg.ElasticsearchConfig.HotTermsIndex.Name
	if hotTermsIndexName == "" {
		logger.Fatal("热门搜索词索引名称 (elasticsearchConfig.hotTermsIndex.name) 未在配置中指定。")
	}
	hotSearchTermRepo := repoES.NewESHotSearchTermRepository(esClientCore.Client, logger, hotTermsIndexName)
	logger.Info("热门搜索词 Elasticsearch Repository (HotSearchTermRepository) 初始化成功。", zap.String("index_name", hotTermsIndexName))

	// 初始化业务服务层 - SearchService
	searchSvc := service.NewSearchService(productRepo, hotSearchTermRepo, logger)
	logger.Info("SearchService 初始化成功。")

	// 初始化业务服务层 - EventService (用于处理 Kafka 事件)
	eventSvc := coreKafka.NewEventService(productRepo, logger)
	logger.Info("EventService 初始化成功。")

	// 初始化 Kafka Sarama 配置
	saramaCfg, err := coreKafka.ConfigureSarama(cfg.KafkaConfig, logger)
	if err != nil {
		logger.Fatal("配置 Sarama (Kafka 客户端库) 失败", zap.Error(err))
	}
	logger.Info("Sarama (Kafka 客户端库) 配置初始化成功。")

	// 初始化 Kafka DLQ (死信队列) 生产者
	dlqProducer, err := coreKafka.NewSyncProducer(cfg.KafkaConfig, saramaCfg, logger)
	if err != nil {
		logger.Fatal("创建 Kafka DLQ 同步生产者失败", zap.Error(err))
	}
	defer func() {
		logger.Info("正在关闭 Kafka DLQ 生产者...")
		if err := dlqProducer.Close(); err != nil {
			logger.Error("关闭 Kafka DLQ 生产者时发生错误", zap.Error(err))
		} else {
			logger.Info("Kafka DLQ 生产者已成功关闭。")
		}
	}()
	logger.Info("Kafka DLQ 同步生产者初始化成功。")

	// 初始化 Kafka 消息处理器 (Handler)
	// 约定：SubscribedTopics[0] 为商品创建/更新事件，SubscribedTopics[1] 为商品删除事件。
	var upsertTopic, deleteTopic string
	if len(cfg.KafkaConfig.SubscribedTopics) >= 1 {
		upsertTopic = cfg.KafkaConfig.SubscribedTopics[0]
	} else {
		logger.Fatal("Kafka 配置错误：未找到用于商品创建/更新事件的主题 (SubscribedTopics[0])")
	}
	if len(cfg.KafkaConfig.SubscribedTopics) >= 2 {
		deleteTopic = cfg.KafkaConfig.SubscribedTopics[1]
	} else {
		logger.Warn("Kafka 配置警告：未明确找到用于删除事件的主题 (期望在 SubscribedTopics[1])。如果服务不处理删除事件，此警告可忽略。")
	}
	if upsertTopic == "" || (deleteTopic == "" && len(cfg.KafkaConfig.SubscribedTopics) > 1) {
		logger.Fatal("Kafka 主题配置不完整：upsertTopic 或 deleteTopic 未能正确从 SubscribedTopics 中提取。")
	}

	kafkaHandler := coreKafka.NewHandler(
		eventSvc,
		dlqProducer,
		cfg.KafkaConfig.DLQTopic,
		upsertTopic,
		deleteTopic,
		logger,
		cfg.KafkaConfig.MaxRetryAttempts,
	)
	logger.Info("Kafka 消息处理器 (Handler) 初始化成功。")

	// 初始化 Kafka 消费者组
	consumerGroup, err := coreKafka.NewConsumerGroup(
		cfg.KafkaConfig,
		saramaCfg,
		kafkaHandler,
		logger,
	)
	if err != nil {
		logger.Fatal("创建 Kafka 消费者组失败", zap.Error(err))
	}
	defer func() {
		logger.Info("正在关闭 Kafka 消费者组...")
		if err := consumerGroup.Close(); err != nil {
			logger.Error("关闭 Kafka 消费者组时发生错误", zap.Error(err))
		} else {
			logger.Info("Kafka 消费者组已成功关闭。")
		}
	}()
	logger.Info("Kafka 消费者组初始化成功。")

	// 初始化 API Handler (控制器)
	searchApiHandler := api.NewSearchHandler(searchSvc, logger)
	logger.Info("API Handler (SearchHandler) 初始化成功。")

	// 初始化并配置 Gin Web 引擎及路由
	ginRouter := router.SetupRouter(logger, &cfg, searchApiHandler)
	logger.Info("Gin Web 引擎及 API 路由初始化和注册成功。")

	// --- 服务启动与优雅关闭 ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumerGroup.Start(ctx)
	logger.Info("Kafka 消费者组已启动，开始在后台消费消息。")

	serverAddr := cfg.Server.ListenAddr
	if serverAddr == "" {
		serverAddr = ":" + cfg.Server.Port
	} else if !strings.Contains(serverAddr, ":") {
		serverAddr = serverAddr + ":" + cfg.Server.Port
	}

	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: ginRouter,
	}

	go func() {
		logger.Info("HTTP API 服务器正在启动...", zap.String("listen_address", serverAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP API 服务器启动失败或意外停止", zap.Error(err))
			cancel()
		}
	}()

	quitSignal := make(chan os.Signal, 1)
	signal.Notify(quitSignal, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("服务已成功启动。正在监听中断或终止信号以进行优雅关闭...")

	receivedSignal := <-quitSignal
	logger.Info("接收到关闭信号，开始进行服务的优雅关闭...", zap.String("signal", receivedSignal.String()))

	cancel()
	logger.Info("已发出全局上下文取消信号，通知所有组件开始关闭。")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	logger.Info("正在优雅地关闭 HTTP API 服务器...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭 HTTP API 服务器时发生错误", zap.Error(err))
	} else {
		logger.Info("HTTP API 服务器已成功关闭。")
	}

	logger.Info("服务所有组件已完成关闭流程，程序即将退出。")
}
