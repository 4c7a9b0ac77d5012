package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/product_search/config"
	"go.uber.org/zap"
)

// ConfigureSarama 根据应用程序的 Kafka 配置，创建一个适用于消费者和生产者的 Sarama 配置对象。
// 此函数旨在将应用层配置（config.KafkaConfig）与 Sarama 库的配置细节解耦。
// 参数:
//   - cfg: 应用程序的 KafkaConfig 配置结构体。
//   - logger: 用于记录配置过程中的信息和警告的 ZapLogger 实例。
//
// 返回值:
//   - *sarama.Config: 配置好的 Sarama 配置对象。
//   - error: 如果配置过程中发生严重错误（例如无效的 Kafka 版本），返回错误。
func ConfigureSarama(cfg config.KafkaConfig, logger *core.ZapLogger) (*sarama.Config, error) {
	saramaCfg := sarama.NewConfig()

	// --- Kafka 版本设置 ---
	// 显式配置 Broker 版本有助于避免因版本不匹配导致的潜在问题或行为不一致。
	if cfg.KafkaVersion != "" {
		version, err := sarama.ParseKafkaVersion(cfg.KafkaVersion)
		if err != nil {
			logger.Error("无效的 Kafka 版本配置",
				zap.String("configured_version", cfg.KafkaVersion),
				zap.Error(err))
			return nil, fmt.Errorf("无效的 Kafka 版本配置 '%s': %w", cfg.KafkaVersion, err)
		}
		saramaCfg.Version = version
		logger.Info("使用 Kafka 版本", zap.String("version", version.String()))
	} else {
		logger.Warn("未在配置中指定 Kafka 版本，将使用 Sarama 的默认版本。建议显式配置以确保兼容性。")
	}

	// --- 消费者设置 ---

	// 重平衡策略：轮询策略将分区逐个分配给消费者，简单且公平，适用于大多数情况。
	saramaCfg.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()

	// 初始偏移量：消费者组首次启动或先前提交的偏移量已过期时，决定从何处开始消费。
	// 商品索引需要处理全部历史事件以重建完整索引，因此默认倾向 "earliest"。
	if cfg.ConsumerGroup.AutoOffsetReset == "earliest" {
		saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
		logger.Info("消费者初始偏移量设置为 'earliest' (OffsetOldest)")
	} else {
		saramaCfg.Consumer.Offsets.Initial = sarama.OffsetNewest
		logger.Info("消费者初始偏移量设置为 'latest' (OffsetNewest)")
	}

	// 会话超时：Broker 在此时间内未收到消费者心跳即认为其已死并触发重平衡。
	if cfg.ConsumerGroup.SessionTimeoutMs > 0 {
		saramaCfg.Consumer.Group.Session.Timeout = time.Duration(cfg.ConsumerGroup.SessionTimeoutMs) * time.Millisecond
		logger.Info("消费者会话超时设置为", zap.Duration("timeout", saramaCfg.Consumer.Group.Session.Timeout))
	} else {
		// 依赖 Sarama 库的默认值可能导致不同版本行为不一，显式设置更稳妥。
		saramaCfg.Consumer.Group.Session.Timeout = 30 * time.Second
		logger.Info("消费者会话超时使用默认值", zap.Duration("timeout", saramaCfg.Consumer.Group.Session.Timeout))
	}

	// 禁用自动提交偏移量，这是实现可靠消息处理的关键：
	// 自动提交可能在消息处理完成前就将其标记为“已提交”，若此时应用崩溃，消息会丢失。
	// 禁用后由应用程序在消息被成功处理后手动 MarkMessage / Commit，
	// 确保消息至少被处理一次 (at-least-once semantics)。
	saramaCfg.Consumer.Offsets.AutoCommit.Enable = false
	logger.Info("消费者偏移量自动提交已禁用，将由应用程序手动管理。")

	// --- 生产者设置 (主要用于向 DLQ 发送消息) ---

	// 对于同步生产者 (sarama.SyncProducer)，这两个选项必须都设置为 true，
	// 调用方才能明确知道每条消息的发送结果。
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Return.Errors = true
	logger.Info("生产者配置：将返回成功和失败的发送结果 (适用于 SyncProducer)。")

	// 同步生产者等待 Broker 确认消息的最长时间，避免长时间阻塞。
	if cfg.Producer.RequestTimeout > 0 {
		saramaCfg.Producer.Timeout = cfg.Producer.RequestTimeout
		logger.Info("生产者请求超时设置为", zap.Duration("timeout", saramaCfg.Producer.Timeout))
	} else {
		saramaCfg.Producer.Timeout = 10 * time.Second
		logger.Info("生产者请求超时使用默认值", zap.Duration("timeout", saramaCfg.Producer.Timeout))
	}

	// ACKS 控制生产者认为发送成功前需要等待多少个副本确认，
	// 是消息持久性和吞吐量之间的权衡。DLQ 这类场景需要高可靠性，默认 WaitForAll。
	originalAcks := cfg.Producer.Acks
	var acksModeStr string
	switch originalAcks {
	case "all", "-1":
		saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
		acksModeStr = "WaitForAll (-1)"
	case "1", "leader":
		saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
		acksModeStr = "WaitForLocal (1)"
	case "0", "none":
		saramaCfg.Producer.RequiredAcks = sarama.NoResponse
		acksModeStr = "NoResponse (0)"
	default:
		saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
		acksModeStr = "WaitForAll (-1) [默认]"
		logger.Warn("无效的生产者 ACKS 配置，将使用 'all' (WaitForAll)",
			zap.String("configured_acks", originalAcks),
			zap.String("used_acks_description", acksModeStr),
		)
	}
	logger.Info("生产者确认级别 (ACKS) 设置为",
		zap.String("acks_mode_description", acksModeStr),
		zap.String("configured_value", originalAcks),
		zap.Int16("acks_value_internal", int16(saramaCfg.Producer.RequiredAcks)),
	)

	return saramaCfg, nil
}
