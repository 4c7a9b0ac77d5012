package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/product_search/config"
	"go.uber.org/zap"
)

// ConsumerGroup 代表一个 Sarama 消费者组及其关联的处理程序 (handler)。
// 它封装了消费者组的生命周期管理、消息消费循环以及优雅关闭的逻辑。
type ConsumerGroup struct {
	cg      sarama.ConsumerGroup        // Sarama 库提供的消费者组客户端实例。
	handler sarama.ConsumerGroupHandler // 用户定义的消息处理逻辑，需实现 Sarama 的接口。
	topics  []string                    // 当前消费者组实例订阅的 Kafka 主题列表。
	wg      *sync.WaitGroup             // 用于在关闭时等待消费循环 goroutine 安全退出。
	logger  *core.ZapLogger             // 注入的 Logger 实例，用于结构化日志记录。
	groupID string                      // 消费者组的 Group ID，主要用于日志记录，方便追踪。
}

// NewConsumerGroup 初始化并设置 Kafka 消费者组实例。
// 它负责创建 Sarama 消费者组客户端，并配置其订阅的主题和消息处理器。
// 参数:
//   - cfg: 应用程序的 KafkaConfig 配置结构体，包含了 Broker 地址、Group ID、订阅主题等信息。
//   - clientConfig: 预先配置好的 Sarama 配置对象 (通常由 ConfigureSarama 函数生成)。
//   - handler: 实现了 sarama.ConsumerGroupHandler 接口的消息处理器。
//   - logger: 用于日志记录的 ZapLogger 实例。
func NewConsumerGroup(
	cfg config.KafkaConfig,
	clientConfig *sarama.Config,
	handler sarama.ConsumerGroupHandler,
	logger *core.ZapLogger,
) (*ConsumerGroup, error) {
	if logger == nil {
		return nil, errors.New("初始化消费者组失败：logger 实例不能为空")
	}
	if handler == nil {
		logger.Error("初始化消费者组失败：消息处理器 (handler) 不能为空")
		return nil, errors.New("初始化消费者组失败：消息处理器 (handler) 不能为空")
	}
	if cfg.GroupID == "" {
		logger.Error("初始化消费者组失败：消费者组 ID (GroupID) 不能为空")
		return nil, errors.New("初始化消费者组失败：消费者组 ID (GroupID) 不能为空")
	}
	if clientConfig == nil {
		logger.Error("初始化消费者组失败：Sarama 客户端配置 (clientConfig) 不能为空")
		return nil, errors.New("初始化消费者组失败：Sarama 客户端配置 (clientConfig) 不能为空")
	}

	// 消费者组必须订阅至少一个有效的主题才能开始消费消息。
	if len(cfg.SubscribedTopics) == 0 {
		logger.Error("初始化消费者组失败：订阅的主题列表 (SubscribedTopics) 不能为空")
		return nil, errors.New("初始化消费者组失败：订阅的主题列表 (SubscribedTopics) 不能为空")
	}
	validTopics := make([]string, 0, len(cfg.SubscribedTopics))
	for _, topic := range cfg.SubscribedTopics {
		if topic == "" {
			logger.Error("初始化消费者组失败：订阅的主题列表中包含空主题名称", zap.Strings("configured_topics", cfg.SubscribedTopics))
			return nil, errors.New("初始化消费者组失败：订阅的主题列表中包含空主题名称")
		}
		validTopics = append(validTopics, topic)
	}
	logger.Info("消费者将订阅以下主题", zap.Strings("topics", validTopics), zap.String("group_id", cfg.GroupID))

	cg, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, clientConfig)
	if err != nil {
		logger.Error("创建 Kafka 消费者组客户端失败",
			zap.String("group_id", cfg.GroupID),
			zap.Strings("brokers", cfg.Brokers),
			zap.Error(err),
		)
		return nil, fmt.Errorf("创建 Kafka 消费者组 '%s' 失败: %w", cfg.GroupID, err)
	}
	logger.Info("Kafka 消费者组客户端初始化成功", zap.String("group_id", cfg.GroupID))

	return &ConsumerGroup{
		cg:      cg,
		handler: handler,
		topics:  validTopics,
		wg:      new(sync.WaitGroup),
		logger:  logger,
		groupID: cfg.GroupID,
	}, nil
}

// Start 在一个单独的 goroutine 中启动消费者组的消费循环。
// 此方法是非阻塞的。它会启动一个后台 goroutine 来处理消息的拉取和消费，
// 并尝试等待消息处理器 (handler) 准备就绪（如果 handler 提供了 Ready() 信号）。
// 参数:
//   - ctx: 上下文对象，用于控制消费循环的生命周期。当 ctx 被取消时，消费循环应优雅退出。
func (c *ConsumerGroup) Start(ctx context.Context) {
	c.logger.Info("准备启动消费者组",
		zap.String("group_id", c.groupID),
		zap.Strings("topics", c.topics),
	)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		c.logger.Info("消费者组的消费 goroutine 已启动", zap.String("group_id", c.groupID))

		// Consume 在重平衡期间会正常返回，循环确保此时重新加入消费者组。
		for {
			if err := c.cg.Consume(ctx, c.topics, c.handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					// 预期的错误，通常表示消费者组正在关闭或上下文已被取消。
					c.logger.Info("消费者组的消费循环已优雅停止",
						zap.String("group_id", c.groupID),
						zap.Error(err),
					)
					return
				}
				// 其他错误可能是暂时的网络或 Broker 问题，延迟后重试，
				// 避免进入快速失败的紧密循环。
				c.logger.Error("消费者组 Consume 操作出错，将在短暂延迟后重试",
					zap.String("group_id", c.groupID),
					zap.Error(err),
				)

				select {
				case <-time.After(5 * time.Second):
					c.logger.Info("延迟结束，尝试重新执行 Consume 操作", zap.String("group_id", c.groupID))
				case <-ctx.Done():
					c.logger.Info("消费者组在重试延迟期间，上下文被取消，将退出",
						zap.String("group_id", c.groupID),
						zap.Error(ctx.Err()),
					)
					return
				}
			}

			// Consume 可能因重平衡正常返回 (err == nil)，但此时外部服务可能已请求关闭。
			if ctx.Err() != nil {
				c.logger.Info("上下文已取消，退出消费者组的消费循环",
					zap.String("group_id", c.groupID),
					zap.Error(ctx.Err()),
				)
				return
			}
			c.logger.Info("Consume 调用正常结束 (可能发生重平衡)，将重新尝试加入消费", zap.String("group_id", c.groupID))
		}
	}()

	// 等待 handler 的就绪信号，防止 ConsumerGroup 过早地认为服务已完全启动。
	// 类型断言用于检查 handler 是否实现了这个可选的 Ready() 接口。
	if chProvider, ok := c.handler.(interface{ Ready() <-chan bool }); ok {
		c.logger.Info("正在等待消费者消息处理器 (handler) 准备就绪...", zap.String("group_id", c.groupID))
		select {
		case <-chProvider.Ready():
			c.logger.Info("消费者消息处理器 (handler) 已准备就绪", zap.String("group_id", c.groupID))
		case <-ctx.Done():
			c.logger.Warn("在等待消息处理器 (handler) 就绪时，上下文被取消",
				zap.String("group_id", c.groupID),
				zap.Error(ctx.Err()),
			)
		}
	} else {
		c.logger.Info("消费者消息处理器 (handler) 未提供 Ready() 通道，跳过就绪状态确认", zap.String("group_id", c.groupID))
	}

	c.logger.Info("消费者组已启动，消费 goroutine 正在运行",
		zap.String("group_id", c.groupID),
		zap.Strings("subscribed_topics", c.topics),
	)
}

// Close 优雅地关闭消费者组。
// 它会首先关闭底层的 Sarama 消费者组客户端，然后在超时保护下等待消费 goroutine 退出。
func (c *ConsumerGroup) Close() error {
	c.logger.Info("开始关闭消费者组...", zap.String("group_id", c.groupID))

	// 先关闭 Sarama 客户端：这会让正在进行的 Consume 调用返回
	// sarama.ErrClosedConsumerGroup，从而使消费 goroutine 优雅退出。
	closeErr := c.cg.Close()
	if closeErr != nil {
		// 即使关闭 Sarama 客户端失败，也应继续尝试等待 goroutine 退出。
		c.logger.Error("关闭 Sarama 消费者组客户端时发生错误",
			zap.String("group_id", c.groupID),
			zap.Error(closeErr),
		)
	} else {
		c.logger.Info("Sarama 消费者组客户端已成功请求关闭", zap.String("group_id", c.groupID))
	}

	// 带超时地等待消费 goroutine 退出：不带超时的 Wait 在 goroutine 卡住时
	// 会导致 Close 无限期阻塞。
	c.logger.Info("正在等待消费者组的消费 goroutine 退出...", zap.String("group_id", c.groupID))
	finished := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(finished)
	}()

	waitTimeout := 15 * time.Second
	select {
	case <-finished:
		c.logger.Info("消费者组的消费 goroutine 已成功退出", zap.String("group_id", c.groupID))
	case <-time.After(waitTimeout):
		c.logger.Warn("等待消费者组的消费 goroutine 退出超时",
			zap.String("group_id", c.groupID),
			zap.Duration("timeout_duration", waitTimeout),
		)
		if closeErr == nil {
			return fmt.Errorf("关闭消费者组 '%s' 时，等待内部 goroutine 退出超时 (%v)", c.groupID, waitTimeout)
		}
	}

	if closeErr != nil {
		return fmt.Errorf("关闭消费者组 '%s' 失败 (Sarama 客户端关闭错误): %w", c.groupID, closeErr)
	}

	c.logger.Info("消费者组已成功关闭", zap.String("group_id", c.groupID))
	return nil
}
