package config

import "github.com/Xushengqwer/go-common/config"

// ProductSearchConfig 是商品搜索服务的聚合配置，由 core.LoadConfig 从 YAML 文件加载。
type ProductSearchConfig struct {
	Server              config.ServerConfig `mapstructure:"server" json:"server" yaml:"server"`
	ZapConfig           config.ZapConfig    `mapstructure:"zapConfig" json:"zapConfig" yaml:"zapConfig"`
	TracerConfig        config.TracerConfig `mapstructure:"tracerConfig" json:"tracerConfig" yaml:"tracerConfig"`
	KafkaConfig         KafkaConfig         `mapstructure:"kafkaConfig" json:"kafkaConfig" yaml:"kafkaConfig"`
	ElasticsearchConfig ESConfig            `mapstructure:"elasticsearchConfig" json:"elasticsearchConfig" yaml:"elasticsearchConfig"`
}
