package constants

// 服务级常量，供链路追踪、日志与 Swagger 文档引用。
const (
	// ServiceName 是本服务在注册中心与追踪系统中的逻辑名称。
	ServiceName = "product_search"

	// ServiceVersion 是当前服务版本号，随发布更新。
	ServiceVersion = "1.0.0"
)
