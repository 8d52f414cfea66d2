package config

import "time"

// 饱和策略
const (
	// PolicyDropOldest 队列满时丢弃最旧的任务
	PolicyDropOldest = "drop-oldest"

	// PolicyBlockThenDrop 队列满时短暂等待，超时丢弃新任务
	PolicyBlockThenDrop = "block-then-drop"
)

// MaxUDPPayload IPv4 UDP 最大负载
const MaxUDPPayload = 65507

// RegistryConfig 注册服务配置
type RegistryConfig struct {
	// Port UDP 监听端口（必须为正）
	Port int `json:"port"`

	// ListenHost 监听地址，空表示所有接口
	ListenHost string `json:"listen_host,omitempty"`

	// Workers 工作协程数量（必须为正）
	Workers int `json:"workers"`

	// QueueSize 任务队列容量
	QueueSize int `json:"queue_size"`

	// SaturationPolicy 队列饱和策略：drop-oldest 或 block-then-drop
	SaturationPolicy string `json:"saturation_policy"`

	// BlockTimeout block-then-drop 策略下的最长等待
	BlockTimeout Duration `json:"block_timeout"`

	// MaxDatagramSize 接收缓冲与应答的最大字节数
	MaxDatagramSize int `json:"max_datagram_size"`

	// StopGracePeriod 停止时等待执行中命令的宽限期
	StopGracePeriod Duration `json:"stop_grace_period"`
}

// DefaultRegistryConfig 返回默认注册服务配置
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Port:             9300,
		Workers:          4,
		QueueSize:        1024,
		SaturationPolicy: PolicyDropOldest,
		BlockTimeout:     Duration(5 * time.Millisecond),
		MaxDatagramSize:  MaxUDPPayload,
		StopGracePeriod:  Duration(5 * time.Second),
	}
}

// Validate 验证注册服务配置
func (c RegistryConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return invalid("port must be in 1..65535, got %d", c.Port)
	}
	if c.Workers <= 0 {
		return invalid("workers must be positive, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return invalid("queue_size must not be negative, got %d", c.QueueSize)
	}
	switch c.SaturationPolicy {
	case "", PolicyDropOldest, PolicyBlockThenDrop:
	default:
		return invalid("unknown saturation_policy %q", c.SaturationPolicy)
	}
	if c.BlockTimeout < 0 {
		return invalid("block_timeout must not be negative")
	}
	if c.MaxDatagramSize < 0 || c.MaxDatagramSize > MaxUDPPayload {
		return invalid("max_datagram_size must be in 0..%d, got %d", MaxUDPPayload, c.MaxDatagramSize)
	}
	if c.StopGracePeriod < 0 {
		return invalid("stop_grace_period must not be negative")
	}
	return nil
}
