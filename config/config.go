// Package config 提供 wormhole 的统一配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 支持从 JSON 加载和保存。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Registry.Port = 9300
//	cfg.RateLimit.Enabled = true
//
//	// 从文件加载
//	cfg, err := config.LoadFile("/etc/wormhole.json")
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config 是 wormhole 的完整配置结构
//
//   - Registry: UDP 监听与分发（端口、工作池、队列、停止宽限期）
//   - Directory: 目录容量限制
//   - RateLimit: 按来源 IP 限流
//   - Metrics: Prometheus 指标
type Config struct {
	// Registry 注册服务配置
	Registry RegistryConfig `json:"registry"`

	// Directory 目录配置
	Directory DirectoryConfig `json:"directory"`

	// RateLimit 限流配置
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Registry:  DefaultRegistryConfig(),
		Directory: DefaultDirectoryConfig(),
		RateLimit: DefaultRateLimitConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// Validate 验证整个配置
func (c *Config) Validate() error {
	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if err := c.Directory.Validate(); err != nil {
		return fmt.Errorf("directory: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// Clone 返回配置的深拷贝
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// FromJSON 从 JSON 解析配置
//
// 未出现的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return FromJSON(data)
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
