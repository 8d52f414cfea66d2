package registry

import (
	"net"
	"strconv"
	"time"

	"github.com/dep2p/go-wormhole/config"
	"github.com/dep2p/go-wormhole/internal/core/workerpool"
)

// Config 注册服务配置
type Config struct {
	// Port UDP 端口（必须为正）
	Port int

	// ListenHost 监听地址，空表示所有接口
	ListenHost string

	// Workers 工作协程数（必须为正）
	Workers int

	// QueueSize 工作队列容量
	QueueSize int

	// Policy 队列饱和策略
	Policy workerpool.Policy

	// BlockTimeout BlockThenDrop 下的最长等待
	BlockTimeout time.Duration

	// MaxDatagramSize 接收与应答的最大字节数
	MaxDatagramSize int

	// StopGracePeriod 停止时等待执行中命令的宽限期
	StopGracePeriod time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建注册服务配置
func ConfigFromUnified(cfg *config.Config) Config {
	rc := config.DefaultRegistryConfig()
	if cfg != nil {
		rc = cfg.Registry
	}

	policy := workerpool.DropOldest
	if rc.SaturationPolicy == config.PolicyBlockThenDrop {
		policy = workerpool.BlockThenDrop
	}
	return Config{
		Port:            rc.Port,
		ListenHost:      rc.ListenHost,
		Workers:         rc.Workers,
		QueueSize:       rc.QueueSize,
		Policy:          policy,
		BlockTimeout:    rc.BlockTimeout.Duration(),
		MaxDatagramSize: rc.MaxDatagramSize,
		StopGracePeriod: rc.StopGracePeriod.Duration(),
	}
}

// Validate 验证配置
//
// 规则与统一配置的 registry 段相同（config.RegistryConfig.Validate），
// 直接调用 NewService 的使用方与 JSON 配置走同一套校验。
func (c Config) Validate() error {
	return c.unified().Validate()
}

// unified 转换回统一配置的 registry 段
func (c Config) unified() config.RegistryConfig {
	return config.RegistryConfig{
		Port:             c.Port,
		ListenHost:       c.ListenHost,
		Workers:          c.Workers,
		QueueSize:        c.QueueSize,
		SaturationPolicy: c.Policy.String(),
		BlockTimeout:     config.Duration(c.BlockTimeout),
		MaxDatagramSize:  c.MaxDatagramSize,
		StopGracePeriod:  config.Duration(c.StopGracePeriod),
	}
}

// Addr 返回监听地址 host:port
func (c Config) Addr() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.Port))
}

func (c *Config) applyDefaults() {
	if c.QueueSize == 0 {
		c.QueueSize = c.Workers
	}
	if c.MaxDatagramSize == 0 {
		c.MaxDatagramSize = config.MaxUDPPayload
	}
	if c.StopGracePeriod <= 0 {
		c.StopGracePeriod = 5 * time.Second
	}
}
