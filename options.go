package wormhole

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-wormhole/config"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 基础配置（WithConfig / WithConfigFile），为空时使用默认值
	base *config.Config

	// 注册服务覆盖项
	port       *int
	workers    *int
	listenHost *string

	// 指标
	metrics struct {
		enable   *bool
		addr     *string
		registry *prometheus.Registry
	}

	// 限流
	rateLimit struct {
		enable *bool
		rate   float64
		burst  int
	}

	// Fx
	fxDebug       bool
	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{}
}

// toConfig 合并基础配置与覆盖项
func (o *options) toConfig() *config.Config {
	var cfg *config.Config
	if o.base != nil {
		cfg = o.base.Clone()
	} else {
		cfg = config.NewConfig()
	}

	if o.port != nil {
		cfg.Registry.Port = *o.port
	}
	if o.workers != nil {
		cfg.Registry.Workers = *o.workers
	}
	if o.listenHost != nil {
		cfg.Registry.ListenHost = *o.listenHost
	}

	if o.metrics.enable != nil {
		cfg.Metrics.Enabled = *o.metrics.enable
	}
	if o.metrics.addr != nil {
		cfg.Metrics.ListenAddr = *o.metrics.addr
	}

	if o.rateLimit.enable != nil {
		cfg.RateLimit.Enabled = *o.rateLimit.enable
		if o.rateLimit.rate > 0 {
			cfg.RateLimit.PerSenderRate = o.rateLimit.rate
		}
		if o.rateLimit.burst > 0 {
			cfg.RateLimit.Burst = o.rateLimit.burst
		}
	}
	return cfg
}

// ============================================================================
//                              配置文件选项
// ============================================================================

// WithConfig 使用完整配置作为基础，其余选项在其上覆盖
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("config must not be nil")
		}
		o.base = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载基础配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.base = cfg
		return nil
	}
}

// ============================================================================
//                              注册服务选项
// ============================================================================

// WithPort 设置 UDP 监听端口
//
// 非正值会在 New 时返回 ErrInvalidConfiguration。
func WithPort(port int) Option {
	return func(o *options) error {
		o.port = &port
		return nil
	}
}

// WithWorkers 设置命令处理工作协程数
func WithWorkers(n int) Option {
	return func(o *options) error {
		o.workers = &n
		return nil
	}
}

// WithListenHost 设置监听地址，例如 "127.0.0.1" 或 "::"
func WithListenHost(host string) Option {
	return func(o *options) error {
		o.listenHost = &host
		return nil
	}
}

// ============================================================================
//                              限流选项
// ============================================================================

// WithRateLimit 启用按来源 IP 的令牌桶限流
//
// rate 为每秒数据报数，burst 为突发容量，0 表示沿用配置中的值。
func WithRateLimit(rate float64, burst int) Option {
	return func(o *options) error {
		if rate < 0 || burst < 0 {
			return fmt.Errorf("rate limit must not be negative")
		}
		enable := true
		o.rateLimit.enable = &enable
		o.rateLimit.rate = rate
		o.rateLimit.burst = burst
		return nil
	}
}

// ============================================================================
//                              指标选项
// ============================================================================

// WithMetrics 启用或禁用 Prometheus 指标
func WithMetrics(enable bool) Option {
	return func(o *options) error {
		o.metrics.enable = &enable
		return nil
	}
}

// WithMetricsAddr 设置 /metrics HTTP 监听地址
//
// 示例:
//
//	reg, _ := wormhole.Start(ctx,
//	    wormhole.WithMetricsAddr("127.0.0.1:9301"),
//	)
func WithMetricsAddr(addr string) Option {
	return func(o *options) error {
		o.metrics.addr = &addr
		return nil
	}
}

// WithPrometheusRegistry 把指标注册到已有的 Registry
//
// 同一进程内运行多个实例时，每个实例应使用独立 Registry 或不同命名空间。
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(o *options) error {
		o.metrics.registry = reg
		return nil
	}
}

// ============================================================================
//                              Fx 选项
// ============================================================================

// WithFxDebug 输出 Fx 依赖注入事件日志
func WithFxDebug() Option {
	return func(o *options) error {
		o.fxDebug = true
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
