package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/dep2p/go-wormhole/config"
	"github.com/dep2p/go-wormhole/internal/core/directory"
	"github.com/dep2p/go-wormhole/internal/util/logger"
)

var log = logger.Logger("metrics")

// Config 指标配置
type Config struct {
	// Namespace 指标前缀
	Namespace string

	// ListenAddr /metrics 监听地址，空表示不暴露
	ListenAddr string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{Namespace: config.DefaultMetricsConfig().Namespace}
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Namespace:  cfg.Metrics.Namespace,
		ListenAddr: cfg.Metrics.ListenAddr,
	}
}

// Params Metrics 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config       `optional:"true"`
	Registry   *prometheus.Registry `optional:"true"`
	Directory  *directory.Directory `optional:"true"`
	Lifecycle  fx.Lifecycle
}

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建 Metrics，并按配置挂载 HTTP 暴露
func NewFromParams(p Params) (*Metrics, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)

	m, err := New(cfg.Namespace, p.Registry)
	if err != nil {
		return nil, err
	}
	if p.Directory != nil {
		if err := m.WatchDirectory(p.Directory); err != nil {
			return nil, err
		}
	}
	if cfg.ListenAddr != "" {
		p.Lifecycle.Append(m.httpHook(cfg.ListenAddr))
	}
	return m, nil
}

// Handler 返回 /metrics HTTP Handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) httpHook(addr string) fx.Hook {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	return fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			log.Info("metrics endpoint listening", "addr", ln.Addr().String())
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Warn("metrics endpoint stopped", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	}
}
