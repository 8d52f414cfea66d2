package wormhole

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-wormhole/config"
	"github.com/dep2p/go-wormhole/internal/core/directory"
	"github.com/dep2p/go-wormhole/internal/core/metrics"
	"github.com/dep2p/go-wormhole/internal/registry"
	"github.com/dep2p/go-wormhole/internal/util/logger"
)

var log = logger.Logger("wormhole")

const (
	// startTimeout Fx App 启动超时
	startTimeout = 15 * time.Second

	// closeTimeout Close 使用的停止超时（宽限期另由配置控制）
	closeTimeout = 30 * time.Second
)

// Registry 会合注册服务实例
//
// 由 New 创建，Start 绑定套接字，Stop/Close 释放。停止后不能再次启动。
type Registry struct {
	mu     sync.Mutex
	config *config.Config
	app    *fx.App

	// 由 Fx 注入
	service *registry.Service
	dir     *directory.Directory
	metrics *metrics.Metrics

	started bool
	stopped bool
}

// New 创建注册服务（不绑定套接字）
//
// 配置非法时返回 ErrInvalidConfiguration。
func New(opts ...Option) (*Registry, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	r := &Registry{config: o.toConfig()}

	app, err := buildFxApp(r.config, o, r)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	r.app = app
	return r, nil
}

// Start 快捷启动函数，等价于 New() + Start()
func Start(ctx context.Context, opts ...Option) (*Registry, error) {
	r, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := r.Start(ctx); err != nil {
		return nil, fmt.Errorf("start registry: %w", err)
	}
	return r, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 绑定 UDP 套接字并开始服务
//
// 绑定失败返回的错误满足 errors.Is(err, ErrBind)。
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return ErrStopped
	}
	if r.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := r.app.Start(startCtx); err != nil {
		log.Error("registry start failed", "err", err)
		return err
	}
	r.started = true
	log.Info("registry started", "addr", r.service.LocalAddr().String())
	return nil
}

// Stop 停止服务，重复调用是安全的
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return nil
	}
	r.stopped = true
	if !r.started {
		return r.service.Stop(ctx)
	}
	return r.app.Stop(ctx)
}

// Close 以默认超时停止服务
func (r *Registry) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return r.Stop(ctx)
}

// State 返回当前状态
func (r *Registry) State() State {
	return r.service.State()
}

// ════════════════════════════════════════════════════════════════════════════
//                              查询
// ════════════════════════════════════════════════════════════════════════════

// LocalAddr 返回绑定的 UDP 地址，未运行时返回 nil
func (r *Registry) LocalAddr() *net.UDPAddr {
	return r.service.LocalAddr()
}

// Lookup 返回服务名下全部端点的快照
func (r *Registry) Lookup(name string) []Endpoint {
	return r.dir.Lookup(name)
}

// Names 返回已登记的服务名
func (r *Registry) Names() []string {
	return r.dir.Names()
}

// Stats 返回运行统计
func (r *Registry) Stats() Stats {
	ds := r.dir.Stats()
	return Stats{
		Names:     ds.Names,
		Endpoints: ds.Endpoints,
		Queued:    r.service.QueueLen(),
	}
}

// Config 返回生效配置的副本
func (r *Registry) Config() *config.Config {
	return r.config.Clone()
}

// MetricsHandler 返回 Prometheus 指标 Handler，指标未启用时返回 nil
func (r *Registry) MetricsHandler() http.Handler {
	if r.metrics == nil {
		return nil
	}
	return r.metrics.Handler()
}
