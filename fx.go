package wormhole

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-wormhole/config"
	"github.com/dep2p/go-wormhole/internal/core/directory"
	"github.com/dep2p/go-wormhole/internal/core/metrics"
	"github.com/dep2p/go-wormhole/internal/registry"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. Directory
//  2. Metrics（条件加载，同时作为 registry.Observer）
//  3. Registry Service（生命周期钩子绑定套接字）
func buildFxApp(cfg *config.Config, o *options, r *Registry) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置，任何套接字打开之前）
	// ════════════════════════════════════════════════════════════════════════
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(cfg),
		directory.Module,
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 指标（条件加载）
	// ════════════════════════════════════════════════════════════════════════
	if cfg.Metrics.Enabled {
		if o.metrics.registry != nil {
			modules = append(modules, fx.Supply(o.metrics.registry))
		}
		modules = append(modules,
			metrics.Module,
			fx.Provide(func(m *metrics.Metrics) registry.Observer { return m }),
			fx.Invoke(func(m *metrics.Metrics, s *registry.Service) error {
				return m.WatchQueue(s.QueueLen)
			}),
		)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 注册服务
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, registry.Module)

	// ════════════════════════════════════════════════════════════════════════
	// 5. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 6. 组件注入与 Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		fx.Invoke(injectComponents(r)),
		fx.WithLogger(fxEventLogger(o.fxDebug)),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// fxEventLogger 默认丢弃 Fx 事件，调试时输出到开发模式 zap
func fxEventLogger(debug bool) func() fxevent.Logger {
	return func() fxevent.Logger {
		if debug {
			if l, err := zap.NewDevelopment(); err == nil {
				return &fxevent.ZapLogger{Logger: l}
			}
		}
		return &fxevent.ZapLogger{Logger: zap.NewNop()}
	}
}

// injectParams Registry 组件注入参数
type injectParams struct {
	fx.In

	Service   *registry.Service
	Directory *directory.Directory
	Metrics   *metrics.Metrics `optional:"true"`
}

func injectComponents(r *Registry) interface{} {
	return func(p injectParams) {
		r.service = p.Service
		r.dir = p.Directory
		r.metrics = p.Metrics
	}
}
