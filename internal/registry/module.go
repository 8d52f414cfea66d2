package registry

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-wormhole/config"
	"github.com/dep2p/go-wormhole/internal/core/directory"
	"github.com/dep2p/go-wormhole/internal/core/ratelimit"
)

// Params 注册服务依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Directory  *directory.Directory
	Observer   Observer    `optional:"true"`
	Clock      clock.Clock `optional:"true"`
}

// Module 注册服务 Fx 模块
//
// 需要同时提供 directory.Module。
var Module = fx.Module("registry",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// NewFromParams 从 Fx 参数创建注册服务
func NewFromParams(p Params) (*Service, error) {
	opts := []Option{WithObserver(p.Observer), WithClock(p.Clock)}

	if rlCfg, ok := ratelimit.ConfigFromUnified(p.UnifiedCfg); ok {
		limiter, err := ratelimit.New(rlCfg, p.Clock)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithLimiter(limiter))
	}

	return NewService(ConfigFromUnified(p.UnifiedCfg), p.Directory, opts...)
}

type lifecycleInput struct {
	fx.In

	LC      fx.Lifecycle
	Service *Service
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Service.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return input.Service.Stop(ctx)
		},
	})
}
