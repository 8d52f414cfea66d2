package directory

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-wormhole/config"
)

// Params 目录依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Module 目录 Fx 模块
var Module = fx.Module("directory",
	fx.Provide(NewFromParams),
)

// NewFromParams 从 Fx 参数创建目录
func NewFromParams(p Params) *Directory {
	return New(ConfigFromUnified(p.UnifiedCfg))
}
