package wormhole

import (
	"github.com/dep2p/go-wormhole/internal/registry"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 启动错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrInvalidConfiguration 配置非法（端口、工作协程数等），New 时返回
	ErrInvalidConfiguration = registry.ErrInvalidConfiguration

	// ErrBind 套接字绑定失败，Start 时返回
	ErrBind = registry.ErrBind

	// ────────────────────────────────────────────────────────────────────────
	// 生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrAlreadyStarted 已启动
	ErrAlreadyStarted = registry.ErrAlreadyStarted

	// ErrStopped 已停止，不能再次启动
	ErrStopped = registry.ErrStopped
)

// BindError 绑定失败详情
type BindError = registry.BindError
