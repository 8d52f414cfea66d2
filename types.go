package wormhole

import (
	"github.com/dep2p/go-wormhole/internal/core/directory"
	"github.com/dep2p/go-wormhole/internal/registry"
)

// Endpoint 一个已登记的端点（服务名、自报地址、观测地址）
type Endpoint = directory.Endpoint

// State 注册服务状态
type State = registry.State

const (
	// StateIdle 已创建，未启动
	StateIdle = registry.StateIdle

	// StateRunning 运行中
	StateRunning = registry.StateRunning

	// StateStopped 已停止（不可恢复）
	StateStopped = registry.StateStopped
)

// Stats 运行统计快照
type Stats struct {
	// Names 至少有一个端点的服务名数量
	Names int

	// Endpoints 端点总数
	Endpoints int

	// Queued 等待执行的命令数
	Queued int
}
