// Package directory 提供服务名到端点集合的并发安全目录
//
// 目录是注册信息的唯一事实来源：
//   - 服务名条目在首次注册时惰性创建，不存在的键表示没有端点
//   - 集合内每个端点的 Name 都等于其键（由构造保证）
//   - 查询返回快照副本，之后的注册不会改变已返回的结果
//
// 所有操作由一把读写锁保护，注册与查询可线性化。
package directory

import (
	"sync"

	"github.com/dep2p/go-wormhole/config"
	"github.com/dep2p/go-wormhole/internal/util/logger"
)

var log = logger.Logger("directory")

// Config 目录配置
type Config struct {
	// MaxNames 最大服务名数量（0 = 不限制）
	MaxNames int

	// MaxEndpointsPerName 每个服务名最大端点数（0 = 不限制）
	MaxEndpointsPerName int
}

// ConfigFromUnified 从统一配置创建目录配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		MaxNames:            cfg.Directory.MaxNames,
		MaxEndpointsPerName: cfg.Directory.MaxEndpointsPerName,
	}
}

// Stats 目录统计
type Stats struct {
	Names     int
	Endpoints int
}

// Directory 服务名 → 端点集合
type Directory struct {
	config Config

	mu        sync.RWMutex
	services  map[string]map[Endpoint]struct{}
	endpoints int
}

// New 创建空目录
func New(cfg Config) *Directory {
	return &Directory{
		config:   cfg,
		services: make(map[string]map[Endpoint]struct{}),
	}
}

// Register 将端点加入其服务名的集合
//
// 返回 true 表示新增；端点已存在时返回 false（幂等）。
// 仅在配置了容量限制时才可能返回错误。
func (d *Directory) Register(ep Endpoint) (bool, error) {
	if ep.Name == "" {
		return false, ErrEmptyName
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	set, exists := d.services[ep.Name]
	if exists {
		if _, dup := set[ep]; dup {
			return false, nil
		}
		if d.config.MaxEndpointsPerName > 0 && len(set) >= d.config.MaxEndpointsPerName {
			return false, ErrTooManyEndpoints
		}
	} else {
		if d.config.MaxNames > 0 && len(d.services) >= d.config.MaxNames {
			return false, ErrTooManyNames
		}
		set = make(map[Endpoint]struct{}, 1)
		d.services[ep.Name] = set
	}

	set[ep] = struct{}{}
	d.endpoints++

	log.Debug("endpoint registered",
		"name", ep.Name,
		"inner", ep.Inner,
		"observed", ep.ObservedString(),
		"count", len(set),
	)
	return true, nil
}

// Lookup 返回服务名当前端点集合的快照
//
// 未知服务名返回空切片（非 nil）。顺序不保证。
func (d *Directory) Lookup(name string) []Endpoint {
	d.mu.RLock()
	defer d.mu.RUnlock()

	set := d.services[name]
	result := make([]Endpoint, 0, len(set))
	for ep := range set {
		result = append(result, ep)
	}
	return result
}

// Len 返回服务名下的端点数
func (d *Directory) Len(name string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.services[name])
}

// Names 返回所有已注册的服务名
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.services))
	for name := range d.services {
		names = append(names, name)
	}
	return names
}

// Stats 返回统计信息
func (d *Directory) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Stats{Names: len(d.services), Endpoints: d.endpoints}
}
