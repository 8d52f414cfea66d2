// Package ratelimit 提供按来源 IP 的令牌桶限流
//
// 每个来源 IP 一个 rate.Limiter，存放在容量有限的 LRU 中，
// 伪造大量来源地址也只能占用 MaxTrackedSenders 个条目。
package ratelimit

import (
	"errors"
	"net/netip"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-wormhole/config"
)

// ErrInvalidConfig 配置非法
var ErrInvalidConfig = errors.New("ratelimit: invalid config")

// Config 限流配置
type Config struct {
	// Rate 每个来源每秒允许的数据报数
	Rate float64

	// Burst 突发容量
	Burst int

	// MaxTrackedSenders 跟踪的来源上限
	MaxTrackedSenders int
}

// ConfigFromUnified 从统一配置创建限流配置
//
// 未启用时返回 ok=false。
func ConfigFromUnified(cfg *config.Config) (Config, bool) {
	if cfg == nil || !cfg.RateLimit.Enabled {
		return Config{}, false
	}
	return Config{
		Rate:              cfg.RateLimit.PerSenderRate,
		Burst:             cfg.RateLimit.Burst,
		MaxTrackedSenders: cfg.RateLimit.MaxTrackedSenders,
	}, true
}

// Limiter 按来源 IP 限流
type Limiter struct {
	config  Config
	clock   clock.Clock
	senders *lru.Cache[netip.Addr, *rate.Limiter]
}

// New 创建限流器，clk 为 nil 时使用系统时钟
func New(cfg Config, clk clock.Clock) (*Limiter, error) {
	if cfg.Rate <= 0 || cfg.Burst <= 0 || cfg.MaxTrackedSenders <= 0 {
		return nil, ErrInvalidConfig
	}
	if clk == nil {
		clk = clock.New()
	}

	senders, err := lru.New[netip.Addr, *rate.Limiter](cfg.MaxTrackedSenders)
	if err != nil {
		return nil, err
	}
	return &Limiter{config: cfg, clock: clk, senders: senders}, nil
}

// Allow 判断来自 addr 的一个数据报是否放行
func (l *Limiter) Allow(addr netip.Addr) bool {
	addr = addr.Unmap()
	lim, ok := l.senders.Get(addr)
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.config.Rate), l.config.Burst)
		if prev, found, _ := l.senders.PeekOrAdd(addr, lim); found {
			lim = prev
		}
	}
	return lim.AllowN(l.clock.Now(), 1)
}

// Tracked 返回当前跟踪的来源数
func (l *Limiter) Tracked() int {
	return l.senders.Len()
}
