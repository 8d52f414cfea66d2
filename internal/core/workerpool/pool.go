// Package workerpool 提供有界任务队列与固定数量的工作协程
//
// 接收路径通过 Submit 投递任务，永不因处理延迟而阻塞（block-then-drop
// 策略下最多等待 BlockTimeout）。队列满时按饱和策略丢弃：
//   - drop-oldest: 淘汰队首最旧的任务，接纳新任务
//   - block-then-drop: 短暂等待空位，超时丢弃新任务
//
// 任务 panic 会被恢复并计数，不影响其他任务。
package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-wormhole/internal/util/logger"
)

var log = logger.Logger("workerpool")

// 预定义错误
var (
	// ErrStopTimeout 宽限期内仍有任务未完成
	ErrStopTimeout = errors.New("workerpool: stop grace period elapsed with tasks outstanding")

	// ErrInvalidConfig 配置非法
	ErrInvalidConfig = errors.New("workerpool: invalid config")
)

// Policy 队列饱和策略
type Policy int

const (
	// DropOldest 淘汰最旧的任务
	DropOldest Policy = iota

	// BlockThenDrop 等待 BlockTimeout 后丢弃新任务
	BlockThenDrop
)

func (p Policy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case BlockThenDrop:
		return "block-then-drop"
	default:
		return "unknown"
	}
}

// Task 工作任务
//
// ctx 在宽限期耗尽时被取消。
type Task func(ctx context.Context)

// Hooks 可选回调，由工作协程或提交方同步调用
type Hooks struct {
	// OnDrop 任务被丢弃（队列饱和或已停止）
	OnDrop func()

	// OnPanic 任务 panic
	OnPanic func(recovered any)
}

// Config 工作池配置
type Config struct {
	// Workers 工作协程数（必须为正）
	Workers int

	// QueueSize 队列容量（0 使用 Workers）
	QueueSize int

	// Policy 饱和策略
	Policy Policy

	// BlockTimeout BlockThenDrop 下的等待上限
	BlockTimeout time.Duration

	// Hooks 回调
	Hooks Hooks
}

// Stats 工作池统计
type Stats struct {
	Submitted uint64
	Dropped   uint64
	Completed uint64
	Panics    uint64
	Queued    int
}

// Pool 有界工作池
type Pool struct {
	config Config
	queue  chan Task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu 保护 closed 与 queue 的关闭，避免向已关闭通道发送
	mu     sync.RWMutex
	closed bool

	submitted atomic.Uint64
	dropped   atomic.Uint64
	completed atomic.Uint64
	panics    atomic.Uint64
}

// New 创建并启动工作池
func New(cfg Config) (*Pool, error) {
	if cfg.Workers <= 0 {
		return nil, ErrInvalidConfig
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers
	}
	if cfg.Policy == BlockThenDrop && cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		config: cfg,
		queue:  make(chan Task, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	return p, nil
}

// Submit 投递任务
//
// 返回 false 表示新任务未被接纳（已停止或按策略丢弃）。
// DropOldest 下返回 true 时可能有一个旧任务被淘汰，通过 OnDrop 报告。
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.drop()
		return false
	}
	p.submitted.Add(1)

	select {
	case p.queue <- task:
		return true
	default:
	}

	switch p.config.Policy {
	case BlockThenDrop:
		timer := time.NewTimer(p.config.BlockTimeout)
		defer timer.Stop()
		select {
		case p.queue <- task:
			return true
		case <-timer.C:
			p.drop()
			return false
		}
	default:
		for {
			select {
			case <-p.queue:
				p.drop()
			default:
			}
			select {
			case p.queue <- task:
				return true
			default:
			}
		}
	}
}

// Stop 停止接收新任务，等待已排队和执行中的任务完成
//
// ctx 结束时取消任务上下文并返回 ErrStopTimeout，不再等待。
// 重复调用是安全的。
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		log.Warn("worker pool stop timed out", "queued", len(p.queue))
		return ErrStopTimeout
	}
}

// Stats 返回统计信息
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Dropped:   p.dropped.Load(),
		Completed: p.completed.Load(),
		Panics:    p.panics.Load(),
		Queued:    len(p.queue),
	}
}

// QueueLen 返回当前排队任务数
func (p *Pool) QueueLen() int {
	return len(p.queue)
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		if p.ctx.Err() != nil {
			// 宽限期已过，剩余任务直接放弃
			p.drop()
			continue
		}
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			log.Debug("task panicked", "panic", r)
			if p.config.Hooks.OnPanic != nil {
				p.config.Hooks.OnPanic(r)
			}
			return
		}
		p.completed.Add(1)
	}()
	task(p.ctx)
}

func (p *Pool) drop() {
	p.dropped.Add(1)
	if p.config.Hooks.OnDrop != nil {
		p.config.Hooks.OnDrop()
	}
}
