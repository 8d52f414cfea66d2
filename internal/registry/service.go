package registry

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dep2p/go-wormhole/internal/core/directory"
	"github.com/dep2p/go-wormhole/internal/core/workerpool"
	"github.com/dep2p/go-wormhole/internal/util/logger"
)

var log = logger.Logger("registry")

// ============================================================================
//                              状态
// ============================================================================

// State 服务状态
type State int32

const (
	// StateIdle 已构造，未绑定
	StateIdle State = iota

	// StateRunning 套接字已绑定，正在接收
	StateRunning

	// StateStopped 已停止，不可恢复
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              选项
// ============================================================================

// Limiter 按来源地址限流
type Limiter interface {
	Allow(addr netip.Addr) bool
}

// Option 服务选项
type Option func(*Service)

// WithObserver 设置观测回调
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLimiter 设置接收路径限流器
func WithLimiter(l Limiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

// WithClock 设置时钟（用于停止宽限期计时）
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// ============================================================================
//                              Service
// ============================================================================

// Service UDP 注册服务
type Service struct {
	id     string
	config Config
	dir    *directory.Directory

	observer Observer
	limiter  Limiter
	clock    clock.Clock

	mu       sync.Mutex
	state    State
	conn     *net.UDPConn
	pool     atomic.Pointer[workerpool.Pool]
	loopDone chan struct{}

	// stopping 置位后接收循环把读错误视为退出信号
	stopping atomic.Bool
}

// NewService 创建注册服务
//
// 端口或工作协程数非法时返回 ErrInvalidConfiguration，此时不会打开任何套接字。
func NewService(cfg Config, dir *directory.Directory, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dir == nil {
		return nil, ErrNilDirectory
	}
	cfg.applyDefaults()

	s := &Service{
		id:       uuid.NewString(),
		config:   cfg,
		dir:      dir,
		observer: nopObserver{},
		clock:    clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start 绑定套接字并开始接收
//
// 绑定失败返回 *BindError，不持有任何资源，服务保持 Idle 可重试。
func (s *Service) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrStopped
	}

	addr := s.config.Addr()
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return &BindError{Addr: addr, Err: err}
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return &BindError{Addr: addr, Err: err}
	}

	pool, err := workerpool.New(workerpool.Config{
		Workers:      s.config.Workers,
		QueueSize:    s.config.QueueSize,
		Policy:       s.config.Policy,
		BlockTimeout: s.config.BlockTimeout,
		Hooks: workerpool.Hooks{
			OnDrop: func() { s.observer.DatagramDropped(DropQueueFull) },
			OnPanic: func(r any) {
				log.Warn("command panicked", "instance", s.id, "panic", r)
				s.observer.CommandFailed(CommandPanic)
			},
		},
	})
	if err != nil {
		_ = conn.Close()
		return err
	}

	s.conn = conn
	s.pool.Store(pool)
	s.loopDone = make(chan struct{})
	s.state = StateRunning

	go s.loop(conn, pool, s.loopDone)

	log.Info("registry listening",
		"instance", s.id,
		"addr", conn.LocalAddr().String(),
		"workers", s.config.Workers,
		"queue", s.config.QueueSize,
		"policy", s.config.Policy.String())
	return nil
}

// Stop 关闭套接字并停止工作池
//
// 在宽限期（与 ctx 取较早者）内等待执行中的命令，之后不再等待。
// 未启动或已停止时调用是安全的；调用后服务进入 Stopped。
// 状态切换后即释放锁，等待宽限期期间 State 与 LocalAddr 不会阻塞。
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	prev := s.state
	s.state = StateStopped
	if prev != StateRunning {
		s.mu.Unlock()
		return nil
	}
	conn, pool, loopDone := s.conn, s.pool.Load(), s.loopDone
	s.stopping.Store(true)
	s.mu.Unlock()

	log.Info("registry stopping", "instance", s.id)

	var errs error
	// 唤醒阻塞在读取上的接收循环
	if err := conn.SetReadDeadline(time.Now()); err != nil {
		errs = multierr.Append(errs, err)
		_ = conn.Close()
	}
	<-loopDone

	graceCtx, cancel := s.clock.WithTimeout(ctx, s.config.StopGracePeriod)
	defer cancel()
	errs = multierr.Append(errs, pool.Stop(graceCtx))

	if err := conn.Close(); err != nil && !isClosed(err) {
		errs = multierr.Append(errs, err)
	}

	stats := pool.Stats()
	log.Info("registry stopped",
		"instance", s.id,
		"completed", stats.Completed,
		"dropped", stats.Dropped)
	return errs
}

// State 返回当前状态
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LocalAddr 返回绑定地址，未运行时返回 nil
func (s *Service) LocalAddr() *net.UDPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return nil
	}
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// QueueLen 返回等待执行的命令数（不加锁，可在停止过程中调用）
func (s *Service) QueueLen() int {
	pool := s.pool.Load()
	if pool == nil {
		return 0
	}
	return pool.QueueLen()
}

// Directory 返回服务使用的目录
func (s *Service) Directory() *directory.Directory {
	return s.dir
}

// ID 返回实例标识（出现在日志中）
func (s *Service) ID() string {
	return s.id
}
