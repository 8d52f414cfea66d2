// Package client 实现注册服务的协议客户端
//
// 注册是单向发送，不等待确认。查询应答不携带请求标识，
// Lookup 在同一个套接字上重发请求直到收到来自服务端的第一个
// 格式正确的应答，或尝试次数、ctx 用尽。
//
// 同一个 Client 上的 Lookup 串行执行。需要并发查询多个服务名时
// 使用 LookupMany，它为每个服务名使用独立套接字。
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-wormhole/internal/util/addrutil"
	"github.com/dep2p/go-wormhole/internal/util/logger"
	"github.com/dep2p/go-wormhole/pkg/wire"
)

var log = logger.Logger("client")

// 默认参数
const (
	DefaultAttempts = 3
	DefaultTimeout  = 500 * time.Millisecond
)

// 预定义错误
var (
	// ErrNoReply 尝试次数用尽仍未收到应答
	ErrNoReply = errors.New("client: no reply from registry")

	// ErrEmptyName 服务名为空
	ErrEmptyName = errors.New("client: empty service name")

	// ErrClosed 客户端已关闭
	ErrClosed = errors.New("client: closed")
)

// Peer 查询结果中的一个对端
type Peer struct {
	// Inner 对端自报地址或元数据
	Inner string

	// Addr 注册服务观测到的来源地址文本
	Addr string
}

// AddrPort 解析 Addr
func (p Peer) AddrPort() (netip.AddrPort, error) {
	return netip.ParseAddrPort(p.Addr)
}

// Scope 返回观测地址的可达范围
func (p Peer) Scope() addrutil.Scope {
	return addrutil.Classify(p.Addr)
}

// BehindNAT 自报地址与观测地址不一致且观测地址为公网地址
//
// 此时直连观测地址需要打洞。
func (p Peer) BehindNAT() bool {
	return addrutil.BehindNAT(p.Inner, p.Addr)
}

// Option 客户端选项
type Option func(*Client)

// WithAttempts 设置查询最多发送次数
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithTimeout 设置每次查询等待应答的时长
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client 注册服务客户端
type Client struct {
	conn   *net.UDPConn
	server netip.AddrPort
	owned  bool

	attempts int
	timeout  time.Duration

	// mu 串行化 Lookup，同一时刻只有一个读者
	mu     sync.Mutex
	closed bool
}

// Dial 解析服务端地址并在任意本地端口上创建客户端
func Dial(server string, opts ...Option) (*Client, error) {
	raddr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", server, err)
	}

	network := "udp4"
	if raddr.IP.To4() == nil {
		network = "udp6"
	}
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	c := New(conn, raddr.AddrPort(), opts...)
	c.owned = true
	return c, nil
}

// New 在已有套接字上创建客户端
//
// 复用打洞要用的套接字时，注册服务观测到的就是这个套接字的公网映射。
// 套接字由调用方负责关闭。
func New(conn *net.UDPConn, server netip.AddrPort, opts ...Option) *Client {
	c := &Client{
		conn:     conn,
		server:   normalize(server),
		attempts: DefaultAttempts,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LocalAddr 返回本地套接字地址
func (c *Client) LocalAddr() *net.UDPAddr {
	return c.conn.LocalAddr().(*net.UDPAddr)
}

// Server 返回服务端地址
func (c *Client) Server() netip.AddrPort {
	return c.server
}

// Register 以 name 登记本套接字，inner 为自报地址或元数据
//
// 注册服务不回复，发送成功不代表已登记。
func (c *Client) Register(ctx context.Context, name, inner string) error {
	if name == "" {
		return ErrEmptyName
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.conn.WriteToUDPAddrPort(wire.EncodeRegister(name, inner), c.server)
	return err
}

// Lookup 查询 name 下的全部对端
//
// 未知服务名返回空切片。
func (c *Client) Lookup(ctx context.Context, name string) ([]Peer, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	// ctx 取消时立即唤醒读取
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()
	defer c.conn.SetReadDeadline(time.Time{})

	req := wire.EncodeLookup(name)
	buf := make([]byte, wire.MaxDatagramSize)

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := c.conn.WriteToUDPAddrPort(req, c.server); err != nil {
			return nil, err
		}

		deadline := time.Now().Add(c.timeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}

		peers, err := c.awaitReply(buf)
		if err == nil {
			return peers, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
			return nil, context.DeadlineExceeded
		}
		if !isTimeout(err) {
			return nil, err
		}
		log.Debug("lookup attempt timed out", "name", name, "attempt", attempt)
	}
	return nil, ErrNoReply
}

// awaitReply 读取直到收到服务端的合法应答或超时
func (c *Client) awaitReply(buf []byte) ([]Peer, error) {
	for {
		n, from, err := c.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			return nil, err
		}
		if normalize(from) != c.server {
			continue
		}
		entries, err := wire.DecodeLookupReply(buf[:n])
		if err != nil {
			log.Debug("ignore malformed reply", "err", err)
			continue
		}
		peers := make([]Peer, len(entries))
		for i, e := range entries {
			peers[i] = Peer{Inner: e.Inner, Addr: e.Addr}
		}
		return peers, nil
	}
}

// Close 关闭客户端，Dial 创建的套接字随之关闭
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.owned {
		return c.conn.Close()
	}
	return nil
}

// LookupMany 并发查询多个服务名，每个服务名使用独立客户端
//
// 任一查询失败时返回第一个错误。
func LookupMany(ctx context.Context, server string, names []string, opts ...Option) (map[string][]Peer, error) {
	var mu sync.Mutex
	results := make(map[string][]Peer, len(names))

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			c, err := Dial(server, opts...)
			if err != nil {
				return err
			}
			defer c.Close()

			peers, err := c.Lookup(ctx, name)
			if err != nil {
				return fmt.Errorf("lookup %q: %w", name, err)
			}
			mu.Lock()
			results[name] = peers
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func normalize(ap netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
