package registry

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-wormhole/internal/core/directory"
)

const waitFor = 2 * time.Second

// freePort 返回一个当前空闲的 UDP 端口
func freePort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, conn.Close())
	return port
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.ListenHost = "127.0.0.1"
	cfg.Port = freePort(t)
	cfg.Workers = 2
	cfg.StopGracePeriod = time.Second
	return cfg
}

// startService 启动服务并在测试结束时停止
func startService(t *testing.T, cfg Config, opts ...Option) (*Service, *directory.Directory) {
	t.Helper()
	dir := directory.New(directory.Config{})
	svc, err := NewService(cfg, dir, opts...)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	return svc, dir
}

// dialService 创建连到服务的客户端套接字
func dialService(t *testing.T, svc *Service) *net.UDPConn {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, svc.LocalAddr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// recorder 记录观测回调
type recorder struct {
	mu         sync.Mutex
	received   int
	dropped    map[string]int
	processed  map[string]int
	failed     map[string]int
	registered int
}

func newRecorder() *recorder {
	return &recorder{
		dropped:   make(map[string]int),
		processed: make(map[string]int),
		failed:    make(map[string]int),
	}
}

func (r *recorder) DatagramReceived() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received++
}

func (r *recorder) DatagramDropped(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped[reason]++
}

func (r *recorder) CommandProcessed(command string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[command]++
}

func (r *recorder) CommandFailed(command string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[command]++
}

func (r *recorder) EndpointRegistered() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered++
}

func (r *recorder) droppedFor(reason string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped[reason]
}

func (r *recorder) processedFor(command string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed[command]
}

func (r *recorder) registeredCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered
}

func (r *recorder) receivedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.received
}

// denyAll 拒绝所有来源
type denyAll struct{}

func (denyAll) Allow(_ netip.Addr) bool { return false }

// blockingObserver 在 CommandProcessed 中阻塞，模拟长时间执行的命令
type blockingObserver struct {
	*recorder
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingObserver() *blockingObserver {
	return &blockingObserver{
		recorder: newRecorder(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (b *blockingObserver) CommandProcessed(command string) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	b.recorder.CommandProcessed(command)
}
