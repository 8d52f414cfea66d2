package registry

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-wormhole/internal/core/directory"
	"github.com/dep2p/go-wormhole/internal/core/workerpool"
	"github.com/dep2p/go-wormhole/pkg/wire"
)

// ============================================================================
//                              构造与生命周期
// ============================================================================

func TestNewService_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		port    int
		workers int
	}{
		{"zero port", 0, 4},
		{"negative port", -1, 4},
		{"port too large", 70000, 4},
		{"zero workers", 9300, 0},
		{"negative workers", 9300, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Port = tt.port
			cfg.Workers = tt.workers

			svc, err := NewService(cfg, directory.New(directory.Config{}))
			assert.Nil(t, svc)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestNewService_NilDirectory(t *testing.T) {
	_, err := NewService(DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrNilDirectory)
}

func TestService_BindError(t *testing.T) {
	occupied, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer occupied.Close()

	cfg := DefaultConfig()
	cfg.ListenHost = "127.0.0.1"
	cfg.Port = occupied.LocalAddr().(*net.UDPAddr).Port

	svc, err := NewService(cfg, directory.New(directory.Config{}))
	require.NoError(t, err)

	err = svc.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBind)

	var bindErr *BindError
	require.True(t, errors.As(err, &bindErr))
	assert.Equal(t, cfg.Addr(), bindErr.Addr)
	assert.NotNil(t, bindErr.Unwrap())

	assert.Equal(t, StateIdle, svc.State())
	assert.Nil(t, svc.LocalAddr())
	assert.NoError(t, svc.Stop(context.Background()))
}

func TestService_Lifecycle(t *testing.T) {
	dir := directory.New(directory.Config{})
	svc, err := NewService(testConfig(t), dir)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, svc.State())
	assert.NotEmpty(t, svc.ID())
	assert.Same(t, dir, svc.Directory())

	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	assert.Equal(t, StateRunning, svc.State())
	assert.NotNil(t, svc.LocalAddr())
	assert.ErrorIs(t, svc.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, svc.Stop(ctx))
	assert.Equal(t, StateStopped, svc.State())
	assert.Nil(t, svc.LocalAddr())

	// 幂等
	assert.NoError(t, svc.Stop(ctx))
	assert.ErrorIs(t, svc.Start(ctx), ErrStopped)
}

func TestService_StopBeforeStart(t *testing.T) {
	svc, err := NewService(testConfig(t), directory.New(directory.Config{}))
	require.NoError(t, err)

	require.NoError(t, svc.Stop(context.Background()))
	assert.Equal(t, StateStopped, svc.State())
	assert.ErrorIs(t, svc.Start(context.Background()), ErrStopped)
}

func TestService_StopReleasesPort(t *testing.T) {
	cfg := testConfig(t)
	svc, err := NewService(cfg, directory.New(directory.Config{}))
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Stop(context.Background()))

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: cfg.Port})
	require.NoError(t, err)
	conn.Close()
}

func TestService_StopGracePeriod(t *testing.T) {
	mock := clock.NewMock()
	obs := newBlockingObserver()
	t.Cleanup(func() { close(obs.release) })

	cfg := testConfig(t)
	cfg.StopGracePeriod = 5 * time.Second
	svc, err := NewService(cfg, directory.New(directory.Config{}), WithObserver(obs), WithClock(mock))
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))

	conn := dialService(t, svc)
	_, err = conn.Write(wire.EncodeRegister("svc", "10.0.0.1:9"))
	require.NoError(t, err)

	select {
	case <-obs.entered:
	case <-time.After(waitFor):
		t.Fatal("command did not start")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- svc.Stop(context.Background()) }()

	// 宽限期内 Stop 不返回，状态查询不阻塞
	select {
	case err := <-stopped:
		t.Fatalf("stop returned before grace period: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, StateStopped, svc.State())
	assert.Nil(t, svc.LocalAddr())

	var stopErr error
	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		select {
		case stopErr = <-stopped:
			return true
		default:
			return false
		}
	}, waitFor, 5*time.Millisecond)
	assert.ErrorIs(t, stopErr, workerpool.ErrStopTimeout)
	assert.Zero(t, obs.processedFor("register"))
}

// ============================================================================
//                              注册
// ============================================================================

func TestService_Register(t *testing.T) {
	obs := newRecorder()
	svc, dir := startService(t, testConfig(t), WithObserver(obs))
	conn := dialService(t, svc)

	_, err := conn.Write(wire.EncodeRegister("svc", "10.0.0.1:9"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return dir.Len("svc") == 1 }, waitFor, 5*time.Millisecond)

	ep := dir.Lookup("svc")[0]
	assert.Equal(t, "svc", ep.Name)
	assert.Equal(t, "10.0.0.1:9", ep.Inner)
	local := conn.LocalAddr().(*net.UDPAddr).AddrPort()
	assert.Equal(t, directory.NormalizeAddrPort(local), ep.Observed)

	require.Eventually(t, func() bool { return obs.processedFor("register") == 1 }, waitFor, 5*time.Millisecond)
}

func TestService_RegisterIdempotent(t *testing.T) {
	obs := newRecorder()
	svc, dir := startService(t, testConfig(t), WithObserver(obs))
	conn := dialService(t, svc)

	msg := wire.EncodeRegister("svc", "inner")
	for i := 0; i < 3; i++ {
		_, err := conn.Write(msg)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return obs.processedFor("register") == 3 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, 1, dir.Len("svc"))
	assert.Equal(t, 1, obs.registeredCount())
}

func TestService_DistinctObservedAddresses(t *testing.T) {
	svc, dir := startService(t, testConfig(t))

	a := dialService(t, svc)
	b := dialService(t, svc)
	msg := wire.EncodeRegister("x", "10.0.0.1:9")
	_, err := a.Write(msg)
	require.NoError(t, err)
	_, err = b.Write(msg)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return dir.Len("x") == 2 }, waitFor, 5*time.Millisecond)
}

func TestService_ConcurrentRegistration(t *testing.T) {
	svc, dir := startService(t, testConfig(t))

	const n = 16
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			conn, err := net.DialUDP("udp", nil, svc.LocalAddr())
			if err != nil {
				return err
			}
			defer conn.Close()
			_, err = conn.Write(wire.EncodeRegister("shared", strings.Repeat("i", i+1)))
			return err
		})
	}
	require.NoError(t, g.Wait())

	require.Eventually(t, func() bool { return dir.Len("shared") == n }, waitFor, 5*time.Millisecond)
}

// ============================================================================
//                              丢弃路径
// ============================================================================

func TestService_MalformedContainment(t *testing.T) {
	obs := newRecorder()
	svc, dir := startService(t, testConfig(t), WithObserver(obs))
	conn := dialService(t, svc)

	bad := [][]byte{
		{0x00, 0x00, 0x00},             // 长度前缀被截断
		{0x00, 0x7f, 0xff, 0xff, 0xff}, // 声明长度超出数据
		{0x05, 0x00, 0x00, 0x00, 0x01, 'a'},
		{0x00, 0x00, 0x00, 0x00, 0x02, 0xff, 0xfe, 0x00, 0x00, 0x00, 0x00},
	}
	for _, b := range bad {
		_, err := conn.Write(b)
		require.NoError(t, err)
	}
	_, err := conn.Write(wire.EncodeRegister("ok", "inner"))
	require.NoError(t, err)

	other := dialService(t, svc)
	_, err = other.Write(wire.EncodeRegister("ok", "other"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return dir.Len("ok") == 2 }, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool { return obs.droppedFor(DropMalformed) == len(bad) }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"ok"}, dir.Names())
}

func TestService_EmptyDatagram(t *testing.T) {
	obs := newRecorder()
	svc, _ := startService(t, testConfig(t), WithObserver(obs))
	conn := dialService(t, svc)

	_, err := conn.Write(nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return obs.droppedFor(DropMalformed) == 1 }, waitFor, 5*time.Millisecond)
}

func TestService_OversizedDatagram(t *testing.T) {
	obs := newRecorder()
	cfg := testConfig(t)
	cfg.MaxDatagramSize = 16
	svc, dir := startService(t, cfg, WithObserver(obs))
	conn := dialService(t, svc)

	_, err := conn.Write(wire.EncodeRegister("svc", strings.Repeat("x", 32)))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return obs.droppedFor(DropMalformed) == 1 }, waitFor, 5*time.Millisecond)
	assert.Zero(t, dir.Len("svc"))
}

func TestService_RateLimited(t *testing.T) {
	obs := newRecorder()
	svc, dir := startService(t, testConfig(t), WithObserver(obs), WithLimiter(denyAll{}))
	conn := dialService(t, svc)

	_, err := conn.Write(wire.EncodeRegister("svc", "inner"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return obs.droppedFor(DropRateLimited) == 1 }, waitFor, 5*time.Millisecond)
	assert.Zero(t, dir.Len("svc"))
	assert.Equal(t, 1, obs.receivedCount())
}

func TestService_DirectoryLimitRejected(t *testing.T) {
	obs := newRecorder()
	dir := directory.New(directory.Config{MaxNames: 1})
	svc, err := NewService(testConfig(t), dir, WithObserver(obs))
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop(context.Background())

	conn := dialService(t, svc)
	_, err = conn.Write(wire.EncodeRegister("a", "1"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return dir.Len("a") == 1 }, waitFor, 5*time.Millisecond)

	_, err = conn.Write(wire.EncodeRegister("b", "1"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return obs.droppedFor(DropRejected) == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"a"}, dir.Names())
}

// ============================================================================
//                              查询
// ============================================================================

func readReply(t *testing.T, conn *net.UDPConn) []wire.Entry {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	buf := make([]byte, 65535)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	entries, err := wire.DecodeLookupReply(buf[:n])
	require.NoError(t, err)
	return entries
}

func TestService_LookupRoundTrip(t *testing.T) {
	svc, dir := startService(t, testConfig(t))
	_, err := dir.Register(directory.NewEndpoint("svc", "a", netip.MustParseAddrPort("1.2.3.4:10")))
	require.NoError(t, err)
	_, err = dir.Register(directory.NewEndpoint("svc", "b", netip.MustParseAddrPort("1.2.3.4:11")))
	require.NoError(t, err)

	conn := dialService(t, svc)
	_, err = conn.Write(wire.EncodeLookup("svc"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []wire.Entry{
		{Inner: "a", Addr: "1.2.3.4:10"},
		{Inner: "b", Addr: "1.2.3.4:11"},
	}, readReply(t, conn))
}

func TestService_LookupUnknownName(t *testing.T) {
	svc, _ := startService(t, testConfig(t))
	conn := dialService(t, svc)

	_, err := conn.Write(wire.EncodeLookup("missing"))
	require.NoError(t, err)

	entries := readReply(t, conn)
	assert.Empty(t, entries)
}

func TestService_RegisterThenLookup(t *testing.T) {
	svc, dir := startService(t, testConfig(t))
	conn := dialService(t, svc)

	_, err := conn.Write(wire.EncodeRegister("svc", "192.168.1.5:4000"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return dir.Len("svc") == 1 }, waitFor, 5*time.Millisecond)

	_, err = conn.Write(wire.EncodeLookup("svc"))
	require.NoError(t, err)

	local := conn.LocalAddr().(*net.UDPAddr).AddrPort()
	assert.Equal(t, []wire.Entry{
		{Inner: "192.168.1.5:4000", Addr: directory.NormalizeAddrPort(local).String()},
	}, readReply(t, conn))
}

func TestService_LookupReplyTruncated(t *testing.T) {
	cfg := testConfig(t)
	// 4 字节计数 + 一个 28 字节端点
	cfg.MaxDatagramSize = 40
	svc, dir := startService(t, cfg)

	for _, inner := range []string{"aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc"} {
		_, err := dir.Register(directory.NewEndpoint("svc", inner, netip.MustParseAddrPort("1.2.3.4:10")))
		require.NoError(t, err)
	}

	conn := dialService(t, svc)
	_, err := conn.Write(wire.EncodeLookup("svc"))
	require.NoError(t, err)

	entries := readReply(t, conn)
	require.Len(t, entries, 1)
	assert.Equal(t, "1.2.3.4:10", entries[0].Addr)
}
