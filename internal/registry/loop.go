package registry

import (
	"context"
	"errors"
	"net"
	"net/netip"

	"github.com/dep2p/go-wormhole/config"
	"github.com/dep2p/go-wormhole/internal/core/directory"
	"github.com/dep2p/go-wormhole/internal/core/workerpool"
	"github.com/dep2p/go-wormhole/pkg/wire"
)

// loop 接收循环，服务运行期间唯一读取套接字的协程
func (s *Service) loop(conn *net.UDPConn, pool *workerpool.Pool, done chan<- struct{}) {
	defer close(done)

	// 多留一个字节用于识别超长数据报
	buf := make([]byte, config.MaxUDPPayload+1)
	for {
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if s.stopping.Load() || isClosed(err) {
				return
			}
			log.Debug("read failed", "instance", s.id, "err", err)
			continue
		}
		s.observer.DatagramReceived()
		from = directory.NormalizeAddrPort(from)

		if s.limiter != nil && !s.limiter.Allow(from.Addr()) {
			s.observer.DatagramDropped(DropRateLimited)
			continue
		}
		if n > s.config.MaxDatagramSize {
			log.Debug("datagram too large", "from", from.String(), "size", n)
			s.observer.DatagramDropped(DropMalformed)
			continue
		}

		cmd, err := wire.Decode(buf[:n])
		if err != nil {
			log.Debug("drop malformed datagram", "from", from.String(), "size", n, "err", err)
			s.observer.DatagramDropped(DropMalformed)
			continue
		}

		pool.Submit(func(ctx context.Context) {
			s.execute(ctx, conn, cmd, from)
		})
	}
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// datagramWriter 回复发送端（*net.UDPConn）
type datagramWriter interface {
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
}
