package registry

import (
	"context"
	"errors"
	"net/netip"

	"github.com/dep2p/go-wormhole/internal/core/directory"
	"github.com/dep2p/go-wormhole/pkg/wire"
)

// execute 在工作协程中执行一个已解码的命令
func (s *Service) execute(ctx context.Context, w datagramWriter, cmd wire.Command, from netip.AddrPort) {
	var err error
	switch cmd.Kind {
	case wire.KindRegister:
		err = s.handleRegister(cmd, from)
	case wire.KindLookup:
		err = s.handleLookup(ctx, w, cmd, from)
	default:
		err = wire.ErrUnknownCommand
	}

	command := cmd.Kind.String()
	switch {
	case err == nil:
		s.observer.CommandProcessed(command)
	case errors.Is(err, directory.ErrTooManyNames), errors.Is(err, directory.ErrTooManyEndpoints):
		log.Debug("registration rejected", "name", cmd.Name, "from", from.String(), "err", err)
		s.observer.DatagramDropped(DropRejected)
	default:
		log.Debug("command failed", "command", command, "from", from.String(), "err", err)
		s.observer.CommandFailed(command)
	}
}

// handleRegister 以来源地址作为观测地址登记端点，不回复
func (s *Service) handleRegister(cmd wire.Command, from netip.AddrPort) error {
	added, err := s.dir.Register(directory.NewEndpoint(cmd.Name, cmd.Inner, from))
	if err != nil {
		return err
	}
	if added {
		s.observer.EndpointRegistered()
	}
	return nil
}

// handleLookup 把快照编码后回复到请求方的观测地址
//
// 应答不超过 MaxDatagramSize，放不下时只携带能放下的前缀。
func (s *Service) handleLookup(ctx context.Context, w datagramWriter, cmd wire.Command, from netip.AddrPort) error {
	eps := s.dir.Lookup(cmd.Name)
	entries := make([]wire.Entry, len(eps))
	for i, ep := range eps {
		entries[i] = wire.Entry{Inner: ep.Inner, Addr: ep.ObservedString()}
	}

	reply, n := wire.EncodeLookupReply(entries, s.config.MaxDatagramSize)
	if n < len(entries) {
		log.Debug("lookup reply truncated", "name", cmd.Name, "total", len(entries), "sent", n)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := w.WriteToUDPAddrPort(reply, from)
	return err
}
