package wsjtx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/net/ipv4"
)

// maxDatagram is the largest UDP payload we accept.
const maxDatagram = 64 * 1024

// Handler receives every datagram in arrival order. The slice is owned by the
// handler.
type Handler func(ctx context.Context, datagram []byte, from net.Addr)

// ListenerConfig selects the local address and, optionally, a multicast group
// to join. WSJT-X sends to 127.0.0.1:2237 by default, or to a group such as
// 224.0.0.1 when several applications share the stream.
type ListenerConfig struct {
	Address        string
	MulticastGroup string
	Interface      string
}

// Listener receives WSJT-X datagrams.
type Listener struct {
	cfg    ListenerConfig
	logger *slog.Logger
}

// NewListener constructs a listener; nothing is bound until Run.
func NewListener(cfg ListenerConfig, logger *slog.Logger) *Listener {
	return &Listener{cfg: cfg, logger: logger}
}

// Run binds the configured address and serves until ctx is cancelled.
func (l *Listener) Run(ctx context.Context, handle Handler) error {
	conn, err := net.ListenPacket("udp4", l.cfg.Address)
	if err != nil {
		return fmt.Errorf("udp listen: %w", err)
	}

	if l.cfg.MulticastGroup != "" {
		if err := l.joinGroup(conn); err != nil {
			_ = conn.Close()
			return err
		}
	}

	l.logger.Info("udp listener started", "addr", conn.LocalAddr().String(), "group", l.cfg.MulticastGroup)
	return Serve(ctx, conn, handle)
}

func (l *Listener) joinGroup(conn net.PacketConn) error {
	group := net.ParseIP(l.cfg.MulticastGroup)
	if group == nil || !group.IsMulticast() {
		return fmt.Errorf("invalid multicast group %q", l.cfg.MulticastGroup)
	}

	var ifi *net.Interface
	if l.cfg.Interface != "" {
		found, err := net.InterfaceByName(l.cfg.Interface)
		if err != nil {
			return fmt.Errorf("multicast interface: %w", err)
		}
		ifi = found
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(ifi, &net.UDPAddr{IP: group}); err != nil {
		return fmt.Errorf("join multicast group %s: %w", group, err)
	}
	if err := p.SetMulticastLoopback(true); err != nil {
		l.logger.Warn("multicast loopback not enabled", "error", err)
	}
	return nil
}

// Serve reads datagrams from conn until ctx is cancelled, calling handle for
// each one before reading the next. conn is closed on return.
func Serve(ctx context.Context, conn net.PacketConn, handle Handler) error {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer func() {
		stop()
		_ = conn.Close()
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("udp read: %w", err)
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		handle(ctx, datagram, from)
	}
}
