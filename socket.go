package espudp

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync/atomic"
	"time"
)

// socket wraps the session's UDP connection. The closed flag is read by both
// pumps and written by whichever side closes first.
type socket struct {
	conn   net.PacketConn
	closed atomic.Bool
}

// listenUDP binds an IPv4 UDP socket on port with address reuse enabled.
func listenUDP(ctx context.Context, port uint16) (*socket, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	conn, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort("", strconv.Itoa(int(port))))
	if err != nil {
		return nil, err
	}
	return &socket{conn: conn}, nil
}

// Close closes the connection once; later calls return nil.
func (s *socket) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.conn.Close()
}

func (s *socket) isClosed() bool {
	return s.closed.Load()
}

// unblockRead makes a pending ReadFrom return immediately.
func (s *socket) unblockRead() {
	_ = s.conn.SetReadDeadline(time.Now())
}

func (s *socket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// isMessageTooLong reports whether a read failed because the datagram did
// not fit the receive buffer. The datagram is lost but the socket is fine.
func isMessageTooLong(err error) bool {
	return errMessageTooLong != nil && errors.Is(err, errMessageTooLong)
}

// isClosedError reports whether err comes from using a socket closed by teardown.
func isClosedError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
