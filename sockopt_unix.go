//go:build unix

package espudp

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// errMessageTooLong is the read error for a datagram larger than the buffer.
var errMessageTooLong error = unix.EMSGSIZE

// reuseAddrControl sets SO_REUSEADDR before the socket is bound.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
