//go:build windows

package espudp

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// errMessageTooLong is the read error for a datagram larger than the buffer.
var errMessageTooLong error = windows.WSAEMSGSIZE

// reuseAddrControl sets SO_REUSEADDR before the socket is bound.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
