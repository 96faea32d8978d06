//go:build !unix && !windows

package espudp

import "syscall"

// errMessageTooLong is unknown here; oversized datagrams end the pump.
var errMessageTooLong error

// reuseAddrControl is a no-op on platforms without socket options.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
