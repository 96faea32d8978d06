package crtp

import (
	"context"
	"time"
)

// Driver is the transport abstraction consumed by the flight-control library.
type Driver interface {
	// Connect starts a connection attempt. It fails if a connection is
	// already open; completion is reported through ConnectionListener.
	Connect() error

	// Disconnect tears down the connection. It is always safe to call.
	Disconnect()

	// IsConnected reports whether the link is currently open.
	IsConnected() bool

	// SendPacket queues a packet for transmission. Packets sent while the
	// link is down are dropped.
	SendPacket(p *Packet)

	// ReceivePacket waits up to timeout for the next inbound packet and
	// returns nil if none arrives.
	ReceivePacket(timeout time.Duration) *Packet

	// ReceivePacketContext waits until a packet arrives or ctx is done, in
	// which case it returns nil.
	ReceivePacketContext(ctx context.Context) *Packet

	// AddConnectionListener registers l for lifecycle notifications.
	AddConnectionListener(l ConnectionListener)

	// RemoveConnectionListener unregisters l.
	RemoveConnectionListener(l ConnectionListener)
}
