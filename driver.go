package espudp

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/espudp/crtp"
	"github.com/opd-ai/espudp/limits"
	"github.com/opd-ai/espudp/monitor"
	"github.com/opd-ai/espudp/netevent"
	"github.com/opd-ai/espudp/queue"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/message"
)

// session is everything created by one successful connection: the socket
// and both pumps. Nothing in a session is reused by the next one.
type session struct {
	sock     *socket
	inbound  *inboundPump
	outbound *outboundPump
}

// Driver is a crtp.Driver carrying CRTP packets over UDP to a device that
// hosts its own SoftAP. Opening the socket is deferred until the network
// event source reports a usable connection.
type Driver struct {
	crtp.Notifier

	options *Options
	device  *net.UDPAddr
	source  netevent.Source
	handler *networkHandler

	// mu serializes lifecycle transitions. Pumps never take it; they only
	// read the socket's atomic closed flag.
	mu             sync.Mutex
	connectPending atomic.Bool
	state          atomic.Int32
	session        atomic.Pointer[session]

	inbound *queue.Queue[*crtp.Packet]
	stats   *monitor.LinkMonitor
	printer atomic.Pointer[message.Printer]

	// listen is replaced in tests.
	listen func(ctx context.Context, port uint16) (*socket, error)
}

var _ crtp.Driver = (*Driver)(nil)

// networkHandler is the driver's single subscription to its event source.
type networkHandler struct {
	d *Driver
}

func (h *networkHandler) OnNetworkChanged(ev netevent.Event) {
	h.d.handleNetworkEvent(ev)
}

// New creates a driver that waits for network events from source.
// A nil opts selects NewOptions().
func New(source netevent.Source, opts *Options) (*Driver, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if opts == nil {
		opts = NewOptions()
	}
	device, err := opts.Validate()
	if err != nil {
		return nil, err
	}

	d := &Driver{
		options: opts,
		device:  net.UDPAddrFromAddrPort(device),
		source:  source,
		inbound: queue.New[*crtp.Packet](),
		stats:   monitor.NewLinkMonitor(),
		listen:  listenUDP,
	}
	d.handler = &networkHandler{d: d}
	d.Localize(opts.Language)
	return d, nil
}

// Connect records the intent to connect and subscribes to network events.
// It returns ErrAlreadyConnected if a socket is already open.
func (d *Driver) Connect() error {
	d.mu.Lock()
	if d.session.Load() != nil {
		d.mu.Unlock()
		return newDriverError("connect", d.device.String(), ErrAlreadyConnected)
	}
	d.connectPending.Store(true)
	d.state.Store(int32(StateAwaitingNetwork))
	d.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"remote_addr": d.device.String(),
		"local_port":  d.options.LocalPort,
		"component":   "Driver",
	}).Info("Connection requested")

	d.NotifyConnectionRequested()
	d.source.Subscribe(d.handler)
	return nil
}

// Disconnect unsubscribes from network events and tears down the session,
// if any. It is safe to call at any time and any number of times.
func (d *Driver) Disconnect() {
	if d.closeSession(nil) {
		d.NotifyDisconnected()
	}
}

// IsConnected reports whether a session socket exists and is open.
func (d *Driver) IsConnected() bool {
	s := d.session.Load()
	return s != nil && !s.sock.isClosed()
}

// State returns the current lifecycle state.
func (d *Driver) State() ConnectionState {
	return ConnectionState(d.state.Load())
}

// SendPacket queues p for transmission. Packets are dropped when no session
// is open or when the payload does not fit in one frame.
func (d *Driver) SendPacket(p *crtp.Packet) {
	if p == nil {
		return
	}
	s := d.session.Load()
	if s == nil || s.outbound == nil {
		d.stats.RecordError(monitor.ErrorDropped)
		return
	}
	if err := limits.ValidatePayloadSize(p.Len()); err != nil {
		d.stats.RecordError(monitor.ErrorDropped)
		logrus.WithFields(logrus.Fields{
			"error":     err.Error(),
			"component": "Driver",
		}).Warn("Dropped oversized packet")
		return
	}
	if !s.outbound.enqueue(p) {
		d.stats.RecordError(monitor.ErrorDropped)
	}
}

// ReceivePacket waits up to timeout for the next inbound packet and returns
// nil if none arrives in time.
func (d *Driver) ReceivePacket(timeout time.Duration) *crtp.Packet {
	p, ok := d.inbound.PollTimeout(timeout)
	if !ok {
		return nil
	}
	return p
}

// ReceivePacketContext waits for the next inbound packet until ctx is done.
func (d *Driver) ReceivePacketContext(ctx context.Context) *crtp.Packet {
	p, err := d.inbound.Pop(ctx)
	if err != nil {
		return nil
	}
	return p
}

// LocalAddr returns the bound address of the current session, or nil.
func (d *Driver) LocalAddr() net.Addr {
	s := d.session.Load()
	if s == nil {
		return nil
	}
	return s.sock.LocalAddr()
}

// Stats returns the link counters accumulated over all sessions.
func (d *Driver) Stats() monitor.Snapshot {
	return d.stats.Snapshot()
}

// handleNetworkEvent runs on the event source's delivery goroutine.
func (d *Driver) handleNetworkEvent(ev netevent.Event) {
	id := d.source.CurrentNetworkID()
	logrus.WithFields(logrus.Fields{
		"event_network_id": ev.NetworkID,
		"network_id":       id,
		"component":        "Driver",
	}).Debug("Network event")

	if id == netevent.NoNetwork {
		if s := d.session.Load(); s != nil {
			d.endSession(s, d.text(msgNoSoftAP))
		}
		return
	}

	d.open()
}

// open binds the socket and starts both pumps. Only the first usable event
// of a connect attempt gets past the pending check.
func (d *Driver) open() {
	d.mu.Lock()
	if !d.connectPending.CompareAndSwap(true, false) || d.session.Load() != nil {
		d.mu.Unlock()
		return
	}

	sock, err := d.listen(context.Background(), d.options.LocalPort)
	if err != nil {
		d.state.Store(int32(StateIdle))
		d.source.Unsubscribe(d.handler)
		d.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"error":      err.Error(),
			"local_port": d.options.LocalPort,
			"component":  "Driver",
		}).Warn("Failed to bind UDP socket")

		d.NotifyConnectionFailed(d.text(msgCreateSocketFailed, newDriverError("bind", "", err)))
		return
	}

	s := &session{sock: sock}
	onFailure := func(err error) {
		go d.endSession(s, d.text(msgTransportFailure, err))
	}
	s.inbound = newInboundPump(sock, d.options.ReceiveBufferSize, d.inbound, d.stats, onFailure)
	s.outbound = newOutboundPump(sock, d.device, d.stats, onFailure)
	d.session.Store(s)
	d.state.Store(int32(StateConnected))
	s.inbound.start()
	s.outbound.start()
	d.stats.RecordSessionOpened(d.device.String())
	d.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"local_addr":  sock.LocalAddr().String(),
		"remote_addr": d.device.String(),
		"component":   "Driver",
	}).Info("Connected")

	d.NotifyConnected()
}

// endSession tears down s after the network went away or a pump failed.
// It does nothing if s is no longer the current session.
func (d *Driver) endSession(s *session, reason string) {
	if !d.closeSession(s) {
		return
	}

	logrus.WithFields(logrus.Fields{
		"reason":    reason,
		"component": "Driver",
	}).Warn("Connection lost")

	d.NotifyDisconnected()
	d.NotifyConnectionLost(reason)
}

// closeSession tears down the current session if it is expected (or any
// session when expected is nil) and reports whether one was closed. With no
// session open it cancels a pending connect attempt.
//
// The subscription is dropped under mu, before the session is cleared, so a
// Connect racing with teardown always subscribes afresh.
func (d *Driver) closeSession(expected *session) bool {
	d.mu.Lock()
	s := d.session.Load()
	if s == nil || (expected != nil && s != expected) {
		if s == nil && expected == nil {
			d.source.Unsubscribe(d.handler)
			d.connectPending.Store(false)
			if d.State() == StateAwaitingNetwork {
				d.state.Store(int32(StateIdle))
			}
		}
		d.mu.Unlock()
		return false
	}

	d.source.Unsubscribe(d.handler)

	// Detach before closing so a frame decoded during teardown is never delivered.
	s.inbound.detach()
	stale := d.inbound.Clear()
	s.sock.Close()
	s.inbound.stop()
	s.outbound.stop()
	d.session.Store(nil)
	d.connectPending.Store(false)
	d.state.Store(int32(StateDisconnected))
	d.stats.RecordSessionClosed()
	d.mu.Unlock()

	s.inbound.wait()
	s.outbound.wait()

	logrus.WithFields(logrus.Fields{
		"remote_addr": d.device.String(),
		"discarded":   stale,
		"component":   "Driver",
	}).Info("Disconnected")
	return true
}
