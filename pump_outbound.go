package espudp

import (
	"context"
	"net"

	"github.com/opd-ai/espudp/crtp"
	"github.com/opd-ai/espudp/framing"
	"github.com/opd-ai/espudp/monitor"
	"github.com/opd-ai/espudp/queue"
	"github.com/sirupsen/logrus"
)

// outboundPump drains its private queue and writes one framed datagram per
// packet to the device. It owns the queue for the lifetime of one session.
type outboundPump struct {
	sock      *socket
	dest      net.Addr
	queue     *queue.Queue[*crtp.Packet]
	stats     *monitor.LinkMonitor
	onFailure func(error)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newOutboundPump(sock *socket, dest net.Addr, stats *monitor.LinkMonitor, onFailure func(error)) *outboundPump {
	ctx, cancel := context.WithCancel(context.Background())
	return &outboundPump{
		sock:      sock,
		dest:      dest,
		queue:     queue.New[*crtp.Packet](),
		stats:     stats,
		onFailure: onFailure,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (p *outboundPump) start() {
	go p.run()
}

// enqueue queues pkt for transmission without blocking.
func (p *outboundPump) enqueue(pkt *crtp.Packet) bool {
	return p.queue.Push(pkt)
}

// stop cancels the pump. The socket is left to the caller.
func (p *outboundPump) stop() {
	p.cancel()
	p.queue.Close()
}

func (p *outboundPump) wait() {
	<-p.done
}

func (p *outboundPump) run() {
	defer close(p.done)
	logrus.WithFields(logrus.Fields{
		"remote_addr": p.dest.String(),
		"component":   "OutboundPump",
	}).Debug("Outbound pump started")

	for !p.sock.isClosed() {
		pkt, err := p.queue.Pop(p.ctx)
		if err != nil {
			break
		}
		if !p.send(pkt) {
			break
		}
	}

	logrus.WithFields(logrus.Fields{
		"component": "OutboundPump",
	}).Debug("Outbound pump stopped")
}

// send frames and writes one packet. It returns false when the pump must stop.
func (p *outboundPump) send(pkt *crtp.Packet) bool {
	frame := framing.Encode(pkt.Bytes())
	if _, err := p.sock.conn.WriteTo(frame, p.dest); err != nil {
		if p.ctx.Err() != nil || isClosedError(err) {
			return false
		}
		logrus.WithFields(logrus.Fields{
			"error":       err.Error(),
			"remote_addr": p.dest.String(),
			"component":   "OutboundPump",
		}).Warn("Failed to send frame, closing socket")

		p.sock.Close()
		p.stats.RecordError(monitor.ErrorTransport)
		p.onFailure(newDriverError("send", p.dest.String(), err))
		return false
	}

	p.stats.RecordPacketSent(len(frame))
	logrus.WithFields(logrus.Fields{
		"frame":       framing.Hex(frame),
		"remote_addr": p.dest.String(),
		"component":   "OutboundPump",
	}).Trace("Sent frame")
	return true
}
