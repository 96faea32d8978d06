package espudp

import (
	"context"
	"sync"

	"github.com/opd-ai/espudp/crtp"
	"github.com/opd-ai/espudp/framing"
	"github.com/opd-ai/espudp/monitor"
	"github.com/opd-ai/espudp/queue"
	"github.com/sirupsen/logrus"
)

// inboundPump reads datagrams, validates their checksum and appends the
// decoded packets to the driver's inbound queue while that queue is attached.
type inboundPump struct {
	sock       *socket
	bufferSize int
	stats      *monitor.LinkMonitor
	onFailure  func(error)

	// sinkMu orders delivery against detach: once detach returns no packet
	// from this pump reaches the queue.
	sinkMu sync.Mutex
	sink   *queue.Queue[*crtp.Packet]

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newInboundPump(sock *socket, bufferSize int, sink *queue.Queue[*crtp.Packet], stats *monitor.LinkMonitor, onFailure func(error)) *inboundPump {
	ctx, cancel := context.WithCancel(context.Background())
	return &inboundPump{
		sock:       sock,
		bufferSize: bufferSize,
		stats:      stats,
		onFailure:  onFailure,
		sink:       sink,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

func (p *inboundPump) start() {
	go p.run()
}

// detach disconnects the pump from the inbound queue.
func (p *inboundPump) detach() {
	p.sinkMu.Lock()
	p.sink = nil
	p.sinkMu.Unlock()
}

// stop cancels the pump and unblocks a pending read. The socket stays open.
func (p *inboundPump) stop() {
	p.cancel()
	p.sock.unblockRead()
}

func (p *inboundPump) wait() {
	<-p.done
}

func (p *inboundPump) run() {
	defer close(p.done)
	logrus.WithFields(logrus.Fields{
		"local_addr":  p.sock.LocalAddr().String(),
		"buffer_size": p.bufferSize,
		"component":   "InboundPump",
	}).Debug("Inbound pump started")

	buffer := make([]byte, p.bufferSize)
	for !p.sock.isClosed() && p.ctx.Err() == nil {
		if !p.receive(buffer) {
			break
		}
	}

	logrus.WithFields(logrus.Fields{
		"component": "InboundPump",
	}).Debug("Inbound pump stopped")
}

// receive handles one datagram. It returns false when the pump must stop.
func (p *inboundPump) receive(buffer []byte) bool {
	n, addr, err := p.sock.conn.ReadFrom(buffer)
	if err != nil {
		return p.handleReadError(err)
	}

	payload, err := framing.Decode(buffer[:n])
	if err != nil {
		p.stats.RecordError(monitor.ErrorProtocol)
		logrus.WithFields(logrus.Fields{
			"error":       err.Error(),
			"size":        n,
			"remote_addr": addr.String(),
			"component":   "InboundPump",
		}).Debug("Discarded invalid frame")
		return true
	}

	if p.deliver(crtp.NewPacket(payload)) {
		p.stats.RecordPacketReceived(n)
	}
	return true
}

// handleReadError decides whether a read error ends the pump.
func (p *inboundPump) handleReadError(err error) bool {
	if p.ctx.Err() != nil || isClosedError(err) {
		return false
	}
	if isMessageTooLong(err) {
		p.stats.RecordError(monitor.ErrorProtocol)
		return true
	}

	logrus.WithFields(logrus.Fields{
		"error":     err.Error(),
		"component": "InboundPump",
	}).Warn("Failed to receive frame, closing socket")

	p.sock.Close()
	p.stats.RecordError(monitor.ErrorTransport)
	p.onFailure(newDriverError("receive", p.sock.LocalAddr().String(), err))
	return false
}

func (p *inboundPump) deliver(pkt *crtp.Packet) bool {
	p.sinkMu.Lock()
	defer p.sinkMu.Unlock()
	if p.sink == nil {
		return false
	}
	return p.sink.Push(pkt)
}
