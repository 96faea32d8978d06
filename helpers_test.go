package espudp

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opd-ai/espudp/crtp"
	"github.com/opd-ai/espudp/netevent"
	"github.com/stretchr/testify/require"
)

// recordingListener forwards notifications to a channel as strings.
type recordingListener struct {
	events chan string
}

func newRecordingListener() *recordingListener {
	return &recordingListener{events: make(chan string, 32)}
}

func (r *recordingListener) ConnectionRequested()           { r.events <- "requested" }
func (r *recordingListener) Connected()                     { r.events <- "connected" }
func (r *recordingListener) ConnectionFailed(reason string) { r.events <- "failed:" + reason }
func (r *recordingListener) ConnectionLost(reason string)   { r.events <- "lost:" + reason }
func (r *recordingListener) Disconnected()                  { r.events <- "disconnected" }

var _ crtp.ConnectionListener = (*recordingListener)(nil)

func (r *recordingListener) next(t *testing.T) string {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return ""
	}
}

func (r *recordingListener) expectNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.events:
		t.Fatalf("unexpected notification %q", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

// newPeer opens a loopback UDP socket standing in for the device.
func newPeer(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readDatagram reads one datagram from conn or fails the test.
func readDatagram(t *testing.T, conn *net.UDPConn) []byte {
	t.Helper()
	buf := make([]byte, 2048)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	return buf[:n]
}

// loopbackTo returns 127.0.0.1 with the port of addr.
func loopbackTo(addr net.Addr) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: addr.(*net.UDPAddr).Port}
}

// fakeSource is a netevent.Source that delivers synchronously on the
// publishing goroutine and records whether a handler is subscribed.
type fakeSource struct {
	mu       sync.Mutex
	current  int
	handlers []netevent.Handler
}

func newFakeSource(initial int) *fakeSource {
	return &fakeSource{current: initial}
}

func (f *fakeSource) Subscribe(h netevent.Handler) {
	f.mu.Lock()
	f.handlers = append(f.handlers, h)
	id := f.current
	f.mu.Unlock()
	h.OnNetworkChanged(netevent.Event{NetworkID: id, At: time.Now()})
}

func (f *fakeSource) Unsubscribe(h netevent.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.handlers {
		if existing == h {
			f.handlers = append(f.handlers[:i], f.handlers[i+1:]...)
			return
		}
	}
}

func (f *fakeSource) CurrentNetworkID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeSource) publish(id int) {
	f.mu.Lock()
	f.current = id
	handlers := append([]netevent.Handler(nil), f.handlers...)
	f.mu.Unlock()
	for _, h := range handlers {
		h.OnNetworkChanged(netevent.Event{NetworkID: id, At: time.Now()})
	}
}

func (f *fakeSource) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

var _ netevent.Source = (*fakeSource)(nil)

// hookSource wraps a Broadcaster, counts subscriptions and runs a one-shot
// hook inside the next Unsubscribe.
type hookSource struct {
	*netevent.Broadcaster
	subscribes    atomic.Int32
	onUnsubscribe atomic.Pointer[func()]
}

func (h *hookSource) Subscribe(handler netevent.Handler) {
	h.subscribes.Add(1)
	h.Broadcaster.Subscribe(handler)
}

func (h *hookSource) Unsubscribe(handler netevent.Handler) {
	if fn := h.onUnsubscribe.Swap(nil); fn != nil {
		(*fn)()
	}
	h.Broadcaster.Unsubscribe(handler)
}

// failingWriteConn is a real socket whose writes always fail.
type failingWriteConn struct {
	net.PacketConn
}

func (c failingWriteConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	return 0, &net.OpError{Op: "write", Net: "udp", Addr: addr, Err: errors.New("network is unreachable")}
}
