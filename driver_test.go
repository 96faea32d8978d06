package espudp

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/espudp/crtp"
	"github.com/opd-ai/espudp/framing"
	"github.com/opd-ai/espudp/limits"
	"github.com/opd-ai/espudp/netevent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

// newTestDriver creates a driver that talks to peer over loopback and binds
// an ephemeral local port.
func newTestDriver(t *testing.T, source netevent.Source, peer *net.UDPConn) (*Driver, *recordingListener) {
	t.Helper()
	opts := NewOptions()
	opts.DeviceAddress = "127.0.0.1"
	opts.DevicePort = uint16(peer.LocalAddr().(*net.UDPAddr).Port)
	opts.LocalPort = 0

	d, err := New(source, opts)
	require.NoError(t, err)
	listener := newRecordingListener()
	d.AddConnectionListener(listener)
	t.Cleanup(d.Disconnect)
	return d, listener
}

func newTestSource(t *testing.T, initial int) *netevent.Broadcaster {
	t.Helper()
	b := netevent.NewBroadcaster(initial)
	t.Cleanup(b.Close)
	return b
}

func connectAndWait(t *testing.T, d *Driver, listener *recordingListener) {
	t.Helper()
	require.NoError(t, d.Connect())
	require.Equal(t, "requested", listener.next(t))
	require.Equal(t, "connected", listener.next(t))
	require.True(t, d.IsConnected())
}

func TestNewRejectsNilSource(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrNilSource)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	opts := NewOptions()
	opts.DevicePort = 0
	_, err := New(newTestSource(t, netevent.NoNetwork), opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestConnectWaitsForNetwork(t *testing.T) {
	source := newTestSource(t, netevent.NoNetwork)
	peer := newPeer(t)
	d, listener := newTestDriver(t, source, peer)

	require.NoError(t, d.Connect())
	assert.Equal(t, "requested", listener.next(t))
	listener.expectNone(t)

	assert.Equal(t, StateAwaitingNetwork, d.State())
	assert.False(t, d.IsConnected())
	assert.Nil(t, d.LocalAddr())

	source.Publish(3)
	assert.Equal(t, "connected", listener.next(t))
	assert.True(t, d.IsConnected())
	assert.Equal(t, StateConnected, d.State())

	// Further usable events in the same session are ignored.
	source.Publish(4)
	listener.expectNone(t)
}

func TestConnectOnJoinedNetworkConnectsImmediately(t *testing.T) {
	source := newTestSource(t, 1)
	d, listener := newTestDriver(t, source, newPeer(t))

	connectAndWait(t, d, listener)
	assert.NotNil(t, d.LocalAddr())
	assert.Equal(t, uint64(1), d.Stats().Sessions)
}

func TestDoubleConnectRejected(t *testing.T) {
	source := newTestSource(t, 1)
	d, listener := newTestDriver(t, source, newPeer(t))
	connectAndWait(t, d, listener)
	addr := d.LocalAddr().String()

	err := d.Connect()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyConnected)

	listener.expectNone(t)
	assert.True(t, d.IsConnected())
	assert.Equal(t, addr, d.LocalAddr().String())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	source := newTestSource(t, 1)
	d, listener := newTestDriver(t, source, newPeer(t))

	d.Disconnect()
	d.Disconnect()
	listener.expectNone(t)
	assert.Equal(t, StateIdle, d.State())

	connectAndWait(t, d, listener)
	d.Disconnect()
	assert.Equal(t, "disconnected", listener.next(t))
	d.Disconnect()
	listener.expectNone(t)

	assert.False(t, d.IsConnected())
	assert.Equal(t, StateDisconnected, d.State())
}

func TestDisconnectWhileAwaitingCancelsAttempt(t *testing.T) {
	source := newTestSource(t, netevent.NoNetwork)
	d, listener := newTestDriver(t, source, newPeer(t))

	require.NoError(t, d.Connect())
	assert.Equal(t, "requested", listener.next(t))

	d.Disconnect()
	assert.Equal(t, StateIdle, d.State())

	source.Publish(2)
	listener.expectNone(t)
	assert.False(t, d.IsConnected())
}

func TestSendPacketFramesInOrder(t *testing.T) {
	source := newTestSource(t, 1)
	peer := newPeer(t)
	d, listener := newTestDriver(t, source, peer)
	connectAndWait(t, d, listener)

	payloads := [][]byte{{0x30, 0x01}, {0x30, 0x02}, {0xFF, 0xFF}}
	for _, p := range payloads {
		d.SendPacket(crtp.NewPacket(p))
	}
	for _, p := range payloads {
		assert.Equal(t, framing.Encode(p), readDatagram(t, peer))
	}
}

func TestSendPacketDropsWhenDisconnected(t *testing.T) {
	source := newTestSource(t, netevent.NoNetwork)
	d, _ := newTestDriver(t, source, newPeer(t))

	d.SendPacket(crtp.NewPacket([]byte{0x01}))
	d.SendPacket(nil)
	assert.Equal(t, uint64(1), d.Stats().DroppedPackets)
	assert.Zero(t, d.Stats().PacketsSent)
}

func TestSendPacketDropsOversizedPayload(t *testing.T) {
	source := newTestSource(t, 1)
	peer := newPeer(t)
	d, listener := newTestDriver(t, source, peer)
	connectAndWait(t, d, listener)

	d.SendPacket(crtp.NewPacket(make([]byte, limits.MaxPayload+1)))
	d.SendPacket(crtp.NewPacket([]byte{0x01}))

	assert.Equal(t, framing.Encode([]byte{0x01}), readDatagram(t, peer))
	assert.Equal(t, uint64(1), d.Stats().DroppedPackets)
}

func TestReceivePacketFIFO(t *testing.T) {
	source := newTestSource(t, 1)
	peer := newPeer(t)
	d, listener := newTestDriver(t, source, peer)
	connectAndWait(t, d, listener)

	target := loopbackTo(d.LocalAddr())
	for _, p := range [][]byte{{0x0A}, {0x0B}, {0x0C}} {
		_, err := peer.WriteTo(framing.Encode(p), target)
		require.NoError(t, err)
	}
	_, err := peer.WriteTo([]byte{0x01, 0x05}, target)
	require.NoError(t, err)

	for _, want := range [][]byte{{0x0A}, {0x0B}, {0x0C}} {
		p := d.ReceivePacket(2 * time.Second)
		require.NotNil(t, p)
		assert.Equal(t, want, p.Bytes())
	}
	assert.Nil(t, d.ReceivePacket(100*time.Millisecond), "invalid frame must be discarded")
}

func TestReceivePacketTimeoutAndCancel(t *testing.T) {
	source := newTestSource(t, netevent.NoNetwork)
	d, _ := newTestDriver(t, source, newPeer(t))

	start := time.Now()
	assert.Nil(t, d.ReceivePacket(50*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Nil(t, d.ReceivePacketContext(ctx))
}

func TestNoDeliveryAfterDisconnect(t *testing.T) {
	source := newTestSource(t, 1)
	peer := newPeer(t)
	d, listener := newTestDriver(t, source, peer)
	connectAndWait(t, d, listener)
	target := loopbackTo(d.LocalAddr())

	d.Disconnect()
	assert.Equal(t, "disconnected", listener.next(t))

	_, err := peer.WriteTo(framing.Encode([]byte{0x99}), target)
	require.NoError(t, err)
	assert.Nil(t, d.ReceivePacket(100*time.Millisecond))
}

func TestNetworkLossTearsDownSession(t *testing.T) {
	source := newTestSource(t, 1)
	d, listener := newTestDriver(t, source, newPeer(t))
	connectAndWait(t, d, listener)

	source.Publish(netevent.NoNetwork)
	assert.Equal(t, "disconnected", listener.next(t))
	assert.Equal(t, "lost:No SoftAP connection", listener.next(t))
	assert.False(t, d.IsConnected())
	assert.Equal(t, StateDisconnected, d.State())

	// The subscription is gone, so a returning network does not reconnect.
	source.Publish(5)
	listener.expectNone(t)
	assert.False(t, d.IsConnected())

	// A fresh connect cycle works.
	connectAndWait(t, d, listener)
	assert.Equal(t, uint64(2), d.Stats().Sessions)
}

func TestNetworkLossWhileAwaitingIsIgnored(t *testing.T) {
	source := newTestSource(t, netevent.NoNetwork)
	d, listener := newTestDriver(t, source, newPeer(t))

	require.NoError(t, d.Connect())
	assert.Equal(t, "requested", listener.next(t))

	source.Publish(netevent.NoNetwork)
	listener.expectNone(t)
	assert.Equal(t, StateAwaitingNetwork, d.State())
}

func TestBindFailureReportsConnectionFailed(t *testing.T) {
	// A socket without SO_REUSEADDR keeps the port exclusive.
	blocker, err := net.ListenPacket("udp4", ":0")
	require.NoError(t, err)
	defer blocker.Close()

	source := newTestSource(t, 1)
	peer := newPeer(t)
	opts := NewOptions()
	opts.DeviceAddress = "127.0.0.1"
	opts.DevicePort = uint16(peer.LocalAddr().(*net.UDPAddr).Port)
	opts.LocalPort = uint16(blocker.LocalAddr().(*net.UDPAddr).Port)

	d, err := New(source, opts)
	require.NoError(t, err)
	listener := newRecordingListener()
	d.AddConnectionListener(listener)

	require.NoError(t, d.Connect())
	assert.Equal(t, "requested", listener.next(t))
	assert.Contains(t, listener.next(t), "failed:Create socket failed")
	assert.False(t, d.IsConnected())
	assert.Equal(t, StateIdle, d.State())

	// Unsubscribed: later events do not retry.
	source.Publish(2)
	listener.expectNone(t)
}

func TestTransportFailureEndsSession(t *testing.T) {
	source := newTestSource(t, 1)
	d, listener := newTestDriver(t, source, newPeer(t))
	connectAndWait(t, d, listener)

	s := d.session.Load()
	require.NotNil(t, s)
	s.sock.Close()
	d.endSession(s, d.text(msgTransportFailure, errors.New("boom")))

	assert.Equal(t, "disconnected", listener.next(t))
	assert.Equal(t, "lost:Link failure: boom", listener.next(t))
	assert.False(t, d.IsConnected())

	// A stale session is ignored.
	d.endSession(s, "again")
	listener.expectNone(t)
}

func TestLocalizedReasons(t *testing.T) {
	source := newTestSource(t, 1)
	d, listener := newTestDriver(t, source, newPeer(t))
	d.Localize(language.German)
	connectAndWait(t, d, listener)

	source.Publish(netevent.NoNetwork)
	assert.Equal(t, "disconnected", listener.next(t))
	assert.Equal(t, "lost:Keine SoftAP-Verbindung", listener.next(t))
}

func TestRemovedListenerNotNotified(t *testing.T) {
	source := newTestSource(t, 1)
	d, listener := newTestDriver(t, source, newPeer(t))
	d.RemoveConnectionListener(listener)

	require.NoError(t, d.Connect())
	listener.expectNone(t)
}

func TestSubscriptionLifecycle(t *testing.T) {
	source := newFakeSource(netevent.NoNetwork)
	d, listener := newTestDriver(t, source, newPeer(t))

	require.NoError(t, d.Connect())
	assert.Equal(t, "requested", listener.next(t))
	assert.Equal(t, 1, source.subscribers())

	source.publish(7)
	assert.Equal(t, "connected", listener.next(t))
	assert.Equal(t, 1, source.subscribers(), "subscription stays while connected")

	source.publish(netevent.NoNetwork)
	assert.Equal(t, "disconnected", listener.next(t))
	assert.Equal(t, "lost:No SoftAP connection", listener.next(t))
	assert.Zero(t, source.subscribers())
}

func TestDisconnectUnsubscribes(t *testing.T) {
	source := newFakeSource(netevent.NoNetwork)
	d, _ := newTestDriver(t, source, newPeer(t))

	require.NoError(t, d.Connect())
	assert.Equal(t, 1, source.subscribers())
	d.Disconnect()
	assert.Zero(t, source.subscribers())
}

func TestConnectDuringTeardownResubscribes(t *testing.T) {
	source := &hookSource{Broadcaster: newTestSource(t, 1)}
	d, listener := newTestDriver(t, source, newPeer(t))
	connectAndWait(t, d, listener)

	// Connect lands while the lost session is being torn down.
	connectErr := make(chan error, 1)
	hook := func() {
		go func() { connectErr <- d.Connect() }()
	}
	source.onUnsubscribe.Store(&hook)

	source.Publish(netevent.NoNetwork)
	events := []string{listener.next(t), listener.next(t), listener.next(t)}
	assert.ElementsMatch(t, []string{"disconnected", "lost:No SoftAP connection", "requested"}, events)
	require.NoError(t, <-connectErr)

	require.Eventually(t, func() bool {
		return source.subscribes.Load() == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateAwaitingNetwork, d.State())

	source.Publish(9)
	assert.Equal(t, "connected", listener.next(t))
	assert.True(t, d.IsConnected())
}

func TestSendFailureEndsSession(t *testing.T) {
	source := newTestSource(t, 1)
	d, listener := newTestDriver(t, source, newPeer(t))
	d.listen = func(ctx context.Context, port uint16) (*socket, error) {
		sock, err := listenUDP(ctx, port)
		if err != nil {
			return nil, err
		}
		sock.conn = failingWriteConn{PacketConn: sock.conn}
		return sock, nil
	}
	connectAndWait(t, d, listener)

	d.SendPacket(crtp.NewPacket([]byte{0x01}))

	assert.Equal(t, "disconnected", listener.next(t))
	lost := listener.next(t)
	assert.True(t, strings.HasPrefix(lost, "lost:Link failure: espudp send 127.0.0.1:"), lost)
	assert.Contains(t, lost, "network is unreachable")
	assert.False(t, d.IsConnected())
	assert.Equal(t, StateDisconnected, d.State())
	assert.Equal(t, uint64(1), d.Stats().TransportErrors)

	// The failed session left no subscription behind.
	source.Publish(2)
	listener.expectNone(t)
}

func TestDisconnectDiscardsQueuedPackets(t *testing.T) {
	source := newTestSource(t, 1)
	peer := newPeer(t)
	d, listener := newTestDriver(t, source, peer)
	connectAndWait(t, d, listener)

	_, err := peer.WriteTo(framing.Encode([]byte{0x42}), loopbackTo(d.LocalAddr()))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return d.Stats().PacketsReceived == 1
	}, 2*time.Second, 10*time.Millisecond)

	d.Disconnect()
	assert.Equal(t, "disconnected", listener.next(t))
	assert.Nil(t, d.ReceivePacket(100*time.Millisecond))
}
