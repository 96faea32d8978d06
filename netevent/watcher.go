package netevent

import (
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is the interface table polling period.
const DefaultPollInterval = time.Second

// hostInterface is the subset of interface state the watcher inspects.
type hostInterface struct {
	Index int
	Name  string
	Up    bool
	Addrs []netip.Addr
}

// InterfaceWatcher is a Source backed by the host interface table. The
// network identity is the index of the first up interface holding an IPv4
// address inside the SoftAP subnet, or NoNetwork if there is none.
type InterfaceWatcher struct {
	*Broadcaster

	subnet   netip.Prefix
	interval time.Duration

	// listInterfaces is replaced in tests.
	listInterfaces func() ([]hostInterface, error)

	startOnce sync.Once
	started   atomic.Bool
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewInterfaceWatcher creates a watcher for subnet. A non-positive interval
// selects DefaultPollInterval. Call Start to begin polling.
func NewInterfaceWatcher(subnet netip.Prefix, interval time.Duration) *InterfaceWatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &InterfaceWatcher{
		Broadcaster:    NewBroadcaster(NoNetwork),
		subnet:         subnet.Masked(),
		interval:       interval,
		listInterfaces: systemInterfaces,
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Start polls once synchronously, so CurrentNetworkID is accurate on return,
// then keeps polling in the background until Close.
func (w *InterfaceWatcher) Start() {
	w.startOnce.Do(func() {
		w.poll()
		w.started.Store(true)
		go w.run()
	})
}

// Close stops polling and the underlying Broadcaster.
func (w *InterfaceWatcher) Close() {
	w.stopOnce.Do(func() {
		close(w.stop)
		if w.started.Load() {
			<-w.done
		}
		w.Broadcaster.Close()
	})
}

func (w *InterfaceWatcher) run() {
	defer close(w.done)
	ticker := getTimeProvider(w.timeProvider).NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll publishes an event when the detected identity differs from the current one.
func (w *InterfaceWatcher) poll() {
	id := w.detect()
	previous := w.CurrentNetworkID()
	if id == previous {
		return
	}

	logrus.WithFields(logrus.Fields{
		"previous_id": previous,
		"network_id":  id,
		"subnet":      w.subnet.String(),
		"component":   "InterfaceWatcher",
	}).Info("Network connectivity changed")

	w.Publish(id)
}

func (w *InterfaceWatcher) detect() int {
	ifaces, err := w.listInterfaces()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"error":     err.Error(),
			"component": "InterfaceWatcher",
		}).Warn("Failed to list network interfaces")
		return NoNetwork
	}

	for _, iface := range ifaces {
		if !iface.Up {
			continue
		}
		for _, addr := range iface.Addrs {
			if addr.Is4() && w.subnet.Contains(addr) {
				return iface.Index
			}
		}
	}
	return NoNetwork
}

func systemInterfaces() ([]hostInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	result := make([]hostInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		hi := hostInterface{
			Index: iface.Index,
			Name:  iface.Name,
			Up:    iface.Flags&net.FlagUp != 0,
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if ip, ok := netip.AddrFromSlice(ipNet.IP); ok {
				hi.Addrs = append(hi.Addrs, ip.Unmap())
			}
		}
		result = append(result, hi)
	}
	return result, nil
}
