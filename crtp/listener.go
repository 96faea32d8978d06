package crtp

import "sync"

// ConnectionListener receives driver lifecycle notifications.
// Callbacks run on the goroutine that caused the transition and must not block.
type ConnectionListener interface {
	ConnectionRequested()
	Connected()
	ConnectionFailed(reason string)
	ConnectionLost(reason string)
	Disconnected()
}

// ConnectionAdapter implements ConnectionListener with no-op methods.
// Embed it to override only the notifications of interest.
type ConnectionAdapter struct{}

func (ConnectionAdapter) ConnectionRequested()    {}
func (ConnectionAdapter) Connected()              {}
func (ConnectionAdapter) ConnectionFailed(string) {}
func (ConnectionAdapter) ConnectionLost(string)   {}
func (ConnectionAdapter) Disconnected()           {}

// Notifier keeps the registered listeners of a driver and fans
// notifications out to them in registration order.
type Notifier struct {
	mu        sync.RWMutex
	listeners []ConnectionListener
}

// AddConnectionListener registers l. Registering the same listener twice has no effect.
// Listeners are compared by identity, so l should be a pointer.
func (n *Notifier) AddConnectionListener(l ConnectionListener) {
	if l == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, existing := range n.listeners {
		if existing == l {
			return
		}
	}
	n.listeners = append(n.listeners, l)
}

// RemoveConnectionListener unregisters l if present.
func (n *Notifier) RemoveConnectionListener(l ConnectionListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, existing := range n.listeners {
		if existing == l {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}

// snapshot returns the listeners so callbacks run without the lock held.
func (n *Notifier) snapshot() []ConnectionListener {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]ConnectionListener(nil), n.listeners...)
}

func (n *Notifier) NotifyConnectionRequested() {
	for _, l := range n.snapshot() {
		l.ConnectionRequested()
	}
}

func (n *Notifier) NotifyConnected() {
	for _, l := range n.snapshot() {
		l.Connected()
	}
}

func (n *Notifier) NotifyConnectionFailed(reason string) {
	for _, l := range n.snapshot() {
		l.ConnectionFailed(reason)
	}
}

func (n *Notifier) NotifyConnectionLost(reason string) {
	for _, l := range n.snapshot() {
		l.ConnectionLost(reason)
	}
}

func (n *Notifier) NotifyDisconnected() {
	for _, l := range n.snapshot() {
		l.Disconnected()
	}
}
