package netevent

import "time"

// NoNetwork is the network identity reported when there is no active connection.
const NoNetwork = -1

// Event is a connectivity change notification.
type Event struct {
	// NetworkID is the network identity at the time the event was published.
	NetworkID int
	// At is the publication time.
	At time.Time
}

// Connected reports whether the event carries a usable network identity.
func (e Event) Connected() bool {
	return e.NetworkID != NoNetwork
}

// Handler receives connectivity events. Handlers are compared by identity
// when unsubscribing, so implementations should be pointers.
type Handler interface {
	OnNetworkChanged(ev Event)
}

// Source is the connectivity event provider consumed by drivers.
type Source interface {
	// Subscribe registers h. Subscribing an already registered handler has no effect.
	Subscribe(h Handler)
	// Unsubscribe removes h. It is safe to call for handlers never subscribed
	// and must not wait for a delivery in progress.
	Unsubscribe(h Handler)
	// CurrentNetworkID returns the current network identity or NoNetwork.
	CurrentNetworkID() int
}
