// Package netevent delivers network connectivity changes to transport drivers.
//
// A Source publishes an Event whenever the host's connectivity may have
// changed and answers CurrentNetworkID on demand. NoNetwork (-1) means the
// host has no usable connection to the device network.
//
// The package provides:
//   - Source and Handler: the subscription contract drivers consume
//   - Broadcaster: an in-memory Source that dispatches events one at a time
//     on a single goroutine and replays the current state to new subscribers
//   - InterfaceWatcher: a Source that polls the host interface table for an
//     address inside the device's SoftAP subnet
//
// Example usage:
//
//	w := netevent.NewInterfaceWatcher(netip.MustParsePrefix("192.168.43.0/24"), time.Second)
//	w.Start()
//	defer w.Close()
//
//	d, err := espudp.New(w, espudp.NewOptions())
package netevent
