// Package crtp defines the link-layer contract between the flight-control
// library and its transport drivers.
//
// A driver moves opaque CRTP packets between the library and a device. The
// package provides:
//   - Packet: an immutable byte payload the driver serializes without interpreting
//   - Driver: connect/disconnect/send/receive operations every transport implements
//   - ConnectionListener: lifecycle notifications emitted by a driver
//   - Notifier: a listener registry drivers embed to emit notifications
//
// Example usage:
//
//	d, err := espudp.New(source, espudp.NewOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	d.AddConnectionListener(listener)
//	if err := d.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	d.SendPacket(crtp.NewPacket([]byte{0x30, 0x00}))
//	if p := d.ReceivePacket(time.Second); p != nil {
//	    fmt.Println(p)
//	}
package crtp
