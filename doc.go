// Package espudp implements a CRTP transport driver over UDP for quadcopters
// that host their own Wi-Fi access point (SoftAP).
//
// The driver does not open its socket when Connect is called. It subscribes to
// a network event source and binds the socket only once the host reports a
// usable connection, that is, once it has joined the device's SoftAP. Every
// packet sent to the device is framed with a trailing one-byte additive
// checksum, and every datagram received is validated against it before the
// payload is queued for the application.
//
// # Getting Started
//
// Create an event source and a driver, register a listener and connect:
//
//	watcher := netevent.NewInterfaceWatcher(netip.MustParsePrefix("192.168.43.0/24"), time.Second)
//	watcher.Start()
//	defer watcher.Close()
//
//	driver, err := espudp.New(watcher, espudp.NewOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	driver.AddConnectionListener(listener)
//
//	if err := driver.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer driver.Disconnect()
//
//	driver.SendPacket(crtp.NewPacket([]byte{0x30, 0x00}))
//	if p := driver.ReceivePacket(100 * time.Millisecond); p != nil {
//	    fmt.Println(p)
//	}
//
// # Core Types
//
//   - [Driver]: the connection controller implementing [crtp.Driver]
//   - [Options]: device endpoint, local port, receive buffer and language
//   - [ConnectionState]: Idle, AwaitingNetwork, Connected or Disconnected
//   - [DriverError]: an error annotated with the failing operation
//
// # Lifecycle
//
// Connect emits ConnectionRequested and subscribes to the source. The first
// event for which the source reports a network identity other than -1 binds
// the socket, starts both pumps and emits Connected. Later events in the same
// session are ignored. An event reporting -1 while connected tears the
// session down and emits Disconnected followed by ConnectionLost. A bind
// failure emits ConnectionFailed. A send or receive error on the socket ends
// the session the same way a lost network does.
//
// Disconnect is idempotent. After it returns no packet from the old session
// is delivered to ReceivePacket.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Listener callbacks run on
// the goroutine that caused the transition, usually the event source's
// delivery goroutine, and must not block.
package espudp
