package espudp

import (
	"fmt"
	"net/netip"

	"github.com/opd-ai/espudp/limits"
	"golang.org/x/text/language"
)

const (
	// DefaultDeviceAddress is the device's fixed address on its SoftAP.
	DefaultDeviceAddress = "192.168.43.42"
	// DefaultDevicePort is the UDP port the device listens on.
	DefaultDevicePort = 2390
	// DefaultLocalPort is the UDP port the driver binds locally.
	DefaultLocalPort = 2399
	// DefaultReceiveBufferSize fits the largest frame the device sends.
	DefaultReceiveBufferSize = limits.MaxFrame
)

// Options contains driver configuration.
type Options struct {
	DeviceAddress     string
	DevicePort        uint16
	LocalPort         uint16 // 0 binds an ephemeral port
	ReceiveBufferSize int
	Language          language.Tag
}

// NewOptions returns the default options for the ESP SoftAP link.
func NewOptions() *Options {
	return &Options{
		DeviceAddress:     DefaultDeviceAddress,
		DevicePort:        DefaultDevicePort,
		LocalPort:         DefaultLocalPort,
		ReceiveBufferSize: DefaultReceiveBufferSize,
		Language:          language.AmericanEnglish,
	}
}

// Validate checks the options and returns the parsed device endpoint.
func (o *Options) Validate() (netip.AddrPort, error) {
	addr, err := netip.ParseAddr(o.DeviceAddress)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: device address %q: %v", ErrInvalidOptions, o.DeviceAddress, err)
	}
	if !addr.Is4() {
		return netip.AddrPort{}, fmt.Errorf("%w: device address %q is not IPv4", ErrInvalidOptions, o.DeviceAddress)
	}
	if o.DevicePort == 0 {
		return netip.AddrPort{}, fmt.Errorf("%w: device port must be non-zero", ErrInvalidOptions)
	}
	if err := limits.ValidateReceiveBuffer(o.ReceiveBufferSize); err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return netip.AddrPortFrom(addr, o.DevicePort), nil
}
