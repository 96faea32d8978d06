// Package limits provides centralized size limits for the ESP UDP link.
// This ensures consistent validation between the sending and receiving paths.
package limits

import (
	"errors"
	"fmt"
)

const (
	// ChecksumSize is the number of trailer bytes appended to every frame.
	ChecksumSize = 1

	// MaxPayload is the largest CRTP payload carried in a single datagram.
	// The device firmware receives into a 1024 byte buffer, so one byte is
	// left for the checksum trailer.
	MaxPayload = 1023

	// MaxFrame is the largest frame on the wire (MaxPayload + ChecksumSize).
	MaxFrame = MaxPayload + ChecksumSize

	// MinReceiveBuffer is the smallest receive buffer that can hold a
	// checksum trailer plus one payload byte.
	MinReceiveBuffer = ChecksumSize + 1
)

var (
	// ErrPayloadTooLarge indicates a payload exceeds MaxPayload
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrBufferTooSmall indicates a receive buffer cannot hold a frame
	ErrBufferTooSmall = errors.New("receive buffer too small")
)

// ValidatePayload validates a CRTP payload against MaxPayload.
// Empty payloads are valid: the framing handles zero-length packets.
func ValidatePayload(payload []byte) error {
	return ValidatePayloadSize(len(payload))
}

// ValidatePayloadSize validates a payload length against MaxPayload.
func ValidatePayloadSize(size int) error {
	if size > MaxPayload {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrPayloadTooLarge, size, MaxPayload)
	}
	return nil
}

// ValidateReceiveBuffer checks that a receive buffer size is usable.
// Buffers smaller than MaxFrame are accepted but truncate oversized datagrams,
// which then fail checksum validation and are discarded.
func ValidateReceiveBuffer(size int) error {
	if size < MinReceiveBuffer {
		return fmt.Errorf("%w: size %d below minimum %d", ErrBufferTooSmall, size, MinReceiveBuffer)
	}
	return nil
}
