// Package framing implements the datagram framing used on the ESP UDP link.
//
// A frame is the packet payload followed by a single checksum byte holding
// the 8-bit additive sum of the payload bytes:
//
//	frame = payload ++ byte(sum(payload) mod 256)
//
// There is no length prefix; the datagram boundary delimits the frame. The
// checksum is weak against multi-byte errors but must stay as is to remain
// compatible with the device firmware.
package framing

import (
	"encoding/hex"
	"errors"
)

var (
	// ErrEmptyFrame indicates a frame without a checksum byte
	ErrEmptyFrame = errors.New("empty frame")

	// ErrChecksumMismatch indicates the trailing byte does not match the payload sum
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Checksum returns the 8-bit additive sum of data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Encode returns a new frame holding payload followed by its checksum.
// The payload slice is not modified.
func Encode(payload []byte) []byte {
	frame := make([]byte, len(payload)+1)
	copy(frame, payload)
	frame[len(payload)] = Checksum(payload)
	return frame
}

// Decode validates frame and returns its payload.
// The returned slice aliases frame; callers that keep it beyond the lifetime
// of the frame buffer must copy it.
func Decode(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}
	payload := frame[:len(frame)-1]
	if frame[len(frame)-1] != Checksum(payload) {
		return nil, ErrChecksumMismatch
	}
	return payload, nil
}

// Valid reports whether frame carries a matching checksum.
func Valid(frame []byte) bool {
	_, err := Decode(frame)
	return err == nil
}

// Hex renders a frame for logs as lowercase hex.
func Hex(frame []byte) string {
	return hex.EncodeToString(frame)
}
