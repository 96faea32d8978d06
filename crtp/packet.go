package crtp

import "encoding/hex"

// Packet is an opaque CRTP payload. Drivers serialize it to and from raw bytes
// and never interpret its contents.
type Packet struct {
	data []byte
}

// NewPacket creates a packet holding a copy of data.
func NewPacket(data []byte) *Packet {
	p := &Packet{data: make([]byte, len(data))}
	copy(p.data, data)
	return p
}

// Bytes returns a copy of the packet payload.
func (p *Packet) Bytes() []byte {
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

// Len returns the payload size in bytes.
func (p *Packet) Len() int {
	return len(p.data)
}

// String returns the payload as lowercase hex.
func (p *Packet) String() string {
	return hex.EncodeToString(p.data)
}
