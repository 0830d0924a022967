// Package wire implements the length-prefixed binary packet protocol: the
// in-memory Packet type and its bit-exact serialization to and from the
// frame format carried on a session's TCP stream.
package wire

import (
	"time"

	"github.com/google/uuid"
)

// Version is the only wire format version this codec understands.
const Version uint8 = 1

// MaxFrameSize is the hard cap on a single framed packet, length prefix
// excluded.
const MaxFrameSize = 100 * 1024 * 1024

// Packet is the in-memory message carrying a command code, routing
// metadata, and an opaque payload.
type Packet struct {
	Command   int32
	PacketID  uuid.UUID
	UserID    string
	Timestamp time.Time
	Metadata  map[string]string
	Payload   []byte
}

// New builds a request/response packet with a fresh packet ID and the
// current time, per the wire's tick-precision timestamp.
func New(command int32, userID string, metadata map[string]string, payload []byte) Packet {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return Packet{
		Command:   command,
		PacketID:  uuid.New(),
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
		Payload:   payload,
	}
}

// Get returns a metadata value and whether it was present.
func (p Packet) Get(key string) (string, bool) {
	v, ok := p.Metadata[key]
	return v, ok
}

// With returns a shallow copy of p with key=value set in its metadata.
func (p Packet) With(key, value string) Packet {
	m := make(map[string]string, len(p.Metadata)+1)
	for k, v := range p.Metadata {
		m[k] = v
	}
	m[key] = value
	p.Metadata = m
	return p
}
