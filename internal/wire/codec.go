package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrProtocol wraps every serialization/deserialization failure: malformed
// frame, unsupported version, or a length field that overruns the buffer.
var ErrProtocol = errors.New("wire: protocol error")

func protoErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}

// Serialize encodes p to its wire body (everything after the 4-byte length
// prefix). It always succeeds for a well-formed Packet.
func Serialize(p Packet) []byte {
	size := 1 + 4 + 16 + 4 + len(p.UserID) + 8 + 4
	for k, v := range p.Metadata {
		size += 4 + len(k) + 4 + len(v)
	}
	size += 4 + len(p.Payload)

	buf := make([]byte, size)
	off := 0

	buf[off] = Version
	off++

	binary.LittleEndian.PutUint32(buf[off:], uint32(p.Command))
	off += 4

	packetID := p.PacketID
	idBytes, _ := packetID.MarshalBinary()
	copy(buf[off:off+16], idBytes)
	off += 16

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(p.UserID)))
	off += 4
	off += copy(buf[off:], p.UserID)

	binary.LittleEndian.PutUint64(buf[off:], uint64(ticksFromTime(p.Timestamp)))
	off += 8

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(p.Metadata)))
	off += 4
	for k, v := range p.Metadata {
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(k)))
		off += 4
		off += copy(buf[off:], k)
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(v)))
		off += 4
		off += copy(buf[off:], v)
	}

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(p.Payload)))
	off += 4
	off += copy(buf[off:], p.Payload)

	return buf[:off]
}

// Deserialize decodes a wire body produced by Serialize (or by ReadFrame)
// back into a Packet.
func Deserialize(data []byte) (Packet, error) {
	var p Packet
	off := 0

	readU8 := func() (uint8, error) {
		if off+1 > len(data) {
			return 0, protoErrf("truncated version byte")
		}
		v := data[off]
		off++
		return v, nil
	}
	readU32 := func() (uint32, error) {
		if off+4 > len(data) {
			return 0, protoErrf("truncated uint32 at offset %d", off)
		}
		v := binary.LittleEndian.Uint32(data[off:])
		off += 4
		return v, nil
	}
	readU64 := func() (uint64, error) {
		if off+8 > len(data) {
			return 0, protoErrf("truncated uint64 at offset %d", off)
		}
		v := binary.LittleEndian.Uint64(data[off:])
		off += 8
		return v, nil
	}
	readBytes := func(n uint32) ([]byte, error) {
		if n > MaxFrameSize || off+int(n) > len(data) {
			return nil, protoErrf("field length %d exceeds remaining buffer", n)
		}
		v := data[off : off+int(n)]
		off += int(n)
		return v, nil
	}
	readString := func() (string, error) {
		n, err := readU32()
		if err != nil {
			return "", err
		}
		b, err := readBytes(n)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(b) {
			return "", protoErrf("invalid UTF-8 string field")
		}
		return string(b), nil
	}

	version, err := readU8()
	if err != nil {
		return p, err
	}
	if version != Version {
		return p, protoErrf("unsupported version %d", version)
	}

	cmd, err := readU32()
	if err != nil {
		return p, err
	}
	p.Command = int32(cmd)

	idBytes, err := readBytes(16)
	if err != nil {
		return p, err
	}
	id, err := uuid.FromBytes(idBytes)
	if err != nil {
		return p, protoErrf("malformed packet id: %v", err)
	}
	p.PacketID = id

	userID, err := readString()
	if err != nil {
		return p, err
	}
	p.UserID = userID

	ticks, err := readU64()
	if err != nil {
		return p, err
	}
	p.Timestamp = timeFromTicks(int64(ticks))

	metaCount, err := readU32()
	if err != nil {
		return p, err
	}
	if metaCount > 0 {
		p.Metadata = make(map[string]string, metaCount)
	} else {
		p.Metadata = map[string]string{}
	}
	for i := uint32(0); i < metaCount; i++ {
		key, err := readString()
		if err != nil {
			return p, err
		}
		val, err := readString()
		if err != nil {
			return p, err
		}
		p.Metadata[key] = val
	}

	payloadLen, err := readU32()
	if err != nil {
		return p, err
	}
	payload, err := readBytes(payloadLen)
	if err != nil {
		return p, err
	}
	if payloadLen > 0 {
		p.Payload = append([]byte(nil), payload...)
	}

	return p, nil
}
