package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrConnectionClosed is returned when the peer closes the stream mid-frame.
var ErrConnectionClosed = errors.New("wire: connection closed")

const lengthPrefixSize = 4

// ReadFrame reads exactly one length-prefixed frame from r and decodes it.
// It rejects a zero or oversized length and loops on short reads for the
// body.
func ReadFrame(r io.Reader) (Packet, error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Packet{}, ErrConnectionClosed
		}
		return Packet{}, err
	}

	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length == 0 {
		return Packet{}, protoErrf("zero-length frame")
	}
	if length > MaxFrameSize {
		return Packet{}, protoErrf("frame length %d exceeds cap %d", length, MaxFrameSize)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Packet{}, ErrConnectionClosed
		}
		return Packet{}, err
	}

	return Deserialize(body)
}

// WriteFrame serializes p and writes it as one length-prefixed frame. It
// performs exactly one Write call for the whole frame so that, combined
// with a caller-held send lock, frames from concurrent writers never
// interleave on the stream.
func WriteFrame(w io.Writer, p Packet) error {
	body := Serialize(p)

	frame := make([]byte, lengthPrefixSize+len(body))
	binary.LittleEndian.PutUint32(frame[:lengthPrefixSize], uint32(len(body)))
	copy(frame[lengthPrefixSize:], body)

	_, err := w.Write(frame)
	return err
}
