package wire

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePacket() Packet {
	return Packet{
		Command:   210,
		PacketID:  uuid.New(),
		UserID:    "user-123",
		Timestamp: time.Now().UTC().Truncate(100 * time.Nanosecond),
		Metadata: map[string]string{
			"FileId":      "file-abc",
			"ChunkIndex":  "2",
			"IsLastChunk": "true",
		},
		Payload: []byte("hello chunk"),
	}
}

func TestRoundTrip(t *testing.T) {
	t.Run("WithPayloadAndMetadata", func(t *testing.T) {
		p := samplePacket()
		out, err := Deserialize(Serialize(p))
		require.NoError(t, err)

		assert.Equal(t, p.Command, out.Command)
		assert.Equal(t, p.PacketID, out.PacketID)
		assert.Equal(t, p.UserID, out.UserID)
		assert.True(t, p.Timestamp.Equal(out.Timestamp))
		assert.Equal(t, p.Metadata, out.Metadata)
		assert.Equal(t, p.Payload, out.Payload)
	})

	t.Run("EmptyUserIDAndNoPayload", func(t *testing.T) {
		p := New(100, "", nil, nil)
		out, err := Deserialize(Serialize(p))
		require.NoError(t, err)

		assert.Empty(t, out.UserID)
		assert.Empty(t, out.Payload)
		assert.Empty(t, out.Metadata)
	})
}

func TestDeserializeRejectsBadVersion(t *testing.T) {
	p := samplePacket()
	body := Serialize(p)
	body[0] = 2 // corrupt version byte

	_, err := Deserialize(body)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestDeserializeRejectsTruncatedBuffer(t *testing.T) {
	p := samplePacket()
	body := Serialize(p)

	_, err := Deserialize(body[:len(body)-5])
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	p := samplePacket()

	require.NoError(t, WriteFrame(&buf, p))

	out, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, p.Command, out.Command)
	assert.Equal(t, p.PacketID, out.PacketID)
}

func TestFrameMultiplePacketsInOrder(t *testing.T) {
	var buf bytes.Buffer
	packets := []Packet{
		New(100, "u1", nil, []byte("a")),
		New(210, "u1", nil, []byte("b")),
		New(300, "u1", nil, nil),
	}
	for _, p := range packets {
		require.NoError(t, WriteFrame(&buf, p))
	}

	for _, want := range packets {
		got, err := ReadFrame(&buf)
		require.NoError(t, err)
		assert.Equal(t, want.Command, got.Command)
		assert.Equal(t, want.Payload, got.Payload)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	lenBuf := make([]byte, 4)
	// length prefix claiming more than MaxFrameSize
	putUint32Overflow(lenBuf, MaxFrameSize+1)
	buf.Write(lenBuf)

	_, err := ReadFrame(&buf)
	assert.ErrorIs(t, err, ErrProtocol)
}

func putUint32Overflow(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

func TestReadFrameMidFrameCloseIsConnectionClosed(t *testing.T) {
	var buf bytes.Buffer
	p := samplePacket()
	require.NoError(t, WriteFrame(&buf, p))

	full := buf.Bytes()
	truncated := bytes.NewReader(full[:len(full)-3])

	_, err := ReadFrame(io.Reader(truncated))
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestTickConversionRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(100 * time.Nanosecond)
	ticks := ticksFromTime(now)
	back := timeFromTicks(ticks)
	assert.True(t, now.Equal(back))
}
