package session

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/cloudvault/vaultd/internal/command"
	"github.com/cloudvault/vaultd/internal/logger"
	"github.com/cloudvault/vaultd/internal/telemetry"
	"github.com/cloudvault/vaultd/internal/wire"
	"github.com/cloudvault/vaultd/internal/wire/experimental"
)

// dispatch routes one request packet to its handler and builds the
// response packet, enforcing the two checks every handler contract
// requires (§4.6): the session must be authenticated (except for the
// pre-auth codes), and a packet-carried user ID must match the session's.
func (s *Session) dispatch(pkt wire.Packet) wire.Packet {
	ctx, span := telemetry.StartSpan(s.ctx, telemetry.SpanSessionRequest,
		trace.WithAttributes(
			telemetry.SessionID(s.ID),
			telemetry.Command(pkt.Command),
			telemetry.PacketID(pkt.PacketID.String()),
		),
	)
	defer span.End()

	code := command.Code(pkt.Command)

	if command.RequiresAuth(code) && s.State() != StateAuthenticated {
		return s.errorResponse(pkt, command.Authentication("session is not authenticated"))
	}

	if pkt.UserID != "" && s.UserID() != "" && pkt.UserID != s.UserID() {
		return s.errorResponse(pkt, command.Authentication("packet user id does not match session"))
	}

	handler := s.registry.Lookup(code)
	if handler == nil {
		return s.errorResponse(pkt, command.Protocol("unsupported command code"))
	}

	payload := pkt.Payload
	if s.experimentalChunkCodec && code == command.FileUploadChunkRequest {
		decoded, err := decodeExperimentalChunk(pkt.Metadata, payload)
		if err != nil {
			return s.errorResponse(pkt, command.Protocol("experimental chunk codec: "+err.Error()))
		}
		payload = decoded
	}

	req := command.Request{
		Command:  code,
		UserID:   s.UserID(),
		Metadata: pkt.Metadata,
		Payload:  payload,
	}
	if req.UserID == "" {
		req.UserID = pkt.UserID
	}

	resp, err := handler.Handle(WithSession(ctx, s), req)
	if err != nil {
		return s.errorResponse(pkt, err)
	}

	out := wire.New(int32(resp.Command), s.UserID(), resp.Metadata, resp.Payload)
	return out
}

// decodeExperimentalChunk unwraps Open Question #1's codec: the client
// seals the chunk with a freshly generated key and embeds that key in the
// packet metadata (base64, under "ChunkKey"), so there is no real
// confidentiality gain over the wire's own framing — the point is to
// exercise the codec, not to establish a security boundary. Downloads are
// never re-sealed (spec §9 decision #1).
func decodeExperimentalChunk(meta map[string]string, sealed []byte) ([]byte, error) {
	keyB64 := meta["ChunkKey"]
	if keyB64 == "" {
		return nil, errors.New("missing ChunkKey metadata field")
	}
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("decode ChunkKey: %w", err)
	}
	cipher, err := experimental.NewChunkCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.Open(sealed)
}

func (s *Session) errorResponse(pkt wire.Packet, err error) wire.Packet {
	var cmdErr *command.Error
	if !errors.As(err, &cmdErr) {
		cmdErr = command.IO("internal error", err)
	}

	logger.Warn("handler error",
		"session_id", s.ID,
		"command", command.Code(pkt.Command).String(),
		"kind", cmdErr.Kind.String(),
		"message", cmdErr.Message,
	)

	if cmdErr.TerminatesSession() {
		defer s.scheduleClose(100 * time.Millisecond)
	}

	meta := map[string]string{"Message": cmdErr.Message}
	if cmdErr.Hint != "" {
		meta["Hint"] = cmdErr.Hint
	}
	meta["Kind"] = cmdErr.Kind.String()

	return wire.New(int32(cmdErr.ResponseCode()), s.UserID(), meta, nil)
}
