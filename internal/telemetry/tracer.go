package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for spans emitted by the session and transfer layers.
const (
	AttrClientAddr  = "client.address"
	AttrSessionID   = "session.id"
	AttrUserID      = "user.id"
	AttrUsername    = "user.name"
	AttrCommand     = "wire.command"
	AttrPacketID    = "wire.packet_id"
	AttrFileID      = "file.id"
	AttrDirectoryID = "directory.id"
	AttrChunkIndex  = "transfer.chunk_index"
	AttrChunkCount  = "transfer.chunk_count"
	AttrBytes       = "transfer.bytes"
	AttrKind        = "transfer.kind"
)

// Span names for the request/response and transfer lifecycle.
const (
	SpanSessionRequest   = "session.request"
	SpanUploadInit       = "transfer.upload_init"
	SpanUploadChunk      = "transfer.upload_chunk"
	SpanUploadComplete   = "transfer.upload_complete"
	SpanDownloadInit     = "transfer.download_init"
	SpanDownloadChunk    = "transfer.download_chunk"
	SpanDownloadComplete = "transfer.download_complete"
	SpanStorageWrite     = "storage.write_chunk"
	SpanStorageRead      = "storage.read_chunk"
	SpanMetadataLookup   = "metadata.lookup"
	SpanMetadataMutate   = "metadata.mutate"
)

// ClientAddr returns an attribute for the connection's remote address.
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// SessionID returns an attribute for the owning session's ID.
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// UserID returns an attribute for the authenticated user's ID.
func UserID(id string) attribute.KeyValue {
	return attribute.String(AttrUserID, id)
}

// Username returns an attribute for the authenticated username.
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// Command returns an attribute for the numeric wire command code.
func Command(code int32) attribute.KeyValue {
	return attribute.Int64(AttrCommand, int64(code))
}

// PacketID returns an attribute for a packet's UUID.
func PacketID(id string) attribute.KeyValue {
	return attribute.String(AttrPacketID, id)
}

// FileID returns an attribute for a file metadata ID.
func FileID(id string) attribute.KeyValue {
	return attribute.String(AttrFileID, id)
}

// DirectoryID returns an attribute for a directory metadata ID.
func DirectoryID(id string) attribute.KeyValue {
	return attribute.String(AttrDirectoryID, id)
}

// ChunkIndex returns an attribute for the chunk index of a transfer.
func ChunkIndex(idx int) attribute.KeyValue {
	return attribute.Int(AttrChunkIndex, idx)
}

// ChunkCount returns an attribute for the total chunk count of a transfer.
func ChunkCount(n int) attribute.KeyValue {
	return attribute.Int(AttrChunkCount, n)
}

// Bytes returns an attribute for a byte count.
func Bytes(n int64) attribute.KeyValue {
	return attribute.Int64(AttrBytes, n)
}

// TransferKind returns an attribute for "upload" or "download".
func TransferKind(kind string) attribute.KeyValue {
	return attribute.String(AttrKind, kind)
}
