package session

import "fmt"

// Kind distinguishes an upload in progress from a download in progress.
type Kind int

const (
	KindUpload Kind = iota
	KindDownload
)

// Transfer tracks one file's upload or download state machine for the
// lifetime of a session (§3, §4.6). It is created at init-request time and
// destroyed at complete-request or session disconnect, whichever comes
// first.
type Transfer struct {
	FileID        string
	Kind          Kind
	TotalChunks   int
	NextChunk     int
	BytesSoFar    int64
	ChunkSize     int
	Path          string
	DeclaredSize  int64
}

// NextExpected is the chunk index this transfer currently requires.
func (t *Transfer) NextExpected() int { return t.NextChunk }

// PutTransfer registers a transfer for fileID, replacing any prior entry.
func (s *Session) PutTransfer(fileID string, t *Transfer) {
	s.transfers.Store(fileID, t)
}

// Transfer returns the in-flight transfer for fileID, if any.
func (s *Session) Transfer(fileID string) (*Transfer, bool) {
	v, ok := s.transfers.Load(fileID)
	if !ok {
		return nil, false
	}
	return v.(*Transfer), true
}

// DropTransfer removes fileID's transfer, called on COMPLETE; per §3
// transfers are owned by the session and discarded with it on disconnect
// rather than persisted.
func (s *Session) DropTransfer(fileID string) {
	s.transfers.Delete(fileID)
}

func (k Kind) String() string {
	switch k {
	case KindUpload:
		return "upload"
	case KindDownload:
		return "download"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}
