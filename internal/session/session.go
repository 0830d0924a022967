// Package session implements the per-connection session (C7): the
// authentication state machine, the cooperative reader/writer loop pair
// over one TCP connection, and the in-flight transfer table. The session
// manager (C8) that tracks and broadcasts to every live session also lives
// here, since the two are tightly coupled (grounded on the teacher's
// smb/session.Session plus its portmap.Server accept-and-serve shape).
package session

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cloudvault/vaultd/internal/command"
	"github.com/cloudvault/vaultd/internal/logger"
	"github.com/cloudvault/vaultd/internal/wire"
)

// State is the session's position in the CONNECTED -> AUTHENTICATED ->
// CLOSED state machine (§4.7).
type State int32

const (
	StateConnected State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// outboxDepth bounds the writer's pending-response queue. Because uploads
// are chunk-handshaked and downloads are pull-based (§5 Backpressure), a
// session never has more than a couple of responses in flight; this is
// slack, not a flow-control mechanism.
const outboxDepth = 16

// Session is the server-side representation of one live TCP connection,
// including its authentication state and active transfers (GLOSSARY).
type Session struct {
	ID       string
	conn     net.Conn
	registry *command.Registry

	state  atomic.Int32
	userID atomic.Value // string

	lastActivity atomic.Int64 // unix nanos

	transfers sync.Map // fileID string -> *Transfer

	sendMu sync.Mutex
	recvMu sync.Mutex

	outbox chan wire.Packet

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	done      chan struct{}

	pendingClose atomic.Pointer[time.Timer]

	// experimentalChunkCodec gates Open Question #1's opt-in, non-default
	// chunk-payload codec (internal/wire/experimental). Off by default.
	experimentalChunkCodec bool
}

// New wraps conn in a fresh, CONNECTED session. The caller must call Run
// to start its reader/writer loops.
func New(parent context.Context, conn net.Conn, registry *command.Registry) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		ID:       uuid.NewString(),
		conn:     conn,
		registry: registry,
		outbox:   make(chan wire.Packet, outboxDepth),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.state.Store(int32(StateConnected))
	s.userID.Store("")
	s.touch()
	return s
}

// EnableExperimentalChunkCodec opts this session into Open Question #1's
// chunk-payload codec. Never the default; set by the manager only when
// Config.ExperimentalChunkEncryption is true.
func (s *Session) EnableExperimentalChunkCodec() {
	s.experimentalChunkCodec = true
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// UserID returns the authenticated user's ID, or "" if not authenticated.
func (s *Session) UserID() string { return s.userID.Load().(string) }

func (s *Session) setUserID(id string) { s.userID.Store(id) }

// Authenticate transitions CONNECTED -> AUTHENTICATED for userID. It is
// idempotent: re-authenticating an already-authenticated session simply
// updates the bound user ID, matching a fresh LOGIN_REQUEST on the same
// connection.
func (s *Session) Authenticate(userID string) {
	s.setUserID(userID)
	s.setState(StateAuthenticated)
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// IdleSince reports how long it has been since the last packet was read
// from or written to this session.
func (s *Session) IdleSince() time.Duration {
	last := time.Unix(0, s.lastActivity.Load())
	return time.Since(last)
}

func (s *Session) ClientAddr() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

// Context is canceled when the session closes; handlers that perform
// suspending operations should pass it through.
func (s *Session) Context() context.Context { return s.ctx }

// Run starts the reader and writer loops and blocks until the session
// closes, for either reason.
func (s *Session) Run() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.readLoop() }()
	go func() { defer wg.Done(); s.writeLoop() }()
	wg.Wait()
	close(s.done)
}

// Done is closed once both loops have exited and the socket is released.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		s.recvMu.Lock()
		pkt, err := wire.ReadFrame(s.conn)
		s.recvMu.Unlock()
		if err != nil {
			if err != io.EOF {
				logger.Debug("session read error", "session_id", s.ID, "error", err)
			}
			return
		}
		s.touch()

		resp := s.dispatch(pkt)
		select {
		case s.outbox <- resp:
		case <-s.ctx.Done():
			return
		}

		if resp.Command == command.Code(command.LogoutResponse) {
			s.scheduleClose(2 * time.Second)
		}
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case pkt, ok := <-s.outbox:
			if !ok {
				return
			}
			s.sendMu.Lock()
			err := wire.WriteFrame(s.conn, pkt)
			s.sendMu.Unlock()
			if err != nil {
				logger.Debug("session write error", "session_id", s.ID, "error", err)
				s.Close()
				return
			}
			s.touch()
		case <-s.ctx.Done():
			return
		}
	}
}

// Send enqueues pkt for delivery, preserving FIFO order relative to other
// enqueued responses. Used for out-of-band pushes (e.g. Broadcast).
func (s *Session) Send(pkt wire.Packet) {
	select {
	case s.outbox <- pkt:
	case <-s.ctx.Done():
	}
}

// scheduleClose arranges for the session to close after a grace window,
// canceling any earlier scheduled close. Used for "send response, then
// close" flows like LOGOUT.
func (s *Session) scheduleClose(after time.Duration) {
	timer := time.AfterFunc(after, s.Close)
	if old := s.pendingClose.Swap(timer); old != nil {
		old.Stop()
	}
}

// Close cancels the session context, stops any pending delayed close, and
// closes the socket. Safe to call multiple times and from multiple
// goroutines.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if t := s.pendingClose.Load(); t != nil {
			t.Stop()
		}
		s.setState(StateClosed)
		s.cancel()
		_ = s.conn.Close()
	})
}
