package session

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cloudvault/vaultd/internal/command"
	"github.com/cloudvault/vaultd/internal/logger"
	"github.com/cloudvault/vaultd/internal/wire"
)

// Manager is the session manager (C8): it tracks every live session,
// enforces the max-concurrent-clients cap, times out idle sessions, and
// broadcasts a shutdown notice to all of them.
type Manager struct {
	registry *command.Registry

	maxConcurrent int
	idleTimeout   time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	metrics ManagerMetrics

	experimentalChunkCodec bool
}

// EnableExperimentalChunkCodec opts every future session into Open
// Question #1's chunk-payload codec (internal/wire/experimental). Never
// called unless Config.ExperimentalChunkEncryption is true.
func (m *Manager) EnableExperimentalChunkCodec() {
	m.experimentalChunkCodec = true
}

// ManagerMetrics is the subset of internal/metrics the manager reports
// through, kept as an interface here so this package does not import
// internal/metrics directly (it is the lower-level package).
type ManagerMetrics interface {
	SessionOpened()
	SessionClosed()
	SessionRejected()
}

type noopMetrics struct{}

func (noopMetrics) SessionOpened()   {}
func (noopMetrics) SessionClosed()   {}
func (noopMetrics) SessionRejected() {}

func NewManager(registry *command.Registry, maxConcurrent int, idleTimeout time.Duration) *Manager {
	return &Manager{
		registry:      registry,
		maxConcurrent: maxConcurrent,
		idleTimeout:   idleTimeout,
		sessions:      make(map[string]*Session),
		metrics:       noopMetrics{},
	}
}

func (m *Manager) SetMetrics(mm ManagerMetrics) {
	if mm != nil {
		m.metrics = mm
	}
}

// Accept registers a new connection as a session, rejecting it outright if
// the manager is at capacity. On acceptance, ownership of running and
// eventually cleaning up the session belongs to the returned *Session's
// caller (normally internal/server).
func (m *Manager) Accept(ctx context.Context, conn net.Conn) (*Session, bool) {
	m.mu.Lock()
	if len(m.sessions) >= m.maxConcurrent {
		m.mu.Unlock()
		m.metrics.SessionRejected()
		_ = wire.WriteFrame(conn, wire.New(int32(command.ErrorResponse), "", map[string]string{
			"Message": "server at capacity",
		}, nil))
		_ = conn.Close()
		return nil, false
	}

	s := New(ctx, conn, m.registry)
	if m.experimentalChunkCodec {
		s.EnableExperimentalChunkCodec()
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.metrics.SessionOpened()
	logger.Info("session accepted", "session_id", s.ID, "client", s.ClientAddr())
	return s, true
}

// Release removes a session from the registry once it has closed.
func (m *Manager) Release(s *Session) {
	m.mu.Lock()
	_, existed := m.sessions[s.ID]
	delete(m.sessions, s.ID)
	m.mu.Unlock()
	if existed {
		m.metrics.SessionClosed()
		logger.Info("session closed", "session_id", s.ID)
	}
}

// Broadcast instructs every live session to send a terminal ERROR frame
// with reason and close cleanly, used for server shutdown.
func (m *Manager) Broadcast(reason string) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Send(wire.New(int32(command.ErrorResponse), s.UserID(), map[string]string{
			"Message": reason,
			"Kind":    "Shutdown",
		}, nil))
		s.scheduleClose(500 * time.Millisecond)
	}
}

// Count returns the number of currently tracked sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Info is a read-only snapshot of a live session, for the admin control
// plane's GET /sessions.
type Info struct {
	ID         string
	UserID     string
	ClientAddr string
	State      string
	IdleFor    time.Duration
}

// List returns a snapshot of every currently tracked session.
func (m *Manager) List() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, Info{
			ID:         s.ID,
			UserID:     s.UserID(),
			ClientAddr: s.ClientAddr(),
			State:      s.State().String(),
			IdleFor:    s.IdleSince(),
		})
	}
	return out
}

// Kick force-closes the session with the given ID, as if it had hit a
// protocol error, and reports whether a session with that ID was found.
func (m *Manager) Kick(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.Send(wire.New(int32(command.ErrorResponse), s.UserID(), map[string]string{
		"Message": "session terminated by administrator",
		"Kind":    "Shutdown",
	}, nil))
	s.scheduleClose(200 * time.Millisecond)
	return true
}

// SetIdleTimeout updates the idle duration SweepIdle enforces, letting a
// config hot-reload take effect without restarting the server.
func (m *Manager) SetIdleTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idleTimeout = d
}

// SweepIdle closes every session whose idle time exceeds the configured
// session timeout (default 30m, §4.8).
func (m *Manager) SweepIdle() {
	m.mu.Lock()
	var stale []*Session
	for _, s := range m.sessions {
		if s.IdleSince() > m.idleTimeout {
			stale = append(stale, s)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		logger.Info("closing idle session", "session_id", s.ID, "idle_for", s.IdleSince())
		s.Close()
	}
}

// RunIdleSweeper runs SweepIdle on a fixed interval until ctx is canceled.
func (m *Manager) RunIdleSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepIdle()
		}
	}
}
