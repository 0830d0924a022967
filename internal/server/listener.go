// Package server implements the listener (C9): it accepts TCP connections
// and hands each one to the session manager. Grounded on the teacher's
// portmap.Server Serve/Stop shape, adapted from a TCP+UDP pair to a single
// TCP listener plus graceful shutdown via context cancellation.
package server

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"

	"github.com/cloudvault/vaultd/internal/logger"
	"github.com/cloudvault/vaultd/internal/session"
)

// Server accepts TCP connections on Port and runs each through manager.
type Server struct {
	port    int
	manager *session.Manager

	mu       sync.Mutex
	listener net.Listener
}

func New(port int, manager *session.Manager) *Server {
	return &Server{port: port, manager: manager}
}

// Serve binds the listening socket and accepts connections until ctx is
// canceled or a fatal accept error occurs. It blocks until every accepted
// session has finished running.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(s.port)))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	logger.Info("listener started", "port", s.port)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			logger.Warn("accept error", "error", err)
			continue
		}

		sess, ok := s.manager.Accept(ctx, conn)
		if !ok {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Run()
			s.manager.Release(sess)
		}()
	}
}

// Addr returns the bound listener address; only valid after Serve has
// started listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
