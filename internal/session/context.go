package session

import "context"

type sessionKey struct{}

// WithSession attaches s to ctx so a handler can reach the session's
// transfer table without the registry interface needing to know about
// *Session directly.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session attached by WithSession, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}
