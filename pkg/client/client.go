// Package client is a reference transport for the vaultd wire protocol
// (§5, §6). It mirrors the server session's framing exactly: the same
// length-prefixed codec over the same frame format. The protocol is
// strictly synchronous per connection (one request in flight, no pipelined
// responses), so the client serializes whole request/response round trips
// rather than splitting send and receive locks the way the server session
// does for its independent reader/writer goroutines. It is deliberately
// thin — callers drive their own upload/download chunk sequencing, the
// same as the server expects of any real client.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cloudvault/vaultd/internal/command"
	"github.com/cloudvault/vaultd/internal/wire"
)

// Client is a single connection to a vaultd server. It is safe for
// concurrent use: Call holds callMu for the full write-then-read round
// trip, so concurrent callers queue up one at a time rather than racing to
// read back each other's responses.
type Client struct {
	conn   net.Conn
	callMu sync.Mutex

	userID string
}

// Dial connects to addr and returns a Client ready to send LOGIN_REQUEST
// or CREATE_ACCOUNT_REQUEST.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// UserID returns the authenticated user ID, or "" before login.
func (c *Client) UserID() string {
	return c.userID
}

// Call sends one request packet and waits for its response. The server
// never pipelines responses or echoes the request's PacketID (§6 only
// requires PacketID on the wire, not response correlation), so Call holds
// callMu for the entire write-then-read round trip rather than racing
// concurrent callers to read back whichever response the socket yields
// next.
func (c *Client) Call(code command.Code, meta map[string]string, payload []byte) (wire.Packet, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	req := wire.New(int32(code), c.userID, meta, payload)
	if err := wire.WriteFrame(c.conn, req); err != nil {
		return wire.Packet{}, fmt.Errorf("client: write request: %w", err)
	}

	resp, err := wire.ReadFrame(c.conn)
	if err != nil {
		return wire.Packet{}, fmt.Errorf("client: read response: %w", err)
	}
	return resp, nil
}

// CallWithDeadline is Call with a per-call I/O deadline, useful for tests
// that want to fail fast on a hung server rather than block indefinitely.
func (c *Client) CallWithDeadline(code command.Code, meta map[string]string, payload []byte, timeout time.Duration) (wire.Packet, error) {
	_ = c.conn.SetDeadline(time.Now().Add(timeout))
	defer func() { _ = c.conn.SetDeadline(time.Time{}) }()
	return c.Call(code, meta, payload)
}

func asError(pkt wire.Packet) error {
	if command.Code(pkt.Command) != command.ErrorResponse && command.Code(pkt.Command) != command.Unauthorized {
		return nil
	}
	kind := pkt.Metadata["Kind"]
	msg := pkt.Metadata["Message"]
	if hint := pkt.Metadata["Hint"]; hint != "" {
		return fmt.Errorf("vaultd: %s: %s (%s)", kind, msg, hint)
	}
	return fmt.Errorf("vaultd: %s: %s", kind, msg)
}

// Login authenticates and records the user ID for subsequent requests.
func (c *Client) Login(username, password string) error {
	body, _ := json.Marshal(struct {
		Username string
		Password string
	}{username, password})

	resp, err := c.Call(command.LoginRequest, nil, body)
	if err != nil {
		return err
	}
	if err := asError(resp); err != nil {
		return err
	}
	c.userID = resp.Metadata["UserId"]
	return nil
}

// CreateAccount registers a new user and, like Login, authenticates the
// connection as that user.
func (c *Client) CreateAccount(username, email, password string) error {
	body, _ := json.Marshal(struct {
		Username string
		Email    string
		Password string
	}{username, email, password})

	resp, err := c.Call(command.CreateAccountRequest, nil, body)
	if err != nil {
		return err
	}
	if err := asError(resp); err != nil {
		return err
	}
	c.userID = resp.Metadata["UserId"]
	return nil
}

// Logout sends LOGOUT_REQUEST. The server closes the connection shortly
// after responding (§4.1), so callers should not reuse the Client past
// this call.
func (c *Client) Logout() error {
	resp, err := c.Call(command.LogoutRequest, nil, nil)
	if err != nil {
		return err
	}
	return asError(resp)
}
