package apiclient

import "time"

// Session mirrors session.Info as returned by GET /api/v1/sessions.
type Session struct {
	ID         string        `json:"ID"`
	UserID     string        `json:"UserID"`
	ClientAddr string        `json:"ClientAddr"`
	State      string        `json:"State"`
	IdleFor    time.Duration `json:"IdleFor"`
}

type listSessionsResponse struct {
	Sessions []Session `json:"sessions"`
	Count    int       `json:"count"`
}

// ListSessions returns every live session on the server.
func (c *Client) ListSessions() ([]Session, error) {
	var resp listSessionsResponse
	if err := c.get("/api/v1/sessions/", &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// KickSession force-closes the session with the given ID.
func (c *Client) KickSession(id string) error {
	return c.post("/api/v1/sessions/"+id+"/kick", nil, nil)
}
