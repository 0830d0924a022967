package apiclient

import "fmt"

// APIError represents an error response from the control plane. Its
// Message field is decoded from the server's {"error": "..."} body.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("controlapi: %d: %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether the error was a 401/403 response.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsNotFound reports whether the error was a 404 response.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}
