package handlers

import "time"

// loginPayload is the JSON body of LOGIN_REQUEST and CREATE_ACCOUNT_REQUEST
// (the latter also carries Email); field names are the ASCII names the
// wire convention in §6 specifies verbatim.
type loginPayload struct {
	Username string
	Password string
	Email    string
}

// userView is the JSON-safe projection of identity.User returned to
// clients; it never includes the password verifier.
type userView struct {
	ID        string    `json:"Id"`
	Username  string    `json:"Username"`
	Email     string    `json:"Email,omitempty"`
	Role      string    `json:"Role"`
	CreatedAt time.Time `json:"CreatedAt"`
	LastLogin time.Time `json:"LastLogin,omitempty"`
}

// fileView is the JSON-safe projection of metadata.FileMetadata.
type fileView struct {
	ID          string    `json:"Id"`
	Name        string    `json:"Name"`
	ContentType string    `json:"ContentType"`
	Size        int64     `json:"Size"`
	DirectoryID string    `json:"DirectoryId"`
	CreatedAt   time.Time `json:"CreatedAt"`
	UpdatedAt   time.Time `json:"UpdatedAt"`
}

// directoryView is the JSON-safe projection of metadata.Directory.
type directoryView struct {
	ID        string    `json:"Id"`
	Name      string    `json:"Name"`
	ParentID  string    `json:"ParentId"`
	CreatedAt time.Time `json:"CreatedAt"`
	UpdatedAt time.Time `json:"UpdatedAt"`
}

// contentsPayload is the body of a DIRECTORY_CONTENTS / FILE_LIST /
// DIRECTORY_LIST response (§6).
type contentsPayload struct {
	Files       []fileView      `json:"files,omitempty"`
	Directories []directoryView `json:"directories,omitempty"`
}
