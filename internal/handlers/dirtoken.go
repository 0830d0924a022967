package handlers

import "github.com/cloudvault/vaultd/internal/command"

// wireDirID converts the store's internal "" (root) directory ID to the
// wire's literal "root" token, and passes any other ID through unchanged.
func wireDirID(id string) string {
	if id == "" {
		return command.RootDirectoryToken
	}
	return id
}

// storeDirID is wireDirID's inverse: the literal "root" token (or an
// absent field) maps back to "".
func storeDirID(token string) string {
	if token == command.RootDirectoryToken || token == "" {
		return ""
	}
	return token
}
