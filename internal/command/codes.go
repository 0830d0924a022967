// Package command defines the wire command codes, the tagged error kinds of
// §7, and the handler registry that the session dispatches packets through.
package command

// Code is a wire command code. Request codes below 300 have a matching
// response code, conventionally request+1 unless noted otherwise.
type Code int32

const (
	LoginRequest   Code = 100
	LoginResponse  Code = 101
	LogoutRequest  Code = 102
	LogoutResponse Code = 103

	CreateAccountRequest  Code = 110
	CreateAccountResponse Code = 111

	FileListRequest  Code = 200
	FileListResponse Code = 201

	FileUploadInitRequest      Code = 210
	FileUploadInitResponse     Code = 211
	FileUploadChunkRequest     Code = 212
	FileUploadChunkResponse    Code = 213
	FileUploadCompleteRequest  Code = 214
	FileUploadCompleteResponse Code = 215

	FileDownloadInitRequest      Code = 220
	FileDownloadInitResponse     Code = 221
	FileDownloadChunkRequest     Code = 222
	FileDownloadChunkResponse    Code = 223
	FileDownloadCompleteRequest  Code = 224
	FileDownloadCompleteResponse Code = 225

	FileDeleteRequest  Code = 230
	FileDeleteResponse Code = 231

	DirectoryCreateRequest  Code = 240
	DirectoryCreateResponse Code = 241
	DirectoryListRequest    Code = 242
	DirectoryListResponse   Code = 243
	DirectoryRenameRequest  Code = 244
	DirectoryRenameResponse Code = 245
	DirectoryDeleteRequest  Code = 246
	DirectoryDeleteResponse Code = 247

	FileMoveRequest  Code = 248
	FileMoveResponse Code = 249

	DirectoryContentsRequest  Code = 250
	DirectoryContentsResponse Code = 251

	Success       Code = 300
	ErrorResponse Code = 301
	Unauthorized  Code = 302
)

// RootDirectoryToken is the literal wire value of a DirectoryId metadata
// field meaning "the user's implicit root directory".
const RootDirectoryToken = "root"

// name holds the human-readable names used in logs; not exhaustive of every
// code, only those worth naming.
var name = map[Code]string{
	LoginRequest: "LOGIN_REQUEST", LoginResponse: "LOGIN_RESPONSE",
	LogoutRequest: "LOGOUT_REQUEST", LogoutResponse: "LOGOUT_RESPONSE",
	CreateAccountRequest: "CREATE_ACCOUNT_REQUEST", CreateAccountResponse: "CREATE_ACCOUNT_RESPONSE",
	FileListRequest: "FILE_LIST_REQUEST", FileListResponse: "FILE_LIST_RESPONSE",
	FileUploadInitRequest: "FILE_UPLOAD_INIT_REQUEST", FileUploadInitResponse: "FILE_UPLOAD_INIT_RESPONSE",
	FileUploadChunkRequest: "FILE_UPLOAD_CHUNK_REQUEST", FileUploadChunkResponse: "FILE_UPLOAD_CHUNK_RESPONSE",
	FileUploadCompleteRequest: "FILE_UPLOAD_COMPLETE_REQUEST", FileUploadCompleteResponse: "FILE_UPLOAD_COMPLETE_RESPONSE",
	FileDownloadInitRequest: "FILE_DOWNLOAD_INIT_REQUEST", FileDownloadInitResponse: "FILE_DOWNLOAD_INIT_RESPONSE",
	FileDownloadChunkRequest: "FILE_DOWNLOAD_CHUNK_REQUEST", FileDownloadChunkResponse: "FILE_DOWNLOAD_CHUNK_RESPONSE",
	FileDownloadCompleteRequest: "FILE_DOWNLOAD_COMPLETE_REQUEST", FileDownloadCompleteResponse: "FILE_DOWNLOAD_COMPLETE_RESPONSE",
	FileDeleteRequest: "FILE_DELETE_REQUEST", FileDeleteResponse: "FILE_DELETE_RESPONSE",
	DirectoryCreateRequest: "DIRECTORY_CREATE_REQUEST", DirectoryCreateResponse: "DIRECTORY_CREATE_RESPONSE",
	DirectoryListRequest: "DIRECTORY_LIST_REQUEST", DirectoryListResponse: "DIRECTORY_LIST_RESPONSE",
	DirectoryRenameRequest: "DIRECTORY_RENAME_REQUEST", DirectoryRenameResponse: "DIRECTORY_RENAME_RESPONSE",
	DirectoryDeleteRequest: "DIRECTORY_DELETE_REQUEST", DirectoryDeleteResponse: "DIRECTORY_DELETE_RESPONSE",
	FileMoveRequest: "FILE_MOVE_REQUEST", FileMoveResponse: "FILE_MOVE_RESPONSE",
	DirectoryContentsRequest: "DIRECTORY_CONTENTS_REQUEST", DirectoryContentsResponse: "DIRECTORY_CONTENTS_RESPONSE",
	Success: "SUCCESS", ErrorResponse: "ERROR", Unauthorized: "UNAUTHORIZED",
}

// String returns the command's wire name, or "UNKNOWN" if the code has no name.
func (c Code) String() string {
	if n, ok := name[c]; ok {
		return n
	}
	return "UNKNOWN"
}

// requiresNoAuth lists request codes handled before the session is
// authenticated.
var requiresNoAuth = map[Code]bool{
	LoginRequest:         true,
	CreateAccountRequest: true,
}

// RequiresAuth reports whether code must be rejected for an unauthenticated
// session.
func RequiresAuth(code Code) bool {
	return !requiresNoAuth[code]
}
