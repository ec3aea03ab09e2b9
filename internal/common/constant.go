package common

// AuthorizationHeaderName carries the optional bearer token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// UserIDContextKey is the gin context key holding the authenticated user id.
const UserIDContextKey = "userID"

// Tool names used in history records, metrics labels and archive keys.
const (
	ToolProtect = "protect"
	ToolUnlock  = "unlock"
	ToolCompare = "compare"
)

// IncorrectPasswordMessage is returned verbatim to callers when an unlock
// attempt fails the password check.
const IncorrectPasswordMessage = "Incorrect password. Please enter the correct password to unlock this PDF."
