package micropub

import "net/http"

// Code is one of the protocol error codes defined by the Micropub spec.
// The set is closed; each code carries a fixed HTTP status and description.
type Code string

const (
	CodeInvalidRequest    Code = "invalid_request"
	CodeUnauthorized      Code = "unauthorized"
	CodeInsufficientScope Code = "insufficient_scope"
	CodeForbidden         Code = "forbidden"
)

var codeStatus = map[Code]int{
	CodeInvalidRequest:    http.StatusBadRequest,
	CodeUnauthorized:      http.StatusUnauthorized,
	CodeInsufficientScope: http.StatusForbidden,
	CodeForbidden:         http.StatusForbidden,
}

var codeDescription = map[Code]string{
	CodeInvalidRequest:    "The request is missing a required parameter, or there was a problem with a provided value",
	CodeUnauthorized:      "The request did not provide an access token",
	CodeInsufficientScope: "The provided access token does not grant sufficient scope for this request",
	CodeForbidden:         "The authenticated user is not permitted to perform this request",
}

// Valid reports whether the code belongs to the closed protocol set.
func (c Code) Valid() bool {
	_, ok := codeStatus[c]
	return ok
}

// Status returns the HTTP status mapped to the code. Unknown codes map to 400.
func (c Code) Status() int {
	if status, ok := codeStatus[c]; ok {
		return status
	}

	return http.StatusBadRequest
}

// Description returns the fixed human-readable description for the code.
func (c Code) Description() string {
	return codeDescription[c]
}
