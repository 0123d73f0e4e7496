package response

import "errors"

type Response struct {
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Error Codes
type ErrCode string

var (
	FAILED_REQUEST ErrCode = "REQUEST_FAILED"
	BAD_REQUEST    ErrCode = "BAD_REQUEST"
	NOT_FOUND      ErrCode = "NOT_FOUND"
	LOCKED         ErrCode = "LOCKED"
	CONFLICT       ErrCode = "SCHEDULING_CONFLICT"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("resource not found")
	ErrLocked     = errors.New("resource is locked")
	ErrConflict   = errors.New("conflict")
	ErrOverlap    = errors.New("session overlaps an existing session")
)

func Error(code ErrCode, msg string) Response {
	return Response{
		Error: msg,
		Code:  string(code),
	}
}
