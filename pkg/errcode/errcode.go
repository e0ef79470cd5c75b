package errcode

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a business error independently of its numeric code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindMustTransferFirst
)

// Error represents a business error
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Kind Kind   `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("errcode: %d, msg: %s", e.Code, e.Msg)
}

// Is matches errors by code so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// HTTPStatus maps the error kind to a status class for the boundary layer.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindConflict, KindMustTransferFirst:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

var registry = map[int]*Error{}

// New creates and registers an error. It is meant for package-level
// declarations and panics when a code is declared twice.
func New(code int, kind Kind, msg string) *Error {
	if _, dup := registry[code]; dup {
		panic(fmt.Sprintf("errcode: duplicate code %d", code))
	}
	e := &Error{Code: code, Msg: msg, Kind: kind}
	registry[code] = e
	return e
}

// Lookup returns the declared error for code
func Lookup(code int) (*Error, bool) {
	e, ok := registry[code]
	return e, ok
}

// Wrap wraps an error with additional context
func (e *Error) Wrap(err error) *Error {
	if err == nil {
		return e
	}
	return &Error{
		Code: e.Code,
		Msg:  fmt.Sprintf("%s: %v", e.Msg, err),
		Kind: e.Kind,
	}
}

// WithMsg returns a copy carrying a more specific message.
func (e *Error) WithMsg(format string, args ...any) *Error {
	return &Error{
		Code: e.Code,
		Msg:  fmt.Sprintf(format, args...),
		Kind: e.Kind,
	}
}

// KindOf reports the kind of err, KindInternal for non-business errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the business error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

var (
	ErrSuccess = New(0, KindInternal, "success")

	// Common errors (1xxx)
	ErrInvalidParam   = New(1001, KindValidation, "invalid parameter")
	ErrInternalServer = New(1002, KindInternal, "internal server error")
	ErrUnauthorized   = New(1003, KindUnauthenticated, "unauthorized")
	ErrForbidden      = New(1004, KindForbidden, "forbidden")
	ErrNotFound       = New(1005, KindNotFound, "not found")
	ErrStoreTimeout   = New(1006, KindInternal, "store operation timed out")

	// Identity errors (2xxx)
	ErrTokenInvalid  = New(2001, KindUnauthenticated, "token invalid")
	ErrTokenExpired  = New(2002, KindUnauthenticated, "token expired")
	ErrTokenMissing  = New(2003, KindUnauthenticated, "token missing")
	ErrTokenMismatch = New(2004, KindUnauthenticated, "token user mismatch")
	ErrUserNotFound  = New(2006, KindNotFound, "user not found")
	ErrUserExists    = New(2007, KindConflict, "user already exists")
	ErrNotRegistered = New(2008, KindForbidden, "register a profile first")

	// Friend errors (3xxx)
	ErrAlreadyFriends = New(3001, KindConflict, "already friends")
	ErrNotFriends     = New(3002, KindConflict, "user is not your friend")
	ErrSelfFriend     = New(3003, KindValidation, "cannot befriend yourself")

	// Request errors (4xxx)
	ErrRequestNotFound   = New(4001, KindNotFound, "request not found")
	ErrAlreadyProcessed  = New(4002, KindConflict, "request has been processed")
	ErrNotRequestHandler = New(4003, KindForbidden, "not allowed to process this request")

	// Conversation and message errors (5xxx)
	ErrConvNotFound    = New(5001, KindNotFound, "conversation not found")
	ErrNotConvMember   = New(5002, KindForbidden, "not a conversation member")
	ErrMessageNotFound = New(5003, KindNotFound, "message not found")
	ErrInvalidReply    = New(5004, KindValidation, "invalid reply target")

	// Group errors (6xxx)
	ErrGroupNotFound       = New(6001, KindNotFound, "group not found")
	ErrNotGroupMember      = New(6002, KindForbidden, "not a group member")
	ErrAlreadyGroupMember  = New(6003, KindConflict, "already a group member")
	ErrNotGroupMaster      = New(6004, KindForbidden, "not group master")
	ErrNotGroupAdmin       = New(6005, KindForbidden, "not group master or manager")
	ErrCannotRemoveMaster  = New(6006, KindForbidden, "cannot remove group master")
	ErrCannotRemoveManager = New(6007, KindForbidden, "only the master can remove a manager")
	ErrMustTransferFirst   = New(6008, KindMustTransferFirst, "master must transfer the group before leaving")
	ErrInvalidMember       = New(6009, KindValidation, "invalid group member")
)
