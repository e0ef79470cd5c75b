package gateway

import "errors"

// Errors surfaced to websocket peers through WSResponse.ErrMsg
var (
	ErrConnClosed       = errors.New("gateway: connection closed")
	ErrWriteChannelFull = errors.New("gateway: outbound queue full")
	ErrInvalidProtocol  = errors.New("gateway: unknown request")
	ErrTooManyUsers     = errors.New("gateway: too many user ids in presence query")
)
