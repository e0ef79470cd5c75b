package client

import (
	"net/http"

	"github.com/zhusq20/CapybaraChat/pkg/errcode"
)

// apiError rebuilds the server's business error so callers can match it with errors.Is.
// Known codes keep their declared kind; unknown ones fall back to the status class.
func apiError(status, code int, msg string) *errcode.Error {
	kind := kindOf(status)
	if known, ok := errcode.Lookup(code); ok {
		kind = known.Kind
	}
	return &errcode.Error{Code: code, Msg: msg, Kind: kind}
}

func kindOf(status int) errcode.Kind {
	switch status {
	case http.StatusBadRequest:
		return errcode.KindValidation
	case http.StatusUnauthorized:
		return errcode.KindUnauthenticated
	case http.StatusForbidden:
		return errcode.KindForbidden
	case http.StatusNotFound:
		return errcode.KindNotFound
	default:
		return errcode.KindInternal
	}
}
