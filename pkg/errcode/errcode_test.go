package errcode

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	custom := ErrInvalidMember.WithMsg("%s is not a member", "bob")
	assert.ErrorIs(t, custom, ErrInvalidMember)
	assert.NotErrorIs(t, custom, ErrInvalidParam)
	assert.Equal(t, "bob is not a member", custom.Msg)

	wrapped := fmt.Errorf("outer: %w", ErrNotFriends)
	assert.ErrorIs(t, wrapped, ErrNotFriends)
	e, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrNotFriends.Code, e.Code)

	_, ok = As(fmt.Errorf("plain"))
	assert.False(t, ok)
	assert.Equal(t, ErrInternalServer, ErrInternalServer.Wrap(nil))
}

func TestKinds(t *testing.T) {
	tests := []struct {
		err    *Error
		kind   Kind
		status int
	}{
		{ErrInvalidParam, KindValidation, http.StatusBadRequest},
		{ErrUnauthorized, KindUnauthenticated, http.StatusUnauthorized},
		{ErrNotConvMember, KindForbidden, http.StatusForbidden},
		{ErrConvNotFound, KindNotFound, http.StatusNotFound},
		{ErrAlreadyProcessed, KindConflict, http.StatusBadRequest},
		{ErrMustTransferFirst, KindMustTransferFirst, http.StatusBadRequest},
		{ErrStoreTimeout, KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Msg, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err.WithMsg("x")))
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
		})
	}
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("boom")))
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(ErrNotFriends.Code)
	assert.True(t, ok)
	assert.Same(t, ErrNotFriends, e)
	assert.Equal(t, KindConflict, e.Kind)

	_, ok = Lookup(9999)
	assert.False(t, ok)

	assert.Panics(t, func() { New(ErrNotFriends.Code, KindInternal, "again") })
}
