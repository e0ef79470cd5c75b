package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhusq20/CapybaraChat/pkg/errcode"
)

type sample struct {
	UserId string   `validate:"required,userid"`
	Tags   []string `validate:"max=2,dive,max=3"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(&sample{UserId: "alice_01", Tags: []string{"a"}}))

	err := Struct(&sample{UserId: "alice.*"})
	assert.ErrorIs(t, err, errcode.ErrInvalidParam)
	assert.Contains(t, err.Error(), "UserId")

	assert.ErrorIs(t, Struct(&sample{UserId: "bob", Tags: []string{"a", "b", "c"}}), errcode.ErrInvalidParam)
	assert.ErrorIs(t, Struct(&sample{UserId: "bob", Tags: []string{"long"}}), errcode.ErrInvalidParam)
}

func TestUserId(t *testing.T) {
	for _, id := range []string{"alice", "A-1", "under_score", "x"} {
		assert.True(t, UserId(id), id)
	}
	for _, id := range []string{"", "a.b", "a*", "a>", "has space", "abcdefghijklmnopqrstuvwxyz0123456"} {
		assert.False(t, UserId(id), id)
	}
}
