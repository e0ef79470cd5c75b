// Package validate checks typed request structs once, before any store access.
package validate

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
)

var (
	v         *validator.Validate
	userIdPat = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,32}$`)
)

func init() {
	v = validator.New()
	// user ids double as pub/sub topic tokens, so dots and wildcards are rejected
	_ = v.RegisterValidation("userid", func(fl validator.FieldLevel) bool {
		return userIdPat.MatchString(fl.Field().String())
	})
}

// Struct validates req and converts the first failure into ErrInvalidParam.
func Struct(req any) error {
	if err := v.Struct(req); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			first := vErrs[0]
			return errcode.ErrInvalidParam.WithMsg("bad param [%s]: rule %s", first.Field(), first.Tag())
		}
		return errcode.ErrInvalidParam.Wrap(err)
	}
	return nil
}

// UserId reports whether id is an acceptable user identifier.
func UserId(id string) bool {
	return userIdPat.MatchString(id)
}
