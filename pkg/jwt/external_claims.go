package jwt

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
)

// RoleType defines the actor role of an external identity.
type RoleType string

const (
	RoleUser  RoleType = "user"
	RoleAgent RoleType = "agent"
)

// ExternalClaims represents claims from an external system.
// The external token carries an int user_id which is mapped to a chat user id.
type ExternalClaims struct {
	UserId int64  `json:"user_id"`
	Role   string `json:"role,omitempty"` // "user", "agent", etc. Falls back to configured default.
	jwt.RegisteredClaims
}

// ActorUserId maps an external (id, role) pair to a chat user id.
//
//	ActorUserId(42, RoleUser)  => "u___42"
//	ActorUserId(7, RoleAgent)  => "ag__7"
func ActorUserId(id int64, role RoleType) (string, error) {
	switch role {
	case RoleUser:
		return fmt.Sprintf("u___%d", id), nil
	case RoleAgent:
		return fmt.Sprintf("ag__%d", id), nil
	default:
		return "", fmt.Errorf("unknown actor role: %s", role)
	}
}

// ParseExternalToken parses an external system's JWT token and converts it
// to chat Claims using the actor id mapping.
func ParseExternalToken(tokenString, secret, defaultRole string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ExternalClaims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errcode.ErrTokenInvalid.Wrap(err)
	}

	extClaims, ok := token.Claims.(*ExternalClaims)
	if !ok || !token.Valid || extClaims.UserId <= 0 {
		return nil, errcode.ErrTokenInvalid
	}

	// Determine role: prefer token's own role, fall back to config default
	role := RoleType(extClaims.Role)
	if extClaims.Role == "" {
		role = RoleType(defaultRole)
	}

	userId, err := ActorUserId(extClaims.UserId, role)
	if err != nil {
		return nil, errcode.ErrTokenInvalid.Wrap(err)
	}

	return &Claims{
		UserId:           userId,
		RegisteredClaims: extClaims.RegisteredClaims,
	}, nil
}
