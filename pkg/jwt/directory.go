package jwt

import (
	"context"

	"github.com/mbeoliero/kit/log"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
)

// Directory resolves bearer tokens to user ids.
// Native tokens are tried first, then tokens of the external issuer when configured.
type Directory struct {
	secret         string
	externalSecret string
	externalRole   string
	store          *TokenStore
}

// NewDirectory creates a Directory; store may be nil to skip revocation checks
func NewDirectory(secret, externalSecret, externalRole string, store *TokenStore) *Directory {
	return &Directory{
		secret:         secret,
		externalSecret: externalSecret,
		externalRole:   externalRole,
		store:          store,
	}
}

// Resolve returns the claims of a valid, unrevoked token
func (d *Directory) Resolve(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, errcode.ErrTokenMissing
	}

	claims, err := ParseToken(token, d.secret)
	if err != nil && d.externalSecret != "" {
		if ext, extErr := ParseExternalToken(token, d.externalSecret, d.externalRole); extErr == nil {
			claims, err = ext, nil
		}
	}
	if err != nil {
		return nil, err
	}
	// the sentinel owns reassigned groups and must never act
	if claims.UserId == constant.SentinelUserId {
		return nil, errcode.ErrTokenInvalid
	}

	if d.store != nil {
		revoked, err := d.store.IsRevoked(ctx, claims.UserId, token, claims.IssuedAtTime())
		if err != nil {
			log.CtxError(ctx, "check token revocation failed: user_id=%s, error=%v", claims.UserId, err)
			return nil, errcode.ErrInternalServer
		}
		if revoked {
			return nil, errcode.ErrTokenInvalid
		}
	}
	return claims, nil
}

// Store returns the revocation store, nil when revocation is disabled
func (d *Directory) Store() *TokenStore {
	return d.store
}
