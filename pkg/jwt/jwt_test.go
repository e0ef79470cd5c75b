package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
)

const testSecret = "test-secret"

func externalToken(t *testing.T, id int64, role, secret string) string {
	claims := ExternalClaims{
		UserId: id,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken("alice", testSecret, 1)
	require.NoError(t, err)

	claims, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserId)
	assert.False(t, claims.IssuedAtTime().IsZero())

	_, err = ParseToken(token, "other-secret")
	assert.True(t, errcode.ErrTokenInvalid.Is(err))

	expired, err := GenerateToken("alice", testSecret, -1)
	require.NoError(t, err)
	_, err = ParseToken(expired, testSecret)
	assert.True(t, errcode.ErrTokenExpired.Is(err))
}

func TestActorUserId(t *testing.T) {
	id, err := ActorUserId(42, RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "u___42", id)

	id, err = ActorUserId(7, RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, "ag__7", id)

	_, err = ActorUserId(1, RoleType("admin"))
	assert.Error(t, err)
}

func TestParseExternalToken(t *testing.T) {
	claims, err := ParseExternalToken(externalToken(t, 42, "", "ext"), "ext", "user")
	require.NoError(t, err)
	assert.Equal(t, "u___42", claims.UserId)

	claims, err = ParseExternalToken(externalToken(t, 7, "agent", "ext"), "ext", "user")
	require.NoError(t, err)
	assert.Equal(t, "ag__7", claims.UserId)

	_, err = ParseExternalToken(externalToken(t, 7, "robot", "ext"), "ext", "user")
	assert.True(t, errcode.ErrTokenInvalid.Is(err))
}

func TestDirectory(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewTokenStore(rdb, 1)
	dir := NewDirectory(testSecret, "ext", "user", store)
	ctx := context.Background()

	t.Run("missing token", func(t *testing.T) {
		_, err := dir.Resolve(ctx, "")
		assert.True(t, errcode.ErrTokenMissing.Is(err))
	})

	t.Run("native token", func(t *testing.T) {
		token, err := GenerateToken("alice", testSecret, 1)
		require.NoError(t, err)
		claims, err := dir.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.UserId)
	})

	t.Run("external token", func(t *testing.T) {
		claims, err := dir.Resolve(ctx, externalToken(t, 9, "", "ext"))
		require.NoError(t, err)
		assert.Equal(t, "u___9", claims.UserId)
	})

	t.Run("sentinel subject", func(t *testing.T) {
		token, err := GenerateToken(constant.SentinelUserId, testSecret, 1)
		require.NoError(t, err)
		_, err = dir.Resolve(ctx, token)
		assert.ErrorIs(t, err, errcode.ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := dir.Resolve(ctx, "not-a-token")
		assert.Equal(t, errcode.KindUnauthenticated, errcode.KindOf(err))
	})

	t.Run("revoked token", func(t *testing.T) {
		token, err := GenerateToken("bob", testSecret, 1)
		require.NoError(t, err)
		require.NoError(t, store.Revoke(ctx, "bob", token))

		_, err = dir.Resolve(ctx, token)
		assert.True(t, errcode.ErrTokenInvalid.Is(err))
	})

	t.Run("revoke all", func(t *testing.T) {
		token, err := GenerateToken("carol", testSecret, 1)
		require.NoError(t, err)
		_, err = dir.Resolve(ctx, token)
		require.NoError(t, err)

		require.NoError(t, store.RevokeAll(ctx, "carol", time.Now()))
		_, err = dir.Resolve(ctx, token)
		assert.True(t, errcode.ErrTokenInvalid.Is(err))
	})
}
