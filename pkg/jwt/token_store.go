package jwt

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
)

// Token status constants
const (
	TokenStatusNormal = 1 // Token is valid
	TokenStatusLogout = 4 // Token was logged out
)

// revokeAllField holds the unix second before which every token of the user is revoked
const revokeAllField = "*"

// TokenStore keeps per-user token revocations in Redis
type TokenStore struct {
	rdb          *redis.Client
	accessExpire time.Duration
}

// NewTokenStore creates a new TokenStore
func NewTokenStore(rdb *redis.Client, expireHours int) *TokenStore {
	return &TokenStore{
		rdb:          rdb,
		accessExpire: time.Duration(expireHours) * time.Hour,
	}
}

// tokenKey generates Redis key for user's tokens
// Format: {prefix}token:{userId}
func (s *TokenStore) tokenKey(userId string) string {
	return fmt.Sprintf(constant.RedisKeyToken(), userId)
}

// Revoke marks a single token as logged out
func (s *TokenStore) Revoke(ctx context.Context, userId, token string) error {
	key := s.tokenKey(userId)
	if err := s.rdb.HSet(ctx, key, token, TokenStatusLogout).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if err := s.rdb.Expire(ctx, key, s.accessExpire).Err(); err != nil {
		return fmt.Errorf("failed to set token expiration: %w", err)
	}
	return nil
}

// RevokeAll revokes every token of the user issued at or before at
func (s *TokenStore) RevokeAll(ctx context.Context, userId string, at time.Time) error {
	key := s.tokenKey(userId)
	if err := s.rdb.HSet(ctx, key, revokeAllField, at.Unix()).Err(); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	if err := s.rdb.Expire(ctx, key, s.accessExpire).Err(); err != nil {
		return fmt.Errorf("failed to set token expiration: %w", err)
	}
	return nil
}

// IsRevoked checks whether token, issued at issuedAt, has been revoked
func (s *TokenStore) IsRevoked(ctx context.Context, userId, token string, issuedAt time.Time) (bool, error) {
	vals, err := s.rdb.HMGet(ctx, s.tokenKey(userId), token, revokeAllField).Result()
	if err != nil {
		return false, fmt.Errorf("failed to get token status: %w", err)
	}

	if status, ok := vals[0].(string); ok && status == strconv.Itoa(TokenStatusLogout) {
		return true, nil
	}
	if before, ok := vals[1].(string); ok {
		sec, err := strconv.ParseInt(before, 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid revocation value: %w", err)
		}
		if issuedAt.Unix() <= sec {
			return true, nil
		}
	}
	return false, nil
}
