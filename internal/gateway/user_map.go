package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"

	"github.com/zhusq20/CapybaraChat/pkg/constant"
)

// UserMap tracks live connections per user and mirrors presence into redis
// so other instances can answer online queries
type UserMap struct {
	mu    sync.RWMutex
	users map[string]*userConns
	rdb   *redis.Client
}

type userConns struct {
	clients []*Client
	since   time.Time
}

// NewUserMap creates a new UserMap; rdb may be nil for local-only presence
func NewUserMap(rdb *redis.Client) *UserMap {
	return &UserMap{
		users: make(map[string]*userConns),
		rdb:   rdb,
	}
}

// Register adds a client and reports whether it is the user's first connection
func (m *UserMap) Register(ctx context.Context, client *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	uc, exists := m.users[client.UserId]
	if !exists {
		uc = &userConns{clients: make([]*Client, 0, 4), since: time.Now()}
		m.users[client.UserId] = uc
	}
	uc.clients = append(uc.clients, client)

	m.setOnline(ctx, client.UserId)
	return !exists
}

// Unregister removes a client and reports whether the user went offline
func (m *UserMap) Unregister(ctx context.Context, client *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	uc, exists := m.users[client.UserId]
	if !exists {
		return false
	}

	kept := uc.clients[:0]
	for _, c := range uc.clients {
		if c.ConnId != client.ConnId {
			kept = append(kept, c)
		}
	}
	uc.clients = kept

	if len(uc.clients) == 0 {
		delete(m.users, client.UserId)
		m.setOffline(ctx, client.UserId)
		return true
	}
	return false
}

// GetAll returns a copy of the user's clients
func (m *UserMap) GetAll(userId string) ([]*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uc, exists := m.users[userId]
	if !exists {
		return nil, false
	}

	clients := make([]*Client, len(uc.clients))
	copy(clients, uc.clients)
	return clients, true
}

// HasConnection checks if user has a connection on this instance
func (m *UserMap) HasConnection(userId string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uc, exists := m.users[userId]
	return exists && len(uc.clients) > 0
}

// IsOnline checks local connections first, then the shared presence key
func (m *UserMap) IsOnline(ctx context.Context, userId string) bool {
	if m.HasConnection(userId) {
		return true
	}
	if m.rdb == nil {
		return false
	}

	n, err := m.rdb.Exists(ctx, onlineKey(userId)).Result()
	if err != nil {
		log.CtxWarn(ctx, "presence lookup failed: user_id=%s, error=%v", userId, err)
		return false
	}
	return n > 0
}

// RefreshAll extends the presence TTL of every locally connected user
func (m *UserMap) RefreshAll(ctx context.Context) {
	if m.rdb == nil {
		return
	}

	m.mu.RLock()
	userIds := make([]string, 0, len(m.users))
	for uid := range m.users {
		userIds = append(userIds, uid)
	}
	m.mu.RUnlock()

	if len(userIds) == 0 {
		return
	}
	pipe := m.rdb.Pipeline()
	for _, uid := range userIds {
		pipe.Set(ctx, onlineKey(uid), "1", OnlineTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.CtxWarn(ctx, "presence refresh failed: users=%d, error=%v", len(userIds), err)
	}
}

// Kick closes every connection of a user on this instance
func (m *UserMap) Kick(userId string) int {
	clients, ok := m.GetAll(userId)
	if !ok {
		return 0
	}
	for _, c := range clients {
		_ = c.KickOnline()
	}
	return len(clients)
}

// OnlineUserCount returns the number of locally connected users
func (m *UserMap) OnlineUserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

func (m *UserMap) setOnline(ctx context.Context, userId string) {
	if m.rdb == nil {
		return
	}
	if err := m.rdb.Set(ctx, onlineKey(userId), "1", OnlineTTL).Err(); err != nil {
		log.CtxWarn(ctx, "set online failed: user_id=%s, error=%v", userId, err)
	}
}

func (m *UserMap) setOffline(ctx context.Context, userId string) {
	if m.rdb == nil {
		return
	}
	if err := m.rdb.Del(ctx, onlineKey(userId)).Err(); err != nil {
		log.CtxWarn(ctx, "set offline failed: user_id=%s, error=%v", userId, err)
	}
}

func onlineKey(userId string) string {
	return fmt.Sprintf(constant.RedisKeyOnline(), userId)
}
