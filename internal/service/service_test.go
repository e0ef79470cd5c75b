package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zhusq20/CapybaraChat/internal/entity"
	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/internal/repository"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
)

// recorder is an Emitter that keeps everything it is given
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Emit(_ context.Context, events ...notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recorder) ofType(typ string) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) recipients(typ string) []string {
	var out []string
	for _, e := range r.ofType(typ) {
		out = append(out, e.Recipient)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	ctx     context.Context
	repos   *repository.Repositories
	rec     *recorder
	user    *UserService
	friend  *FriendService
	request *RequestService
	conv    *ConversationService
	msg     *MessageService
	cursor  *CursorService
	group   *GroupService
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// one connection keeps the in-memory database alive and serializes transactions
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.AutoMigrate(db))
	return db
}

func newFixture(t *testing.T, users ...string) *fixture {
	t.Helper()
	repos := repository.NewRepositoriesWithDB(openTestDB(t), nil, 5*time.Second)
	rec := &recorder{}
	f := &fixture{
		ctx:     context.Background(),
		repos:   repos,
		rec:     rec,
		user:    NewUserService(repos, rec),
		friend:  NewFriendService(repos, rec),
		request: NewRequestService(repos, rec),
		conv:    NewConversationService(repos, rec),
		msg:     NewMessageService(repos, rec),
		cursor:  NewCursorService(repos, rec),
		group:   NewGroupService(repos, rec),
	}
	for _, uid := range users {
		_, err := f.user.Register(f.ctx, uid, &RegisterRequest{Nickname: "nick-" + uid})
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) befriend(t *testing.T, a, b string) {
	t.Helper()
	info, err := f.request.SendFriendRequest(f.ctx, a, &FriendRequestRequest{ReceiverId: b})
	require.NoError(t, err)
	_, err = f.request.ProcessRequest(f.ctx, b, &ProcessRequestRequest{RequestId: info.Id, Decision: constant.DecisionAccept})
	require.NoError(t, err)
}

func (f *fixture) private(t *testing.T, a, b string) string {
	t.Helper()
	info, err := f.conv.GetOrCreatePrivate(f.ctx, a, b)
	require.NoError(t, err)
	return info.Id
}

func (f *fixture) send(t *testing.T, sender, convId, content string) int64 {
	t.Helper()
	msg, err := f.msg.Send(f.ctx, sender, &SendMessageRequest{ConversationId: convId, Content: content})
	require.NoError(t, err)
	return msg.Id
}

// newGroup creates a group mastered by master whose members are befriended first
func (f *fixture) newGroup(t *testing.T, master string, members ...string) *entity.GroupInfo {
	t.Helper()
	for _, m := range members {
		f.befriend(t, master, m)
	}
	g, err := f.group.CreateGroup(f.ctx, master, &CreateGroupRequest{Name: "team", Members: members})
	require.NoError(t, err)
	return g
}

func (f *fixture) cursorOf(t *testing.T, convId, userId string) *entity.ReadCursor {
	t.Helper()
	c, err := f.repos.Cursor.Get(f.ctx, convId, userId)
	require.NoError(t, err)
	return c
}

func (f *fixture) hasCursor(convId, userId string) bool {
	_, err := f.repos.Cursor.Get(f.ctx, convId, userId)
	return err == nil
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.repos.DB.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

// assertCursorsOrdered checks fro <= to for every cursor in the store
func (f *fixture) assertCursorsOrdered(t *testing.T) {
	t.Helper()
	var cursors []*entity.ReadCursor
	require.NoError(t, f.repos.DB.Find(&cursors).Error)
	for _, c := range cursors {
		require.LessOrEqualf(t, c.Fro, c.To, "cursor %s/%s", c.ConversationId, c.UserId)
	}
}
