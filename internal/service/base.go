package service

import (
	"context"
	"errors"

	"github.com/mbeoliero/kit/log"
	"github.com/zhusq20/CapybaraChat/internal/entity"
	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/internal/repository"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
	"gorm.io/gorm"
)

// outbox collects the events of one transaction; they are emitted only after commit.
type outbox struct {
	events []notify.Event
}

func (o *outbox) add(events ...notify.Event) {
	o.events = append(o.events, events...)
}

// core carries the store handles and the emitter shared by every service
type core struct {
	repos   *repository.Repositories
	emitter notify.Emitter
}

func newCore(repos *repository.Repositories, emitter notify.Emitter) core {
	if emitter == nil {
		emitter = notify.Nop{}
	}
	return core{repos: repos, emitter: emitter}
}

// db returns a non-transactional handle bound to ctx
func (c *core) db(ctx context.Context) *gorm.DB {
	return c.repos.DB.WithContext(ctx)
}

// transact runs fn in one store transaction and emits its outbox after commit.
// op names the operation in logs.
func (c *core) transact(ctx context.Context, op string, fn func(tx *gorm.DB, out *outbox) error) error {
	out := &outbox{}
	err := c.repos.Transaction(ctx, func(tx *gorm.DB) error {
		return fn(tx, out)
	})
	if err != nil {
		return toBizError(ctx, op, err)
	}
	c.emitter.Emit(ctx, out.events...)
	return nil
}

// toBizError passes business errors through and hides everything else
func toBizError(ctx context.Context, op string, err error) error {
	if e, ok := errcode.As(err); ok {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		log.CtxWarn(ctx, "%s timed out: %v", op, err)
		return errcode.ErrStoreTimeout
	}
	log.CtxError(ctx, "%s failed: %v", op, err)
	return errcode.ErrInternalServer
}

// lockCaller locks the caller's user row for the rest of the transaction.
// Requests of one sender serialize on it; identities without a profile and the sentinel are refused.
func (c *core) lockCaller(ctx context.Context, tx *gorm.DB, userId string) error {
	if userId == constant.SentinelUserId {
		return errcode.ErrNotRegistered
	}
	if _, err := c.repos.User.LockById(ctx, tx, userId); err != nil {
		if repository.IsNotFound(err) {
			return errcode.ErrNotRegistered
		}
		return err
	}
	return nil
}

// assertRegistered is lockCaller without the lock
func (c *core) assertRegistered(ctx context.Context, tx *gorm.DB, userId string) error {
	if userId == constant.SentinelUserId {
		return errcode.ErrNotRegistered
	}
	ok, err := c.repos.User.ExistsWithTx(ctx, tx, userId)
	if err != nil {
		return err
	}
	if !ok {
		return errcode.ErrNotRegistered
	}
	return nil
}

// assertMember is the single membership check shared by messages, cursors and groups.
func (c *core) assertMember(ctx context.Context, tx *gorm.DB, conversationId, userId string) error {
	ok, err := c.repos.Conversation.IsMember(ctx, tx, conversationId, userId)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	var count int64
	if err := tx.Model(&entity.Conversation{}).Where("id = ?", conversationId).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errcode.ErrConvNotFound
	}
	return errcode.ErrNotConvMember
}

// join adds userId to the conversation and seeds its read cursor at the current last message.
// It reports false if the user was already a member.
func (c *core) join(ctx context.Context, tx *gorm.DB, conversationId, userId string) (bool, error) {
	added, err := c.repos.Conversation.AddMember(ctx, tx, conversationId, userId)
	if err != nil || !added {
		return false, err
	}
	last, err := c.repos.Message.LastId(ctx, tx, conversationId)
	if err != nil {
		return false, err
	}
	if err := c.repos.Cursor.Seed(ctx, tx, entity.NewReadCursor(conversationId, userId, last)); err != nil {
		return false, err
	}
	return true, nil
}

// leave removes userId from the conversation together with its read cursor
func (c *core) leave(ctx context.Context, tx *gorm.DB, conversationId, userId string) (bool, error) {
	removed, err := c.repos.Conversation.RemoveMember(ctx, tx, conversationId, userId)
	if err != nil || !removed {
		return false, err
	}
	return true, c.repos.Cursor.Retire(ctx, tx, conversationId, userId)
}

// dedupe drops empty and repeated ids, keeping the first occurrence order
func dedupe(ids []string, exclude string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == exclude {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
