package service

import (
	"context"

	"github.com/mbeoliero/kit/log"
	"github.com/zhusq20/CapybaraChat/internal/entity"
	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/internal/repository"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
	"gorm.io/gorm"
)

// CursorService tracks per-member read progress
type CursorService struct {
	core
	cursorRepo *repository.CursorRepo
}

// NewCursorService creates a new CursorService
func NewCursorService(repos *repository.Repositories, emitter notify.Emitter) *CursorService {
	return &CursorService{
		core:       newCore(repos, emitter),
		cursorRepo: repos.Cursor,
	}
}

// ReadState is a member's cursor as reported to clients
type ReadState struct {
	ConversationId string `json:"conversation_id"`
	Fro            int64  `json:"fro"`
	To             int64  `json:"to"`
	UnreadCount    int64  `json:"unread_count"`
}

// MarkRead moves the caller's cursor to the latest regular message.
// It never moves the cursor backwards and is a no-op on an empty conversation.
func (s *CursorService) MarkRead(ctx context.Context, userId, conversationId string) (*ReadState, error) {
	if conversationId == "" {
		return nil, errcode.ErrInvalidParam.WithMsg("conversation_id is required")
	}

	var cursor *entity.ReadCursor
	err := s.transact(ctx, "mark read", func(tx *gorm.DB, out *outbox) error {
		if err := s.assertMember(ctx, tx, conversationId, userId); err != nil {
			return err
		}
		var err error
		cursor, err = s.cursorRepo.GetForUpdate(ctx, tx, conversationId, userId)
		if err != nil {
			return err
		}
		last, err := s.repos.Message.LastNonNoticeId(ctx, tx, conversationId)
		if err != nil {
			return err
		}
		if last == 0 || !cursor.Advance(last) {
			return nil
		}
		if err := s.cursorRepo.UpdateTo(ctx, tx, cursor); err != nil {
			return err
		}

		members, err := s.repos.Conversation.ListMembers(ctx, tx, conversationId)
		if err != nil {
			return err
		}
		out.add(notify.Fanout(notify.Event{
			Type:           notify.TypeMessageRead,
			Actor:          userId,
			ConversationId: conversationId,
			MessageId:      cursor.To,
		}, members, userId)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.CtxDebug(ctx, "conversation read: conversation_id=%s, user_id=%s, to=%d", conversationId, userId, cursor.To)
	return s.state(ctx, cursor)
}

// UnreadCount counts regular messages after the caller's cursor
func (s *CursorService) UnreadCount(ctx context.Context, userId, conversationId string) (*ReadState, error) {
	if err := s.assertMember(ctx, s.db(ctx), conversationId, userId); err != nil {
		return nil, toBizError(ctx, "unread count", err)
	}
	cursor, err := s.cursorRepo.Get(ctx, conversationId, userId)
	if err != nil {
		return nil, toBizError(ctx, "unread count", err)
	}
	return s.state(ctx, cursor)
}

// ReadersOf lists the members that have read messageId
func (s *CursorService) ReadersOf(ctx context.Context, userId string, messageId int64) ([]string, error) {
	msg, err := s.repos.Message.GetById(ctx, s.db(ctx), messageId)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errcode.ErrMessageNotFound
		}
		return nil, toBizError(ctx, "readers of", err)
	}
	if err := s.assertMember(ctx, s.db(ctx), msg.ConversationId, userId); err != nil {
		return nil, toBizError(ctx, "readers of", err)
	}

	cursors, err := s.cursorRepo.ListByConversation(ctx, msg.ConversationId)
	if err != nil {
		return nil, toBizError(ctx, "readers of", err)
	}
	return readers(cursors, messageId), nil
}

func (s *CursorService) state(ctx context.Context, cursor *entity.ReadCursor) (*ReadState, error) {
	unread, err := s.repos.Message.CountAfter(ctx, cursor.ConversationId, cursor.To)
	if err != nil {
		return nil, toBizError(ctx, "unread count", err)
	}
	return &ReadState{
		ConversationId: cursor.ConversationId,
		Fro:            cursor.Fro,
		To:             cursor.To,
		UnreadCount:    unread,
	}, nil
}
