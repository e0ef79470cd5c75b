package service

import (
	"context"

	"github.com/mbeoliero/kit/log"
	"github.com/zhusq20/CapybaraChat/internal/entity"
	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/internal/repository"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
	"github.com/zhusq20/CapybaraChat/pkg/validate"
	"gorm.io/gorm"
)

// MessageService handles the message log
type MessageService struct {
	core
	msgRepo *repository.MessageRepo
}

// NewMessageService creates a new MessageService
func NewMessageService(repos *repository.Repositories, emitter notify.Emitter) *MessageService {
	return &MessageService{
		core:    newCore(repos, emitter),
		msgRepo: repos.Message,
	}
}

// SendMessageRequest represents send message request
type SendMessageRequest struct {
	ConversationId string `json:"conversation_id" validate:"required,max=80"`
	Content        string `json:"content" validate:"required,max=4096"`
	ReplyTo        *int64 `json:"reply_to,omitempty" validate:"omitempty,gt=0"`
}

// FetchMessagesRequest represents fetch messages request
type FetchMessagesRequest struct {
	ConversationId string `json:"conversation_id" query:"conversation_id" validate:"required,max=80"`
	AfterId        int64  `json:"after_id" query:"after_id" validate:"min=0"`
	Limit          int    `json:"limit" query:"limit" validate:"min=0,max=200"`
}

// FetchMessagesResponse is a page of messages plus the caller's unread count
type FetchMessagesResponse struct {
	Messages    []*entity.MessageInfo `json:"messages"`
	UnreadCount int64                 `json:"unread_count"`
}

// Send appends a regular message to a conversation
func (s *MessageService) Send(ctx context.Context, senderId string, req *SendMessageRequest) (*entity.MessageInfo, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var msg *entity.Message
	err := s.transact(ctx, "send message", func(tx *gorm.DB, out *outbox) error {
		conv, err := s.repos.Conversation.LockById(ctx, tx, req.ConversationId)
		if err != nil {
			if repository.IsNotFound(err) {
				return errcode.ErrConvNotFound
			}
			return err
		}
		msg, err = s.appendMessage(ctx, tx, out, conv, senderId, req.Content, req.ReplyTo, false)
		if err != nil {
			return err
		}

		// the sender has seen everything up to its own message
		cursor, err := s.repos.Cursor.GetForUpdate(ctx, tx, conv.Id, senderId)
		if err != nil {
			return err
		}
		if cursor.Advance(msg.Id) {
			return s.repos.Cursor.UpdateTo(ctx, tx, cursor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.CtxInfo(ctx, "message sent: message_id=%d, conversation_id=%s, sender_id=%s", msg.Id, msg.ConversationId, senderId)
	return msg.ToMessageInfo(), nil
}

// appendMessage validates and writes one message inside tx; the caller holds the conversation lock.
func (c *core) appendMessage(ctx context.Context, tx *gorm.DB, out *outbox, conv *entity.Conversation, senderId, content string, replyTo *int64, isNotice bool) (*entity.Message, error) {
	if err := c.assertMember(ctx, tx, conv.Id, senderId); err != nil {
		return nil, err
	}
	if conv.Type == constant.ConversationTypePrivate {
		a, b, ok := entity.PrivatePeers(conv.Id)
		if !ok {
			return nil, errcode.ErrInternalServer
		}
		friends, err := c.repos.Friend.AreFriends(ctx, tx, a, b)
		if err != nil {
			return nil, err
		}
		if !friends {
			return nil, errcode.ErrNotFriends
		}
	}

	if replyTo != nil {
		target, err := c.repos.Message.GetById(ctx, tx, *replyTo)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, errcode.ErrInvalidReply.WithMsg("reply target does not exist")
			}
			return nil, err
		}
		if target.ConversationId != conv.Id {
			return nil, errcode.ErrInvalidReply.WithMsg("reply target belongs to another conversation")
		}
		if target.IsNotice {
			return nil, errcode.ErrInvalidReply.WithMsg("cannot reply to a notice")
		}
	}

	msg := &entity.Message{
		ConversationId: conv.Id,
		SenderId:       senderId,
		Content:        content,
		ReplyTo:        replyTo,
		IsNotice:       isNotice,
	}
	if err := c.repos.Message.Create(ctx, tx, msg); err != nil {
		return nil, err
	}
	if replyTo != nil {
		if err := c.repos.Message.IncrReplyCount(ctx, tx, *replyTo); err != nil {
			return nil, err
		}
	}
	if err := c.repos.Conversation.Touch(ctx, tx, conv.Id); err != nil {
		return nil, err
	}

	members, err := c.repos.Conversation.ListMembers(ctx, tx, conv.Id)
	if err != nil {
		return nil, err
	}
	typ := notify.TypeNewMessage
	if isNotice {
		typ = notify.TypeGroupNotice
	}
	out.add(notify.Fanout(notify.Event{
		Type:           typ,
		Actor:          senderId,
		ConversationId: conv.Id,
		MessageId:      msg.Id,
		Ts:             msg.CreatedAt,
	}, members, senderId)...)
	return msg, nil
}

// FetchAfter returns the caller's visible messages with id > AfterId, oldest first.
// Messages before the caller joined, notices and messages the caller deleted are skipped.
func (s *MessageService) FetchAfter(ctx context.Context, userId string, req *FetchMessagesRequest) (*FetchMessagesResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if err := s.assertMember(ctx, s.db(ctx), req.ConversationId, userId); err != nil {
		return nil, toBizError(ctx, "fetch messages", err)
	}

	cursor, err := s.repos.Cursor.Get(ctx, req.ConversationId, userId)
	if err != nil {
		return nil, toBizError(ctx, "fetch messages", err)
	}
	msgs, err := s.msgRepo.FetchAfter(ctx, req.ConversationId, userId, cursor.FetchFloor(req.AfterId), req.Limit)
	if err != nil {
		return nil, toBizError(ctx, "fetch messages", err)
	}
	cursors, err := s.repos.Cursor.ListByConversation(ctx, req.ConversationId)
	if err != nil {
		return nil, toBizError(ctx, "fetch messages", err)
	}
	unread, err := s.msgRepo.CountAfter(ctx, req.ConversationId, cursor.To)
	if err != nil {
		return nil, toBizError(ctx, "fetch messages", err)
	}

	infos := make([]*entity.MessageInfo, 0, len(msgs))
	for _, m := range msgs {
		info := m.ToMessageInfo()
		info.ReadBy = readers(cursors, m.Id)
		infos = append(infos, info)
	}
	return &FetchMessagesResponse{Messages: infos, UnreadCount: unread}, nil
}

// SoftDelete hides a message from the caller only; deleting twice is a no-op
func (s *MessageService) SoftDelete(ctx context.Context, userId string, messageId int64) error {
	if messageId <= 0 {
		return errcode.ErrInvalidParam.WithMsg("invalid message id")
	}

	msg, err := s.msgRepo.GetById(ctx, s.db(ctx), messageId)
	if err != nil {
		if repository.IsNotFound(err) {
			return errcode.ErrMessageNotFound
		}
		return toBizError(ctx, "delete message", err)
	}
	if msg.IsNotice {
		return errcode.ErrMessageNotFound
	}
	if err := s.assertMember(ctx, s.db(ctx), msg.ConversationId, userId); err != nil {
		return toBizError(ctx, "delete message", err)
	}

	if err := s.msgRepo.Hide(ctx, userId, messageId); err != nil {
		return toBizError(ctx, "delete message", err)
	}
	log.CtxInfo(ctx, "message hidden: message_id=%d, user_id=%s", messageId, userId)
	return nil
}

// readers lists the users whose cursor covers messageId
func readers(cursors []*entity.ReadCursor, messageId int64) []string {
	out := make([]string, 0, len(cursors))
	for _, c := range cursors {
		if c.HasRead(messageId) {
			out = append(out, c.UserId)
		}
	}
	return out
}
