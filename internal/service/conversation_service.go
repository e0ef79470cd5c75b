package service

import (
	"context"

	"github.com/mbeoliero/kit/log"
	"github.com/zhusq20/CapybaraChat/internal/entity"
	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/internal/repository"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
	"github.com/zhusq20/CapybaraChat/pkg/idgen"
	"github.com/zhusq20/CapybaraChat/pkg/validate"
	"gorm.io/gorm"
)

// ConversationService owns conversation identity and membership
type ConversationService struct {
	core
	convRepo *repository.ConversationRepo
}

// NewConversationService creates a new ConversationService
func NewConversationService(repos *repository.Repositories, emitter notify.Emitter) *ConversationService {
	return &ConversationService{
		core:     newCore(repos, emitter),
		convRepo: repos.Conversation,
	}
}

// CreateConversationRequest creates a private or ad-hoc group conversation.
// A private conversation takes exactly one other member.
type CreateConversationRequest struct {
	Type    int32    `json:"type" validate:"oneof=0 1"`
	Members []string `json:"members" validate:"required,min=1,max=500,dive,userid"`
}

// GetOrCreatePrivate returns the private conversation of a friend pair, creating it on first use.
// The id is derived from the pair, so concurrent creators converge on the same row.
func (s *ConversationService) GetOrCreatePrivate(ctx context.Context, userId, peerId string) (*entity.ConversationInfo, error) {
	if peerId == userId || !validate.UserId(peerId) {
		return nil, errcode.ErrInvalidParam.WithMsg("invalid peer")
	}

	convId := entity.GenPrivateConversationId(userId, peerId)
	var created bool
	err := s.transact(ctx, "get or create private conversation", func(tx *gorm.DB, out *outbox) error {
		friends, err := s.repos.Friend.AreFriends(ctx, tx, userId, peerId)
		if err != nil {
			return err
		}
		if !friends {
			return errcode.ErrNotFriends
		}

		created, err = s.convRepo.CreateIfAbsent(ctx, tx, &entity.Conversation{
			Id:   convId,
			Type: constant.ConversationTypePrivate,
		})
		if err != nil {
			return err
		}
		if _, err := s.convRepo.LockById(ctx, tx, convId); err != nil {
			return err
		}
		// a member that left through account deletion rejoins with a fresh cursor
		for _, uid := range []string{userId, peerId} {
			if _, err := s.join(ctx, tx, convId, uid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		log.CtxInfo(ctx, "private conversation created: conversation_id=%s", convId)
	}
	return s.GetConversation(ctx, userId, convId)
}

// CreateConversation creates a conversation from an explicit member list.
// Private conversations go through the pair dedup; group conversations are always new
// and every member must be a friend of the caller.
func (s *ConversationService) CreateConversation(ctx context.Context, userId string, req *CreateConversationRequest) (*entity.ConversationInfo, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	members := dedupe(req.Members, userId)

	if req.Type == constant.ConversationTypePrivate {
		if len(members) != 1 {
			return nil, errcode.ErrInvalidParam.WithMsg("private conversation takes exactly one peer")
		}
		return s.GetOrCreatePrivate(ctx, userId, members[0])
	}

	convId, err := s.createGroupConversation(ctx, userId, members, "")
	if err != nil {
		return nil, err
	}
	return s.GetConversation(ctx, userId, convId)
}

// createGroupConversation always creates a new group conversation owned by creatorId.
// When groupName is set a Group row is layered on top with creatorId as master.
func (c *core) createGroupConversation(ctx context.Context, creatorId string, members []string, groupName string) (string, error) {
	id, err := idgen.NextID()
	if err != nil {
		log.CtxError(ctx, "generate id failed: %v", err)
		return "", errcode.ErrInternalServer
	}
	convId := entity.GenGroupConversationId(id)

	err = c.transact(ctx, "create group conversation", func(tx *gorm.DB, out *outbox) error {
		if err := c.assertRegistered(ctx, tx, creatorId); err != nil {
			return err
		}
		if len(members) > 0 {
			count, err := c.repos.Friend.CountFriendsAmong(ctx, tx, creatorId, members)
			if err != nil {
				return err
			}
			if count != int64(len(members)) {
				return errcode.ErrNotFriends
			}
		}

		if _, err := c.repos.Conversation.CreateIfAbsent(ctx, tx, &entity.Conversation{
			Id:   convId,
			Type: constant.ConversationTypeGroup,
		}); err != nil {
			return err
		}

		tmpl := notify.Event{
			Type:           notify.TypeGroupJoined,
			Actor:          creatorId,
			ConversationId: convId,
			Ts:             entity.NowUnixMilli(),
		}
		if groupName != "" {
			if err := c.repos.Group.Create(ctx, tx, &entity.Group{
				Id:             id,
				Name:           groupName,
				ConversationId: convId,
				MasterId:       creatorId,
			}); err != nil {
				return err
			}
			tmpl.GroupId = id
		}

		for _, uid := range append([]string{creatorId}, members...) {
			if _, err := c.join(ctx, tx, convId, uid); err != nil {
				return err
			}
		}
		out.add(notify.Fanout(tmpl, members, creatorId)...)
		return nil
	})
	if err != nil {
		return "", err
	}

	log.CtxInfo(ctx, "group conversation created: conversation_id=%s, creator_id=%s, members=%d, group=%v",
		convId, creatorId, len(members)+1, groupName != "")
	return convId, nil
}

// ListForUser lists every conversation the user belongs to with its unread count
func (s *ConversationService) ListForUser(ctx context.Context, userId string) ([]*entity.ConversationInfo, error) {
	convs, err := s.convRepo.ListByUser(ctx, userId)
	if err != nil {
		log.CtxError(ctx, "list conversations failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}
	if len(convs) == 0 {
		return []*entity.ConversationInfo{}, nil
	}

	ids := make([]string, 0, len(convs))
	for _, conv := range convs {
		ids = append(ids, conv.Id)
	}
	members, err := s.convRepo.ListMembersOf(ctx, ids)
	if err != nil {
		log.CtxError(ctx, "list conversation members failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}
	cursors, err := s.repos.Cursor.ListByUser(ctx, userId)
	if err != nil {
		log.CtxError(ctx, "list cursors failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}

	infos := make([]*entity.ConversationInfo, 0, len(convs))
	for _, conv := range convs {
		info, err := s.buildInfo(ctx, conv, members[conv.Id], cursors[conv.Id])
		if err != nil {
			log.CtxError(ctx, "build conversation info failed: conversation_id=%s, error=%v", conv.Id, err)
			return nil, errcode.ErrInternalServer
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// GetConversation returns a conversation to one of its members.
// A missing conversation is NotFound; an existing one the caller is not in is Forbidden.
func (s *ConversationService) GetConversation(ctx context.Context, userId, conversationId string) (*entity.ConversationInfo, error) {
	conv, err := s.convRepo.GetById(ctx, conversationId)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errcode.ErrConvNotFound
		}
		return nil, toBizError(ctx, "get conversation", err)
	}

	members, err := s.convRepo.ListMembers(ctx, s.db(ctx), conversationId)
	if err != nil {
		return nil, toBizError(ctx, "get conversation", err)
	}
	if !contains(members, userId) {
		return nil, errcode.ErrNotConvMember
	}

	cursor, err := s.repos.Cursor.Get(ctx, conversationId, userId)
	if err != nil && !repository.IsNotFound(err) {
		return nil, toBizError(ctx, "get conversation", err)
	}
	info, err := s.buildInfo(ctx, conv, members, cursor)
	if err != nil {
		return nil, toBizError(ctx, "get conversation", err)
	}
	return info, nil
}

func (s *ConversationService) buildInfo(ctx context.Context, conv *entity.Conversation, members []string, cursor *entity.ReadCursor) (*entity.ConversationInfo, error) {
	info := &entity.ConversationInfo{
		Id:        conv.Id,
		Type:      conv.Type,
		Members:   members,
		UpdatedAt: conv.UpdatedAt,
	}
	if info.Members == nil {
		info.Members = []string{}
	}

	last, err := s.repos.Message.LastNonNoticeId(ctx, s.db(ctx), conv.Id)
	if err != nil {
		return nil, err
	}
	info.LastMessageId = last

	if cursor != nil {
		info.UnreadCount, err = s.repos.Message.CountAfter(ctx, conv.Id, cursor.To)
		if err != nil {
			return nil, err
		}
	}

	if conv.Type == constant.ConversationTypeGroup {
		group, err := s.repos.Group.GetByConversationId(ctx, s.db(ctx), conv.Id)
		if err == nil {
			info.GroupId = group.Id
		} else if !repository.IsNotFound(err) {
			return nil, err
		}
	}
	return info, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
