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

// RequestService runs the Pending/Accept/Reject ledger for friend and group requests
type RequestService struct {
	core
	reqRepo *repository.RequestRepo
}

// NewRequestService creates a new RequestService
func NewRequestService(repos *repository.Repositories, emitter notify.Emitter) *RequestService {
	return &RequestService{
		core:    newCore(repos, emitter),
		reqRepo: repos.Request,
	}
}

// FriendRequestRequest represents send friend request request
type FriendRequestRequest struct {
	ReceiverId string `json:"receiver_id" validate:"required,userid"`
}

// ProcessRequestRequest resolves a request by id
type ProcessRequestRequest struct {
	RequestId string `json:"request_id" validate:"required,max=32"`
	Decision  string `json:"decision" validate:"required,oneof=accept reject"`
}

// ProcessFriendRequestRequest resolves the latest friend request of a sender
type ProcessFriendRequestRequest struct {
	SenderId string `json:"sender_id" validate:"required,userid"`
	Decision string `json:"decision" validate:"required,oneof=accept reject"`
}

// ProcessGroupRequestRequest resolves the latest join or invite request of a sender
type ProcessGroupRequestRequest struct {
	GroupId  string `json:"group_id" validate:"required,max=32"`
	SenderId string `json:"sender_id" validate:"required,userid"`
	Decision string `json:"decision" validate:"required,oneof=accept reject"`
}

// JoinGroupRequest asks to join a group
type JoinGroupRequest struct {
	GroupId string `json:"group_id" validate:"required,max=32"`
}

// InviteRequest invites a friend into a group
type InviteRequest struct {
	GroupId string `json:"group_id" validate:"required,max=32"`
	UserId  string `json:"user_id" validate:"required,userid"`
}

// SendFriendRequest records a Pending friend request, replacing a stale Pending one
func (s *RequestService) SendFriendRequest(ctx context.Context, senderId string, req *FriendRequestRequest) (*entity.RequestInfo, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.ReceiverId == senderId {
		return nil, errcode.ErrSelfFriend
	}

	var created *entity.Request
	err := s.transact(ctx, "send friend request", func(tx *gorm.DB, out *outbox) error {
		if err := s.lockCaller(ctx, tx, senderId); err != nil {
			return err
		}
		exists, err := s.repos.User.ExistsWithTx(ctx, tx, req.ReceiverId)
		if err != nil {
			return err
		}
		if !exists {
			return errcode.ErrUserNotFound
		}
		friends, err := s.repos.Friend.AreFriends(ctx, tx, senderId, req.ReceiverId)
		if err != nil {
			return err
		}
		if friends {
			return errcode.ErrAlreadyFriends
		}
		if _, err := s.reqRepo.DiscardPendingFriend(ctx, tx, senderId, req.ReceiverId); err != nil {
			return err
		}

		id, err := idgen.NextID()
		if err != nil {
			return err
		}
		receiverId := req.ReceiverId
		created = &entity.Request{
			Id:         id,
			Kind:       constant.RequestKindFriend,
			SenderId:   senderId,
			ReceiverId: &receiverId,
			Status:     constant.RequestStatusPending,
		}
		if err := s.reqRepo.Create(ctx, tx, created); err != nil {
			return err
		}
		out.add(notify.Event{
			Type:      notify.TypeFriendRequest,
			Recipient: receiverId,
			Actor:     senderId,
			RequestId: id,
			Ts:        created.CreatedAt,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.CtxInfo(ctx, "friend request sent: request_id=%s, sender_id=%s, receiver_id=%s", created.Id, senderId, req.ReceiverId)
	return created.ToRequestInfo(constant.RequestRoleSender), nil
}

// RequestJoin records a Pending join request for a group the user is not in
func (s *RequestService) RequestJoin(ctx context.Context, userId string, req *JoinGroupRequest) (*entity.RequestInfo, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var created *entity.Request
	err := s.transact(ctx, "request join", func(tx *gorm.DB, out *outbox) error {
		if err := s.lockCaller(ctx, tx, userId); err != nil {
			return err
		}
		group, err := s.repos.Group.GetByIdWithTx(ctx, tx, req.GroupId)
		if err != nil {
			if repository.IsNotFound(err) {
				return errcode.ErrGroupNotFound
			}
			return err
		}
		member, err := s.repos.Conversation.IsMember(ctx, tx, group.ConversationId, userId)
		if err != nil {
			return err
		}
		if member {
			return errcode.ErrAlreadyGroupMember
		}

		created, err = s.createGroupRequest(ctx, tx, out, group, constant.RequestKindGroupJoin, userId, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	log.CtxInfo(ctx, "group join requested: request_id=%s, group_id=%s, user_id=%s", created.Id, req.GroupId, userId)
	return created.ToRequestInfo(constant.RequestRoleSender), nil
}

// InviteToGroup lets a member invite one of their friends; the invitee becomes the request sender
func (s *RequestService) InviteToGroup(ctx context.Context, inviterId string, req *InviteRequest) (*entity.RequestInfo, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.UserId == inviterId {
		return nil, errcode.ErrInvalidMember
	}

	var created *entity.Request
	err := s.transact(ctx, "invite to group", func(tx *gorm.DB, out *outbox) error {
		group, err := s.repos.Group.GetByIdWithTx(ctx, tx, req.GroupId)
		if err != nil {
			if repository.IsNotFound(err) {
				return errcode.ErrGroupNotFound
			}
			return err
		}
		inviterIn, err := s.repos.Conversation.IsMember(ctx, tx, group.ConversationId, inviterId)
		if err != nil {
			return err
		}
		if !inviterIn {
			return errcode.ErrNotGroupMember
		}
		friends, err := s.repos.Friend.AreFriends(ctx, tx, inviterId, req.UserId)
		if err != nil {
			return err
		}
		if !friends {
			return errcode.ErrNotFriends
		}
		inviteeIn, err := s.repos.Conversation.IsMember(ctx, tx, group.ConversationId, req.UserId)
		if err != nil {
			return err
		}
		if inviteeIn {
			return errcode.ErrAlreadyGroupMember
		}
		// the invitee is the sender; its row serializes its pending requests
		if _, err := s.repos.User.LockById(ctx, tx, req.UserId); err != nil {
			if repository.IsNotFound(err) {
				return errcode.ErrUserNotFound
			}
			return err
		}

		created, err = s.createGroupRequest(ctx, tx, out, group, constant.RequestKindGroupInvite, req.UserId, inviterId)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.CtxInfo(ctx, "group invite created: request_id=%s, group_id=%s, user_id=%s, inviter_id=%s",
		created.Id, req.GroupId, req.UserId, inviterId)
	return created.ToRequestInfo(constant.RequestRoleSender), nil
}

func (s *RequestService) createGroupRequest(ctx context.Context, tx *gorm.DB, out *outbox, group *entity.Group, kind int32, senderId, inviterId string) (*entity.Request, error) {
	if _, err := s.reqRepo.DiscardPendingGroup(ctx, tx, kind, senderId, group.Id); err != nil {
		return nil, err
	}
	id, err := idgen.NextID()
	if err != nil {
		return nil, err
	}

	groupId := group.Id
	created := &entity.Request{
		Id:       id,
		Kind:     kind,
		SenderId: senderId,
		GroupId:  &groupId,
		Status:   constant.RequestStatusPending,
	}
	actor := senderId
	if inviterId != "" {
		created.InviterId = &inviterId
		actor = inviterId
	}
	if err := s.reqRepo.Create(ctx, tx, created); err != nil {
		return nil, err
	}

	admins, err := s.groupAdmins(ctx, tx, group)
	if err != nil {
		return nil, err
	}
	out.add(notify.Fanout(notify.Event{
		Type:      notify.TypeGroupRequest,
		Actor:     actor,
		GroupId:   group.Id,
		RequestId: id,
		Ts:        created.CreatedAt,
	}, admins, actor)...)
	return created, nil
}

// ProcessRequest accepts or rejects a Pending request.
// The request row is locked, so of two concurrent resolvers the second sees AlreadyProcessed.
func (s *RequestService) ProcessRequest(ctx context.Context, userId string, req *ProcessRequestRequest) (*entity.RequestInfo, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var resolved *entity.Request
	err := s.transact(ctx, "process request", func(tx *gorm.DB, out *outbox) error {
		if err := s.assertRegistered(ctx, tx, userId); err != nil {
			return err
		}
		r, err := s.reqRepo.GetForUpdate(ctx, tx, req.RequestId)
		if err != nil {
			if repository.IsNotFound(err) {
				return errcode.ErrRequestNotFound
			}
			return err
		}
		resolved = r

		if r.IsGroupRequest() {
			return s.processGroupRequest(ctx, tx, out, userId, r, req.Decision)
		}
		return s.processFriendRequest(ctx, tx, out, userId, r, req.Decision)
	})
	if err != nil {
		return nil, err
	}

	log.CtxInfo(ctx, "request processed: request_id=%s, handler=%s, status=%s", resolved.Id, userId, resolved.Status)
	return resolved.ToRequestInfo(constant.RequestRoleReceiver), nil
}

// ProcessFriendRequestFrom resolves the newest friend request senderId sent to the caller
func (s *RequestService) ProcessFriendRequestFrom(ctx context.Context, userId string, req *ProcessFriendRequestRequest) (*entity.RequestInfo, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	id, err := s.reqRepo.LatestFriendRequestId(ctx, req.SenderId, userId)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errcode.ErrRequestNotFound
		}
		return nil, toBizError(ctx, "find friend request", err)
	}
	return s.ProcessRequest(ctx, userId, &ProcessRequestRequest{RequestId: id, Decision: req.Decision})
}

// ProcessGroupRequestFrom resolves the newest join or invite request senderId holds for a group
func (s *RequestService) ProcessGroupRequestFrom(ctx context.Context, userId string, req *ProcessGroupRequestRequest) (*entity.RequestInfo, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	id, err := s.reqRepo.LatestGroupRequestId(ctx, req.SenderId, req.GroupId)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errcode.ErrRequestNotFound
		}
		return nil, toBizError(ctx, "find group request", err)
	}
	return s.ProcessRequest(ctx, userId, &ProcessRequestRequest{RequestId: id, Decision: req.Decision})
}

func (s *RequestService) processFriendRequest(ctx context.Context, tx *gorm.DB, out *outbox, userId string, r *entity.Request, decision string) error {
	if r.ReceiverId == nil || *r.ReceiverId != userId {
		return errcode.ErrNotRequestHandler
	}
	if !r.IsPending() {
		return errcode.ErrAlreadyProcessed
	}

	if decision == constant.DecisionReject {
		return s.reqRepo.UpdateStatus(ctx, tx, r, constant.RequestStatusReject)
	}
	if r.SenderId == constant.SentinelUserId {
		return errcode.ErrUserNotFound
	}

	if err := s.addEdgePair(ctx, tx, r.SenderId, userId, ""); err != nil {
		return err
	}
	if err := s.reqRepo.UpdateStatus(ctx, tx, r, constant.RequestStatusAccept); err != nil {
		return err
	}
	out.add(notify.Event{
		Type:      notify.TypeFriendAdded,
		Recipient: r.SenderId,
		Actor:     userId,
		RequestId: r.Id,
		Ts:        r.UpdatedAt,
	})
	return nil
}

func (s *RequestService) processGroupRequest(ctx context.Context, tx *gorm.DB, out *outbox, userId string, r *entity.Request, decision string) error {
	group, err := s.repos.Group.LockById(ctx, tx, *r.GroupId)
	if err != nil {
		if repository.IsNotFound(err) {
			return errcode.ErrGroupNotFound
		}
		return err
	}
	admin, err := s.isGroupAdmin(ctx, tx, group, userId)
	if err != nil {
		return err
	}
	if !admin {
		return errcode.ErrNotRequestHandler
	}
	if !r.IsPending() {
		return errcode.ErrAlreadyProcessed
	}

	if decision == constant.DecisionReject {
		return s.reqRepo.UpdateStatus(ctx, tx, r, constant.RequestStatusReject)
	}
	if r.SenderId == constant.SentinelUserId {
		return errcode.ErrUserNotFound
	}

	if _, err := s.repos.Conversation.LockById(ctx, tx, group.ConversationId); err != nil {
		return err
	}
	joined, err := s.join(ctx, tx, group.ConversationId, r.SenderId)
	if err != nil {
		return err
	}
	if !joined {
		return errcode.ErrAlreadyGroupMember
	}
	if err := s.reqRepo.UpdateStatus(ctx, tx, r, constant.RequestStatusAccept); err != nil {
		return err
	}

	recipients := []string{r.SenderId}
	if r.InviterId != nil {
		recipients = append(recipients, *r.InviterId)
	}
	out.add(notify.Fanout(notify.Event{
		Type:           notify.TypeGroupJoined,
		Actor:          userId,
		GroupId:        group.Id,
		ConversationId: group.ConversationId,
		RequestId:      r.Id,
		Ts:             r.UpdatedAt,
	}, recipients, userId)...)
	return nil
}

// GetRequest returns a request visible to its sender, receiver, inviter or the group's administrators
func (s *RequestService) GetRequest(ctx context.Context, userId, requestId string) (*entity.RequestInfo, error) {
	r, err := s.reqRepo.GetById(ctx, requestId)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errcode.ErrRequestNotFound
		}
		return nil, toBizError(ctx, "get request", err)
	}

	switch {
	case r.SenderId == userId:
		return r.ToRequestInfo(constant.RequestRoleSender), nil
	case r.ReceiverId != nil && *r.ReceiverId == userId:
		return r.ToRequestInfo(constant.RequestRoleReceiver), nil
	case r.InviterId != nil && *r.InviterId == userId:
		return r.ToRequestInfo(constant.RequestRoleSender), nil
	}

	if r.IsGroupRequest() {
		group, err := s.repos.Group.GetById(ctx, *r.GroupId)
		if err == nil {
			admin, err := s.isGroupAdmin(ctx, s.db(ctx), group, userId)
			if err != nil {
				return nil, toBizError(ctx, "get request", err)
			}
			if admin {
				return r.ToRequestInfo(constant.RequestRoleReceiver), nil
			}
		}
	}
	return nil, errcode.ErrForbidden
}

// ListFriendRequests lists friend requests the user sent or received, oldest first
func (s *RequestService) ListFriendRequests(ctx context.Context, userId string) ([]*entity.RequestInfo, error) {
	reqs, err := s.reqRepo.ListFriendRequests(ctx, userId)
	if err != nil {
		log.CtxError(ctx, "list friend requests failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}

	infos := make([]*entity.RequestInfo, 0, len(reqs))
	for _, r := range reqs {
		role := constant.RequestRoleReceiver
		if r.SenderId == userId {
			role = constant.RequestRoleSender
		}
		infos = append(infos, r.ToRequestInfo(role))
	}
	return infos, nil
}

// ListGroupRequests lists join and invite requests of the groups the user administers
func (s *RequestService) ListGroupRequests(ctx context.Context, userId string) ([]*entity.RequestInfo, error) {
	groupIds, err := s.repos.Group.ListAdministeredIds(ctx, userId)
	if err != nil {
		log.CtxError(ctx, "list administered groups failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}
	reqs, err := s.reqRepo.ListGroupRequests(ctx, groupIds)
	if err != nil {
		log.CtxError(ctx, "list group requests failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}

	infos := make([]*entity.RequestInfo, 0, len(reqs))
	for _, r := range reqs {
		infos = append(infos, r.ToRequestInfo(constant.RequestRoleReceiver))
	}
	return infos, nil
}
